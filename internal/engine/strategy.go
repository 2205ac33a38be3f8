package engine

import (
	"github.com/hyperjump/kotae/internal/lexical"
	"github.com/hyperjump/kotae/internal/neural"
)

// SimilarityStrategy scores the similarity of two normalized token sequences.
// The engine selects one strategy at construction and swaps it atomically
// after a successful train or artifact reload; it is never probed per call.
type SimilarityStrategy interface {
	// Name identifies the strategy in logs and health output.
	Name() string
	// Similarity returns a score in [0, 1].
	Similarity(tokensA, tokensB []string) (float64, error)
}

// lexicalStrategy is the permanent fallback: deterministic set-based cosine.
type lexicalStrategy struct {
	scorer *lexical.Scorer
}

func (s *lexicalStrategy) Name() string { return "lexical" }

func (s *lexicalStrategy) Similarity(tokensA, tokensB []string) (float64, error) {
	return s.scorer.Similarity(tokensA, tokensB), nil
}

// neuralStrategy scores through a trained model and its linked vocabulary.
type neuralStrategy struct {
	predictor *neural.Predictor
}

func (s *neuralStrategy) Name() string { return "neural" }

func (s *neuralStrategy) Similarity(tokensA, tokensB []string) (float64, error) {
	return s.predictor.Similarity(tokensA, tokensB)
}
