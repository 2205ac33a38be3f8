// Package lexical scores question similarity without a trained model. It is
// the permanent fallback path and the label source for training data.
package lexical

import (
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Scorer computes set-based cosine similarity over token presence vectors
// and keyword overlap scores. Stateless and safe for concurrent use.
type Scorer struct{}

// NewScorer returns a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Similarity returns the cosine similarity of the binary term-presence
// vectors of the two token sequences, built over their union vocabulary.
// Duplicate tokens count once. Returns 0 when either sequence is empty.
func (s *Scorer) Similarity(tokensA, tokensB []string) float64 {
	setA := toSet(tokensA)
	setB := toSet(tokensB)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	union := make([]string, 0, len(setA)+len(setB))
	for tok := range setA {
		union = append(union, tok)
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			union = append(union, tok)
		}
	}

	va := mat.NewVecDense(len(union), nil)
	vb := mat.NewVecDense(len(union), nil)
	for i, tok := range union {
		if _, ok := setA[tok]; ok {
			va.SetVec(i, 1)
		}
		if _, ok := setB[tok]; ok {
			vb.SetVec(i, 1)
		}
	}

	normA := mat.Norm(va, 2)
	normB := mat.Norm(vb, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return mat.Dot(va, vb) / (normA * normB)
}

// KeywordScore returns the fraction of keywords whose lowercased form occurs
// as a substring of the lowercased query. Returns 0 for an empty keyword
// list.
func (s *Scorer) KeywordScore(query string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	q := strings.ToLower(query)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(q, strings.ToLower(kw)) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}
