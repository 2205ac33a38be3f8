// Package trainer synthesizes weak-supervision training data from the
// knowledge base and drives supervised fitting of the similarity model.
package trainer

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/lexical"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/neural"
	"github.com/hyperjump/kotae/internal/vocab"
)

// MinExamples is the smallest training set a run will accept.
const MinExamples = 10

// Example is one labeled pair of normalized token sequences.
type Example struct {
	TokensA []string
	TokensB []string
	Label   float64
}

// Options control a training run. Zero values select the defaults.
type Options struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	MaxSeqLen    int
	MinTokenFreq int
	// Seed fixes shuffling and parameter initialization for reproducible
	// runs. Zero derives a seed from the clock.
	Seed int64
	// Arch overrides the default model architecture. VocabSize is always
	// replaced with the built vocabulary's size.
	Arch *neural.Config
}

func (o *Options) applyDefaults() {
	if o.Epochs < 1 {
		o.Epochs = 10
	}
	if o.BatchSize < 1 {
		o.BatchSize = 32
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.001
	}
	if o.MaxSeqLen < 1 {
		o.MaxSeqLen = 100
	}
	if o.MinTokenFreq < 1 {
		o.MinTokenFreq = 1
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
}

// Result is a completed training run: the fitted model, its vocabulary, and
// the loss trajectory.
type Result struct {
	Model       *neural.Model
	Vocab       *vocab.Vocabulary
	Examples    int
	FinalLoss   float64
	EpochLosses []float64
}

// Synthesize builds the training set from processed entries: every question
// paired with itself at label 1.0 and with each question of different text
// at their lexical similarity.
func Synthesize(entries []models.ProcessedEntry, scorer *lexical.Scorer) []Example {
	examples := make([]Example, 0, len(entries)*len(entries))
	for _, e := range entries {
		examples = append(examples, Example{TokensA: e.NormalizedTokens, TokensB: e.NormalizedTokens, Label: 1.0})
		for _, other := range entries {
			if other.Question == e.Question {
				continue
			}
			examples = append(examples, Example{
				TokensA: e.NormalizedTokens,
				TokensB: other.NormalizedTokens,
				Label:   scorer.Similarity(e.NormalizedTokens, other.NormalizedTokens),
			})
		}
	}
	return examples
}

// Trainer fits fresh models to synthesized examples.
type Trainer struct {
	logger *zap.Logger
}

// New returns a Trainer logging through logger.
func New(logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{logger: logger}
}

// Train builds a vocabulary over the example tokens and fits a new model
// from scratch. Fewer than MinExamples examples is a validation error and
// nothing is built. The returned model is not persisted here; the caller
// owns artifact handling.
func (t *Trainer) Train(examples []Example, opts Options) (*Result, error) {
	opts.applyDefaults()
	if len(examples) < MinExamples {
		return nil, models.NewValidationError("examples",
			fmt.Sprintf("insufficient training data: need at least %d examples, have %d", MinExamples, len(examples)))
	}

	sequences := make([][]string, 0, 2*len(examples))
	for _, ex := range examples {
		sequences = append(sequences, ex.TokensA, ex.TokensB)
	}
	v := vocab.Build(sequences, opts.MinTokenFreq)

	cfg := neural.DefaultConfig(v.Size())
	if opts.Arch != nil {
		cfg = *opts.Arch
		cfg.VocabSize = v.Size()
	}
	cfg.MaxLen = opts.MaxSeqLen
	model, err := neural.NewModel(cfg, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	data := make([]neural.Sample, len(examples))
	for i, ex := range examples {
		data[i] = neural.Sample{
			A:     v.Encode(ex.TokensA, opts.MaxSeqLen),
			B:     v.Encode(ex.TokensB, opts.MaxSeqLen),
			Label: ex.Label,
		}
	}

	t.logger.Info("training started",
		zap.Int("examples", len(examples)),
		zap.Int("vocab_size", v.Size()),
		zap.Int("epochs", opts.Epochs),
		zap.Int("batch_size", opts.BatchSize),
		zap.Float64("learning_rate", opts.LearningRate))

	opt := neural.NewAdam(model, opts.LearningRate)
	rng := rand.New(rand.NewSource(opts.Seed))
	losses := make([]float64, 0, opts.Epochs)
	start := time.Now()
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		rng.Shuffle(len(data), func(i, j int) { data[i], data[j] = data[j], data[i] })
		var total float64
		batches := 0
		for lo := 0; lo < len(data); lo += opts.BatchSize {
			hi := lo + opts.BatchSize
			if hi > len(data) {
				hi = len(data)
			}
			loss, err := opt.Step(data[lo:hi])
			if err != nil {
				return nil, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			total += loss
			batches++
		}
		avg := total / float64(batches)
		losses = append(losses, avg)
		t.logger.Info("epoch complete",
			zap.Int("epoch", epoch),
			zap.Int("epochs", opts.Epochs),
			zap.Float64("loss", avg))
	}
	t.logger.Info("training finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("final_loss", losses[len(losses)-1]))

	return &Result{
		Model:       model,
		Vocab:       v,
		Examples:    len(examples),
		FinalLoss:   losses[len(losses)-1],
		EpochLosses: losses,
	}, nil
}
