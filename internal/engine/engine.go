// Package engine orchestrates question matching: it preprocesses a query,
// scores it against every knowledge base entry with the active similarity
// strategy, blends in the keyword score, ranks, and applies the confidence
// threshold. It also drives training and model artifact activation.
package engine

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/kb"
	"github.com/hyperjump/kotae/internal/lexical"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/neural"
	"github.com/hyperjump/kotae/internal/textproc"
	"github.com/hyperjump/kotae/internal/trainer"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Score blend and acceptance threshold. The keyword weight is fixed
// regardless of the active strategy.
const (
	textWeight          = 0.7
	keywordWeight       = 0.3
	confidenceThreshold = 0.3
)

// Fixed responses when no answer can be given.
const (
	noUnderstandingAnswer = "抱歉，我没有理解您的问题。请重新提问。"
	noMatchAnswer         = "抱歉，我没有找到相关答案。请尝试换一种方式提问，或联系任课教师获取帮助。"
)

// DefaultTopK is the number of top matches returned when the caller does not
// ask for a specific count.
const DefaultTopK = 3

// Config holds engine settings: where model artifacts live and the training
// defaults applied on top of per-request hyperparameters.
type Config struct {
	ModelDir  string
	ModelBase string
	CacheSize int

	MaxSeqLen    int
	MinTokenFreq int

	// Arch overrides the default model architecture for training runs.
	// Nil selects the standard architecture.
	Arch *neural.Config
}

func (c *Config) applyDefaults() {
	if c.ModelBase == "" {
		c.ModelBase = "qa_model"
	}
	if c.CacheSize < 1 {
		c.CacheSize = 1000
	}
	if c.MaxSeqLen < 1 {
		c.MaxSeqLen = 100
	}
	if c.MinTokenFreq < 1 {
		c.MinTokenFreq = 1
	}
}

// strategyHolder wraps the active strategy for atomic replacement.
type strategyHolder struct {
	strategy SimilarityStrategy
}

// Engine is the long-lived matching engine. Ask is lock-free over atomically
// swapped snapshots; AddEntry and Train are serialized mutations.
type Engine struct {
	store      *kb.Store
	normalizer *textproc.Normalizer
	lexical    *lexical.Scorer
	trainer    *trainer.Trainer
	logger     *zap.Logger
	cfg        Config

	pool  *ants.Pool
	cache *resultCache

	snapshot atomic.Pointer[[]models.ProcessedEntry]
	strategy atomic.Pointer[strategyHolder]

	mu      sync.Mutex // serializes AddEntry
	trainMu sync.Mutex // exclusive for the full duration of Train
}

// New constructs the engine: builds the processed entry snapshot and attempts
// to load a persisted model artifact. A missing, corrupt, or incompatible
// artifact is a degraded-mode warning, not an error; the engine then runs
// lexical-only. New fails only when its own resources cannot be created.
func New(store *kb.Store, normalizer *textproc.Normalizer, cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, fmt.Errorf("create scoring pool: %w", err)
	}

	e := &Engine{
		store:      store,
		normalizer: normalizer,
		lexical:    lexical.NewScorer(),
		trainer:    trainer.New(logger),
		logger:     logger,
		cfg:        cfg,
		pool:       pool,
		cache:      newResultCache(cfg.CacheSize),
	}
	e.strategy.Store(&strategyHolder{strategy: &lexicalStrategy{scorer: e.lexical}})
	e.rebuildSnapshot()

	if cfg.ModelDir != "" {
		if err := e.ReloadModel(); err != nil {
			logger.Warn("model artifact unavailable, running in lexical-only mode",
				zap.String("dir", cfg.ModelDir), zap.String("base", cfg.ModelBase), zap.Error(err))
		}
	}
	return e, nil
}

// Close releases the scoring pool.
func (e *Engine) Close() {
	e.pool.Release()
}

// NeuralActive reports whether a trained model is currently scoring queries.
func (e *Engine) NeuralActive() bool {
	return e.strategy.Load().strategy.Name() == "neural"
}

// StrategyName returns the active strategy name for health and status output.
func (e *Engine) StrategyName() string {
	return e.strategy.Load().strategy.Name()
}

// scored pairs an entry with its blend components for ranking.
type scored struct {
	entry        *models.ProcessedEntry
	textSim      float64
	keywordScore float64
	combined     float64
}

// Ask answers a question. A blank question gets the fixed fallback response
// at confidence zero. Otherwise every knowledge base entry is scored with the
// active strategy, blended with its keyword score, and ranked; the best entry
// is returned only when its combined score clears the threshold strictly.
func (e *Engine) Ask(question string, topK int) models.MatchResult {
	if topK < 1 {
		topK = DefaultTopK
	}
	if strings.TrimSpace(question) == "" {
		return models.MatchResult{
			Answer:     noUnderstandingAnswer,
			Confidence: 0.0,
			TopMatches: []models.Match{},
		}
	}

	key := cacheKey(question, topK)
	cached, gen, ok := e.cache.Get(key)
	if ok {
		return cached
	}

	entries := *e.snapshot.Load()
	strategy := e.strategy.Load().strategy
	tokens := e.normalizer.Tokens(question)

	scores := make([]scored, len(entries))
	var wg sync.WaitGroup
	for i := range entries {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			scores[i] = e.scoreEntry(strategy, tokens, question, &entries[i])
		}
		if err := e.pool.Submit(task); err != nil {
			// Pool saturated or released; score inline.
			task()
		}
	}
	wg.Wait()

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].combined > scores[j].combined
	})

	result := e.buildResult(scores, topK)
	e.cache.Set(key, result, gen)
	return result
}

// scoreEntry computes one entry's blend. A neural prediction failure falls
// back to the lexical score for that entry instead of failing the request.
func (e *Engine) scoreEntry(strategy SimilarityStrategy, queryTokens []string, rawQuestion string, entry *models.ProcessedEntry) scored {
	textSim, err := strategy.Similarity(queryTokens, entry.NormalizedTokens)
	if err != nil {
		e.logger.Warn("similarity prediction failed, falling back to lexical",
			zap.String("strategy", strategy.Name()), zap.String("question", entry.Question), zap.Error(err))
		textSim = e.lexical.Similarity(queryTokens, entry.NormalizedTokens)
	}
	keywordScore := e.lexical.KeywordScore(rawQuestion, entry.Keywords)
	return scored{
		entry:        entry,
		textSim:      textSim,
		keywordScore: keywordScore,
		combined:     textWeight*textSim + keywordWeight*keywordScore,
	}
}

func (e *Engine) buildResult(scores []scored, topK int) models.MatchResult {
	if len(scores) == 0 {
		return models.MatchResult{
			Answer:     noMatchAnswer,
			Confidence: 0.0,
			TopMatches: []models.Match{},
		}
	}

	best := scores[0]
	if best.combined <= confidenceThreshold {
		return models.MatchResult{
			Answer:     noMatchAnswer,
			Confidence: utils.Clamp01(best.combined),
			TopMatches: []models.Match{},
		}
	}

	if topK > len(scores) {
		topK = len(scores)
	}
	matches := make([]models.Match, topK)
	for i := 0; i < topK; i++ {
		matches[i] = models.Match{
			Question: scores[i].entry.Question,
			Answer:   scores[i].entry.Answer,
			Score:    utils.Clamp01(scores[i].combined),
		}
	}

	matchedQuestion := best.entry.Question
	category := best.entry.Category
	return models.MatchResult{
		Answer:          best.entry.Answer,
		Confidence:      utils.Clamp01(best.combined),
		MatchedQuestion: &matchedQuestion,
		Category:        &category,
		TopMatches:      matches,
	}
}

// AddEntry validates and stores a new QA pair, then rebuilds the derived
// snapshot. Concurrent Ask calls observe either the old or the new snapshot,
// never a partially rebuilt one.
func (e *Engine) AddEntry(in models.QAPairInput) (models.QAPair, error) {
	if err := in.Validate(); err != nil {
		return models.QAPair{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	pair := e.store.Add(in)
	e.rebuildSnapshot()
	e.cache.Invalidate()
	e.logger.Info("qa pair added",
		zap.String("category", in.Category), zap.String("question", in.Question))
	return pair, nil
}

// Train synthesizes training data from the current knowledge base, fits a
// fresh model, persists the artifact, and activates the neural strategy. It
// holds an exclusive lock for its full duration. A persistence failure is
// logged and the freshly trained model is still activated in memory.
func (e *Engine) Train(req models.TrainRequest) (*models.TrainResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	entries := *e.snapshot.Load()
	examples := trainer.Synthesize(entries, e.lexical)
	result, err := e.trainer.Train(examples, trainer.Options{
		Epochs:       req.Epochs,
		BatchSize:    req.BatchSize,
		LearningRate: req.LearningRate,
		Seed:         req.Seed,
		MaxSeqLen:    e.cfg.MaxSeqLen,
		MinTokenFreq: e.cfg.MinTokenFreq,
		Arch:         e.cfg.Arch,
	})
	if err != nil {
		return nil, err
	}

	meta, err := neural.Save(e.cfg.ModelDir, e.cfg.ModelBase, result.Model, result.Vocab)
	if err != nil {
		e.logger.Error("failed to persist model artifact, trained model is active in memory only",
			zap.String("dir", e.cfg.ModelDir), zap.String("base", e.cfg.ModelBase), zap.Error(err))
	}

	predictor := &neural.Predictor{Model: result.Model, Vocab: result.Vocab, Meta: meta}
	e.activate(predictor)
	e.logger.Info("neural strategy activated after training",
		zap.String("artifact_id", meta.ID), zap.Float64("final_loss", result.FinalLoss))

	return &models.TrainResult{
		Epochs:       req.Epochs,
		BatchSize:    req.BatchSize,
		LearningRate: req.LearningRate,
		Examples:     result.Examples,
		FinalLoss:    result.FinalLoss,
		ArtifactID:   meta.ID,
	}, nil
}

// ReloadModel loads the persisted artifact and activates the neural strategy.
// On failure the current strategy stays active and the error is returned for
// the caller to log.
func (e *Engine) ReloadModel() error {
	predictor, err := neural.Load(e.cfg.ModelDir, e.cfg.ModelBase)
	if err != nil {
		return err
	}
	e.activate(predictor)
	e.logger.Info("model artifact loaded",
		zap.String("artifact_id", predictor.Meta.ID),
		zap.Time("trained_at", predictor.Meta.TrainedAt))
	return nil
}

func (e *Engine) activate(predictor *neural.Predictor) {
	e.strategy.Store(&strategyHolder{strategy: &neuralStrategy{predictor: predictor}})
	e.cache.Invalidate()
}

// rebuildSnapshot recomputes every entry's normalized projection and swaps
// the derived set in one step.
func (e *Engine) rebuildSnapshot() {
	data := e.store.Snapshot()
	entries := make([]models.ProcessedEntry, 0, 32)
	for _, c := range data.Categories {
		for _, p := range c.QAPairs {
			normalizedKeywords := make([]string, len(p.Keywords))
			for i, kw := range p.Keywords {
				normalizedKeywords[i] = e.normalizer.Normalize(kw)
			}
			entries = append(entries, models.ProcessedEntry{
				Category:           c.Name,
				Question:           p.Question,
				Answer:             p.Answer,
				Keywords:           p.Keywords,
				NormalizedText:     e.normalizer.Normalize(p.Question),
				NormalizedTokens:   e.normalizer.Tokens(p.Question),
				NormalizedKeywords: normalizedKeywords,
			})
		}
	}
	e.snapshot.Store(&entries)
}
