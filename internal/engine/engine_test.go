package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/kotae/internal/kb"
	"github.com/hyperjump/kotae/internal/lexical"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/neural"
	"github.com/hyperjump/kotae/internal/textproc"
)

// newTestEngine builds an engine over the given knowledge base document. A
// nil document seeds the default content.
func newTestEngine(t *testing.T, doc *models.KnowledgeBase) *Engine {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge_base.json")
	if doc != nil {
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := kb.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	tinyArch := &neural.Config{EmbedDim: 6, HiddenDim: 4, NumLayers: 1, NumHeads: 2, Dropout: 0}
	e, err := New(store, textproc.NewNormalizer(), Config{
		ModelDir:  filepath.Join(dir, "models"),
		MaxSeqLen: 8,
		Arch:      tinyArch,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func kbWith(pairs ...models.Category) *models.KnowledgeBase {
	return &models.KnowledgeBase{Categories: pairs}
}

func TestAskBlankQuestion(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, q := range []string{"", "   ", "\t\n"} {
		res := e.Ask(q, 3)
		if res.Confidence != 0.0 {
			t.Errorf("Ask(%q) confidence = %f, want 0.0", q, res.Confidence)
		}
		if res.MatchedQuestion != nil || res.Category != nil {
			t.Errorf("Ask(%q) should not match anything", q)
		}
		if len(res.TopMatches) != 0 {
			t.Errorf("Ask(%q) top matches = %d, want 0", q, len(res.TopMatches))
		}
		if res.Answer == "" {
			t.Errorf("Ask(%q) should return the fixed fallback answer", q)
		}
	}
}

func TestAskSelfMatchAfterAdd(t *testing.T) {
	e := newTestEngine(t, nil)
	if _, err := e.AddEntry(models.QAPairInput{Category: "X", Question: "What time?", Answer: "9am"}); err != nil {
		t.Fatal(err)
	}
	res := e.Ask("What time?", 3)
	if res.MatchedQuestion == nil || *res.MatchedQuestion != "What time?" {
		t.Fatalf("matched question = %v, want What time?", res.MatchedQuestion)
	}
	if res.Answer != "9am" {
		t.Errorf("answer = %q, want 9am", res.Answer)
	}
	// Lexical self-similarity is 1.0, keywords are absent, so confidence is
	// exactly the text weight.
	if res.Confidence < textWeight-1e-9 {
		t.Errorf("confidence = %f, want >= %f", res.Confidence, textWeight)
	}
	if res.Category == nil || *res.Category != "X" {
		t.Errorf("category = %v, want X", res.Category)
	}
}

func TestAskBlendIsExact(t *testing.T) {
	doc := kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "pineapple juice recipe", Answer: "blend it", Keywords: []string{"pineapple", "mango"}},
	}})
	e := newTestEngine(t, doc)

	question := "pineapple recipe"
	res := e.Ask(question, 3)

	norm := textproc.NewNormalizer()
	scorer := lexical.NewScorer()
	wantText := scorer.Similarity(norm.Tokens(question), norm.Tokens("pineapple juice recipe"))
	wantKeyword := scorer.KeywordScore(question, []string{"pineapple", "mango"})
	want := textWeight*wantText + keywordWeight*wantKeyword

	if res.Confidence != want {
		t.Errorf("confidence = %v, want exactly %v", res.Confidence, want)
	}
}

func TestAskThresholdIsStrict(t *testing.T) {
	// Disjoint question tokens and a full keyword hit: combined is exactly
	// keywordWeight, which must be rejected.
	doc := kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "zzzz", Answer: "nope", Keywords: []string{"pineapple"}},
	}})
	e := newTestEngine(t, doc)

	res := e.Ask("pineapple", 3)
	if res.MatchedQuestion != nil {
		t.Errorf("combined score equal to the threshold must be rejected, matched %q", *res.MatchedQuestion)
	}
	if res.Confidence != keywordWeight {
		t.Errorf("rejected confidence = %v, want best score %v", res.Confidence, keywordWeight)
	}
	if len(res.TopMatches) != 0 {
		t.Errorf("rejected result should have no top matches, got %d", len(res.TopMatches))
	}
}

func TestAskJustAboveThresholdAccepted(t *testing.T) {
	doc := kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "pineapple", Answer: "yes", Keywords: nil},
	}})
	e := newTestEngine(t, doc)

	// Token sets match exactly: combined = 0.7 > 0.3.
	res := e.Ask("pineapple", 3)
	if res.MatchedQuestion == nil {
		t.Fatal("score above the threshold must be accepted")
	}
	if res.Answer != "yes" {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestAskStableOrderOnTies(t *testing.T) {
	doc := kbWith(
		models.Category{Name: "first", QAPairs: []models.QAPair{
			{Question: "库存查询", Answer: "answer one"},
		}},
		models.Category{Name: "second", QAPairs: []models.QAPair{
			{Question: "库存查询", Answer: "answer two"},
		}},
	)
	e := newTestEngine(t, doc)

	res := e.Ask("库存查询", 3)
	if res.Category == nil || *res.Category != "first" {
		t.Errorf("ties must preserve knowledge base order, matched category %v", res.Category)
	}
	if res.Answer != "answer one" {
		t.Errorf("answer = %q, want answer one", res.Answer)
	}
}

func TestAskTopKBounded(t *testing.T) {
	e := newTestEngine(t, nil)
	res := e.Ask("课程什么时候开始", 2)
	if len(res.TopMatches) > 2 {
		t.Errorf("top matches = %d, want at most 2", len(res.TopMatches))
	}
}

func TestAskSeededChineseQuestion(t *testing.T) {
	e := newTestEngine(t, nil)
	res := e.Ask("课程什么时候开始", 3)
	if res.MatchedQuestion == nil || *res.MatchedQuestion != "课程什么时候开始？" {
		t.Fatalf("matched question = %v, want 课程什么时候开始？", res.MatchedQuestion)
	}
	if res.Confidence <= confidenceThreshold {
		t.Errorf("confidence = %f, want > %f", res.Confidence, confidenceThreshold)
	}
	if res.Category == nil || *res.Category != "课程安排" {
		t.Errorf("category = %v, want 课程安排", res.Category)
	}
}

func TestAddEntryValidation(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.AddEntry(models.QAPairInput{Category: "X", Question: "  ", Answer: "a"})
	if !models.IsValidationError(err) {
		t.Errorf("blank question should be a validation error, got %v", err)
	}
	_, err = e.AddEntry(models.QAPairInput{Category: "", Question: "q", Answer: "a"})
	if !models.IsValidationError(err) {
		t.Errorf("blank category should be a validation error, got %v", err)
	}
}

func TestAddEntryInvalidatesCache(t *testing.T) {
	e := newTestEngine(t, kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "old question words", Answer: "old"},
	}}))

	first := e.Ask("fresh question words", 3)
	if _, err := e.AddEntry(models.QAPairInput{Category: "c", Question: "fresh question words", Answer: "fresh"}); err != nil {
		t.Fatal(err)
	}
	second := e.Ask("fresh question words", 3)
	if second.Answer == first.Answer {
		t.Error("cached result survived a knowledge base mutation")
	}
	if second.Answer != "fresh" {
		t.Errorf("answer = %q, want fresh", second.Answer)
	}
}

// An ask that loaded its snapshot before a mutation landed must not store its
// result after the mutation: the late store is dropped and the next ask sees
// the new entry.
func TestAskComputedBeforeMutationIsNotCached(t *testing.T) {
	e := newTestEngine(t, kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "old question words", Answer: "old"},
	}}))

	question := "fresh question words"
	key := cacheKey(question, 3)
	stale, gen, ok := e.cache.Get(key)
	if ok {
		t.Fatal("expected a cold cache")
	}
	stale = e.buildResult(nil, 3)

	if _, err := e.AddEntry(models.QAPairInput{Category: "c", Question: question, Answer: "fresh"}); err != nil {
		t.Fatal(err)
	}
	e.cache.Set(key, stale, gen)

	got := e.Ask(question, 3)
	if got.Answer != "fresh" {
		t.Errorf("answer = %q, want fresh (stale pre-mutation result was served)", got.Answer)
	}
}

func TestSnapshotCarriesNormalizedKeywords(t *testing.T) {
	e := newTestEngine(t, kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "考试时间", Answer: "a", Keywords: []string{"期末考试", "Final Exam"}},
	}}))

	entries := *e.snapshot.Load()
	if len(entries) != 1 {
		t.Fatalf("snapshot has %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if len(entry.NormalizedKeywords) != len(entry.Keywords) {
		t.Fatalf("normalized keywords = %v, want one per keyword", entry.NormalizedKeywords)
	}
	norm := textproc.NewNormalizer()
	for i, kw := range entry.Keywords {
		if entry.NormalizedKeywords[i] != norm.Normalize(kw) {
			t.Errorf("normalized keyword %d = %q, want %q", i, entry.NormalizedKeywords[i], norm.Normalize(kw))
		}
	}
}

func TestConcurrentAskLeavesStoreUntouched(t *testing.T) {
	e := newTestEngine(t, nil)
	before := e.store.Categories()

	var wg sync.WaitGroup
	questions := []string{"课程什么时候开始", "作业怎么提交", "怎么查看成绩", "", "考试范围是什么"}
	for i := 0; i < 20; i++ {
		q := questions[i%len(questions)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Ask(q, 3)
		}()
	}
	wg.Wait()

	after := e.store.Categories()
	if len(after) != len(before) {
		t.Fatalf("category count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("category order changed at %d: %s -> %s", i, before[i], after[i])
		}
	}
}

func TestTrainInsufficientData(t *testing.T) {
	// Two entries synthesize 4 examples, below the floor of 10.
	e := newTestEngine(t, kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "考试时间", Answer: "a"},
		{Question: "作业要求", Answer: "b"},
	}}))

	_, err := e.Train(models.TrainRequest{Epochs: 1})
	if !models.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if e.NeuralActive() {
		t.Error("failed training must not change the active strategy")
	}
}

func TestTrainActivatesNeuralAndPersists(t *testing.T) {
	doc := kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "考试时间", Answer: "a"},
		{Question: "考试地点", Answer: "b"},
		{Question: "作业要求", Answer: "c"},
		{Question: "成绩查询", Answer: "d"},
	}})
	e := newTestEngine(t, doc)
	if e.NeuralActive() {
		t.Fatal("engine should start lexical-only")
	}

	res, err := e.Train(models.TrainRequest{Epochs: 1, BatchSize: 4, Seed: 42})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !e.NeuralActive() {
		t.Error("successful training must activate the neural strategy")
	}
	if res.ArtifactID == "" {
		t.Error("train result missing artifact ID")
	}
	if _, err := os.Stat(neural.WeightsPath(e.cfg.ModelDir, e.cfg.ModelBase)); err != nil {
		t.Errorf("weights file not persisted: %v", err)
	}
	if _, err := os.Stat(neural.VocabPath(e.cfg.ModelDir, e.cfg.ModelBase)); err != nil {
		t.Errorf("vocabulary file not persisted: %v", err)
	}

	// Scoring must keep working in neural mode.
	out := e.Ask("考试时间", 3)
	if out.Confidence < 0 || out.Confidence > 1 {
		t.Errorf("confidence %f out of range", out.Confidence)
	}
}

func TestReloadModelActivatesPersistedArtifact(t *testing.T) {
	doc := kbWith(models.Category{Name: "c", QAPairs: []models.QAPair{
		{Question: "考试时间", Answer: "a"},
		{Question: "考试地点", Answer: "b"},
		{Question: "作业要求", Answer: "c"},
		{Question: "成绩查询", Answer: "d"},
	}})
	e := newTestEngine(t, doc)
	if _, err := e.Train(models.TrainRequest{Epochs: 1, BatchSize: 4, Seed: 42}); err != nil {
		t.Fatal(err)
	}

	// A second engine over the same model dir picks the artifact up at
	// construction.
	second, err := New(e.store, textproc.NewNormalizer(), e.cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if !second.NeuralActive() {
		t.Error("persisted artifact should activate neural mode at construction")
	}
}

func TestDegradedModeOnMissingArtifact(t *testing.T) {
	e := newTestEngine(t, nil)
	if e.NeuralActive() {
		t.Error("missing artifact must leave the engine lexical-only")
	}
	if e.StrategyName() != "lexical" {
		t.Errorf("strategy = %s, want lexical", e.StrategyName())
	}
}

func TestDegradedModeOnCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	store, err := kb.Open(filepath.Join(dir, "kb.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	modelDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"qa_model.gob", "qa_model_vocab.gob"} {
		if err := os.WriteFile(filepath.Join(modelDir, name), []byte("garbage"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	e, err := New(store, textproc.NewNormalizer(), Config{ModelDir: modelDir}, nil)
	if err != nil {
		t.Fatalf("corrupt artifact must not fail construction: %v", err)
	}
	defer e.Close()
	if e.NeuralActive() {
		t.Error("corrupt artifact must leave the engine lexical-only")
	}
}
