package benchmark

import (
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/kb"
	"github.com/hyperjump/kotae/internal/lexical"
	"github.com/hyperjump/kotae/internal/textproc"
)

func newBenchEngine(b *testing.B) *engine.Engine {
	b.Helper()
	dir := b.TempDir()
	store, err := kb.Open(filepath.Join(dir, "kb.json"), nil)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { store.Close() })
	eng, err := engine.New(store, textproc.NewNormalizer(), engine.Config{
		ModelDir:  filepath.Join(dir, "models"),
		ModelBase: "qa_model",
	}, nil)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(eng.Close)
	return eng
}

func BenchmarkAsk(b *testing.B) {
	eng := newBenchEngine(b)
	// Rotating questions keeps the result cache out of the hot path.
	questions := []string{
		"课程什么时候开始？",
		"作业什么时候交？",
		"期末考试是什么时候？",
		"成绩什么时候公布？",
		"课件在哪里下载？",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = eng.Ask(questions[i%len(questions)], 3)
	}
}

func BenchmarkAskCached(b *testing.B) {
	eng := newBenchEngine(b)
	_ = eng.Ask("课程什么时候开始？", 3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = eng.Ask("课程什么时候开始？", 3)
	}
}

func BenchmarkNormalizerTokens(b *testing.B) {
	n := textproc.NewNormalizer()
	for i := 0; i < b.N; i++ {
		_ = n.Tokens("这门课程的期末考试 covers the final exam schedule 安排在什么时候？")
	}
}

func BenchmarkLexicalSimilarity(b *testing.B) {
	scorer := lexical.NewScorer()
	a := []string{"课", "程", "什", "么", "时", "候", "开", "始"}
	c := []string{"课", "程", "开", "始", "时", "间", "安", "排"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Similarity(a, c)
	}
}

func BenchmarkKeywordScore(b *testing.B) {
	scorer := lexical.NewScorer()
	keywords := []string{"开始", "时间", "开学", "什么时候"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.KeywordScore("课程什么时候开始上课", keywords)
	}
}
