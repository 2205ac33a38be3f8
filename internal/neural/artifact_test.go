package neural

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/hyperjump/kotae/internal/vocab"
)

func tinyVocab() *vocab.Vocabulary {
	return vocab.Build([][]string{
		{"考", "试", "时"},
		{"间", "地", "点"},
	}, 1)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	v := tinyVocab()
	cfg := tinyConfig()
	cfg.VocabSize = v.Size()
	m, err := NewModel(cfg, 21)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	meta, err := Save(dir, "qa_model", m, v)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.ID == "" {
		t.Error("artifact ID should not be empty")
	}
	if _, err := os.Stat(WeightsPath(dir, "qa_model")); err != nil {
		t.Errorf("weights file missing: %v", err)
	}
	if _, err := os.Stat(VocabPath(dir, "qa_model")); err != nil {
		t.Errorf("vocabulary file missing: %v", err)
	}

	loaded, err := Load(dir, "qa_model")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Meta.ID != meta.ID {
		t.Errorf("artifact ID %s, want %s", loaded.Meta.ID, meta.ID)
	}

	tokensA := []string{"考", "试"}
	tokensB := []string{"时", "间"}
	want, err := (&Predictor{Model: m, Vocab: v}).Similarity(tokensA, tokensB)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Similarity(tokensA, tokensB)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("prediction changed across save/load: %g vs %g", got, want)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, "qa_model"); err == nil {
		t.Fatal("expected error when no artifact exists")
	} else if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}

	// Vocabulary present but weights missing must still fail.
	v := tinyVocab()
	if err := v.Save(VocabPath(dir, "qa_model")); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, "qa_model"); err == nil {
		t.Error("expected error when weights file is missing")
	}
}

func TestLoadVocabSizeMismatch(t *testing.T) {
	v := tinyVocab()
	cfg := tinyConfig()
	cfg.VocabSize = v.Size()
	m, err := NewModel(cfg, 9)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if _, err := Save(dir, "qa_model", m, v); err != nil {
		t.Fatal(err)
	}

	// Overwrite the linked vocabulary with a differently sized one.
	other := vocab.Build([][]string{{"a", "b", "c", "d", "e", "f", "g"}}, 1)
	if err := other.Save(VocabPath(dir, "qa_model")); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, "qa_model"); err == nil {
		t.Error("expected error for vocabulary size mismatch")
	}
}

func TestSaveRejectsMismatchedVocab(t *testing.T) {
	v := tinyVocab()
	cfg := tinyConfig()
	cfg.VocabSize = v.Size() + 3
	m, err := NewModel(cfg, 9)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Save(t.TempDir(), "qa_model", m, v); err == nil {
		t.Error("expected error saving with mismatched vocabulary")
	}
}

func TestPredictorUninitialized(t *testing.T) {
	var p *Predictor
	if _, err := p.Similarity([]string{"a"}, []string{"b"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("nil predictor: got %v", err)
	}
	if _, err := (&Predictor{}).Similarity([]string{"a"}, []string{"b"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("empty predictor: got %v", err)
	}
}

func TestPredictorEmptyTokens(t *testing.T) {
	v := tinyVocab()
	cfg := tinyConfig()
	cfg.VocabSize = v.Size()
	m, err := NewModel(cfg, 2)
	if err != nil {
		t.Fatal(err)
	}
	p := &Predictor{Model: m, Vocab: v}
	got, err := p.Similarity(nil, []string{"考"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("empty tokens should score 0, got %f", got)
	}
}
