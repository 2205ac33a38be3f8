package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/importer"
	"github.com/hyperjump/kotae/internal/kb"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/neural"
	"github.com/hyperjump/kotae/internal/textproc"
)

const e2eTopK = 5

func writeKnowledgeBase(t *testing.T, path string, doc models.KnowledgeBase) {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func newEngine(t *testing.T, dir string) (*engine.Engine, *kb.Store) {
	t.Helper()
	store, err := kb.Open(filepath.Join(dir, "kb.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	eng, err := engine.New(store, textproc.NewNormalizer(), engine.Config{
		ModelDir:  filepath.Join(dir, "models"),
		ModelBase: "qa_model",
		MaxSeqLen: 16,
		Arch:      &neural.Config{EmbedDim: 8, HiddenDim: 6, NumLayers: 1, NumHeads: 2, Dropout: 0},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Close)
	return eng, store
}

func runCorpusQueries(t *testing.T, eng *engine.Engine, corpus *Corpus) {
	t.Helper()
	for _, tc := range corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			result := eng.Ask(tc.Query, e2eTopK)
			if result.MatchedQuestion == nil {
				t.Fatalf("query %q: no match (answer %q)", tc.Query, result.Answer)
			}
			if *result.MatchedQuestion != tc.ExpectedQuestion {
				t.Errorf("query %q: matched %q, want %q", tc.Query, *result.MatchedQuestion, tc.ExpectedQuestion)
			}
			if result.Category == nil || *result.Category != tc.ExpectedCategory {
				t.Errorf("query %q: category %v, want %s", tc.Query, result.Category, tc.ExpectedCategory)
			}
			if result.Confidence <= 0.3 {
				t.Errorf("query %q: confidence %f should clear the acceptance threshold", tc.Query, result.Confidence)
			}
			if len(result.TopMatches) > e2eTopK {
				t.Errorf("query %q: %d candidates exceed the requested %d", tc.Query, len(result.TopMatches), e2eTopK)
			}
		})
	}
}

func TestE2E_ParaphrasedQuestions(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	writeKnowledgeBase(t, filepath.Join(dir, "kb.json"), corpus.ToKnowledgeBase())

	eng, _ := newEngine(t, dir)
	runCorpusQueries(t, eng, corpus)
}

// The full path from an xlsx upload to answered questions: import the corpus
// workbook into an empty knowledge base, then run the same paraphrase queries.
func TestE2E_ImportThenAsk(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	writeKnowledgeBase(t, filepath.Join(dir, "kb.json"), models.KnowledgeBase{})

	eng, store := newEngine(t, dir)
	if _, pairs := store.Counts(); pairs != 0 {
		t.Fatalf("knowledge base should start empty, has %d pairs", pairs)
	}

	workbook := filepath.Join(dir, "corpus.xlsx")
	if err := WriteWorkbook(workbook, corpus.Pairs); err != nil {
		t.Fatal(err)
	}
	report, err := importer.New(eng, nil).ImportFile(workbook)
	if err != nil {
		t.Fatal(err)
	}
	if report.Imported != corpus.TotalPairs || report.Skipped != 0 {
		t.Fatalf("import report = %+v, want %d imported", report, corpus.TotalPairs)
	}

	runCorpusQueries(t, eng, corpus)
}

// Training over the corpus must activate the neural strategy, persist the
// artifact, and keep the engine answering without errors.
func TestE2E_TrainAndReload(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	writeKnowledgeBase(t, filepath.Join(dir, "kb.json"), corpus.ToKnowledgeBase())

	eng, _ := newEngine(t, dir)
	result, err := eng.Train(models.TrainRequest{Epochs: 1, BatchSize: 8, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	if result.Examples < corpus.TotalPairs {
		t.Errorf("examples = %d, want at least one per pair", result.Examples)
	}
	if !eng.NeuralActive() {
		t.Fatal("neural strategy should be active after training")
	}

	for _, tc := range corpus.TestCases {
		result := eng.Ask(tc.Query, e2eTopK)
		if result.Answer == "" {
			t.Errorf("query %q: empty answer under the neural strategy", tc.Query)
		}
	}

	// A second engine over the same directory picks the artifact up at
	// construction.
	eng2, _ := newEngine(t, dir)
	if !eng2.NeuralActive() {
		t.Error("fresh engine should load the persisted artifact")
	}
}
