package neural

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/vocab"
)

// Tensor is one named parameter matrix in row-major order.
type Tensor struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// Artifact is the on-disk form of a trained model: identifying metadata,
// the architecture, and every parameter tensor by name.
type Artifact struct {
	ID        string
	TrainedAt time.Time
	Config    Config
	Params    []Tensor
}

// Meta identifies a persisted artifact.
type Meta struct {
	ID        string
	TrainedAt time.Time
}

// WeightsPath returns the weights file for artifact base under dir.
func WeightsPath(dir, base string) string {
	return filepath.Join(dir, base+".gob")
}

// VocabPath returns the linked vocabulary file for artifact base under dir.
func VocabPath(dir, base string) string {
	return filepath.Join(dir, base+"_vocab.gob")
}

// Save writes the model weights and vocabulary as two linked files sharing
// base under dir, each written atomically via temp file and rename. The
// returned Meta carries a fresh artifact ID and is valid even when the
// write fails, so callers can still activate the in-memory model.
func Save(dir, base string, m *Model, v *vocab.Vocabulary) (Meta, error) {
	meta := Meta{ID: uuid.New().String(), TrainedAt: time.Now().UTC()}
	if m == nil || v == nil {
		return meta, errors.New("nil model or vocabulary")
	}
	if v.Size() != m.cfg.VocabSize {
		return meta, fmt.Errorf("vocabulary size %d does not match embedding rows %d", v.Size(), m.cfg.VocabSize)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return meta, fmt.Errorf("create model dir: %w", err)
	}
	if err := v.Save(VocabPath(dir, base)); err != nil {
		return meta, fmt.Errorf("write vocabulary: %w", err)
	}

	art := Artifact{ID: meta.ID, TrainedAt: meta.TrainedAt, Config: m.cfg}
	for _, p := range m.params() {
		r, c := p.val.Dims()
		data := make([]float64, r*c)
		copy(data, p.val.RawMatrix().Data)
		art.Params = append(art.Params, Tensor{Name: p.name, Rows: r, Cols: c, Data: data})
	}

	tmp, err := os.CreateTemp(dir, ".weights-*")
	if err != nil {
		return meta, fmt.Errorf("create temp weights file: %w", err)
	}
	if err := gob.NewEncoder(tmp).Encode(&art); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return meta, fmt.Errorf("encode weights: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return meta, fmt.Errorf("close temp weights file: %w", err)
	}
	if err := os.Rename(tmp.Name(), WeightsPath(dir, base)); err != nil {
		os.Remove(tmp.Name())
		return meta, fmt.Errorf("replace weights file: %w", err)
	}
	return meta, nil
}

// Load reads the weights and vocabulary files for base under dir and
// reconstructs the trained model. Both files must exist, every parameter
// must match the architecture, and the vocabulary size must match the
// embedding table.
func Load(dir, base string) (*Predictor, error) {
	v, err := vocab.Load(VocabPath(dir, base))
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	f, err := os.Open(WeightsPath(dir, base))
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}
	defer f.Close()
	var art Artifact
	if err := gob.NewDecoder(f).Decode(&art); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}

	if art.Config.VocabSize != v.Size() {
		return nil, fmt.Errorf("vocabulary size %d does not match model vocab size %d", v.Size(), art.Config.VocabSize)
	}
	m, err := NewModel(art.Config, 0)
	if err != nil {
		return nil, fmt.Errorf("rebuild model: %w", err)
	}

	byName := make(map[string]*param)
	for _, p := range m.params() {
		byName[p.name] = p
	}
	for _, tsr := range art.Params {
		p, ok := byName[tsr.Name]
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q in artifact", tsr.Name)
		}
		r, c := p.val.Dims()
		if r != tsr.Rows || c != tsr.Cols || len(tsr.Data) != r*c {
			return nil, fmt.Errorf("parameter %q has shape %dx%d, want %dx%d", tsr.Name, tsr.Rows, tsr.Cols, r, c)
		}
		copy(p.val.RawMatrix().Data, tsr.Data)
		delete(byName, tsr.Name)
	}
	if len(byName) != 0 {
		return nil, fmt.Errorf("artifact is missing %d parameters", len(byName))
	}

	return &Predictor{
		Model: m,
		Vocab: v,
		Meta:  Meta{ID: art.ID, TrainedAt: art.TrainedAt},
	}, nil
}

// Predictor pairs a trained model with the vocabulary it was trained on.
type Predictor struct {
	Model *Model
	Vocab *vocab.Vocabulary
	Meta  Meta
}

// Similarity encodes both normalized token sequences through the vocabulary
// and predicts their similarity. Either sequence being empty scores 0
// without running the model.
func (p *Predictor) Similarity(tokensA, tokensB []string) (float64, error) {
	if p == nil || p.Model == nil || p.Vocab == nil {
		return 0, ErrNotInitialized
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, nil
	}
	maxLen := p.Model.cfg.MaxLen
	return p.Model.Predict(p.Vocab.Encode(tokensA, maxLen), p.Vocab.Encode(tokensB, maxLen))
}
