// Package neural implements the trainable text similarity model: embedding
// lookup, a stacked bidirectional tanh recurrent encoder, multi-head
// self-attention, masked mean pooling, and a feed-forward similarity head
// with a sigmoid output. Training uses Adam on mean squared error.
package neural

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/hyperjump/kotae/internal/vocab"
)

// ErrNotInitialized is returned when prediction is attempted without a
// constructed model and vocabulary.
var ErrNotInitialized = errors.New("model not initialized")

// Config fixes the model architecture. All fields participate in artifact
// serialization, so a loaded model always reconstructs the network it was
// trained as.
type Config struct {
	VocabSize int
	EmbedDim  int
	HiddenDim int
	NumLayers int
	NumHeads  int
	Dropout   float64
	MaxLen    int
}

// DefaultConfig returns the standard architecture for a vocabulary of
// vocabSize tokens: 128-dim embeddings, two bidirectional layers of 256
// hidden units, four attention heads, dropout 0.3, sequences of 100 tokens.
func DefaultConfig(vocabSize int) Config {
	return Config{
		VocabSize: vocabSize,
		EmbedDim:  128,
		HiddenDim: 256,
		NumLayers: 2,
		NumHeads:  4,
		Dropout:   0.3,
		MaxLen:    100,
	}
}

func (c Config) validate() error {
	if c.VocabSize < 2 {
		return fmt.Errorf("vocab size %d below reserved entry count", c.VocabSize)
	}
	if c.EmbedDim < 1 || c.NumLayers < 1 || c.MaxLen < 1 {
		return errors.New("embed dim, layer count, and max length must be positive")
	}
	if c.HiddenDim < 2 {
		return errors.New("hidden dim must be at least 2")
	}
	if c.NumHeads < 1 || (2*c.HiddenDim)%c.NumHeads != 0 {
		return fmt.Errorf("head count %d must divide encoder dim %d", c.NumHeads, 2*c.HiddenDim)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout %f out of range [0, 1)", c.Dropout)
	}
	return nil
}

// Model is the trainable similarity network. Prediction is safe for
// concurrent use; training requires exclusive access.
type Model struct {
	cfg       Config
	embedding *param
	layers    []*rnnLayer
	attn      *attention
	ff        *ffHead

	rng      *rand.Rand
	training bool
}

// NewModel constructs a model with parameters initialized from seed. The
// embedding row for the padding index is zero and stays zero through
// training.
func NewModel(cfg Config, seed int64) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	rng := rand.New(rand.NewSource(seed))
	m := &Model{cfg: cfg, rng: rng}

	m.embedding = newParam("embedding", cfg.VocabSize, cfg.EmbedDim, rng, 0.1)
	padRow := m.embedding.val.RawRowView(vocab.PadIndex)
	for j := range padRow {
		padRow[j] = 0
	}

	inDim := cfg.EmbedDim
	for l := 0; l < cfg.NumLayers; l++ {
		m.layers = append(m.layers, newRNNLayer(fmt.Sprintf("rnn.%d", l), inDim, cfg.HiddenDim, rng))
		inDim = 2 * cfg.HiddenDim
	}

	encDim := 2 * cfg.HiddenDim
	m.attn = newAttention(encDim, cfg.NumHeads, rng)
	m.ff = newFFHead(2*encDim, cfg.HiddenDim, cfg.HiddenDim/2, cfg.Dropout, rng)
	return m, nil
}

// Config returns the architecture the model was built with.
func (m *Model) Config() Config {
	return m.cfg
}

// Predict returns the similarity score in [0, 1] for two index-encoded
// sequences. Runs in evaluation mode: no dropout, padding excluded from
// pooling.
func (m *Model) Predict(idsA, idsB []int) (float64, error) {
	if m == nil || m.embedding == nil {
		return 0, ErrNotInitialized
	}
	if len(idsA) == 0 || len(idsB) == 0 {
		return 0, errors.New("empty input sequence")
	}
	p, _ := m.forward(idsA, idsB)
	return p, nil
}

// seqCache holds one sequence's forward activations for backpropagation.
type seqCache struct {
	ids       []int
	mask      []bool
	layerIns  []*mat.Dense
	hFwd      []*mat.Dense
	hBwd      []*mat.Dense
	dropMasks []*mat.Dense
	attn      *attnCache
	pooled    []float64
	poolCount float64
	poolMask  []bool
}

type pairCache struct {
	a, b *seqCache
	head *ffCache
}

func (m *Model) forward(idsA, idsB []int) (float64, *pairCache) {
	ca := m.encode(idsA)
	cb := m.encode(idsB)
	p, hc := m.ff.run(ca.pooled, cb.pooled, m.training, m.rng)
	return p, &pairCache{a: ca, b: cb, head: hc}
}

// encode runs the shared encoder over one sequence: embedding, stacked
// bidirectional recurrence with inter-layer dropout, attention, pooling.
func (m *Model) encode(ids []int) *seqCache {
	clean := make([]int, len(ids))
	for i, id := range ids {
		if id < 0 || id >= m.cfg.VocabSize {
			id = vocab.UnkIndex
		}
		clean[i] = id
	}
	T := len(clean)
	c := &seqCache{ids: clean, mask: nonPadMask(clean)}

	x := mat.NewDense(T, m.cfg.EmbedDim, nil)
	for t, id := range clean {
		copy(x.RawRowView(t), m.embedding.val.RawRowView(id))
	}

	in := x
	for l, layer := range m.layers {
		c.layerIns = append(c.layerIns, in)
		out, hF, hB := layer.run(in)
		c.hFwd = append(c.hFwd, hF)
		c.hBwd = append(c.hBwd, hB)
		if m.training && m.cfg.Dropout > 0 && l < len(m.layers)-1 {
			mask := m.dropMask(T, 2*m.cfg.HiddenDim)
			out.MulElem(out, mask)
			c.dropMasks = append(c.dropMasks, mask)
		} else {
			c.dropMasks = append(c.dropMasks, nil)
		}
		in = out
	}

	attnOut, ac := m.attn.run(in)
	c.attn = ac
	c.pooled, c.poolCount, c.poolMask = maskedMean(attnOut, c.mask)
	return c
}

func (m *Model) backward(pc *pairCache, dPred float64) {
	dA, dB := m.ff.backward(pc.head, dPred)
	m.encodeBackward(pc.a, dA)
	m.encodeBackward(pc.b, dB)
}

func (m *Model) encodeBackward(c *seqCache, dPooled []float64) {
	T := len(c.ids)
	dAttnOut := maskedMeanBackward(dPooled, T, c.poolCount, c.poolMask)
	dIn := m.attn.backward(c.attn, dAttnOut)

	for l := len(m.layers) - 1; l >= 0; l-- {
		if mask := c.dropMasks[l]; mask != nil {
			dIn.MulElem(dIn, mask)
		}
		dIn = m.layers[l].backward(c.layerIns[l], c.hFwd[l], c.hBwd[l], dIn)
	}

	for t, id := range c.ids {
		if id == vocab.PadIndex {
			continue
		}
		row := m.embedding.grad.RawRowView(id)
		dxRow := dIn.RawRowView(t)
		for j := range row {
			row[j] += dxRow[j]
		}
	}
}

func (m *Model) dropMask(rows, cols int) *mat.Dense {
	keep := 1 - m.cfg.Dropout
	scale := 1 / keep
	data := make([]float64, rows*cols)
	for i := range data {
		if m.rng.Float64() < keep {
			data[i] = scale
		}
	}
	return mat.NewDense(rows, cols, data)
}

// params returns every trainable tensor in a fixed order. Optimizer moments
// and artifact serialization both rely on this order being stable.
func (m *Model) params() []*param {
	ps := []*param{m.embedding}
	for _, l := range m.layers {
		ps = append(ps, l.fwd.wx, l.fwd.wh, l.fwd.b, l.bwd.wx, l.bwd.wh, l.bwd.b)
	}
	ps = append(ps, m.attn.wq, m.attn.bq, m.attn.wk, m.attn.bk, m.attn.wv, m.attn.bv, m.attn.wo, m.attn.bo)
	ps = append(ps, m.ff.w1, m.ff.b1, m.ff.w2, m.ff.b2, m.ff.w3, m.ff.b3)
	return ps
}

func (m *Model) zeroGrads() {
	for _, p := range m.params() {
		p.zeroGrad()
	}
}

// nonPadMask marks positions holding real tokens.
func nonPadMask(ids []int) []bool {
	mask := make([]bool, len(ids))
	for i, id := range ids {
		mask[i] = id != vocab.PadIndex
	}
	return mask
}
