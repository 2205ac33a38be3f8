package neural

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// maskedMean pools the T×D input rows into one D-vector. Positions where
// mask is false are excluded; a nil mask, or a mask with no true entries,
// averages every position. Returns the vector, the divisor used, and the
// mask actually applied (nil when it degraded to a plain mean).
func maskedMean(in *mat.Dense, mask []bool) ([]float64, float64, []bool) {
	T, D := in.Dims()
	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	if count == 0 {
		mask = nil
		count = T
	}
	pooled := make([]float64, D)
	for t := 0; t < T; t++ {
		if mask != nil && !mask[t] {
			continue
		}
		row := in.RawRowView(t)
		for j := 0; j < D; j++ {
			pooled[j] += row[j]
		}
	}
	inv := 1.0 / float64(count)
	for j := 0; j < D; j++ {
		pooled[j] *= inv
	}
	return pooled, float64(count), mask
}

// maskedMeanBackward spreads dPooled back over the contributing rows.
func maskedMeanBackward(dPooled []float64, T int, count float64, mask []bool) *mat.Dense {
	D := len(dPooled)
	dIn := mat.NewDense(T, D, nil)
	inv := 1.0 / count
	for t := 0; t < T; t++ {
		if mask != nil && !mask[t] {
			continue
		}
		row := dIn.RawRowView(t)
		for j := 0; j < D; j++ {
			row[j] = dPooled[j] * inv
		}
	}
	return dIn
}

// ffHead scores the concatenated pooled encodings of a sequence pair:
// three affine layers with ReLU and dropout between them, sigmoid on the
// scalar output.
type ffHead struct {
	w1, b1  *param
	w2, b2  *param
	w3, b3  *param
	dropout float64
}

func newFFHead(inDim, hidden1, hidden2 int, dropout float64, rng *rand.Rand) *ffHead {
	return &ffHead{
		w1:      newParam("fc1.w", inDim, hidden1, rng, 1.0/math.Sqrt(float64(inDim))),
		b1:      newZeroParam("fc1.b", 1, hidden1),
		w2:      newParam("fc2.w", hidden1, hidden2, rng, 1.0/math.Sqrt(float64(hidden1))),
		b2:      newZeroParam("fc2.b", 1, hidden2),
		w3:      newParam("fc3.w", hidden2, 1, rng, 1.0/math.Sqrt(float64(hidden2))),
		b3:      newZeroParam("fc3.b", 1, 1),
		dropout: dropout,
	}
}

// ffCache holds per-example head activations for backward.
type ffCache struct {
	in     []float64
	a1, m1 []float64 // post-ReLU activations and dropout mask (nil in eval)
	d1     []float64 // post-dropout values fed to the next layer
	a2, m2 []float64
	d2     []float64
	p      float64
}

// run scores the pooled pair. In training mode dropout noise is drawn from
// rng; in evaluation mode activations pass through unscaled.
func (h *ffHead) run(pooledA, pooledB []float64, training bool, rng *rand.Rand) (float64, *ffCache) {
	c := &ffCache{in: make([]float64, 0, len(pooledA)+len(pooledB))}
	c.in = append(append(c.in, pooledA...), pooledB...)

	c.a1 = affineVec(c.in, h.w1, h.b1)
	reluInPlace(c.a1)
	c.d1, c.m1 = dropoutVec(c.a1, h.dropout, training, rng)

	c.a2 = affineVec(c.d1, h.w2, h.b2)
	reluInPlace(c.a2)
	c.d2, c.m2 = dropoutVec(c.a2, h.dropout, training, rng)

	z3 := affineVec(c.d2, h.w3, h.b3)
	c.p = sigmoid(z3[0])
	return c.p, c
}

// backward takes d(loss)/d(prediction) and returns the gradients for the
// two pooled input vectors.
func (h *ffHead) backward(c *ffCache, dPred float64) (dA, dB []float64) {
	dz3 := dPred * c.p * (1 - c.p)

	addOuter(h.w3.grad, c.d2, []float64{dz3})
	h.b3.grad.Set(0, 0, h.b3.grad.At(0, 0)+dz3)

	dd2 := make([]float64, len(c.d2))
	for i := range dd2 {
		dd2[i] = dz3 * h.w3.val.At(i, 0)
	}
	dz2 := backDropReLU(dd2, c.m2, c.a2)

	addOuter(h.w2.grad, c.d1, dz2)
	addColSumsVec(h.b2.grad, dz2)
	dd1 := make([]float64, len(c.d1))
	mulRowMatT(dd1, dz2, h.w2.val)
	dz1 := backDropReLU(dd1, c.m1, c.a1)

	addOuter(h.w1.grad, c.in, dz1)
	addColSumsVec(h.b1.grad, dz1)
	dc := make([]float64, len(c.in))
	mulRowMatT(dc, dz1, h.w1.val)

	half := len(dc) / 2
	return dc[:half], dc[half:]
}

// backDropReLU chains the gradient through dropout then ReLU.
func backDropReLU(dd, mask, act []float64) []float64 {
	dz := make([]float64, len(dd))
	for i := range dd {
		g := dd[i]
		if mask != nil {
			g *= mask[i]
		}
		if act[i] <= 0 {
			g = 0
		}
		dz[i] = g
	}
	return dz
}

// affineVec computes x·w + b for a vector input.
func affineVec(x []float64, w, b *param) []float64 {
	_, c := w.val.Dims()
	out := make([]float64, c)
	mulRowMat(out, x, w.val)
	bias := b.val.RawRowView(0)
	for j := range out {
		out[j] += bias[j]
	}
	return out
}

func addColSumsVec(dst *mat.Dense, v []float64) {
	row := dst.RawRowView(0)
	for j := range v {
		row[j] += v[j]
	}
}

func reluInPlace(x []float64) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// dropoutVec applies inverted dropout: kept entries are scaled by
// 1/(1-rate) so evaluation needs no rescaling. In evaluation mode the input
// is returned as-is with a nil mask.
func dropoutVec(x []float64, rate float64, training bool, rng *rand.Rand) ([]float64, []float64) {
	if !training || rate <= 0 {
		return x, nil
	}
	keep := 1 - rate
	scale := 1 / keep
	out := make([]float64, len(x))
	mask := make([]float64, len(x))
	for i, v := range x {
		if rng.Float64() < keep {
			mask[i] = scale
			out[i] = v * scale
		}
	}
	return out, mask
}
