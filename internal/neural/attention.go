package neural

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// attention is multi-head scaled dot-product self-attention over the encoder
// output. Queries, keys, and values all come from the same input; no padding
// or causal mask is applied to the score matrix.
type attention struct {
	dim     int
	heads   int
	headDim int

	wq, bq *param
	wk, bk *param
	wv, bv *param
	wo, bo *param
}

func newAttention(dim, heads int, rng *rand.Rand) *attention {
	scale := 1.0 / math.Sqrt(float64(dim))
	return &attention{
		dim:     dim,
		heads:   heads,
		headDim: dim / heads,
		wq:      newParam("attn.wq", dim, dim, rng, scale),
		bq:      newZeroParam("attn.bq", 1, dim),
		wk:      newParam("attn.wk", dim, dim, rng, scale),
		bk:      newZeroParam("attn.bk", 1, dim),
		wv:      newParam("attn.wv", dim, dim, rng, scale),
		bv:      newZeroParam("attn.bv", 1, dim),
		wo:      newParam("attn.wo", dim, dim, rng, scale),
		bo:      newZeroParam("attn.bo", 1, dim),
	}
}

// attnCache holds the activations needed to backpropagate through one
// attention application.
type attnCache struct {
	in      *mat.Dense
	q, k, v *mat.Dense
	weights []*mat.Dense // per-head softmax output, T×T
	concat  *mat.Dense   // head outputs before the output projection
}

// run applies self-attention to in (T×dim) and returns the projected output
// with the cache for backward.
func (a *attention) run(in *mat.Dense) (*mat.Dense, *attnCache) {
	T, _ := in.Dims()
	q := affine(in, a.wq, a.bq)
	k := affine(in, a.wk, a.bk)
	v := affine(in, a.wv, a.bv)

	concat := mat.NewDense(T, a.dim, nil)
	weights := make([]*mat.Dense, a.heads)
	invScale := 1.0 / math.Sqrt(float64(a.headDim))
	for h := 0; h < a.heads; h++ {
		lo, hi := h*a.headDim, (h+1)*a.headDim
		qh := q.Slice(0, T, lo, hi).(*mat.Dense)
		kh := k.Slice(0, T, lo, hi).(*mat.Dense)
		vh := v.Slice(0, T, lo, hi).(*mat.Dense)

		scores := &mat.Dense{}
		scores.Mul(qh, kh.T())
		scores.Scale(invScale, scores)
		softmaxRows(scores)

		var outH mat.Dense
		outH.Mul(scores, vh)
		copyCols(concat, lo, &outH)
		weights[h] = scores
	}

	out := affine(concat, a.wo, a.bo)
	return out, &attnCache{in: in, q: q, k: k, v: v, weights: weights, concat: concat}
}

// backward propagates dOut through the block, accumulating parameter
// gradients, and returns the gradient with respect to the block input.
func (a *attention) backward(c *attnCache, dOut *mat.Dense) *mat.Dense {
	T, _ := dOut.Dims()

	accumAffineGrads(a.wo, a.bo, c.concat, dOut)
	var dConcat mat.Dense
	dConcat.Mul(dOut, a.wo.val.T())

	dq := mat.NewDense(T, a.dim, nil)
	dk := mat.NewDense(T, a.dim, nil)
	dv := mat.NewDense(T, a.dim, nil)
	invScale := 1.0 / math.Sqrt(float64(a.headDim))
	for h := 0; h < a.heads; h++ {
		lo, hi := h*a.headDim, (h+1)*a.headDim
		qh := c.q.Slice(0, T, lo, hi).(*mat.Dense)
		kh := c.k.Slice(0, T, lo, hi).(*mat.Dense)
		vh := c.v.Slice(0, T, lo, hi).(*mat.Dense)
		weights := c.weights[h]
		dOutH := dConcat.Slice(0, T, lo, hi).(*mat.Dense)

		var dWeights mat.Dense
		dWeights.Mul(dOutH, vh.T())
		var dVh mat.Dense
		dVh.Mul(weights.T(), dOutH)

		softmaxBackwardRows(&dWeights, weights)
		dWeights.Scale(invScale, &dWeights)

		var dQh mat.Dense
		dQh.Mul(&dWeights, kh)
		var dKh mat.Dense
		dKh.Mul(dWeights.T(), qh)

		addCols(dq, lo, &dQh)
		addCols(dk, lo, &dKh)
		addCols(dv, lo, &dVh)
	}

	accumAffineGrads(a.wq, a.bq, c.in, dq)
	accumAffineGrads(a.wk, a.bk, c.in, dk)
	accumAffineGrads(a.wv, a.bv, c.in, dv)

	var dIn, tmp mat.Dense
	dIn.Mul(dq, a.wq.val.T())
	tmp.Mul(dk, a.wk.val.T())
	dIn.Add(&dIn, &tmp)
	tmp.Mul(dv, a.wv.val.T())
	dIn.Add(&dIn, &tmp)
	return &dIn
}

// affine computes in·w with the 1×c bias broadcast over rows.
func affine(in *mat.Dense, w, b *param) *mat.Dense {
	var out mat.Dense
	out.Mul(in, w.val)
	r, c := out.Dims()
	bias := b.val.RawRowView(0)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] += bias[j]
		}
	}
	return &out
}

// accumAffineGrads accumulates w.grad += inᵀ·dOut and b.grad += column sums
// of dOut.
func accumAffineGrads(w, b *param, in, dOut *mat.Dense) {
	var wg mat.Dense
	wg.Mul(in.T(), dOut)
	w.grad.Add(w.grad, &wg)
	addColSums(b.grad, dOut)
}

// softmaxRows applies a numerically stable softmax to each row in place.
func softmaxRows(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		maxV := row[0]
		for j := 1; j < c; j++ {
			if row[j] > maxV {
				maxV = row[j]
			}
		}
		var sum float64
		for j := 0; j < c; j++ {
			row[j] = math.Exp(row[j] - maxV)
			sum += row[j]
		}
		for j := 0; j < c; j++ {
			row[j] /= sum
		}
	}
}

// softmaxBackwardRows converts dA (gradient with respect to the softmax
// output) into the gradient with respect to the softmax input, in place,
// using the cached softmax output s: ds = s ⊙ (dA − rowsum(dA ⊙ s)).
func softmaxBackwardRows(dA, s *mat.Dense) {
	r, c := dA.Dims()
	for i := 0; i < r; i++ {
		dRow := dA.RawRowView(i)
		sRow := s.RawRowView(i)
		var dot float64
		for j := 0; j < c; j++ {
			dot += dRow[j] * sRow[j]
		}
		for j := 0; j < c; j++ {
			dRow[j] = sRow[j] * (dRow[j] - dot)
		}
	}
}
