package neural

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// rnnCell is a single-direction tanh recurrent cell:
// h_t = tanh(x_t·Wx + h_prev·Wh + b).
type rnnCell struct {
	wx, wh, b *param
	hidden    int
}

func newRNNCell(name string, inDim, hidden int, rng *rand.Rand) *rnnCell {
	return &rnnCell{
		wx:     newParam(name+".wx", inDim, hidden, rng, 1.0/math.Sqrt(float64(inDim))),
		wh:     newParam(name+".wh", hidden, hidden, rng, 1.0/math.Sqrt(float64(hidden))),
		b:      newZeroParam(name+".b", 1, hidden),
		hidden: hidden,
	}
}

// run computes hidden states for every position of in (T×inDim). When
// reverse is true the recurrence consumes positions last to first. Row t of
// the result is always the state at position t.
func (c *rnnCell) run(in *mat.Dense, reverse bool) *mat.Dense {
	T, _ := in.Dims()
	H := c.hidden

	var xw mat.Dense
	xw.Mul(in, c.wx.val)

	h := mat.NewDense(T, H, nil)
	prev := make([]float64, H)
	hw := make([]float64, H)
	bias := c.b.val.RawRowView(0)
	for step := 0; step < T; step++ {
		t := step
		if reverse {
			t = T - 1 - step
		}
		mulRowMat(hw, prev, c.wh.val)
		row := h.RawRowView(t)
		xwRow := xw.RawRowView(t)
		for j := 0; j < H; j++ {
			row[j] = math.Tanh(xwRow[j] + hw[j] + bias[j])
		}
		prev = row
	}
	return h
}

// backward runs backpropagation through time for one direction. h must be
// the output of run for the same in and reverse flag.
// Parameter gradients accumulate in place; the input gradient is added to
// dIn.
func (c *rnnCell) backward(in, h, dOut *mat.Dense, reverse bool, dIn *mat.Dense) {
	T, _ := in.Dims()
	H := c.hidden

	dA := mat.NewDense(T, H, nil)
	dcarry := make([]float64, H)
	for step := T - 1; step >= 0; step-- {
		t := step
		if reverse {
			t = T - 1 - step
		}
		hRow := h.RawRowView(t)
		doRow := dOut.RawRowView(t)
		da := dA.RawRowView(t)
		for j := 0; j < H; j++ {
			dh := doRow[j] + dcarry[j]
			da[j] = dh * (1 - hRow[j]*hRow[j])
		}
		if step > 0 {
			tp := t - 1
			if reverse {
				tp = t + 1
			}
			addOuter(c.wh.grad, h.RawRowView(tp), da)
			mulRowMatT(dcarry, da, c.wh.val)
		}
	}

	var wxg mat.Dense
	wxg.Mul(in.T(), dA)
	c.wx.grad.Add(c.wx.grad, &wxg)
	addColSums(c.b.grad, dA)

	var dx mat.Dense
	dx.Mul(dA, c.wx.val.T())
	dIn.Add(dIn, &dx)
}

// rnnLayer is one bidirectional layer: independent forward and backward
// cells over the same input with per-position state concatenation.
type rnnLayer struct {
	fwd, bwd *rnnCell
}

func newRNNLayer(name string, inDim, hidden int, rng *rand.Rand) *rnnLayer {
	return &rnnLayer{
		fwd: newRNNCell(name+".fwd", inDim, hidden, rng),
		bwd: newRNNCell(name+".bwd", inDim, hidden, rng),
	}
}

// run returns the T×2H concatenated output plus per-direction states needed
// for the backward pass.
func (l *rnnLayer) run(in *mat.Dense) (out, hFwd, hBwd *mat.Dense) {
	hFwd = l.fwd.run(in, false)
	hBwd = l.bwd.run(in, true)
	return concatCols(hFwd, hBwd), hFwd, hBwd
}

// backward returns the gradient with respect to the layer input.
func (l *rnnLayer) backward(in, hFwd, hBwd, dOut *mat.Dense) *mat.Dense {
	T, inDim := in.Dims()
	H := l.fwd.hidden
	dIn := mat.NewDense(T, inDim, nil)
	dFwd := dOut.Slice(0, T, 0, H).(*mat.Dense)
	dBwd := dOut.Slice(0, T, H, 2*H).(*mat.Dense)
	l.fwd.backward(in, hFwd, dFwd, false, dIn)
	l.bwd.backward(in, hBwd, dBwd, true, dIn)
	return dIn
}
