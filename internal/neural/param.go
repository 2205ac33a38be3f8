package neural

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// param is one trainable tensor with its accumulated gradient. Parameters
// are plain dense matrices; vectors are 1×n.
type param struct {
	name string
	val  *mat.Dense
	grad *mat.Dense
}

// newParam returns a parameter with entries drawn uniformly from
// [-scale, scale].
func newParam(name string, rows, cols int, rng *rand.Rand, scale float64) *param {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * scale
	}
	return &param{
		name: name,
		val:  mat.NewDense(rows, cols, data),
		grad: mat.NewDense(rows, cols, nil),
	}
}

// newZeroParam returns a zero-initialized parameter. Used for biases.
func newZeroParam(name string, rows, cols int) *param {
	return &param{
		name: name,
		val:  mat.NewDense(rows, cols, nil),
		grad: mat.NewDense(rows, cols, nil),
	}
}

func (p *param) zeroGrad() {
	data := p.grad.RawMatrix().Data
	for i := range data {
		data[i] = 0
	}
}

// mulRowMat computes dst = row · m for a row vector of length r and an r×c
// matrix. dst must have length c.
func mulRowMat(dst, row []float64, m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		dst[j] = 0
	}
	for i := 0; i < r; i++ {
		v := row[i]
		if v == 0 {
			continue
		}
		mRow := m.RawRowView(i)
		for j := 0; j < c; j++ {
			dst[j] += v * mRow[j]
		}
	}
}

// mulRowMatT computes dst = row · mᵀ for a row vector of length c and an
// r×c matrix. dst must have length r.
func mulRowMatT(dst, row []float64, m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		mRow := m.RawRowView(i)
		var sum float64
		for j := 0; j < c; j++ {
			sum += mRow[j] * row[j]
		}
		dst[i] = sum
	}
}

// addOuter accumulates grad += x ⊗ y into an r×c gradient matrix, where x
// has length r and y length c.
func addOuter(grad *mat.Dense, x, y []float64) {
	for i, xv := range x {
		if xv == 0 {
			continue
		}
		row := grad.RawRowView(i)
		for j, yv := range y {
			row[j] += xv * yv
		}
	}
}

// addColSums accumulates the column sums of m into a 1×c destination.
func addColSums(dst *mat.Dense, m *mat.Dense) {
	r, c := m.Dims()
	out := dst.RawRowView(0)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < c; j++ {
			out[j] += row[j]
		}
	}
}

// concatCols returns [a | b] for two matrices with equal row counts.
func concatCols(a, b *mat.Dense) *mat.Dense {
	r, ca := a.Dims()
	_, cb := b.Dims()
	out := mat.NewDense(r, ca+cb, nil)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		copy(row[:ca], a.RawRowView(i))
		copy(row[ca:], b.RawRowView(i))
	}
	return out
}

// copyCols copies src into dst starting at column lo.
func copyCols(dst *mat.Dense, lo int, src *mat.Dense) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		copy(dst.RawRowView(i)[lo:lo+c], src.RawRowView(i))
	}
}

// addCols accumulates src into dst starting at column lo.
func addCols(dst *mat.Dense, lo int, src *mat.Dense) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		dRow := dst.RawRowView(i)[lo : lo+c]
		sRow := src.RawRowView(i)
		for j := 0; j < c; j++ {
			dRow[j] += sRow[j]
		}
	}
}
