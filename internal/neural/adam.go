package neural

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sample is one encoded training pair with its target similarity.
type Sample struct {
	A, B  []int
	Label float64
}

// Adam drives gradient updates for one model with adaptive moments and
// bias correction.
type Adam struct {
	model  *Model
	params []*param
	m1, m2 []*mat.Dense

	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	step  int
}

// NewAdam returns an optimizer bound to the model's parameters with the
// standard moment decay rates.
func NewAdam(model *Model, lr float64) *Adam {
	params := model.params()
	o := &Adam{
		model:  model,
		params: params,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
	}
	for _, p := range params {
		r, c := p.val.Dims()
		o.m1 = append(o.m1, mat.NewDense(r, c, nil))
		o.m2 = append(o.m2, mat.NewDense(r, c, nil))
	}
	return o
}

// Step runs one forward and backward pass over the batch and applies a
// single bias-corrected parameter update. Returns the batch mean squared
// error. Gradients are averaged over the batch.
func (o *Adam) Step(batch []Sample) (float64, error) {
	if len(batch) == 0 {
		return 0, errors.New("empty batch")
	}
	m := o.model
	m.training = true
	defer func() { m.training = false }()
	m.zeroGrads()

	var loss float64
	n := float64(len(batch))
	for _, s := range batch {
		pred, cache := m.forward(s.A, s.B)
		diff := pred - s.Label
		loss += diff * diff
		m.backward(cache, 2*diff/n)
	}

	o.step++
	c1 := 1 - math.Pow(o.beta1, float64(o.step))
	c2 := 1 - math.Pow(o.beta2, float64(o.step))
	for i, p := range o.params {
		vals := p.val.RawMatrix().Data
		grads := p.grad.RawMatrix().Data
		m1 := o.m1[i].RawMatrix().Data
		m2 := o.m2[i].RawMatrix().Data
		for j := range vals {
			g := grads[j]
			m1[j] = o.beta1*m1[j] + (1-o.beta1)*g
			m2[j] = o.beta2*m2[j] + (1-o.beta2)*g*g
			vals[j] -= o.lr * (m1[j] / c1) / (math.Sqrt(m2[j]/c2) + o.eps)
		}
	}
	return loss / n, nil
}
