package valuenet

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/bungogood/td-gammon/pkg/gammon"
	"gonum.org/v1/gonum/mat"
)

// DefaultHidden is the hidden layer size used when none is configured.
const DefaultHidden = 160

// Params is one weight matrix and bias vector per layer. Weights[l] has one
// row per output unit and one column per input unit.
type Params struct {
	Weights []*mat.Dense
	Biases  []*mat.VecDense
}

// ZerosLike returns zeroed parameters of the same shape.
func (p Params) ZerosLike() Params {
	z := Params{
		Weights: make([]*mat.Dense, len(p.Weights)),
		Biases:  make([]*mat.VecDense, len(p.Biases)),
	}
	for l, w := range p.Weights {
		r, c := w.Dims()
		z.Weights[l] = mat.NewDense(r, c, nil)
		z.Biases[l] = mat.NewVecDense(p.Biases[l].Len(), nil)
	}
	return z
}

// Clone deep copies p.
func (p Params) Clone() Params {
	c := Params{
		Weights: make([]*mat.Dense, len(p.Weights)),
		Biases:  make([]*mat.VecDense, len(p.Biases)),
	}
	for l := range p.Weights {
		c.Weights[l] = mat.DenseCopyOf(p.Weights[l])
		c.Biases[l] = mat.VecDenseCopyOf(p.Biases[l])
	}
	return c
}

// Network is a fully connected sigmoid network with a single output: the
// estimated probability that the position's mover wins.
//
// Forward only reads the parameters, so concurrent Forward calls are safe as
// long as nothing updates the network meanwhile. Use Clone to hand a frozen
// copy to another goroutine.
type Network struct {
	Params
}

// NewNetwork returns a network with NumInputs inputs, the given hidden layer
// sizes and one output. Weights are drawn uniformly from ±1/sqrt(fan-in).
func NewNetwork(rng *rand.Rand, hidden ...int) (*Network, error) {
	if len(hidden) == 0 {
		hidden = []int{DefaultHidden}
	}
	sizes := append(append([]int{NumInputs}, hidden...), 1)
	for _, n := range hidden {
		if n < 1 {
			return nil, fmt.Errorf("hidden layer size must be positive, got %d", n)
		}
	}

	var p Params
	for l := 1; l < len(sizes); l++ {
		in, out := sizes[l-1], sizes[l]
		bound := 1 / math.Sqrt(float64(in))
		w := make([]float64, out*in)
		for i := range w {
			w[i] = (2*rng.Float64() - 1) * bound
		}
		b := make([]float64, out)
		for i := range b {
			b[i] = (2*rng.Float64() - 1) * bound
		}
		p.Weights = append(p.Weights, mat.NewDense(out, in, w))
		p.Biases = append(p.Biases, mat.NewVecDense(out, b))
	}
	return &Network{Params: p}, nil
}

// Hidden returns the hidden layer sizes.
func (n *Network) Hidden() []int {
	out := make([]int, 0, len(n.Weights)-1)
	for _, w := range n.Weights[:len(n.Weights)-1] {
		r, _ := w.Dims()
		out = append(out, r)
	}
	return out
}

// Clone returns an independent copy.
func (n *Network) Clone() *Network {
	return &Network{Params: n.Params.Clone()}
}

// Forward evaluates the batch with one matrix product per layer.
func (n *Network) Forward(positions []gammon.Position) []float64 {
	if len(positions) == 0 {
		return nil
	}
	data := make([]float64, len(positions)*NumInputs)
	for i, p := range positions {
		InputsInto(p, data[i*NumInputs:(i+1)*NumInputs])
	}

	var x mat.Matrix = mat.NewDense(len(positions), NumInputs, data)
	for l, w := range n.Weights {
		b := n.Biases[l]
		var y mat.Dense
		y.Mul(x, w.T())
		y.Apply(func(_, j int, v float64) float64 {
			return sigmoid(v + b.AtVec(j))
		}, &y)
		x = &y
	}

	out := make([]float64, len(positions))
	for i := range out {
		out[i] = x.At(i, 0)
	}
	return out
}

// Value evaluates a single position.
func (n *Network) Value(p gammon.Position) float64 {
	return n.Forward([]gammon.Position{p})[0]
}

// Gradient returns the value of p and the gradient of that value with
// respect to every parameter.
func (n *Network) Gradient(p gammon.Position) (float64, Params) {
	acts := make([]*mat.VecDense, len(n.Weights)+1)
	acts[0] = mat.NewVecDense(NumInputs, Inputs(p))
	for l, w := range n.Weights {
		r, _ := w.Dims()
		z := mat.NewVecDense(r, nil)
		z.MulVec(w, acts[l])
		z.AddVec(z, n.Biases[l])
		for i := 0; i < r; i++ {
			z.SetVec(i, sigmoid(z.AtVec(i)))
		}
		acts[l+1] = z
	}

	grad := n.ZerosLike()
	out := acts[len(acts)-1]
	delta := mat.NewVecDense(out.Len(), nil)
	for i := 0; i < out.Len(); i++ {
		a := out.AtVec(i)
		delta.SetVec(i, a*(1-a))
	}

	for l := len(n.Weights) - 1; l >= 0; l-- {
		grad.Weights[l].Outer(1, delta, acts[l])
		grad.Biases[l].CopyVec(delta)
		if l == 0 {
			break
		}
		_, c := n.Weights[l].Dims()
		prev := mat.NewVecDense(c, nil)
		prev.MulVec(n.Weights[l].T(), delta)
		for i := 0; i < c; i++ {
			a := acts[l].AtVec(i)
			prev.SetVec(i, prev.AtVec(i)*a*(1-a))
		}
		delta = prev
	}

	return out.AtVec(0), grad
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
