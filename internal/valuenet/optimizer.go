package valuenet

import "gonum.org/v1/gonum/floats"

// Momentum is stochastic gradient descent with momentum and no dampening.
// Each Step folds the gradient into the velocity, v = decay*v + g, then moves
// the weights by w -= scale*v. Passing scale = -lr*td makes the velocity act
// as an eligibility trace with trace decay equal to decay.
type Momentum struct {
	decay    float64
	velocity Params
}

// NewMomentum returns an optimizer with zero velocity shaped like net.
func NewMomentum(net *Network, decay float64) *Momentum {
	return &Momentum{decay: decay, velocity: net.ZerosLike()}
}

// Step applies one update to net.
func (m *Momentum) Step(net *Network, grad Params, scale float64) {
	for l := range net.Weights {
		step(net.Weights[l].RawMatrix().Data, m.velocity.Weights[l].RawMatrix().Data, grad.Weights[l].RawMatrix().Data, m.decay, scale)
		step(net.Biases[l].RawVector().Data, m.velocity.Biases[l].RawVector().Data, grad.Biases[l].RawVector().Data, m.decay, scale)
	}
}

func step(w, v, g []float64, decay, scale float64) {
	floats.Scale(decay, v)
	floats.Add(v, g)
	floats.AddScaled(w, -scale, v)
}
