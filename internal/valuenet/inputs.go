// Package valuenet holds the learned value functions: a trainable sigmoid
// network over gonum matrices and a forward-only ONNX runner.
package valuenet

import "github.com/bungogood/td-gammon/pkg/gammon"

// Input layout. Each side gets four units per point and four for the bar,
// followed by one borne-off fraction per side.
const (
	UnitsPerPoint = 4
	SideInputs    = 25 * UnitsPerPoint
	OffInputs     = 2
	NumInputs     = 2*SideInputs + OffInputs // 202
)

// pointUnits encodes the checker count on a point: one-hot for 1-3, then an
// overflow unit growing by one half per extra checker.
var pointUnits = [16][UnitsPerPoint]float64{
	{0, 0, 0, 0},
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
	{0, 0, 1, 0.5},
	{0, 0, 1, 1},
	{0, 0, 1, 1.5},
	{0, 0, 1, 2},
	{0, 0, 1, 2.5},
	{0, 0, 1, 3},
	{0, 0, 1, 3.5},
	{0, 0, 1, 4},
	{0, 0, 1, 4.5},
	{0, 0, 1, 5},
	{0, 0, 1, 5.5},
	{0, 0, 1, 6},
}

// barUnits is cumulative rather than one-hot.
var barUnits = [16][UnitsPerPoint]float64{
	{0, 0, 0, 0},
	{1, 0, 0, 0},
	{1, 1, 0, 0},
	{1, 1, 1, 0},
	{1, 1, 1, 0.5},
	{1, 1, 1, 1},
	{1, 1, 1, 1.5},
	{1, 1, 1, 2},
	{1, 1, 1, 2.5},
	{1, 1, 1, 3},
	{1, 1, 1, 3.5},
	{1, 1, 1, 4},
	{1, 1, 1, 4.5},
	{1, 1, 1, 5},
	{1, 1, 1, 5.5},
	{1, 1, 1, 6},
}

// Inputs returns the feature vector of p from its mover's view.
func Inputs(p gammon.Position) []float64 {
	out := make([]float64, NumInputs)
	InputsInto(p, out)
	return out
}

// InputsInto writes the feature vector of p into dst, which must hold at
// least NumInputs values.
func InputsInto(p gammon.Position, dst []float64) {
	mover, opponent := p.Sides()
	encodeSide(mover, dst[:SideInputs])
	encodeSide(opponent, dst[SideInputs:2*SideInputs])

	x, o := p.Checkers()
	dst[2*SideInputs] = offFraction(p.XOff, x)
	dst[2*SideInputs+1] = offFraction(p.OOff, o)
}

func encodeSide(side gammon.Side, dst []float64) {
	for i := 0; i < gammon.BarIndex; i++ {
		copy(dst[i*UnitsPerPoint:], pointUnits[clamp(side[i])][:])
	}
	copy(dst[gammon.BarIndex*UnitsPerPoint:], barUnits[clamp(side[gammon.BarIndex])][:])
}

func offFraction(off uint8, inPlay int) float64 {
	total := int(off) + inPlay
	if total == 0 {
		return 0
	}
	return float64(off) / float64(total)
}

func clamp(n uint8) uint8 {
	if n > 15 {
		return 15
	}
	return n
}
