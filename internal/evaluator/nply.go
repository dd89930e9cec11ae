package evaluator

import (
	"fmt"

	"github.com/bungogood/td-gammon/internal/perspective"
	"github.com/bungogood/td-gammon/pkg/gammon"
)

// ValueFunc scores a batch of positions, each from its own mover's view.
// Values lie in [0, 1]. Implementations must evaluate the whole batch in one
// call; search issues one call per expanded node.
type ValueFunc interface {
	Forward(positions []gammon.Position) []float64
}

// ResultValue returns 1 for any win and 0 for any loss.
func ResultValue(r gammon.Result) float64 {
	if r.IsWin() {
		return 1
	}
	return 0
}

// DefaultDepth is the search depth used when none is configured.
const DefaultDepth = 2

// NPly is an expectimax search over wrapped states bottomed out by a value
// function.
type NPly[S gammon.State[S]] struct {
	value ValueFunc
	depth int
}

// NewNPly returns a search of the given depth in plies. depth must be at least 1.
func NewNPly[S gammon.State[S]](value ValueFunc, depth int) (*NPly[S], error) {
	if depth < 1 {
		return nil, fmt.Errorf("n-ply search depth must be at least 1, got %d", depth)
	}
	return &NPly[S]{value: value, depth: depth}, nil
}

// Depth returns the configured search depth.
func (e *NPly[S]) Depth() int { return e.depth }

// ValueFunc returns the function the search bottoms out in.
func (e *NPly[S]) ValueFunc() ValueFunc { return e.value }

// BestPosition runs the search from s with the maximizing polarity.
func (e *NPly[S]) BestPosition(s perspective.State[S], d gammon.Dice) perspective.State[S] {
	best, _ := e.search(e.depth, true, s, d)
	return best
}

// minimizes reports whether the node selects by minimum value. Values are
// always read from the same fixed side, so the choice depends on both the
// turn flag and the polarity: min when they agree, max otherwise.
func minimizes(turn, maxer bool) bool {
	return turn == maxer
}

func (e *NPly[S]) search(depth int, maxer bool, s perspective.State[S], d gammon.Dice) (perspective.State[S], float64) {
	if depth <= 1 {
		return e.leaf(maxer, s, d)
	}

	succ := successors(s, d)
	values := make([]float64, len(succ))
	for i, n := range succ {
		if gs := n.RawGameState(); gs.Over {
			v := ResultValue(gs.Result)
			if s.Turn {
				v = 1 - v
			}
			values[i] = v
			continue
		}
		var total, weight float64
		for _, roll := range gammon.All21 {
			_, v := e.search(depth-1, !maxer, n, roll.Dice)
			total += v * roll.Weight
			weight += roll.Weight
		}
		values[i] = total / weight
	}

	best := argBest(values, minimizes(s.Turn, maxer))
	return succ[best], values[best]
}

// leaf scores every successor with one batched call. Successors are flipped
// first when the turn flag says the board is held by the other player.
func (e *NPly[S]) leaf(maxer bool, s perspective.State[S], d gammon.Dice) (perspective.State[S], float64) {
	succ := successors(s, d)
	batch := make([]gammon.Position, len(succ))
	for i, n := range succ {
		if s.Turn {
			batch[i] = n.Position()
		} else {
			batch[i] = n.Position().Flip()
		}
	}
	values := e.value.Forward(batch)
	if len(values) != len(batch) {
		panic(fmt.Sprintf("evaluator: value function returned %d values for %d positions", len(values), len(batch)))
	}

	best := argBest(values, minimizes(s.Turn, maxer))
	return succ[best], values[best]
}
