// Package evaluator chooses moves: given a position and a roll, each
// evaluator picks one of the legal successors.
package evaluator

import (
	"math/rand"

	"github.com/bungogood/td-gammon/pkg/gammon"
)

// Evaluator picks a successor of s for the roll d. Implementations panic if
// s has no legal successors; the rules engine never produces that while the
// game is ongoing.
type Evaluator[S any] interface {
	BestPosition(s S, d gammon.Dice) S
}

// Random picks uniformly among the legal successors.
type Random[S gammon.State[S]] struct {
	rng *rand.Rand
}

// NewRandom returns a Random evaluator drawing from rng. rng is not safe for
// concurrent use, so neither is the evaluator.
func NewRandom[S gammon.State[S]](rng *rand.Rand) *Random[S] {
	return &Random[S]{rng: rng}
}

// BestPosition returns a uniformly chosen successor.
func (e *Random[S]) BestPosition(s S, d gammon.Dice) S {
	succ := successors(s, d)
	return succ[e.rng.Intn(len(succ))]
}

func successors[S gammon.State[S]](s S, d gammon.Dice) []S {
	succ := s.PossiblePositions(d)
	if len(succ) == 0 {
		panic("evaluator: no legal successors for roll " + d.String())
	}
	return succ
}

// argBest returns the index of the smallest value, or the largest when
// minimize is false. The first of equal values wins.
func argBest(values []float64, minimize bool) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if minimize && values[i] < values[best] || !minimize && values[i] > values[best] {
			best = i
		}
	}
	return best
}
