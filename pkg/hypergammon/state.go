// Package hypergammon implements the three-checker backgammon variant.
package hypergammon

import (
	"fmt"

	"github.com/bungogood/td-gammon/pkg/gammon"
)

// NumCheckers is the number of checkers each side plays with in standard hypergammon.
const NumCheckers = 3

// State is a hypergammon board from the side to move.
type State struct {
	pos gammon.Position
	n   uint8
}

// New returns the standard starting position: each side has one checker on
// its 24, 23 and 22 points.
func New() State {
	return NewVariant(NumCheckers)
}

// NewVariant returns the starting position of the variant with n checkers per
// side (1 to 3), placed on the 24, 23 and 22 points in that order.
func NewVariant(n int) State {
	if n < 1 || n > 3 {
		panic(fmt.Sprintf("hypergammon: unsupported checker count %d", n))
	}
	var p gammon.Position
	for i := 0; i < n; i++ {
		p.Board[23-i] = 1
		p.Board[i] = -1
	}
	return State{pos: p, n: uint8(n)}
}

// FromPosition wraps a position. The checker count is taken from the mover's
// checkers in play and borne off; both sides must have the same count.
func FromPosition(p gammon.Position) State {
	x, _ := p.Checkers()
	return State{pos: p, n: uint8(x) + p.XOff}
}

// Position returns the canonical board snapshot.
func (s State) Position() gammon.Position { return s.pos }

// Flip returns the board seen by the opponent.
func (s State) Flip() State { return State{pos: s.pos.Flip(), n: s.n} }

// NumCheckers returns the number of checkers per side.
func (s State) NumCheckers() int { return int(s.n) }

// DBHash returns the dense index of the position in a two-sided database.
func (s State) DBHash() int { return s.pos.DBHash(int(s.n)) }

// GameState classifies the position for the side to move.
func (s State) GameState() gammon.GameState {
	p := s.pos
	switch {
	case p.XOff == s.n:
		return gammon.GameOver(winResult(p))
	case p.OOff == s.n:
		return gammon.GameOver(winResult(p.Flip()).Reverse())
	default:
		return gammon.Ongoing
	}
}

// winResult grades a win by the mover, who has borne off every checker.
func winResult(p gammon.Position) gammon.Result {
	if p.OOff > 0 {
		return gammon.WinNormal
	}
	if p.OBar > 0 {
		return gammon.WinBackgammon
	}
	for i := 0; i < 6; i++ {
		if p.Board[i] < 0 {
			return gammon.WinBackgammon
		}
	}
	return gammon.WinGammon
}

// PossiblePositions returns the distinct legal successors for d, each flipped
// to the next mover's view. A roll with no legal move yields the pass.
func (s State) PossiblePositions(d gammon.Dice) []State {
	positions := successors(s.pos, d)
	states := make([]State, len(positions))
	for i, p := range positions {
		states[i] = State{pos: p.Flip(), n: s.n}
	}
	return states
}

func (s State) String() string {
	return s.pos.String()
}
