package gammon

import (
	"fmt"
	"strings"
)

// BarIndex is the slot used for the bar in a Side.
const BarIndex = 24

// Position is a canonical board snapshot from the mover's point of view.
// Board[i] holds point i+1: positive counts are the mover's checkers,
// negative counts the opponent's. The mover travels from point 24 towards
// point 1 and bears off from points 1-6.
type Position struct {
	Board [24]int8
	XBar  uint8
	OBar  uint8
	XOff  uint8
	OOff  uint8
}

// Flip returns the same board seen by the opponent.
func (p Position) Flip() Position {
	var f Position
	for i := 0; i < 24; i++ {
		f.Board[i] = -p.Board[23-i]
	}
	f.XBar, f.OBar = p.OBar, p.XBar
	f.XOff, f.OOff = p.OOff, p.XOff
	return f
}

// Pip returns the signed count on point (1-24).
func (p Position) Pip(point int) int8 {
	return p.Board[point-1]
}

// Side holds one player's checkers from their own point of view: slots 0-23
// are points 1-24, slot 24 is the bar.
type Side [25]uint8

// Sides splits the board into the mover's and the opponent's own views.
func (p Position) Sides() (mover, opponent Side) {
	for i, n := range p.Board {
		switch {
		case n > 0:
			mover[i] = uint8(n)
		case n < 0:
			opponent[23-i] = uint8(-n)
		}
	}
	mover[BarIndex] = p.XBar
	opponent[BarIndex] = p.OBar
	return mover, opponent
}

// Checkers returns how many checkers the mover and opponent still have in play.
func (p Position) Checkers() (mover, opponent int) {
	for _, n := range p.Board {
		if n > 0 {
			mover += int(n)
		} else {
			opponent += int(-n)
		}
	}
	return mover + int(p.XBar), opponent + int(p.OBar)
}

// Pips returns the pip counts of the mover and the opponent.
func (p Position) Pips() (mover, opponent int) {
	for i, n := range p.Board {
		if n > 0 {
			mover += int(n) * (i + 1)
		} else if n < 0 {
			opponent += int(-n) * (24 - i)
		}
	}
	return mover + 25*int(p.XBar), opponent + 25*int(p.OBar)
}

// DBHash returns the dense two-sided index of p for games with n checkers
// per side: rank(mover) * MultisetCombinations(26, n) + rank(opponent).
func (p Position) DBHash(n int) int {
	mover, opponent := p.Sides()
	size := MultisetCombinations(26, n)
	return PositionIndex(mover[:], n)*size + PositionIndex(opponent[:], n)
}

func (p Position) String() string {
	var b strings.Builder
	for i := 23; i >= 0; i-- {
		n := p.Board[i]
		switch {
		case n > 0:
			fmt.Fprintf(&b, "x%d", n)
		case n < 0:
			fmt.Fprintf(&b, "o%d", -n)
		default:
			b.WriteByte('.')
		}
		if i > 0 {
			b.WriteByte(' ')
		}
	}
	fmt.Fprintf(&b, " | bar x%d o%d | off x%d o%d", p.XBar, p.OBar, p.XOff, p.OOff)
	return b.String()
}
