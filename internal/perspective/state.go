// Package perspective tracks which of the two original players owns a
// position while the underlying rules engine keeps flipping the board.
package perspective

import "github.com/bungogood/td-gammon/pkg/gammon"

// State pairs a raw game state with a turn flag. Turn is true when the raw
// state is seen from the player who moved first (player A).
//
// The raw state always looks like the mover's view, so flipping alone cannot
// tell the two players apart; Turn is the only record of who is who.
type State[S gammon.State[S]] struct {
	Raw  S
	Turn bool
}

// New wraps the start position with Turn set.
func New[S gammon.State[S]](start S) State[S] {
	return State[S]{Raw: start, Turn: true}
}

// Starter returns a constructor for wrapped start positions.
func Starter[S gammon.State[S]](newGame func() S) func() State[S] {
	return func() State[S] { return New(newGame()) }
}

// PossiblePositions returns the legal successors with the turn flag inverted.
func (s State[S]) PossiblePositions(d gammon.Dice) []State[S] {
	raw := s.Raw.PossiblePositions(d)
	out := make([]State[S], len(raw))
	for i, r := range raw {
		out[i] = State[S]{Raw: r, Turn: !s.Turn}
	}
	return out
}

// GameState reports the result for the side to move. It is the same as RawGameState.
func (s State[S]) GameState() gammon.GameState {
	return s.RawGameState()
}

// RawGameState reports the result from the current mover's point of view.
func (s State[S]) RawGameState() gammon.GameState {
	return s.Raw.GameState()
}

// ResolvedGameState reports the result from player A's point of view.
func (s State[S]) ResolvedGameState() gammon.GameState {
	if s.Turn {
		return s.Raw.GameState()
	}
	return s.Raw.Flip().GameState()
}

// Canonical returns the raw state as player A sees it.
func (s State[S]) Canonical() S {
	if s.Turn {
		return s.Raw
	}
	return s.Raw.Flip()
}

// Flip inverts both the board and the turn flag.
func (s State[S]) Flip() State[S] {
	return State[S]{Raw: s.Raw.Flip(), Turn: !s.Turn}
}

// Position returns the raw state's canonical snapshot.
func (s State[S]) Position() gammon.Position { return s.Raw.Position() }

// DBHash delegates to the raw state.
func (s State[S]) DBHash() int { return s.Raw.DBHash() }

// NumCheckers delegates to the raw state.
func (s State[S]) NumCheckers() int { return s.Raw.NumCheckers() }
