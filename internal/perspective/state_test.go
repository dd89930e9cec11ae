package perspective

import (
	"testing"

	"github.com/bungogood/td-gammon/pkg/gammon"
	"github.com/bungogood/td-gammon/pkg/hypergammon"
)

func TestNewStartsWithTurn(t *testing.T) {
	s := New(hypergammon.New())
	if !s.Turn {
		t.Fatal("new wrapped state should have Turn set")
	}
	if s.Canonical() != s.Raw {
		t.Error("canonical view of player A's turn should be the raw state")
	}
}

func TestSuccessorsInvertTurn(t *testing.T) {
	s := New(hypergammon.New())
	for _, n := range s.PossiblePositions(gammon.NewDice(3, 1)) {
		if n.Turn {
			t.Fatalf("successor kept the turn flag: %+v", n)
		}
		for _, nn := range n.PossiblePositions(gammon.NewDice(6, 5)) {
			if !nn.Turn {
				t.Fatalf("second successor should restore the turn flag")
			}
		}
	}
}

func TestResolvedGameState(t *testing.T) {
	// Player A has just borne off the last checker; the raw state is now
	// seen by player B, who has lost.
	lost := hypergammon.FromPosition(gammon.Position{OOff: 3, XOff: 1, Board: [24]int8{3: 2}})
	s := State[hypergammon.State]{Raw: lost, Turn: false}

	if got := s.RawGameState(); got != gammon.GameOver(gammon.LoseNormal) {
		t.Errorf("raw game state = %s, want lose", got)
	}
	if got := s.GameState(); got != s.RawGameState() {
		t.Errorf("GameState should match RawGameState, got %s", got)
	}
	if got := s.ResolvedGameState(); got != gammon.GameOver(gammon.WinNormal) {
		t.Errorf("resolved game state = %s, want win for player A", got)
	}

	s.Turn = true
	if got := s.ResolvedGameState(); got != gammon.GameOver(gammon.LoseNormal) {
		t.Errorf("resolved game state with turn = %s, want lose", got)
	}
}

func TestFlipTogglesTurn(t *testing.T) {
	s := New(hypergammon.New())
	f := s.Flip()
	if f.Turn {
		t.Error("flip should clear the turn flag")
	}
	if f.Flip() != s {
		t.Error("flipping twice should restore the state")
	}
	if f.Canonical() != s.Raw.Flip().Flip() {
		t.Error("canonical view should undo the flip")
	}
}
