package gammon

// Result is the outcome of a finished game from one side's point of view.
type Result uint8

const (
	WinNormal Result = iota
	WinGammon
	WinBackgammon
	LoseNormal
	LoseGammon
	LoseBackgammon
)

// NumResults is the number of distinct results.
const NumResults = 6

// Reverse returns the same result seen from the other side.
func (r Result) Reverse() Result {
	switch r {
	case WinNormal:
		return LoseNormal
	case WinGammon:
		return LoseGammon
	case WinBackgammon:
		return LoseBackgammon
	case LoseNormal:
		return WinNormal
	case LoseGammon:
		return WinGammon
	default:
		return WinBackgammon
	}
}

// IsWin reports whether r is one of the three win results.
func (r Result) IsWin() bool {
	return r <= WinBackgammon
}

// Points returns the signed cubeless value of the result: 1, 2 or 3 for a
// normal, gammon or backgammon win, negated for losses.
func (r Result) Points() int {
	switch r {
	case WinNormal:
		return 1
	case WinGammon:
		return 2
	case WinBackgammon:
		return 3
	case LoseNormal:
		return -1
	case LoseGammon:
		return -2
	default:
		return -3
	}
}

func (r Result) String() string {
	switch r {
	case WinNormal:
		return "win"
	case WinGammon:
		return "win-gammon"
	case WinBackgammon:
		return "win-backgammon"
	case LoseNormal:
		return "lose"
	case LoseGammon:
		return "lose-gammon"
	case LoseBackgammon:
		return "lose-backgammon"
	default:
		return "unknown"
	}
}

// GameState is either ongoing or over with a result for the side to move.
type GameState struct {
	Over   bool
	Result Result
}

// Ongoing is the state of an unfinished game.
var Ongoing = GameState{}

// GameOver returns a finished state carrying r.
func GameOver(r Result) GameState {
	return GameState{Over: true, Result: r}
}

func (g GameState) String() string {
	if !g.Over {
		return "ongoing"
	}
	return "over(" + g.Result.String() + ")"
}

// State is a two-player board seen from the side to move. Implementations are
// plain values; every method returns a new value rather than mutating.
//
// PossiblePositions returns the legal successors, each already expressed from
// the next mover's point of view. It is never empty while the game is ongoing:
// a roll with no legal move yields the single pass successor.
type State[S any] interface {
	PossiblePositions(d Dice) []S
	GameState() GameState
	Flip() S
	Position() Position
	DBHash() int
	NumCheckers() int
}
