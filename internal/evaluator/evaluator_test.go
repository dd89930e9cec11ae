package evaluator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/bungogood/td-gammon/internal/perspective"
	"github.com/bungogood/td-gammon/internal/probabilities"
	"github.com/bungogood/td-gammon/pkg/gammon"
	"github.com/bungogood/td-gammon/pkg/hypergammon"
)

// syntheticDatabase builds a one-checker table with win-only records drawn from rng.
func syntheticDatabase(t *testing.T, rng *rand.Rand) *Database {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < DatabaseSize(1); i++ {
		w := rng.Float64()
		if err := EncodeRecord(&buf, probabilities.Probabilities{WinN: w, LoseN: 1 - w}); err != nil {
			t.Fatalf("encode record: %v", err)
		}
	}
	db, err := LoadDatabase(&buf, 1)
	if err != nil {
		t.Fatalf("load synthetic database: %v", err)
	}
	return db
}

// samplePositions plays random one-checker games and returns the positions seen.
func samplePositions(rng *rand.Rand, games int) []hypergammon.State {
	dice := gammon.NewDiceSource(rng)
	var out []hypergammon.State
	for g := 0; g < games; g++ {
		s := hypergammon.NewVariant(1)
		for s.GameState() == gammon.Ongoing {
			out = append(out, s)
			succ := s.PossiblePositions(dice.Roll())
			s = succ[rng.Intn(len(succ))]
		}
	}
	return out
}

func TestRandomPicksLegalSuccessor(t *testing.T) {
	e := NewRandom[hypergammon.State](rand.New(rand.NewSource(3)))
	s := hypergammon.New()
	d := gammon.NewDice(5, 2)
	legal := make(map[hypergammon.State]bool)
	for _, n := range s.PossiblePositions(d) {
		legal[n] = true
	}
	for i := 0; i < 50; i++ {
		if got := e.BestPosition(s, d); !legal[got] {
			t.Fatalf("random evaluator returned an illegal successor %s", got)
		}
	}
}

func TestRandomIsReproducible(t *testing.T) {
	a := NewRandom[hypergammon.State](rand.New(rand.NewSource(11)))
	b := NewRandom[hypergammon.State](rand.New(rand.NewSource(11)))
	s := hypergammon.New()
	for _, wd := range gammon.All21 {
		if a.BestPosition(s, wd.Dice) != b.BestPosition(s, wd.Dice) {
			t.Fatalf("same seed chose differently for %s", wd.Dice)
		}
	}
}

func TestLoadDatabaseRejectsWrongCount(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 10; i++ {
		EncodeRecord(&buf, probabilities.Probabilities{WinN: 0.5, LoseN: 0.5})
	}
	db, err := LoadDatabase(&buf, 1)
	if !errors.Is(err, ErrDatabaseUnavailable) {
		t.Fatalf("expected ErrDatabaseUnavailable, got %v", err)
	}
	if db != nil {
		t.Error("database should not be returned on failure")
	}
}

func TestLoadDatabaseRejectsTruncatedRecord(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < DatabaseSize(1); i++ {
		EncodeRecord(&buf, probabilities.Probabilities{WinN: 0.5, LoseN: 0.5})
	}
	buf.Truncate(buf.Len() - 3)
	if _, err := LoadDatabase(&buf, 1); !errors.Is(err, ErrDatabaseUnavailable) {
		t.Fatalf("expected ErrDatabaseUnavailable, got %v", err)
	}
}

func TestLoadDatabaseRejectsExtraRecords(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < DatabaseSize(1)+1; i++ {
		EncodeRecord(&buf, probabilities.Probabilities{WinN: 0.5, LoseN: 0.5})
	}
	if _, err := LoadDatabase(&buf, 1); !errors.Is(err, ErrDatabaseUnavailable) {
		t.Fatalf("expected ErrDatabaseUnavailable, got %v", err)
	}
}

func TestLoadDatabaseRejectsMalformedRecords(t *testing.T) {
	tests := []struct {
		name   string
		record [5]float32
	}{
		{"nan", [5]float32{float32(math.NaN()), 0, 0, 0, 0}},
		{"win below win gammon", [5]float32{0.2, 0.5, 0, 0, 0}},
		{"negative backgammon", [5]float32{0.5, 0.1, -0.3, 0, 0}},
		{"over one", [5]float32{0.8, 0, 0, 0.6, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			for i := 0; i < DatabaseSize(1); i++ {
				if i == 7 {
					for _, v := range tt.record {
						binary.Write(&buf, binary.LittleEndian, v)
					}
					continue
				}
				EncodeRecord(&buf, probabilities.Probabilities{WinN: 0.5, LoseN: 0.5})
			}
			db, err := LoadDatabase(&buf, 1)
			if !errors.Is(err, ErrDatabaseUnavailable) {
				t.Fatalf("expected ErrDatabaseUnavailable, got %v", err)
			}
			if db != nil {
				t.Error("database should not be returned on failure")
			}
		})
	}
}

func TestLoadDatabaseFileMissing(t *testing.T) {
	if _, err := LoadDatabaseFile(t.TempDir()+"/missing.db", 3); !errors.Is(err, ErrDatabaseUnavailable) {
		t.Fatalf("expected ErrDatabaseUnavailable, got %v", err)
	}
}

func TestDatabaseRecordDecoding(t *testing.T) {
	want := probabilities.Probabilities{WinN: 0.25, WinG: 0.125, WinB: 0.125, LoseN: 0.25, LoseG: 0.125, LoseB: 0.125}
	var buf bytes.Buffer
	for i := 0; i < DatabaseSize(1); i++ {
		EncodeRecord(&buf, want)
	}
	db, err := LoadDatabase(&buf, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if db.Len() != 676 {
		t.Errorf("len = %d, want 676", db.Len())
	}
	if got := db.Probabilities(42); got != want {
		t.Errorf("decoded %s, want %s", got, want)
	}
}

func TestDatabaseEvaluatorMinimizesEquity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	db := syntheticDatabase(t, rng)
	e := NewDatabaseEvaluator[hypergammon.State](db)
	dice := gammon.NewDiceSource(rng)
	for _, s := range samplePositions(rng, 20) {
		d := dice.Roll()
		got := e.BestPosition(s, d)
		for _, n := range s.PossiblePositions(d) {
			if db.Probabilities(n.DBHash()).Equity() < db.Probabilities(got.DBHash()).Equity() {
				t.Fatalf("successor %s has lower equity than the chosen %s", n, got)
			}
		}
	}
}

func TestNPlyRejectsZeroDepth(t *testing.T) {
	if _, err := NewNPly[hypergammon.State](nil, 0); err == nil {
		t.Fatal("expected an error for depth 0")
	}
}

func TestNPlyDepthOneMatchesFlatRanking(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	db := syntheticDatabase(t, rng)
	flat := NewDatabaseEvaluator[hypergammon.State](db)
	search, err := NewNPly[hypergammon.State](db, 1)
	if err != nil {
		t.Fatalf("new n-ply: %v", err)
	}
	dice := gammon.NewDiceSource(rng)
	for _, s := range samplePositions(rng, 20) {
		d := dice.Roll()
		want := flat.BestPosition(s, d)
		got := search.BestPosition(perspective.New(s), d)
		if got.Raw != want {
			t.Fatalf("depth-1 search chose %s, flat ranking chose %s", got.Raw, want)
		}
		if got.Turn {
			t.Fatal("chosen successor should pass the turn")
		}
	}
}

func TestNPlyDepthOneOffTurnMaximizesFlippedValue(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	db := syntheticDatabase(t, rng)
	search, _ := NewNPly[hypergammon.State](db, 1)
	dice := gammon.NewDiceSource(rng)
	for _, s := range samplePositions(rng, 20) {
		d := dice.Roll()
		wrapped := perspective.State[hypergammon.State]{Raw: s, Turn: false}
		got := search.BestPosition(wrapped, d)
		best := db.Forward([]gammon.Position{got.Position().Flip()})[0]
		for _, n := range s.PossiblePositions(d) {
			if v := db.Forward([]gammon.Position{n.Position().Flip()})[0]; v > best {
				t.Fatalf("successor %s scores %v above the chosen %v", n, v, best)
			}
		}
	}
}

type constantValue float64

func (c constantValue) Forward(positions []gammon.Position) []float64 {
	out := make([]float64, len(positions))
	for i := range out {
		out[i] = float64(c)
	}
	return out
}

// pipLead scores a position by the mover's pip lead, so values depend on
// how far each roll carried the checkers.
type pipLead struct{}

func (pipLead) Forward(positions []gammon.Position) []float64 {
	out := make([]float64, len(positions))
	for i, p := range positions {
		own, opp := p.Pips()
		out[i] = 0.5 + float64(opp-own)/200
	}
	return out
}

func TestNPlyDepthTwoAveragesRolls(t *testing.T) {
	e, _ := NewNPly[hypergammon.State](pipLead{}, 2)
	s := perspective.New(hypergammon.New())
	d := gammon.NewDice(3, 1)

	// Weighted mean over the 21 rolls for every successor, then the
	// minimum since the turn flag and the polarity agree at the root.
	want, unweighted := 2.0, 2.0
	for _, n := range s.PossiblePositions(d) {
		var total, plain float64
		for _, roll := range gammon.All21 {
			_, v := e.leaf(false, n, roll.Dice)
			total += v * roll.Weight
			plain += v
		}
		if v := total / 36; v < want {
			want = v
		}
		if v := plain / 21; v < unweighted {
			unweighted = v
		}
	}
	if math.Abs(want-unweighted) < 1e-9 {
		t.Fatalf("value function does not separate weighted and unweighted means (%v)", want)
	}

	_, got := e.search(2, true, s, d)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("depth-2 value = %v, want weighted mean %v (unweighted %v)", got, want, unweighted)
	}
}

func TestNPlyTerminalLeafValue(t *testing.T) {
	var p gammon.Position
	p.Board[1] = 1
	p.Board[20] = -1
	s := perspective.New(hypergammon.FromPosition(p))
	e, _ := NewNPly[hypergammon.State](constantValue(0.5), 2)

	best, v := e.search(2, true, s, gammon.NewDice(6, 5))
	if !best.RawGameState().Over {
		t.Fatalf("expected the bear-off to end the game, got %s", best.Raw)
	}
	if v != 1 {
		t.Errorf("terminal value with the turn flag = %v, want 1", v)
	}

	s.Turn = false
	if _, v := e.search(2, true, s, gammon.NewDice(6, 5)); v != 0 {
		t.Errorf("terminal value without the turn flag = %v, want 0", v)
	}
}

func TestMinimizesTable(t *testing.T) {
	tests := []struct {
		turn, maxer, min bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, true},
	}
	for _, tt := range tests {
		if got := minimizes(tt.turn, tt.maxer); got != tt.min {
			t.Errorf("minimizes(%v, %v) = %v, want %v", tt.turn, tt.maxer, got, tt.min)
		}
	}
}

func TestResultValue(t *testing.T) {
	for r := gammon.WinNormal; r <= gammon.LoseBackgammon; r++ {
		want := 0.0
		if r.IsWin() {
			want = 1
		}
		if got := ResultValue(r); got != want {
			t.Errorf("ResultValue(%s) = %v, want %v", r, got, want)
		}
	}
}

func TestEmptySuccessorsPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a state without successors")
		}
	}()
	NewRandom[stuck](rand.New(rand.NewSource(1))).BestPosition(stuck{}, gammon.NewDice(1, 1))
}

// stuck is a broken state that reports no legal successors.
type stuck struct{}

func (stuck) PossiblePositions(gammon.Dice) []stuck { return nil }
func (stuck) GameState() gammon.GameState          { return gammon.Ongoing }
func (stuck) Flip() stuck                          { return stuck{} }
func (stuck) Position() gammon.Position            { return gammon.Position{} }
func (stuck) DBHash() int                          { return 0 }
func (stuck) NumCheckers() int                     { return 1 }
