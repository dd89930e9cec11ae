// Package duel measures one evaluator against another with paired games
// that share their dice.
package duel

import (
	"context"
	"fmt"

	"github.com/bungogood/td-gammon/internal/evaluator"
	"github.com/bungogood/td-gammon/internal/probabilities"
	"github.com/bungogood/td-gammon/pkg/gammon"
	"github.com/rs/zerolog/log"
)

// DefaultProgressEvery is the round interval between progress reports.
const DefaultProgressEvery = 1000

// Progress is a running snapshot reported while a duel is played.
type Progress struct {
	Round   int
	Rounds  int
	Results probabilities.ResultCounter
}

// Probabilities returns the distribution so far, from evaluator 1's view.
func (p Progress) Probabilities() probabilities.Probabilities {
	return p.Results.Probabilities()
}

// Duel pits evaluator 1 against evaluator 2. All results are reported from
// evaluator 1's point of view.
type Duel[G gammon.State[G]] struct {
	e1, e2  evaluator.Evaluator[G]
	newGame func() G

	// ProgressEvery is the round interval for progress logs and callbacks.
	// Zero or less disables both.
	ProgressEvery int
	// OnProgress, if set, is called with every progress snapshot.
	OnProgress func(Progress)
}

// New returns a duel starting every game from newGame().
func New[G gammon.State[G]](e1, e2 evaluator.Evaluator[G], newGame func() G) *Duel[G] {
	return &Duel[G]{e1: e1, e2: e2, newGame: newGame, ProgressEvery: DefaultProgressEvery}
}

// Single plays two games on one dice sequence with the evaluators swapping
// who moves first, and returns a counter holding exactly the two results.
//
// Both games receive the same roll at each iteration. Game one is played by
// evaluator 2 on odd iterations and evaluator 1 on even ones; game two the
// other way round. A finished game is noticed on the iteration after its last
// move, when it is handed to the side that lost, so its result is reversed
// whenever that side is evaluator 2.
func (d *Duel[G]) Single(roller gammon.Roller) probabilities.ResultCounter {
	g1, g2 := d.newGame(), d.newGame()
	var done1, done2 bool
	var counter probabilities.ResultCounter

	for iter := 1; !(done1 && done2); iter++ {
		dice := roller.Roll()
		even := iter%2 == 0

		if gs := g1.GameState(); !gs.Over {
			if even {
				g1 = d.e1.BestPosition(g1, dice)
			} else {
				g1 = d.e2.BestPosition(g1, dice)
			}
		} else if !done1 {
			done1 = true
			if even {
				counter.Add(gs.Result)
			} else {
				counter.Add(gs.Result.Reverse())
			}
		}

		if gs := g2.GameState(); !gs.Over {
			if even {
				g2 = d.e2.BestPosition(g2, dice)
			} else {
				g2 = d.e1.BestPosition(g2, dice)
			}
		} else if !done2 {
			done2 = true
			if even {
				counter.Add(gs.Result.Reverse())
			} else {
				counter.Add(gs.Result)
			}
		}
	}

	if n := counter.Sum(); n != 2 {
		panic(fmt.Sprintf("duel: paired game recorded %d results, want 2", n))
	}
	return counter
}

// Play runs rounds paired games and returns the combined results. It stops
// at a round boundary when ctx is cancelled, returning the partial tallies
// with ctx.Err().
func (d *Duel[G]) Play(ctx context.Context, rounds int, roller gammon.Roller) (probabilities.ResultCounter, error) {
	var results probabilities.ResultCounter
	for round := 1; round <= rounds; round++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = results.Combine(d.Single(roller))

		if d.ProgressEvery > 0 && (round%d.ProgressEvery == 0 || round == rounds) {
			p := Progress{Round: round, Rounds: rounds, Results: results}
			probs := p.Probabilities()
			log.Debug().
				Int("round", round).
				Int("rounds", rounds).
				Float64("win", probs.WinProb()).
				Float64("equity", probs.Equity()).
				Msg("duel progress")
			if d.OnProgress != nil {
				d.OnProgress(p)
			}
		}
	}
	return results, nil
}

// Run is the one-call form: a duel of rounds paired games, normalized.
func Run[G gammon.State[G]](ctx context.Context, e1, e2 evaluator.Evaluator[G], newGame func() G, rounds int, roller gammon.Roller) (probabilities.Probabilities, error) {
	results, err := New(e1, e2, newGame).Play(ctx, rounds, roller)
	return results.Probabilities(), err
}
