// Package train improves a value network by temporal-difference learning
// from self-play.
package train

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/bungogood/td-gammon/internal/duel"
	"github.com/bungogood/td-gammon/internal/evaluator"
	"github.com/bungogood/td-gammon/internal/model"
	"github.com/bungogood/td-gammon/internal/perspective"
	"github.com/bungogood/td-gammon/internal/probabilities"
	"github.com/bungogood/td-gammon/internal/valuenet"
	"github.com/bungogood/td-gammon/pkg/gammon"
	"github.com/rs/zerolog/log"
)

// Opponent names used in duel reports.
const (
	OpponentRandom   = "random"
	OpponentBest     = "best"
	OpponentBaseline = "baseline"
)

// Trainer runs self-play games for a game type S. The network it trains is
// owned by the caller's goroutine for the duration of Train.
type Trainer[S gammon.State[S]] struct {
	cfg     Config
	newGame func() S
	dice    *gammon.DiceSource

	// RunID tags checkpoints and reports. Optional.
	RunID string
	// Baseline is dueled every BaselineEvery episodes when set, typically
	// the exact database evaluator.
	Baseline evaluator.Evaluator[perspective.State[S]]
	// Checkpoints receives a snapshot every CheckpointEvery episodes when set.
	Checkpoints CheckpointStore
	// Reports receives every duel report when set.
	Reports ReportSink
}

// New returns a trainer whose dice and evaluation opponents are all seeded
// from cfg.Seed.
func New[S gammon.State[S]](cfg Config, newGame func() S) (*Trainer[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer[S]{
		cfg:     cfg,
		newGame: newGame,
		dice:    gammon.SeededDiceSource(cfg.Seed),
	}, nil
}

// Config returns the trainer's configuration.
func (t *Trainer[S]) Config() Config { return t.cfg }

func (t *Trainer[S]) policy(net evaluator.ValueFunc) *evaluator.NPly[S] {
	search, err := evaluator.NewNPly[S](net, t.cfg.Plies)
	if err != nil {
		panic(err) // plies checked by Validate
	}
	return search
}

// value returns player A's win probability for s, exact when the game is over.
func value[S gammon.State[S]](net *valuenet.Network, s perspective.State[S]) float64 {
	canon := s.Canonical()
	if gs := canon.GameState(); gs.Over {
		return evaluator.ResultValue(gs.Result)
	}
	return net.Value(canon.Position())
}

// TrainGame plays one self-play game, updating net after every move, and
// returns the number of moves played.
//
// Each step captures the value and gradient of the current position before
// the move is chosen, since the search evaluates the same network. The TD
// error between the next and current values then scales the captured
// gradient through a momentum optimizer that lives for this game only.
func (t *Trainer[S]) TrainGame(net *valuenet.Network) int {
	search := t.policy(net)
	opt := valuenet.NewMomentum(net, t.cfg.Decay)

	state := perspective.New(t.newGame())
	dice := t.dice.FirstRoll()
	moves := 0
	for !state.RawGameState().Over {
		cur, grad := net.Gradient(state.Canonical().Position())

		state = search.BestPosition(state, dice)
		next := value(net, state)

		opt.Step(net, grad, -t.cfg.LearningRate*(next-cur))
		dice = t.dice.Roll()
		moves++
	}
	return moves
}

// Train runs the episode loop and returns the trained network, which is a
// different instance from net when the regression guard has reset it. On
// cancellation it stops at an episode boundary and returns the current
// network with ctx.Err().
func (t *Trainer[S]) Train(ctx context.Context, net *valuenet.Network) (*valuenet.Network, error) {
	run := t.cfg.RunName(net.Hidden())
	best, bestEp := net.Clone(), 0
	logger := log.With().Str("run", run).Logger()
	logger.Info().
		Int("episodes", t.cfg.Episodes).
		Float64("lr", t.cfg.LearningRate).
		Float64("decay", t.cfg.Decay).
		Int("plies", t.cfg.Plies).
		Msg("training started")

	if err := t.checkpoint(ctx, run, 0, net); err != nil {
		return net, err
	}

	start := time.Now()
	for ep := 0; ep < t.cfg.Episodes; {
		if err := ctx.Err(); err != nil {
			logger.Info().Int("episode", ep).Msg("training interrupted")
			return net, err
		}

		moves := t.TrainGame(net)
		if t.cfg.LogEvery > 0 && ep%t.cfg.LogEvery == 0 {
			logger.Debug().Int("episode", ep).Int("moves", moves).Dur("elapsed", time.Since(start)).Msg("episode")
		}
		ep++

		if every(ep, t.cfg.EvalEvery) {
			if _, err := t.evaluate(ctx, run, ep, net, t.random(), OpponentRandom, false); err != nil {
				return net, err
			}
			probs, err := t.evaluate(ctx, run, ep, net, t.policy(best), OpponentBest, true)
			if err != nil {
				return net, err
			}
			if probs.WinProb() > t.cfg.PromoteThreshold {
				best, bestEp = net.Clone(), ep
				logger.Info().Int("episode", ep).Float64("win", probs.WinProb()).Msg("new best network")
			}
		}

		if t.cfg.RegressionWindow > 0 && ep-bestEp > t.cfg.RegressionWindow {
			logger.Warn().Int("episode", ep).Int("best_episode", bestEp).Msg("no improvement, resetting to best network")
			net, ep = best.Clone(), bestEp
		}

		if every(ep, t.cfg.BaselineEvery) && t.Baseline != nil {
			if _, err := t.evaluate(ctx, run, ep, net, t.Baseline, OpponentBaseline, false); err != nil {
				return net, err
			}
		}

		if every(ep, t.cfg.CheckpointEvery) {
			if err := t.checkpoint(ctx, run, ep, net); err != nil {
				return net, err
			}
		}
	}

	logger.Info().Int("best_episode", bestEp).Dur("elapsed", time.Since(start)).Msg("training finished")
	return net, nil
}

func every(ep, interval int) bool {
	return interval > 0 && ep%interval == 0
}

// evalSource derives a fresh dice stream so evaluation does not disturb the
// training dice sequence more than one draw.
func (t *Trainer[S]) evalSource() *gammon.DiceSource {
	return gammon.NewDiceSource(rand.New(rand.NewSource(t.dice.Rand().Int63())))
}

func (t *Trainer[S]) random() evaluator.Evaluator[perspective.State[S]] {
	return evaluator.NewRandom[perspective.State[S]](rand.New(rand.NewSource(t.dice.Rand().Int63())))
}

// evaluate duels the current network against opponent and forwards the report.
// A cancelled duel is returned as an error; a failing sink is only logged.
func (t *Trainer[S]) evaluate(ctx context.Context, run string, ep int, net *valuenet.Network, opponent evaluator.Evaluator[perspective.State[S]], name string, promotable bool) (probabilities.Probabilities, error) {
	d := duel.New[perspective.State[S]](t.policy(net), opponent, perspective.Starter(t.newGame))
	d.ProgressEvery = 0

	start := time.Now()
	results, err := d.Play(ctx, t.cfg.EvalRounds, t.evalSource())
	if err != nil {
		return probabilities.Probabilities{}, err
	}
	probs := results.Probabilities()

	report := model.NewDuelReport(run, name, t.cfg.EvalRounds, probs)
	report.RunID = t.RunID
	report.Episode = ep
	report.Elapsed = time.Since(start)
	report.Promoted = promotable && probs.WinProb() > t.cfg.PromoteThreshold

	log.Info().
		Str("run", run).
		Int("episode", ep).
		Str("opponent", name).
		Float64("equity", probs.Equity()).
		Float64("win", probs.WinProb()).
		Str("probabilities", probs.String()).
		Msg("evaluation")

	if t.Reports != nil {
		if err := t.Reports.Report(ctx, report); err != nil {
			log.Warn().Err(err).Str("opponent", name).Int("episode", ep).Msg("report sink failed")
		}
	}
	return probs, nil
}

func (t *Trainer[S]) checkpoint(ctx context.Context, run string, ep int, net *valuenet.Network) error {
	if t.Checkpoints == nil || t.cfg.CheckpointEvery <= 0 {
		return nil
	}
	cp, err := t.Checkpoints.SaveCheckpoint(ctx, run, ep, net)
	if err != nil {
		return fmt.Errorf("checkpoint episode %d: %w", ep, err)
	}
	log.Debug().Str("run", run).Int("episode", ep).Str("location", cp.Location).Msg("checkpoint saved")
	return nil
}
