package arena

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bungogood/td-gammon/internal/duel"
	"github.com/bungogood/td-gammon/internal/model"
	"github.com/bungogood/td-gammon/internal/probabilities"
	"github.com/bungogood/td-gammon/internal/repository"
	"github.com/bungogood/td-gammon/pkg/gammon"
)

// DuelConfig configures a parallel duel.
type DuelConfig struct {
	Rounds  int   // paired games in total
	Workers int   // goroutines; rounds are split evenly
	Seed    int64 // 0 = time based; worker i uses Seed+i
	DryRun  bool  // skip saving the report
	RunID   string
	Episode int
}

// DuelResult is the combined outcome of a parallel duel, from player 1's view.
type DuelResult struct {
	Player1       string                      `json:"player1"`
	Player2       string                      `json:"player2"`
	Rounds        int                         `json:"rounds"`
	Seed          int64                       `json:"seed"`
	Counts        probabilities.ResultCounter `json:"-"`
	Probabilities probabilities.Probabilities `json:"probabilities"`
	Equity        float64                     `json:"equity"`
	WinProb       float64                     `json:"win_prob"`
	Elapsed       time.Duration               `json:"elapsed"`
	ReportID      string                      `json:"report_id,omitempty"`
}

// splitRounds divides rounds into at most workers near-equal shares.
func splitRounds(rounds, workers int) []int {
	if workers < 1 {
		workers = 1
	}
	if workers > rounds {
		workers = rounds
	}
	shares := make([]int, workers)
	for i := range shares {
		shares[i] = rounds / workers
		if i < rounds%workers {
			shares[i]++
		}
	}
	return shares
}

// RunDuel plays cfg.Rounds paired games between p1 and p2 over a pool of
// workers, each with its own dice and evaluator instances. The combined
// report is saved to reports unless cfg.DryRun is set or reports is nil.
// On cancellation the partial result is returned with ctx.Err().
func RunDuel(ctx context.Context, cfg DuelConfig, p1, p2 Player, reports repository.DuelReportRepository) (*DuelResult, error) {
	if cfg.Rounds < 1 {
		return nil, fmt.Errorf("duel needs at least one round, got %d", cfg.Rounds)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	shares := splitRounds(cfg.Rounds, cfg.Workers)
	log.Info().
		Str("player1", p1.Name).
		Str("player2", p2.Name).
		Int("rounds", cfg.Rounds).
		Int("workers", len(shares)).
		Int64("seed", seed).
		Msg("duel started")

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		combined probabilities.ResultCounter
		firstErr error
	)
	start := time.Now()

	for i, share := range shares {
		wg.Add(1)
		go func(idx, rounds int) {
			defer wg.Done()

			workerSeed := seed + int64(idx)
			// Dice and each evaluator draw from their own streams.
			src := rand.New(rand.NewSource(workerSeed))
			dice := gammon.NewDiceSource(rand.New(rand.NewSource(src.Int63())))
			e1 := p1.New(rand.New(rand.NewSource(src.Int63())))
			e2 := p2.New(rand.New(rand.NewSource(src.Int63())))

			d := duel.New(e1, e2, NewGame)
			d.ProgressEvery = 0
			counts, err := d.Play(ctx, rounds, dice)

			mu.Lock()
			defer mu.Unlock()
			combined = combined.Combine(counts)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			log.Debug().Int("worker", idx).Int("rounds", rounds).Uint32("games", counts.Sum()).Msg("duel worker finished")
		}(i, share)
	}
	wg.Wait()

	probs := combined.Probabilities()
	result := &DuelResult{
		Player1:       p1.Name,
		Player2:       p2.Name,
		Rounds:        int(combined.Sum() / 2),
		Seed:          seed,
		Counts:        combined,
		Probabilities: probs,
		Equity:        probs.Equity(),
		WinProb:       probs.WinProb(),
		Elapsed:       time.Since(start),
	}
	if firstErr != nil {
		return result, firstErr
	}

	log.Info().
		Str("player1", p1.Name).
		Str("player2", p2.Name).
		Float64("equity", result.Equity).
		Float64("win", result.WinProb).
		Str("probabilities", probs.String()).
		Dur("elapsed", result.Elapsed).
		Msg("duel finished")

	if cfg.DryRun || reports == nil {
		return result, nil
	}
	report := model.NewDuelReport(p1.Name, p2.Name, result.Rounds, probs)
	report.RunID = cfg.RunID
	report.Episode = cfg.Episode
	report.Seed = seed
	report.Elapsed = result.Elapsed
	if err := reports.Save(ctx, &report); err != nil {
		return result, fmt.Errorf("save duel report: %w", err)
	}
	result.ReportID = report.ID
	return result, nil
}

// IsCancelled reports whether err came from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
