package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/bungogood/td-gammon/internal/arena"
	"github.com/bungogood/td-gammon/internal/config"
	"github.com/bungogood/td-gammon/internal/logger"
	"github.com/bungogood/td-gammon/internal/probabilities"
	"github.com/bungogood/td-gammon/internal/repository"
	"github.com/bungogood/td-gammon/internal/repository/postgres"
	"github.com/bungogood/td-gammon/internal/train"
)

var header = []string{"round", "equity", "win", "win_n", "win_g", "win_b", "lose_n", "lose_g", "lose_b"}

func main() {
	logger.Init()
	cfg := config.Load()
	tc := cfg.TrainConfig()

	var (
		runDir   string
		opponent string
		step     int
		maxRound int
		rounds   int
		workers  int
		plies    int
		seed     int64
		out      string
		dbURL    string
		dryRun   bool
	)

	defaultRun := filepath.Join(cfg.ModelDir, tc.RunName([]int{cfg.Hidden}))
	flag.StringVar(&runDir, "run", defaultRun, "Directory holding games-<N>.bin checkpoints")
	flag.StringVar(&opponent, "opponent", "random", "Opponent spec (random, hyper[:path], model:<path>[@plies], onnx:<path>[@plies])")
	flag.IntVar(&step, "step", tc.CheckpointEvery, "Games between evaluated checkpoints")
	flag.IntVar(&maxRound, "max", tc.Episodes, "Last checkpoint to evaluate")
	flag.IntVar(&rounds, "n", 10000, "Paired rounds per checkpoint")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel duel workers)")
	flag.IntVar(&plies, "plies", 1, "Search depth for the checkpoints")
	flag.Int64Var(&seed, "seed", cfg.Seed, "Base seed (0 = random)")
	flag.StringVar(&out, "out", "", "CSV output file (default stdout)")
	flag.StringVar(&dbURL, "db", cfg.DatabaseURL, "Database URL for saving reports")
	flag.BoolVar(&dryRun, "dry-run", true, "Skip database writes")

	flag.Parse()

	if step < 1 {
		log.Fatal().Int("step", step).Msg("Step must be positive")
	}

	loader := arena.NewLoader(cfg.HyperDBPath)
	opp, err := loader.Player(opponent)
	if err != nil {
		log.Fatal().Err(err).Str("spec", opponent).Msg("Opponent unavailable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var reports repository.DuelReportRepository
	if !dryRun {
		db, err := postgres.Connect(ctx, dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		reports = postgres.NewDuelRepo(db)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			log.Fatal().Err(err).Str("path", out).Msg("Create output failed")
		}
		defer f.Close()
		w = f
	}
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(header); err != nil {
		log.Fatal().Err(err).Msg("Write CSV header failed")
	}

	for round := 0; round <= maxRound; round += step {
		path := train.CheckpointPath(filepath.Dir(runDir), filepath.Base(runDir), round)
		if _, err := os.Stat(path); err != nil {
			log.Warn().Str("path", path).Msg("Checkpoint missing, skipping")
			continue
		}
		player, err := loader.ForSpec(arena.Spec{Kind: arena.KindModel, Path: path, Plies: plies})
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Load checkpoint failed")
			continue
		}

		result, err := arena.RunDuel(ctx, arena.DuelConfig{
			Rounds:  rounds,
			Workers: workers,
			Seed:    seed,
			DryRun:  dryRun,
			Episode: round,
		}, player, opp, reports)
		if arena.IsCancelled(err) {
			break
		}
		if err != nil {
			log.Error().Err(err).Int("round", round).Msg("Duel failed")
			continue
		}
		if err := cw.Write(row(round, result.Probabilities)); err != nil {
			log.Fatal().Err(err).Msg("Write CSV row failed")
		}
		cw.Flush()
	}
	if err := cw.Error(); err != nil {
		log.Error().Err(err).Msg("CSV output failed")
	}
}

// row formats one checkpoint's result: equity to three places, the rest as
// percentages to two.
func row(round int, p probabilities.Probabilities) []string {
	pct := func(v float64) string { return fmt.Sprintf("%.2f", v*100) }
	return []string{
		strconv.Itoa(round),
		fmt.Sprintf("%.3f", p.Equity()),
		pct(p.WinProb()),
		pct(p.WinN), pct(p.WinG), pct(p.WinB),
		pct(p.LoseN), pct(p.LoseG), pct(p.LoseB),
	}
}
