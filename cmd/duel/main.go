package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bungogood/td-gammon/internal/arena"
	"github.com/bungogood/td-gammon/internal/config"
	"github.com/bungogood/td-gammon/internal/logger"
	"github.com/bungogood/td-gammon/internal/repository"
	"github.com/bungogood/td-gammon/internal/repository/postgres"
	"github.com/bungogood/td-gammon/pkg/gammon"
)

func main() {
	logger.Init()
	cfg := config.Load()

	var (
		p1      string
		p2      string
		rounds  int
		workers int
		dbURL   string
		hyperDB string
		seed    int64
		dryRun  bool
		jsonOut bool
	)

	flag.StringVar(&p1, "p1", "hyper", "Player 1 (random, hyper[:path], model:<path>[@plies], onnx:<path>[@plies])")
	flag.StringVar(&p2, "p2", "random", "Player 2, same forms as -p1")
	flag.IntVar(&rounds, "n", 100000, "Number of paired rounds (two games each)")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel duel workers)")
	flag.StringVar(&dbURL, "db", cfg.DatabaseURL, "Database URL for saving the report")
	flag.StringVar(&hyperDB, "hyper-db", cfg.HyperDBPath, "Default hypergammon database for the hyper player")
	flag.Int64Var(&seed, "seed", cfg.Seed, "Base seed (0 = random)")
	flag.BoolVar(&dryRun, "dry-run", true, "Skip database writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	loader := arena.NewLoader(hyperDB)
	player1, err := loader.Player(p1)
	if err != nil {
		log.Fatal().Err(err).Str("spec", p1).Msg("Player 1 unavailable")
	}
	player2, err := loader.Player(p2)
	if err != nil {
		log.Fatal().Err(err).Str("spec", p2).Msg("Player 2 unavailable")
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

	result, err := arena.RunDuel(ctx, arena.DuelConfig{
		Rounds:  rounds,
		Workers: workers,
		Seed:    seed,
		DryRun:  dryRun,
	}, player1, player2, reports)
	if err != nil && !arena.IsCancelled(err) {
		log.Fatal().Err(err).Msg("Duel failed")
	}
	if result == nil {
		return
	}

	if jsonOut {
		printJSON(result, err != nil)
	} else {
		printSummary(result, err != nil)
	}
}

func printSummary(r *arena.DuelResult, interrupted bool) {
	fmt.Printf("\n%s vs %s (%d rounds, %d games, seed %d):\n", r.Player1, r.Player2, r.Rounds, r.Counts.Sum(), r.Seed)
	if interrupted {
		fmt.Println("  (interrupted, partial results)")
	}
	fmt.Printf("  equity: %+.4f\n", r.Equity)
	fmt.Printf("  win:    %.2f%%\n", 100*r.WinProb)
	for res := gammon.Result(0); res < gammon.NumResults; res++ {
		fmt.Printf("  %-14s %8d  (%.2f%%)\n", res.String()+":", r.Counts.NumOf(res), 100*r.Probabilities.Slice()[res])
	}
	fmt.Printf("  elapsed: %s\n", r.Elapsed.Round(time.Millisecond))
	if r.ReportID != "" {
		fmt.Printf("\nReport saved as %s\n", r.ReportID)
	}
}

func printJSON(r *arena.DuelResult, interrupted bool) {
	out := struct {
		*arena.DuelResult
		Games       uint32 `json:"games"`
		Interrupted bool   `json:"interrupted,omitempty"`
	}{
		DuelResult:  r,
		Games:       r.Counts.Sum(),
		Interrupted: interrupted,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error().Err(err).Msg("Write JSON output failed")
	}
}
