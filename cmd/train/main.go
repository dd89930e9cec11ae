package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bungogood/td-gammon/internal/arena"
	"github.com/bungogood/td-gammon/internal/config"
	"github.com/bungogood/td-gammon/internal/evaluator"
	"github.com/bungogood/td-gammon/internal/logger"
	"github.com/bungogood/td-gammon/internal/model"
	"github.com/bungogood/td-gammon/internal/repository/postgres"
	"github.com/bungogood/td-gammon/internal/repository/redis"
	"github.com/bungogood/td-gammon/internal/train"
	"github.com/bungogood/td-gammon/internal/valuenet"
	"github.com/bungogood/td-gammon/pkg/hypergammon"
)

func main() {
	logger.Init()
	cfg := config.Load()
	tc := cfg.TrainConfig()

	var (
		hidden   int
		resume   string
		dir      string
		hyperDB  string
		dbURL    string
		redisURL string
		dryRun   bool
	)

	flag.IntVar(&tc.Episodes, "episodes", tc.Episodes, "Number of self-play training games")
	flag.Int64Var(&tc.Seed, "seed", tc.Seed, "Seed for dice, initial weights and evaluation (0 = random)")
	flag.IntVar(&tc.Plies, "plies", tc.Plies, "Search depth used for move selection")
	flag.IntVar(&hidden, "hidden", cfg.Hidden, "Hidden layer size")
	flag.Float64Var(&tc.LearningRate, "lr", tc.LearningRate, "Learning rate")
	flag.Float64Var(&tc.Decay, "decay", tc.Decay, "TD decay (optimizer momentum)")
	flag.IntVar(&tc.EvalEvery, "eval-every", tc.EvalEvery, "Episodes between evaluation duels (0 = never)")
	flag.IntVar(&tc.EvalRounds, "eval-rounds", tc.EvalRounds, "Paired rounds per evaluation duel")
	flag.IntVar(&tc.CheckpointEvery, "checkpoint-every", tc.CheckpointEvery, "Episodes between checkpoints (0 = never)")
	flag.StringVar(&resume, "model", "", "Network file to resume from")
	flag.StringVar(&dir, "dir", cfg.ModelDir, "Checkpoint directory")
	flag.StringVar(&hyperDB, "hyper-db", cfg.HyperDBPath, "Hypergammon database for baseline duels (empty = none)")
	flag.StringVar(&dbURL, "db", cfg.DatabaseURL, "Database URL")
	flag.StringVar(&redisURL, "redis", cfg.RedisURL, "Redis URL")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip database and Redis writes")

	flag.Parse()

	if tc.Seed == 0 {
		tc.Seed = time.Now().UnixNano()
	}
	log.Info().Int64("seed", tc.Seed).Msg("Seed selected")

	net, err := loadNetwork(resume, tc.Seed, hidden)
	if err != nil {
		log.Fatal().Err(err).Msg("Network unavailable")
	}

	trainer, err := train.New(tc, hypergammon.New)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid training config")
	}

	if hyperDB != "" {
		db, err := arena.NewLoader(hyperDB).Database(hyperDB)
		if err != nil {
			log.Warn().Err(err).Msg("Baseline database unavailable, baseline duels disabled")
		} else {
			trainer.Baseline = evaluator.NewDatabaseEvaluator[arena.Game](db)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down after the current episode...")
		cancel()
	}()

	files := train.FileCheckpoints{Dir: dir}
	trainer.Checkpoints = files
	name := tc.RunName(net.Hidden())

	var finish func(status string)
	if !dryRun {
		db, err := postgres.Connect(ctx, dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()

		rdb, err := redis.NewClient(ctx, redisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer rdb.Close()

		runs := postgres.NewRunRepo(db)
		checkpoints := postgres.NewCheckpointRepo(db)
		run, err := runs.Create(ctx, name, tc.Plies, net.Hidden(), tc.LearningRate, tc.Decay, tc.Seed, tc.Episodes)
		if err != nil {
			log.Fatal().Err(err).Msg("Create training run failed")
		}
		ctx = logger.WithRunID(ctx, run.ID)

		trainer.RunID = run.ID
		trainer.Checkpoints = train.MultiStore{
			&arena.RecordingStore{Store: files, Repo: checkpoints, RunID: run.ID},
			&arena.RecordingStore{Store: rdb, Repo: checkpoints, RunID: run.ID},
		}
		trainer.Reports = &arena.Reporter{
			Reports:   postgres.NewDuelRepo(db),
			Publisher: rdb,
			Runs:      runs,
		}
		finish = func(status string) {
			// The run context may already be cancelled.
			if err := runs.SetFinished(context.Background(), run.ID, status); err != nil {
				log.Error().Err(err).Msg("Mark run finished failed")
			}
		}
	}

	l := logger.ForRun(ctx)
	l.Info().Str("run", name).Str("dir", filepath.Join(dir, name)).Bool("dryRun", dryRun).Msg("Training")

	trained, err := trainer.Train(ctx, net)
	status := model.RunFinished
	switch {
	case errors.Is(err, context.Canceled):
		status = model.RunAborted
	case err != nil:
		status = model.RunAborted
		l.Error().Err(err).Msg("Training failed")
	}

	final := filepath.Join(dir, name, "final.bin")
	if err := trained.SaveFile(final); err != nil {
		l.Error().Err(err).Str("path", final).Msg("Save final network failed")
	} else {
		l.Info().Str("path", final).Str("status", status).Msg("Final network saved")
	}
	if finish != nil {
		finish(status)
	}
}

func loadNetwork(path string, seed int64, hidden int) (*valuenet.Network, error) {
	if path != "" {
		net, err := valuenet.LoadFile(path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Ints("hidden", net.Hidden()).Msg("Resuming from network")
		return net, nil
	}
	return valuenet.NewNetwork(rand.New(rand.NewSource(seed)), hidden)
}
