package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bungogood/td-gammon/internal/model"
)

// RunRepo handles training_runs database operations.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

const runColumns = `id, name, plies, hidden, learning_rate, decay, seed, episodes, completed, best_episode, status, created_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.TrainingRun, error) {
	var run model.TrainingRun
	var hidden pq.Int64Array
	err := row.Scan(&run.ID, &run.Name, &run.Plies, &hidden, &run.LearningRate, &run.Decay, &run.Seed,
		&run.Episodes, &run.Completed, &run.BestEpisode, &run.Status, &run.CreatedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	run.Hidden = make([]int, len(hidden))
	for i, h := range hidden {
		run.Hidden[i] = int(h)
	}
	return &run, nil
}

// Create inserts a new active run with a fresh UUID.
func (r *RunRepo) Create(ctx context.Context, name string, plies int, hidden []int, learningRate, decay float64, seed int64, episodes int) (*model.TrainingRun, error) {
	layers := make(pq.Int64Array, len(hidden))
	for i, h := range hidden {
		layers[i] = int64(h)
	}
	run, err := scanRun(r.db.QueryRowContext(ctx,
		`INSERT INTO training_runs (id, name, plies, hidden, learning_rate, decay, seed, episodes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+runColumns,
		uuid.New().String(), name, plies, layers, learningRate, decay, seed, episodes,
	))
	if err != nil {
		return nil, fmt.Errorf("create training run: %w", err)
	}
	return run, nil
}

// FindByID returns a run by ID, or nil if it does not exist.
func (r *RunRepo) FindByID(ctx context.Context, id string) (*model.TrainingRun, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM training_runs WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find training run: %w", err)
	}
	return run, nil
}

// ListRecent returns the newest runs first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.TrainingRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM training_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list training runs: %w", err)
	}
	defer rows.Close()

	var runs []model.TrainingRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// UpdateProgress records how far the run has got.
func (r *RunRepo) UpdateProgress(ctx context.Context, id string, completed, bestEpisode int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE training_runs SET completed = $2, best_episode = $3 WHERE id = $1`,
		id, completed, bestEpisode)
	if err != nil {
		return fmt.Errorf("update training run: %w", err)
	}
	return nil
}

// SetFinished closes the run with the given status.
func (r *RunRepo) SetFinished(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE training_runs SET status = $2, finished_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("finish training run: %w", err)
	}
	return nil
}
