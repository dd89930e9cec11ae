package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bungogood/td-gammon/internal/model"
)

// CheckpointRepo indexes saved network snapshots.
type CheckpointRepo struct {
	db *sql.DB
}

// NewCheckpointRepo creates a CheckpointRepo.
func NewCheckpointRepo(db *sql.DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

// Record inserts cp, replacing an earlier row for the same location.
func (r *CheckpointRepo) Record(ctx context.Context, cp *model.Checkpoint) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO checkpoints (run_id, episode, location, size)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, episode, location) DO UPDATE SET size = EXCLUDED.size, created_at = now()
		 RETURNING created_at`,
		cp.RunID, cp.Episode, cp.Location, cp.Size,
	).Scan(&cp.CreatedAt)
	if err != nil {
		return fmt.Errorf("record checkpoint: %w", err)
	}
	return nil
}

// ListByRun returns a run's checkpoints in episode order.
func (r *CheckpointRepo) ListByRun(ctx context.Context, runID string) ([]model.Checkpoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, episode, location, size, created_at
		 FROM checkpoints WHERE run_id = $1 ORDER BY episode, location`, runID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []model.Checkpoint
	for rows.Next() {
		var cp model.Checkpoint
		if err := rows.Scan(&cp.RunID, &cp.Episode, &cp.Location, &cp.Size, &cp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// Latest returns the checkpoint with the highest episode, or nil if the run has none.
func (r *CheckpointRepo) Latest(ctx context.Context, runID string) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, episode, location, size, created_at
		 FROM checkpoints WHERE run_id = $1 ORDER BY episode DESC, created_at DESC LIMIT 1`, runID,
	).Scan(&cp.RunID, &cp.Episode, &cp.Location, &cp.Size, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	return &cp, nil
}
