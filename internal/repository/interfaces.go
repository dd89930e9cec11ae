package repository

import (
	"context"

	"github.com/bungogood/td-gammon/internal/model"
)

// RunRepository defines training run data operations.
type RunRepository interface {
	Create(ctx context.Context, name string, plies int, hidden []int, learningRate, decay float64, seed int64, episodes int) (*model.TrainingRun, error)
	FindByID(ctx context.Context, id string) (*model.TrainingRun, error)
	ListRecent(ctx context.Context, limit int) ([]model.TrainingRun, error)
	UpdateProgress(ctx context.Context, id string, completed, bestEpisode int) error
	SetFinished(ctx context.Context, id, status string) error
}

// DuelReportRepository defines duel report data operations.
type DuelReportRepository interface {
	Save(ctx context.Context, r *model.DuelReport) error
	ListByRun(ctx context.Context, runID string) ([]model.DuelReport, error)
	ListByPlayer(ctx context.Context, player string, limit int) ([]model.DuelReport, error)
}

// CheckpointRepository defines checkpoint index operations.
type CheckpointRepository interface {
	Record(ctx context.Context, cp *model.Checkpoint) error
	ListByRun(ctx context.Context, runID string) ([]model.Checkpoint, error)
	Latest(ctx context.Context, runID string) (*model.Checkpoint, error)
}

// NetworkCache stores serialized networks (Redis).
type NetworkCache interface {
	SetNetwork(ctx context.Context, run string, episode int, data []byte) error
	GetNetwork(ctx context.Context, run string, episode int) ([]byte, error)
	LatestEpisode(ctx context.Context, run string) (int, bool, error)
}

// ProgressPublisher broadcasts duel reports to live watchers (Redis).
type ProgressPublisher interface {
	PublishReport(ctx context.Context, r model.DuelReport) error
	LatestReport(ctx context.Context, player string) (*model.DuelReport, error)
}
