package arena

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bungogood/td-gammon/internal/model"
	"github.com/bungogood/td-gammon/internal/repository"
	"github.com/bungogood/td-gammon/internal/train"
	"github.com/bungogood/td-gammon/internal/valuenet"
)

// Reporter forwards trainer duel reports to Postgres and Redis and keeps the
// run's progress row current. Any field may be nil.
type Reporter struct {
	Reports   repository.DuelReportRepository
	Publisher repository.ProgressPublisher
	Runs      repository.RunRepository

	bestEpisode int
}

var _ train.ReportSink = (*Reporter)(nil)

// Report saves r, publishes it and updates run progress. All three are
// attempted; the errors are joined.
func (s *Reporter) Report(ctx context.Context, r model.DuelReport) error {
	var errs []error
	if s.Reports != nil {
		if err := s.Reports.Save(ctx, &r); err != nil {
			errs = append(errs, fmt.Errorf("save report: %w", err))
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishReport(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("publish report: %w", err))
		}
	}
	if r.Promoted {
		s.bestEpisode = r.Episode
	}
	if s.Runs != nil && r.RunID != "" {
		if err := s.Runs.UpdateProgress(ctx, r.RunID, r.Episode, s.bestEpisode); err != nil {
			errs = append(errs, fmt.Errorf("update run progress: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BestEpisode returns the episode of the last promoted report seen.
func (s *Reporter) BestEpisode() int { return s.bestEpisode }

// RecordingStore saves through Store and indexes every checkpoint under
// RunID in Repo.
type RecordingStore struct {
	Store train.CheckpointStore
	Repo  repository.CheckpointRepository
	RunID string
}

var _ train.CheckpointStore = (*RecordingStore)(nil)

// SaveCheckpoint writes the snapshot and records where it went. A failed
// index write is logged, the snapshot itself is still reported.
func (s *RecordingStore) SaveCheckpoint(ctx context.Context, run string, episode int, net *valuenet.Network) (*model.Checkpoint, error) {
	cp, err := s.Store.SaveCheckpoint(ctx, run, episode, net)
	if err != nil {
		return nil, err
	}
	if s.Repo == nil {
		return cp, nil
	}
	cp.RunID = s.RunID
	if err := s.Repo.Record(ctx, cp); err != nil {
		log.Warn().Err(err).Str("location", cp.Location).Int("episode", episode).Msg("checkpoint index write failed")
	}
	return cp, nil
}
