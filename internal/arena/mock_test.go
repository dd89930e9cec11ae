package arena

import (
	"context"
	"errors"
	"fmt"

	"github.com/bungogood/td-gammon/internal/model"
	"github.com/bungogood/td-gammon/internal/valuenet"
)

type mockDuelRepo struct {
	saved []model.DuelReport
	err   error
}

func (m *mockDuelRepo) Save(_ context.Context, r *model.DuelReport) error {
	if m.err != nil {
		return m.err
	}
	r.ID = fmt.Sprintf("duel-%d", len(m.saved)+1)
	m.saved = append(m.saved, *r)
	return nil
}

func (m *mockDuelRepo) ListByRun(_ context.Context, runID string) ([]model.DuelReport, error) {
	var out []model.DuelReport
	for _, r := range m.saved {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockDuelRepo) ListByPlayer(_ context.Context, player string, limit int) ([]model.DuelReport, error) {
	var out []model.DuelReport
	for _, r := range m.saved {
		if r.Player == player && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockPublisher struct {
	published []model.DuelReport
	err       error
}

func (m *mockPublisher) PublishReport(_ context.Context, r model.DuelReport) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, r)
	return nil
}

func (m *mockPublisher) LatestReport(_ context.Context, player string) (*model.DuelReport, error) {
	for i := len(m.published) - 1; i >= 0; i-- {
		if m.published[i].Player == player {
			r := m.published[i]
			return &r, nil
		}
	}
	return nil, nil
}

type progressUpdate struct {
	id                   string
	completed, bestEpoch int
}

type mockRunRepo struct {
	updates []progressUpdate
}

func (m *mockRunRepo) Create(context.Context, string, int, []int, float64, float64, int64, int) (*model.TrainingRun, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRunRepo) FindByID(context.Context, string) (*model.TrainingRun, error) {
	return nil, nil
}

func (m *mockRunRepo) ListRecent(context.Context, int) ([]model.TrainingRun, error) {
	return nil, nil
}

func (m *mockRunRepo) UpdateProgress(_ context.Context, id string, completed, best int) error {
	m.updates = append(m.updates, progressUpdate{id, completed, best})
	return nil
}

func (m *mockRunRepo) SetFinished(context.Context, string, string) error { return nil }

type mockCheckpointRepo struct {
	recorded []model.Checkpoint
	err      error
}

func (m *mockCheckpointRepo) Record(_ context.Context, cp *model.Checkpoint) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, *cp)
	return nil
}

func (m *mockCheckpointRepo) ListByRun(_ context.Context, runID string) ([]model.Checkpoint, error) {
	return m.recorded, nil
}

func (m *mockCheckpointRepo) Latest(context.Context, string) (*model.Checkpoint, error) {
	if len(m.recorded) == 0 {
		return nil, nil
	}
	cp := m.recorded[len(m.recorded)-1]
	return &cp, nil
}

type memoryStore struct {
	saved map[string]int
	err   error
}

func (m *memoryStore) SaveCheckpoint(_ context.Context, run string, episode int, _ *valuenet.Network) (*model.Checkpoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.saved == nil {
		m.saved = make(map[string]int)
	}
	loc := fmt.Sprintf("mem:%s:%d", run, episode)
	m.saved[loc] = episode
	return &model.Checkpoint{Episode: episode, Location: loc}, nil
}
