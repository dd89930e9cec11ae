package train

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bungogood/td-gammon/internal/model"
	"github.com/bungogood/td-gammon/internal/valuenet"
)

// CheckpointStore persists network snapshots during training.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, run string, episode int, net *valuenet.Network) (*model.Checkpoint, error)
}

// ReportSink receives every duel report the trainer produces.
type ReportSink interface {
	Report(ctx context.Context, r model.DuelReport) error
}

// CheckpointPath returns <dir>/<run>/games-<episode>.bin.
func CheckpointPath(dir, run string, episode int) string {
	return filepath.Join(dir, run, fmt.Sprintf("games-%d.bin", episode))
}

// FileCheckpoints writes snapshots under a directory.
type FileCheckpoints struct {
	Dir string
}

// SaveCheckpoint writes net to CheckpointPath.
func (f FileCheckpoints) SaveCheckpoint(_ context.Context, run string, episode int, net *valuenet.Network) (*model.Checkpoint, error) {
	path := CheckpointPath(f.Dir, run, episode)
	if err := net.SaveFile(path); err != nil {
		return nil, fmt.Errorf("save checkpoint %s: %w", path, err)
	}
	cp := &model.Checkpoint{Episode: episode, Location: path, CreatedAt: time.Now().UTC()}
	if fi, err := os.Stat(path); err == nil {
		cp.Size = int(fi.Size())
	}
	return cp, nil
}

// MultiStore saves to every store in order and stops at the first failure.
type MultiStore []CheckpointStore

// SaveCheckpoint returns the record from the first store.
func (m MultiStore) SaveCheckpoint(ctx context.Context, run string, episode int, net *valuenet.Network) (*model.Checkpoint, error) {
	var first *model.Checkpoint
	for _, s := range m {
		cp, err := s.SaveCheckpoint(ctx, run, episode, net)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = cp
		}
	}
	return first, nil
}
