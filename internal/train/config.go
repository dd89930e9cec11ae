package train

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid training config")

// Config holds the hyperparameters and schedule of a training run. Interval
// fields are in episodes; zero disables the corresponding action.
type Config struct {
	LearningRate float64
	Decay        float64
	Plies        int
	Episodes     int
	Seed         int64

	LogEvery         int
	EvalEvery        int
	EvalRounds       int
	PromoteThreshold float64
	RegressionWindow int
	BaselineEvery    int
	CheckpointEvery  int
}

// DefaultConfig returns the standard schedule.
func DefaultConfig() Config {
	return Config{
		LearningRate:     0.1,
		Decay:            0.7,
		Plies:            2,
		Episodes:         1_000_000,
		Seed:             1,
		LogEvery:         100,
		EvalEvery:        5_000,
		EvalRounds:       1_000,
		PromoteThreshold: 0.53,
		RegressionWindow: 100_000,
		BaselineEvery:    25_000,
		CheckpointEvery:  1_000,
	}
}

// Validate rejects configurations the trainer cannot run.
func (c Config) Validate() error {
	switch {
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate %v must be positive", ErrInvalidConfig, c.LearningRate)
	case c.Decay < 0 || c.Decay >= 1:
		return fmt.Errorf("%w: decay %v must be in [0, 1)", ErrInvalidConfig, c.Decay)
	case c.Plies < 1:
		return fmt.Errorf("%w: plies %d must be at least 1", ErrInvalidConfig, c.Plies)
	case c.Episodes < 0:
		return fmt.Errorf("%w: episodes %d must not be negative", ErrInvalidConfig, c.Episodes)
	case (c.EvalEvery > 0 || c.BaselineEvery > 0) && c.EvalRounds < 1:
		return fmt.Errorf("%w: evaluation needs at least one round", ErrInvalidConfig)
	case c.PromoteThreshold < 0 || c.PromoteThreshold > 1:
		return fmt.Errorf("%w: promote threshold %v must be a probability", ErrInvalidConfig, c.PromoteThreshold)
	}
	return nil
}

// RunName identifies a configuration: <plies>-ply-<layers>-<neurons>-<lr>-<decay>
// with the dots dropped from the two rates, e.g. 2-ply-1-160-01-07.
func (c Config) RunName(hidden []int) string {
	neurons := 0
	if len(hidden) > 0 {
		neurons = hidden[0]
	}
	return fmt.Sprintf("%d-ply-%d-%d-%s-%s", c.Plies, len(hidden), neurons, undot(c.LearningRate), undot(c.Decay))
}

func undot(f float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(f, 'f', -1, 64), ".", "")
}
