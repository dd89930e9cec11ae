package model

import (
	"time"

	"github.com/bungogood/td-gammon/internal/probabilities"
)

// Training run statuses.
const (
	RunActive   = "active"
	RunFinished = "finished"
	RunAborted  = "aborted"
)

// TrainingRun represents one invocation of the trainer.
type TrainingRun struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"` // e.g. 2-ply-1-160-01-07
	Plies        int        `json:"plies"`
	Hidden       []int      `json:"hidden"`
	LearningRate float64    `json:"learning_rate"`
	Decay        float64    `json:"decay"`
	Seed         int64      `json:"seed"`
	Episodes     int        `json:"episodes"` // target
	Completed    int        `json:"completed"`
	BestEpisode  int        `json:"best_episode"`
	Status       string     `json:"status"` // active, finished, aborted
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// DuelReport is the outcome of one duel, from the player's point of view.
type DuelReport struct {
	ID            string                      `json:"id"`
	RunID         string                      `json:"run_id,omitempty"` // empty for standalone duels
	Episode       int                         `json:"episode,omitempty"`
	Player        string                      `json:"player"`
	Opponent      string                      `json:"opponent"`
	Rounds        int                         `json:"rounds"`
	Seed          int64                       `json:"seed"`
	Probabilities probabilities.Probabilities `json:"probabilities"`
	Equity        float64                     `json:"equity"`
	WinProb       float64                     `json:"win_prob"`
	Promoted      bool                        `json:"promoted,omitempty"`
	Elapsed       time.Duration               `json:"elapsed"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// Checkpoint records where a network snapshot was written.
type Checkpoint struct {
	RunID     string    `json:"run_id"`
	Episode   int       `json:"episode"`
	Location  string    `json:"location"` // file path or redis key
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDuelReport fills the derived fields from probs.
func NewDuelReport(player, opponent string, rounds int, probs probabilities.Probabilities) DuelReport {
	return DuelReport{
		Player:        player,
		Opponent:      opponent,
		Rounds:        rounds,
		Probabilities: probs,
		Equity:        probs.Equity(),
		WinProb:       probs.WinProb(),
		CreatedAt:     time.Now().UTC(),
	}
}
