package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bungogood/td-gammon/internal/model"
)

// DuelRepo handles duel_reports database operations.
type DuelRepo struct {
	db *sql.DB
}

// NewDuelRepo creates a DuelRepo.
func NewDuelRepo(db *sql.DB) *DuelRepo {
	return &DuelRepo{db: db}
}

const duelColumns = `id, run_id, episode, player, opponent, rounds, seed,
	win_n, win_g, win_b, lose_n, lose_g, lose_b, equity, win_prob, promoted, elapsed_ms, created_at`

// nullable maps an empty run ID to SQL NULL.
func nullable(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

func scanDuel(row scanner) (*model.DuelReport, error) {
	var d model.DuelReport
	var runID sql.NullString
	var elapsedMS int64
	p := &d.Probabilities
	err := row.Scan(&d.ID, &runID, &d.Episode, &d.Player, &d.Opponent, &d.Rounds, &d.Seed,
		&p.WinN, &p.WinG, &p.WinB, &p.LoseN, &p.LoseG, &p.LoseB,
		&d.Equity, &d.WinProb, &d.Promoted, &elapsedMS, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.RunID = runID.String
	d.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &d, nil
}

// Save inserts the report and fills in its ID and creation time.
func (r *DuelRepo) Save(ctx context.Context, d *model.DuelReport) error {
	if err := d.Probabilities.Validate(); err != nil {
		return fmt.Errorf("save duel report: %w", err)
	}
	p := d.Probabilities
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO duel_reports (run_id, episode, player, opponent, rounds, seed,
		     win_n, win_g, win_b, lose_n, lose_g, lose_b, equity, win_prob, promoted, elapsed_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, created_at`,
		nullable(d.RunID), d.Episode, d.Player, d.Opponent, d.Rounds, d.Seed,
		p.WinN, p.WinG, p.WinB, p.LoseN, p.LoseG, p.LoseB,
		d.Equity, d.WinProb, d.Promoted, d.Elapsed.Milliseconds(),
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("save duel report: %w", err)
	}
	return nil
}

// ListByRun returns a run's reports in episode order.
func (r *DuelRepo) ListByRun(ctx context.Context, runID string) ([]model.DuelReport, error) {
	return r.list(ctx,
		`SELECT `+duelColumns+` FROM duel_reports WHERE run_id = $1 ORDER BY episode, created_at`, runID)
}

// ListByPlayer returns the newest reports for a player first.
func (r *DuelRepo) ListByPlayer(ctx context.Context, player string, limit int) ([]model.DuelReport, error) {
	return r.list(ctx,
		`SELECT `+duelColumns+` FROM duel_reports WHERE player = $1 ORDER BY created_at DESC LIMIT $2`, player, limit)
}

func (r *DuelRepo) list(ctx context.Context, query string, args ...any) ([]model.DuelReport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list duel reports: %w", err)
	}
	defer rows.Close()

	var reports []model.DuelReport
	for rows.Next() {
		d, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan duel report: %w", err)
		}
		reports = append(reports, *d)
	}
	return reports, rows.Err()
}

