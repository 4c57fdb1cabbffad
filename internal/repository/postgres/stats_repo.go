package postgres

import (
	"context"
	"errors"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// StatsRepo implements StatsRepository using PostgreSQL.
type StatsRepo struct{ db *DB }

// NewStatsRepo constructs a stats repository.
func NewStatsRepo(db *DB) *StatsRepo { return &StatsRepo{db: db} }

// Get returns the user's stats row, inserting the default row first if absent.
func (r *StatsRepo) Get(ctx context.Context, userID uuid.UUID) (model.ProgressionStats, error) {
	const ins = `INSERT INTO progression_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	const sel = `
SELECT user_id, level, current_xp, total_xp, streak, last_completion_date, version, updated_at
FROM progression_stats WHERE user_id=$1`

	if _, err := r.db.Pool.Exec(ctx, ins, userID); err != nil {
		return model.ProgressionStats{}, err
	}
	var s model.ProgressionStats
	err := r.db.Pool.QueryRow(ctx, sel, userID).Scan(
		&s.UserID, &s.Level, &s.CurrentXP, &s.TotalXP, &s.Streak,
		&s.LastCompletionDate, &s.Version, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ProgressionStats{}, errs.ErrNotFound
		}
		return model.ProgressionStats{}, err
	}
	return s, nil
}

// Save compare-and-swaps the row on s.Version.
func (r *StatsRepo) Save(ctx context.Context, s model.ProgressionStats) (model.ProgressionStats, error) {
	return saveStats(ctx, r.db.Pool, s)
}

func saveStats(ctx context.Context, q rowQuerier, s model.ProgressionStats) (model.ProgressionStats, error) {
	const upd = `
UPDATE progression_stats
SET level=$3, current_xp=$4, total_xp=$5, streak=$6, last_completion_date=$7, version=version+1, updated_at=now()
WHERE user_id=$1 AND version=$2
RETURNING version, updated_at`

	err := q.QueryRow(ctx, upd,
		s.UserID, s.Version, s.Level, s.CurrentXP, s.TotalXP, s.Streak, s.LastCompletionDate,
	).Scan(&s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ProgressionStats{}, errs.ErrVersionConflict
		}
		return model.ProgressionStats{}, err
	}
	return s, nil
}
