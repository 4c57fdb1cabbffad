package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter shared by every server instance.
type PG struct {
	db  pgxQuerier
	p   Policy
	now func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter. now may be nil.
func NewPG(db pgxQuerier, p Policy, now func() time.Time) *PG {
	if now == nil {
		now = time.Now
	}
	return &PG{db: db, p: p.normalized(), now: now}
}

// Allow reports whether key is currently unblocked.
func (l *PG) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM signin_throttle WHERE key=$1`
	var blockedUntil *time.Time
	err := l.db.QueryRow(ctx, q, key).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if now := l.now(); blockedUntil != nil && blockedUntil.After(now) {
		return false, blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets key.
func (l *PG) Success(ctx context.Context, key string) error {
	const q = `DELETE FROM signin_throttle WHERE key=$1`
	_, err := l.db.Exec(ctx, q, key)
	return err
}

// Failure counts a failure inside the sliding window and blocks at the threshold.
func (l *PG) Failure(ctx context.Context, key string) (bool, time.Duration, error) {
	const q = `
INSERT INTO signin_throttle (key, fail_count, window_start)
VALUES ($1, 1, $2)
ON CONFLICT (key) DO UPDATE SET
  fail_count = CASE WHEN signin_throttle.window_start < $3 THEN 1 ELSE signin_throttle.fail_count + 1 END,
  window_start = CASE WHEN signin_throttle.window_start < $3 THEN $2 ELSE signin_throttle.window_start END
RETURNING fail_count`
	const block = `UPDATE signin_throttle SET fail_count=0, blocked_until=$2 WHERE key=$1`

	now := l.now()
	var fails int
	if err := l.db.QueryRow(ctx, q, key, now, now.Add(-l.p.Window)).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.p.MaxFailures {
		return false, 0, nil
	}
	if _, err := l.db.Exec(ctx, block, key, now.Add(l.p.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, l.p.BlockFor, nil
}
