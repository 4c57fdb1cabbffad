package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var _ Limiter = (*PG)(nil)
var _ Limiter = (*Memory)(nil)

var pgNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPG(t *testing.T, p Policy) (*PG, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPG(mock, p, func() time.Time { return pgNow }), mock
}

func TestPG_Allow(t *testing.T) {
	l, mock := newPG(t, DefaultPolicy())
	ctx := context.Background()

	mock.ExpectQuery(`SELECT blocked_until FROM signin_throttle WHERE key=\$1`).
		WithArgs("k").
		WillReturnError(pgx.ErrNoRows)
	ok, _, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	until := pgNow.Add(5 * time.Minute)
	mock.ExpectQuery(`SELECT blocked_until`).
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(&until))
	ok, wait, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5*time.Minute, wait)

	mock.ExpectQuery(`SELECT blocked_until`).
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow((*time.Time)(nil)))
	ok, _, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	boom := errors.New("db down")
	mock.ExpectQuery(`SELECT blocked_until`).WithArgs("k").WillReturnError(boom)
	ok, _, err = l.Allow(ctx, "k")
	require.ErrorIs(t, err, boom)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_Failure(t *testing.T) {
	l, mock := newPG(t, Policy{MaxFailures: 3, Window: time.Minute, BlockFor: time.Hour})
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO signin_throttle .* RETURNING fail_count`).
		WithArgs("k", pgNow, pgNow.Add(-time.Minute)).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(2))
	blocked, _, err := l.Failure(ctx, "k")
	require.NoError(t, err)
	require.False(t, blocked)

	mock.ExpectQuery(`INSERT INTO signin_throttle`).
		WithArgs("k", pgNow, pgNow.Add(-time.Minute)).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(3))
	mock.ExpectExec(`UPDATE signin_throttle SET fail_count=0, blocked_until=\$2 WHERE key=\$1`).
		WithArgs("k", pgNow.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	blocked, d, err := l.Failure(ctx, "k")
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, time.Hour, d)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_Success(t *testing.T) {
	l, mock := newPG(t, DefaultPolicy())
	mock.ExpectExec(`DELETE FROM signin_throttle WHERE key=\$1`).
		WithArgs("k").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, l.Success(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}
