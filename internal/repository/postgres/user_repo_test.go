package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Username: "ash", PwdHash: "$argon2id$..."}

	mock.ExpectExec(`INSERT INTO users \(id, username, pwd_hash\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(u.ID, u.Username, u.PwdHash).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Username, u.PwdHash).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, username, pwd_hash, created_at FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "pwd_hash", "created_at"}).
			AddRow(id, "ash", "h", created))
	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, "ash", u.Username)
	require.Equal(t, created, u.CreatedAt)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	boom := errors.New("conn reset")
	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(boom)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, boom)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id, username, pwd_hash, created_at FROM users WHERE username=\$1`).
		WithArgs("misty").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "pwd_hash", "created_at"}).
			AddRow(id, "misty", "h", time.Now()))
	u, err := r.GetByUsername(ctx, "misty")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)

	mock.ExpectQuery(`FROM users WHERE username=\$1`).
		WithArgs("misty").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "misty")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
