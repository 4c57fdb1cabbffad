package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var taskColNames = []string{"id", "user_id", "title", "completed", "priority", "xp_reward", "created_at"}

func TestTaskRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	tk := &model.Task{
		ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()),
		Title: "water plants", Priority: model.PriorityHigh, XPReward: 30,
		CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO tasks \(id, user_id, title, completed, priority, xp_reward, created_at\)`).
		WithArgs(tk.ID, tk.UserID, "water plants", false, "high", 30, tk.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(context.Background(), tk))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	user := uuid.Must(uuid.NewV4())
	a, b := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	t1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)

	mock.ExpectQuery(`FROM tasks WHERE user_id=\$1 ORDER BY created_at DESC, id`).
		WithArgs(user).
		WillReturnRows(pgxmock.NewRows(taskColNames).
			AddRow(a, user, "newer", false, "low", 15, t1).
			AddRow(b, user, "older", true, "medium", 20, t0))

	got, err := r.List(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "newer", got[0].Title)
	require.Equal(t, model.PriorityLow, got[0].Priority)
	require.True(t, got[1].Completed)
	require.Equal(t, 20, got[1].XPReward)
}

func TestTaskRepo_Toggle_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	created := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM tasks WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(user))
	mock.ExpectQuery(`UPDATE tasks SET completed = NOT completed WHERE id=\$1 RETURNING`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(taskColNames).AddRow(id, user, "run", true, "medium", 20, created))
	mock.ExpectCommit()

	tk, err := r.Toggle(context.Background(), user, id)
	require.NoError(t, err)
	require.True(t, tk.Completed)
	require.Equal(t, 20, tk.XPReward)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_Toggle_NotFoundAndForbidden(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM tasks WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()
	_, err := r.Toggle(context.Background(), user, id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM tasks WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(uuid.Must(uuid.NewV4())))
	mock.ExpectRollback()
	_, err = r.Toggle(context.Background(), user, id)
	require.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_SetCompleted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM tasks WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(user))
	mock.ExpectQuery(`UPDATE tasks SET completed=\$2 WHERE id=\$1 RETURNING`).
		WithArgs(id, false).
		WillReturnRows(pgxmock.NewRows(taskColNames).AddRow(id, user, "run", false, "low", 15, time.Now()))
	mock.ExpectCommit()

	tk, err := r.SetCompleted(context.Background(), user, id, false)
	require.NoError(t, err)
	require.False(t, tk.Completed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM tasks WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(user))
	mock.ExpectExec(`DELETE FROM tasks WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	require.NoError(t, r.Delete(context.Background(), user, id))

	// second delete: row is gone
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT user_id FROM tasks WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()
	require.ErrorIs(t, r.Delete(context.Background(), user, id), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
