package postgres

import (
	"context"
	"errors"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TaskRepo implements TaskRepository using PostgreSQL.
type TaskRepo struct{ db *DB }

// NewTaskRepo constructs a task repository.
func NewTaskRepo(db *DB) *TaskRepo { return &TaskRepo{db: db} }

const taskCols = `id, user_id, title, completed, priority, xp_reward, created_at`

// Create inserts a task row.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const q = `
INSERT INTO tasks (id, user_id, title, completed, priority, xp_reward, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q,
		t.ID, t.UserID, t.Title, t.Completed, string(t.Priority), t.XPReward, t.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// List returns tasks newest first.
func (r *TaskRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	const q = `SELECT ` + taskCols + ` FROM tasks WHERE user_id=$1 ORDER BY created_at DESC, id`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Toggle flips completed under a row lock.
func (r *TaskRepo) Toggle(ctx context.Context, userID, taskID uuid.UUID) (t model.Task, err error) {
	const upd = `UPDATE tasks SET completed = NOT completed WHERE id=$1 RETURNING ` + taskCols
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockOwnedTask(ctx, tx, userID, taskID); err != nil {
			return err
		}
		var err error
		t, err = scanTask(tx.QueryRow(ctx, upd, taskID))
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// SetCompleted sets completed under a row lock.
func (r *TaskRepo) SetCompleted(ctx context.Context, userID, taskID uuid.UUID, completed bool) (t model.Task, err error) {
	const upd = `UPDATE tasks SET completed=$2 WHERE id=$1 RETURNING ` + taskCols
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockOwnedTask(ctx, tx, userID, taskID); err != nil {
			return err
		}
		var err error
		t, err = scanTask(tx.QueryRow(ctx, upd, taskID, completed))
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Delete hard-deletes a task.
func (r *TaskRepo) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	const del = `DELETE FROM tasks WHERE id=$1`
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockOwnedTask(ctx, tx, userID, taskID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, del, taskID)
		return err
	})
}

// lockOwnedTask locks the row and verifies it belongs to userID.
func lockOwnedTask(ctx context.Context, tx pgx.Tx, userID, taskID uuid.UUID) error {
	const sel = `SELECT user_id FROM tasks WHERE id=$1 FOR UPDATE`
	var owner uuid.UUID
	if err := tx.QueryRow(ctx, sel, taskID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if owner != userID {
		return errs.ErrForbidden
	}
	return nil
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t        model.Task
		priority string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Completed, &priority, &t.XPReward, &t.CreatedAt); err != nil {
		return model.Task{}, err
	}
	t.Priority = model.Priority(priority)
	return t, nil
}
