package repository

import (
	"context"

	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TaskRepository stores per-user tasks. Every mutation checks ownership:
// a missing id yields errs.ErrNotFound, a foreign one errs.ErrForbidden.
type TaskRepository interface {
	// Create inserts t. ID and CreatedAt are filled by the caller.
	Create(ctx context.Context, t *model.Task) error

	// List returns the user's tasks newest first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Task, error)

	// Toggle flips the completion flag and returns the updated task.
	Toggle(ctx context.Context, userID, taskID uuid.UUID) (model.Task, error)

	// SetCompleted forces the completion flag.
	SetCompleted(ctx context.Context, userID, taskID uuid.UUID, completed bool) (model.Task, error)

	// Delete removes the task.
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
}
