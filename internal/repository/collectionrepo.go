package repository

import (
	"context"

	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
)

// CollectionRepository stores acquired items. Records are append-only.
type CollectionRepository interface {
	// Append inserts it.
	Append(ctx context.Context, it *model.CollectibleItem) error

	// AppendWithSpend inserts it and compare-and-swaps the user's stats to
	// next in a single transaction. next.Version is the expected stored
	// version; a mismatch rolls back both writes with errs.ErrVersionConflict.
	AppendWithSpend(ctx context.Context, it *model.CollectibleItem, next model.ProgressionStats) (model.ProgressionStats, error)

	// List returns the user's items newest first.
	List(ctx context.Context, userID uuid.UUID) ([]model.CollectibleItem, error)

	// Summary aggregates the user's items.
	Summary(ctx context.Context, userID uuid.UUID) (model.CollectionSummary, error)
}
