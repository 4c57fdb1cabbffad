package repository

import (
	"context"

	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
)

// StatsRepository stores the per-user progression singleton.
type StatsRepository interface {
	// Get loads the stats row, creating the default row on first access.
	Get(ctx context.Context, userID uuid.UUID) (model.ProgressionStats, error)

	// Save writes s if the stored version still equals s.Version and returns
	// the row with its new version. A mismatch yields errs.ErrVersionConflict.
	Save(ctx context.Context, s model.ProgressionStats) (model.ProgressionStats, error)
}
