package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/progression"
)

// Progress is a stats snapshot with level-bar figures.
type Progress struct {
	Stats      model.ProgressionStats
	XPPerLevel int
	XPToNext   int
}

// ProgressService exposes a user's progression.
type ProgressService interface {
	Progress(ctx context.Context, userID uuid.UUID) (Progress, error)
}

type ProgressServiceImpl struct{ ledger *progression.Ledger }

func NewProgressService(ledger *progression.Ledger) *ProgressServiceImpl {
	return &ProgressServiceImpl{ledger: ledger}
}

// Progress re-reads the stats so other devices' writes are visible.
func (s *ProgressServiceImpl) Progress(ctx context.Context, userID uuid.UUID) (Progress, error) {
	st, err := s.ledger.For(userID).Refresh(ctx)
	if err != nil {
		return Progress{}, err
	}
	per := s.ledger.XPPerLevel()
	return Progress{Stats: st, XPPerLevel: per, XPToNext: per - st.CurrentXP}, nil
}
