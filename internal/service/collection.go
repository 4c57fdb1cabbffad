package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/repository"
)

// CollectionService manages the append-only record of acquired items.
type CollectionService interface {
	Append(ctx context.Context, userID uuid.UUID, it model.CollectibleItem) (model.CollectibleItem, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.CollectibleItem, error)
	Summary(ctx context.Context, userID uuid.UUID) (model.CollectionSummary, error)
}

type CollectionServiceImpl struct {
	repo repository.CollectionRepository
	now  func() time.Time
}

func NewCollectionService(repo repository.CollectionRepository) *CollectionServiceImpl {
	return &CollectionServiceImpl{repo: repo, now: time.Now}
}

// Append stores it for userID. Duplicates of the same external item are kept.
func (s *CollectionServiceImpl) Append(ctx context.Context, userID uuid.UUID, it model.CollectibleItem) (model.CollectibleItem, error) {
	if err := prepareItem(&it, userID, s.now); err != nil {
		return model.CollectibleItem{}, err
	}
	if err := s.repo.Append(ctx, &it); err != nil {
		return model.CollectibleItem{}, err
	}
	return it, nil
}

func (s *CollectionServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.CollectibleItem, error) {
	return s.repo.List(ctx, userID)
}

func (s *CollectionServiceImpl) Summary(ctx context.Context, userID uuid.UUID) (model.CollectionSummary, error) {
	return s.repo.Summary(ctx, userID)
}

// prepareItem validates it and fills identity fields.
func prepareItem(it *model.CollectibleItem, userID uuid.UUID, now func() time.Time) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if !it.Rarity.Valid() {
		return fmt.Errorf("%w: rarity %q", errs.ErrValidation, it.Rarity)
	}
	if it.Name == "" {
		return fmt.Errorf("%w: empty item name", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	it.ID, it.UserID = id, userID
	if it.AcquiredAt.IsZero() {
		it.AcquiredAt = now()
	}
	it.AcquiredAt = it.AcquiredAt.UTC()
	return nil
}
