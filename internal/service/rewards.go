package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/taskdex/internal/container"
	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/progression"
	"github.com/and161185/taskdex/internal/rarity"
	"github.com/and161185/taskdex/internal/repository"
)

// DefaultOpeningDelay is the pause between paying and revealing an item.
const DefaultOpeningDelay = 2 * time.Second

// ItemResolver turns a rarity into a concrete item. It must not fail.
type ItemResolver interface {
	Resolve(ctx context.Context, r model.Rarity) model.CollectibleItem
}

// Offer is a container type with the caller's current eligibility.
type Offer struct {
	Type        container.Type
	Eligibility container.Eligibility
}

// RedeemOutcome reports a redemption. Rejected outcomes carry the unmet
// gate and no item.
type RedeemOutcome struct {
	Rejected    bool
	Reason      string
	Eligibility container.Eligibility
	Item        *model.CollectibleItem
	Stats       model.ProgressionStats
}

// RewardService lists and opens reward containers.
type RewardService interface {
	Offers(ctx context.Context, userID uuid.UUID) ([]Offer, error)
	Redeem(ctx context.Context, userID uuid.UUID, kind container.Kind) (RedeemOutcome, error)
}

type RewardServiceImpl struct {
	ledger   *progression.Ledger
	items    repository.CollectionRepository
	sampler  *rarity.Sampler
	resolver ItemResolver
	delay    time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewRewardService constructs RewardService. A negative delay disables the
// opening pause; zero selects DefaultOpeningDelay.
func NewRewardService(
	ledger *progression.Ledger,
	items repository.CollectionRepository,
	sampler *rarity.Sampler,
	resolver ItemResolver,
	delay time.Duration,
	log *zap.Logger,
) *RewardServiceImpl {
	switch {
	case delay == 0:
		delay = DefaultOpeningDelay
	case delay < 0:
		delay = 0
	}
	if sampler == nil {
		sampler = rarity.NewSampler(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RewardServiceImpl{
		ledger: ledger, items: items, sampler: sampler, resolver: resolver,
		delay: delay, now: time.Now, log: log,
	}
}

// Offers lists every container type with its current cost and eligibility.
func (s *RewardServiceImpl) Offers(ctx context.Context, userID uuid.UUID) ([]Offer, error) {
	st, err := s.ledger.For(userID).Stats(ctx)
	if err != nil {
		return nil, err
	}
	types := container.All()
	out := make([]Offer, 0, len(types))
	for _, t := range types {
		out = append(out, Offer{Type: t, Eligibility: t.Check(st.Level, st.CurrentXP)})
	}
	return out, nil
}

// Redeem opens one container of kind. Ineligible requests are returned as
// rejected outcomes with a nil error. Cancelling ctx during the opening
// pause abandons the redemption with nothing spent or stored.
func (s *RewardServiceImpl) Redeem(ctx context.Context, userID uuid.UUID, kind container.Kind) (RedeemOutcome, error) {
	typ, err := container.Lookup(kind)
	if err != nil {
		return RedeemOutcome{}, err
	}
	acct := s.ledger.For(userID)
	st, err := acct.Stats(ctx)
	if err != nil {
		return RedeemOutcome{}, err
	}
	el := typ.Check(st.Level, st.CurrentXP)
	if !el.OK() {
		return rejected(el, st), nil
	}

	rar := s.sampler.Sample(typ.Weights)
	item := s.resolver.Resolve(ctx, rar)
	item.Rarity = rar
	item.ContainerType = string(kind)
	if err := prepareItem(&item, userID, s.now); err != nil {
		return RedeemOutcome{}, err
	}

	if err := s.wait(ctx); err != nil {
		return RedeemOutcome{}, err
	}

	commit := func(ctx context.Context, next model.ProgressionStats) (model.ProgressionStats, error) {
		return s.items.AppendWithSpend(ctx, &item, next)
	}
	// one extra attempt covers a write from another server instance
	for attempt := 1; ; attempt++ {
		saved, err := acct.SpendWith(ctx, el.Cost, commit)
		switch {
		case err == nil:
			s.log.Info("container opened",
				zap.String("user", userID.String()),
				zap.String("kind", string(kind)),
				zap.String("rarity", string(rar)),
				zap.Int("cost", el.Cost),
			)
			return RedeemOutcome{Eligibility: el, Item: &item, Stats: saved}, nil
		case errors.Is(err, errs.ErrInsufficientXP):
			return rejected(typ.Check(saved.Level, saved.CurrentXP), saved), nil
		case errors.Is(err, errs.ErrVersionConflict) && attempt < 2:
			continue
		default:
			return RedeemOutcome{}, fmt.Errorf("redeem %s: %w", kind, err)
		}
	}
}

func (s *RewardServiceImpl) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func rejected(el container.Eligibility, st model.ProgressionStats) RedeemOutcome {
	return RedeemOutcome{Rejected: true, Reason: el.Reason(), Eligibility: el, Stats: st}
}
