package progression

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/repository"
	"github.com/and161185/taskdex/internal/retry"
)

// Config tunes the ledger rules.
type Config struct {
	XPPerLevel int
	Location   *time.Location // calendar used for streaks; nil means UTC
	Retry      retry.Policy   // gain persistence policy
	Now        func() time.Time
}

// Ledger hands out per-user accounts backed by a stats repository.
type Ledger struct {
	store    repository.StatsRepository
	cfg      Config
	log      *zap.Logger
	accounts *xsync.MapOf[uuid.UUID, *Account]
}

// New constructs a ledger. Zero config fields take defaults.
func New(store repository.StatsRepository, cfg Config, log *zap.Logger) *Ledger {
	if cfg.XPPerLevel <= 0 {
		cfg.XPPerLevel = DefaultXPPerLevel
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = retry.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store:    store,
		cfg:      cfg,
		log:      log,
		accounts: xsync.NewMapOf[uuid.UUID, *Account](),
	}
}

// XPPerLevel reports the configured level size.
func (l *Ledger) XPPerLevel() int { return l.cfg.XPPerLevel }

// For returns the state handle of userID. Handles are created on demand and
// shared by all callers of this ledger.
func (l *Ledger) For(userID uuid.UUID) *Account {
	a, _ := l.accounts.LoadOrCompute(userID, func() *Account {
		return &Account{l: l, userID: userID}
	})
	a.lastUsed.Store(l.cfg.Now().UnixNano())
	return a
}

// Evict drops the handle of userID; the next For starts from the store.
func (l *Ledger) Evict(userID uuid.UUID) { l.accounts.Delete(userID) }

// EvictIdle drops handles not handed out for at least idle and not busy
// with a mutation. It returns the number of handles dropped.
func (l *Ledger) EvictIdle(idle time.Duration) int {
	cutoff := l.cfg.Now().Add(-idle).UnixNano()
	n := 0
	l.accounts.Range(func(id uuid.UUID, a *Account) bool {
		if a.lastUsed.Load() > cutoff || !a.mu.TryLock() {
			return true
		}
		l.accounts.Compute(id, func(cur *Account, loaded bool) (*Account, bool) {
			if loaded && cur == a && a.lastUsed.Load() <= cutoff {
				n++
				return cur, true
			}
			return cur, !loaded
		})
		a.mu.Unlock()
		return true
	})
	return n
}

// RunEviction calls EvictIdle every idle/2 until ctx is done. A
// non-positive idle disables eviction.
func (l *Ledger) RunEviction(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}
	t := time.NewTicker(idle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := l.EvictIdle(idle); n > 0 {
				l.log.Debug("idle accounts evicted", zap.Int("count", n))
			}
		}
	}
}

func (l *Ledger) today() time.Time { return CalendarDate(l.cfg.Now(), l.cfg.Location) }

// Account serializes all progression mutations of one user. Its cached
// state only ever holds values the store has confirmed.
type Account struct {
	l      *Ledger
	userID uuid.UUID

	mu       sync.Mutex
	cached   *model.ProgressionStats
	lastUsed atomic.Int64 // unix nanos of the last For
}

// GainResult describes a committed gain.
type GainResult struct {
	Stats       model.ProgressionStats
	XP          int
	LevelBefore int
	LevelAfter  int
	LeveledUp   bool
}

// Commit persists next (whose Version is the expected stored version) and
// returns the stored row.
type Commit func(ctx context.Context, next model.ProgressionStats) (model.ProgressionStats, error)

func (a *Account) load(ctx context.Context) (model.ProgressionStats, error) {
	if a.cached != nil {
		return *a.cached, nil
	}
	s, err := a.l.store.Get(ctx, a.userID)
	if err != nil {
		return model.ProgressionStats{}, err
	}
	a.cached = &s
	return s, nil
}

// reconcile replaces the cache with authoritative store state.
func (a *Account) reconcile(ctx context.Context) {
	a.cached = nil
	s, err := a.l.store.Get(ctx, a.userID)
	if err != nil {
		a.l.log.Warn("stats reconcile failed", zap.String("user", a.userID.String()), zap.Error(err))
		return
	}
	a.cached = &s
}

// Stats returns the committed stats.
func (a *Account) Stats(ctx context.Context) (model.ProgressionStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

// Refresh re-reads the stats from the store.
func (a *Account) Refresh(ctx context.Context) (model.ProgressionStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = nil
	return a.load(ctx)
}

// Gain credits xp for a completed task. Persistence is retried under the
// ledger's policy; a version conflict reloads the stored row before the
// next attempt. When every attempt fails the handle is reconciled with the
// store and an error wrapping errs.ErrPersistFailed is returned.
func (a *Account) Gain(ctx context.Context, xp int) (GainResult, error) {
	if xp < 0 {
		return GainResult{}, fmt.Errorf("%w: negative xp", errs.ErrValidation)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	base, err := a.load(ctx)
	if err != nil {
		return GainResult{}, err
	}
	today := a.l.today()

	var (
		saved   model.ProgressionStats
		before  int
		attempt int
	)
	err = a.l.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		next := ApplyGain(base, xp, today, a.l.cfg.XPPerLevel)
		s, err := a.l.store.Save(ctx, next)
		if err == nil {
			saved, before = s, base.Level
			return nil
		}
		a.l.log.Warn("stats gain persist failed",
			zap.String("user", a.userID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if errors.Is(err, errs.ErrVersionConflict) {
			if fresh, gerr := a.l.store.Get(ctx, a.userID); gerr == nil {
				base = fresh
			}
		}
		return err
	})
	if err != nil {
		a.reconcile(ctx)
		return GainResult{}, fmt.Errorf("%w: %w", errs.ErrPersistFailed, err)
	}

	a.cached = &saved
	return GainResult{
		Stats:       saved,
		XP:          xp,
		LevelBefore: before,
		LevelAfter:  saved.Level,
		LeveledUp:   saved.Level > before,
	}, nil
}

// Spend debits cost with a single persist attempt.
func (a *Account) Spend(ctx context.Context, cost int) (model.ProgressionStats, error) {
	return a.SpendWith(ctx, cost, nil)
}

// SpendWith debits cost and persists through commit, which lets the caller
// write the spend together with other records. The balance is re-checked
// under the account lock; a short balance yields errs.ErrInsufficientXP.
// Failures are not retried: the cache is dropped and the error returned.
func (a *Account) SpendWith(ctx context.Context, cost int, commit Commit) (model.ProgressionStats, error) {
	if cost < 0 {
		return model.ProgressionStats{}, fmt.Errorf("%w: negative cost", errs.ErrValidation)
	}
	if commit == nil {
		commit = a.l.store.Save
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	base, err := a.load(ctx)
	if err != nil {
		return model.ProgressionStats{}, err
	}
	if base.CurrentXP < cost {
		return base, fmt.Errorf("%w: have %d, need %d", errs.ErrInsufficientXP, base.CurrentXP, cost)
	}

	saved, err := commit(ctx, ApplySpend(base, cost))
	if err != nil {
		a.cached = nil
		return model.ProgressionStats{}, err
	}
	a.cached = &saved
	return saved, nil
}
