package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/progression"
	"github.com/and161185/taskdex/internal/repository"
	"github.com/and161185/taskdex/internal/retry"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

/************ users ************/

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	if _, exists := f.byName[u.Username]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byName[u.Username] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

/************ stats ************/

type fakeStats struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]model.ProgressionStats
	saveErrs []error
	saves    int
}

var _ repository.StatsRepository = (*fakeStats)(nil)

func newFakeStats() *fakeStats {
	return &fakeStats{rows: map[uuid.UUID]model.ProgressionStats{}}
}

func (f *fakeStats) Get(_ context.Context, userID uuid.UUID) (model.ProgressionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[userID]
	if !ok {
		s = model.DefaultStats(userID)
		f.rows[userID] = s
	}
	return s, nil
}

func (f *fakeStats) Save(_ context.Context, s model.ProgressionStats) (model.ProgressionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(s)
}

func (f *fakeStats) saveLocked(s model.ProgressionStats) (model.ProgressionStats, error) {
	f.saves++
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return model.ProgressionStats{}, err
		}
	}
	if f.rows[s.UserID].Version != s.Version {
		return model.ProgressionStats{}, errs.ErrVersionConflict
	}
	s.Version++
	f.rows[s.UserID] = s
	return s, nil
}

func (f *fakeStats) set(s model.ProgressionStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.UserID] = s
}

func (f *fakeStats) row(id uuid.UUID) model.ProgressionStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

func newTestLedger(t *testing.T, stats repository.StatsRepository) *progression.Ledger {
	t.Helper()
	return progression.New(stats, progression.Config{
		XPPerLevel: 200,
		Retry:      retry.Policy{Attempts: 3, Backoff: retry.Linear(0)},
		Now:        func() time.Time { return testNow },
	}, zaptest.NewLogger(t))
}

/************ tasks ************/

type fakeTasks struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]model.Task
	setErr  error
	setArgs []bool
}

var _ repository.TaskRepository = (*fakeTasks)(nil)

func newFakeTasks() *fakeTasks { return &fakeTasks{byID: map[uuid.UUID]model.Task{}} }

func (f *fakeTasks) Create(_ context.Context, t *model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTasks) List(_ context.Context, userID uuid.UUID) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.byID {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeTasks) owned(userID, taskID uuid.UUID) (model.Task, error) {
	t, ok := f.byID[taskID]
	if !ok {
		return model.Task{}, errs.ErrNotFound
	}
	if t.UserID != userID {
		return model.Task{}, errs.ErrForbidden
	}
	return t, nil
}

func (f *fakeTasks) Toggle(_ context.Context, userID, taskID uuid.UUID) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.owned(userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	t.Completed = !t.Completed
	f.byID[taskID] = t
	return t, nil
}

func (f *fakeTasks) SetCompleted(_ context.Context, userID, taskID uuid.UUID, completed bool) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setArgs = append(f.setArgs, completed)
	if f.setErr != nil {
		return model.Task{}, f.setErr
	}
	t, err := f.owned(userID, taskID)
	if err != nil {
		return model.Task{}, err
	}
	t.Completed = completed
	f.byID[taskID] = t
	return t, nil
}

func (f *fakeTasks) Delete(_ context.Context, userID, taskID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(userID, taskID); err != nil {
		return err
	}
	delete(f.byID, taskID)
	return nil
}

/************ collection ************/

// fakeCollection shares the stats fake so AppendWithSpend is atomic.
type fakeCollection struct {
	stats     *fakeStats
	items     []model.CollectibleItem
	appendErr error
}

var _ repository.CollectionRepository = (*fakeCollection)(nil)

func (f *fakeCollection) Append(_ context.Context, it *model.CollectibleItem) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.items = append(f.items, *it)
	return nil
}

func (f *fakeCollection) AppendWithSpend(_ context.Context, it *model.CollectibleItem, next model.ProgressionStats) (model.ProgressionStats, error) {
	f.stats.mu.Lock()
	defer f.stats.mu.Unlock()
	if f.appendErr != nil {
		return model.ProgressionStats{}, f.appendErr
	}
	saved, err := f.stats.saveLocked(next)
	if err != nil {
		return model.ProgressionStats{}, err
	}
	f.items = append(f.items, *it)
	return saved, nil
}

func (f *fakeCollection) List(_ context.Context, userID uuid.UUID) ([]model.CollectibleItem, error) {
	var out []model.CollectibleItem
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeCollection) Summary(_ context.Context, userID uuid.UUID) (model.CollectionSummary, error) {
	sum := model.CollectionSummary{ByRarity: map[model.Rarity]int{}}
	seen := map[int]bool{}
	for _, it := range f.items {
		if it.UserID != userID {
			continue
		}
		sum.Total++
		sum.ByRarity[it.Rarity]++
		seen[it.ExternalID] = true
	}
	sum.Distinct = len(seen)
	return sum, nil
}

/************ resolver ************/

type fakeResolver struct {
	mu    sync.Mutex
	calls []model.Rarity
}

func (r *fakeResolver) Resolve(_ context.Context, rar model.Rarity) model.CollectibleItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rar)
	return model.CollectibleItem{ExternalID: 25, Name: "Pikachu", ImageRef: "⚡", Rarity: rar, AcquiredAt: testNow}
}

// fixedSource always returns v.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }
