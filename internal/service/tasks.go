package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/progression"
	"github.com/and161185/taskdex/internal/repository"
)

// MaxTitleLen is the longest accepted task title, in characters.
const MaxTitleLen = 200

// RewardTable maps a priority to the XP a task of that priority awards.
type RewardTable map[model.Priority]int

// StandardRewards is the default table.
func StandardRewards() RewardTable {
	return RewardTable{model.PriorityLow: 15, model.PriorityMedium: 20, model.PriorityHigh: 30}
}

// SimplifiedRewards is the alternative table.
func SimplifiedRewards() RewardTable {
	return RewardTable{model.PriorityLow: 10, model.PriorityMedium: 20, model.PriorityHigh: 35}
}

// RewardTableByName resolves "standard" or "simplified"; empty means standard.
func RewardTableByName(name string) (RewardTable, error) {
	switch strings.ToLower(name) {
	case "", "standard":
		return StandardRewards(), nil
	case "simplified":
		return SimplifiedRewards(), nil
	default:
		return nil, fmt.Errorf("unknown reward table %q", name)
	}
}

// ToggleResult is the task after a toggle plus the XP gain it caused, if any.
type ToggleResult struct {
	Task model.Task
	Gain *progression.GainResult // nil unless the task became completed
}

// TaskService manages a user's tasks and credits XP on completion.
type TaskService interface {
	Create(ctx context.Context, userID uuid.UUID, title string, p model.Priority) (model.Task, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Task, error)
	Toggle(ctx context.Context, userID, taskID uuid.UUID) (ToggleResult, error)
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
}

type TaskServiceImpl struct {
	repo    repository.TaskRepository
	ledger  *progression.Ledger
	rewards RewardTable
	now     func() time.Time
	log     *zap.Logger
}

// NewTaskService constructs TaskService. A nil reward table means StandardRewards.
func NewTaskService(repo repository.TaskRepository, ledger *progression.Ledger, rewards RewardTable, log *zap.Logger) *TaskServiceImpl {
	if rewards == nil {
		rewards = StandardRewards()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskServiceImpl{repo: repo, ledger: ledger, rewards: rewards, now: time.Now, log: log}
}

// Create validates the title and priority and freezes the XP reward.
func (s *TaskServiceImpl) Create(ctx context.Context, userID uuid.UUID, title string, p model.Priority) (model.Task, error) {
	if userID == uuid.Nil {
		return model.Task{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: empty title", errs.ErrValidation)
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return model.Task{}, fmt.Errorf("%w: title longer than %d", errs.ErrValidation, MaxTitleLen)
	}
	if !p.Valid() {
		return model.Task{}, fmt.Errorf("%w: priority %q", errs.ErrValidation, p)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Priority:  p,
		XPReward:  s.rewards[p],
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, &t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// List returns the user's tasks newest first.
func (s *TaskServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	return s.repo.List(ctx, userID)
}

// Toggle flips completion. Only a false→true transition credits XP, and
// uncompleting never takes XP back. When the credit cannot be persisted
// the flip is reverted so the task and the stats stay consistent.
func (s *TaskServiceImpl) Toggle(ctx context.Context, userID, taskID uuid.UUID) (ToggleResult, error) {
	t, err := s.repo.Toggle(ctx, userID, taskID)
	if err != nil {
		return ToggleResult{}, err
	}
	if !t.Completed {
		return ToggleResult{Task: t}, nil
	}

	gain, err := s.ledger.For(userID).Gain(ctx, t.XPReward)
	if err != nil {
		if _, rerr := s.repo.SetCompleted(context.WithoutCancel(ctx), userID, taskID, false); rerr != nil {
			s.log.Error("task completion revert failed",
				zap.String("user", userID.String()),
				zap.String("task", taskID.String()),
				zap.Error(rerr),
			)
		}
		return ToggleResult{}, fmt.Errorf("credit xp: %w", err)
	}
	return ToggleResult{Task: t, Gain: &gain}, nil
}

// Delete removes a task. Stats are never touched.
func (s *TaskServiceImpl) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	return s.repo.Delete(ctx, userID, taskID)
}
