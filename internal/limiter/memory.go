package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type attempts struct {
	mu           sync.Mutex
	fails        int
	windowStart  time.Time
	blockedUntil time.Time
}

// Memory is a process-local limiter.
type Memory struct {
	p    Policy
	now  func() time.Time
	keys *xsync.MapOf[string, *attempts]
}

// NewMemory constructs an in-memory limiter. now may be nil.
func NewMemory(p Policy, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{p: p.normalized(), now: now, keys: xsync.NewMapOf[string, *attempts]()}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	a, ok := m.keys.Load(key)
	if !ok {
		return true, 0, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if now := m.now(); a.blockedUntil.After(now) {
		return false, a.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (m *Memory) Success(_ context.Context, key string) error {
	m.keys.Delete(key)
	return nil
}

func (m *Memory) Failure(_ context.Context, key string) (bool, time.Duration, error) {
	a, _ := m.keys.LoadOrCompute(key, func() *attempts { return &attempts{} })
	a.mu.Lock()
	defer a.mu.Unlock()

	now := m.now()
	if a.fails == 0 || now.Sub(a.windowStart) > m.p.Window {
		a.fails, a.windowStart = 0, now
	}
	a.fails++
	if a.fails >= m.p.MaxFailures {
		a.blockedUntil = now.Add(m.p.BlockFor)
		a.fails = 0
		return true, m.p.BlockFor, nil
	}
	return false, 0, nil
}
