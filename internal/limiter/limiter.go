// Package limiter throttles repeated failed sign-in attempts.
package limiter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"time"
)

// Limiter tracks failures per key and places temporary blocks.
type Limiter interface {
	// Allow reports whether an attempt is currently allowed and, if not,
	// how long until the block lifts.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	// Success clears the failure history for key.
	Success(ctx context.Context, key string) error
	// Failure records a failed attempt and reports whether key is now blocked.
	Failure(ctx context.Context, key string) (bool, time.Duration, error)
}

// Policy configures thresholds shared by all implementations.
type Policy struct {
	MaxFailures int           // failures within Window that trigger a block
	Window      time.Duration // failures older than this are forgotten
	BlockFor    time.Duration
}

// DefaultPolicy allows five failures per fifteen minutes.
func DefaultPolicy() Policy {
	return Policy{MaxFailures: 5, Window: 15 * time.Minute, BlockFor: 15 * time.Minute}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxFailures <= 0 {
		p.MaxFailures = def.MaxFailures
	}
	if p.Window <= 0 {
		p.Window = def.Window
	}
	if p.BlockFor <= 0 {
		p.BlockFor = def.BlockFor
	}
	return p
}

// Key builds a throttle key from a username and the caller's address.
// The address is hashed so raw peers are never stored.
func Key(username, addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	h := sha256.Sum256([]byte(addr))
	return username + "|" + hex.EncodeToString(h[:8])
}

// Nop never blocks.
type Nop struct{}

func (Nop) Allow(context.Context, string) (bool, time.Duration, error)   { return true, 0, nil }
func (Nop) Success(context.Context, string) error                        { return nil }
func (Nop) Failure(context.Context, string) (bool, time.Duration, error) { return false, 0, nil }
