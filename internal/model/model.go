// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account known to the auth provider.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	PwdHash   string    // encoded argon2id hash
	CreatedAt time.Time
}

// Priority is the importance tier of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ParsePriority parses a case-insensitive priority name.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %q", s)
	}
	return p, nil
}

// Task is a single to-do item owned by a user.
type Task struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Completed bool
	Priority  Priority
	XPReward  int // frozen at creation
	CreatedAt time.Time
}

// Rarity ranks collectible desirability.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// Rarities returns all tiers from lowest to highest.
func Rarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityLegendary}
}

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityLegendary:
		return true
	default:
		return false
	}
}

// RarityWeights is a probability distribution over rarity tiers.
type RarityWeights struct {
	Common    float64
	Rare      float64
	Legendary float64
}

// CollectibleItem is an acquired reward. Records are never updated.
type CollectibleItem struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ExternalID    int
	Name          string
	ImageRef      string
	Rarity        Rarity
	ContainerType string // empty when appended outside a redemption
	AcquiredAt    time.Time
}

// CollectionSummary aggregates a user's collection.
type CollectionSummary struct {
	Total    int
	Distinct int // distinct external ids
	ByRarity map[Rarity]int
}

// ProgressionStats is the per-user progression singleton.
type ProgressionStats struct {
	UserID             uuid.UUID
	Level              int
	CurrentXP          int
	TotalXP            int
	Streak             int
	LastCompletionDate *time.Time // calendar date, midnight UTC
	Version            int64      // compare-and-swap counter
	UpdatedAt          time.Time
}

// DefaultStats returns the stats a user starts with.
func DefaultStats(userID uuid.UUID) ProgressionStats {
	return ProgressionStats{UserID: userID, Level: 1, Streak: 1}
}
