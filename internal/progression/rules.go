// Package progression owns every mutation of a user's level, XP and streak.
package progression

import (
	"time"

	"github.com/and161185/taskdex/internal/model"
)

// DefaultXPPerLevel is the XP needed to advance one level.
const DefaultXPPerLevel = 200

// CalendarDate returns the civil date of t in loc as midnight UTC.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak computes the streak after a completion on today.
func NextStreak(streak int, last *time.Time, today time.Time) int {
	if last == nil {
		return 1
	}
	switch {
	case last.Equal(today):
		return max(streak, 1)
	case last.Equal(today.AddDate(0, 0, -1)):
		return max(streak, 1) + 1
	default:
		// gap of two or more days, or a date from the future
		return 1
	}
}

// ApplyGain credits xp and converts overflow into level-ups.
// xp must be non-negative.
func ApplyGain(s model.ProgressionStats, xp int, today time.Time, perLevel int) model.ProgressionStats {
	if perLevel <= 0 {
		perLevel = DefaultXPPerLevel
	}
	s.TotalXP += xp
	s.CurrentXP += xp
	for s.CurrentXP >= perLevel {
		s.CurrentXP -= perLevel
		s.Level++
	}
	s.Streak = NextStreak(s.Streak, s.LastCompletionDate, today)
	d := today
	s.LastCompletionDate = &d
	return s
}

// ApplySpend debits cost from the spendable balance, clamped at zero.
func ApplySpend(s model.ProgressionStats, cost int) model.ProgressionStats {
	s.CurrentXP = max(0, s.CurrentXP-cost)
	return s
}
