package progression

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/taskdex/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestApplyGain_LevelArithmetic(t *testing.T) {
	t.Parallel()

	today := day(2026, 3, 10)
	for cur := 0; cur < DefaultXPPerLevel; cur += 37 {
		for _, xp := range []int{0, 1, 15, 199, 200, 201, 650} {
			s := model.ProgressionStats{Level: 3, CurrentXP: cur, TotalXP: 1000, Streak: 1}
			got := ApplyGain(s, xp, today, DefaultXPPerLevel)
			require.Equal(t, (cur+xp)%DefaultXPPerLevel, got.CurrentXP, "cur=%d xp=%d", cur, xp)
			require.Equal(t, 3+(cur+xp)/DefaultXPPerLevel, got.Level, "cur=%d xp=%d", cur, xp)
			require.Equal(t, 1000+xp, got.TotalXP)
		}
	}
}

func TestApplyGain_HighTaskCrossesLevel(t *testing.T) {
	t.Parallel()

	s := model.ProgressionStats{Level: 1, CurrentXP: 190, TotalXP: 190, Streak: 1}
	got := ApplyGain(s, 30, day(2026, 3, 10), 200)
	require.Equal(t, 20, got.CurrentXP)
	require.Equal(t, 2, got.Level)
	require.Equal(t, 220, got.TotalXP)
}

func TestApplyGain_DefaultsNonPositivePerLevel(t *testing.T) {
	t.Parallel()

	got := ApplyGain(model.ProgressionStats{Level: 1, Streak: 1}, 250, day(2026, 1, 1), 0)
	require.Equal(t, 2, got.Level)
	require.Equal(t, 50, got.CurrentXP)
}

func TestApplyGain_SetsLastCompletionDate(t *testing.T) {
	t.Parallel()

	today := day(2026, 3, 10)
	got := ApplyGain(model.DefaultStats(uuid.Nil), 10, today, 200)
	require.NotNil(t, got.LastCompletionDate)
	require.True(t, got.LastCompletionDate.Equal(today))
	require.Equal(t, 1, got.Streak)
}

func TestNextStreak(t *testing.T) {
	t.Parallel()

	today := day(2026, 3, 10)
	ptr := func(t time.Time) *time.Time { return &t }

	cases := []struct {
		name   string
		streak int
		last   *time.Time
		want   int
	}{
		{"first completion", 1, nil, 1},
		{"first completion with stale streak", 7, nil, 1},
		{"same day unchanged", 4, ptr(today), 4},
		{"same day clamps to one", 0, ptr(today), 1},
		{"yesterday increments", 4, ptr(day(2026, 3, 9)), 5},
		{"old date resets", 2, ptr(day(2026, 2, 28)), 1},
		{"skipped a day resets", 9, ptr(day(2026, 3, 8)), 1},
		{"future date resets", 3, ptr(day(2026, 3, 11)), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NextStreak(tc.streak, tc.last, today))
		})
	}

	march1 := day(2026, 3, 1)
	require.Equal(t, 3, NextStreak(2, ptr(day(2026, 2, 28)), march1))
}

func TestStreakLaw_Sequence(t *testing.T) {
	t.Parallel()

	s := model.ProgressionStats{Level: 1, Streak: 1}
	s = ApplyGain(s, 10, day(2026, 5, 1), 200)
	require.Equal(t, 1, s.Streak)
	s = ApplyGain(s, 10, day(2026, 5, 1), 200)
	require.Equal(t, 1, s.Streak)
	s = ApplyGain(s, 10, day(2026, 5, 2), 200)
	require.Equal(t, 2, s.Streak)
	s = ApplyGain(s, 10, day(2026, 5, 3), 200)
	require.Equal(t, 3, s.Streak)
	s = ApplyGain(s, 10, day(2026, 5, 5), 200)
	require.Equal(t, 1, s.Streak)
}

func TestApplySpend(t *testing.T) {
	t.Parallel()

	last := day(2026, 1, 2)
	s := model.ProgressionStats{Level: 4, CurrentXP: 120, TotalXP: 900, Streak: 3, LastCompletionDate: &last}

	got := ApplySpend(s, 50)
	require.Equal(t, 70, got.CurrentXP)
	require.Equal(t, s.Level, got.Level)
	require.Equal(t, s.TotalXP, got.TotalXP)
	require.Equal(t, s.Streak, got.Streak)
	require.Equal(t, s.LastCompletionDate, got.LastCompletionDate)

	require.Zero(t, ApplySpend(s, 500).CurrentXP)
}

func TestCalendarDate_UsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*3600)
	ts := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)
	require.True(t, CalendarDate(ts, loc).Equal(day(2026, 3, 11)))
	require.True(t, CalendarDate(ts, nil).Equal(day(2026, 3, 10)))
}
