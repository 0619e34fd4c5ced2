package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-monitor/internal/schedule"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"0 9 * * MON":        "0 9 * * MON",
		"  0  9 * *   MON ":  "0 9 * * MON",
		"30 0 9 * * MON":     "0 9 * * MON",
		"0 9 * * MON 2025":   "0 9 * * MON",
		"0 0 9 * * 5":        "0 9 * * 5",
		"@daily":             "@daily",
		"":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, schedule.Normalize(in), in)
	}
}

func TestNextOccurrence(t *testing.T) {
	next, ok := schedule.NextOccurrence("0 9 * * MON", at(2024, 1, 1, 9, 0))
	require.True(t, ok)
	assert.Equal(t, at(2024, 1, 8, 9, 0), next)

	next, ok = schedule.NextOccurrence("0 0 9 * * MON", at(2024, 1, 1, 0, 0))
	require.True(t, ok)
	assert.Equal(t, at(2024, 1, 1, 9, 0), next)

	_, ok = schedule.NextOccurrence("not a cron", at(2024, 1, 1, 0, 0))
	assert.False(t, ok)
	_, ok = schedule.NextOccurrence("", at(2024, 1, 1, 0, 0))
	assert.False(t, ok)
}

func TestOccurrencesBetween(t *testing.T) {
	got := schedule.OccurrencesBetween("0 9 * * MON", at(2024, 1, 1, 0, 0), at(2024, 1, 22, 0, 0))
	assert.Equal(t, []time.Time{at(2024, 1, 1, 9, 0), at(2024, 1, 8, 9, 0), at(2024, 1, 15, 9, 0)}, got)
}

func TestOccurrencesBetweenIsHalfOpen(t *testing.T) {
	got := schedule.OccurrencesBetween("0 9 * * *", at(2024, 1, 1, 9, 0), at(2024, 1, 3, 9, 0))
	assert.Equal(t, []time.Time{at(2024, 1, 1, 9, 0), at(2024, 1, 2, 9, 0)}, got)
}

func TestOccurrencesBetweenDegenerate(t *testing.T) {
	assert.Empty(t, schedule.OccurrencesBetween("bogus * *", at(2024, 1, 1, 0, 0), at(2024, 2, 1, 0, 0)))
	assert.Empty(t, schedule.OccurrencesBetween("0 9 * * *", at(2024, 2, 1, 0, 0), at(2024, 1, 1, 0, 0)))
	assert.Empty(t, schedule.OccurrencesBetween("0 9 31 2 *", at(2024, 1, 1, 0, 0), at(2024, 12, 1, 0, 0)))
}

func TestOccurrencesBetweenKeepsMostRecent(t *testing.T) {
	end := at(2024, 1, 1, 0, 0)
	got := schedule.OccurrencesBetween("* * * * *", at(2020, 1, 1, 0, 0), end)
	require.Len(t, got, schedule.MaxOccurrences)
	assert.Equal(t, end.Add(-time.Minute), got[len(got)-1])
	assert.Equal(t, end.Add(-schedule.MaxOccurrences*time.Minute), got[0])
}

func TestDailyOccurrences(t *testing.T) {
	got := schedule.DailyOccurrences("0 9 * * MON", at(2024, 1, 1, 0, 0), at(2024, 1, 22, 0, 0))
	assert.Equal(t, []time.Time{at(2024, 1, 1, 9, 0), at(2024, 1, 8, 9, 0), at(2024, 1, 15, 9, 0)}, got)
}

func TestDailyOccurrencesIsHalfOpen(t *testing.T) {
	got := schedule.DailyOccurrences("0 9 * * *", at(2024, 1, 1, 9, 0), at(2024, 1, 3, 9, 0))
	assert.Equal(t, []time.Time{at(2024, 1, 1, 9, 0), at(2024, 1, 2, 9, 0)}, got)
}

func TestDailyOccurrencesDegenerate(t *testing.T) {
	assert.Empty(t, schedule.DailyOccurrences("bogus * *", at(2024, 1, 1, 0, 0), at(2024, 2, 1, 0, 0)))
	assert.Empty(t, schedule.DailyOccurrences("0 9 * * *", at(2024, 2, 1, 0, 0), at(2024, 1, 1, 0, 0)))
	assert.Empty(t, schedule.DailyOccurrences("0 9 31 2 *", at(2024, 1, 1, 0, 0), at(2024, 12, 1, 0, 0)))
}

func TestDailyOccurrencesKeepsFirstFiringOfEachDay(t *testing.T) {
	got := schedule.DailyOccurrences("0 * * * *", at(2024, 1, 1, 10, 30), at(2024, 1, 3, 0, 0))
	assert.Equal(t, []time.Time{at(2024, 1, 1, 11, 0), at(2024, 1, 2, 0, 0)}, got)
}

func TestDailyOccurrencesCoversLongDenseWindows(t *testing.T) {
	got := schedule.DailyOccurrences("* * * * *", at(2020, 1, 1, 0, 0), at(2024, 1, 1, 0, 0))
	require.Len(t, got, 1461)
	assert.Equal(t, at(2020, 1, 1, 0, 0), got[0])
	assert.Equal(t, at(2023, 12, 31, 0, 0), got[len(got)-1])

	hourly := schedule.DailyOccurrences("0 * * * *", at(2023, 1, 1, 0, 0), at(2024, 6, 1, 0, 0))
	require.Len(t, hourly, 517)
	assert.Equal(t, at(2024, 5, 31, 0, 0), hourly[len(hourly)-1])
}

func TestIsOverdue(t *testing.T) {
	start := at(2024, 1, 1, 0, 0)
	monday9 := at(2024, 1, 1, 9, 0)

	t.Run("not started", func(t *testing.T) {
		assert.False(t, schedule.IsOverdue("", start, nil, start.Add(-time.Hour)))
		assert.False(t, schedule.IsOverdue("0 9 * * MON", start, nil, start.Add(-time.Hour)))
	})
	t.Run("one shot without executions", func(t *testing.T) {
		assert.True(t, schedule.IsOverdue("", start, nil, start.Add(time.Minute)))
	})
	t.Run("one shot that ran", func(t *testing.T) {
		ran := start.Add(time.Minute)
		assert.False(t, schedule.IsOverdue("", start, &ran, start.Add(time.Hour)))
	})
	t.Run("recurrent before first firing", func(t *testing.T) {
		assert.False(t, schedule.IsOverdue("0 9 * * MON", start, nil, at(2024, 1, 1, 8, 0)))
	})
	t.Run("recurrent first firing missed", func(t *testing.T) {
		assert.True(t, schedule.IsOverdue("0 9 * * MON", start, nil, at(2024, 1, 1, 10, 0)))
	})
	t.Run("recurrent last run recent", func(t *testing.T) {
		assert.False(t, schedule.IsOverdue("0 9 * * MON", start, &monday9, at(2024, 1, 5, 0, 0)))
	})
	t.Run("recurrent next run missed", func(t *testing.T) {
		assert.True(t, schedule.IsOverdue("0 9 * * MON", start, &monday9, at(2024, 1, 8, 9, 1)))
	})
	t.Run("unparsable", func(t *testing.T) {
		assert.False(t, schedule.IsOverdue("nope", start, nil, at(2025, 1, 1, 0, 0)))
	})
}

func TestIsOverdueIsMonotonic(t *testing.T) {
	start := at(2024, 1, 1, 0, 0)
	last := at(2024, 1, 1, 9, 0)
	exprs := []string{"", "0 9 * * MON", "*/15 * * * *", "0 0 1 * *"}

	for _, expr := range exprs {
		var lastExec *time.Time
		if expr != "" {
			lastExec = &last
		}
		overdue := false
		for now := start; now.Before(at(2024, 3, 1, 0, 0)); now = now.Add(37 * time.Minute) {
			got := schedule.IsOverdue(expr, start, lastExec, now)
			if overdue {
				require.True(t, got, "expr %q became not overdue at %s", expr, now)
			}
			overdue = got
		}
	}
}
