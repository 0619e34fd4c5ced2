// internal/schedule/schedule.go
package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// MaxOccurrences bounds the result of OccurrencesBetween. When a window holds more firings,
// the most recent ones are kept.
const MaxOccurrences = 10000

// yearThreshold separates a trailing year field from a leading seconds field in 6-field expressions.
const yearThreshold = 1970

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Normalize reduces a 6-field expression to the 5-field form. A final numeric field above 1970
// is a trailing year and is dropped; otherwise the leading seconds field is dropped.
// Other inputs are returned trimmed and otherwise unchanged.
func Normalize(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 6 {
		return strings.Join(fields, " ")
	}
	if year, err := strconv.Atoi(fields[5]); err == nil && year > yearThreshold {
		return strings.Join(fields[:5], " ")
	}
	return strings.Join(fields[1:], " ")
}

func parse(expr string) (cron.Schedule, bool) {
	norm := Normalize(expr)
	if norm == "" {
		return nil, false
	}
	sched, err := parser.Parse(norm)
	if err != nil {
		return nil, false
	}
	return sched, true
}

// Valid reports whether expr can be scheduled.
func Valid(expr string) bool {
	_, ok := parse(expr)
	return ok
}

// NextOccurrence returns the first firing strictly after from. It returns false for
// unparsable expressions or schedules that never fire again.
func NextOccurrence(expr string, from time.Time) (time.Time, bool) {
	sched, ok := parse(expr)
	if !ok {
		return time.Time{}, false
	}
	next := sched.Next(from.UTC())
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// OccurrencesBetween lists every firing in [start, end), in order. At most MaxOccurrences are
// returned, counted back from end.
func OccurrencesBetween(expr string, start, end time.Time) []time.Time {
	sched, ok := parse(expr)
	if !ok || !end.After(start) {
		return nil
	}
	start, end = start.UTC(), end.UTC()

	var out []time.Time
	cursor := start.Truncate(time.Second).Add(-time.Second)
	for {
		next := sched.Next(cursor)
		if next.IsZero() || !next.Before(end) || !next.After(cursor) {
			break
		}
		if !next.Before(start) {
			out = append(out, next)
			if len(out) == 2*MaxOccurrences {
				out = append(out[:0], out[MaxOccurrences:]...)
			}
		}
		cursor = next
	}
	if len(out) > MaxOccurrences {
		out = append(out[:0], out[len(out)-MaxOccurrences:]...)
	}
	return out
}

// DailyOccurrences returns the first firing of every UTC day in [start, end) that has one.
// Each day is visited at most once and the result is not capped.
func DailyOccurrences(expr string, start, end time.Time) []time.Time {
	sched, ok := parse(expr)
	if !ok || !end.After(start) {
		return nil
	}
	start, end = start.UTC(), end.UTC()

	var out []time.Time
	cursor := start.Truncate(time.Second).Add(-time.Second)
	for {
		next := sched.Next(cursor)
		if next.IsZero() || !next.Before(end) || !next.After(cursor) {
			break
		}
		if !next.Before(start) {
			out = append(out, next)
		}
		y, m, d := next.Date()
		cursor = time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC).Add(-time.Second)
	}
	return out
}

// IsOverdue reports whether a run expected by now has not been recorded.
// An empty expression describes a one-shot campaign.
func IsOverdue(expr string, startTime time.Time, lastExecution *time.Time, now time.Time) bool {
	if now.Before(startTime) {
		return false
	}
	if strings.TrimSpace(expr) == "" {
		return now.After(startTime) && lastExecution == nil
	}

	ref := startTime.Add(-time.Second)
	if lastExecution != nil {
		ref = *lastExecution
	}
	next, ok := NextOccurrence(expr, ref)
	if !ok {
		return false
	}
	return now.After(next)
}
