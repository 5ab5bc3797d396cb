package condition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// TimeWindow is satisfied when the context timestamp falls inside a
// daily window.
//
// Spec: {"type":"time_window","start":"22:00","end":"06:00","days":["mon","tue"],
// "timezone":"Europe/London"}
//
// start is inclusive and end exclusive. A window whose end is before its
// start wraps midnight; days then refers to the day the window opened.
type TimeWindow struct{}

// Evaluate checks the window.
func (TimeWindow) Evaluate(_ context.Context, spec automation.Spec, ec automation.ExecutionContext) (bool, error) {
	start, err := parseClock(spec.String("start"))
	if err != nil {
		return false, err
	}
	end, err := parseClock(spec.String("end"))
	if err != nil {
		return false, err
	}

	ts := ec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if tz := spec.String("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return false, fmt.Errorf("%w: timezone %q: %w", ErrInvalidWindow, tz, err)
		}
		ts = ts.In(loc)
	}

	days, err := parseDays(spec.Strings("days"))
	if err != nil {
		return false, err
	}

	now := ts.Hour()*60 + ts.Minute()
	day := ts.Weekday()

	switch {
	case start == end:
		return days.has(day), nil
	case start < end:
		return now >= start && now < end && days.has(day), nil
	case now >= start:
		return days.has(day), nil
	case now < end:
		return days.has((day + 6) % 7), nil
	}
	return false, nil
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidWindow, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

type daySet map[time.Weekday]bool

// has reports membership; an empty set means every day.
func (d daySet) has(w time.Weekday) bool {
	return len(d) == 0 || d[w]
}

func parseDays(names []string) (daySet, error) {
	set := make(daySet, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if len(key) > 3 {
			key = key[:3]
		}
		w, ok := weekdays[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown day %q", ErrInvalidWindow, n)
		}
		set[w] = true
	}
	return set, nil
}
