// Package period resolves reference dates into reporting windows.
//
// Every Window is stored half-open, [Start, End). Windows that are inclusive of their
// last day (quarters, school months) are built by moving End to the day after.
package period

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

type Mode string

const (
	ModeQuarter       Mode = "quarter"
	ModeCalendarMonth Mode = "calendar"
	ModeSchoolMonth   Mode = "school"

	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

var errEndBeforeStart = errors.New("end date must not be before start date")

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"` // exclusive
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Last returns the last day included in the window.
func (w Window) Last() time.Time {
	return w.End.AddDate(0, 0, -1)
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return core.NewValidationError(errors.New("window bounds are required"))
	}
	if !w.Start.Before(w.End) {
		return core.NewValidationError(errEndBeforeStart)
	}
	return nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FromQuarter passes a stored quarter through as a window covering
// both its start and end dates.
func FromQuarter(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, core.NewValidationError(errors.New("quarter bounds are required"))
	}
	if end.Before(start) {
		return Window{}, core.NewValidationError(errEndBeforeStart)
	}
	return Window{Start: day(start), End: day(end).AddDate(0, 0, 1)}, nil
}

// CalendarMonth returns [first day of the month, first day of next month).
func CalendarMonth(ref time.Time) Window {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return Window{Start: first, End: first.AddDate(0, 1, 0)}
}

// SchoolMonth returns the Monday-to-Sunday aligned window of the month of ref:
// from the first Monday on or after the 1st, to the last Sunday on or before the month end.
func SchoolMonth(ref time.Time) Window {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	firstMonday := first.AddDate(0, 0, (8-int(first.Weekday()))%7)

	last := first.AddDate(0, 1, -1)
	lastSunday := last.AddDate(0, 0, -int(last.Weekday()))

	return Window{Start: firstMonday, End: lastSunday.AddDate(0, 0, 1)}
}

// Resolve resolves ref into the window of the given month mode.
// Quarter windows come from stored quarters, see FromQuarter.
func Resolve(ref time.Time, mode Mode) (Window, error) {
	switch mode {
	case ModeCalendarMonth:
		return CalendarMonth(ref), nil
	case ModeSchoolMonth:
		return SchoolMonth(ref), nil
	case ModeQuarter:
		return Window{}, core.NewValidationError(nil, core.FieldError{Field: "mode", Error: "quarter windows are resolved from a stored quarter"})
	default:
		return Window{}, core.NewValidationError(nil, core.FieldError{Field: "mode", Error: "unknown period mode"})
	}
}

// ParseMonth parses a "YYYY-MM", "YYYY-MM-DD" or RFC3339 reference date in loc.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range []string{monthLayout, dayLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "month", Error: "invalid month: " + s})
	}
	return t.In(loc), nil
}

// MonthKey formats t as the "YYYY-MM" key KPIs and pricings are stored under.
func MonthKey(t time.Time) string {
	return t.Format(monthLayout)
}
