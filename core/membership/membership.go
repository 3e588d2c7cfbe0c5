// Package membership rebuilds a student's group membership history from transfer events.
package membership

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

// Event is a single move of a student from one group to another.
type Event struct {
	StudentID   string
	FromGroupID string
	ToGroupID   string
	Date        time.Time
}

// Range is a membership interval. From is inclusive, To exclusive; nil means unbounded.
type Range struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

func (r Range) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && !t.Before(*r.To) {
		return false
	}
	return true
}

// RangeSet is a disjunction of ranges: a date belongs to the set if any range contains it.
type RangeSet []Range

// Unbounded is the membership of a student that never moved in or out of a group.
func Unbounded() RangeSet {
	return RangeSet{{}}
}

func (rs RangeSet) IsUnbounded() bool {
	return len(rs) == 1 && rs[0].From == nil && rs[0].To == nil
}

func (rs RangeSet) Contains(t time.Time) bool {
	for _, r := range rs {
		if r.Contains(t) {
			return true
		}
	}
	return false
}

func sortEvents(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}

// Resolve returns the ranges during which studentID belonged to groupID.
// Events of other students are ignored. With no event touching the group
// the membership is unbounded.
func Resolve(studentID, groupID string, events []Event) RangeSet {
	var touching []Event
	for _, ev := range sortEvents(events) {
		if ev.StudentID != studentID {
			continue
		}
		if ev.FromGroupID == groupID || ev.ToGroupID == groupID {
			touching = append(touching, ev)
		}
	}
	if len(touching) == 0 {
		return Unbounded()
	}

	var (
		ranges RangeSet
		start  *time.Time
	)
	// leaving first means the student was there since forever
	inGroup := touching[0].FromGroupID == groupID
	for i := range touching {
		ev := touching[i]
		date := ev.Date
		switch {
		case ev.FromGroupID == groupID:
			if inGroup {
				ranges = append(ranges, Range{From: start, To: &date})
			}
			inGroup = false
		case ev.ToGroupID == groupID:
			if !inGroup {
				start = &date
			}
			inGroup = true
		}
	}
	if inGroup {
		ranges = append(ranges, Range{From: start})
	}
	if ranges == nil {
		return RangeSet{}
	}
	return ranges
}

// Timeline is the ordered, immutable transfer history of students.
// Membership intervals are derived on demand.
type Timeline struct {
	byStudent map[string][]Event
}

func NewTimeline(events []Event) Timeline {
	tl := Timeline{byStudent: make(map[string][]Event)}
	for _, ev := range sortEvents(events) {
		tl.byStudent[ev.StudentID] = append(tl.byStudent[ev.StudentID], ev)
	}
	return tl
}

// History returns the student's events by ascending date.
func (tl Timeline) History(studentID string) []Event {
	return tl.byStudent[studentID]
}

func (tl Timeline) Membership(studentID, groupID string) RangeSet {
	return Resolve(studentID, groupID, tl.byStudent[studentID])
}

var (
	errSameGroup    = errors.New("a student cannot be transferred to the group they are leaving")
	errNotIncreased = errors.New("a transfer must postdate the student's previous transfer")
)

// ValidateNext checks that next can be appended to the student's history
// without breaking the contiguity of their membership intervals.
func ValidateNext(history []Event, next Event) error {
	if next.Date.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "transfer date is required"})
	}
	if next.FromGroupID == next.ToGroupID {
		return core.NewValidationError(errSameGroup, core.FieldError{Field: "to_group", Error: errSameGroup.Error()})
	}

	var own []Event
	for _, ev := range history {
		if ev.StudentID == next.StudentID {
			own = append(own, ev)
		}
	}
	if len(own) == 0 {
		return nil
	}
	last := sortEvents(own)[len(own)-1]
	if !next.Date.After(last.Date) {
		return core.NewValidationError(errNotIncreased, core.FieldError{Field: "date", Error: errNotIncreased.Error()})
	}
	if last.ToGroupID != next.FromGroupID {
		return core.NewConflictError("student was last transferred to group %q, not %q", last.ToGroupID, next.FromGroupID)
	}
	return nil
}
