package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/alama/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve_noTransfersIsUnbounded(t *testing.T) {
	events := []Event{
		{StudentID: "other", FromGroupID: "A", ToGroupID: "B", Date: date(2024, 2, 1)},
		{StudentID: "s1", FromGroupID: "C", ToGroupID: "D", Date: date(2024, 2, 1)},
	}
	for _, groupID := range []string{"A", "B", "Z"} {
		rs := Resolve("s1", groupID, events)
		if !rs.IsUnbounded() {
			t.Errorf("Resolve(%s) = %v, want unbounded", groupID, rs)
		}
		assert.True(t, rs.Contains(date(1990, 1, 1)))
		assert.True(t, rs.Contains(date(2090, 1, 1)))
	}
}

func TestResolve_singleTransferPartitionsLessons(t *testing.T) {
	d := date(2024, 2, 1)
	events := []Event{{StudentID: "s1", FromGroupID: "A", ToGroupID: "B", Date: d}}

	inA := Resolve("s1", "A", events)
	inB := Resolve("s1", "B", events)

	lessonDates := []time.Time{
		date(2023, 9, 1),
		date(2024, 1, 31),
		d.Add(-time.Nanosecond),
		d,
		date(2024, 2, 15),
		date(2025, 6, 1),
	}
	for _, ld := range lessonDates {
		a, b := inA.Contains(ld), inB.Contains(ld)
		if a == b {
			t.Errorf("lesson on %v attributed to A=%v B=%v, want exactly one", ld, a, b)
		}
		assert.Equal(t, ld.Before(d), a, "A owns lessons strictly before the transfer")
		assert.Equal(t, !ld.Before(d), b, "B owns lessons from the transfer date on")
	}
}

func TestResolve_roundTrip(t *testing.T) {
	d1, d2 := date(2024, 2, 1), date(2024, 4, 1)
	events := []Event{
		// deliberately unordered
		{StudentID: "s1", FromGroupID: "B", ToGroupID: "A", Date: d2},
		{StudentID: "s1", FromGroupID: "A", ToGroupID: "B", Date: d1},
	}

	inA := Resolve("s1", "A", events)
	inB := Resolve("s1", "B", events)

	assert.Len(t, inA, 2)
	assert.Len(t, inB, 1)

	tests := []struct {
		when  time.Time
		wantA bool
		wantB bool
	}{
		{when: date(2024, 1, 15), wantA: true},
		{when: date(2024, 3, 1), wantB: true},
		{when: d2, wantA: true},
		{when: date(2024, 5, 1), wantA: true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantA, inA.Contains(tt.when), "A on %v", tt.when)
		assert.Equal(t, tt.wantB, inB.Contains(tt.when), "B on %v", tt.when)
	}
}

func TestResolve_joinedLater(t *testing.T) {
	d1, d2 := date(2024, 2, 1), date(2024, 4, 1)
	events := []Event{
		{StudentID: "s1", FromGroupID: "A", ToGroupID: "B", Date: d1},
		{StudentID: "s1", FromGroupID: "B", ToGroupID: "C", Date: d2},
	}

	inB := Resolve("s1", "B", events)
	assert.Equal(t, RangeSet{{From: &d1, To: &d2}}, inB)
	assert.False(t, inB.Contains(date(2024, 1, 1)))
	assert.True(t, inB.Contains(date(2024, 3, 1)))
	assert.False(t, inB.Contains(d2))
}

func TestTimeline(t *testing.T) {
	d1, d2 := date(2024, 2, 1), date(2024, 4, 1)
	tl := NewTimeline([]Event{
		{StudentID: "s1", FromGroupID: "B", ToGroupID: "C", Date: d2},
		{StudentID: "s2", FromGroupID: "A", ToGroupID: "C", Date: d2},
		{StudentID: "s1", FromGroupID: "A", ToGroupID: "B", Date: d1},
	})

	hist := tl.History("s1")
	if assert.Len(t, hist, 2) {
		assert.Equal(t, d1, hist[0].Date)
		assert.Equal(t, d2, hist[1].Date)
	}
	assert.True(t, tl.Membership("s2", "A").Contains(date(2024, 3, 1)))
	assert.False(t, tl.Membership("s2", "A").Contains(d2))
	assert.True(t, tl.Membership("s3", "A").IsUnbounded())
}

func TestValidateNext(t *testing.T) {
	history := []Event{{StudentID: "s1", FromGroupID: "A", ToGroupID: "B", Date: date(2024, 2, 1)}}

	tests := []struct {
		name         string
		next         Event
		wantValidErr bool
		wantConflict bool
	}{
		{name: "first transfer of another student", next: Event{StudentID: "s2", FromGroupID: "A", ToGroupID: "B", Date: date(2024, 1, 1)}},
		{name: "next transfer", next: Event{StudentID: "s1", FromGroupID: "B", ToGroupID: "C", Date: date(2024, 3, 1)}},
		{name: "no date", next: Event{StudentID: "s1", FromGroupID: "B", ToGroupID: "C"}, wantValidErr: true},
		{name: "same group", next: Event{StudentID: "s1", FromGroupID: "B", ToGroupID: "B", Date: date(2024, 3, 1)}, wantValidErr: true},
		{name: "same day as previous", next: Event{StudentID: "s1", FromGroupID: "B", ToGroupID: "C", Date: date(2024, 2, 1)}, wantValidErr: true},
		{name: "before previous", next: Event{StudentID: "s1", FromGroupID: "B", ToGroupID: "C", Date: date(2024, 1, 1)}, wantValidErr: true},
		{name: "leaves a group they are not in", next: Event{StudentID: "s1", FromGroupID: "A", ToGroupID: "C", Date: date(2024, 3, 1)}, wantConflict: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNext(history, tt.next)
			if got := core.IsValidation(err); got != tt.wantValidErr {
				t.Errorf("ValidateNext() error = %v, wantValidErr %v", err, tt.wantValidErr)
			}
			if got := core.IsConflict(err); got != tt.wantConflict {
				t.Errorf("ValidateNext() error = %v, wantConflict %v", err, tt.wantConflict)
			}
		})
	}
}
