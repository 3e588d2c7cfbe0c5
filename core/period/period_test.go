package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSchoolMonth(t *testing.T) {
	tests := []struct {
		name           string
		ref            time.Time
		wantFirstMon   time.Time
		wantLastSunday time.Time
	}{
		{name: "march 2024 starts on a friday", ref: date(2024, 3, 15), wantFirstMon: date(2024, 3, 4), wantLastSunday: date(2024, 3, 31)},
		{name: "april 2024 starts on a monday", ref: date(2024, 4, 1), wantFirstMon: date(2024, 4, 1), wantLastSunday: date(2024, 4, 28)},
		{name: "september 2024 starts on a sunday", ref: date(2024, 9, 30), wantFirstMon: date(2024, 9, 2), wantLastSunday: date(2024, 9, 29)},
		{name: "february 2026", ref: date(2026, 2, 10), wantFirstMon: date(2026, 2, 2), wantLastSunday: date(2026, 2, 22)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := SchoolMonth(tt.ref)
			if !w.Start.Equal(tt.wantFirstMon) {
				t.Errorf("SchoolMonth().Start = %v, want %v", w.Start, tt.wantFirstMon)
			}
			if !w.Last().Equal(tt.wantLastSunday) {
				t.Errorf("SchoolMonth().Last() = %v, want %v", w.Last(), tt.wantLastSunday)
			}
			assert.Equal(t, time.Monday, w.Start.Weekday())
			assert.Equal(t, time.Sunday, w.Last().Weekday())
			assert.Zero(t, int(w.End.Sub(w.Start).Hours()/24)%7, "window must be whole weeks")
		})
	}
}

func TestSchoolMonth_inclusiveBounds(t *testing.T) {
	w := SchoolMonth(date(2024, 3, 1))

	assert.False(t, w.Contains(date(2024, 3, 3)))
	assert.True(t, w.Contains(date(2024, 3, 4)))
	assert.True(t, w.Contains(time.Date(2024, 3, 31, 18, 30, 0, 0, time.UTC)))
	assert.False(t, w.Contains(date(2024, 4, 1)))
}

func TestCalendarMonth(t *testing.T) {
	w := CalendarMonth(time.Date(2024, 2, 17, 13, 0, 0, 0, time.UTC))

	assert.Equal(t, date(2024, 2, 1), w.Start)
	assert.Equal(t, date(2024, 3, 1), w.End)
	assert.True(t, w.Contains(date(2024, 2, 1)))
	assert.True(t, w.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(date(2024, 3, 1)), "next month's first day is excluded")
}

func TestFromQuarter(t *testing.T) {
	w, err := FromQuarter(date(2024, 1, 1), date(2024, 3, 31))
	require.NoError(t, err)

	assert.True(t, w.Contains(date(2024, 1, 1)))
	assert.True(t, w.Contains(date(2024, 1, 15)))
	assert.True(t, w.Contains(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(date(2024, 4, 2)))
	assert.False(t, w.Contains(date(2023, 12, 31)))
	assert.Equal(t, date(2024, 3, 31), w.Last())

	_, err = FromQuarter(date(2024, 3, 31), date(2024, 1, 1))
	assert.True(t, core.IsValidation(err))

	_, err = FromQuarter(time.Time{}, date(2024, 1, 1))
	assert.True(t, core.IsValidation(err))
}

func TestResolve(t *testing.T) {
	ref := date(2024, 3, 15)
	tests := []struct {
		name    string
		mode    Mode
		want    Window
		wantErr bool
	}{
		{name: "calendar", mode: ModeCalendarMonth, want: CalendarMonth(ref)},
		{name: "school", mode: ModeSchoolMonth, want: SchoolMonth(ref)},
		{name: "quarter needs a stored quarter", mode: ModeQuarter, wantErr: true},
		{name: "unknown", mode: "weekly", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(ref, tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				assert.True(t, core.IsValidation(err))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-03", want: date(2024, 3, 1)},
		{in: " 2024-03-15 ", want: date(2024, 3, 15)},
		{in: "2024-03-15T10:00:00Z", want: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)},
		{in: "03/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseMonth() = %v, want %v", got, tt.want)
			}
		})
	}
	assert.Equal(t, "2024-03", MonthKey(date(2024, 3, 31)))
}
