// Package stats averages sparse score records without ever mistaking a missing mark for a zero.
package stats

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
)

// Field is one of the marks a score record may carry.
type Field string

const (
	FieldScore       Field = "score"
	FieldBehavior    Field = "behavior"
	FieldWeeklyExam  Field = "weeklyExam"
	FieldMonthlyExam Field = "monthlyExam"
	FieldHomework    Field = "homework"
	FieldAttend      Field = "attend"
)

// Fields is the closed set of legal score fields.
var Fields = []Field{FieldScore, FieldBehavior, FieldWeeklyExam, FieldMonthlyExam, FieldHomework, FieldAttend}

// ParseField maps a field tag to its Field, rejecting unknown tags.
func ParseField(tag string) (Field, error) {
	for _, f := range Fields {
		if string(f) == tag {
			return f, nil
		}
	}
	return "", core.NewValidationError(nil, core.FieldError{Field: "field", Error: "unknown score field: " + tag})
}

// Record holds the independently nullable marks of one student on one lesson.
type Record struct {
	Score       null.Float64 `json:"score" db:"score"`
	Behavior    null.Float64 `json:"behavior" db:"behavior"`
	WeeklyExam  null.Float64 `json:"weeklyExam" db:"weekly_exam"`
	MonthlyExam null.Float64 `json:"monthlyExam" db:"monthly_exam"`
	Homework    null.Float64 `json:"homework" db:"homework"`
	Attend      null.Bool    `json:"attend" db:"attend"`
}

// Set stores value under f. For attendance any non-zero value means present;
// an invalid value clears the mark.
func (r *Record) Set(f Field, value null.Float64) error {
	switch f {
	case FieldScore:
		r.Score = value
	case FieldBehavior:
		r.Behavior = value
	case FieldWeeklyExam:
		r.WeeklyExam = value
	case FieldMonthlyExam:
		r.MonthlyExam = value
	case FieldHomework:
		r.Homework = value
	case FieldAttend:
		r.Attend = null.NewBool(value.Float64 != 0, value.Valid)
	default:
		_, err := ParseField(string(f))
		return err
	}
	return nil
}

// Spec selects the fields to average and how attendance maps to a percentage.
type Spec struct {
	Fields        []Field
	AttendPresent float64
	AttendAbsent  float64
}

// DefaultSpec averages every field with attendance as true → 100, false → 0.
var DefaultSpec = Spec{Fields: Fields, AttendPresent: 100, AttendAbsent: 0}

// Value returns the numeric value of f in r, with attendance mapped by spec.
func (r Record) Value(f Field, spec Spec) null.Float64 {
	switch f {
	case FieldScore:
		return r.Score
	case FieldBehavior:
		return r.Behavior
	case FieldWeeklyExam:
		return r.WeeklyExam
	case FieldMonthlyExam:
		return r.MonthlyExam
	case FieldHomework:
		return r.Homework
	case FieldAttend:
		if !r.Attend.Valid {
			return null.Float64{}
		}
		if r.Attend.Bool {
			return null.Float64From(spec.AttendPresent)
		}
		return null.Float64From(spec.AttendAbsent)
	}
	return null.Float64{}
}

// Summary is the aggregate of a subject's records.
// Count is the number of records, whatever marks they carry.
type Summary struct {
	Score       null.Float64 `json:"score"`
	Behavior    null.Float64 `json:"behavior"`
	WeeklyExam  null.Float64 `json:"weeklyExam"`
	MonthlyExam null.Float64 `json:"monthlyExam"`
	Homework    null.Float64 `json:"homework"`
	Attend      null.Float64 `json:"attend"`
	Count       int          `json:"count"`
}

// Get returns the average of f.
func (s Summary) Get(f Field) null.Float64 {
	switch f {
	case FieldScore:
		return s.Score
	case FieldBehavior:
		return s.Behavior
	case FieldWeeklyExam:
		return s.WeeklyExam
	case FieldMonthlyExam:
		return s.MonthlyExam
	case FieldHomework:
		return s.Homework
	case FieldAttend:
		return s.Attend
	}
	return null.Float64{}
}

func (s *Summary) set(f Field, v null.Float64) {
	switch f {
	case FieldScore:
		s.Score = v
	case FieldBehavior:
		s.Behavior = v
	case FieldWeeklyExam:
		s.WeeklyExam = v
	case FieldMonthlyExam:
		s.MonthlyExam = v
	case FieldHomework:
		s.Homework = v
	case FieldAttend:
		s.Attend = v
	}
}

// Aggregate averages every field of spec over the records where that field is present.
// Fields may thus average over different counts. A field with no present value stays null.
func Aggregate(records []Record, spec Spec) Summary {
	sum := Summary{Count: len(records)}
	for _, f := range spec.Fields {
		var (
			total float64
			n     int
		)
		for _, rec := range records {
			if v := rec.Value(f, spec); v.Valid {
				total += v.Float64
				n++
			}
		}
		if n > 0 {
			sum.set(f, null.Float64From(total/float64(n)))
		}
	}
	return sum
}

// GroupBy aggregates the records of every key. Keys without records get
// an empty Summary; records of keys outside keys are ignored.
func GroupBy[K comparable](keys []K, records map[K][]Record, spec Spec) map[K]Summary {
	out := make(map[K]Summary, len(keys))
	for _, k := range keys {
		out[k] = Aggregate(records[k], spec)
	}
	return out
}
