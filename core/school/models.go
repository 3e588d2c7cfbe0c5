package school

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core/stats"
)

// Group is a named roster. Students is the ordered set of its current members;
// past membership is derived from transfers.
type Group struct {
	ID       string   `json:"id" db:"id"`
	BranchID string   `json:"branch_id" db:"branch_id"`
	Title    string   `json:"title" db:"title"`
	Students []string `json:"students" db:"-"`
}

func (g Group) HasStudent(studentID string) bool {
	for _, id := range g.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

// Transfer moves a student between groups. Transfers are never updated.
type Transfer struct {
	ID          string    `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	FromGroupID string    `json:"from_group_id" db:"from_group_id"`
	ToGroupID   string    `json:"to_group_id" db:"to_group_id"`
	Date        time.Time `json:"date" db:"date"`
}

type Discipline struct {
	ID       string `json:"id" db:"id"`
	BranchID string `json:"branch_id" db:"branch_id"`
	Title    string `json:"title" db:"title"`
}

// Connection assigns a teacher to teach a discipline to a group.
// TeacherID and DisciplineID are emptied when the referenced entity is deleted.
type Connection struct {
	ID           string `json:"id" db:"id"`
	BranchID     string `json:"branch_id" db:"branch_id"`
	TeacherID    string `json:"teacher_id" db:"teacher_id"`
	DisciplineID string `json:"discipline_id" db:"discipline_id"`
	GroupID      string `json:"group_id" db:"group_id"`
	Active       bool   `json:"active" db:"active"`
}

// Hours is a timetable slot lessons are placed in.
type Hours struct {
	ID        string `json:"id" db:"id"`
	BranchID  string `json:"branch_id" db:"branch_id"`
	StartTime string `json:"start_time" db:"start_time"` // HH:MM
	EndTime   string `json:"end_time" db:"end_time"`
}

type LessonType string

const (
	LessonSimple      LessonType = "simple"
	LessonMonthlyExam LessonType = "monthly_exam"
)

type Lesson struct {
	ID            string      `json:"id" db:"id"`
	ConnectionID  string      `json:"connection_id" db:"connection_id"`
	HoursID       string      `json:"hours_id" db:"hours_id"`
	Title         string      `json:"title" db:"title"`
	Date          time.Time   `json:"date" db:"date"`
	Type          LessonType  `json:"type" db:"type"`
	Homework      null.String `json:"homework" db:"homework"`
	HomeworkStart null.Time   `json:"homework_start" db:"homework_start"`
	HomeworkEnd   null.Time   `json:"homework_end" db:"homework_end"`
	Active        bool        `json:"active" db:"active"`
}

// Score is the sparse record of one student on one lesson.
type Score struct {
	ID        string `json:"id" db:"id"`
	LessonID  string `json:"lesson_id" db:"lesson_id"`
	StudentID string `json:"student_id" db:"student_id"`
	TeacherID string `json:"teacher_id" db:"teacher_id"`
	stats.Record
	Assign    null.String `json:"assign" db:"assign"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Score columns a write may be restricted to.
const (
	ColTeacher   = "teacher_id"
	ColAssign    = "assign"
	ColUpdatedAt = "updated_at"
)

var fieldColumns = map[stats.Field]string{
	stats.FieldScore:       "score",
	stats.FieldBehavior:    "behavior",
	stats.FieldWeeklyExam:  "weekly_exam",
	stats.FieldMonthlyExam: "monthly_exam",
	stats.FieldHomework:    "homework",
	stats.FieldAttend:      "attend",
}

// FieldColumn returns the column a score field is stored in.
func FieldColumn(f stats.Field) string {
	return fieldColumns[f]
}

// Merge overwrites the given columns of s with those of src.
func (s *Score) Merge(src Score, columns ...string) {
	for _, col := range columns {
		switch col {
		case ColTeacher:
			s.TeacherID = src.TeacherID
		case ColAssign:
			s.Assign = src.Assign
		case ColUpdatedAt:
			s.UpdatedAt = src.UpdatedAt
		case "score":
			s.Score = src.Score
		case "behavior":
			s.Behavior = src.Behavior
		case "weekly_exam":
			s.WeeklyExam = src.WeeklyExam
		case "monthly_exam":
			s.MonthlyExam = src.MonthlyExam
		case "homework":
			s.Homework = src.Homework
		case "attend":
			s.Attend = src.Attend
		}
	}
}

// Quarter is an administrator defined reporting period, inclusive of both dates.
type Quarter struct {
	ID        string    `json:"id" db:"id"`
	BranchID  string    `json:"branch_id" db:"branch_id"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
}

type KPIField string

const (
	KPIParticipation KPIField = "participation"
	KPICertificate   KPIField = "certificate"
	KPIAttend        KPIField = "attend"
)

// KPIFields is the closed set of legal KPI fields.
var KPIFields = []KPIField{KPIParticipation, KPICertificate, KPIAttend}

// KPI is the manually entered performance of a teacher for one month.
type KPI struct {
	ID            string       `json:"id" db:"id"`
	TeacherID     string       `json:"teacher_id" db:"teacher_id"`
	Month         string       `json:"month" db:"month"` // YYYY-MM
	Participation null.Float64 `json:"participation" db:"participation"`
	Certificate   null.Float64 `json:"certificate" db:"certificate"`
	Attend        null.Float64 `json:"attend" db:"attend"`
}

// Merge overwrites the given columns of k with those of src. KPI columns are named as their fields.
func (k *KPI) Merge(src KPI, columns ...string) {
	for _, col := range columns {
		f := KPIField(col)
		k.Set(f, src.Get(f))
	}
}

func (k KPI) Get(f KPIField) null.Float64 {
	switch f {
	case KPIParticipation:
		return k.Participation
	case KPICertificate:
		return k.Certificate
	case KPIAttend:
		return k.Attend
	}
	return null.Float64{}
}

func (k *KPI) Set(f KPIField, v null.Float64) {
	switch f {
	case KPIParticipation:
		k.Participation = v
	case KPICertificate:
		k.Certificate = v
	case KPIAttend:
		k.Attend = v
	}
}

type PriceColumn string

const (
	Price1 PriceColumn = "price1"
	Price2 PriceColumn = "price2"
	Price3 PriceColumn = "price3"
)

// Pricing holds the price tiers of a branch for one month.
type Pricing struct {
	ID       string          `json:"id" db:"id"`
	BranchID string          `json:"branch_id" db:"branch_id"`
	Month    string          `json:"month" db:"month"` // YYYY-MM
	Price1   decimal.Decimal `json:"price1" db:"price1"`
	Price2   decimal.Decimal `json:"price2" db:"price2"`
	Price3   decimal.Decimal `json:"price3" db:"price3"`
}

// Price returns the tier price of col; unknown columns fall back to price1.
func (p Pricing) Price(col PriceColumn) decimal.Decimal {
	switch col {
	case Price2:
		return p.Price2
	case Price3:
		return p.Price3
	default:
		return p.Price1
	}
}

type DiscountType string

const (
	DiscountFlat    DiscountType = "flat"
	DiscountPercent DiscountType = "percent"
)

// Pay is a student's payment against a pricing tier. There is at most one per (pricing, student).
type Pay struct {
	ID           string          `json:"id" db:"id"`
	PricingID    string          `json:"pricing_id" db:"pricing_id"`
	StudentID    string          `json:"student_id" db:"student_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Discount     decimal.Decimal `json:"discount" db:"discount"`
	DiscountType DiscountType    `json:"discount_type" db:"discount_type"`
	PriceColumn  PriceColumn     `json:"price_column" db:"price_column"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

type FinanceType string

const (
	FinanceStudentPay    FinanceType = "student_pay"
	FinanceTeacherSalary FinanceType = "teacher_salary"
)

// FinanceEntry is a signed ledger line: positive is income, negative expense.
type FinanceEntry struct {
	ID          string          `json:"id" db:"id"`
	BranchID    string          `json:"branch_id" db:"branch_id"`
	Type        FinanceType     `json:"type" db:"type"`
	Source      string          `json:"source" db:"source"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	UserID      string          `json:"user_id" db:"user_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
