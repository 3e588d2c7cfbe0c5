package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
)

// NewTransfer moves a student to another group. A zero Date means "now".
type NewTransfer struct {
	StudentID   string    `json:"student_id" validate:"required"`
	FromGroupID string    `json:"from_group_id" validate:"required"`
	ToGroupID   string    `json:"to_group_id" validate:"required,nefield=FromGroupID"`
	Date        time.Time `json:"date"`
}

func (nt NewTransfer) Validate(validate *validator.Validate) error { return validate.Struct(nt) }

// NewStudent is a student account to create. Username defaults to "family_given"
// and an empty Password is generated.
type NewStudent struct {
	GivenName  string `json:"given_name" validate:"required"`
	FamilyName string `json:"family_name" validate:"required"`
	Username   string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Password   string `json:"password"`
}

type NewStudents struct {
	BranchID string       `json:"-"`
	GroupID  string       `json:"group_id" validate:"required"`
	Students []NewStudent `json:"students" validate:"required,min=1,dive"`
}

func (ns *NewStudents) Validate(validate *validator.Validate) error {
	for i := range ns.Students {
		s := &ns.Students[i]
		s.GivenName = core.CleanString(s.GivenName)
		s.FamilyName = core.CleanString(s.FamilyName)
		s.Username = core.CleanString(s.Username, true /* lower */)
		s.Password = core.CleanString(s.Password)
	}
	return validate.Struct(ns)
}

// ScoreChange sets (or clears, when Value is null) one mark of a student on a lesson.
type ScoreChange struct {
	LessonID  string       `json:"lesson_id" validate:"required"`
	StudentID string       `json:"student_id" validate:"required"`
	Field     string       `json:"field" validate:"required,scorefield"`
	Value     null.Float64 `json:"value"`
}

func (sc ScoreChange) Validate(validate *validator.Validate) error { return validate.Struct(sc) }

// KPIChange sets (or clears) one KPI field of a teacher for a month.
type KPIChange struct {
	TeacherID string       `json:"teacher_id" validate:"required"`
	Month     string       `json:"month" validate:"required,month"`
	Field     string       `json:"field" validate:"required,kpifield"`
	Value     null.Float64 `json:"value"`
}

func (kc KPIChange) Validate(validate *validator.Validate) error { return validate.Struct(kc) }

type NewQuarter struct {
	BranchID  string    `json:"-"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

func (nq NewQuarter) Validate(validate *validator.Validate) error { return validate.Struct(nq) }

// NewHomework is a student's submission for a lesson's homework.
type NewHomework struct {
	LessonID string `json:"lesson_id" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.Text = core.CleanString(nh.Text)
	return validate.Struct(nh)
}
