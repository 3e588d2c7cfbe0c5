package school

import (
	"context"
	"time"

	"github.com/trezcool/alama/core/user"
)

// Filters select records; zero fields are ignored and set fields are ANDed.
type (
	GroupFilter struct {
		IDs       []string
		BranchID  string
		StudentID string // groups whose current roster holds the student
	}

	TransferFilter struct {
		StudentIDs []string
		GroupID    string // transfers leaving or entering the group
	}

	DisciplineFilter struct {
		IDs      []string
		BranchID string
	}

	ConnectionFilter struct {
		IDs          []string
		BranchID     string
		TeacherID    string
		DisciplineID string
		GroupIDs     []string
		Active       *bool
	}

	ConnectionUpdate struct {
		Active          *bool
		ClearTeacher    bool
		ClearDiscipline bool
	}

	LessonFilter struct {
		IDs           []string
		ConnectionIDs []string
		HoursID       string
		Type          LessonType
		Active        *bool
		From          time.Time // inclusive
		To            time.Time // exclusive
	}

	LessonUpdate struct {
		Active     *bool
		ClearHours bool
	}

	ScoreFilter struct {
		LessonIDs  []string
		StudentIDs []string
	}

	KPIFilter struct {
		TeacherIDs []string
		Month      string
	}

	PayFilter struct {
		PricingIDs []string
		StudentIDs []string
	}

	FinanceFilter struct {
		BranchID string
		From     time.Time // inclusive
		To       time.Time // exclusive
	}
)

func (f GroupFilter) Match(g Group) bool {
	return matchIDs(f.IDs, g.ID) &&
		(f.BranchID == "" || g.BranchID == f.BranchID) &&
		(f.StudentID == "" || g.HasStudent(f.StudentID))
}

func (f TransferFilter) Match(t Transfer) bool {
	return matchIDs(f.StudentIDs, t.StudentID) &&
		(f.GroupID == "" || t.FromGroupID == f.GroupID || t.ToGroupID == f.GroupID)
}

func (f DisciplineFilter) Match(d Discipline) bool {
	return matchIDs(f.IDs, d.ID) && (f.BranchID == "" || d.BranchID == f.BranchID)
}

func (f ConnectionFilter) Match(c Connection) bool {
	return matchIDs(f.IDs, c.ID) &&
		(f.BranchID == "" || c.BranchID == f.BranchID) &&
		(f.TeacherID == "" || c.TeacherID == f.TeacherID) &&
		(f.DisciplineID == "" || c.DisciplineID == f.DisciplineID) &&
		matchIDs(f.GroupIDs, c.GroupID) &&
		(f.Active == nil || c.Active == *f.Active)
}

func (u ConnectionUpdate) Apply(c *Connection) {
	if u.Active != nil {
		c.Active = *u.Active
	}
	if u.ClearTeacher {
		c.TeacherID = ""
	}
	if u.ClearDiscipline {
		c.DisciplineID = ""
	}
}

func (f LessonFilter) Match(l Lesson) bool {
	return matchIDs(f.IDs, l.ID) &&
		matchIDs(f.ConnectionIDs, l.ConnectionID) &&
		(f.HoursID == "" || l.HoursID == f.HoursID) &&
		(f.Type == "" || l.Type == f.Type) &&
		(f.Active == nil || l.Active == *f.Active) &&
		(f.From.IsZero() || !l.Date.Before(f.From)) &&
		(f.To.IsZero() || l.Date.Before(f.To))
}

func (u LessonUpdate) Apply(l *Lesson) {
	if u.Active != nil {
		l.Active = *u.Active
	}
	if u.ClearHours {
		l.HoursID = ""
	}
}

func (f ScoreFilter) Match(s Score) bool {
	return matchIDs(f.LessonIDs, s.LessonID) && matchIDs(f.StudentIDs, s.StudentID)
}

func (f KPIFilter) Match(k KPI) bool {
	return matchIDs(f.TeacherIDs, k.TeacherID) && (f.Month == "" || k.Month == f.Month)
}

func (f PayFilter) Match(p Pay) bool {
	return matchIDs(f.PricingIDs, p.PricingID) && matchIDs(f.StudentIDs, p.StudentID)
}

func (f FinanceFilter) Match(e FinanceEntry) bool {
	return (f.BranchID == "" || e.BranchID == f.BranchID) &&
		(f.From.IsZero() || !e.CreatedAt.Before(f.From)) &&
		(f.To.IsZero() || e.CreatedAt.Before(f.To))
}

func matchIDs(ids []string, id string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Repository gives access to the records of every branch.
// Get methods fail with a core.NotFoundError; Query methods never do.
type Repository interface {
	user.Repository

	CreateGroup(ctx context.Context, g Group) (Group, error)
	GetGroup(ctx context.Context, id string) (Group, error)
	QueryGroups(ctx context.Context, filter GroupFilter) ([]Group, error)
	// AddGroupStudents appends the students missing from the group's roster.
	AddGroupStudents(ctx context.Context, groupID string, studentIDs ...string) error
	// PullGroupStudent removes the student from every roster.
	PullGroupStudent(ctx context.Context, studentID string) error
	DeleteGroup(ctx context.Context, id string) error

	CreateTransfer(ctx context.Context, t Transfer) (Transfer, error)
	// QueryTransfers returns transfers by ascending date.
	QueryTransfers(ctx context.Context, filter TransferFilter) ([]Transfer, error)

	CreateDiscipline(ctx context.Context, d Discipline) (Discipline, error)
	GetDiscipline(ctx context.Context, id string) (Discipline, error)
	QueryDisciplines(ctx context.Context, filter DisciplineFilter) ([]Discipline, error)
	DeleteDiscipline(ctx context.Context, id string) error

	CreateConnection(ctx context.Context, c Connection) (Connection, error)
	GetConnection(ctx context.Context, id string) (Connection, error)
	QueryConnections(ctx context.Context, filter ConnectionFilter) ([]Connection, error)
	UpdateConnections(ctx context.Context, filter ConnectionFilter, upd ConnectionUpdate) error
	DeleteConnection(ctx context.Context, id string) error

	CreateHours(ctx context.Context, h Hours) (Hours, error)
	GetHours(ctx context.Context, id string) (Hours, error)
	DeleteHours(ctx context.Context, id string) error

	CreateLessons(ctx context.Context, lessons ...Lesson) ([]Lesson, error)
	GetLesson(ctx context.Context, id string) (Lesson, error)
	// QueryLessons returns lessons by ascending date.
	QueryLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
	UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
	UpdateLessons(ctx context.Context, filter LessonFilter, upd LessonUpdate) error
	DeleteLessons(ctx context.Context, filter LessonFilter) error

	// UpsertScore creates the score of (LessonID, StudentID). An existing score has only
	// the given columns overwritten, or all of them when none is given.
	UpsertScore(ctx context.Context, s Score, columns ...string) (Score, error)
	QueryScores(ctx context.Context, filter ScoreFilter) ([]Score, error)
	DeleteScores(ctx context.Context, filter ScoreFilter) error

	CreateQuarter(ctx context.Context, q Quarter) (Quarter, error)
	GetQuarter(ctx context.Context, id string) (Quarter, error)
	QueryQuarters(ctx context.Context, branchID string) ([]Quarter, error)
	DeleteQuarter(ctx context.Context, id string) error

	// UpsertKPI creates the KPI of (TeacherID, Month), overwriting the given columns of an
	// existing one as UpsertScore does.
	UpsertKPI(ctx context.Context, k KPI, columns ...string) (KPI, error)
	QueryKPIs(ctx context.Context, filter KPIFilter) ([]KPI, error)
	DeleteKPIs(ctx context.Context, filter KPIFilter) error

	// UpsertPricing creates or replaces the pricing of (BranchID, Month).
	UpsertPricing(ctx context.Context, p Pricing) (Pricing, error)
	GetPricing(ctx context.Context, branchID, month string) (Pricing, error)
	QueryPricings(ctx context.Context, branchID string) ([]Pricing, error)

	// UpsertPay creates or replaces the pay of (PricingID, StudentID).
	UpsertPay(ctx context.Context, p Pay) (Pay, error)
	QueryPays(ctx context.Context, filter PayFilter) ([]Pay, error)

	CreateFinanceEntry(ctx context.Context, e FinanceEntry) (FinanceEntry, error)
	// QueryFinanceEntries returns entries by ascending creation time.
	QueryFinanceEntries(ctx context.Context, filter FinanceFilter) ([]FinanceEntry, error)
}

// Store is a Repository able to run units of work.
type Store interface {
	Repository

	// WithinTx runs fn against a transactional view of the store. Every write of fn lands
	// or none does; a failure is returned as by core.AbortTx.
	// A started unit runs to completion even if ctx is cancelled.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}
