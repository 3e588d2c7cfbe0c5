package school

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/membership"
	"github.com/trezcool/alama/core/period"
	"github.com/trezcool/alama/core/stats"
	"github.com/trezcool/alama/core/user"
)

var generatePasswordFunc = generatePassword // mockable

// Scope names the records a write changed. Empty fields are not concerned.
type Scope struct {
	BranchID  string
	GroupID   string
	StudentID string
}

// Invalidator forgets whatever was derived from the records of the scopes.
type Invalidator interface {
	Invalidate(ctx context.Context, scopes ...Scope)
}

type Service struct {
	store       Store
	logger      core.Logger
	now         core.Clock
	invalidator Invalidator
}

type Option func(*Service)

// WithInvalidator tells inv about every committed write to scores, KPIs and rosters.
func WithInvalidator(inv Invalidator) Option {
	return func(svc *Service) { svc.invalidator = inv }
}

func NewService(store Store, logger core.Logger, clock core.Clock, opts ...Option) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	svc := &Service{store: store, logger: logger, now: clock}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) invalidate(ctx context.Context, scopes ...Scope) {
	if svc.invalidator != nil {
		svc.invalidator.Invalidate(ctx, scopes...)
	}
}

// Event returns the membership event of the transfer.
func (t Transfer) Event() membership.Event {
	return membership.Event{StudentID: t.StudentID, FromGroupID: t.FromGroupID, ToGroupID: t.ToGroupID, Date: t.Date}
}

func Events(transfers []Transfer) []membership.Event {
	events := make([]membership.Event, 0, len(transfers))
	for _, t := range transfers {
		events = append(events, t.Event())
	}
	return events
}

// TransferStudent records the transfer and adds the student to the destination roster
// in one unit. The source roster is left untouched: past membership is read from transfers.
func (svc *Service) TransferStudent(ctx context.Context, nt NewTransfer) (Transfer, error) {
	if nt.Date.IsZero() {
		nt.Date = svc.now()
	}

	var tr Transfer
	err := svc.store.WithinTx(ctx, func(repo Repository) error {
		student, err := user.GetKind(ctx, repo, nt.StudentID, user.KindStudent)
		if err != nil {
			return err
		}
		from, err := repo.GetGroup(ctx, nt.FromGroupID)
		if err != nil {
			return errors.Wrap(err, "getting source group")
		}
		to, err := repo.GetGroup(ctx, nt.ToGroupID)
		if err != nil {
			return errors.Wrap(err, "getting destination group")
		}
		if from.BranchID != student.BranchID || to.BranchID != student.BranchID {
			return core.NewConflictError("student and groups belong to different branches")
		}

		history, err := repo.QueryTransfers(ctx, TransferFilter{StudentIDs: []string{student.ID}})
		if err != nil {
			return errors.Wrap(err, "querying transfers")
		}
		next := Transfer{StudentID: student.ID, FromGroupID: from.ID, ToGroupID: to.ID, Date: nt.Date}
		if err = membership.ValidateNext(Events(history), next.Event()); err != nil {
			return err
		}
		if len(history) == 0 && !from.HasStudent(student.ID) {
			return core.NewConflictError("student is not a member of group %q", from.ID)
		}

		if tr, err = repo.CreateTransfer(ctx, next); err != nil {
			return errors.Wrap(err, "creating transfer")
		}
		return errors.Wrap(repo.AddGroupStudents(ctx, to.ID, student.ID), "adding student to group")
	})
	if err != nil {
		return Transfer{}, err
	}
	svc.invalidate(ctx,
		Scope{GroupID: tr.FromGroupID, StudentID: tr.StudentID},
		Scope{GroupID: tr.ToGroupID},
	)
	svc.logger.Info("student transferred", map[string]interface{}{"student": tr.StudentID, "from": tr.FromGroupID, "to": tr.ToGroupID})
	return tr, nil
}

// Account is a created student with the password it was given, when generated.
type Account struct {
	user.User
	Password string `json:"password,omitempty"`
}

// AddStudents creates the student accounts and appends them to the group in one unit.
func (svc *Service) AddStudents(ctx context.Context, ns NewStudents) ([]Account, error) {
	accounts := make([]Account, 0, len(ns.Students))
	err := svc.store.WithinTx(ctx, func(repo Repository) error {
		accounts = accounts[:0]

		group, err := repo.GetGroup(ctx, ns.GroupID)
		if err != nil {
			return errors.Wrap(err, "getting group")
		}
		if ns.BranchID != "" && group.BranchID != ns.BranchID {
			return core.NewNotFoundError("group", ns.GroupID)
		}

		ids := make([]string, 0, len(ns.Students))
		for _, s := range ns.Students {
			acc, err := svc.newAccount(group.BranchID, user.KindStudent, s.GivenName, s.FamilyName, s.Username, s.Password)
			if err != nil {
				return err
			}
			if acc.User, err = repo.CreateUser(ctx, acc.User); err != nil {
				return errors.Wrap(err, "creating student")
			}
			ids = append(ids, acc.ID)
			accounts = append(accounts, acc)
		}
		return errors.Wrap(repo.AddGroupStudents(ctx, group.ID, ids...), "adding students to group")
	})
	if err != nil {
		return nil, err
	}
	svc.invalidate(ctx, Scope{GroupID: ns.GroupID})
	return accounts, nil
}

func generatePassword() (string, error) {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ChangeScore sets one mark of a student on a lesson. The score is credited
// to the teacher of the lesson's connection. The other marks of a stored score are left
// as they are, whatever was written to them concurrently.
func (svc *Service) ChangeScore(ctx context.Context, sc ScoreChange) (Score, error) {
	field, err := stats.ParseField(sc.Field)
	if err != nil {
		return Score{}, err
	}
	lesson, err := svc.store.GetLesson(ctx, sc.LessonID)
	if err != nil {
		return Score{}, errors.Wrap(err, "getting lesson")
	}
	conn, err := svc.store.GetConnection(ctx, lesson.ConnectionID)
	if err != nil {
		return Score{}, errors.Wrap(err, "getting connection")
	}
	if _, err = user.GetKind(ctx, svc.store, sc.StudentID, user.KindStudent); err != nil {
		return Score{}, err
	}

	score := Score{LessonID: lesson.ID, StudentID: sc.StudentID, TeacherID: conn.TeacherID, UpdatedAt: svc.now()}
	if err = score.Set(field, sc.Value); err != nil {
		return Score{}, err
	}
	score, err = svc.store.UpsertScore(ctx, score, FieldColumn(field), ColTeacher, ColUpdatedAt)
	if err != nil {
		return Score{}, err
	}
	svc.invalidate(ctx, Scope{BranchID: conn.BranchID, GroupID: conn.GroupID, StudentID: sc.StudentID})
	return score, nil
}

// SubmitHomework stores a student's homework text, until the lesson's homework deadline.
func (svc *Service) SubmitHomework(ctx context.Context, studentID string, nh NewHomework) (Score, error) {
	lesson, err := svc.store.GetLesson(ctx, nh.LessonID)
	if err != nil {
		return Score{}, errors.Wrap(err, "getting lesson")
	}
	if lesson.HomeworkEnd.Valid && svc.now().After(lesson.HomeworkEnd.Time) {
		return Score{}, core.NewConflictError("homework deadline has passed")
	}

	score := Score{LessonID: lesson.ID, StudentID: studentID, Assign: null.StringFrom(nh.Text), UpdatedAt: svc.now()}
	return svc.store.UpsertScore(ctx, score, ColAssign, ColUpdatedAt)
}

// SetHomework sets the homework of a lesson. The deadline runs to the end of HomeworkEnd's day.
func (svc *Service) SetHomework(ctx context.Context, lessonID string, text null.String, start, end null.Time) (Lesson, error) {
	lesson, err := svc.store.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "getting lesson")
	}
	if end.Valid {
		y, m, d := end.Time.Date()
		end.Time = time.Date(y, m, d, 23, 59, 59, 0, end.Time.Location())
	}
	lesson.Homework, lesson.HomeworkStart, lesson.HomeworkEnd = text, start, end
	return svc.store.UpdateLesson(ctx, lesson)
}

// ChangeKPI sets one KPI field of a teacher for a month.
func (svc *Service) ChangeKPI(ctx context.Context, kc KPIChange) (KPI, error) {
	field, err := ParseKPIField(kc.Field)
	if err != nil {
		return KPI{}, err
	}
	teacher, err := user.GetKind(ctx, svc.store, kc.TeacherID, user.KindTeacher)
	if err != nil {
		return KPI{}, err
	}

	kpi := KPI{TeacherID: kc.TeacherID, Month: kc.Month}
	kpi.Set(field, kc.Value)
	if kpi, err = svc.store.UpsertKPI(ctx, kpi, string(field)); err != nil {
		return KPI{}, err
	}
	svc.invalidate(ctx, Scope{BranchID: teacher.BranchID})
	return kpi, nil
}

func (svc *Service) CreateQuarter(ctx context.Context, nq NewQuarter) (Quarter, error) {
	if _, err := period.FromQuarter(nq.StartDate, nq.EndDate); err != nil {
		return Quarter{}, err
	}
	return svc.store.CreateQuarter(ctx, Quarter{BranchID: nq.BranchID, StartDate: nq.StartDate, EndDate: nq.EndDate})
}

// SetActive flips a user's access bit.
func (svc *Service) SetActive(ctx context.Context, userID string, active bool) error {
	if _, err := svc.store.GetUser(ctx, userID); err != nil {
		return errors.Wrap(err, "getting user")
	}
	_, err := svc.store.SetUsersActive(ctx, user.Filter{IDs: []string{userID}}, active)
	return errors.Wrap(err, "setting user active")
}
