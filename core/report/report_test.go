package report_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/stats"
	"github.com/trezcool/alama/core/user"
	inmemdb "github.com/trezcool/alama/storage/database/inmem"
)

const branch = "b1"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *inmemdb.DB
	svc *report.Service
}

func newFixture(t *testing.T, opts ...report.Option) *fixture {
	db := inmemdb.Open()
	return &fixture{t: t, ctx: context.Background(), db: db, svc: report.NewService(db, core.NopLogger{}, opts...)}
}

func (f *fixture) user(kind user.Kind, given, family string) user.User {
	usr, err := f.db.CreateUser(f.ctx, user.User{
		BranchID:   branch,
		Kind:       kind,
		Username:   user.DefaultUsername(given, family),
		GivenName:  given,
		FamilyName: family,
		IsActive:   true,
	})
	require.NoError(f.t, err)
	return usr
}

func (f *fixture) group(title string, students ...string) school.Group {
	g, err := f.db.CreateGroup(f.ctx, school.Group{BranchID: branch, Title: title, Students: students})
	require.NoError(f.t, err)
	return g
}

func (f *fixture) connection(teacherID, disciplineTitle, groupID string) school.Connection {
	d, err := f.db.CreateDiscipline(f.ctx, school.Discipline{BranchID: branch, Title: disciplineTitle})
	require.NoError(f.t, err)
	c, err := f.db.CreateConnection(f.ctx, school.Connection{BranchID: branch, TeacherID: teacherID, DisciplineID: d.ID, GroupID: groupID, Active: true})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) lesson(connID string, d time.Time, typ school.LessonType) school.Lesson {
	lessons, err := f.db.CreateLessons(f.ctx, school.Lesson{ConnectionID: connID, Date: d, Type: typ, Active: true})
	require.NoError(f.t, err)
	return lessons[0]
}

func (f *fixture) score(lessonID, studentID string, rec stats.Record) {
	_, err := f.db.UpsertScore(f.ctx, school.Score{LessonID: lessonID, StudentID: studentID, Record: rec})
	require.NoError(f.t, err)
}

func (f *fixture) quarter(start, end time.Time) school.Quarter {
	q, err := f.db.CreateQuarter(f.ctx, school.Quarter{BranchID: branch, StartDate: start, EndDate: end})
	require.NoError(f.t, err)
	return q
}

func TestService_GroupReport(t *testing.T) {
	f := newFixture(t)
	teacher := f.user(user.KindTeacher, "Grace", "Mbuyi")
	s1 := f.user(user.KindStudent, "Amani", "Kabila")
	s2 := f.user(user.KindStudent, "bea", "Baraka")
	s3 := f.user(user.KindStudent, "Jan", "Vandenberg")
	g := f.group("5A", s1.ID, s2.ID, s3.ID)
	conn := f.connection(teacher.ID, "Maths", g.ID)
	q := f.quarter(date(2024, 1, 1), date(2024, 3, 31))

	inside := f.lesson(conn.ID, date(2024, 1, 15), school.LessonSimple)
	outside := f.lesson(conn.ID, date(2024, 4, 2), school.LessonSimple)
	lastDay := f.lesson(conn.ID, date(2024, 3, 31), school.LessonSimple)
	f.score(inside.ID, s1.ID, stats.Record{Score: null.Float64From(80)})
	f.score(outside.ID, s1.ID, stats.Record{Score: null.Float64From(60)})
	f.score(outside.ID, s2.ID, stats.Record{Score: null.Float64From(60)})
	f.score(lastDay.ID, s3.ID, stats.Record{Attend: null.BoolFrom(true)})

	inactive := f.lesson(conn.ID, date(2024, 2, 1), school.LessonSimple)
	inactive.Active = false
	_, err := f.db.UpdateLesson(f.ctx, inactive)
	require.NoError(t, err)
	f.score(inactive.ID, s1.ID, stats.Record{Score: null.Float64From(10)})

	rep, err := f.svc.GroupReport(f.ctx, g.ID, q.ID, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, rep.Group.ID)
	require.Len(t, rep.Students, 3)

	// sorted by display name, ignoring case
	assert.Equal(t, s1.ID, rep.Students[0].ID)
	assert.Equal(t, s2.ID, rep.Students[1].ID)
	assert.Equal(t, s3.ID, rep.Students[2].ID)

	// the April lesson is outside the quarter
	assert.Equal(t, null.Float64From(80), rep.Students[0].Score)
	assert.Equal(t, 1, rep.Students[0].Count)

	// out-of-window only: still listed, with nothing aggregated
	assert.Equal(t, 0, rep.Students[1].Count)
	assert.False(t, rep.Students[1].Score.Valid)
	assert.False(t, rep.Students[1].Attend.Valid)

	// the quarter's end date is included
	assert.Equal(t, 1, rep.Students[2].Count)
	assert.Equal(t, null.Float64From(100), rep.Students[2].Attend)

	assert.Empty(t, rep.Transfers)
}

func TestService_GroupReport_notFound(t *testing.T) {
	f := newFixture(t)
	g := f.group("5A")
	conn := f.connection("", "Maths", g.ID)
	other := f.connection("", "French", f.group("5B").ID)
	q := f.quarter(date(2024, 1, 1), date(2024, 3, 31))

	tests := []struct {
		name                       string
		groupID, quarterID, connID string
	}{
		{name: "group", groupID: "nope", quarterID: q.ID, connID: conn.ID},
		{name: "quarter", groupID: g.ID, quarterID: "nope", connID: conn.ID},
		{name: "connection", groupID: g.ID, quarterID: q.ID, connID: "nope"},
		{name: "connection of another group", groupID: g.ID, quarterID: q.ID, connID: other.ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.GroupReport(f.ctx, tc.groupID, tc.quarterID, tc.connID)
			assert.True(t, core.IsNotFound(err))
		})
	}
}

func TestService_StudentSubjects_transfer(t *testing.T) {
	f := newFixture(t)
	teacher := f.user(user.KindTeacher, "Grace", "Mbuyi")
	s := f.user(user.KindStudent, "Amani", "Kabila")
	other := f.user(user.KindStudent, "Zoe", "Baraka")

	// the source roster keeps the student after a transfer
	a := f.group("5A", s.ID, other.ID)
	b := f.group("5B", s.ID)
	connA := f.connection(teacher.ID, "History", a.ID)
	connB := f.connection(teacher.ID, "Biology", b.ID)
	_, err := f.db.CreateTransfer(f.ctx, school.Transfer{StudentID: s.ID, FromGroupID: a.ID, ToGroupID: b.ID, Date: date(2024, 2, 1)})
	require.NoError(t, err)
	q := f.quarter(date(2024, 1, 1), date(2024, 3, 31))

	l1 := f.lesson(connA.ID, date(2024, 1, 10), school.LessonSimple)
	l2 := f.lesson(connB.ID, date(2024, 2, 15), school.LessonSimple)
	lateA := f.lesson(connA.ID, date(2024, 2, 20), school.LessonSimple)
	earlyB := f.lesson(connB.ID, date(2024, 1, 20), school.LessonSimple)
	f.score(l1.ID, s.ID, stats.Record{Score: null.Float64From(70)})
	f.score(l2.ID, s.ID, stats.Record{Score: null.Float64From(90)})
	f.score(lateA.ID, s.ID, stats.Record{Score: null.Float64From(0)})
	f.score(earlyB.ID, s.ID, stats.Record{Score: null.Float64From(0)})
	f.score(l1.ID, other.ID, stats.Record{Score: null.Float64From(10)})

	rows, err := f.svc.StudentSubjects(f.ctx, s.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Biology", rows[0].Discipline.Title)
	assert.Equal(t, connB.ID, rows[0].Connection.ID)
	assert.Equal(t, null.Float64From(90), rows[0].Score)
	assert.Equal(t, 1, rows[0].Count)
	require.NotNil(t, rows[0].Teacher)
	assert.Equal(t, teacher.ID, rows[0].Teacher.ID)

	assert.Equal(t, "History", rows[1].Discipline.Title)
	assert.Equal(t, null.Float64From(70), rows[1].Score)
	assert.Equal(t, 1, rows[1].Count)

	t.Run("lessons of one connection", func(t *testing.T) {
		sc, err := f.svc.StudentLessons(f.ctx, s.ID, connA.ID)
		require.NoError(t, err)
		require.Len(t, sc.Lessons, 1)
		assert.Equal(t, l1.ID, sc.Lessons[0].ID)
		require.Len(t, sc.Scores, 1)
		assert.Equal(t, null.Float64From(70), sc.Scores[0].Score)
	})
}

func TestService_StudentSubjects_inactive(t *testing.T) {
	f := newFixture(t)
	s := f.user(user.KindStudent, "Amani", "Kabila")
	q := f.quarter(date(2024, 1, 1), date(2024, 3, 31))
	_, err := f.db.SetUsersActive(f.ctx, user.Filter{IDs: []string{s.ID}}, false)
	require.NoError(t, err)

	_, err = f.svc.StudentSubjects(f.ctx, s.ID, q.ID)
	assert.ErrorIs(t, err, report.ErrStudentInactive)

	_, err = f.svc.StudentLessons(f.ctx, s.ID, "c1")
	assert.ErrorIs(t, err, report.ErrStudentInactive)
}

func TestService_StudentSubjects_noGroups(t *testing.T) {
	f := newFixture(t)
	s := f.user(user.KindStudent, "Amani", "Kabila")
	q := f.quarter(date(2024, 1, 1), date(2024, 3, 31))

	rows, err := f.svc.StudentSubjects(f.ctx, s.ID, q.ID)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestService_TeacherMonthly(t *testing.T) {
	f := newFixture(t)
	examiner := f.user(user.KindTeacher, "Grace", "Mbuyi")
	substitute := f.user(user.KindTeacher, "Paul", "Adeyemi")
	idle := f.user(user.KindTeacher, "Chloe", "Ngoy")
	s := f.user(user.KindStudent, "Amani", "Kabila")
	g := f.group("5A", s.ID)
	conn := f.connection(examiner.ID, "Maths", g.ID)

	// March 2024 school month is [03-04, 03-31]
	exam := f.lesson(conn.ID, date(2024, 3, 11), school.LessonMonthlyExam)
	early := f.lesson(conn.ID, date(2024, 3, 1), school.LessonMonthlyExam)
	simple := f.lesson(conn.ID, date(2024, 3, 12), school.LessonSimple)
	exam2 := f.lesson(conn.ID, date(2024, 3, 25), school.LessonMonthlyExam)

	f.score(exam.ID, s.ID, stats.Record{MonthlyExam: null.Float64From(60)})
	f.score(early.ID, s.ID, stats.Record{MonthlyExam: null.Float64From(10)})
	f.score(simple.ID, s.ID, stats.Record{MonthlyExam: null.Float64From(10)})
	_, err := f.db.UpsertScore(f.ctx, school.Score{LessonID: exam2.ID, StudentID: s.ID, TeacherID: substitute.ID, Record: stats.Record{MonthlyExam: null.Float64From(90)}})
	require.NoError(t, err)

	_, err = f.db.UpsertKPI(f.ctx, school.KPI{TeacherID: idle.ID, Month: "2024-03", Certificate: null.Float64From(5)})
	require.NoError(t, err)
	_, err = f.db.UpsertKPI(f.ctx, school.KPI{TeacherID: idle.ID, Month: "2024-02", Certificate: null.Float64From(1)})
	require.NoError(t, err)

	rep, err := f.svc.TeacherMonthly(f.ctx, branch, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", rep.Month)
	assert.Equal(t, date(2024, 3, 4), rep.Window.Start)
	require.Len(t, rep.Teachers, 3)

	byID := make(map[string]report.TeacherRow)
	for _, row := range rep.Teachers {
		byID[row.ID] = row
	}
	assert.Equal(t, []string{idle.ID, examiner.ID, substitute.ID}, []string{rep.Teachers[0].ID, rep.Teachers[1].ID, rep.Teachers[2].ID})

	assert.Equal(t, null.Float64From(60), byID[examiner.ID].MonthlyExam)
	assert.Equal(t, 1, byID[examiner.ID].Count)
	assert.Equal(t, null.Float64From(90), byID[substitute.ID].MonthlyExam)
	assert.Equal(t, 1, byID[substitute.ID].Count)

	assert.False(t, byID[idle.ID].MonthlyExam.Valid)
	assert.Equal(t, 0, byID[idle.ID].Count)
	assert.Equal(t, null.Float64From(5), byID[idle.ID].Certificate)

	_, err = f.svc.TeacherMonthly(f.ctx, branch, "March")
	assert.True(t, core.IsValidation(err))
}

type mapCache struct {
	values map[string]interface{}
	fail   bool
}

func (c *mapCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	if c.fail {
		return false, errors.New("cache down")
	}
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*dst.(*report.TeacherReport) = v.(report.TeacherReport)
	return true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	if c.fail {
		return errors.New("cache down")
	}
	c.values[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, prefixes ...string) error {
	if c.fail {
		return errors.New("cache down")
	}
	for key := range c.values {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				delete(c.values, key)
			}
		}
	}
	return nil
}

func TestService_cache(t *testing.T) {
	t.Run("hit", func(t *testing.T) {
		cache := &mapCache{values: make(map[string]interface{})}
		f := newFixture(t, report.WithCache(cache))
		f.user(user.KindTeacher, "Grace", "Mbuyi")

		rep, err := f.svc.TeacherMonthly(f.ctx, branch, "2024-03")
		require.NoError(t, err)
		require.Len(t, rep.Teachers, 1)
		assert.Contains(t, cache.values, "report:teachers:b1:2024-03")

		f.user(user.KindTeacher, "Paul", "Adeyemi")
		rep, err = f.svc.TeacherMonthly(f.ctx, branch, "2024-03-15")
		require.NoError(t, err)
		assert.Len(t, rep.Teachers, 1, "served from cache")
	})

	t.Run("failures are ignored", func(t *testing.T) {
		f := newFixture(t, report.WithCache(&mapCache{fail: true}))
		f.user(user.KindTeacher, "Grace", "Mbuyi")

		rep, err := f.svc.TeacherMonthly(f.ctx, branch, "2024-03")
		require.NoError(t, err)
		assert.Len(t, rep.Teachers, 1)

		f.svc.Invalidate(f.ctx, school.Scope{BranchID: branch})
	})

	t.Run("invalidated by school writes", func(t *testing.T) {
		cache := &mapCache{values: make(map[string]interface{})}
		f := newFixture(t, report.WithCache(cache))
		teacher := f.user(user.KindTeacher, "Grace", "Mbuyi")
		schoolSvc := school.NewService(f.db, core.NopLogger{}, func() time.Time { return date(2024, 3, 15) }, school.WithInvalidator(f.svc))

		rep, err := f.svc.TeacherMonthly(f.ctx, branch, "2024-03")
		require.NoError(t, err)
		require.Len(t, rep.Teachers, 1)
		assert.False(t, rep.Teachers[0].Participation.Valid)
		cache.values["report:group:g1:q1:c1"] = report.TeacherReport{}

		_, err = schoolSvc.ChangeKPI(f.ctx, school.KPIChange{TeacherID: teacher.ID, Month: "2024-03", Field: "participation", Value: null.Float64From(4)})
		require.NoError(t, err)
		assert.NotContains(t, cache.values, "report:teachers:b1:2024-03")
		assert.Contains(t, cache.values, "report:group:g1:q1:c1", "other scopes are kept")

		rep, err = f.svc.TeacherMonthly(f.ctx, branch, "2024-03")
		require.NoError(t, err)
		assert.Equal(t, null.Float64From(4), rep.Teachers[0].Participation)
	})

	t.Run("scopes", func(t *testing.T) {
		cache := &mapCache{values: map[string]interface{}{
			"report:group:g1:q1:c1":      report.TeacherReport{},
			"report:group:g10:q1:c1":     report.TeacherReport{},
			"report:subjects:s1:q1":      report.TeacherReport{},
			"report:teachers:b1:2024-03": report.TeacherReport{},
		}}
		f := newFixture(t, report.WithCache(cache))

		f.svc.Invalidate(f.ctx, school.Scope{GroupID: "g1", StudentID: "s1"})
		assert.Len(t, cache.values, 2)
		assert.Contains(t, cache.values, "report:group:g10:q1:c1")
		assert.Contains(t, cache.values, "report:teachers:b1:2024-03")
	})
}

func TestService_Calendar(t *testing.T) {
	f := newFixture(t)
	teacher := f.user(user.KindTeacher, "Grace", "Mbuyi")
	s := f.user(user.KindStudent, "Amani", "Kabila")
	loner := f.user(user.KindStudent, "Jan", "Vandenberg")
	admin := f.user(user.KindAdmin, "Chloe", "Ngoy")
	g := f.group("5A", s.ID)
	conn := f.connection(teacher.ID, "Maths", g.ID)
	hours, err := f.db.CreateHours(f.ctx, school.Hours{BranchID: branch, StartTime: "08:00", EndTime: "08:45"})
	require.NoError(t, err)

	created, err := f.db.CreateLessons(f.ctx,
		school.Lesson{ConnectionID: conn.ID, HoursID: hours.ID, Date: date(2024, 3, 12), Type: school.LessonSimple, Active: true},
		school.Lesson{ConnectionID: conn.ID, Date: date(2024, 3, 5), Type: school.LessonSimple, Active: true},
		school.Lesson{ConnectionID: conn.ID, Date: date(2024, 3, 19), Type: school.LessonSimple},
	)
	require.NoError(t, err)

	t.Run("student", func(t *testing.T) {
		lessons, err := f.svc.Calendar(f.ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, lessons, 2, "inactive lessons are left out")

		assert.Equal(t, created[1].ID, lessons[0].ID)
		assert.Nil(t, lessons[0].Hours)
		assert.Equal(t, created[0].ID, lessons[1].ID)
		require.NotNil(t, lessons[1].Hours)
		assert.Equal(t, "08:00", lessons[1].Hours.StartTime)

		for _, l := range lessons {
			require.NotNil(t, l.Group)
			assert.Equal(t, g.ID, l.Group.ID)
			assert.Empty(t, l.Group.Students)
			require.NotNil(t, l.Discipline)
			assert.Equal(t, "Maths", l.Discipline.Title)
			require.NotNil(t, l.Teacher)
			assert.Equal(t, teacher.ID, l.Teacher.ID)
		}
	})

	t.Run("teacher", func(t *testing.T) {
		lessons, err := f.svc.Calendar(f.ctx, teacher.ID)
		require.NoError(t, err)
		require.Len(t, lessons, 3)
		assert.Equal(t, created[2].ID, lessons[2].ID)
		assert.Nil(t, lessons[0].Teacher)
		assert.Equal(t, "Maths", lessons[0].Discipline.Title)
	})

	t.Run("student without groups", func(t *testing.T) {
		lessons, err := f.svc.Calendar(f.ctx, loner.ID)
		require.NoError(t, err)
		assert.NotNil(t, lessons)
		assert.Empty(t, lessons)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := f.svc.Calendar(f.ctx, "nope")
		assert.True(t, core.IsNotFound(err))

		_, err = f.svc.Calendar(f.ctx, admin.ID)
		assert.True(t, core.IsValidation(err))

		_, err = f.db.SetUsersActive(f.ctx, user.Filter{IDs: []string{s.ID}}, false)
		require.NoError(t, err)
		_, err = f.svc.Calendar(f.ctx, s.ID)
		assert.ErrorIs(t, err, report.ErrStudentInactive)
	})
}
