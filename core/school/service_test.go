package school_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/stats"
	"github.com/trezcool/alama/core/user"
	inmemdb "github.com/trezcool/alama/storage/database/inmem"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type env struct {
	t   *testing.T
	ctx context.Context
	db  *inmemdb.DB
	svc *school.Service
}

func setup(t *testing.T) *env {
	db := inmemdb.Open()
	return &env{t: t, ctx: context.Background(), db: db, svc: school.NewService(db, core.NopLogger{}, clock)}
}

func (e *env) user(kind user.Kind, uname string) user.User {
	usr, err := e.db.CreateUser(e.ctx, user.User{BranchID: "b1", Kind: kind, Username: uname, IsActive: true})
	require.NoError(e.t, err)
	return usr
}

func (e *env) group(title string, students ...string) school.Group {
	g, err := e.db.CreateGroup(e.ctx, school.Group{BranchID: "b1", Title: title, Students: students})
	require.NoError(e.t, err)
	return g
}

func (e *env) connection(teacherID, disciplineID, groupID string) school.Connection {
	c, err := e.db.CreateConnection(e.ctx, school.Connection{BranchID: "b1", TeacherID: teacherID, DisciplineID: disciplineID, GroupID: groupID, Active: true})
	require.NoError(e.t, err)
	return c
}

func (e *env) lesson(l school.Lesson) school.Lesson {
	l.Active = true
	lessons, err := e.db.CreateLessons(e.ctx, l)
	require.NoError(e.t, err)
	return lessons[0]
}

func day(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func TestService_TransferStudent(t *testing.T) {
	e := setup(t)
	s := e.user(user.KindStudent, "amani")
	a := e.group("5A", s.ID)
	b := e.group("5B")

	tr, err := e.svc.TransferStudent(e.ctx, school.NewTransfer{StudentID: s.ID, FromGroupID: a.ID, ToGroupID: b.ID, Date: day(2, 1)})
	require.NoError(t, err)
	assert.Equal(t, day(2, 1), tr.Date)

	gb, err := e.db.GetGroup(e.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, gb.HasStudent(s.ID))
	ga, err := e.db.GetGroup(e.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ga.HasStudent(s.ID), "the source roster is left untouched")

	tests := []struct {
		name         string
		nt           school.NewTransfer
		wantValidErr bool
		wantConflict bool
		wantNotFound bool
	}{
		{name: "not after the previous transfer", nt: school.NewTransfer{StudentID: s.ID, FromGroupID: b.ID, ToGroupID: a.ID, Date: day(2, 1)}, wantValidErr: true},
		{name: "not from the current group", nt: school.NewTransfer{StudentID: s.ID, FromGroupID: a.ID, ToGroupID: b.ID, Date: day(3, 1)}, wantConflict: true},
		{name: "unknown group", nt: school.NewTransfer{StudentID: s.ID, FromGroupID: b.ID, ToGroupID: "nope", Date: day(3, 1)}, wantNotFound: true},
		{name: "unknown student", nt: school.NewTransfer{StudentID: "nope", FromGroupID: b.ID, ToGroupID: a.ID, Date: day(3, 1)}, wantNotFound: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.TransferStudent(e.ctx, tc.nt)
			require.Error(t, err)
			// bad input is never reported as an aborted unit
			assert.Equal(t, tc.wantConflict, core.IsTransactionAborted(err))
			assert.Equal(t, tc.wantValidErr, core.IsValidation(err))
			assert.Equal(t, tc.wantConflict, core.IsConflict(err))
			assert.Equal(t, tc.wantNotFound, core.IsNotFound(err))
		})
	}

	t.Run("back again defaults to now", func(t *testing.T) {
		tr, err := e.svc.TransferStudent(e.ctx, school.NewTransfer{StudentID: s.ID, FromGroupID: b.ID, ToGroupID: a.ID})
		require.NoError(t, err)
		assert.Equal(t, now, tr.Date)

		transfers, err := e.db.QueryTransfers(e.ctx, school.TransferFilter{StudentIDs: []string{s.ID}})
		require.NoError(t, err)
		assert.Len(t, transfers, 2)
	})
}

func TestService_TransferStudent_notMember(t *testing.T) {
	e := setup(t)
	s := e.user(user.KindStudent, "amani")
	a := e.group("5A")
	b := e.group("5B")

	_, err := e.svc.TransferStudent(e.ctx, school.NewTransfer{StudentID: s.ID, FromGroupID: a.ID, ToGroupID: b.ID, Date: day(2, 1)})
	assert.True(t, core.IsConflict(err))

	transfers, err := e.db.QueryTransfers(e.ctx, school.TransferFilter{})
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestService_AddStudents(t *testing.T) {
	e := setup(t)
	g := e.group("5A")
	generated := 0
	defer school.MockGeneratePassword(func() (string, error) {
		generated++
		return "s3cr3t", nil
	})()

	accounts, err := e.svc.AddStudents(e.ctx, school.NewStudents{
		GroupID: g.ID,
		Students: []school.NewStudent{
			{GivenName: "Amani", FamilyName: "Kabila"},
			{GivenName: "Zoe", FamilyName: "Baraka", Username: "zoe_b", Password: "chosen-pwd"},
		},
	})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, 1, generated)

	assert.Equal(t, "kabila_amani", accounts[0].Username)
	assert.Equal(t, "s3cr3t", accounts[0].Password)
	assert.NoError(t, accounts[0].CheckPassword("s3cr3t"))
	assert.Empty(t, accounts[1].Password, "chosen passwords are not echoed")
	assert.NoError(t, accounts[1].CheckPassword("chosen-pwd"))

	got, err := e.db.GetGroup(e.ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{accounts[0].ID, accounts[1].ID}, got.Students)

	t.Run("username taken rolls back", func(t *testing.T) {
		_, err := e.svc.AddStudents(e.ctx, school.NewStudents{
			GroupID: g.ID,
			Students: []school.NewStudent{
				{GivenName: "Jan", FamilyName: "Vandenberg"},
				{GivenName: "Amani", FamilyName: "Kabila"},
			},
		})
		assert.True(t, core.IsConflict(err))

		users, err := e.db.QueryUsers(e.ctx, user.Filter{Username: "vandenberg_jan"})
		require.NoError(t, err)
		assert.Empty(t, users)
		got, err := e.db.GetGroup(e.ctx, g.ID)
		require.NoError(t, err)
		assert.Len(t, got.Students, 2)
	})
}

func TestService_ChangeScore(t *testing.T) {
	e := setup(t)
	teacher := e.user(user.KindTeacher, "grace")
	s := e.user(user.KindStudent, "amani")
	g := e.group("5A", s.ID)
	conn := e.connection(teacher.ID, "d1", g.ID)
	l := e.lesson(school.Lesson{ConnectionID: conn.ID, Date: day(3, 11)})

	_, err := e.svc.ChangeScore(e.ctx, school.ScoreChange{LessonID: l.ID, StudentID: s.ID, Field: "homework", Value: null.Float64From(7)})
	require.NoError(t, err)
	score, err := e.svc.ChangeScore(e.ctx, school.ScoreChange{LessonID: l.ID, StudentID: s.ID, Field: "attend", Value: null.Float64From(1)})
	require.NoError(t, err)

	assert.Equal(t, teacher.ID, score.TeacherID)
	assert.Equal(t, null.Float64From(7), score.Homework)
	assert.Equal(t, null.BoolFrom(true), score.Attend)
	assert.Equal(t, now, score.UpdatedAt)

	scores, err := e.db.QueryScores(e.ctx, school.ScoreFilter{LessonIDs: []string{l.ID}})
	require.NoError(t, err)
	assert.Len(t, scores, 1)

	_, err = e.svc.ChangeScore(e.ctx, school.ScoreChange{LessonID: l.ID, StudentID: s.ID, Field: "charisma", Value: null.Float64From(1)})
	assert.True(t, core.IsValidation(err))

	_, err = e.svc.ChangeScore(e.ctx, school.ScoreChange{LessonID: l.ID, StudentID: teacher.ID, Field: string(stats.FieldScore), Value: null.Float64From(1)})
	assert.True(t, core.IsNotFound(err))
}

// gatedStore holds every score and KPI write until n of them are pending.
type gatedStore struct {
	*inmemdb.DB
	writes sync.WaitGroup
}

func newGatedStore(db *inmemdb.DB, n int) *gatedStore {
	gs := &gatedStore{DB: db}
	gs.writes.Add(n)
	return gs
}

func (gs *gatedStore) wait() {
	gs.writes.Done()
	gs.writes.Wait()
}

func (gs *gatedStore) UpsertScore(ctx context.Context, s school.Score, columns ...string) (school.Score, error) {
	gs.wait()
	return gs.DB.UpsertScore(ctx, s, columns...)
}

func (gs *gatedStore) UpsertKPI(ctx context.Context, k school.KPI, columns ...string) (school.KPI, error) {
	gs.wait()
	return gs.DB.UpsertKPI(ctx, k, columns...)
}

func TestService_ChangeScore_concurrentFields(t *testing.T) {
	e := setup(t)
	teacher := e.user(user.KindTeacher, "grace")
	s := e.user(user.KindStudent, "amani")
	conn := e.connection(teacher.ID, "d1", e.group("5A", s.ID).ID)
	l := e.lesson(school.Lesson{ConnectionID: conn.ID, Date: day(3, 11)})

	// an existing score, so that every writer finds it
	_, err := e.svc.ChangeScore(e.ctx, school.ScoreChange{LessonID: l.ID, StudentID: s.ID, Field: "behavior", Value: null.Float64From(5)})
	require.NoError(t, err)

	svc := school.NewService(newGatedStore(e.db, 3), core.NopLogger{}, clock)
	writers := []func() error{
		func() error {
			_, err := svc.ChangeScore(e.ctx, school.ScoreChange{LessonID: l.ID, StudentID: s.ID, Field: "score", Value: null.Float64From(80)})
			return err
		},
		func() error {
			_, err := svc.ChangeScore(e.ctx, school.ScoreChange{LessonID: l.ID, StudentID: s.ID, Field: "attend", Value: null.Float64From(1)})
			return err
		},
		func() error {
			_, err := svc.SubmitHomework(e.ctx, s.ID, school.NewHomework{LessonID: l.ID, Text: "done"})
			return err
		},
	}
	errs := make(chan error, len(writers))
	for _, w := range writers {
		w := w
		go func() { errs <- w() }()
	}
	for range writers {
		require.NoError(t, <-errs)
	}

	scores, err := e.db.QueryScores(e.ctx, school.ScoreFilter{LessonIDs: []string{l.ID}})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, null.Float64From(80), scores[0].Score)
	assert.Equal(t, null.BoolFrom(true), scores[0].Attend)
	assert.Equal(t, null.StringFrom("done"), scores[0].Assign)
	assert.Equal(t, null.Float64From(5), scores[0].Behavior)
	assert.Equal(t, teacher.ID, scores[0].TeacherID)
}

func TestService_ChangeKPI_concurrentFields(t *testing.T) {
	e := setup(t)
	teacher := e.user(user.KindTeacher, "grace")
	svc := school.NewService(newGatedStore(e.db, 2), core.NopLogger{}, clock)

	errs := make(chan error, 2)
	for _, field := range []string{"participation", "certificate"} {
		field := field
		go func() {
			_, err := svc.ChangeKPI(e.ctx, school.KPIChange{TeacherID: teacher.ID, Month: "2024-03", Field: field, Value: null.Float64From(4)})
			errs <- err
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	kpis, err := e.db.QueryKPIs(e.ctx, school.KPIFilter{TeacherIDs: []string{teacher.ID}})
	require.NoError(t, err)
	require.Len(t, kpis, 1)
	assert.Equal(t, null.Float64From(4), kpis[0].Participation)
	assert.Equal(t, null.Float64From(4), kpis[0].Certificate)
}

func TestService_SubmitHomework(t *testing.T) {
	e := setup(t)
	s := e.user(user.KindStudent, "amani")
	l := e.lesson(school.Lesson{ConnectionID: "c1", Date: day(3, 11)})

	tests := []struct {
		name         string
		end          time.Time
		wantConflict bool
	}{
		{name: "same day", end: day(3, 15)},
		{name: "later", end: day(3, 20)},
		{name: "past", end: day(3, 14), wantConflict: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lesson, err := e.svc.SetHomework(e.ctx, l.ID, null.StringFrom("read ch. 3"), null.Time{}, null.TimeFrom(tc.end))
			require.NoError(t, err)
			assert.Equal(t, 23, lesson.HomeworkEnd.Time.Hour())

			score, err := e.svc.SubmitHomework(e.ctx, s.ID, school.NewHomework{LessonID: l.ID, Text: "done"})
			if tc.wantConflict {
				assert.True(t, core.IsConflict(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, null.StringFrom("done"), score.Assign)
		})
	}
}

func TestService_ChangeKPI(t *testing.T) {
	e := setup(t)
	teacher := e.user(user.KindTeacher, "grace")

	_, err := e.svc.ChangeKPI(e.ctx, school.KPIChange{TeacherID: teacher.ID, Month: "2024-03", Field: "certificate", Value: null.Float64From(3)})
	require.NoError(t, err)
	kpi, err := e.svc.ChangeKPI(e.ctx, school.KPIChange{TeacherID: teacher.ID, Month: "2024-03", Field: "attend", Value: null.Float64From(95)})
	require.NoError(t, err)
	assert.Equal(t, null.Float64From(3), kpi.Certificate)
	assert.Equal(t, null.Float64From(95), kpi.Attend)

	_, err = e.svc.ChangeKPI(e.ctx, school.KPIChange{TeacherID: teacher.ID, Month: "2024-03", Field: "charisma"})
	assert.True(t, core.IsValidation(err))
}

func TestService_CreateQuarter(t *testing.T) {
	e := setup(t)
	_, err := e.svc.CreateQuarter(e.ctx, school.NewQuarter{BranchID: "b1", StartDate: day(3, 31), EndDate: day(1, 1)})
	assert.True(t, core.IsValidation(err))

	q, err := e.svc.CreateQuarter(e.ctx, school.NewQuarter{BranchID: "b1", StartDate: day(1, 1), EndDate: day(3, 31)})
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
}
