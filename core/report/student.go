package report

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/membership"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/stats"
	"github.com/trezcool/alama/core/user"
)

// SubjectRow is the aggregate of a student's records in one discipline.
// Connection is the first connection found for the discipline.
type SubjectRow struct {
	Discipline school.Discipline `json:"discipline"`
	Connection school.Connection `json:"connection"`
	Teacher    *user.User        `json:"teacher,omitempty"`
	stats.Summary
}

func (svc *Service) activeStudent(ctx context.Context, studentID string) (user.User, error) {
	student, err := user.GetKind(ctx, svc.repo, studentID, user.KindStudent)
	if err != nil {
		return user.User{}, err
	}
	if !student.IsActive {
		return user.User{}, ErrStudentInactive
	}
	return student, nil
}

func (svc *Service) timeline(ctx context.Context, studentID string) (membership.Timeline, error) {
	transfers, err := svc.repo.QueryTransfers(ctx, school.TransferFilter{StudentIDs: []string{studentID}})
	if err != nil {
		return membership.Timeline{}, errors.Wrap(err, "querying transfers")
	}
	return membership.NewTimeline(school.Events(transfers)), nil
}

// StudentSubjects aggregates the student's records per discipline over the quarter.
// Only lessons dated while the student belonged to the lesson's group are counted.
func (svc *Service) StudentSubjects(ctx context.Context, studentID, quarterID string) ([]SubjectRow, error) {
	student, err := svc.activeStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	key := subjectKeys + fmt.Sprintf("%s:%s", student.ID, quarterID)
	return cached(ctx, svc, key, func() ([]SubjectRow, error) {
		return svc.studentSubjects(ctx, student, quarterID)
	})
}

func (svc *Service) studentSubjects(ctx context.Context, student user.User, quarterID string) ([]SubjectRow, error) {
	window, err := svc.quarterWindow(ctx, quarterID)
	if err != nil {
		return nil, err
	}
	groups, err := svc.repo.QueryGroups(ctx, school.GroupFilter{StudentID: student.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	rows := make([]SubjectRow, 0)
	if len(groups) == 0 {
		return rows, nil
	}
	groupIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	active := true
	conns, err := svc.repo.QueryConnections(ctx, school.ConnectionFilter{GroupIDs: groupIDs, Active: &active})
	if err != nil {
		return nil, errors.Wrap(err, "querying connections")
	}
	tl, err := svc.timeline(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	var (
		order      []string // discipline IDs, by first appearance
		first      = make(map[string]school.Connection)
		byLesson   = make(map[string]string) // lesson ID -> discipline ID
		lessons    []school.Lesson
		teacherIDs []string
	)
	for _, conn := range conns {
		if conn.DisciplineID == "" {
			continue
		}
		if _, ok := first[conn.DisciplineID]; !ok {
			first[conn.DisciplineID] = conn
			order = append(order, conn.DisciplineID)
			if conn.TeacherID != "" {
				teacherIDs = append(teacherIDs, conn.TeacherID)
			}
		}

		connLessons, err := svc.repo.QueryLessons(ctx, school.LessonFilter{
			ConnectionIDs: []string{conn.ID},
			Active:        &active,
			From:          window.Start,
			To:            window.End,
		})
		if err != nil {
			return nil, errors.Wrap(err, "querying lessons")
		}
		member := tl.Membership(student.ID, conn.GroupID)
		for _, l := range connLessons {
			if member.Contains(l.Date) {
				lessons = append(lessons, l)
				byLesson[l.ID] = conn.DisciplineID
			}
		}
	}
	if len(order) == 0 {
		return rows, nil
	}

	scores, err := svc.scores(ctx, lessons, student.ID)
	if err != nil {
		return nil, err
	}
	records := make(map[string][]stats.Record, len(order))
	for _, s := range scores {
		id := byLesson[s.LessonID]
		records[id] = append(records[id], s.Record)
	}
	summaries := stats.GroupBy(order, records, stats.DefaultSpec)

	disciplines, err := svc.repo.QueryDisciplines(ctx, school.DisciplineFilter{IDs: order})
	if err != nil {
		return nil, errors.Wrap(err, "querying disciplines")
	}
	titles := make(map[string]school.Discipline, len(disciplines))
	for _, d := range disciplines {
		titles[d.ID] = d
	}
	teachers, err := svc.users(ctx, teacherIDs)
	if err != nil {
		return nil, err
	}

	for _, id := range order {
		d, ok := titles[id]
		if !ok {
			continue
		}
		row := SubjectRow{Discipline: d, Connection: first[id], Summary: summaries[id]}
		if t, ok := teachers[row.Connection.TeacherID]; ok {
			row.Teacher = &t
		}
		rows = append(rows, row)
	}
	sortByName(svc, rows, func(r SubjectRow) string { return r.Discipline.Title })
	return rows, nil
}

// StudentConnection holds the lessons of one connection a student attended, with their scores.
type StudentConnection struct {
	Connection school.Connection `json:"connection"`
	Lessons    []school.Lesson   `json:"lessons"`
	Scores     []school.Score    `json:"scores"`
}

// StudentLessons lists the active lessons of the connection dated while the student
// belonged to its group, by ascending date.
func (svc *Service) StudentLessons(ctx context.Context, studentID, connectionID string) (StudentConnection, error) {
	student, err := svc.activeStudent(ctx, studentID)
	if err != nil {
		return StudentConnection{}, err
	}
	conn, err := svc.repo.GetConnection(ctx, connectionID)
	if err != nil {
		return StudentConnection{}, errors.Wrap(err, "getting connection")
	}
	tl, err := svc.timeline(ctx, student.ID)
	if err != nil {
		return StudentConnection{}, err
	}

	active := true
	all, err := svc.repo.QueryLessons(ctx, school.LessonFilter{ConnectionIDs: []string{conn.ID}, Active: &active})
	if err != nil {
		return StudentConnection{}, errors.Wrap(err, "querying lessons")
	}
	member := tl.Membership(student.ID, conn.GroupID)
	lessons := make([]school.Lesson, 0, len(all))
	for _, l := range all {
		if member.Contains(l.Date) {
			lessons = append(lessons, l)
		}
	}

	scores, err := svc.scores(ctx, lessons, student.ID)
	if err != nil {
		return StudentConnection{}, err
	}
	if scores == nil {
		scores = []school.Score{}
	}
	return StudentConnection{Connection: conn, Lessons: lessons, Scores: scores}, nil
}
