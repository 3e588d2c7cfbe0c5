package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
	"github.com/trezcool/alama/core/user"
)

// CalendarLesson is a timetable entry: a lesson with its slot and the class it is taught to.
// Group rosters are left out.
type CalendarLesson struct {
	school.Lesson
	Hours      *school.Hours      `json:"hours"`
	Group      *school.Group      `json:"group"`
	Discipline *school.Discipline `json:"discipline"`
	Teacher    *user.User         `json:"teacher,omitempty"`
}

// Calendar lists, by ascending date, the active lessons taught to the groups of a student,
// or every lesson of a teacher's connections.
func (svc *Service) Calendar(ctx context.Context, userID string) ([]CalendarLesson, error) {
	usr, err := svc.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "getting user")
	}

	var (
		conns  []school.Connection
		filter school.LessonFilter
	)
	switch usr.Kind {
	case user.KindStudent:
		if !usr.IsActive {
			return nil, ErrStudentInactive
		}
		groups, err := svc.repo.QueryGroups(ctx, school.GroupFilter{StudentID: usr.ID})
		if err != nil {
			return nil, errors.Wrap(err, "querying groups")
		}
		if len(groups) == 0 {
			return []CalendarLesson{}, nil
		}
		groupIDs := make([]string, 0, len(groups))
		for _, g := range groups {
			groupIDs = append(groupIDs, g.ID)
		}
		if conns, err = svc.repo.QueryConnections(ctx, school.ConnectionFilter{GroupIDs: groupIDs}); err != nil {
			return nil, errors.Wrap(err, "querying connections")
		}
		active := true
		filter.Active = &active
	case user.KindTeacher:
		if conns, err = svc.repo.QueryConnections(ctx, school.ConnectionFilter{TeacherID: usr.ID}); err != nil {
			return nil, errors.Wrap(err, "querying connections")
		}
	default:
		return nil, core.NewValidationError(nil, core.FieldError{Field: "user", Error: "only students and teachers have a calendar"})
	}
	if len(conns) == 0 {
		return []CalendarLesson{}, nil
	}

	byID := make(map[string]school.Connection, len(conns))
	for _, c := range conns {
		byID[c.ID] = c
		filter.ConnectionIDs = append(filter.ConnectionIDs, c.ID)
	}
	lessons, err := svc.repo.QueryLessons(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return svc.populate(ctx, lessons, byID, usr.Kind == user.KindStudent)
}

// populate attaches to each lesson the records its connection references. Teachers are
// only attached when withTeacher is set.
func (svc *Service) populate(ctx context.Context, lessons []school.Lesson, conns map[string]school.Connection, withTeacher bool) ([]CalendarLesson, error) {
	var groupIDs, disciplineIDs, teacherIDs []string
	hours := make(map[string]*school.Hours)
	for _, c := range conns {
		groupIDs = append(groupIDs, c.GroupID)
		if c.DisciplineID != "" {
			disciplineIDs = append(disciplineIDs, c.DisciplineID)
		}
		if withTeacher && c.TeacherID != "" {
			teacherIDs = append(teacherIDs, c.TeacherID)
		}
	}
	for _, l := range lessons {
		if l.HoursID == "" {
			continue
		}
		if _, ok := hours[l.HoursID]; ok {
			continue
		}
		h, err := svc.repo.GetHours(ctx, l.HoursID)
		if err != nil {
			return nil, errors.Wrap(err, "getting hours")
		}
		hours[l.HoursID] = &h
	}

	groups, err := svc.repo.QueryGroups(ctx, school.GroupFilter{IDs: groupIDs})
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groupsByID := make(map[string]*school.Group, len(groups))
	for i := range groups {
		groups[i].Students = nil
		groupsByID[groups[i].ID] = &groups[i]
	}

	disciplinesByID := make(map[string]*school.Discipline)
	if len(disciplineIDs) > 0 {
		disciplines, err := svc.repo.QueryDisciplines(ctx, school.DisciplineFilter{IDs: disciplineIDs})
		if err != nil {
			return nil, errors.Wrap(err, "querying disciplines")
		}
		for i := range disciplines {
			disciplinesByID[disciplines[i].ID] = &disciplines[i]
		}
	}
	teachers, err := svc.users(ctx, teacherIDs)
	if err != nil {
		return nil, err
	}

	out := make([]CalendarLesson, 0, len(lessons))
	for _, l := range lessons {
		conn := conns[l.ConnectionID]
		entry := CalendarLesson{
			Lesson:     l,
			Hours:      hours[l.HoursID],
			Group:      groupsByID[conn.GroupID],
			Discipline: disciplinesByID[conn.DisciplineID],
		}
		if t, ok := teachers[conn.TeacherID]; ok {
			entry.Teacher = &t
		}
		out = append(out, entry)
	}
	return out, nil
}
