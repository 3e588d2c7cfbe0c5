package inmemdb

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

// groups

func cloneGroup(g school.Group) school.Group {
	g.Students = slices.Clone(g.Students)
	if g.Students == nil {
		g.Students = []string{}
	}
	return g
}

func (repo *repository) CreateGroup(ctx context.Context, g school.Group) (school.Group, error) {
	defer repo.lock()()
	g.ID = uuid.New().String()
	g = cloneGroup(g)
	repo.db.groups = append(repo.db.groups, g)
	return cloneGroup(g), nil
}

func (repo *repository) GetGroup(ctx context.Context, id string) (school.Group, error) {
	defer repo.rlock()()
	g, err := get(repo.db.groups, func(g school.Group) bool { return g.ID == id }, "group", id)
	return cloneGroup(g), err
}

func (repo *repository) QueryGroups(ctx context.Context, filter school.GroupFilter) ([]school.Group, error) {
	defer repo.rlock()()
	groups := query(repo.db.groups, filter.Match)
	for i := range groups {
		groups[i] = cloneGroup(groups[i])
	}
	return groups, nil
}

func (repo *repository) AddGroupStudents(ctx context.Context, groupID string, studentIDs ...string) error {
	defer repo.lock()()

	i := slices.IndexFunc(repo.db.groups, func(g school.Group) bool { return g.ID == groupID })
	if i < 0 {
		return core.NewNotFoundError("group", groupID)
	}
	g := &repo.db.groups[i]
	for _, id := range studentIDs {
		if !g.HasStudent(id) {
			g.Students = append(g.Students, id)
		}
	}
	return nil
}

func (repo *repository) PullGroupStudent(ctx context.Context, studentID string) error {
	defer repo.lock()()
	for i := range repo.db.groups {
		g := &repo.db.groups[i]
		g.Students = slices.DeleteFunc(g.Students, func(id string) bool { return id == studentID })
	}
	return nil
}

func (repo *repository) DeleteGroup(ctx context.Context, id string) error {
	defer repo.lock()()
	repo.db.groups = slices.DeleteFunc(repo.db.groups, func(g school.Group) bool { return g.ID == id })
	return nil
}

// transfers

func (repo *repository) CreateTransfer(ctx context.Context, t school.Transfer) (school.Transfer, error) {
	defer repo.lock()()
	t.ID = uuid.New().String()
	repo.db.transfers = append(repo.db.transfers, t)
	return t, nil
}

func (repo *repository) QueryTransfers(ctx context.Context, filter school.TransferFilter) ([]school.Transfer, error) {
	defer repo.rlock()()
	transfers := query(repo.db.transfers, filter.Match)
	sort.SliceStable(transfers, func(i, j int) bool { return transfers[i].Date.Before(transfers[j].Date) })
	return transfers, nil
}

// disciplines

func (repo *repository) CreateDiscipline(ctx context.Context, d school.Discipline) (school.Discipline, error) {
	defer repo.lock()()
	d.ID = uuid.New().String()
	repo.db.disciplines = append(repo.db.disciplines, d)
	return d, nil
}

func (repo *repository) GetDiscipline(ctx context.Context, id string) (school.Discipline, error) {
	defer repo.rlock()()
	return get(repo.db.disciplines, func(d school.Discipline) bool { return d.ID == id }, "discipline", id)
}

func (repo *repository) QueryDisciplines(ctx context.Context, filter school.DisciplineFilter) ([]school.Discipline, error) {
	defer repo.rlock()()
	return query(repo.db.disciplines, filter.Match), nil
}

func (repo *repository) DeleteDiscipline(ctx context.Context, id string) error {
	defer repo.lock()()
	repo.db.disciplines = slices.DeleteFunc(repo.db.disciplines, func(d school.Discipline) bool { return d.ID == id })
	return nil
}

// connections

func (repo *repository) CreateConnection(ctx context.Context, c school.Connection) (school.Connection, error) {
	defer repo.lock()()
	c.ID = uuid.New().String()
	repo.db.connections = append(repo.db.connections, c)
	return c, nil
}

func (repo *repository) GetConnection(ctx context.Context, id string) (school.Connection, error) {
	defer repo.rlock()()
	return get(repo.db.connections, func(c school.Connection) bool { return c.ID == id }, "connection", id)
}

func (repo *repository) QueryConnections(ctx context.Context, filter school.ConnectionFilter) ([]school.Connection, error) {
	defer repo.rlock()()
	return query(repo.db.connections, filter.Match), nil
}

func (repo *repository) UpdateConnections(ctx context.Context, filter school.ConnectionFilter, upd school.ConnectionUpdate) error {
	defer repo.lock()()
	update(repo.db.connections, filter.Match, upd.Apply)
	return nil
}

func (repo *repository) DeleteConnection(ctx context.Context, id string) error {
	defer repo.lock()()
	repo.db.connections = slices.DeleteFunc(repo.db.connections, func(c school.Connection) bool { return c.ID == id })
	return nil
}

// hours

func (repo *repository) CreateHours(ctx context.Context, h school.Hours) (school.Hours, error) {
	defer repo.lock()()
	h.ID = uuid.New().String()
	repo.db.hours = append(repo.db.hours, h)
	return h, nil
}

func (repo *repository) GetHours(ctx context.Context, id string) (school.Hours, error) {
	defer repo.rlock()()
	return get(repo.db.hours, func(h school.Hours) bool { return h.ID == id }, "hours", id)
}

func (repo *repository) DeleteHours(ctx context.Context, id string) error {
	defer repo.lock()()
	repo.db.hours = slices.DeleteFunc(repo.db.hours, func(h school.Hours) bool { return h.ID == id })
	return nil
}

// lessons

func (repo *repository) CreateLessons(ctx context.Context, lessons ...school.Lesson) ([]school.Lesson, error) {
	defer repo.lock()()
	created := make([]school.Lesson, 0, len(lessons))
	for _, l := range lessons {
		l.ID = uuid.New().String()
		created = append(created, l)
	}
	repo.db.lessons = append(repo.db.lessons, created...)
	return created, nil
}

func (repo *repository) GetLesson(ctx context.Context, id string) (school.Lesson, error) {
	defer repo.rlock()()
	return get(repo.db.lessons, func(l school.Lesson) bool { return l.ID == id }, "lesson", id)
}

func (repo *repository) QueryLessons(ctx context.Context, filter school.LessonFilter) ([]school.Lesson, error) {
	defer repo.rlock()()
	lessons := query(repo.db.lessons, filter.Match)
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Date.Before(lessons[j].Date) })
	return lessons, nil
}

func (repo *repository) UpdateLesson(ctx context.Context, l school.Lesson) (school.Lesson, error) {
	defer repo.lock()()
	i := slices.IndexFunc(repo.db.lessons, func(row school.Lesson) bool { return row.ID == l.ID })
	if i < 0 {
		return school.Lesson{}, core.NewNotFoundError("lesson", l.ID)
	}
	repo.db.lessons[i] = l
	return l, nil
}

func (repo *repository) UpdateLessons(ctx context.Context, filter school.LessonFilter, upd school.LessonUpdate) error {
	defer repo.lock()()
	update(repo.db.lessons, filter.Match, upd.Apply)
	return nil
}

func (repo *repository) DeleteLessons(ctx context.Context, filter school.LessonFilter) error {
	defer repo.lock()()
	repo.db.lessons = slices.DeleteFunc(repo.db.lessons, filter.Match)
	return nil
}

// quarters

func (repo *repository) CreateQuarter(ctx context.Context, q school.Quarter) (school.Quarter, error) {
	defer repo.lock()()
	q.ID = uuid.New().String()
	repo.db.quarters = append(repo.db.quarters, q)
	return q, nil
}

func (repo *repository) GetQuarter(ctx context.Context, id string) (school.Quarter, error) {
	defer repo.rlock()()
	return get(repo.db.quarters, func(q school.Quarter) bool { return q.ID == id }, "quarter", id)
}

func (repo *repository) QueryQuarters(ctx context.Context, branchID string) ([]school.Quarter, error) {
	defer repo.rlock()()
	quarters := query(repo.db.quarters, func(q school.Quarter) bool { return q.BranchID == branchID })
	sort.SliceStable(quarters, func(i, j int) bool { return quarters[i].StartDate.Before(quarters[j].StartDate) })
	return quarters, nil
}

func (repo *repository) DeleteQuarter(ctx context.Context, id string) error {
	defer repo.lock()()
	repo.db.quarters = slices.DeleteFunc(repo.db.quarters, func(q school.Quarter) bool { return q.ID == id })
	return nil
}
