package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

// groups

type groupRow struct {
	school.Group
	Roster pq.StringArray `db:"students"`
}

func (r groupRow) group() school.Group {
	g := r.Group
	g.Students = []string(r.Roster)
	if g.Students == nil {
		g.Students = []string{}
	}
	return g
}

var groupColumns = []string{"id", "branch_id", "title", "students"}

func (repo *repository) CreateGroup(ctx context.Context, g school.Group) (school.Group, error) {
	g.ID = uuid.New().String()
	if g.Students == nil {
		g.Students = []string{}
	}
	q := psql.Insert("student_groups").Columns(groupColumns...).Values(g.ID, g.BranchID, g.Title, pq.Array(g.Students))
	if _, err := repo.exec(ctx, q); err != nil {
		return school.Group{}, errors.Wrap(err, "inserting group")
	}
	return g, nil
}

func (repo *repository) GetGroup(ctx context.Context, id string) (school.Group, error) {
	var row groupRow
	err := repo.get(ctx, &row, psql.Select(groupColumns...).From("student_groups").Where(sq.Eq{"id": id}), "group", id)
	return row.group(), err
}

func (repo *repository) QueryGroups(ctx context.Context, filter school.GroupFilter) ([]school.Group, error) {
	var rows []groupRow
	q := psql.Select(groupColumns...).From("student_groups").Where(groupWhere(filter)).OrderBy("title")
	if err := repo.selectAll(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}
	groups := make([]school.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.group())
	}
	return groups, nil
}

func (repo *repository) AddGroupStudents(ctx context.Context, groupID string, studentIDs ...string) error {
	if _, err := repo.GetGroup(ctx, groupID); err != nil {
		return err
	}
	for _, id := range studentIDs {
		q := psql.Update("student_groups").
			Set("students", sq.Expr("array_append(students, ?)", id)).
			Where(sq.Eq{"id": groupID}).
			Where(sq.Expr("NOT (? = ANY(students))", id))
		if _, err := repo.exec(ctx, q); err != nil {
			return errors.Wrap(err, "appending student")
		}
	}
	return nil
}

func (repo *repository) PullGroupStudent(ctx context.Context, studentID string) error {
	q := psql.Update("student_groups").
		Set("students", sq.Expr("array_remove(students, ?)", studentID)).
		Where(sq.Expr("? = ANY(students)", studentID))
	_, err := repo.exec(ctx, q)
	return errors.Wrap(err, "pulling student")
}

func (repo *repository) DeleteGroup(ctx context.Context, id string) error {
	_, err := repo.exec(ctx, psql.Delete("student_groups").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting group")
}

// transfers

var transferColumns = []string{"id", "student_id", "from_group_id", "to_group_id", "date"}

func (repo *repository) CreateTransfer(ctx context.Context, t school.Transfer) (school.Transfer, error) {
	t.ID = uuid.New().String()
	q := psql.Insert("transfers").Columns(transferColumns...).Values(t.ID, t.StudentID, t.FromGroupID, t.ToGroupID, t.Date)
	if _, err := repo.exec(ctx, q); err != nil {
		return school.Transfer{}, errors.Wrap(err, "inserting transfer")
	}
	return t, nil
}

func (repo *repository) QueryTransfers(ctx context.Context, filter school.TransferFilter) ([]school.Transfer, error) {
	transfers := make([]school.Transfer, 0)
	q := psql.Select(transferColumns...).From("transfers").Where(transferWhere(filter)).OrderBy("date", "id")
	if err := repo.selectAll(ctx, &transfers, q); err != nil {
		return nil, errors.Wrap(err, "selecting transfers")
	}
	return transfers, nil
}

// disciplines

var disciplineColumns = []string{"id", "branch_id", "title"}

func (repo *repository) CreateDiscipline(ctx context.Context, d school.Discipline) (school.Discipline, error) {
	d.ID = uuid.New().String()
	q := psql.Insert("disciplines").Columns(disciplineColumns...).Values(d.ID, d.BranchID, d.Title)
	if _, err := repo.exec(ctx, q); err != nil {
		return school.Discipline{}, errors.Wrap(err, "inserting discipline")
	}
	return d, nil
}

func (repo *repository) GetDiscipline(ctx context.Context, id string) (school.Discipline, error) {
	var d school.Discipline
	err := repo.get(ctx, &d, psql.Select(disciplineColumns...).From("disciplines").Where(sq.Eq{"id": id}), "discipline", id)
	return d, err
}

func (repo *repository) QueryDisciplines(ctx context.Context, filter school.DisciplineFilter) ([]school.Discipline, error) {
	disciplines := make([]school.Discipline, 0)
	q := psql.Select(disciplineColumns...).From("disciplines").Where(disciplineWhere(filter)).OrderBy("title")
	if err := repo.selectAll(ctx, &disciplines, q); err != nil {
		return nil, errors.Wrap(err, "selecting disciplines")
	}
	return disciplines, nil
}

func (repo *repository) DeleteDiscipline(ctx context.Context, id string) error {
	_, err := repo.exec(ctx, psql.Delete("disciplines").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting discipline")
}

// connections

var connectionColumns = []string{"id", "branch_id", "teacher_id", "discipline_id", "group_id", "active"}

func (repo *repository) CreateConnection(ctx context.Context, c school.Connection) (school.Connection, error) {
	c.ID = uuid.New().String()
	q := psql.Insert("connections").Columns(connectionColumns...).
		Values(c.ID, c.BranchID, c.TeacherID, c.DisciplineID, c.GroupID, c.Active)
	if _, err := repo.exec(ctx, q); err != nil {
		return school.Connection{}, errors.Wrap(err, "inserting connection")
	}
	return c, nil
}

func (repo *repository) GetConnection(ctx context.Context, id string) (school.Connection, error) {
	var c school.Connection
	err := repo.get(ctx, &c, psql.Select(connectionColumns...).From("connections").Where(sq.Eq{"id": id}), "connection", id)
	return c, err
}

func (repo *repository) QueryConnections(ctx context.Context, filter school.ConnectionFilter) ([]school.Connection, error) {
	conns := make([]school.Connection, 0)
	q := psql.Select(connectionColumns...).From("connections").Where(connectionWhere(filter)).OrderBy("id")
	if err := repo.selectAll(ctx, &conns, q); err != nil {
		return nil, errors.Wrap(err, "selecting connections")
	}
	return conns, nil
}

func (repo *repository) UpdateConnections(ctx context.Context, filter school.ConnectionFilter, upd school.ConnectionUpdate) error {
	set := make(map[string]interface{})
	if upd.Active != nil {
		set["active"] = *upd.Active
	}
	if upd.ClearTeacher {
		set["teacher_id"] = ""
	}
	if upd.ClearDiscipline {
		set["discipline_id"] = ""
	}
	if len(set) == 0 {
		return nil
	}
	_, err := repo.exec(ctx, psql.Update("connections").SetMap(set).Where(connectionWhere(filter)))
	return errors.Wrap(err, "updating connections")
}

func (repo *repository) DeleteConnection(ctx context.Context, id string) error {
	_, err := repo.exec(ctx, psql.Delete("connections").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting connection")
}

// hours

var hoursColumns = []string{"id", "branch_id", "start_time", "end_time"}

func (repo *repository) CreateHours(ctx context.Context, h school.Hours) (school.Hours, error) {
	h.ID = uuid.New().String()
	q := psql.Insert("hours").Columns(hoursColumns...).Values(h.ID, h.BranchID, h.StartTime, h.EndTime)
	if _, err := repo.exec(ctx, q); err != nil {
		return school.Hours{}, errors.Wrap(err, "inserting hours")
	}
	return h, nil
}

func (repo *repository) GetHours(ctx context.Context, id string) (school.Hours, error) {
	var h school.Hours
	err := repo.get(ctx, &h, psql.Select(hoursColumns...).From("hours").Where(sq.Eq{"id": id}), "hours", id)
	return h, err
}

func (repo *repository) DeleteHours(ctx context.Context, id string) error {
	_, err := repo.exec(ctx, psql.Delete("hours").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting hours")
}

// lessons

var lessonColumns = []string{
	"id", "connection_id", "hours_id", "title", "date", "type",
	"homework", "homework_start", "homework_end", "active",
}

func (repo *repository) CreateLessons(ctx context.Context, lessons ...school.Lesson) ([]school.Lesson, error) {
	created := make([]school.Lesson, 0, len(lessons))
	if len(lessons) == 0 {
		return created, nil
	}
	q := psql.Insert("lessons").Columns(lessonColumns...)
	for _, l := range lessons {
		l.ID = uuid.New().String()
		q = q.Values(l.ID, l.ConnectionID, l.HoursID, l.Title, l.Date, l.Type, l.Homework, l.HomeworkStart, l.HomeworkEnd, l.Active)
		created = append(created, l)
	}
	if _, err := repo.exec(ctx, q); err != nil {
		return nil, errors.Wrap(err, "inserting lessons")
	}
	return created, nil
}

func (repo *repository) GetLesson(ctx context.Context, id string) (school.Lesson, error) {
	var l school.Lesson
	err := repo.get(ctx, &l, psql.Select(lessonColumns...).From("lessons").Where(sq.Eq{"id": id}), "lesson", id)
	return l, err
}

func (repo *repository) QueryLessons(ctx context.Context, filter school.LessonFilter) ([]school.Lesson, error) {
	lessons := make([]school.Lesson, 0)
	q := psql.Select(lessonColumns...).From("lessons").Where(lessonWhere(filter)).OrderBy("date", "id")
	if err := repo.selectAll(ctx, &lessons, q); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	return lessons, nil
}

func (repo *repository) UpdateLesson(ctx context.Context, l school.Lesson) (school.Lesson, error) {
	q := psql.Update("lessons").SetMap(map[string]interface{}{
		"connection_id":  l.ConnectionID,
		"hours_id":       l.HoursID,
		"title":          l.Title,
		"date":           l.Date,
		"type":           l.Type,
		"homework":       l.Homework,
		"homework_start": l.HomeworkStart,
		"homework_end":   l.HomeworkEnd,
		"active":         l.Active,
	}).Where(sq.Eq{"id": l.ID})

	n, err := repo.exec(ctx, q)
	if err != nil {
		return school.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n == 0 {
		return school.Lesson{}, core.NewNotFoundError("lesson", l.ID)
	}
	return l, nil
}

func (repo *repository) UpdateLessons(ctx context.Context, filter school.LessonFilter, upd school.LessonUpdate) error {
	set := make(map[string]interface{})
	if upd.Active != nil {
		set["active"] = *upd.Active
	}
	if upd.ClearHours {
		set["hours_id"] = ""
	}
	if len(set) == 0 {
		return nil
	}
	_, err := repo.exec(ctx, psql.Update("lessons").SetMap(set).Where(lessonWhere(filter)))
	return errors.Wrap(err, "updating lessons")
}

func (repo *repository) DeleteLessons(ctx context.Context, filter school.LessonFilter) error {
	_, err := repo.exec(ctx, psql.Delete("lessons").Where(lessonWhere(filter)))
	return errors.Wrap(err, "deleting lessons")
}

// quarters

var quarterColumns = []string{"id", "branch_id", "start_date", "end_date"}

func (repo *repository) CreateQuarter(ctx context.Context, q school.Quarter) (school.Quarter, error) {
	q.ID = uuid.New().String()
	ins := psql.Insert("quarters").Columns(quarterColumns...).Values(q.ID, q.BranchID, q.StartDate, q.EndDate)
	if _, err := repo.exec(ctx, ins); err != nil {
		return school.Quarter{}, errors.Wrap(err, "inserting quarter")
	}
	return q, nil
}

func (repo *repository) GetQuarter(ctx context.Context, id string) (school.Quarter, error) {
	var q school.Quarter
	err := repo.get(ctx, &q, psql.Select(quarterColumns...).From("quarters").Where(sq.Eq{"id": id}), "quarter", id)
	return q, err
}

func (repo *repository) QueryQuarters(ctx context.Context, branchID string) ([]school.Quarter, error) {
	quarters := make([]school.Quarter, 0)
	q := psql.Select(quarterColumns...).From("quarters").Where(sq.Eq{"branch_id": branchID}).OrderBy("start_date")
	if err := repo.selectAll(ctx, &quarters, q); err != nil {
		return nil, errors.Wrap(err, "selecting quarters")
	}
	return quarters, nil
}

func (repo *repository) DeleteQuarter(ctx context.Context, id string) error {
	_, err := repo.exec(ctx, psql.Delete("quarters").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting quarter")
}
