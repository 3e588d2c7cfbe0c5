package school

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

type NewGroup struct {
	BranchID string `json:"-"`
	Title    string `json:"title" validate:"required"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Title = core.CleanString(ng.Title)
	return validate.Struct(ng)
}

type NewDiscipline struct {
	BranchID string `json:"-"`
	Title    string `json:"title" validate:"required"`
}

func (nd *NewDiscipline) Validate(validate *validator.Validate) error {
	nd.Title = core.CleanString(nd.Title)
	return validate.Struct(nd)
}

type NewConnection struct {
	BranchID     string `json:"-"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	DisciplineID string `json:"discipline_id" validate:"required"`
	GroupID      string `json:"group_id" validate:"required"`
}

func (nc NewConnection) Validate(validate *validator.Validate) error { return validate.Struct(nc) }

type NewHours struct {
	BranchID  string `json:"-"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

func (nh NewHours) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nh); err != nil {
		return err
	}
	if nh.EndTime <= nh.StartTime {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "must be after start_time"})
	}
	return nil
}

// NewLessons schedules one lesson of a connection per date.
type NewLessons struct {
	ConnectionID string      `json:"connection_id" validate:"required"`
	HoursID      string      `json:"hours_id"`
	Title        string      `json:"title"`
	Type         LessonType  `json:"type" validate:"omitempty,oneof=simple monthly_exam"`
	Dates        []time.Time `json:"dates" validate:"required,min=1"`
}

func (nl *NewLessons) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

// NewTeacher is a teacher account to create. Username and Password default as for students.
type NewTeacher struct {
	BranchID   string `json:"-"`
	GivenName  string `json:"given_name" validate:"required"`
	FamilyName string `json:"family_name" validate:"required"`
	Username   string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Password   string `json:"password"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.GivenName = core.CleanString(nt.GivenName)
	nt.FamilyName = core.CleanString(nt.FamilyName)
	nt.Username = core.CleanString(nt.Username, true /* lower */)
	nt.Password = core.CleanString(nt.Password)
	return validate.Struct(nt)
}

func (svc *Service) CreateGroup(ctx context.Context, ng NewGroup) (Group, error) {
	g, err := svc.store.CreateGroup(ctx, Group{BranchID: ng.BranchID, Title: ng.Title})
	return g, errors.Wrap(err, "creating group")
}

func (svc *Service) Groups(ctx context.Context, branchID string) ([]Group, error) {
	groups, err := svc.store.QueryGroups(ctx, GroupFilter{BranchID: branchID})
	return groups, errors.Wrap(err, "querying groups")
}

func (svc *Service) CreateDiscipline(ctx context.Context, nd NewDiscipline) (Discipline, error) {
	d, err := svc.store.CreateDiscipline(ctx, Discipline{BranchID: nd.BranchID, Title: nd.Title})
	return d, errors.Wrap(err, "creating discipline")
}

func (svc *Service) Disciplines(ctx context.Context, branchID string) ([]Discipline, error) {
	disciplines, err := svc.store.QueryDisciplines(ctx, DisciplineFilter{BranchID: branchID})
	return disciplines, errors.Wrap(err, "querying disciplines")
}

// CreateConnection assigns the teacher to teach the discipline to the group.
// An existing assignment of the same triple is reactivated instead of duplicated.
func (svc *Service) CreateConnection(ctx context.Context, nc NewConnection) (Connection, error) {
	var conn Connection
	err := svc.store.WithinTx(ctx, func(repo Repository) error {
		teacher, err := user.GetKind(ctx, repo, nc.TeacherID, user.KindTeacher)
		if err != nil {
			return err
		}
		discipline, err := repo.GetDiscipline(ctx, nc.DisciplineID)
		if err != nil {
			return errors.Wrap(err, "getting discipline")
		}
		group, err := repo.GetGroup(ctx, nc.GroupID)
		if err != nil {
			return errors.Wrap(err, "getting group")
		}
		branchID := group.BranchID
		if teacher.BranchID != branchID || discipline.BranchID != branchID || (nc.BranchID != "" && nc.BranchID != branchID) {
			return core.NewConflictError("teacher, discipline and group belong to different branches")
		}

		filter := ConnectionFilter{TeacherID: teacher.ID, DisciplineID: discipline.ID, GroupIDs: []string{group.ID}}
		existing, err := repo.QueryConnections(ctx, filter)
		if err != nil {
			return errors.Wrap(err, "querying connections")
		}
		if len(existing) > 0 {
			active := true
			filter.IDs = []string{existing[0].ID}
			if err = repo.UpdateConnections(ctx, filter, ConnectionUpdate{Active: &active}); err != nil {
				return errors.Wrap(err, "reactivating connection")
			}
			conn = existing[0]
			conn.Active = true
			return nil
		}

		conn, err = repo.CreateConnection(ctx, Connection{
			BranchID:     branchID,
			TeacherID:    teacher.ID,
			DisciplineID: discipline.ID,
			GroupID:      group.ID,
			Active:       true,
		})
		return errors.Wrap(err, "creating connection")
	})
	if err != nil {
		return Connection{}, err
	}
	return conn, nil
}

// Connections lists the branch's active connections.
func (svc *Service) Connections(ctx context.Context, branchID string) ([]Connection, error) {
	active := true
	conns, err := svc.store.QueryConnections(ctx, ConnectionFilter{BranchID: branchID, Active: &active})
	return conns, errors.Wrap(err, "querying connections")
}

func (svc *Service) CreateHours(ctx context.Context, nh NewHours) (Hours, error) {
	h, err := svc.store.CreateHours(ctx, Hours{BranchID: nh.BranchID, StartTime: nh.StartTime, EndTime: nh.EndTime})
	return h, errors.Wrap(err, "creating hours")
}

// CreateLessons schedules the lessons of an active connection.
func (svc *Service) CreateLessons(ctx context.Context, nl NewLessons) ([]Lesson, error) {
	conn, err := svc.store.GetConnection(ctx, nl.ConnectionID)
	if err != nil {
		return nil, errors.Wrap(err, "getting connection")
	}
	if !conn.Active {
		return nil, core.NewConflictError("connection %q is inactive", conn.ID)
	}
	if nl.HoursID != "" {
		if _, err = svc.store.GetHours(ctx, nl.HoursID); err != nil {
			return nil, errors.Wrap(err, "getting hours")
		}
	}
	typ := nl.Type
	if typ == "" {
		typ = LessonSimple
	}

	lessons := make([]Lesson, 0, len(nl.Dates))
	for _, d := range nl.Dates {
		lessons = append(lessons, Lesson{
			ConnectionID: conn.ID,
			HoursID:      nl.HoursID,
			Title:        nl.Title,
			Date:         d,
			Type:         typ,
			Active:       true,
		})
	}
	created, err := svc.store.CreateLessons(ctx, lessons...)
	return created, errors.Wrap(err, "creating lessons")
}

func (svc *Service) Quarters(ctx context.Context, branchID string) ([]Quarter, error) {
	quarters, err := svc.store.QueryQuarters(ctx, branchID)
	return quarters, errors.Wrap(err, "querying quarters")
}

// AddTeacher creates a teacher account.
func (svc *Service) AddTeacher(ctx context.Context, nt NewTeacher) (Account, error) {
	acc, err := svc.newAccount(nt.BranchID, user.KindTeacher, nt.GivenName, nt.FamilyName, nt.Username, nt.Password)
	if err != nil {
		return Account{}, err
	}
	if acc.User, err = svc.store.CreateUser(ctx, acc.User); err != nil {
		return Account{}, errors.Wrap(err, "creating teacher")
	}
	svc.logger.Info("teacher added", map[string]interface{}{"branch": acc.BranchID, "username": acc.Username})
	return acc, nil
}

// AddAdmin creates an administrator account of the branch.
func (svc *Service) AddAdmin(ctx context.Context, branchID, username, pwd string) (Account, error) {
	username = core.CleanString(username, true /* lower */)
	if branchID == "" || username == "" || pwd == "" {
		return Account{}, core.NewValidationError(nil, core.FieldError{Field: "username", Error: "branch, username and password are required"})
	}
	acc, err := svc.newAccount(branchID, user.KindAdmin, "", "", username, pwd)
	if err != nil {
		return Account{}, err
	}
	if acc.User, err = svc.store.CreateUser(ctx, acc.User); err != nil {
		return Account{}, errors.Wrap(err, "creating admin")
	}
	svc.logger.Info("admin added", map[string]interface{}{"branch": acc.BranchID, "username": acc.Username})
	return acc, nil
}

// ResetPassword sets the password of the user with the given username.
func (svc *Service) ResetPassword(ctx context.Context, username, pwd string) error {
	username = core.CleanString(username, true /* lower */)
	if username == "" || pwd == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "username", Error: "username and password are required"})
	}
	users, err := svc.store.QueryUsers(ctx, user.Filter{Username: username})
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if len(users) == 0 {
		return core.NewNotFoundError("user", username)
	}
	usr := users[0]
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.store.SetUserPassword(ctx, usr.ID, usr.PasswordHash), "setting password")
}

// newAccount builds an unsaved account, deriving the username and generating the
// password when they are empty.
func (svc *Service) newAccount(branchID string, kind user.Kind, givenName, familyName, username, pwd string) (Account, error) {
	now := svc.now()
	acc := Account{User: user.User{
		BranchID:   branchID,
		Kind:       kind,
		Username:   username,
		GivenName:  givenName,
		FamilyName: familyName,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
	if acc.Username == "" {
		acc.Username = user.DefaultUsername(givenName, familyName)
	}
	if pwd == "" {
		var err error
		if pwd, err = generatePasswordFunc(); err != nil {
			return Account{}, errors.Wrap(err, "generating password")
		}
		acc.Password = pwd
	}
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	return acc, nil
}
