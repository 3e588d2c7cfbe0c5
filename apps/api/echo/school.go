package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/school"
)

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, svc *school.Service, validate *validator.Validate) {
	api := schoolApi{svc: svc, validate: validate}

	g.GET("/groups", api.queryGroups)
	g.POST("/groups", api.createGroup)
	g.DELETE("/groups/:id", api.destroyGroup)
	g.POST("/groups/:id/students", api.addStudents)
	g.POST("/transfers", api.transfer)

	g.GET("/disciplines", api.queryDisciplines)
	g.POST("/disciplines", api.createDiscipline)
	g.DELETE("/disciplines/:id", api.destroyDiscipline)

	g.GET("/connections", api.queryConnections)
	g.POST("/connections", api.createConnection)
	g.DELETE("/connections/:id", api.destroyConnection)

	g.POST("/hours", api.createHours)
	g.DELETE("/hours/:id", api.destroyHours)

	g.POST("/lessons", api.createLessons)
	g.DELETE("/lessons/:id", api.destroyLesson)
	g.PUT("/lessons/:id/homework", api.setHomework)
	g.POST("/lessons/:id/submissions", api.submitHomework)

	g.GET("/quarters", api.queryQuarters)
	g.POST("/quarters", api.createQuarter)
	g.DELETE("/quarters/:id", api.destroyQuarter)

	g.PUT("/scores", api.changeScore)
	g.PUT("/kpis", api.changeKPI)

	g.POST("/teachers", api.addTeacher)
	g.DELETE("/teachers/:id", api.destroyTeacher)
	g.DELETE("/students/:id", api.destroyStudent)
	g.PUT("/users/:id/active", api.setActive)
}

type (
	HomeworkRequest struct {
		Text  null.String `json:"text"`
		Start null.Time   `json:"start"`
		End   null.Time   `json:"end"`
	}

	SubmissionRequest struct {
		StudentID string `json:"student_id"`
		Text      string `json:"text"`
	}

	ActiveRequest struct {
		Active bool `json:"active"`
	}
)

// Handlers

func (api *schoolApi) queryGroups(ctx echo.Context) error {
	groups, err := api.svc.Groups(ctx.Request().Context(), contextBranch(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *schoolApi) createGroup(ctx echo.Context) error {
	var data school.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	group, err := api.svc.CreateGroup(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, group)
}

func (api *schoolApi) destroyGroup(ctx echo.Context) error {
	if err := api.svc.DeleteGroup(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) addStudents(ctx echo.Context) error {
	var data school.NewStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudents")
	}
	data.GroupID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	accounts, err := api.svc.AddStudents(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, accounts)
}

func (api *schoolApi) transfer(ctx echo.Context) error {
	var data school.NewTransfer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTransfer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tr, err := api.svc.TransferStudent(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tr)
}

func (api *schoolApi) queryDisciplines(ctx echo.Context) error {
	disciplines, err := api.svc.Disciplines(ctx.Request().Context(), contextBranch(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, disciplines)
}

func (api *schoolApi) createDiscipline(ctx echo.Context) error {
	var data school.NewDiscipline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDiscipline")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	discipline, err := api.svc.CreateDiscipline(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, discipline)
}

func (api *schoolApi) destroyDiscipline(ctx echo.Context) error {
	if err := api.svc.DeleteDiscipline(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) queryConnections(ctx echo.Context) error {
	conns, err := api.svc.Connections(ctx.Request().Context(), contextBranch(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, conns)
}

func (api *schoolApi) createConnection(ctx echo.Context) error {
	var data school.NewConnection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConnection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	conn, err := api.svc.CreateConnection(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, conn)
}

func (api *schoolApi) destroyConnection(ctx echo.Context) error {
	if err := api.svc.DeleteConnection(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) createHours(ctx echo.Context) error {
	var data school.NewHours
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHours")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	hours, err := api.svc.CreateHours(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, hours)
}

func (api *schoolApi) destroyHours(ctx echo.Context) error {
	if err := api.svc.DeleteHours(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) createLessons(ctx echo.Context) error {
	var data school.NewLessons
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLessons")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lessons, err := api.svc.CreateLessons(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lessons)
}

func (api *schoolApi) destroyLesson(ctx echo.Context) error {
	if err := api.svc.DeleteLesson(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) setHomework(ctx echo.Context) error {
	var data HomeworkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HomeworkRequest")
	}
	if data.Start.Valid && data.End.Valid && data.End.Time.Before(data.Start.Time) {
		return core.NewValidationError(nil, core.FieldError{Field: "end", Error: "must not be before start"})
	}

	lesson, err := api.svc.SetHomework(ctx.Request().Context(), ctx.Param("id"), data.Text, data.Start, data.End)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *schoolApi) submitHomework(ctx echo.Context) error {
	var data SubmissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmissionRequest")
	}
	if data.StudentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	hw := school.NewHomework{LessonID: ctx.Param("id"), Text: data.Text}
	if err := hw.Validate(api.validate); err != nil {
		return err
	}

	score, err := api.svc.SubmitHomework(ctx.Request().Context(), data.StudentID, hw)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, score)
}

func (api *schoolApi) queryQuarters(ctx echo.Context) error {
	quarters, err := api.svc.Quarters(ctx.Request().Context(), contextBranch(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, quarters)
}

func (api *schoolApi) createQuarter(ctx echo.Context) error {
	var data school.NewQuarter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuarter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	quarter, err := api.svc.CreateQuarter(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, quarter)
}

func (api *schoolApi) destroyQuarter(ctx echo.Context) error {
	if err := api.svc.DeleteQuarter(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) changeScore(ctx echo.Context) error {
	var data school.ScoreChange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreChange")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	score, err := api.svc.ChangeScore(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, score)
}

func (api *schoolApi) changeKPI(ctx echo.Context) error {
	var data school.KPIChange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to KPIChange")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	kpi, err := api.svc.ChangeKPI(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, kpi)
}

func (api *schoolApi) addTeacher(ctx echo.Context) error {
	var data school.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	account, err := api.svc.AddTeacher(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, account)
}

func (api *schoolApi) destroyTeacher(ctx echo.Context) error {
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) setActive(ctx echo.Context) error {
	var data ActiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActiveRequest")
	}
	if err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), data.Active); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
