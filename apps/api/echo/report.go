package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/alama/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, svc *report.Service) {
	api := reportApi{svc: svc}

	g.GET("/groups/:id/report", api.groupReport)
	g.GET("/students/:id/subjects", api.studentSubjects)
	g.GET("/students/:id/connections/:connection", api.studentLessons)
	g.GET("/teachers/monthly", api.teacherMonthly)
	g.GET("/users/:id/calendar", api.calendar)
}

// Handlers

// groupReport: /groups/:id/report?quarter=ID&connection=ID
func (api *reportApi) groupReport(ctx echo.Context) error {
	rep, err := api.svc.GroupReport(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("quarter"), ctx.QueryParam("connection"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

// studentSubjects: /students/:id/subjects?quarter=ID
func (api *reportApi) studentSubjects(ctx echo.Context) error {
	rows, err := api.svc.StudentSubjects(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("quarter"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reportApi) studentLessons(ctx echo.Context) error {
	sc, err := api.svc.StudentLessons(ctx.Request().Context(), ctx.Param("id"), ctx.Param("connection"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sc)
}

// teacherMonthly: /teachers/monthly?month=YYYY-MM
func (api *reportApi) teacherMonthly(ctx echo.Context) error {
	var q MonthQuery
	q.Bind(ctx, "")
	rep, err := api.svc.TeacherMonthly(ctx.Request().Context(), contextBranch(ctx), q.Month)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) calendar(ctx echo.Context) error {
	lessons, err := api.svc.Calendar(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lessons)
}
