package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/finance"
	"github.com/trezcool/alama/core/period"
)

type financeApi struct {
	svc      *finance.Service
	validate *validator.Validate
}

func registerFinanceAPI(g *echo.Group, svc *finance.Service, validate *validator.Validate) {
	api := financeApi{svc: svc, validate: validate}

	fg := g.Group("/finances")
	fg.POST("", api.post)
	fg.GET("", api.queryEntries)
	fg.GET("/pivots", api.pivots)
}

// Handlers

func (api *financeApi) post(ctx echo.Context) error {
	var data finance.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	entry, err := api.svc.Post(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

// queryEntries: /finances?month=YYYY-MM&mode=calendar|school
func (api *financeApi) queryEntries(ctx echo.Context) error {
	var q MonthQuery
	q.Bind(ctx, period.ModeCalendarMonth)
	w, err := api.svc.MonthWindow(q.Month, q.Mode)
	if err != nil {
		return err
	}

	entries, err := api.svc.Entries(ctx.Request().Context(), contextBranch(ctx), w)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *financeApi) pivots(ctx echo.Context) error {
	var q MonthQuery
	q.Bind(ctx, period.ModeCalendarMonth)
	w, err := api.svc.MonthWindow(q.Month, q.Mode)
	if err != nil {
		return err
	}

	pivots, err := api.svc.Pivots(ctx.Request().Context(), contextBranch(ctx), w)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pivots)
}
