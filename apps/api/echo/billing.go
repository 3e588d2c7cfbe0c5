package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/billing"
)

type billingApi struct {
	svc      *billing.Service
	validate *validator.Validate
}

func registerBillingAPI(g *echo.Group, svc *billing.Service, validate *validator.Validate) {
	api := billingApi{svc: svc, validate: validate}

	bg := g.Group("/billing")
	bg.GET("/pricings", api.queryPricings)
	bg.PUT("/pricings", api.setPricing)
	bg.POST("/evaluate", api.evaluate)
	bg.GET("/students", api.studentPayments)
}

// Handlers

func (api *billingApi) queryPricings(ctx echo.Context) error {
	pricings, err := api.svc.Pricings(ctx.Request().Context(), contextBranch(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pricings)
}

func (api *billingApi) setPricing(ctx echo.Context) error {
	var data billing.NewPricing
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPricing")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.BranchID = contextBranch(ctx)

	pricing, err := api.svc.SetPricing(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pricing)
}

// evaluate: /billing/evaluate?month=YYYY-MM, the current month by default
func (api *billingApi) evaluate(ctx echo.Context) error {
	var q MonthQuery
	q.Bind(ctx, "")
	ev, err := api.svc.Evaluate(ctx.Request().Context(), contextBranch(ctx), q.Month)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *billingApi) studentPayments(ctx echo.Context) error {
	var q MonthQuery
	q.Bind(ctx, "")
	accounts, err := api.svc.StudentPayments(ctx.Request().Context(), contextBranch(ctx), q.Month)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, accounts)
}
