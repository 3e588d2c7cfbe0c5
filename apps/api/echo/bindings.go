package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/alama/core/period"
)

var (
	monthParam = "month"
	modeParam  = "mode"
)

// MonthQuery is the month window of a request: `?month=YYYY-MM&mode=school|calendar`.
type MonthQuery struct {
	Month string
	Mode  period.Mode
}

func (mq *MonthQuery) Bind(ctx echo.Context, defaultMode period.Mode) {
	mq.Month = strings.TrimSpace(ctx.QueryParam(monthParam))
	mq.Mode = period.Mode(strings.ToLower(strings.TrimSpace(ctx.QueryParam(modeParam))))
	if mq.Mode == "" {
		mq.Mode = defaultMode
	}
}
