package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	branchHeader = "X-Branch-ID"
	branchKey    = "branch"
)

// branchMiddleware scopes the request to the branch set by the gateway in X-Branch-ID.
func branchMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		branchID := strings.TrimSpace(ctx.Request().Header.Get(branchHeader))
		if branchID == "" {
			return errMissingBranch
		}
		ctx.Set(branchKey, branchID)
		return next(ctx)
	}
}

func contextBranch(ctx echo.Context) string {
	branchID, _ := ctx.Get(branchKey).(string)
	return branchID
}
