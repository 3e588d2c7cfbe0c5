package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/report"
)

var (
	errMissingBranch      = echo.NewHTTPError(http.StatusBadRequest, "missing "+branchHeader+" header")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message interface{}

			httpErr  *echo.HTTPError
			fldsErr  validator.ValidationErrors
			validErr *core.ValidationError
			notFound *core.NotFoundError
			conflict *core.ConflictError
		)

		switch {
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &fldsErr):
			fldErrs := make(map[string]string, len(fldsErr))
			for _, vErr := range fldsErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case errors.As(err, &validErr):
			if validErr.Fields != nil {
				fldErrs := make(map[string]string, len(validErr.Fields))
				for _, fErr := range validErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = validErr.Error()
			}
			code = http.StatusBadRequest
		case errors.As(err, &notFound):
			code = http.StatusNotFound
			message = notFound.Error()
		case errors.As(err, &conflict):
			code = http.StatusConflict
			message = conflict.Error()
		case errors.Is(err, report.ErrStudentInactive):
			code = errAccountDeactivated.Code
			message = errAccountDeactivated.Message
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
				"branch": ctx.Request().Header.Get(branchHeader),
				"path":   ctx.Path(),
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
