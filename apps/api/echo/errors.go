package echoapi

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
	"github.com/chatgpa/backend/core/note"
	"github.com/chatgpa/backend/core/quiz"
	"github.com/chatgpa/backend/core/token"
	aisvc "github.com/chatgpa/backend/services/ai"
)

// apiError carries the error envelope fields through the echo error handler.
type apiError struct {
	status  int
	code    string
	message interface{}
}

func (e *apiError) Error() string {
	if s, ok := e.message.(string); ok {
		return s
	}
	return e.code
}

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errUnknownAction = &apiError{http.StatusBadRequest, "unknown_action", "unknown action"}
	errRateLimited   = &apiError{http.StatusTooManyRequests, "rate_limited", "too many requests"}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that maps our errors
// to the `{code, message}` envelope.
// signalShutdown is called in order to gracefully shutdown the Server whenever a
// core.shutdown error is caught.
func newAppHTTPErrorHandler(conf *core.Config, logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var status int
		var code string
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				status = http.StatusUnauthorized
				code = codeForStatus(status)
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			status = origErr.Code
			code = codeForStatus(status)
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			status = http.StatusBadRequest
			code = "validation_error"
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			status = http.StatusBadRequest
			code = "validation_error"
		case *apiError:
			status = origErr.status
			code = origErr.code
			message = origErr.message
		default:
			status, code, message = mapDomainErr(conf, origErr)

			if status == http.StatusInternalServerError {
				msg := http.StatusText(status)
				var ident core.Identity
				if id, cErr := getContextIdentity(ctx); cErr == nil {
					ident = id
				}
				logger.Error(msg, errors.Wrap(err, msg), ident)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, echo.Map{"code": code, "message": message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// mapDomainErr translates domain sentinels into envelope fields.
// Ownership failures answer "not found" unless obfuscation is turned off.
func mapDomainErr(conf *core.Config, err error) (int, string, interface{}) {
	switch err {
	case note.ErrNotFound, folder.ErrNotFound, quiz.ErrNotFound, quiz.ErrAttemptNotFound:
		return http.StatusNotFound, "not_found", err.Error()
	case core.ErrOwnership:
		if conf.Server.ObfuscateOwnership {
			return http.StatusNotFound, "not_found", "not found"
		}
		return http.StatusForbidden, "forbidden", err.Error()
	case folder.ErrNotEmpty:
		return http.StatusConflict, "folder_not_empty", err.Error()
	case quiz.ErrAttemptSubmitted:
		return http.StatusConflict, "attempt_submitted", err.Error()
	case token.ErrInsufficient:
		return http.StatusPaymentRequired, "insufficient_tokens", err.Error()
	case aisvc.ErrNotConfigured:
		return http.StatusInternalServerError, "config_error", err.Error()
	case aisvc.ErrUpstream:
		return http.StatusBadGateway, "upstream_error", err.Error()
	}
	if isTimeout(err) {
		return http.StatusGatewayTimeout, "timeout", "upstream request timed out"
	}
	return http.StatusInternalServerError, "server_error", http.StatusText(http.StatusInternalServerError)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "server_error"
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}
