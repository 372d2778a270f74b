package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core/quiz"
)

// attemptApi is the `/api/v1/attempts` action gateway.
type attemptApi struct {
	quizSvc  *quiz.Service
	validate *validator.Validate
}

func registerAttemptAPI(g *echo.Group, metrics *routerMetrics, api attemptApi) {
	mw := metrics.middleware("attempts")
	g.POST("/attempts", api.post, mw)
	g.GET("/attempts", api.get, mw)
}

func (api attemptApi) post(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "start":
		return api.start(ctx)
	case "autosave":
		return api.autosave(ctx)
	case "update_meta":
		return api.updateMeta(ctx)
	case "submit":
		return api.submit(ctx)
	default:
		return errUnknownAction
	}
}

func (api attemptApi) get(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "get":
		return api.retrieve(ctx)
	case "list":
		return api.list(ctx)
	default:
		return errUnknownAction
	}
}

func (api attemptApi) start(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.StartAttempt
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartAttempt")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	att, err := api.quizSvc.StartAttempt(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api attemptApi) autosave(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.AutosaveAttempt
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AutosaveAttempt")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	att, err := api.quizSvc.AutosaveAttempt(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api attemptApi) updateMeta(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.UpdateAttemptMeta
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttemptMeta")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	att, err := api.quizSvc.UpdateAttemptMeta(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

// submit grades the attempt; resubmitting a submitted attempt conflicts.
func (api attemptApi) submit(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.SubmitAttempt
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAttempt")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	att, err := api.quizSvc.SubmitAttempt(ctx.Request().Context(), ident, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api attemptApi) retrieve(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	att, err := api.quizSvc.GetAttempt(ctx.Request().Context(), ident.ID, ctx.QueryParam("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api attemptApi) list(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var ord Ordering
	ord.Bind(ctx)

	attempts, err := api.quizSvc.QueryAttempts(ctx.Request().Context(), ident.ID, ctx.QueryParam("quiz_id"), ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"attempts": attempts})
}
