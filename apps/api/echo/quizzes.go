package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/note"
	"github.com/chatgpa/backend/core/quiz"
	"github.com/chatgpa/backend/core/ratelimit"
)

// quizApi is the `/api/v1/quizzes` action gateway.
type quizApi struct {
	quizSvc  *quiz.Service
	noteSvc  *note.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, metrics *routerMetrics, limiter *ratelimit.Limiter, api quizApi) {
	mw := metrics.middleware("quizzes")
	// generation hits the LLM; it shares the chat rate limit
	g.POST("/quizzes", api.post, mw, rateLimitMiddleware(limiter))
	g.GET("/quizzes", api.get, mw)
	g.DELETE("/quizzes", api.delete, mw)
}

func (api quizApi) post(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "generate":
		return api.generate(ctx)
	case "create":
		return api.create(ctx)
	default:
		return errUnknownAction
	}
}

func (api quizApi) get(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "get":
		return api.retrieve(ctx)
	case "list":
		return api.list(ctx)
	default:
		return errUnknownAction
	}
}

func (api quizApi) delete(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "delete":
		return api.destroy(ctx)
	default:
		return errUnknownAction
	}
}

// generate charges tokens, sources the note content and asks the LLM for
// questions. An insufficient balance refuses with 402 before any provider call.
func (api quizApi) generate(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.GenerateQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateQuiz")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	n, err := api.noteSvc.Get(ctx.Request().Context(), ident.ID, data.NoteID)
	if err != nil {
		return err
	}

	q, err := api.quizSvc.Generate(ctx.Request().Context(), ident.ID, data, n.Content)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api quizApi) create(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	q, err := api.quizSvc.Create(ctx.Request().Context(), ident.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api quizApi) retrieve(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	q, err := api.quizSvc.Get(ctx.Request().Context(), ident.ID, ctx.QueryParam("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api quizApi) list(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	quizzes, err := api.quizSvc.Query(ctx.Request().Context(), ident.ID, ctx.QueryParam("class_id"))
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"quizzes": quizzes})
}

func (api quizApi) destroy(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	id := ctx.QueryParam("id")
	if id == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "this field is required"})
	}

	if err = api.quizSvc.Delete(ctx.Request().Context(), ident.ID, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
