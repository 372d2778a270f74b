package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/token"
)

// utilApi is the `/api/v1/util` action gateway: the token ledger and
// service introspection.
type utilApi struct {
	tokenSvc *token.Service
	logger   core.Logger
	conf     *core.Config
	validate *validator.Validate
	health   echo.HandlerFunc
}

func registerUtilAPI(g *echo.Group, metrics *routerMetrics, api utilApi) {
	mw := metrics.middleware("util")
	g.POST("/util", api.post, mw)
	g.GET("/util", api.get, mw)
}

func (api utilApi) post(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "use_tokens":
		return api.useTokens(ctx)
	case "track":
		return api.track(ctx)
	default:
		return errUnknownAction
	}
}

func (api utilApi) get(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case "ping":
		return api.ping(ctx)
	case "balance":
		return api.balance(ctx)
	case "health":
		return api.health(ctx)
	default:
		return errUnknownAction
	}
}

// useTokens charges the ledger; a refusal answers 402 with the structured
// result so the client can show the remaining balance.
func (api utilApi) useTokens(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data token.SpendRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SpendRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.tokenSvc.Spend(ctx.Request().Context(), ident.ID, data.Amount, data.Reason)
	if errors.Cause(err) == token.ErrInsufficient {
		return &apiError{http.StatusPaymentRequired, "insufficient_tokens", res}
	}
	if err != nil {
		return errors.Wrap(err, "spending tokens")
	}
	return ctx.JSON(http.StatusOK, res)
}

// track records a usage event; failures never fail the request, they show up
// in the warnings array only.
func (api utilApi) track(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data token.Event
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Event")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	var warnings []string
	if err = api.tokenSvc.Track(ctx.Request().Context(), ident.ID, data); err != nil {
		api.logger.Warn("usage tracking failed", err)
		warnings = append(warnings, "usage tracking failed")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "warnings": warnings})
}

func (api utilApi) balance(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	bal, err := api.tokenSvc.Balance(ctx.Request().Context(), ident.ID)
	if err != nil {
		return errors.Wrap(err, "reading balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}

func (api utilApi) ping(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"ok":    true,
		"app":   api.conf.AppName,
		"build": api.conf.Build,
		"env":   api.conf.Env,
	})
}
