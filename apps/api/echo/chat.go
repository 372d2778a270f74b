package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chatgpa/backend/core/token"
	aisvc "github.com/chatgpa/backend/services/ai"
)

type chatRequest struct {
	Messages []aisvc.Message `json:"messages" validate:"required,min=1,dive"`
	Model    string          `json:"model"`
	UserID   string          `json:"user_id"`
}

// chat relays a conversation to the LLM provider. This endpoint predates the
// v1 gateway and keeps its `{error, detail}` envelope; errors are written
// here instead of going through the app error handler.
func (s *server) chat(ctx echo.Context) error {
	fail := func(status int, code, detail string) error {
		return ctx.JSON(status, echo.Map{"error": code, "detail": detail})
	}

	var data chatRequest
	if err := ctx.Bind(&data); err != nil {
		return fail(http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
	}
	if err := s.deps.Validate.Struct(&data); err != nil {
		return fail(http.StatusBadRequest, "validation_error", "messages are required, each with a valid role and content")
	}

	cctx, cancel := context.WithTimeout(ctx.Request().Context(), s.deps.Conf.AI.Timeout)
	defer cancel()

	reply, err := s.deps.AI.Chat(cctx, data.Messages, data.Model)
	if err != nil {
		switch {
		case errors.Cause(err) == aisvc.ErrNotConfigured:
			return fail(http.StatusInternalServerError, "config_error", "AI provider is not configured")
		case isTimeout(err):
			return fail(http.StatusGatewayTimeout, "timeout", "AI provider timed out")
		case errors.Cause(err) == aisvc.ErrUpstream:
			return fail(http.StatusBadGateway, "upstream_error", "AI provider request failed")
		default:
			s.deps.Logger.Error("chat relay failed", err)
			return fail(http.StatusInternalServerError, "server_error", "internal server error")
		}
	}

	// usage tracking is best-effort; failures surface as warnings only
	var warnings []string
	if data.UserID != "" {
		ev := token.Event{
			Name: "chat",
			Meta: map[string]interface{}{"request_id": reply.RequestID, "usage": reply.Usage},
		}
		if err = s.deps.TokenSvc.Track(ctx.Request().Context(), data.UserID, ev); err != nil {
			s.deps.Logger.Warn("chat usage tracking failed", err)
			warnings = append(warnings, "usage tracking failed")
		}
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"ok":         true,
		"reply":      reply.Content,
		"usage":      reply.Usage,
		"request_id": reply.RequestID,
		"warnings":   warnings,
	})
}
