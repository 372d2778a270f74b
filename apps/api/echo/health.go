package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	aisvc "github.com/chatgpa/backend/services/ai"
)

const healthPingTimeout = 5 * time.Second

// health reports liveness; `?details=true` adds AI reachability, per-action
// router counters and folder integrity stats.
func (s *server) health(ctx echo.Context) error {
	conf := s.deps.Conf
	out := echo.Map{
		"status": "ok",
		"app":    conf.AppName,
		"build":  conf.Build,
		"env":    conf.Env,
	}

	if ctx.QueryParam("details") == "true" {
		cctx, cancel := context.WithTimeout(ctx.Request().Context(), healthPingTimeout)
		defer cancel()

		aiStatus := "ok"
		if err := s.deps.AI.Ping(cctx); err != nil {
			if errors.Cause(err) == aisvc.ErrNotConfigured {
				aiStatus = "not_configured"
			} else {
				aiStatus = "unreachable"
			}
		}
		out["ai"] = aiStatus
		out["router"] = s.metrics.snapshot()

		if stats, err := s.deps.FolderSvc.Integrity(ctx.Request().Context()); err != nil {
			out["folders"] = echo.Map{"error": "integrity check failed"}
			s.deps.Logger.Warn("folder integrity check failed", err)
		} else {
			out["folders"] = stats
		}
	}
	return ctx.JSON(http.StatusOK, out)
}
