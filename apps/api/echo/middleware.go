package echoapi

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chatgpa/backend/core/ratelimit"
)

// rateLimitMiddleware applies the sliding-window limiter keyed by caller IP
// and endpoint path. Rejections carry a Retry-After hint.
func rateLimitMiddleware(limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}

			key := ctx.RealIP() + ":" + ctx.Path()
			decision := limiter.Allow(key, time.Now())
			if !decision.Allowed {
				retryAfter := int(decision.RetryAfter.Seconds() + 0.5)
				if retryAfter < 1 {
					retryAfter = 1
				}
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return errRateLimited
			}
			ctx.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			return next(ctx)
		}
	}
}

// routerMetrics counts gateway hits per action; /api/health exposes a snapshot.
type routerMetrics struct {
	mu     sync.RWMutex
	counts map[string]int64
}

func newRouterMetrics() *routerMetrics {
	return &routerMetrics{counts: make(map[string]int64)}
}

func (m *routerMetrics) hit(action string) {
	m.mu.Lock()
	m.counts[action]++
	m.mu.Unlock()
}

func (m *routerMetrics) snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// middleware counts hits under `domain:action` (or just domain when the
// request carries no action).
func (m *routerMetrics) middleware(domain string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key := domain
			if action := ctx.QueryParam("action"); action != "" {
				key += ":" + action
			}
			m.hit(key)
			return next(ctx)
		}
	}
}
