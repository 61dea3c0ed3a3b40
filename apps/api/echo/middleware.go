package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// roleMiddleware only lets through users holding one of roles; no roles means any authenticated user.
func roleMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.HasAnyRole(roles...) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// rateLimitMiddleware throttles callers by route and IP. Limiter failures let the request through.
func rateLimitMiddleware(limiter core.RateLimiter, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}
			allowed, err := limiter.Allow(ctx.Request().Context(), ctx.Path()+"|"+ctx.RealIP())
			if err != nil {
				logger.Warn("rate limiter unavailable", errors.Wrap(err, "checking rate limit"))
				return next(ctx)
			}
			if !allowed {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
