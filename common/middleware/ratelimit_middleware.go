// Package middleware holds the echo middleware shared across route
// groups.
package middleware

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/common/ratelimit"
)

// isInternalRequest reports whether the request carries the shared
// secret in X-Internal-Service. Internal callers bypass rate limits.
// With no secret configured there is no bypass.
func isInternalRequest(c echo.Context) bool {
	header := c.Request().Header.Get("X-Internal-Service")
	if header == "" {
		return false
	}

	secret := os.Getenv("INTERNAL_SERVICE_SECRET")
	return secret != "" && header == secret
}

// GlobalRateLimitMiddleware applies the service-wide ceiling ahead of
// the per-user tier limits. A limiter failure admits the request; the
// ceiling protects capacity, it is not an auth boundary.
func GlobalRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c) {
				return next(c)
			}

			result, err := rateLimiter.CheckGlobalLimit(c.Request().Context(), limit)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "global_rate_limit_exceeded",
					"message": "Service is experiencing high load. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              "60 seconds",
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}

// TieredRateLimitMiddleware applies the per-user budget for one
// request tier. Anonymous requests pass through; the per-user counter
// needs the username set by ExtractUsername.
func TieredRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, tier ratelimit.RequestTier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c) {
				return next(c)
			}

			username, ok := c.Get("username").(string)
			if !ok || username == "" {
				return next(c)
			}

			result, err := rateLimiter.CheckTieredLimit(c.Request().Context(), username, tier)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "You have exceeded your request quota for this operation. Please wait before trying again.",
					"details": map[string]interface{}{
						"tier":                tier.String(),
						"limit":               result.Limit,
						"window":              "60 seconds",
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
