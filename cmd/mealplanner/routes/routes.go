package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	commonmw "github.com/platewise/mealplanner/common/middleware"
	"github.com/platewise/mealplanner/common/ratelimit"
)

// tierLimit returns the per-user rate limit middleware for one request
// tier, or nothing when rate limiting is disabled by configuration
func tierLimit(c *container.Container, tier ratelimit.RequestTier) []echo.MiddlewareFunc {
	if !c.Components.Config.Features.EnableRateLimit {
		return nil
	}
	return []echo.MiddlewareFunc{
		commonmw.TieredRateLimitMiddleware(c.RateLimiter, tier),
	}
}
