package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/handlers"
	"github.com/platewise/mealplanner/cmd/mealplanner/middleware"
	"github.com/platewise/mealplanner/common/ratelimit"
)

// RegisterResolveRoutes registers the recipe reference resolver route
func RegisterResolveRoutes(e *echo.Echo, c *container.Container) {
	// Create handler using services from container
	h := handlers.NewResolveHandler(c)

	resolve := e.Group("/api/v1/resolve")
	resolve.Use(middleware.ExtractUsername()) // Extract X-User-ID into context
	{
		resolve.GET("/:ref", h.ResolveRef, tierLimit(c, ratelimit.TierRead)...) // GET /api/v1/resolve/variant:abc:2026-01-05:dinner
	}
}
