package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/handlers"
	"github.com/platewise/mealplanner/cmd/mealplanner/middleware"
	"github.com/platewise/mealplanner/common/ratelimit"
)

// RegisterRecipeRoutes registers all recipe-related routes
func RegisterRecipeRoutes(e *echo.Echo, c *container.Container) {
	// Create handler using services from container
	h := handlers.NewRecipeHandler(c)

	// Recipe routes with username extraction middleware
	recipes := e.Group("/api/v1/recipes")
	recipes.Use(middleware.ExtractUsername()) // Extract X-User-ID into context
	{
		recipes.POST("", h.CreateRecipe, tierLimit(c, ratelimit.TierDirect)...) // POST /api/v1/recipes
		recipes.GET("/:id", h.GetRecipe, tierLimit(c, ratelimit.TierRead)...)   // GET /api/v1/recipes/42
	}
}
