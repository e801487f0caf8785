package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/handlers"
	"github.com/platewise/mealplanner/cmd/mealplanner/middleware"
	"github.com/platewise/mealplanner/common/ratelimit"
)

// RegisterPlanRoutes registers plan snapshot and slot variant routes
func RegisterPlanRoutes(e *echo.Echo, c *container.Container) {
	// Create handlers using services from container
	planHandler := handlers.NewPlanHandler(c)
	variantHandler := handlers.NewVariantHandler(c)

	// Replay protection for write endpoints
	idem := middleware.Idempotency(c.Redis, c.Components.Logger)

	// Plan routes with username extraction middleware
	plans := e.Group("/api/v1/plans")
	plans.Use(middleware.ExtractUsername()) // Extract X-User-ID into context
	{
		plans.POST("", planHandler.CreatePlan, tierLimit(c, ratelimit.TierDirect)...)                             // POST /api/v1/plans
		plans.GET("/:snapshot_id", planHandler.GetPlan, tierLimit(c, ratelimit.TierRead)...)                      // GET /api/v1/plans/{snapshot_id}
		plans.GET("/:snapshot_id/shopping-list", planHandler.GetShoppingList, tierLimit(c, ratelimit.TierRead)...) // GET /api/v1/plans/{snapshot_id}/shopping-list
	}

	// Slot routes: one (snapshot, date, meal) entry per request
	entries := e.Group("/api/v1/plans/:snapshot_id/entries/:date/:meal")
	entries.Use(middleware.ExtractUsername()) // Extract X-User-ID into context
	{
		entries.POST("/modify", variantHandler.ModifyEntry, append(tierLimit(c, ratelimit.TierProposer), idem)...) // POST .../modify
		entries.POST("/ops", variantHandler.ApplyOps, append(tierLimit(c, ratelimit.TierDirect), idem)...)         // POST .../ops
		entries.DELETE("/variant", variantHandler.ClearVariant, tierLimit(c, ratelimit.TierDirect)...)             // DELETE .../variant
		entries.POST("/copy", variantHandler.CopyEntry, append(tierLimit(c, ratelimit.TierDirect), idem)...)       // POST .../copy
		entries.GET("/ingredients", variantHandler.GetEffectiveIngredients, tierLimit(c, ratelimit.TierRead)...)   // GET .../ingredients
		entries.GET("/variant/diff", variantHandler.DiffVariant, tierLimit(c, ratelimit.TierRead)...)              // GET .../variant/diff
		entries.GET("/history", variantHandler.GetSlotHistory, tierLimit(c, ratelimit.TierRead)...)                // GET .../history
	}
}
