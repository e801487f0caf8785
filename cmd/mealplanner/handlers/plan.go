package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/middleware"
	"github.com/platewise/mealplanner/cmd/mealplanner/service"
	"github.com/platewise/mealplanner/common/bootstrap"
)

// PlanHandler handles HTTP requests for plan snapshots
type PlanHandler struct {
	components      *bootstrap.Components
	planService     *service.PlanService
	shoppingService *service.ShoppingService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(c *container.Container) *PlanHandler {
	return &PlanHandler{
		components:      c.Components,
		planService:     c.PlanService,
		shoppingService: c.ShoppingService,
	}
}

// CreatePlan freezes a new plan snapshot
// POST /api/v1/plans
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	// Extract username from context (set by middleware)
	username, err := middleware.RequireUsername(c)
	if err != nil {
		return err
	}

	var req service.CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	snapshot, err := h.planService.CreatePlan(ctx, &req, username)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusCreated, snapshot)
}

// GetPlan retrieves a snapshot with all of its entries
// GET /api/v1/plans/:snapshot_id
func (h *PlanHandler) GetPlan(c echo.Context) error {
	ctx := c.Request().Context()
	snapshotID := c.Param("snapshot_id")

	if snapshotID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "snapshot_id is required",
		})
	}

	snapshot, err := h.planService.GetPlan(ctx, snapshotID)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, snapshot)
}

// GetShoppingList aggregates effective ingredients across the snapshot
// GET /api/v1/plans/:snapshot_id/shopping-list
func (h *PlanHandler) GetShoppingList(c echo.Context) error {
	ctx := c.Request().Context()
	snapshotID := c.Param("snapshot_id")

	if snapshotID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "snapshot_id is required",
		})
	}

	list, err := h.shoppingService.BuildList(ctx, snapshotID)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, list)
}
