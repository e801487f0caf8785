package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/middleware"
	"github.com/platewise/mealplanner/cmd/mealplanner/service"
	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/patch"
)

// VariantHandler handles HTTP requests for per-slot recipe variants
type VariantHandler struct {
	components      *bootstrap.Components
	variantService  *service.VariantService
	resolverService *service.ResolverService
}

// NewVariantHandler creates a new variant handler
func NewVariantHandler(c *container.Container) *VariantHandler {
	return &VariantHandler{
		components:      c.Components,
		variantService:  c.VariantService,
		resolverService: c.ResolverService,
	}
}

// ModifyEntry turns a natural-language request into a compiled variant
// POST /api/v1/plans/:snapshot_id/entries/:date/:meal/modify
func (h *VariantHandler) ModifyEntry(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := slotFromPath(c)
	if err != nil {
		return err
	}

	// Extract username from context (set by middleware)
	username, err := middleware.RequireUsername(c)
	if err != nil {
		return err
	}

	var req struct {
		Request string `json:"request"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if strings.TrimSpace(req.Request) == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "request text is required",
		})
	}

	h.components.Logger.Info("modifying plan entry",
		"snapshot_id", ref.SnapshotID,
		"date", ref.Date,
		"meal_type", ref.MealType,
		"username", username)

	result, err := h.variantService.ModifyEntry(ctx, ref, req.Request, username)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ApplyOps compiles caller-supplied patch operations onto the slot
// POST /api/v1/plans/:snapshot_id/entries/:date/:meal/ops
func (h *VariantHandler) ApplyOps(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := slotFromPath(c)
	if err != nil {
		return err
	}

	// Extract username from context (set by middleware)
	username, err := middleware.RequireUsername(c)
	if err != nil {
		return err
	}

	var req struct {
		Ops []patch.Op `json:"ops"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if len(req.Ops) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "ops array is required and cannot be empty",
		})
	}

	h.components.Logger.Info("applying patch ops",
		"snapshot_id", ref.SnapshotID,
		"date", ref.Date,
		"meal_type", ref.MealType,
		"ops", len(req.Ops),
		"username", username)

	result, err := h.variantService.ApplyOps(ctx, ref, req.Ops, username)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ClearVariant reverts the slot to its base recipe
// DELETE /api/v1/plans/:snapshot_id/entries/:date/:meal/variant
func (h *VariantHandler) ClearVariant(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := slotFromPath(c)
	if err != nil {
		return err
	}

	// Extract username from context (set by middleware)
	username, err := middleware.RequireUsername(c)
	if err != nil {
		return err
	}

	removed, err := h.variantService.ClearVariant(ctx, ref, username)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"removed": removed,
	})
}

// GetEffectiveIngredients returns what the slot actually cooks with
// GET /api/v1/plans/:snapshot_id/entries/:date/:meal/ingredients
func (h *VariantHandler) GetEffectiveIngredients(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := slotFromPath(c)
	if err != nil {
		return err
	}

	ingredients, err := h.resolverService.GetEffectiveIngredients(ctx, ref)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, ingredients)
}

// DiffVariant shows what the variant changed against its base recipe
// GET /api/v1/plans/:snapshot_id/entries/:date/:meal/variant/diff
func (h *VariantHandler) DiffVariant(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := slotFromPath(c)
	if err != nil {
		return err
	}

	diff, err := h.variantService.DiffVariant(ctx, ref)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, diff)
}

// CopyEntry copies the slot, variant included, to another slot in the
// same snapshot
// POST /api/v1/plans/:snapshot_id/entries/:date/:meal/copy
func (h *VariantHandler) CopyEntry(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := slotFromPath(c)
	if err != nil {
		return err
	}

	// Extract username from context (set by middleware)
	username, err := middleware.RequireUsername(c)
	if err != nil {
		return err
	}

	var req struct {
		ToDate string `json:"to_date"`
		ToMeal string `json:"to_meal"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	h.components.Logger.Info("copying plan entry",
		"snapshot_id", ref.SnapshotID,
		"from", ref.Date+"/"+string(ref.MealType),
		"to", req.ToDate+"/"+req.ToMeal,
		"username", username)

	entry, err := h.variantService.CopyEntry(ctx, ref, req.ToDate, models.MealType(req.ToMeal))
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusCreated, entry)
}

// GetSlotHistory lists the slot's proposal trail, newest first
// GET /api/v1/plans/:snapshot_id/entries/:date/:meal/history
func (h *VariantHandler) GetSlotHistory(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := slotFromPath(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "limit must be numeric",
			})
		}
	}

	history, err := h.variantService.GetSlotHistory(ctx, ref, limit)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"snapshot_id": ref.SnapshotID,
		"date":        ref.Date,
		"meal_type":   ref.MealType,
		"history":     history,
		"count":       len(history),
	})
}
