package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/service"
	"github.com/platewise/mealplanner/common/bootstrap"
)

// ResolveHandler handles HTTP requests for recipe reference resolution
type ResolveHandler struct {
	components      *bootstrap.Components
	resolverService *service.ResolverService
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(c *container.Container) *ResolveHandler {
	return &ResolveHandler{
		components:      c.Components,
		resolverService: c.ResolverService,
	}
}

// ResolveRef resolves a variant id or a numeric recipe id into a
// compiled recipe document
// GET /api/v1/resolve/:ref
func (h *ResolveHandler) ResolveRef(c echo.Context) error {
	ctx := c.Request().Context()
	ref := c.Param("ref")

	if ref == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "ref is required",
		})
	}

	resolved, err := h.resolverService.ResolveRecipeRef(ctx, ref)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, resolved)
}
