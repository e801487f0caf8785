package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/middleware"
	"github.com/platewise/mealplanner/cmd/mealplanner/service"
	"github.com/platewise/mealplanner/common/bootstrap"
)

// RecipeHandler handles HTTP requests for base recipes
type RecipeHandler struct {
	components    *bootstrap.Components
	recipeService *service.RecipeService
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(c *container.Container) *RecipeHandler {
	return &RecipeHandler{
		components:    c.Components,
		recipeService: c.RecipeService,
	}
}

// CreateRecipe stores a new base recipe
// POST /api/v1/recipes
func (h *RecipeHandler) CreateRecipe(c echo.Context) error {
	ctx := c.Request().Context()

	// Extract username from context (set by middleware)
	username, err := middleware.RequireUsername(c)
	if err != nil {
		return err
	}

	var req service.CreateRecipeRequest
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

	recipe, err := h.recipeService.CreateRecipe(ctx, &req, username)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusCreated, recipe)
}

// GetRecipe retrieves a base recipe by id
// GET /api/v1/recipes/:id
func (h *RecipeHandler) GetRecipe(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "recipe id must be numeric",
		})
	}

	recipe, err := h.recipeService.GetRecipe(ctx, id)
	if err != nil {
		return respondServiceError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, recipe)
}
