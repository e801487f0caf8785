package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/models"
)

const recipeCacheTTL = 10 * time.Minute

// RecipeService handles business logic for base recipes
type RecipeService struct {
	recipeRepo RecipeStore
	components *bootstrap.Components
}

// NewRecipeService creates a new recipe service
func NewRecipeService(recipeRepo RecipeStore, components *bootstrap.Components) *RecipeService {
	return &RecipeService{
		recipeRepo: recipeRepo,
		components: components,
	}
}

// CreateRecipeRequest represents a request to create a base recipe
type CreateRecipeRequest struct {
	Title       string   `json:"title" validate:"required"`
	Servings    int      `json:"servings" validate:"required,min=1"`
	Ingredients []string `json:"ingredients" validate:"required,min=1,dive,required"`
	Steps       []string `json:"steps"`
}

// CreateRecipe stores a new base recipe. Base recipes are immutable
// once created; modifications happen through plan entry variants.
func (s *RecipeService) CreateRecipe(ctx context.Context, req *CreateRecipeRequest, createdBy string) (*models.Recipe, error) {
	recipe := &models.Recipe{
		Title:       req.Title,
		Servings:    req.Servings,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		CreatedBy:   createdBy,
	}
	if recipe.Steps == nil {
		recipe.Steps = []string{}
	}

	id, err := s.recipeRepo.Create(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.components.Logger.Info("recipe created",
		"recipe_id", id,
		"title", recipe.Title,
		"ingredients", len(recipe.Ingredients),
		"created_by", createdBy)

	return recipe, nil
}

// GetRecipe retrieves a base recipe through a read-through cache.
// Base recipes never change, so cached copies are always fresh.
func (s *RecipeService) GetRecipe(ctx context.Context, id int64) (*models.Recipe, error) {
	cacheKey := fmt.Sprintf("recipe:%d", id)

	if s.components.Cache != nil {
		if data, found, _ := s.components.Cache.Get(ctx, cacheKey); found {
			recipe := &models.Recipe{}
			if err := json.Unmarshal(data, recipe); err == nil {
				return recipe, nil
			}
			// Corrupt cache entry, fall through to the database
		}
	}

	recipe, err := s.recipeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return nil, ErrRecipeNotFound
	}

	if s.components.Cache != nil {
		if data, err := json.Marshal(recipe); err == nil {
			_ = s.components.Cache.Set(ctx, cacheKey, data, recipeCacheTTL)
		}
	}

	return recipe, nil
}
