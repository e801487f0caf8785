package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/platewise/mealplanner/common/db"
	"github.com/platewise/mealplanner/common/models"
)

// RecipeRepository handles database operations for base recipes
type RecipeRepository struct {
	db *db.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(database *db.DB) *RecipeRepository {
	return &RecipeRepository{db: database}
}

// Create inserts a new base recipe and returns its assigned id
func (r *RecipeRepository) Create(ctx context.Context, recipe *models.Recipe) (int64, error) {
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	steps, err := json.Marshal(recipe.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO recipes (title, servings, ingredients, steps, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	var id int64
	err = r.db.QueryRow(ctx, query, recipe.Title, recipe.Servings, ingredients, steps, recipe.CreatedBy).
		Scan(&id, &recipe.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create recipe: %w", err)
	}

	recipe.ID = id
	return id, nil
}

// GetByID retrieves a base recipe. Returns (nil, nil) when no recipe
// has that id.
func (r *RecipeRepository) GetByID(ctx context.Context, id int64) (*models.Recipe, error) {
	query := `
		SELECT id, title, servings, ingredients, steps, created_by, created_at
		FROM recipes
		WHERE id = $1
	`

	recipe := &models.Recipe{}
	var ingredients, steps []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&recipe.ID,
		&recipe.Title,
		&recipe.Servings,
		&ingredients,
		&steps,
		&recipe.CreatedBy,
		&recipe.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	if err := json.Unmarshal(ingredients, &recipe.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(steps, &recipe.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	return recipe, nil
}

// Exists reports whether a recipe id is present
func (r *RecipeRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recipe existence: %w", err)
	}
	return exists, nil
}
