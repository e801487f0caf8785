package models

import (
	"time"

	"github.com/platewise/mealplanner/common/patch"
)

// Recipe is an immutable base recipe.
// Maps to: recipes table
//
// Once stored, a recipe is never edited in place. Per-meal changes live
// in RecipeVariant overlays attached to plan entries; the base stays
// byte-stable so every variant compiles against the same ground truth.
type Recipe struct {
	ID       int64  `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	Servings int    `db:"servings" json:"servings"`

	// Ordered ingredient lines, e.g. "1 cup white rice". Patch ops
	// address these by original index.
	Ingredients []string `db:"ingredients" json:"ingredients"`

	// Preparation steps. Carried through compilation untouched; the
	// patch engine never edits steps.
	Steps []string `db:"steps" json:"steps,omitempty"`

	// Audit fields
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PatchBase returns the patch engine's view of the recipe.
func (r *Recipe) PatchBase() patch.Base {
	return patch.Base{Servings: r.Servings, Ingredients: r.Ingredients}
}

// CompiledRecipe is a recipe body as consumers read it, whether it came
// straight from a base recipe or out of a variant compilation.
type CompiledRecipe struct {
	Title    string `json:"title"`
	Servings int    `json:"servings"`

	// Set only when a scale_servings op ran; records the base servings
	// at compile time. Ingredient quantities are never rescaled.
	ScaledFromServings int `json:"scaled_from_servings,omitempty"`

	Ingredients []string `json:"ingredients"`
}

// NewCompiledRecipe pairs a compile result with its base recipe's title.
func NewCompiledRecipe(title string, res patch.Result) CompiledRecipe {
	return CompiledRecipe{
		Title:              title,
		Servings:           res.Servings,
		ScaledFromServings: res.ScaledFrom,
		Ingredients:        res.Ingredients,
	}
}

// CompiledFromBase renders a base recipe as a compiled body. Consumers
// that resolve a plain recipe reference get the same shape a variant
// resolution returns.
func CompiledFromBase(r *Recipe) CompiledRecipe {
	ings := make([]string, len(r.Ingredients))
	copy(ings, r.Ingredients)
	return CompiledRecipe{Title: r.Title, Servings: r.Servings, Ingredients: ings}
}
