package models

import "time"

// DateLayout is the wire format for plan dates.
const DateLayout = "2006-01-02"

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// MealType slots a plan entry within a day.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Valid reports whether the meal type is one of the known slots.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// PlanSnapshot is a frozen meal plan identified by a stable id.
// Maps to: plan_snapshots table
type PlanSnapshot struct {
	ID        string    `db:"id" json:"id"`
	Owner     string    `db:"owner" json:"owner"`
	Label     string    `db:"label" json:"label,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Entries []PlanEntry `json:"entries,omitempty"`
}

// PlanEntry schedules one recipe in one (date, meal) slot of a
// snapshot. The slot owns at most one variant; the triple uniquely
// identifies it.
// Maps to: plan_entries table
type PlanEntry struct {
	SnapshotID string         `db:"snapshot_id" json:"snapshot_id"`
	Date       string         `db:"entry_date" json:"date"`
	MealType   MealType       `db:"meal_type" json:"meal_type"`
	RecipeID   int64          `db:"recipe_id" json:"recipe_id"`
	Variant    *RecipeVariant `db:"variant" json:"variant,omitempty"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// Ref returns the entry's slot reference.
func (e *PlanEntry) Ref() VariantRef {
	return VariantRef{SnapshotID: e.SnapshotID, Date: e.Date, MealType: e.MealType}
}

// EffectiveRecipe renders what a consumer should cook for this entry:
// the compiled variant when one exists, the base recipe otherwise.
func (e *PlanEntry) EffectiveRecipe(base *Recipe) CompiledRecipe {
	if e.Variant != nil {
		return e.Variant.CompiledRecipe
	}
	return CompiledFromBase(base)
}

// EffectiveIngredients is the ingredient-only view of EffectiveRecipe.
func (e *PlanEntry) EffectiveIngredients(base *Recipe) []string {
	return e.EffectiveRecipe(base).Ingredients
}
