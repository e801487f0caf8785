package models

import (
	"strings"
	"time"

	"github.com/platewise/mealplanner/common/patch"
)

// RecipeVariant is the compiled overlay a plan entry carries after its
// recipe was modified. The base recipe stays untouched; the variant
// stores the approved ops verbatim next to the compiled output so the
// result is auditable without recompiling. Re-modifying an entry
// replaces the whole variant, patches are never layered on a variant.
type RecipeVariant struct {
	VariantID       string         `db:"variant_id" json:"variant_id"`
	BaseRecipeID    int64          `db:"base_recipe_id" json:"base_recipe_id"`
	PatchOps        []patch.Op     `db:"patch_ops" json:"patch_ops"`
	CompiledRecipe  CompiledRecipe `db:"compiled_recipe" json:"compiled_recipe"`
	CompiledAt      time.Time      `db:"compiled_at" json:"compiled_at"`
	CompilerVersion string         `db:"compiler_version" json:"compiler_version"`
}

// Clone deep-copies the variant so it can be attached to another plan
// entry. Ops and compiled data are copied, never aliased; the caller
// mints the clone's VariantID for its new slot.
func (v *RecipeVariant) Clone() *RecipeVariant {
	if v == nil {
		return nil
	}
	out := *v
	out.PatchOps = make([]patch.Op, len(v.PatchOps))
	copy(out.PatchOps, v.PatchOps)
	out.CompiledRecipe.Ingredients = make([]string, len(v.CompiledRecipe.Ingredients))
	copy(out.CompiledRecipe.Ingredients, v.CompiledRecipe.Ingredients)
	return &out
}

const variantIDPrefix = "variant"

// VariantRef addresses the plan entry slot that owns a variant. A
// variant id is derived from the slot, not from the variant's content,
// so recompiling a slot keeps its id stable.
type VariantRef struct {
	SnapshotID string   `json:"snapshot_id"`
	Date       string   `json:"date"`
	MealType   MealType `json:"meal_type"`
}

// VariantID renders the canonical id for this slot,
// variant:{snapshot_id}:{date}:{meal_type}.
func (ref VariantRef) VariantID() string {
	return strings.Join([]string{variantIDPrefix, ref.SnapshotID, ref.Date, string(ref.MealType)}, ":")
}

// ParseVariantID splits a candidate variant id into its slot reference.
// It returns ok=false for anything that is not a well-formed 4-segment
// id; callers treat that as "not a variant reference", never as an
// error worth raising.
func ParseVariantID(s string) (VariantRef, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != variantIDPrefix {
		return VariantRef{}, false
	}
	ref := VariantRef{
		SnapshotID: parts[1],
		Date:       parts[2],
		MealType:   MealType(parts[3]),
	}
	if ref.SnapshotID == "" || !ValidDate(ref.Date) || !ref.MealType.Valid() {
		return VariantRef{}, false
	}
	return ref, true
}
