package models

import (
	"reflect"
	"testing"
	"time"

	"github.com/platewise/mealplanner/common/patch"
)

func TestVariantIDRoundTrip(t *testing.T) {
	ref := VariantRef{
		SnapshotID: "3f8a2c44-9a1b-4a7e-8f21-6d2f0c9b7e55",
		Date:       "2026-01-05",
		MealType:   MealDinner,
	}

	id := ref.VariantID()
	if id != "variant:3f8a2c44-9a1b-4a7e-8f21-6d2f0c9b7e55:2026-01-05:dinner" {
		t.Errorf("Unexpected variant id %q", id)
	}

	parsed, ok := ParseVariantID(id)
	if !ok {
		t.Fatalf("Expected id to parse, got ok=false")
	}
	if parsed != ref {
		t.Errorf("Expected %+v, got %+v", ref, parsed)
	}
}

func TestParseVariantID_Malformed(t *testing.T) {
	cases := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"plain recipe id", "1042"},
		{"wrong prefix", "patch:snap:2026-01-05:dinner"},
		{"three segments", "variant:snap:2026-01-05"},
		{"five segments", "variant:snap:2026-01-05:dinner:extra"},
		{"empty snapshot", "variant::2026-01-05:dinner"},
		{"bad date", "variant:snap:january-5th:dinner"},
		{"bad meal", "variant:snap:2026-01-05:brunch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ParseVariantID(tc.id); ok {
				t.Errorf("Expected %q to be rejected", tc.id)
			}
		})
	}
}

func TestRecipeVariantClone(t *testing.T) {
	orig := &RecipeVariant{
		VariantID:    "variant:snap:2026-01-05:dinner",
		BaseRecipeID: 7,
		PatchOps:     []patch.Op{patch.AddOp("1 pinch saffron", "")},
		CompiledRecipe: CompiledRecipe{
			Title:       "Rice Bowl",
			Servings:    4,
			Ingredients: []string{"2 cups brown rice"},
		},
		CompiledAt:      time.Now().UTC(),
		CompilerVersion: patch.CompilerVersion,
	}

	clone := orig.Clone()
	clone.VariantID = "variant:snap:2026-01-06:lunch"
	clone.PatchOps[0].NewIngredientLine = "mutated"
	clone.CompiledRecipe.Ingredients[0] = "mutated"

	if orig.VariantID != "variant:snap:2026-01-05:dinner" {
		t.Errorf("Clone aliased VariantID")
	}
	if orig.PatchOps[0].NewIngredientLine != "1 pinch saffron" {
		t.Errorf("Clone aliased patch ops")
	}
	if orig.CompiledRecipe.Ingredients[0] != "2 cups brown rice" {
		t.Errorf("Clone aliased compiled ingredients")
	}
}

func TestEffectiveRecipePrefersVariant(t *testing.T) {
	base := &Recipe{
		ID:          7,
		Title:       "Rice Bowl",
		Servings:    4,
		Ingredients: []string{"1 cup white rice", "2 chicken breasts"},
	}
	entry := &PlanEntry{
		SnapshotID: "snap",
		Date:       "2026-01-05",
		MealType:   MealDinner,
		RecipeID:   7,
	}

	if got := entry.EffectiveIngredients(base); !reflect.DeepEqual(got, base.Ingredients) {
		t.Errorf("Expected base ingredients without a variant, got %v", got)
	}

	entry.Variant = &RecipeVariant{
		CompiledRecipe: CompiledRecipe{
			Title:       "Rice Bowl",
			Servings:    4,
			Ingredients: []string{"2 cups brown rice", "2 chicken breasts"},
		},
	}
	got := entry.EffectiveIngredients(base)
	if got[0] != "2 cups brown rice" {
		t.Errorf("Expected variant ingredients to win, got %v", got)
	}
}
