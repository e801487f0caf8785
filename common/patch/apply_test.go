package patch

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestApply_EmptyBatchIsIdentity(t *testing.T) {
	base := testBase()
	out := Apply(base, nil)

	if out.Servings != base.Servings {
		t.Errorf("Expected servings %d, got %d", base.Servings, out.Servings)
	}
	if out.ScaledFrom != 0 {
		t.Errorf("Expected no scale metadata, got %d", out.ScaledFrom)
	}
	if !reflect.DeepEqual(out.Ingredients, base.Ingredients) {
		t.Errorf("Expected ingredients unchanged, got %v", out.Ingredients)
	}

	// The compiled list must be a copy, never a view of the base.
	out.Ingredients[0] = "mutated"
	if base.Ingredients[0] != "1 cup white rice" {
		t.Errorf("Apply aliased the base ingredient slice")
	}
}

func TestApply_ReplaceIngredient(t *testing.T) {
	base := testBase()
	ops := []Op{ReplaceOp(0, "white rice", "brown rice", "2 cups", "whole grain swap")}

	out := Apply(base, ops)

	if out.Ingredients[0] != "2 cups brown rice" {
		t.Errorf("Expected replacement line '2 cups brown rice', got %q", out.Ingredients[0])
	}
	if out.Ingredients[1] != base.Ingredients[1] || out.Ingredients[2] != base.Ingredients[2] {
		t.Errorf("Expected untargeted lines unchanged, got %v", out.Ingredients)
	}
	if out.Servings != base.Servings {
		t.Errorf("Expected servings untouched, got %d", out.Servings)
	}
}

func TestApply_ReplacementWithoutQuantity(t *testing.T) {
	out := Apply(testBase(), []Op{ReplaceOp(2, "olive oil", "avocado oil", "", "")})
	if out.Ingredients[2] != "avocado oil" {
		t.Errorf("Expected bare replacement name, got %q", out.Ingredients[2])
	}
}

func TestApply_RemovalOrderIndependence(t *testing.T) {
	// Removing original indices 0 and 2 from a three-line recipe must
	// leave original index 1, no matter the order the ops arrive in.
	first := []Op{
		RemoveOp(0, "rice", true, ""),
		RemoveOp(2, "olive oil", true, ""),
	}
	second := []Op{
		RemoveOp(2, "olive oil", true, ""),
		RemoveOp(0, "rice", true, ""),
	}

	for _, ops := range [][]Op{first, second} {
		out := Apply(testBase(), ops)
		if len(out.Ingredients) != 1 {
			t.Fatalf("Expected 1 ingredient left, got %v", out.Ingredients)
		}
		if out.Ingredients[0] != "2 chicken breasts" {
			t.Errorf("Expected original index 1 to survive, got %q", out.Ingredients[0])
		}
	}
}

func TestApply_FixedStageOrder(t *testing.T) {
	// The batch arrives interleaved; compilation still runs
	// scale, replace, remove, add.
	ops := []Op{
		AddOp("1 pinch saffron", ""),
		RemoveOp(2, "olive oil", true, ""),
		ScaleOp(4, 8),
		ReplaceOp(0, "white rice", "brown rice", "2 cups", ""),
	}

	out := Apply(testBase(), ops)

	want := []string{"2 cups brown rice", "2 chicken breasts", "1 pinch saffron"}
	if !reflect.DeepEqual(out.Ingredients, want) {
		t.Errorf("Expected %v, got %v", want, out.Ingredients)
	}
	if out.Servings != 8 || out.ScaledFrom != 4 {
		t.Errorf("Expected servings 8 scaled from 4, got %d from %d", out.Servings, out.ScaledFrom)
	}
}

func TestApply_Determinism(t *testing.T) {
	ops := []Op{
		ScaleOp(4, 6),
		ReplaceOp(1, "chicken", "tofu", "14 oz", ""),
		RemoveOp(2, "olive oil", true, ""),
		AddOp("1 tbsp sesame oil", ""),
	}

	a, err := json.Marshal(Apply(testBase(), ops))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	b, err := json.Marshal(Apply(testBase(), ops))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("Expected byte-identical compilations, got %s vs %s", a, b)
	}
}

func TestApply_ScaleTouchesServingsOnly(t *testing.T) {
	base := testBase()
	out := Apply(base, []Op{ScaleOp(4, 8)})

	if out.Servings != 8 {
		t.Errorf("Expected servings 8, got %d", out.Servings)
	}
	if out.ScaledFrom != 4 {
		t.Errorf("Expected scaled_from 4, got %d", out.ScaledFrom)
	}
	// Quantities inside ingredient lines are never rewritten.
	if !reflect.DeepEqual(out.Ingredients, base.Ingredients) {
		t.Errorf("Expected ingredient lines untouched by scaling, got %v", out.Ingredients)
	}
}

func TestApply_AddAppendsInBatchOrder(t *testing.T) {
	out := Apply(testBase(), []Op{
		AddOp("1 lime, juiced", ""),
		AddOp("chopped cilantro", ""),
	})

	n := len(out.Ingredients)
	if out.Ingredients[n-2] != "1 lime, juiced" || out.Ingredients[n-1] != "chopped cilantro" {
		t.Errorf("Expected additions appended in order, got %v", out.Ingredients)
	}
}

func TestApply_IngredientCountArithmetic(t *testing.T) {
	ops := []Op{
		ReplaceOp(0, "rice", "quinoa", "1 cup", ""),
		RemoveOp(2, "olive oil", true, ""),
		AddOp("1 tbsp butter", ""),
		AddOp("salt to taste", ""),
	}
	out := Apply(testBase(), ops)

	// 3 original - 1 removed + 2 added. Replacements keep the count.
	if len(out.Ingredients) != 4 {
		t.Errorf("Expected 4 ingredients, got %d: %v", len(out.Ingredients), out.Ingredients)
	}
}

func BenchmarkApply(b *testing.B) {
	base := testBase()
	ops := []Op{
		ScaleOp(4, 8),
		ReplaceOp(0, "white rice", "brown rice", "2 cups", ""),
		RemoveOp(2, "olive oil", true, ""),
		AddOp("1 tbsp sesame oil", ""),
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Apply(base, ops)
	}
}
