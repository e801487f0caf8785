package patch

import (
	"sort"
	"strings"
)

// CompilerVersion identifies the Apply algorithm that produced a
// compiled recipe. Bump it whenever compilation semantics change so
// stored variants can be told apart from freshly compiled ones.
const CompilerVersion = "patch-compiler/1"

// Apply compiles ops over base and returns the resulting recipe body.
// The base is never mutated. Callers are expected to Validate the batch
// first; Apply itself never fails.
//
// Ops are applied in a fixed order regardless of their order in the
// batch: servings scale first, then replacements (in batch order,
// in place on original indices), then removals (by descending original
// index so earlier removals cannot shift later targets), then additions
// (appended in batch order). The same base and batch always compile to
// the same result, and an empty batch returns the base unchanged.
func Apply(base Base, ops []Op) Result {
	out := Result{
		Servings:    base.Servings,
		Ingredients: make([]string, len(base.Ingredients)),
	}
	copy(out.Ingredients, base.Ingredients)

	for _, op := range ops {
		if op.Kind == KindScaleServings {
			out.ScaledFrom = base.Servings
			out.Servings = op.ToServings
		}
	}

	for _, op := range ops {
		if op.Kind != KindReplaceIngredient || op.TargetIndex == nil {
			continue
		}
		if idx := *op.TargetIndex; idx >= 0 && idx < len(out.Ingredients) {
			out.Ingredients[idx] = replacementLine(op)
		}
	}

	var removals []int
	for _, op := range ops {
		if op.Kind != KindRemoveIngredient || op.TargetIndex == nil {
			continue
		}
		if idx := *op.TargetIndex; idx >= 0 && idx < len(out.Ingredients) {
			removals = append(removals, idx)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(removals)))
	for _, idx := range removals {
		out.Ingredients = append(out.Ingredients[:idx], out.Ingredients[idx+1:]...)
	}

	for _, op := range ops {
		if op.Kind == KindAddIngredient {
			out.Ingredients = append(out.Ingredients, strings.TrimSpace(op.NewIngredientLine))
		}
	}

	return out
}

// replacementLine renders the full ingredient line for a replacement,
// "quantity name" when a quantity is given, bare name otherwise.
func replacementLine(op Op) string {
	qty := strings.TrimSpace(op.ReplacementQuantity)
	name := strings.TrimSpace(op.ReplacementName)
	if qty == "" {
		return name
	}
	return qty + " " + name
}
