package patch

import (
	"strings"
)

// Validate checks a batch of ops against a base recipe without applying
// anything. It returns nil when every op is applicable, or a
// *ValidationError carrying every failure found. The checks run in a
// fixed order and later stages only run when earlier ones pass:
//
//  1. schema: every op is one of the four known kinds with its required
//     fields present and sane
//  2. acknowledgment: every remove_ingredient carries acknowledged=true
//  3. target match: indexes in bounds of the original ingredient list
//     and target names actually naming the targeted line
//  4. coverage dry run: no original index claimed twice and at least one
//     ingredient left after compilation
//
// An empty batch is vacuously valid; rejecting empty requests is the
// caller's concern.
func Validate(base Base, ops []Op) error {
	verr := &ValidationError{}

	checkSchema(ops, verr)
	if len(verr.Failures) > 0 {
		return verr
	}

	checkAcknowledgment(ops, verr)
	if len(verr.Failures) > 0 {
		return verr
	}

	checkTargets(base, ops, verr)
	if len(verr.Failures) > 0 {
		return verr
	}

	checkCoverage(base, ops, verr)
	if len(verr.Failures) > 0 {
		return verr
	}
	return nil
}

func checkSchema(ops []Op, verr *ValidationError) {
	scaleSeen := false
	for i, op := range ops {
		switch op.Kind {
		case KindReplaceIngredient:
			if op.TargetIndex == nil {
				verr.add(CodeSchemaError, i, "replace_ingredient requires target_index")
			}
			if strings.TrimSpace(op.TargetName) == "" {
				verr.add(CodeSchemaError, i, "replace_ingredient requires target_name")
			}
			if strings.TrimSpace(op.ReplacementName) == "" {
				verr.add(CodeSchemaError, i, "replace_ingredient requires replacement_name")
			}
			if op.TargetIndex != nil && *op.TargetIndex < 0 {
				verr.add(CodeSchemaError, i, "target_index must not be negative, got %d", *op.TargetIndex)
			}

		case KindAddIngredient:
			if strings.TrimSpace(op.NewIngredientLine) == "" {
				verr.add(CodeSchemaError, i, "add_ingredient requires new_ingredient_line")
			}

		case KindRemoveIngredient:
			if op.TargetIndex == nil {
				verr.add(CodeSchemaError, i, "remove_ingredient requires target_index")
			}
			if strings.TrimSpace(op.TargetName) == "" {
				verr.add(CodeSchemaError, i, "remove_ingredient requires target_name")
			}
			if op.TargetIndex != nil && *op.TargetIndex < 0 {
				verr.add(CodeSchemaError, i, "target_index must not be negative, got %d", *op.TargetIndex)
			}

		case KindScaleServings:
			if scaleSeen {
				verr.add(CodeSchemaError, i, "at most one scale_servings op per request")
			}
			scaleSeen = true
			if op.FromServings < 1 {
				verr.add(CodeSchemaError, i, "scale_servings requires from_servings >= 1, got %d", op.FromServings)
			}
			if op.ToServings < 1 {
				verr.add(CodeSchemaError, i, "scale_servings requires to_servings >= 1, got %d", op.ToServings)
			}

		default:
			verr.add(CodeSchemaError, i, "unknown op kind %q", string(op.Kind))
		}
	}
}

func checkAcknowledgment(ops []Op, verr *ValidationError) {
	for i, op := range ops {
		if op.Kind == KindRemoveIngredient && !op.Acknowledged {
			verr.add(CodeAcknowledgmentRequired, i, "removal of %q must be acknowledged", op.TargetName)
		}
	}
}

func checkTargets(base Base, ops []Op, verr *ValidationError) {
	for i, op := range ops {
		switch op.Kind {
		case KindReplaceIngredient, KindRemoveIngredient:
			idx := *op.TargetIndex
			if idx >= len(base.Ingredients) {
				verr.add(CodeTargetMismatch, i, "target_index %d out of range, recipe has %d ingredients", idx, len(base.Ingredients))
				continue
			}
			line := base.Ingredients[idx]
			if !strings.Contains(strings.ToLower(line), strings.ToLower(op.TargetName)) {
				verr.add(CodeTargetMismatch, i, "target_name %q does not match ingredient %d %q", op.TargetName, idx, line)
			}

		case KindScaleServings:
			// The producer states what it believes the base servings
			// are; a mismatch means it reasoned about a stale recipe.
			if op.FromServings != base.Servings {
				verr.add(CodeTargetMismatch, i, "from_servings %d does not match recipe servings %d", op.FromServings, base.Servings)
			}
		}
	}
}

func checkCoverage(base Base, ops []Op, verr *ValidationError) {
	claimed := make(map[int]int, len(ops))
	removes, adds := 0, 0

	for i, op := range ops {
		switch op.Kind {
		case KindReplaceIngredient, KindRemoveIngredient:
			idx := *op.TargetIndex
			if prev, ok := claimed[idx]; ok {
				verr.add(CodeCoverageViolation, i, "original index %d already targeted by op %d", idx, prev)
				continue
			}
			claimed[idx] = i
			if op.Kind == KindRemoveIngredient {
				removes++
			}
		case KindAddIngredient:
			adds++
		}
	}

	if remaining := len(base.Ingredients) - removes + adds; remaining < 1 {
		verr.add(CodeCoverageViolation, -1, "compiled recipe would have no ingredients (%d of %d removed, %d added)", removes, len(base.Ingredients), adds)
	}
}
