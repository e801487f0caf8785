// Package patch implements the recipe patch engine: a closed set of
// ingredient-level operations, batch validation against a base recipe,
// and deterministic compilation of the patched result. Bases are never
// mutated; every apply produces a fresh compiled view.
package patch

// Kind discriminates the closed set of patch operations. Anything
// outside these four is rejected at validation time.
type Kind string

const (
	KindReplaceIngredient Kind = "replace_ingredient"
	KindAddIngredient     Kind = "add_ingredient"
	KindRemoveIngredient  Kind = "remove_ingredient"
	KindScaleServings     Kind = "scale_servings"
)

// Op is a single edit against a base recipe. The fields used depend on
// Kind; unused fields stay at their zero value and are omitted on the
// wire. target_index always refers to the base recipe's original
// ingredient order, regardless of other ops in the same batch.
type Op struct {
	Kind Kind `json:"op"`

	// replace_ingredient and remove_ingredient target one original
	// ingredient line. The index is a pointer so a missing field can be
	// told apart from a legitimate index 0.
	TargetIndex *int   `json:"target_index,omitempty"`
	TargetName  string `json:"target_name,omitempty"`

	// replace_ingredient
	ReplacementName     string `json:"replacement_name,omitempty"`
	ReplacementQuantity string `json:"replacement_quantity,omitempty"`

	// add_ingredient
	NewIngredientLine string `json:"new_ingredient_line,omitempty"`

	// remove_ingredient. Removal is destructive, so the producer has to
	// acknowledge it explicitly; a missing field counts as false.
	Acknowledged bool `json:"acknowledged,omitempty"`

	// scale_servings. Scaling is servings metadata only; ingredient
	// quantities are never rewritten.
	FromServings int `json:"from_servings,omitempty"`
	ToServings   int `json:"to_servings,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// ReplaceOp builds a replace_ingredient op.
func ReplaceOp(index int, targetName, replacementName, replacementQuantity, reason string) Op {
	return Op{
		Kind:                KindReplaceIngredient,
		TargetIndex:         &index,
		TargetName:          targetName,
		ReplacementName:     replacementName,
		ReplacementQuantity: replacementQuantity,
		Reason:              reason,
	}
}

// AddOp builds an add_ingredient op.
func AddOp(line, reason string) Op {
	return Op{Kind: KindAddIngredient, NewIngredientLine: line, Reason: reason}
}

// RemoveOp builds a remove_ingredient op.
func RemoveOp(index int, targetName string, acknowledged bool, reason string) Op {
	return Op{
		Kind:         KindRemoveIngredient,
		TargetIndex:  &index,
		TargetName:   targetName,
		Acknowledged: acknowledged,
		Reason:       reason,
	}
}

// ScaleOp builds a scale_servings op.
func ScaleOp(from, to int) Op {
	return Op{Kind: KindScaleServings, FromServings: from, ToServings: to}
}

// Base is the applicator's read-only view of a base recipe.
type Base struct {
	Servings    int
	Ingredients []string
}

// Result is a compiled recipe body. ScaledFrom is zero unless the batch
// carried a scale_servings op, in which case it records the servings
// count the base had at compile time.
type Result struct {
	Servings    int      `json:"servings"`
	ScaledFrom  int      `json:"scaled_from,omitempty"`
	Ingredients []string `json:"ingredients"`
}
