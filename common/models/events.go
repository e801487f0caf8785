package models

import "fmt"

// Queue topics published when a plan entry changes in a way that
// affects derived reads (resolver cache, shopping list).
const (
	TopicVariantCompiled = "variant.compiled"
	TopicVariantCleared  = "variant.cleared"
	TopicEntryCopied     = "plan.entry_copied"
)

// VariantEvent is the payload carried on variant and entry topics.
// VariantID is empty when the affected entry has no variant.
type VariantEvent struct {
	SnapshotID string `json:"snapshot_id"`
	Date       string `json:"date"`
	MealType   string `json:"meal_type"`
	VariantID  string `json:"variant_id,omitempty"`
}

// ShoppingCacheKey is the redis key holding a snapshot's aggregated
// shopping list.
func ShoppingCacheKey(snapshotID string) string {
	return fmt.Sprintf("shopping:%s", snapshotID)
}

// ResolveCacheKey is the redis key holding a resolved compiled recipe.
func ResolveCacheKey(variantID string) string {
	return fmt.Sprintf("resolve:%s", variantID)
}
