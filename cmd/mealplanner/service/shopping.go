package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/redis"
)

const shoppingCacheTTL = 15 * time.Minute

// ShoppingService aggregates effective ingredient lines across a plan
// snapshot. It consumes slots only through the effective-ingredients
// view, so variants and base recipes are indistinguishable here.
type ShoppingService struct {
	planRepo   PlanStore
	recipes    *RecipeService
	redis      *redis.Client
	components *bootstrap.Components
}

// NewShoppingService creates a new shopping service. redis may be nil;
// lists are then rebuilt on every request.
func NewShoppingService(
	planRepo PlanStore,
	recipes *RecipeService,
	redisClient *redis.Client,
	components *bootstrap.Components,
) *ShoppingService {
	return &ShoppingService{
		planRepo:   planRepo,
		recipes:    recipes,
		redis:      redisClient,
		components: components,
	}
}

// ShoppingItem is one consolidated ingredient line. Identical lines
// (case-insensitive) collapse into a count; no unit arithmetic happens.
type ShoppingItem struct {
	Line  string   `json:"line"`
	Count int      `json:"count"`
	Slots []string `json:"slots"`
}

// ShoppingList is the aggregated list for one snapshot
type ShoppingList struct {
	SnapshotID  string         `json:"snapshot_id"`
	Items       []ShoppingItem `json:"items"`
	Entries     int            `json:"entries"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// BuildList aggregates the snapshot's effective ingredients. Results
// are cached per snapshot; variant events drop the cache so the next
// read rebuilds.
func (s *ShoppingService) BuildList(ctx context.Context, snapshotID string) (*ShoppingList, error) {
	cacheKey := models.ShoppingCacheKey(snapshotID)

	if s.cacheEnabled() {
		if raw, err := s.redis.Get(ctx, cacheKey); err == nil {
			list := &ShoppingList{}
			if err := json.Unmarshal([]byte(raw), list); err == nil {
				return list, nil
			}
		}
	}

	snapshot, err := s.planRepo.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, ErrSnapshotNotFound
	}

	// Base recipes repeat across slots; fetch each once
	bases := make(map[int64]*models.Recipe)

	var items []ShoppingItem
	index := make(map[string]int)

	for i := range snapshot.Entries {
		entry := &snapshot.Entries[i]

		base, ok := bases[entry.RecipeID]
		if !ok {
			base, err = s.recipes.GetRecipe(ctx, entry.RecipeID)
			if err != nil {
				return nil, err
			}
			bases[entry.RecipeID] = base
		}

		slot := entry.Date + "/" + string(entry.MealType)
		for _, line := range entry.EffectiveIngredients(base) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			key := strings.ToLower(line)
			if at, seen := index[key]; seen {
				items[at].Count++
				items[at].Slots = append(items[at].Slots, slot)
			} else {
				index[key] = len(items)
				items = append(items, ShoppingItem{Line: line, Count: 1, Slots: []string{slot}})
			}
		}
	}

	list := &ShoppingList{
		SnapshotID:  snapshotID,
		Items:       items,
		Entries:     len(snapshot.Entries),
		GeneratedAt: time.Now().UTC(),
	}

	if s.cacheEnabled() {
		if payload, err := json.Marshal(list); err == nil {
			if err := s.redis.SetWithExpiry(ctx, cacheKey, string(payload), shoppingCacheTTL); err != nil {
				s.components.Logger.Warn("failed to cache shopping list", "snapshot_id", snapshotID, "error", err)
			}
		}
	}

	s.components.Logger.Info("shopping list built",
		"snapshot_id", snapshotID,
		"entries", len(snapshot.Entries),
		"items", len(items))

	return list, nil
}

func (s *ShoppingService) cacheEnabled() bool {
	return s.redis != nil &&
		s.components.Config != nil &&
		s.components.Config.Features.EnableShoppingCache
}
