package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/redis"
)

const resolveCacheTTL = 10 * time.Minute

// ResolverService turns recipe-like references into compiled recipe
// bodies. A reference is either a 4-segment variant id or a plain
// numeric recipe id; consumers treat both forms alike.
type ResolverService struct {
	planRepo   PlanStore
	recipes    *RecipeService
	redis      *redis.Client
	components *bootstrap.Components
}

// NewResolverService creates a new resolver service. redis may be nil;
// resolution then always hits the database.
func NewResolverService(
	planRepo PlanStore,
	recipes *RecipeService,
	redisClient *redis.Client,
	components *bootstrap.Components,
) *ResolverService {
	return &ResolverService{
		planRepo:   planRepo,
		recipes:    recipes,
		redis:      redisClient,
		components: components,
	}
}

// ResolvedRecipe is a resolved reference plus where it came from
type ResolvedRecipe struct {
	Ref       string                `json:"ref"`
	Source    string                `json:"source"`
	VariantID string                `json:"variant_id,omitempty"`
	RecipeID  int64                 `json:"recipe_id,omitempty"`
	Recipe    models.CompiledRecipe `json:"recipe"`
}

// Resolve looks up a variant id and returns its stored compiled recipe.
// The compiled body is returned as stored, never recomputed. Malformed
// ids and missing variants both report found=false, never an error.
func (s *ResolverService) Resolve(ctx context.Context, variantID string) (*models.CompiledRecipe, bool, error) {
	ref, ok := models.ParseVariantID(variantID)
	if !ok {
		return nil, false, nil
	}

	if cached := s.cachedRecipe(ctx, variantID); cached != nil {
		return cached, true, nil
	}

	entry, err := s.planRepo.GetEntry(ctx, ref)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil || entry.Variant == nil {
		return nil, false, nil
	}

	compiled := entry.Variant.CompiledRecipe
	s.cacheRecipe(ctx, variantID, compiled)

	return &compiled, true, nil
}

// ResolveRecipeRef resolves either reference form. Variant ids resolve
// to their stored compiled recipe; anything numeric falls back to the
// base recipe rendered in the same compiled shape.
func (s *ResolverService) ResolveRecipeRef(ctx context.Context, ref string) (*ResolvedRecipe, error) {
	if parsed, ok := models.ParseVariantID(ref); ok {
		compiled, found, err := s.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrNoVariant
		}
		return &ResolvedRecipe{
			Ref:       ref,
			Source:    "variant",
			VariantID: parsed.VariantID(),
			Recipe:    *compiled,
		}, nil
	}

	recipeID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, ErrRecipeNotFound
	}

	recipe, err := s.recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	return &ResolvedRecipe{
		Ref:      ref,
		Source:   "base",
		RecipeID: recipe.ID,
		Recipe:   models.CompiledFromBase(recipe),
	}, nil
}

// EffectiveIngredients is what a scheduled slot resolves to for
// ingredient consumers
type EffectiveIngredients struct {
	SnapshotID  string   `json:"snapshot_id"`
	Date        string   `json:"date"`
	MealType    string   `json:"meal_type"`
	Source      string   `json:"source"`
	VariantID   string   `json:"variant_id,omitempty"`
	Ingredients []string `json:"ingredients"`
}

// GetEffectiveIngredients returns the ingredient list a consumer should
// shop for: the compiled variant when the slot has one, the base recipe
// otherwise. The preference lives in the entry model; nothing here
// inspects variant internals.
func (s *ResolverService) GetEffectiveIngredients(ctx context.Context, ref models.VariantRef) (*EffectiveIngredients, error) {
	entry, err := s.planRepo.GetEntry(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}

	base, err := s.recipes.GetRecipe(ctx, entry.RecipeID)
	if err != nil {
		return nil, err
	}

	result := &EffectiveIngredients{
		SnapshotID:  ref.SnapshotID,
		Date:        ref.Date,
		MealType:    string(ref.MealType),
		Source:      "base",
		Ingredients: entry.EffectiveIngredients(base),
	}
	if entry.Variant != nil {
		result.Source = "variant"
		result.VariantID = entry.Variant.VariantID
	}

	return result, nil
}

func (s *ResolverService) cachedRecipe(ctx context.Context, variantID string) *models.CompiledRecipe {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, models.ResolveCacheKey(variantID))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.components.Logger.Warn("resolve cache read failed", "variant_id", variantID, "error", err)
		}
		return nil
	}

	compiled := &models.CompiledRecipe{}
	if err := json.Unmarshal([]byte(raw), compiled); err != nil {
		return nil
	}
	return compiled
}

func (s *ResolverService) cacheRecipe(ctx context.Context, variantID string, compiled models.CompiledRecipe) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(compiled)
	if err != nil {
		return
	}
	if err := s.redis.SetWithExpiry(ctx, models.ResolveCacheKey(variantID), string(payload), resolveCacheTTL); err != nil {
		s.components.Logger.Warn("failed to cache resolved recipe", "variant_id", variantID, "error", err)
	}
}
