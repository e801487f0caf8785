package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/config"
	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/patch"
)

func newResolverEnv(t *testing.T) (*testEnv, *ResolverService) {
	t.Helper()
	env := newTestEnv(t)

	components := &bootstrap.Components{
		Config: &config.Config{},
		Logger: logger.New("error", "json"),
	}
	svc := NewResolverService(env.plans, env.recipeSv, nil, components)
	return env, svc
}

func TestResolveReturnsStoredCompiledRecipe(t *testing.T) {
	env, svc := newResolverEnv(t)
	ctx := context.Background()

	variants := env.variantService(nil, nil)
	_, err := variants.ApplyOps(ctx, env.ref, []patch.Op{patch.ScaleOp(4, 8)}, "chef")
	require.NoError(t, err)

	compiled, found, err := svc.Resolve(ctx, env.ref.VariantID())
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 8, compiled.Servings)
	assert.Equal(t, 4, compiled.ScaledFromServings)
	assert.Equal(t, "Weeknight Fried Rice", compiled.Title)
}

func TestResolveMalformedIDIsNotFound(t *testing.T) {
	_, svc := newResolverEnv(t)
	ctx := context.Background()

	for _, ref := range []string{
		"",
		"1042",
		"variant:snap-1:2026-01-05",
		"variant:snap-1:2026-01-05:dinner:extra",
		"variant:snap-1:not-a-date:dinner",
		"variant:snap-1:2026-01-05:brunch",
	} {
		_, found, err := svc.Resolve(ctx, ref)
		assert.NoError(t, err, "ref %q", ref)
		assert.False(t, found, "ref %q", ref)
	}
}

func TestResolveSlotWithoutVariantIsNotFound(t *testing.T) {
	env, svc := newResolverEnv(t)

	_, found, err := svc.Resolve(context.Background(), env.ref.VariantID())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolveRecipeRefVariant(t *testing.T) {
	env, svc := newResolverEnv(t)
	ctx := context.Background()

	variants := env.variantService(nil, nil)
	_, err := variants.ApplyOps(ctx, env.ref, []patch.Op{patch.AddOp("1 pinch saffron", "")}, "chef")
	require.NoError(t, err)

	resolved, err := svc.ResolveRecipeRef(ctx, env.ref.VariantID())
	require.NoError(t, err)

	assert.Equal(t, "variant", resolved.Source)
	assert.Equal(t, env.ref.VariantID(), resolved.VariantID)
	assert.Contains(t, resolved.Recipe.Ingredients, "1 pinch saffron")
}

func TestResolveRecipeRefNumericFallback(t *testing.T) {
	_, svc := newResolverEnv(t)

	resolved, err := svc.ResolveRecipeRef(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, "base", resolved.Source)
	assert.Equal(t, int64(1), resolved.RecipeID)
	assert.Equal(t, "Weeknight Fried Rice", resolved.Recipe.Title)
	assert.Equal(t, 4, resolved.Recipe.Servings)
	assert.Zero(t, resolved.Recipe.ScaledFromServings)
}

func TestResolveRecipeRefClearedVariant(t *testing.T) {
	env, svc := newResolverEnv(t)
	ctx := context.Background()

	variants := env.variantService(nil, nil)
	_, err := variants.ApplyOps(ctx, env.ref, []patch.Op{patch.AddOp("1 pinch saffron", "")}, "chef")
	require.NoError(t, err)
	_, err = variants.ClearVariant(ctx, env.ref, "chef")
	require.NoError(t, err)

	_, err = svc.ResolveRecipeRef(ctx, env.ref.VariantID())
	assert.True(t, errors.Is(err, ErrNoVariant))
}

func TestResolveRecipeRefGarbage(t *testing.T) {
	_, svc := newResolverEnv(t)

	_, err := svc.ResolveRecipeRef(context.Background(), "abc")
	assert.True(t, errors.Is(err, ErrRecipeNotFound))

	_, err = svc.ResolveRecipeRef(context.Background(), "999")
	assert.True(t, errors.Is(err, ErrRecipeNotFound))
}

func TestEffectiveIngredientsPrefersVariant(t *testing.T) {
	env, svc := newResolverEnv(t)
	ctx := context.Background()

	base, err := svc.GetEffectiveIngredients(ctx, env.ref)
	require.NoError(t, err)
	assert.Equal(t, "base", base.Source)
	assert.Empty(t, base.VariantID)
	assert.Equal(t, []string{
		"1 cup white rice",
		"2 chicken breasts",
		"1 tbsp olive oil",
	}, base.Ingredients)

	variants := env.variantService(nil, nil)
	_, err = variants.ApplyOps(ctx, env.ref, []patch.Op{
		patch.ReplaceOp(0, "white rice", "brown rice", "2 cups", ""),
	}, "chef")
	require.NoError(t, err)

	modified, err := svc.GetEffectiveIngredients(ctx, env.ref)
	require.NoError(t, err)
	assert.Equal(t, "variant", modified.Source)
	assert.Equal(t, env.ref.VariantID(), modified.VariantID)
	assert.Equal(t, "2 cups brown rice", modified.Ingredients[0])
}

func TestEffectiveIngredientsUnknownSlot(t *testing.T) {
	env, svc := newResolverEnv(t)

	missing := models.VariantRef{SnapshotID: env.ref.SnapshotID, Date: "2026-02-01", MealType: models.MealSnack}
	_, err := svc.GetEffectiveIngredients(context.Background(), missing)
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}
