package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/mealplanner/cmd/mealplanner/proposer"
	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/config"
	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/patch"
	"github.com/platewise/mealplanner/common/policy"
	"github.com/platewise/mealplanner/common/queue"
)

// ── In-memory fakes ──────────────────────────────────────────────

type fakeRecipeStore struct {
	mu      sync.Mutex
	recipes map[int64]*models.Recipe
	nextID  int64
}

func newFakeRecipeStore() *fakeRecipeStore {
	return &fakeRecipeStore{recipes: make(map[int64]*models.Recipe), nextID: 1}
}

func (f *fakeRecipeStore) Create(_ context.Context, recipe *models.Recipe) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recipe.ID = f.nextID
	f.nextID++
	clone := *recipe
	f.recipes[recipe.ID] = &clone
	return recipe.ID, nil
}

func (f *fakeRecipeStore) GetByID(_ context.Context, id int64) (*models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, nil
	}
	clone := *recipe
	return &clone, nil
}

func (f *fakeRecipeStore) Exists(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.recipes[id]
	return ok, nil
}

type fakePlanStore struct {
	mu        sync.Mutex
	snapshots map[string]*models.PlanSnapshot
	entries   map[string]*models.PlanEntry
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{
		snapshots: make(map[string]*models.PlanSnapshot),
		entries:   make(map[string]*models.PlanEntry),
	}
}

func (f *fakePlanStore) CreateSnapshot(_ context.Context, snapshot *models.PlanSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *snapshot
	f.snapshots[snapshot.ID] = &clone
	for i := range snapshot.Entries {
		entry := snapshot.Entries[i]
		f.entries[entry.Ref().VariantID()] = &entry
	}
	return nil
}

func (f *fakePlanStore) GetSnapshot(_ context.Context, snapshotID string) (*models.PlanSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[snapshotID]
	if !ok {
		return nil, nil
	}
	clone := *snapshot
	clone.Entries = nil
	for _, entry := range f.entries {
		if entry.SnapshotID == snapshotID {
			clone.Entries = append(clone.Entries, *entry)
		}
	}
	// Same ordering the SQL store uses
	sort.Slice(clone.Entries, func(i, j int) bool {
		if clone.Entries[i].Date != clone.Entries[j].Date {
			return clone.Entries[i].Date < clone.Entries[j].Date
		}
		return clone.Entries[i].MealType < clone.Entries[j].MealType
	})
	return &clone, nil
}

func (f *fakePlanStore) ListEntries(ctx context.Context, snapshotID string) ([]models.PlanEntry, error) {
	snapshot, err := f.GetSnapshot(ctx, snapshotID)
	if err != nil || snapshot == nil {
		return nil, err
	}
	return snapshot.Entries, nil
}

func (f *fakePlanStore) GetEntry(_ context.Context, ref models.VariantRef) (*models.PlanEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[ref.VariantID()]
	if !ok {
		return nil, nil
	}
	clone := *entry
	return &clone, nil
}

func (f *fakePlanStore) UpsertEntry(_ context.Context, entry *models.PlanEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *entry
	f.entries[entry.Ref().VariantID()] = &clone
	return nil
}

func (f *fakePlanStore) SaveVariant(_ context.Context, ref models.VariantRef, variant *models.RecipeVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[ref.VariantID()]
	if !ok {
		return errors.New("slot not found")
	}
	entry.Variant = variant
	return nil
}

func (f *fakePlanStore) ClearVariant(_ context.Context, ref models.VariantRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[ref.VariantID()]
	if !ok || entry.Variant == nil {
		return false, nil
	}
	entry.Variant = nil
	return true, nil
}

type fakeAuditStore struct {
	mu   sync.Mutex
	rows []models.ProposalLog
}

func (f *fakeAuditStore) Create(_ context.Context, entry *models.ProposalLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *entry)
	return nil
}

func (f *fakeAuditStore) ListBySlot(_ context.Context, snapshotID, date, mealType string, _ int) ([]models.ProposalLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ProposalLog
	for i := len(f.rows) - 1; i >= 0; i-- {
		row := f.rows[i]
		if row.SnapshotID == snapshotID && row.Date == date && row.MealType == mealType {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeAuditStore) lastOutcome() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) == 0 {
		return ""
	}
	return f.rows[len(f.rows)-1].Outcome
}

// recordingQueue captures published events without goroutines
type recordingQueue struct {
	mu     sync.Mutex
	topics []string
	events []models.VariantEvent
}

func (q *recordingQueue) Publish(_ context.Context, topic string, _ string, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	var evt models.VariantEvent
	if err := json.Unmarshal(message, &evt); err != nil {
		return err
	}
	q.topics = append(q.topics, topic)
	q.events = append(q.events, evt)
	return nil
}

func (q *recordingQueue) Subscribe(context.Context, string, queue.MessageHandler) error {
	return nil
}

func (q *recordingQueue) Close() error { return nil }

// ── Shared test environment ─────────────────────────────────────

type testEnv struct {
	recipes  *fakeRecipeStore
	plans    *fakePlanStore
	audit    *fakeAuditStore
	queue    *recordingQueue
	recipeSv *RecipeService
	ref      models.VariantRef
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		recipes: newFakeRecipeStore(),
		plans:   newFakePlanStore(),
		audit:   &fakeAuditStore{},
		queue:   &recordingQueue{},
	}

	components := &bootstrap.Components{
		Config: &config.Config{},
		Logger: logger.New("error", "json"),
		Queue:  env.queue,
	}
	env.recipeSv = NewRecipeService(env.recipes, components)

	base := &models.Recipe{
		Title:    "Weeknight Fried Rice",
		Servings: 4,
		Ingredients: []string{
			"1 cup white rice",
			"2 chicken breasts",
			"1 tbsp olive oil",
		},
		Steps:     []string{"Cook rice", "Fry everything"},
		CreatedBy: "chef",
	}
	_, err := env.recipes.Create(context.Background(), base)
	require.NoError(t, err)

	env.ref = models.VariantRef{
		SnapshotID: "snap-1",
		Date:       "2026-01-05",
		MealType:   models.MealDinner,
	}
	err = env.plans.CreateSnapshot(context.Background(), &models.PlanSnapshot{
		ID:    "snap-1",
		Owner: "chef",
		Entries: []models.PlanEntry{
			{SnapshotID: "snap-1", Date: "2026-01-05", MealType: models.MealDinner, RecipeID: base.ID},
		},
	})
	require.NoError(t, err)

	return env
}

func (env *testEnv) variantService(prop proposer.Proposer, rules []policy.Rule) *VariantService {
	components := &bootstrap.Components{
		Config: &config.Config{},
		Logger: logger.New("error", "json"),
		Queue:  env.queue,
	}

	var engine *policy.Engine
	if rules != nil {
		engine = policy.NewEngine(rules)
	}

	return NewVariantService(env.plans, env.recipeSv, env.audit, prop, engine, components)
}

// ── Tests ────────────────────────────────────────────────────────

func TestModifyEntryCompilesVariant(t *testing.T) {
	env := newTestEnv(t)
	prop := &proposer.ScriptedProposer{Results: []*proposer.GenResult{
		{Ops: []patch.Op{
			patch.ReplaceOp(0, "white rice", "brown rice", "2 cups", "user prefers brown rice"),
		}},
	}}
	svc := env.variantService(prop, nil)

	result, err := svc.ModifyEntry(context.Background(), env.ref, "swap the white rice for brown", "chef")
	require.NoError(t, err)
	require.NotNil(t, result.Variant)

	assert.False(t, result.NeedsClarification)
	assert.Equal(t, env.ref.VariantID(), result.Variant.VariantID)
	assert.Equal(t, patch.CompilerVersion, result.Variant.CompilerVersion)
	assert.False(t, result.Variant.CompiledAt.IsZero())
	assert.Equal(t, []string{
		"2 cups brown rice",
		"2 chicken breasts",
		"1 tbsp olive oil",
	}, result.Variant.CompiledRecipe.Ingredients)

	// Ops are stored verbatim next to the compiled output
	require.Len(t, result.Variant.PatchOps, 1)
	assert.Equal(t, patch.KindReplaceIngredient, result.Variant.PatchOps[0].Kind)

	// The variant landed on the entry
	entry, err := env.plans.GetEntry(context.Background(), env.ref)
	require.NoError(t, err)
	require.NotNil(t, entry.Variant)
	assert.Equal(t, result.Variant.VariantID, entry.Variant.VariantID)

	// Event + audit trail
	require.Contains(t, env.queue.topics, models.TopicVariantCompiled)
	assert.Equal(t, models.OutcomeCompiled, env.audit.lastOutcome())
}

func TestModifyEntryClarificationPassthrough(t *testing.T) {
	env := newTestEnv(t)
	prop := &proposer.ScriptedProposer{Results: []*proposer.GenResult{
		{NeedsClarification: true, Message: "Which ingredient should I replace?"},
	}}
	svc := env.variantService(prop, nil)

	result, err := svc.ModifyEntry(context.Background(), env.ref, "make it better", "chef")
	require.NoError(t, err)

	assert.True(t, result.NeedsClarification)
	assert.Equal(t, "Which ingredient should I replace?", result.Message)
	assert.Nil(t, result.Variant)

	// Nothing was written
	entry, err := env.plans.GetEntry(context.Background(), env.ref)
	require.NoError(t, err)
	assert.Nil(t, entry.Variant)
	assert.Empty(t, env.queue.topics)
	assert.Equal(t, models.OutcomeClarification, env.audit.lastOutcome())
}

func TestModifyEntryProtocolViolation(t *testing.T) {
	env := newTestEnv(t)
	prop := &proposer.ScriptedProposer{Results: []*proposer.GenResult{
		{
			Ops:                []patch.Op{patch.AddOp("1 lime", "")},
			NeedsClarification: true,
			Message:            "also, which lime?",
		},
	}}
	svc := env.variantService(prop, nil)

	_, err := svc.ModifyEntry(context.Background(), env.ref, "add lime", "chef")
	require.Error(t, err)

	assert.True(t, errors.Is(err, proposer.ErrProtocolViolation))
	entry, _ := env.plans.GetEntry(context.Background(), env.ref)
	assert.Nil(t, entry.Variant)
	assert.Equal(t, models.OutcomeRejected, env.audit.lastOutcome())
}

func TestModifyEntryGeneratorFailure(t *testing.T) {
	env := newTestEnv(t)
	prop := &proposer.ScriptedProposer{Errs: []error{proposer.ErrGeneratorFailure}}
	svc := env.variantService(prop, nil)

	_, err := svc.ModifyEntry(context.Background(), env.ref, "???", "chef")
	require.Error(t, err)

	assert.True(t, errors.Is(err, proposer.ErrGeneratorFailure))
	assert.Equal(t, models.OutcomeGeneratorFailure, env.audit.lastOutcome())
	entry, _ := env.plans.GetEntry(context.Background(), env.ref)
	assert.Nil(t, entry.Variant)
}

func TestModifyEntryProposerDisabled(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)

	_, err := svc.ModifyEntry(context.Background(), env.ref, "anything", "chef")
	assert.True(t, errors.Is(err, ErrProposerDisabled))
}

func TestModifyEntryUnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(&proposer.ScriptedProposer{}, nil)

	missing := models.VariantRef{SnapshotID: "snap-1", Date: "2026-01-06", MealType: models.MealLunch}
	_, err := svc.ModifyEntry(context.Background(), missing, "anything", "chef")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestApplyOpsUnacknowledgedRemoveRejected(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)

	ops := []patch.Op{patch.RemoveOp(2, "olive oil", false, "cutting fat")}
	_, err := svc.ApplyOps(context.Background(), env.ref, ops, "chef")
	require.Error(t, err)

	verr, ok := patch.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, verr.HasCode(patch.CodeAcknowledgmentRequired))

	// Entry untouched, rejection audited
	entry, _ := env.plans.GetEntry(context.Background(), env.ref)
	assert.Nil(t, entry.Variant)
	assert.Equal(t, models.OutcomeRejected, env.audit.lastOutcome())
	assert.Empty(t, env.queue.topics)
}

func TestApplyOpsWholesaleReplacement(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)
	ctx := context.Background()

	first, err := svc.ApplyOps(ctx, env.ref, []patch.Op{patch.AddOp("1 pinch saffron", "")}, "chef")
	require.NoError(t, err)
	require.Len(t, first.Variant.PatchOps, 1)

	second, err := svc.ApplyOps(ctx, env.ref, []patch.Op{patch.ScaleOp(4, 8)}, "chef")
	require.NoError(t, err)

	// Same slot id, brand new content: ops never accumulate
	assert.Equal(t, first.Variant.VariantID, second.Variant.VariantID)
	require.Len(t, second.Variant.PatchOps, 1)
	assert.Equal(t, patch.KindScaleServings, second.Variant.PatchOps[0].Kind)

	entry, _ := env.plans.GetEntry(ctx, env.ref)
	assert.Equal(t, 8, entry.Variant.CompiledRecipe.Servings)
	assert.NotContains(t, entry.Variant.CompiledRecipe.Ingredients, "1 pinch saffron")
}

func TestApplyOpsEmptyRejected(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)

	_, err := svc.ApplyOps(context.Background(), env.ref, nil, "chef")
	assert.Error(t, err)
}

func TestApplyOpsPolicyViolation(t *testing.T) {
	env := newTestEnv(t)
	rules := []policy.Rule{{Name: "no-removals", Expr: "ops.removes == 0"}}
	svc := env.variantService(nil, rules)

	ops := []patch.Op{patch.RemoveOp(2, "olive oil", true, "cutting fat")}
	_, err := svc.ApplyOps(context.Background(), env.ref, ops, "chef")
	require.Error(t, err)

	violation, ok := policy.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "no-removals", violation.Rule)
	assert.Equal(t, models.OutcomePolicyViolation, env.audit.lastOutcome())

	entry, _ := env.plans.GetEntry(context.Background(), env.ref)
	assert.Nil(t, entry.Variant)
}

func TestClearVariantRevertsToBase(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)
	ctx := context.Background()

	_, err := svc.ApplyOps(ctx, env.ref, []patch.Op{patch.AddOp("1 pinch saffron", "")}, "chef")
	require.NoError(t, err)

	removed, err := svc.ClearVariant(ctx, env.ref, "chef")
	require.NoError(t, err)
	assert.True(t, removed)

	// Reads revert to the base recipe unchanged
	entry, _ := env.plans.GetEntry(ctx, env.ref)
	require.Nil(t, entry.Variant)
	base, err := env.recipeSv.GetRecipe(ctx, entry.RecipeID)
	require.NoError(t, err)
	assert.Equal(t, base.Ingredients, entry.EffectiveIngredients(base))

	// Clearing again is a no-op, not an error
	removed, err = svc.ClearVariant(ctx, env.ref, "chef")
	require.NoError(t, err)
	assert.False(t, removed)

	require.Contains(t, env.queue.topics, models.TopicVariantCleared)
}

func TestClearVariantUnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)

	missing := models.VariantRef{SnapshotID: "snap-1", Date: "2026-01-06", MealType: models.MealSnack}
	_, err := svc.ClearVariant(context.Background(), missing, "chef")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestCopyEntryMintsNewVariantID(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)
	ctx := context.Background()

	_, err := svc.ApplyOps(ctx, env.ref, []patch.Op{
		patch.ReplaceOp(0, "white rice", "brown rice", "2 cups", ""),
	}, "chef")
	require.NoError(t, err)

	copied, err := svc.CopyEntry(ctx, env.ref, "2026-01-07", models.MealLunch)
	require.NoError(t, err)
	require.NotNil(t, copied.Variant)

	toRef := models.VariantRef{SnapshotID: "snap-1", Date: "2026-01-07", MealType: models.MealLunch}
	assert.Equal(t, toRef.VariantID(), copied.Variant.VariantID)

	src, _ := env.plans.GetEntry(ctx, env.ref)
	assert.NotEqual(t, src.Variant.VariantID, copied.Variant.VariantID, "variant ids are never reused")

	// Deep copy: mutating the copy must not leak into the source
	copied.Variant.CompiledRecipe.Ingredients[0] = "mutated"
	src, _ = env.plans.GetEntry(ctx, env.ref)
	assert.Equal(t, "2 cups brown rice", src.Variant.CompiledRecipe.Ingredients[0])

	// Occupied target slot is rejected
	_, err = svc.CopyEntry(ctx, env.ref, "2026-01-07", models.MealLunch)
	assert.True(t, errors.Is(err, ErrSlotOccupied))

	require.Contains(t, env.queue.topics, models.TopicEntryCopied)
}

func TestCopyEntryWithoutVariant(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)

	copied, err := svc.CopyEntry(context.Background(), env.ref, "2026-01-08", models.MealDinner)
	require.NoError(t, err)
	assert.Nil(t, copied.Variant)
	assert.Equal(t, int64(1), copied.RecipeID)
}

func TestDiffVariant(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)
	ctx := context.Background()

	ops := []patch.Op{
		patch.ScaleOp(4, 8),
		patch.ReplaceOp(0, "white rice", "brown rice", "2 cups", ""),
	}
	_, err := svc.ApplyOps(ctx, env.ref, ops, "chef")
	require.NoError(t, err)

	diff, err := svc.DiffVariant(ctx, env.ref)
	require.NoError(t, err)
	assert.Equal(t, env.ref.VariantID(), diff.VariantID)
	assert.Equal(t, patch.CompilerVersion, diff.CompilerVersion)

	var changed map[string]interface{}
	require.NoError(t, json.Unmarshal(diff.Diff, &changed))
	assert.Equal(t, float64(8), changed["servings"])
	assert.Contains(t, changed, "ingredients")
	assert.NotContains(t, changed, "title", "unchanged fields stay out of the merge patch")
}

func TestDiffVariantNoVariant(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)

	_, err := svc.DiffVariant(context.Background(), env.ref)
	assert.True(t, errors.Is(err, ErrNoVariant))
}

func TestGetSlotHistory(t *testing.T) {
	env := newTestEnv(t)
	svc := env.variantService(nil, nil)
	ctx := context.Background()

	_, err := svc.ApplyOps(ctx, env.ref, []patch.Op{patch.AddOp("1 lime", "")}, "chef")
	require.NoError(t, err)
	_, err = svc.ApplyOps(ctx, env.ref, []patch.Op{patch.RemoveOp(2, "olive oil", false, "")}, "chef")
	require.Error(t, err)

	history, err := svc.GetSlotHistory(ctx, env.ref, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first
	assert.Equal(t, models.OutcomeRejected, history[0].Outcome)
	assert.Equal(t, models.OutcomeCompiled, history[1].Outcome)
}
