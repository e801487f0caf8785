package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"

	"github.com/platewise/mealplanner/cmd/mealplanner/proposer"
	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/patch"
	"github.com/platewise/mealplanner/common/policy"
)

// VariantService owns the modify/apply/clear lifecycle of plan entry
// variants. Base recipes are never touched; every modification compiles
// into a variant stored wholesale on the entry, and any failure leaves
// the entry exactly as it was.
type VariantService struct {
	planRepo   PlanStore
	recipes    *RecipeService
	auditRepo  AuditStore
	proposer   proposer.Proposer
	policy     *policy.Engine
	components *bootstrap.Components
}

// NewVariantService creates a new variant service. proposer may be nil
// when natural-language modification is disabled by configuration.
func NewVariantService(
	planRepo PlanStore,
	recipes *RecipeService,
	auditRepo AuditStore,
	prop proposer.Proposer,
	policyEngine *policy.Engine,
	components *bootstrap.Components,
) *VariantService {
	return &VariantService{
		planRepo:   planRepo,
		recipes:    recipes,
		auditRepo:  auditRepo,
		proposer:   prop,
		policy:     policyEngine,
		components: components,
	}
}

// ModifyResult is the outcome of a modify or ops request. Exactly one
// of Variant / NeedsClarification is set.
type ModifyResult struct {
	NeedsClarification bool                  `json:"needs_clarification"`
	Message            string                `json:"message,omitempty"`
	Variant            *models.RecipeVariant `json:"variant,omitempty"`
}

// ModifyEntry runs the full natural-language modification cycle for one
// slot: propose, protocol-check, policy-check, validate, apply, store.
func (s *VariantService) ModifyEntry(ctx context.Context, ref models.VariantRef, userRequest, requestedBy string) (*ModifyResult, error) {
	start := time.Now()

	_, base, err := s.loadSlot(ctx, ref)
	if err != nil {
		return nil, err
	}

	if s.proposer == nil {
		return nil, ErrProposerDisabled
	}

	s.components.Logger.Info("proposing entry modification",
		"variant_id", ref.VariantID(),
		"recipe_id", base.ID,
		"requested_by", requestedBy)

	genResult, err := s.proposer.Propose(ctx, base, userRequest)
	if err != nil {
		if errors.Is(err, proposer.ErrGeneratorFailure) {
			s.audit(ctx, ref, userRequest, models.OutcomeGeneratorFailure, err.Error(), requestedBy)
		}
		return nil, err
	}

	if err := genResult.CheckProtocol(); err != nil {
		s.audit(ctx, ref, userRequest, models.OutcomeRejected, "adapter protocol violation", requestedBy)
		return nil, err
	}

	if genResult.NeedsClarification {
		s.audit(ctx, ref, userRequest, models.OutcomeClarification, genResult.Message, requestedBy)
		return &ModifyResult{NeedsClarification: true, Message: genResult.Message}, nil
	}

	variant, err := s.compile(ctx, ref, base, genResult.Ops, userRequest, requestedBy)
	if err != nil {
		return nil, err
	}

	if s.components.Telemetry != nil {
		s.components.Telemetry.RecordDuration("modify_entry", start)
	}

	return &ModifyResult{Variant: variant}, nil
}

// ApplyOps runs the modification cycle on caller-supplied ops, skipping
// the proposer entirely
func (s *VariantService) ApplyOps(ctx context.Context, ref models.VariantRef, ops []patch.Op, requestedBy string) (*ModifyResult, error) {
	start := time.Now()

	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: ops cannot be empty", ErrInvalidRequest)
	}

	_, base, err := s.loadSlot(ctx, ref)
	if err != nil {
		return nil, err
	}

	variant, err := s.compile(ctx, ref, base, ops, "", requestedBy)
	if err != nil {
		return nil, err
	}

	if s.components.Telemetry != nil {
		s.components.Telemetry.RecordDuration("apply_ops", start)
	}

	return &ModifyResult{Variant: variant}, nil
}

// ClearVariant removes the slot's variant, reverting reads to the base
// recipe. Idempotent: clearing a slot with no variant reports false.
func (s *VariantService) ClearVariant(ctx context.Context, ref models.VariantRef, requestedBy string) (bool, error) {
	entry, err := s.planRepo.GetEntry(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil {
		return false, ErrEntryNotFound
	}

	removed, err := s.planRepo.ClearVariant(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("failed to clear variant: %w", err)
	}

	if removed {
		s.publish(ctx, models.TopicVariantCleared, ref, ref.VariantID())
		s.components.Logger.Info("variant cleared",
			"variant_id", ref.VariantID(),
			"requested_by", requestedBy)
	}

	return removed, nil
}

// CopyEntry copies a slot to another (date, meal) slot in the same
// snapshot. A carried variant is deep-copied and gets the destination
// slot's variant id; the ops and compiled data are never aliased.
func (s *VariantService) CopyEntry(ctx context.Context, from models.VariantRef, toDate string, toMeal models.MealType) (*models.PlanEntry, error) {
	if !models.ValidDate(toDate) {
		return nil, fmt.Errorf("%w: invalid to_date %q, expected YYYY-MM-DD", ErrInvalidRequest, toDate)
	}
	if !toMeal.Valid() {
		return nil, fmt.Errorf("%w: invalid to_meal %q", ErrInvalidRequest, toMeal)
	}

	src, err := s.planRepo.GetEntry(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get source entry: %w", err)
	}
	if src == nil {
		return nil, ErrEntryNotFound
	}

	to := models.VariantRef{SnapshotID: from.SnapshotID, Date: toDate, MealType: toMeal}
	if to == from {
		return nil, fmt.Errorf("%w: target slot equals source slot", ErrInvalidRequest)
	}

	dst, err := s.planRepo.GetEntry(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get target entry: %w", err)
	}
	if dst != nil {
		return nil, ErrSlotOccupied
	}

	entry := &models.PlanEntry{
		SnapshotID: to.SnapshotID,
		Date:       to.Date,
		MealType:   to.MealType,
		RecipeID:   src.RecipeID,
	}
	if src.Variant != nil {
		variant := src.Variant.Clone()
		variant.VariantID = to.VariantID()
		entry.Variant = variant
	}

	if err := s.planRepo.UpsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to copy entry: %w", err)
	}

	variantID := ""
	if entry.Variant != nil {
		variantID = entry.Variant.VariantID
	}
	s.publish(ctx, models.TopicEntryCopied, to, variantID)

	s.components.Logger.Info("entry copied",
		"from", from.VariantID(),
		"to", to.VariantID(),
		"with_variant", entry.Variant != nil)

	return entry, nil
}

// VariantDiff describes what a variant changed relative to its base
// recipe, as an RFC 7386 merge patch document
type VariantDiff struct {
	VariantID       string          `json:"variant_id"`
	BaseRecipeID    int64           `json:"base_recipe_id"`
	CompilerVersion string          `json:"compiler_version"`
	CompiledAt      time.Time       `json:"compiled_at"`
	Diff            json.RawMessage `json:"diff"`
}

// DiffVariant renders a merge patch between the base recipe document
// and the slot's compiled document
func (s *VariantService) DiffVariant(ctx context.Context, ref models.VariantRef) (*VariantDiff, error) {
	entry, base, err := s.loadSlot(ctx, ref)
	if err != nil {
		return nil, err
	}
	if entry.Variant == nil {
		return nil, ErrNoVariant
	}

	baseDoc, err := json.Marshal(models.CompiledFromBase(base))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal base document: %w", err)
	}
	variantDoc, err := json.Marshal(entry.Variant.CompiledRecipe)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compiled document: %w", err)
	}

	diff, err := jsonpatch.CreateMergePatch(baseDoc, variantDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge patch: %w", err)
	}

	return &VariantDiff{
		VariantID:       entry.Variant.VariantID,
		BaseRecipeID:    entry.Variant.BaseRecipeID,
		CompilerVersion: entry.Variant.CompilerVersion,
		CompiledAt:      entry.Variant.CompiledAt,
		Diff:            diff,
	}, nil
}

// GetSlotHistory reads the slot's audit trail, newest first
func (s *VariantService) GetSlotHistory(ctx context.Context, ref models.VariantRef, limit int) ([]models.ProposalLog, error) {
	entry, err := s.planRepo.GetEntry(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}

	history, err := s.auditRepo.ListBySlot(ctx, ref.SnapshotID, ref.Date, string(ref.MealType), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list slot history: %w", err)
	}
	return history, nil
}

// compile is the shared back half of ModifyEntry and ApplyOps: policy
// guard, validation, deterministic apply, wholesale persist, event,
// audit row. Nothing is written unless every check passes.
func (s *VariantService) compile(ctx context.Context, ref models.VariantRef, base *models.Recipe, ops []patch.Op, userRequest, requestedBy string) (*models.RecipeVariant, error) {
	patchBase := base.PatchBase()

	if s.policy != nil {
		if err := s.policy.Check(patchBase, ops); err != nil {
			if violation, ok := policy.AsViolation(err); ok {
				s.audit(ctx, ref, userRequest, models.OutcomePolicyViolation, violation.Rule, requestedBy)
			}
			return nil, err
		}
	}

	if err := patch.Validate(patchBase, ops); err != nil {
		detail := err.Error()
		s.audit(ctx, ref, userRequest, models.OutcomeRejected, detail, requestedBy)
		return nil, err
	}

	compiled := patch.Apply(patchBase, ops)

	variant := &models.RecipeVariant{
		VariantID:       ref.VariantID(),
		BaseRecipeID:    base.ID,
		PatchOps:        ops,
		CompiledRecipe:  models.NewCompiledRecipe(base.Title, compiled),
		CompiledAt:      time.Now().UTC(),
		CompilerVersion: patch.CompilerVersion,
	}

	if err := s.planRepo.SaveVariant(ctx, ref, variant); err != nil {
		return nil, fmt.Errorf("failed to save variant: %w", err)
	}

	s.publish(ctx, models.TopicVariantCompiled, ref, variant.VariantID)
	s.audit(ctx, ref, userRequest, models.OutcomeCompiled, fmt.Sprintf("%d ops", len(ops)), requestedBy)

	s.components.Logger.Info("variant compiled",
		"variant_id", variant.VariantID,
		"base_recipe_id", base.ID,
		"ops", len(ops),
		"compiler_version", variant.CompilerVersion)

	return variant, nil
}

// loadSlot fetches the entry and its base recipe
func (s *VariantService) loadSlot(ctx context.Context, ref models.VariantRef) (*models.PlanEntry, *models.Recipe, error) {
	entry, err := s.planRepo.GetEntry(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil {
		return nil, nil, ErrEntryNotFound
	}

	base, err := s.recipes.GetRecipe(ctx, entry.RecipeID)
	if err != nil {
		return nil, nil, err
	}

	return entry, base, nil
}

// publish emits a variant lifecycle event. Delivery is best-effort; the
// derived caches self-heal on TTL expiry.
func (s *VariantService) publish(ctx context.Context, topic string, ref models.VariantRef, variantID string) {
	if s.components.Queue == nil {
		return
	}

	event := models.VariantEvent{
		SnapshotID: ref.SnapshotID,
		Date:       ref.Date,
		MealType:   string(ref.MealType),
		VariantID:  variantID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := s.components.Queue.Publish(ctx, topic, ref.SnapshotID, payload); err != nil {
		s.components.Logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// audit records one modification attempt. Best-effort: a failed audit
// write never fails the request.
func (s *VariantService) audit(ctx context.Context, ref models.VariantRef, userRequest, outcome, detail, requestedBy string) {
	if s.auditRepo == nil {
		return
	}

	entry := &models.ProposalLog{
		ID:          uuid.New(),
		SnapshotID:  ref.SnapshotID,
		Date:        ref.Date,
		MealType:    string(ref.MealType),
		UserRequest: userRequest,
		Outcome:     outcome,
		Detail:      detail,
		CreatedBy:   requestedBy,
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.components.Logger.Warn("failed to write proposal log",
			"variant_id", ref.VariantID(),
			"outcome", outcome,
			"error", err)
	}
}
