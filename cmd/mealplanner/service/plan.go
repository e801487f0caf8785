package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/models"
)

// PlanService handles business logic for plan snapshots
type PlanService struct {
	planRepo   PlanStore
	recipeRepo RecipeStore
	components *bootstrap.Components
}

// NewPlanService creates a new plan service
func NewPlanService(
	planRepo PlanStore,
	recipeRepo RecipeStore,
	components *bootstrap.Components,
) *PlanService {
	return &PlanService{
		planRepo:   planRepo,
		recipeRepo: recipeRepo,
		components: components,
	}
}

// PlanEntryRequest schedules one recipe in one slot
type PlanEntryRequest struct {
	Date     string `json:"date" validate:"required"`
	MealType string `json:"meal_type" validate:"required"`
	RecipeID int64  `json:"recipe_id" validate:"required,min=1"`
}

// CreatePlanRequest represents a request to create a plan snapshot
type CreatePlanRequest struct {
	Label   string             `json:"label"`
	Entries []PlanEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

// CreatePlan freezes a new plan snapshot with its entries. Every
// referenced recipe must already exist; slots must be unique.
func (s *PlanService) CreatePlan(ctx context.Context, req *CreatePlanRequest, owner string) (*models.PlanSnapshot, error) {
	snapshot := &models.PlanSnapshot{
		ID:    uuid.NewString(),
		Owner: owner,
		Label: req.Label,
	}

	seen := make(map[string]bool, len(req.Entries))
	for i, entry := range req.Entries {
		if !models.ValidDate(entry.Date) {
			return nil, fmt.Errorf("%w: entry %d: invalid date %q, expected YYYY-MM-DD", ErrInvalidRequest, i, entry.Date)
		}
		meal := models.MealType(entry.MealType)
		if !meal.Valid() {
			return nil, fmt.Errorf("%w: entry %d: invalid meal_type %q", ErrInvalidRequest, i, entry.MealType)
		}

		slot := entry.Date + "/" + entry.MealType
		if seen[slot] {
			return nil, fmt.Errorf("%w: entry %d: duplicate slot %s", ErrInvalidRequest, i, slot)
		}
		seen[slot] = true

		exists, err := s.recipeRepo.Exists(ctx, entry.RecipeID)
		if err != nil {
			return nil, fmt.Errorf("failed to check recipe %d: %w", entry.RecipeID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: entry %d references unknown recipe %d", ErrInvalidRequest, i, entry.RecipeID)
		}

		snapshot.Entries = append(snapshot.Entries, models.PlanEntry{
			SnapshotID: snapshot.ID,
			Date:       entry.Date,
			MealType:   meal,
			RecipeID:   entry.RecipeID,
		})
	}

	if err := s.planRepo.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create plan snapshot: %w", err)
	}

	s.components.Logger.Info("plan snapshot created",
		"snapshot_id", snapshot.ID,
		"entries", len(snapshot.Entries),
		"owner", owner)

	return snapshot, nil
}

// GetPlan retrieves a snapshot with all of its entries
func (s *PlanService) GetPlan(ctx context.Context, snapshotID string) (*models.PlanSnapshot, error) {
	snapshot, err := s.planRepo.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, ErrSnapshotNotFound
	}
	return snapshot, nil
}
