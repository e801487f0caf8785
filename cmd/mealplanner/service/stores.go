package service

import (
	"context"

	"github.com/platewise/mealplanner/cmd/mealplanner/repository"
	"github.com/platewise/mealplanner/common/models"
)

// RecipeStore is the recipe persistence surface the services consume
type RecipeStore interface {
	Create(ctx context.Context, recipe *models.Recipe) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Recipe, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// PlanStore is the plan persistence surface the services consume
type PlanStore interface {
	CreateSnapshot(ctx context.Context, snapshot *models.PlanSnapshot) error
	GetSnapshot(ctx context.Context, snapshotID string) (*models.PlanSnapshot, error)
	ListEntries(ctx context.Context, snapshotID string) ([]models.PlanEntry, error)
	GetEntry(ctx context.Context, ref models.VariantRef) (*models.PlanEntry, error)
	UpsertEntry(ctx context.Context, entry *models.PlanEntry) error
	SaveVariant(ctx context.Context, ref models.VariantRef, variant *models.RecipeVariant) error
	ClearVariant(ctx context.Context, ref models.VariantRef) (bool, error)
}

// AuditStore records modification attempts
type AuditStore interface {
	Create(ctx context.Context, entry *models.ProposalLog) error
	ListBySlot(ctx context.Context, snapshotID, date, mealType string, limit int) ([]models.ProposalLog, error)
}

var (
	_ RecipeStore = (*repository.RecipeRepository)(nil)
	_ PlanStore   = (*repository.PlanRepository)(nil)
	_ AuditStore  = (*repository.ProposalLogRepository)(nil)
)
