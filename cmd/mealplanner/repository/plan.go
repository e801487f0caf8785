package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/platewise/mealplanner/common/db"
	"github.com/platewise/mealplanner/common/models"
)

// PlanRepository handles database operations for plan snapshots and
// their entries, including the variant column
type PlanRepository struct {
	db *db.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(database *db.DB) *PlanRepository {
	return &PlanRepository{db: database}
}

// CreateSnapshot inserts a snapshot and all of its entries in one
// transaction
func (r *PlanRepository) CreateSnapshot(ctx context.Context, snapshot *models.PlanSnapshot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	snapshotQuery := `
		INSERT INTO plan_snapshots (id, owner, label)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err = tx.QueryRow(ctx, snapshotQuery, snapshot.ID, snapshot.Owner, snapshot.Label).
		Scan(&snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	entryQuery := `
		INSERT INTO plan_entries (snapshot_id, entry_date, meal_type, recipe_id)
		VALUES ($1, $2::date, $3, $4)
	`

	for i := range snapshot.Entries {
		entry := &snapshot.Entries[i]
		_, err = tx.Exec(ctx, entryQuery, snapshot.ID, entry.Date, entry.MealType, entry.RecipeID)
		if err != nil {
			return fmt.Errorf("failed to create entry %s/%s: %w", entry.Date, entry.MealType, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// GetSnapshot retrieves a snapshot with all of its entries. Returns
// (nil, nil) when the snapshot does not exist.
func (r *PlanRepository) GetSnapshot(ctx context.Context, snapshotID string) (*models.PlanSnapshot, error) {
	query := `
		SELECT id, owner, label, created_at
		FROM plan_snapshots
		WHERE id = $1
	`

	snapshot := &models.PlanSnapshot{}
	err := r.db.QueryRow(ctx, query, snapshotID).Scan(
		&snapshot.ID,
		&snapshot.Owner,
		&snapshot.Label,
		&snapshot.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	entries, err := r.ListEntries(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	snapshot.Entries = entries

	return snapshot, nil
}

// ListEntries retrieves all entries of a snapshot ordered by date then
// meal type
func (r *PlanRepository) ListEntries(ctx context.Context, snapshotID string) ([]models.PlanEntry, error) {
	query := `
		SELECT snapshot_id, to_char(entry_date, 'YYYY-MM-DD'), meal_type, recipe_id, variant, updated_at
		FROM plan_entries
		WHERE snapshot_id = $1
		ORDER BY entry_date, meal_type
	`

	rows, err := r.db.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PlanEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// GetEntry retrieves a single slot. Returns (nil, nil) when the slot
// does not exist.
func (r *PlanRepository) GetEntry(ctx context.Context, ref models.VariantRef) (*models.PlanEntry, error) {
	query := `
		SELECT snapshot_id, to_char(entry_date, 'YYYY-MM-DD'), meal_type, recipe_id, variant, updated_at
		FROM plan_entries
		WHERE snapshot_id = $1 AND entry_date = $2::date AND meal_type = $3
	`

	row := r.db.QueryRow(ctx, query, ref.SnapshotID, ref.Date, ref.MealType)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// UpsertEntry inserts a slot or overwrites an existing one, variant
// included. Used when copying a slot to a new position.
func (r *PlanRepository) UpsertEntry(ctx context.Context, entry *models.PlanEntry) error {
	variant, err := marshalVariant(entry.Variant)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plan_entries (snapshot_id, entry_date, meal_type, recipe_id, variant, updated_at)
		VALUES ($1, $2::date, $3, $4, $5, now())
		ON CONFLICT (snapshot_id, entry_date, meal_type)
		DO UPDATE SET recipe_id = $4, variant = $5, updated_at = now()
	`

	_, err = r.db.Exec(ctx, query, entry.SnapshotID, entry.Date, entry.MealType, entry.RecipeID, variant)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	return nil
}

// SaveVariant stores a freshly compiled variant on a slot, replacing
// any previous variant wholesale
func (r *PlanRepository) SaveVariant(ctx context.Context, ref models.VariantRef, variant *models.RecipeVariant) error {
	payload, err := marshalVariant(variant)
	if err != nil {
		return err
	}

	query := `
		UPDATE plan_entries
		SET variant = $4, updated_at = now()
		WHERE snapshot_id = $1 AND entry_date = $2::date AND meal_type = $3
	`

	tag, err := r.db.Exec(ctx, query, ref.SnapshotID, ref.Date, ref.MealType, payload)
	if err != nil {
		return fmt.Errorf("failed to save variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to save variant: slot %s not found", ref.VariantID())
	}

	return nil
}

// ClearVariant removes the variant from a slot. Returns true when a
// variant was actually removed, false when the slot had none.
func (r *PlanRepository) ClearVariant(ctx context.Context, ref models.VariantRef) (bool, error) {
	query := `
		UPDATE plan_entries
		SET variant = NULL, updated_at = now()
		WHERE snapshot_id = $1 AND entry_date = $2::date AND meal_type = $3 AND variant IS NOT NULL
	`

	tag, err := r.db.Exec(ctx, query, ref.SnapshotID, ref.Date, ref.MealType)
	if err != nil {
		return false, fmt.Errorf("failed to clear variant: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// scanEntry reads one plan_entries row, decoding the nullable variant
// column
func scanEntry(row pgx.Row) (*models.PlanEntry, error) {
	entry := &models.PlanEntry{}
	var variant []byte

	err := row.Scan(
		&entry.SnapshotID,
		&entry.Date,
		&entry.MealType,
		&entry.RecipeID,
		&variant,
		&entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	if len(variant) > 0 {
		entry.Variant = &models.RecipeVariant{}
		if err := json.Unmarshal(variant, entry.Variant); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variant: %w", err)
		}
	}

	return entry, nil
}

// marshalVariant encodes a variant for the JSONB column, passing nil
// through as SQL NULL
func marshalVariant(variant *models.RecipeVariant) ([]byte, error) {
	if variant == nil {
		return nil, nil
	}
	payload, err := json.Marshal(variant)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variant: %w", err)
	}
	return payload, nil
}
