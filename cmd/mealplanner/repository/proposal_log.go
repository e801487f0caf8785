package repository

import (
	"context"
	"fmt"

	"github.com/platewise/mealplanner/common/db"
	"github.com/platewise/mealplanner/common/models"
)

// ProposalLogRepository persists the audit trail of modification
// requests
type ProposalLogRepository struct {
	db *db.DB
}

// NewProposalLogRepository creates a new proposal log repository
func NewProposalLogRepository(database *db.DB) *ProposalLogRepository {
	return &ProposalLogRepository{db: database}
}

// Create appends one audit row
func (r *ProposalLogRepository) Create(ctx context.Context, entry *models.ProposalLog) error {
	query := `
		INSERT INTO proposal_log (id, snapshot_id, entry_date, meal_type, user_request, outcome, detail, created_by)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.SnapshotID,
		entry.Date,
		entry.MealType,
		entry.UserRequest,
		entry.Outcome,
		entry.Detail,
		entry.CreatedBy,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create proposal log entry: %w", err)
	}

	return nil
}

// ListBySlot retrieves the audit trail of a single slot, newest first
func (r *ProposalLogRepository) ListBySlot(ctx context.Context, snapshotID, date, mealType string, limit int) ([]models.ProposalLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, snapshot_id, to_char(entry_date, 'YYYY-MM-DD'), meal_type, user_request, outcome, detail, created_by, created_at
		FROM proposal_log
		WHERE snapshot_id = $1 AND entry_date = $2::date AND meal_type = $3
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, snapshotID, date, mealType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposal log: %w", err)
	}
	defer rows.Close()

	var entries []models.ProposalLog
	for rows.Next() {
		var entry models.ProposalLog
		err := rows.Scan(
			&entry.ID,
			&entry.SnapshotID,
			&entry.Date,
			&entry.MealType,
			&entry.UserRequest,
			&entry.Outcome,
			&entry.Detail,
			&entry.CreatedBy,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate proposal log: %w", err)
	}

	return entries, nil
}
