package models

import (
	"time"

	"github.com/google/uuid"
)

// Modification outcomes recorded in the proposal log
const (
	OutcomeCompiled         = "compiled"
	OutcomeClarification    = "clarification"
	OutcomeRejected         = "rejected"
	OutcomePolicyViolation  = "policy_violation"
	OutcomeGeneratorFailure = "generator_failure"
)

// ProposalLog is one audit row per modification attempt against a plan
// entry, whether it came through the proposer or as direct ops.
// Maps to: proposal_log table
type ProposalLog struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SnapshotID  string    `db:"snapshot_id" json:"snapshot_id"`
	Date        string    `db:"entry_date" json:"date"`
	MealType    string    `db:"meal_type" json:"meal_type"`
	UserRequest string    `db:"user_request" json:"user_request,omitempty"`
	Outcome     string    `db:"outcome" json:"outcome"`
	Detail      string    `db:"detail" json:"detail,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
