package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/platewise/mealplanner/common/db"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the service's tables if they do not exist yet.
// Wired into bootstrap as the DB init hook.
func EnsureSchema(database *db.DB) error {
	if _, err := database.Exec(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
