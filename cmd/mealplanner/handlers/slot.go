package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/common/models"
)

// slotFromPath builds a plan slot reference from the
// :snapshot_id/:date/:meal path parameters. Shape checks only;
// whether the slot exists is the services' business.
func slotFromPath(c echo.Context) (models.VariantRef, error) {
	ref := models.VariantRef{
		SnapshotID: c.Param("snapshot_id"),
		Date:       c.Param("date"),
		MealType:   models.MealType(c.Param("meal")),
	}

	if ref.SnapshotID == "" {
		return models.VariantRef{}, echo.NewHTTPError(http.StatusBadRequest, "snapshot_id is required")
	}
	if !models.ValidDate(ref.Date) {
		return models.VariantRef{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	if !ref.MealType.Valid() {
		return models.VariantRef{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown meal type %q", ref.MealType))
	}

	return ref, nil
}
