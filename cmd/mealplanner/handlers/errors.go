package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/cmd/mealplanner/proposer"
	"github.com/platewise/mealplanner/cmd/mealplanner/service"
	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/patch"
	"github.com/platewise/mealplanner/common/policy"
)

// respondServiceError maps service failures onto HTTP responses. The
// entry is guaranteed untouched on every path here, so callers can
// always retry after fixing their request.
func respondServiceError(c echo.Context, log *logger.Logger, err error) error {
	if verr, ok := patch.AsValidationError(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "patch_rejected",
			"failures": verr.Failures,
		})
	}

	if violation, ok := policy.AsViolation(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "policy_violation",
			"rule":  violation.Rule,
		})
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})

	case errors.Is(err, proposer.ErrGeneratorFailure):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "generator_failure",
			"message": "could not understand the request",
		})

	case errors.Is(err, proposer.ErrProtocolViolation):
		// Adapter bug, not a user error
		log.Error("proposer protocol violation", "error", err)
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error": "proposer_protocol_violation",
		})

	case errors.Is(err, service.ErrProposerDisabled):
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "proposer_disabled",
		})

	case errors.Is(err, service.ErrSlotOccupied):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "slot_occupied",
		})

	case errors.Is(err, service.ErrRecipeNotFound),
		errors.Is(err, service.ErrSnapshotNotFound),
		errors.Is(err, service.ErrEntryNotFound),
		errors.Is(err, service.ErrNoVariant):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Error("request failed", "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": "internal error",
	})
}
