package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/redis"
)

const idempotencyTTL = 24 * time.Hour

// Idempotency rejects replays of write requests that carry an
// Idempotency-Key header. The first request claims the key; a replay
// within the TTL gets 409 without touching the entry. Requests without
// the header pass through untouched.
func Idempotency(redisClient *redis.Client, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get("Idempotency-Key")
			if key == "" || redisClient == nil {
				return next(c)
			}

			user := GetUsername(c)
			if user == "" {
				user = "anonymous"
			}

			redisKey := fmt.Sprintf("idem:%s:%s", user, key)
			claimed, err := redisClient.SetNX(c.Request().Context(), redisKey, "1", idempotencyTTL)
			if err != nil {
				// Fail open, idempotency is best-effort protection
				log.Warn("idempotency check failed", "key", key, "error", err)
				return next(c)
			}

			if !claimed {
				return c.JSON(http.StatusConflict, map[string]interface{}{
					"error":           "duplicate_request",
					"idempotency_key": key,
				})
			}

			return next(c)
		}
	}
}
