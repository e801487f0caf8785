package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/platewise/mealplanner/common/cache"
	"github.com/platewise/mealplanner/common/config"
	"github.com/platewise/mealplanner/common/db"
	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/queue"
	"github.com/platewise/mealplanner/common/telemetry"
)

// Components holds the initialized service dependencies. Tests build
// it directly with just the fields the code under test touches.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.DB
	Queue     queue.Queue
	Cache     cache.Cache
	Telemetry *telemetry.Telemetry

	cleanupFuncs []func() error
}

// Shutdown releases components in reverse initialization order
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %w", errors.Join(errs...))
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health reports whether the components can serve traffic. Only the
// database has a real failure mode; the memory queue and cache do not.
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}
	return nil
}

func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
