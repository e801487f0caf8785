// Package bootstrap assembles the shared runtime pieces a binary needs
// before it can serve: config, logger, database, queue, cache, and the
// optional pprof listener.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/platewise/mealplanner/common/cache"
	"github.com/platewise/mealplanner/common/config"
	"github.com/platewise/mealplanner/common/db"
	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/queue"
	"github.com/platewise/mealplanner/common/telemetry"
)

// Setup builds the component set for a service. The caller owns the
// returned components and must Shutdown them on exit.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	o := applyOptions(opts)

	cfg := o.config
	if cfg == nil {
		loaded, err := config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log := o.logger
	if log == nil {
		log = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	c := &Components{Config: cfg, Logger: log}

	log.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment)

	if err := c.initDB(ctx, o.dbInitHook); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	if err := c.initQueue(); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	c.initCache()
	c.initTelemetry(ctx)

	log.Info("service components ready",
		"service", serviceName,
		"db", c.DB != nil,
		"queue", c.Queue != nil,
		"cache", c.Cache != nil,
		"pprof", c.Telemetry != nil)

	return c, nil
}

func (c *Components) initDB(ctx context.Context, hook func(*db.DB) error) error {
	c.Logger.Info("connecting to database")

	database, err := db.New(ctx, c.Config, c.Logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	c.DB = database
	c.addCleanup(func() error {
		c.Logger.Info("closing database connection")
		c.DB.Close()
		return nil
	})

	if hook != nil {
		c.Logger.Info("running database init hook")
		if err := hook(c.DB); err != nil {
			return fmt.Errorf("database init hook: %w", err)
		}
	}
	return nil
}

func (c *Components) initQueue() error {
	c.Logger.Info("initializing queue", "type", c.Config.Queue.Type)

	switch c.Config.Queue.Type {
	case "memory":
		c.Queue = queue.NewMemoryQueue(c.Logger, c.Config.Queue.BufferSize)
	default:
		return fmt.Errorf("unknown queue type: %s", c.Config.Queue.Type)
	}

	c.addCleanup(func() error {
		c.Logger.Info("closing queue")
		return c.Queue.Close()
	})
	return nil
}

func (c *Components) initCache() {
	if !c.Config.Cache.Enabled {
		return
	}

	c.Cache = cache.NewMemoryCache(c.Logger)
	c.addCleanup(func() error {
		return c.Cache.Close()
	})
}

// initTelemetry starts the pprof listener when enabled. A telemetry
// failure never blocks startup.
func (c *Components) initTelemetry(ctx context.Context) {
	if !c.Config.Telemetry.EnablePprof {
		return
	}

	c.Telemetry = telemetry.New(c.Config.Telemetry.PprofPort, c.Logger)
	if err := c.Telemetry.Start(ctx); err != nil {
		c.Logger.Warn("failed to start telemetry", "error", err)
	}
}
