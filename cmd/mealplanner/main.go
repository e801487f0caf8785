package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/platewise/mealplanner/cmd/mealplanner/container"
	"github.com/platewise/mealplanner/cmd/mealplanner/repository"
	"github.com/platewise/mealplanner/cmd/mealplanner/routes"
	"github.com/platewise/mealplanner/common/bootstrap"
	commonmw "github.com/platewise/mealplanner/common/middleware"
	"github.com/platewise/mealplanner/common/ratelimit"
	"github.com/platewise/mealplanner/common/server"
	"github.com/platewise/mealplanner/common/validation"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (DB, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "mealplanner",
		bootstrap.WithDBInitHook(repository.EnsureSchema))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap mealplanner: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}
	defer serviceContainer.Close()

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e, serviceContainer)

	// Setup health check
	setupHealthCheck(e, components)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start the cache invalidation worker. Best-effort: the derived
	// caches expire on TTL even without it.
	if err := serviceContainer.CacheInvalidator.Start(ctx); err != nil {
		components.Logger.Warn("cache invalidator failed to start", "error", err)
	}

	// Start server
	startServer(e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.NewRequestValidator()
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, c *container.Container) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	// Service-wide ceiling ahead of the per-user tier limits
	if c.Components.Config.Features.EnableRateLimit {
		e.Use(commonmw.GlobalRateLimitMiddleware(c.RateLimiter, ratelimit.DefaultGlobalConfig.Limit))
	}
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]string{
				"status":  "degraded",
				"service": "mealplanner",
				"error":   err.Error(),
			})
		}
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "mealplanner",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterRecipeRoutes(e, serviceContainer)
	routes.RegisterPlanRoutes(e, serviceContainer)
	routes.RegisterResolveRoutes(e, serviceContainer)
}

// startServer runs the Echo handler behind the graceful shutdown
// wrapper, so in-flight compilations finish before the process exits
func startServer(e *echo.Echo, components *bootstrap.Components) {
	srv := server.New(
		components.Config.Service.Name,
		components.Config.Service.Port,
		e,
		components.Logger,
	)

	if err := srv.Start(); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
