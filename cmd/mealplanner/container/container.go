package container

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/platewise/mealplanner/cmd/mealplanner/proposer"
	"github.com/platewise/mealplanner/cmd/mealplanner/repository"
	"github.com/platewise/mealplanner/cmd/mealplanner/service"
	"github.com/platewise/mealplanner/common/bootstrap"
	"github.com/platewise/mealplanner/common/llm"
	"github.com/platewise/mealplanner/common/policy"
	"github.com/platewise/mealplanner/common/ratelimit"
	rediscommon "github.com/platewise/mealplanner/common/redis"
	"github.com/platewise/mealplanner/common/worker"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components  *bootstrap.Components
	Redis       *rediscommon.Client
	RedisRaw    *redis.Client
	RateLimiter *ratelimit.RateLimiter

	// Repositories
	RecipeRepo      *repository.RecipeRepository
	PlanRepo        *repository.PlanRepository
	ProposalLogRepo *repository.ProposalLogRepository

	// Services
	RecipeService   *service.RecipeService
	PlanService     *service.PlanService
	VariantService  *service.VariantService
	ResolverService *service.ResolverService
	ShoppingService *service.ShoppingService

	// Workers
	CacheInvalidator *worker.CacheInvalidator
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	// Create Redis client (raw)
	redisRaw, err := createRedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	// Wrap with common redis client for instrumentation and common operations
	redisClient := rediscommon.NewClient(redisRaw, components.Logger)
	rateLimiter := ratelimit.NewRateLimiter(redisRaw, components.Logger)

	// Initialize repositories
	recipeRepo := repository.NewRecipeRepository(components.DB)
	planRepo := repository.NewPlanRepository(components.DB)
	proposalLogRepo := repository.NewProposalLogRepository(components.DB)

	// Policy rules: file-based when configured, built-in defaults otherwise
	rules := policy.DefaultRules()
	if path := components.Config.Policy.RulesPath; path != "" {
		rules, err = policy.LoadRules(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy rules: %w", err)
		}
		components.Logger.Info("loaded policy rules", "path", path, "rules", len(rules))
	}
	policyEngine := policy.NewEngine(rules)

	// The proposer is optional; direct ops submission works without it
	var patchProposer proposer.Proposer
	if components.Config.Features.EnableProposer {
		chatClient := llm.New(components.Config.LLM, components.Logger)
		patchProposer = proposer.NewLLMProposer(chatClient, components.Logger)
	} else {
		components.Logger.Info("patch proposer disabled by configuration")
	}

	// Initialize services (bottom-up: dependencies first)
	recipeService := service.NewRecipeService(recipeRepo, components)
	planService := service.NewPlanService(planRepo, recipeRepo, components)
	variantService := service.NewVariantService(
		planRepo,
		recipeService,
		proposalLogRepo,
		patchProposer,
		policyEngine,
		components,
	)
	resolverService := service.NewResolverService(planRepo, recipeService, redisClient, components)
	shoppingService := service.NewShoppingService(planRepo, recipeService, redisClient, components)

	cacheInvalidator := worker.NewCacheInvalidator(components.Queue, redisClient, components.Logger)

	return &Container{
		Components:       components,
		Redis:            redisClient,
		RedisRaw:         redisRaw,
		RateLimiter:      rateLimiter,
		RecipeRepo:       recipeRepo,
		PlanRepo:         planRepo,
		ProposalLogRepo:  proposalLogRepo,
		RecipeService:    recipeService,
		PlanService:      planService,
		VariantService:   variantService,
		ResolverService:  resolverService,
		ShoppingService:  shoppingService,
		CacheInvalidator: cacheInvalidator,
	}, nil
}

// Close releases connections the container owns. Component shutdown
// is separate; the caller defers both.
func (c *Container) Close() error {
	return c.RedisRaw.Close()
}

// createRedisClient creates a Redis client from environment variables
func createRedisClient() (*redis.Client, error) {
	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort := getEnv("REDIS_PORT", "6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: redisPassword,
		DB:       0,
	})

	return client, nil
}

// getEnv gets an environment variable or returns a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
