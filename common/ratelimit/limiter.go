// Package ratelimit enforces fixed-window request budgets in Redis.
// Budgets are tiered by operation cost so proposer traffic, which
// burns chat-model tokens, sits behind a much smaller window than
// plain reads.
package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger is the slice of the service logger this package calls
type Logger interface {
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Result is the outcome of one limit check
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// RateLimiter runs the embedded Lua check so increment and expiry stay
// atomic under concurrent requests
type RateLimiter struct {
	redis  *redis.Client
	script *redis.Script
	logger Logger
}

// NewRateLimiter creates a rate limiter on the given redis connection
func NewRateLimiter(redisClient *redis.Client, logger Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// CheckGlobalLimit checks the service-wide ceiling shared by all users
func (r *RateLimiter) CheckGlobalLimit(ctx context.Context, limit int64) (*Result, error) {
	return r.check(ctx, "rate_limit:global", limit, DefaultGlobalConfig.WindowSeconds)
}

// CheckTieredLimit checks the per-user budget for one tier. Every tier
// keeps its own counter, so read traffic never queues behind proposer
// traffic.
func (r *RateLimiter) CheckTieredLimit(ctx context.Context, username string, tier RequestTier) (*Result, error) {
	key := fmt.Sprintf("rate_limit:user:%s:tier:%s", username, tier)
	return r.check(ctx, key, GetLimitForTier(tier), GetWindowForTier(tier))
}

func (r *RateLimiter) check(ctx context.Context, key string, limit int64, windowSec int) (*Result, error) {
	raw, err := r.script.Run(ctx, r.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		r.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	// The script returns {allowed, current_count, limit, retry_after}
	fields, ok := raw.([]interface{})
	if !ok || len(fields) != 4 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}
	values := make([]int64, 4)
	for i, f := range fields {
		n, ok := f.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected rate limit script result: %v", raw)
		}
		values[i] = n
	}

	result := &Result{
		Allowed:           values[0] == 1,
		CurrentCount:      values[1],
		Limit:             values[2],
		RetryAfterSeconds: values[3],
	}

	if !result.Allowed {
		r.logger.Warn("rate limit exceeded",
			"key", key,
			"current", result.CurrentCount,
			"limit", result.Limit,
			"retry_after", result.RetryAfterSeconds)
	} else {
		r.logger.Debug("rate limit check passed",
			"key", key,
			"current", result.CurrentCount,
			"limit", result.Limit)
	}

	return result, nil
}
