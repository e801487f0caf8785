// Package worker runs the background consumers of the service's
// in-process queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/queue"
	"github.com/platewise/mealplanner/common/redis"
)

// CacheInvalidator drops derived redis keys whenever a plan entry's
// variant is compiled or cleared. Resolution and shopping-list caches
// are rebuilt lazily on the next read.
type CacheInvalidator struct {
	queue queue.Queue
	redis *redis.Client
	log   *logger.Logger
}

// NewCacheInvalidator creates the invalidator worker
func NewCacheInvalidator(q queue.Queue, rdb *redis.Client, log *logger.Logger) *CacheInvalidator {
	return &CacheInvalidator{
		queue: q,
		redis: rdb,
		log:   log,
	}
}

// Start subscribes to the variant and entry topics. Handlers run until
// ctx is cancelled.
func (w *CacheInvalidator) Start(ctx context.Context) error {
	topics := []string{
		models.TopicVariantCompiled,
		models.TopicVariantCleared,
		models.TopicEntryCopied,
	}
	for _, topic := range topics {
		if err := w.queue.Subscribe(ctx, topic, w.handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	w.log.Info("cache invalidator started")
	return nil
}

func (w *CacheInvalidator) handle(ctx context.Context, key string, value []byte) error {
	var evt models.VariantEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return fmt.Errorf("decode variant event: %w", err)
	}

	keys := []string{models.ShoppingCacheKey(evt.SnapshotID)}
	if evt.VariantID != "" {
		keys = append(keys, models.ResolveCacheKey(evt.VariantID))
	}

	if err := w.redis.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate caches for snapshot %s: %w", evt.SnapshotID, err)
	}

	w.log.Debug("invalidated caches",
		"snapshot_id", evt.SnapshotID,
		"variant_id", evt.VariantID,
		"keys", len(keys),
	)
	return nil
}
