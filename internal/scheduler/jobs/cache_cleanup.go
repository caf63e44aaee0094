package jobs

import (
	"context"
	"fmt"

	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/redis"
)

// CacheCleanupJob sweeps stale cache entries. TTLs handle most of the
// expiry already; this catches keys written before a prefix or TTL
// policy change.
type CacheCleanupJob struct {
	cache    *redis.Cache
	patterns []string
	logger   *logger.Logger
}

func NewCacheCleanupJob(cache *redis.Cache, patterns []string, log *logger.Logger) *CacheCleanupJob {
	if len(patterns) == 0 {
		patterns = []string{"score:*"}
	}
	return &CacheCleanupJob{
		cache:    cache,
		patterns: patterns,
		logger:   log,
	}
}

func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule runs nightly at 03:00.
func (j *CacheCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	var total int64
	for _, pattern := range j.patterns {
		deleted, err := j.cache.DeletePattern(ctx, pattern)
		if err != nil {
			return fmt.Errorf("delete pattern %s: %w", pattern, err)
		}
		total += deleted
	}

	j.logger.WithField("deleted", total).Info("Cache cleanup completed")
	return nil
}
