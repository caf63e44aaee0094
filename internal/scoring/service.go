package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/redis"
)

// Completer produces raw model output for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service is the content-addressed scoring layer: redis front cache,
// database store behind it, scorer call only on a full miss. Lookup
// and populate are separate steps so a retried run that already wrote
// the store just reloads it.
type Service struct {
	completer Completer
	cache     *redis.Cache
	limiter   *redis.RateLimiter
	limit     redis.RateLimitConfig
	repo      contracts.ScoreRepository
	cacheTTL  time.Duration
	logger    *logger.Logger
}

// NewService creates a new scoring service. A nil limiter disables
// outbound throttling; cache hits and store hits are never throttled.
func NewService(completer Completer, cache *redis.Cache, limiter *redis.RateLimiter, limit redis.RateLimitConfig, repo contracts.ScoreRepository, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		completer: completer,
		cache:     cache,
		limiter:   limiter,
		limit:     limit,
		repo:      repo,
		cacheTTL:  cacheTTL,
		logger:    log,
	}
}

// ScoreText returns the acceleration score for the given source text,
// computing it at most once per (hash, scoreType) unless force is set.
func (s *Service) ScoreText(ctx context.Context, symbol, scoreType, text string, force bool) (*contracts.AccelerationScore, error) {
	hash := ContentHash(text)
	cacheKey := fmt.Sprintf("score:%s:%s", scoreType, hash)

	if !force {
		var cached contracts.AccelerationScore
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Score cache read failed")
		}
		if found {
			return &cached, nil
		}

		stored, err := s.repo.Get(ctx, hash, scoreType)
		if err != nil {
			return nil, fmt.Errorf("score store read failed: %w", err)
		}
		if stored != nil {
			s.populateCache(ctx, cacheKey, stored)
			return stored, nil
		}
	}

	// The full-miss path calls the provider, and only that path is
	// throttled: a shared sliding window keeps concurrent jobs from
	// burning through the scorer quota together.
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.limit); err != nil {
			return nil, fmt.Errorf("scorer rate limit: %w", err)
		}
	}

	raw, err := s.completer.Complete(ctx, BuildPrompt(symbol, text))
	if err != nil {
		return nil, fmt.Errorf("scorer call failed: %w", err)
	}

	score, err := ParseScore(symbol, scoreType, hash, raw)
	if err != nil {
		// Invalid scores are surfaced and never cached.
		return nil, err
	}

	if err := s.repo.Put(ctx, score); err != nil {
		return nil, fmt.Errorf("score store write failed: %w", err)
	}
	s.populateCache(ctx, cacheKey, score)

	s.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"score_type": scoreType,
		"phase":      score.GrowthPhase,
		"conviction": score.Conviction,
	}).Info("Scored source text")

	return score, nil
}

// LatestForSymbol returns the most recent stored score for a symbol,
// nil if the symbol has never been scored.
func (s *Service) LatestForSymbol(ctx context.Context, symbol, scoreType string) (*contracts.AccelerationScore, error) {
	return s.repo.GetLatestForSymbol(ctx, symbol, scoreType)
}

// populateCache is best-effort: a cache write failure only costs a
// future database read.
func (s *Service) populateCache(ctx context.Context, key string, score *contracts.AccelerationScore) {
	if err := s.cache.Set(ctx, key, score, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Score cache write failed")
	}
}
