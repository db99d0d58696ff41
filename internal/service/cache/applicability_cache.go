package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/ports"
	"github.com/complior/complior/internal/service/logger"
)

// Config configuration for the applicability cache
type Config struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

// applicabilityCache is a Redis-backed ports.ApplicabilityCache. The
// cache is advisory: backend failures are logged and surface as misses,
// never as errors to the engine.
type applicabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// New creates the applicability cache; a disabled config yields a noop.
func New(config Config, log logger.Logger) (ports.ApplicabilityCache, error) {
	if !config.Enabled {
		return &noopCache{}, nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &applicabilityCache{client: client, ttl: ttl, log: log}, nil
}

func cacheKey(requirementID string) string {
	return "applicability:" + requirementID
}

func (c *applicabilityCache) Get(ctx context.Context, requirementID string) (*domain.ApplicabilityResult, error) {
	data, err := c.client.Get(ctx, cacheKey(requirementID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.log.Warn(ctx, "applicability cache read failed", map[string]interface{}{
			"requirement_id": requirementID,
			"error":          err.Error(),
		})
		return nil, nil
	}

	var result domain.ApplicabilityResult
	if err := json.Unmarshal(data, &result); err != nil {
		// stale or corrupt payload, drop it
		_ = c.client.Del(ctx, cacheKey(requirementID)).Err()
		return nil, nil
	}
	return &result, nil
}

func (c *applicabilityCache) Set(ctx context.Context, result *domain.ApplicabilityResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal applicability result: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(result.RequirementID), data, c.ttl).Err(); err != nil {
		c.log.Warn(ctx, "applicability cache write failed", map[string]interface{}{
			"requirement_id": result.RequirementID,
			"error":          err.Error(),
		})
	}
	return nil
}

func (c *applicabilityCache) Invalidate(ctx context.Context, requirementID string) error {
	if err := c.client.Del(ctx, cacheKey(requirementID)).Err(); err != nil {
		c.log.Warn(ctx, "applicability cache invalidation failed", map[string]interface{}{
			"requirement_id": requirementID,
			"error":          err.Error(),
		})
	}
	return nil
}

// noopCache is used when caching is disabled.
type noopCache struct{}

func (noopCache) Get(ctx context.Context, requirementID string) (*domain.ApplicabilityResult, error) {
	return nil, nil
}

func (noopCache) Set(ctx context.Context, result *domain.ApplicabilityResult) error { return nil }

func (noopCache) Invalidate(ctx context.Context, requirementID string) error { return nil }
