package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/risk-service/risk_service/internal/domain/entities"
	"github.com/risk-service/risk_service/internal/infrastructure/config"
	"github.com/risk-service/risk_service/pkg/logger"
	"github.com/risk-service/risk_service/pkg/metrics"
)

// RunCache caches terminal risk run responses in Redis. Runs are immutable
// once terminal, so cached entries never go stale within their TTL.
type RunCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRunCache connects to Redis and returns a run cache
func NewRunCache(cfg config.RedisConfig, ttl time.Duration, logger *logger.Logger) (*RunCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RunCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func runKey(id uuid.UUID) string {
	return "risk:run:" + id.String()
}

// Get returns the cached run, or nil on a miss. Cache failures degrade to a
// miss rather than failing the read path.
func (c *RunCache) Get(ctx context.Context, id uuid.UUID) *entities.RiskRun {
	payload, err := c.client.Get(ctx, runKey(id)).Bytes()
	if err == redis.Nil {
		metrics.RecordCacheLookup("miss")
		return nil
	}
	if err != nil {
		metrics.RecordCacheLookup("error")
		c.logger.Warn("Run cache read failed", "error", err, "run_id", id.String())
		return nil
	}

	var run entities.RiskRun
	if err := json.Unmarshal(payload, &run); err != nil {
		metrics.RecordCacheLookup("error")
		c.logger.Warn("Run cache entry corrupt", "error", err, "run_id", id.String())
		c.client.Del(ctx, runKey(id))
		return nil
	}

	metrics.RecordCacheLookup("hit")
	return &run
}

// Set stores a terminal run. Non-terminal runs are never cached.
func (c *RunCache) Set(ctx context.Context, run *entities.RiskRun) {
	if run == nil || !run.Status.Terminal() {
		return
	}

	payload, err := json.Marshal(run)
	if err != nil {
		c.logger.Warn("Run cache marshal failed", "error", err, "run_id", run.ID.String())
		return
	}
	if err := c.client.Set(ctx, runKey(run.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Run cache write failed", "error", err, "run_id", run.ID.String())
	}
}

// Ping verifies the Redis connection, for readiness checks
func (c *RunCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection
func (c *RunCache) Close() error {
	return c.client.Close()
}
