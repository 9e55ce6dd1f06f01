// Package cache shares stored mapping documents between service instances
// through Redis. It only ever holds copies: Postgres stays the source of
// truth and every write invalidates the cached copy.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/metrics"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Client is the part of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, cfg Config, logger ectologger.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)
	return rdb, nil
}

type DocumentCache struct {
	client Client
	logger ectologger.Logger
	ttl    time.Duration
}

func NewDocumentCache(client Client, logger ectologger.Logger, ttl time.Duration) *DocumentCache {
	return &DocumentCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func mappingKey(tenantID, mappingID string) string {
	return fmt.Sprintf("trellis:mapping:%s:%s", tenantID, mappingID)
}

// GetMapping returns the cached mapping. A miss is (zero, false, nil).
func (c *DocumentCache) GetMapping(ctx context.Context, tenantID, mappingID string) (models.StoredMapping, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentCache.GetMapping")
	defer span.End()

	raw, err := c.client.Get(ctx, mappingKey(tenantID, mappingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("redis", false)
		return models.StoredMapping{}, false, nil
	}
	if err != nil {
		return models.StoredMapping{}, false, err
	}

	var stored models.StoredMapping
	if err := json.Unmarshal(raw, &stored); err != nil {
		// a corrupt entry is a miss; the next write replaces it
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"mapping_id": mappingID,
		}).Warn("dropping unreadable cached mapping")
		_ = c.client.Del(ctx, mappingKey(tenantID, mappingID)).Err()
		metrics.RecordCacheLookup("redis", false)
		return models.StoredMapping{}, false, nil
	}

	metrics.RecordCacheLookup("redis", true)
	return stored, true, nil
}

func (c *DocumentCache) SetMapping(ctx context.Context, stored models.StoredMapping) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentCache.SetMapping")
	defer span.End()

	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, mappingKey(stored.TenantID, stored.ID), raw, c.ttl).Err()
}

func (c *DocumentCache) InvalidateMapping(ctx context.Context, tenantID, mappingID string) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentCache.InvalidateMapping")
	defer span.End()

	return c.client.Del(ctx, mappingKey(tenantID, mappingID)).Err()
}

func (c *DocumentCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
