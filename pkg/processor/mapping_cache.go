package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	engine "github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/metrics"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

const (
	tierMemory = "memory"
	tierRedis  = "redis"
)

// MappingRepository loads stored mappings from the database
type MappingRepository interface {
	Get(ctx context.Context, tenantID, id string) (models.StoredMapping, error)
}

// DocumentCache is the shared cache tier between the memory cache and the
// database.
type DocumentCache interface {
	GetMapping(ctx context.Context, tenantID, mappingID string) (models.StoredMapping, bool, error)
	SetMapping(ctx context.Context, stored models.StoredMapping) error
}

// CompiledMapping is a stored mapping with its execution plan.
type CompiledMapping struct {
	ID       string
	TenantID string
	Version  int
	Plan     *engine.Plan
}

// MappingCache caches compiled mappings in memory. Misses fall through to
// the shared document cache, when configured, and then to the repository.
type MappingCache struct {
	cache   map[string]*cacheEntry
	mu      sync.RWMutex
	repo    MappingRepository
	shared  DocumentCache
	logger  ectologger.Logger
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	hits    int64
	misses  int64
}

type cacheEntry struct {
	mapping   *CompiledMapping
	expiresAt time.Time
}

// MappingCacheConfig configures the mapping cache
type MappingCacheConfig struct {
	MaxSize int
	TTL     time.Duration
}

// DefaultMappingCacheConfig returns sensible defaults
func DefaultMappingCacheConfig() MappingCacheConfig {
	return MappingCacheConfig{
		MaxSize: 1000,
		TTL:     5 * time.Minute,
	}
}

// NewMappingCache creates a new mapping cache. shared may be nil.
func NewMappingCache(repo MappingRepository, shared DocumentCache, config MappingCacheConfig, logger ectologger.Logger) *MappingCache {
	return &MappingCache{
		cache:   make(map[string]*cacheEntry),
		repo:    repo,
		shared:  shared,
		logger:  logger,
		maxSize: config.MaxSize,
		ttl:     config.TTL,
		now:     time.Now,
	}
}

func cacheKey(tenantID, mappingID string) string {
	return fmt.Sprintf("%s:%s", tenantID, mappingID)
}

// GetCompiledMapping returns the compiled mapping for tenantID and mappingID.
func (c *MappingCache) GetCompiledMapping(ctx context.Context, tenantID, mappingID string) (*CompiledMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingCache.GetCompiledMapping")
	defer span.End()

	key := cacheKey(tenantID, mappingID)

	c.mu.RLock()
	entry, exists := c.cache[key]
	c.mu.RUnlock()

	if exists && c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		metrics.RecordCacheLookup(tierMemory, true)
		return entry.mapping, nil
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	metrics.RecordCacheLookup(tierMemory, false)

	stored, err := c.load(ctx, tenantID, mappingID)
	if err != nil {
		return nil, err
	}

	plan, err := engine.Compile(stored.Document)
	if err != nil {
		return nil, err
	}

	compiled := &CompiledMapping{
		ID:       stored.ID,
		TenantID: stored.TenantID,
		Version:  stored.Version,
		Plan:     plan,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= c.maxSize {
		c.evictHalf()
	}

	c.cache[key] = &cacheEntry{
		mapping:   compiled,
		expiresAt: c.now().Add(c.ttl),
	}
	metrics.CacheEntries.Set(float64(len(c.cache)))

	return compiled, nil
}

// load reads through the shared cache. Shared cache failures are logged and
// treated as misses so Redis being down never stops execution.
func (c *MappingCache) load(ctx context.Context, tenantID, mappingID string) (models.StoredMapping, error) {
	if c.shared != nil {
		stored, ok, err := c.shared.GetMapping(ctx, tenantID, mappingID)
		if err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("shared mapping cache lookup failed")
		}
		metrics.RecordCacheLookup(tierRedis, ok)
		if ok {
			return stored, nil
		}
	}

	stored, err := c.repo.Get(ctx, tenantID, mappingID)
	if err != nil {
		return models.StoredMapping{}, err
	}

	if c.shared != nil {
		if err := c.shared.SetMapping(ctx, stored); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("failed to populate shared mapping cache")
		}
	}

	return stored, nil
}

// evictHalf removes half the cache entries (must be called with lock held)
func (c *MappingCache) evictHalf() {
	count := 0
	target := len(c.cache) / 2
	for key := range c.cache {
		delete(c.cache, key)
		count++
		if count >= target {
			break
		}
	}
}

// Sweep drops expired entries and returns how many were removed.
func (c *MappingCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.cache {
		if !now.Before(entry.expiresAt) {
			delete(c.cache, key)
			removed++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.cache)))
	return removed
}

// Invalidate removes a specific mapping from the cache
func (c *MappingCache) Invalidate(tenantID, mappingID string) {
	key := cacheKey(tenantID, mappingID)
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}

// InvalidateMapping drops a mapping from memory and from the shared cache
// when the shared cache supports it.
func (c *MappingCache) InvalidateMapping(ctx context.Context, tenantID, mappingID string) error {
	c.Invalidate(tenantID, mappingID)

	shared, ok := c.shared.(interface {
		InvalidateMapping(ctx context.Context, tenantID, mappingID string) error
	})
	if !ok {
		return nil
	}
	return shared.InvalidateMapping(ctx, tenantID, mappingID)
}

// InvalidateTenant removes all mappings for a tenant from the cache
func (c *MappingCache) InvalidateTenant(tenantID string) {
	prefix := tenantID + ":"
	c.mu.Lock()
	for key := range c.cache {
		if strings.HasPrefix(key, prefix) {
			delete(c.cache, key)
		}
	}
	c.mu.Unlock()
}

type CacheStats struct {
	Size   int
	Hits   int64
	Misses int64
}

func (c *MappingCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size:   len(c.cache),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
