package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/moviecrew/moviecrew/pkg/observability"
	"github.com/moviecrew/moviecrew/pkg/social"
)

const defaultCacheTTL = 5 * time.Minute

// CachedStore wraps a Store with a redis read-through cache for single
// entity fetches. Mutations invalidate, and counter writes invalidate
// the owning entity: the memory edge store routes its deltas through
// ApplyCounterDelta, the SQL edge store reports committed deltas via
// InvalidateCounters. Cache failures degrade to the underlying store
// and are logged, never surfaced.
type CachedStore struct {
	Store

	client  *redis.Client
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewCachedStore wraps inner with a redis cache.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{
		Store:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func cacheKey(entity, id string) string {
	return fmt.Sprintf("moviecrew:%s:%s", entity, id)
}

// getCached fetches key into dest. The bool reports a hit.
func (c *CachedStore) getCached(ctx context.Context, entity, id string, dest interface{}) bool {
	data, err := c.client.Get(ctx, cacheKey(entity, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.miss(entity)
		return false
	}
	if err != nil {
		c.logger.WithError(err).Debug("cache read failed")
		c.storageError("cache_read")
		c.miss(entity)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WithError(err).Warn("cache entry corrupt, dropping")
		c.client.Del(ctx, cacheKey(entity, id))
		c.miss(entity)
		return false
	}
	c.hit(entity)
	return true
}

func (c *CachedStore) setCached(ctx context.Context, entity, id string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(entity, id), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("cache write failed")
		c.storageError("cache_write")
	}
}

func (c *CachedStore) invalidate(ctx context.Context, entity, id string) {
	if err := c.client.Del(ctx, cacheKey(entity, id)).Err(); err != nil {
		c.logger.WithError(err).Debug("cache invalidation failed")
		c.storageError("cache_invalidate")
	}
}

func (c *CachedStore) storageError(op string) {
	if c.metrics != nil {
		c.metrics.StorageErrorsTotal.WithLabelValues(op).Inc()
	}
}

func (c *CachedStore) hit(entity string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(entity).Inc()
	}
}

func (c *CachedStore) miss(entity string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(entity).Inc()
	}
}

// ApplyCounterDelta forwards the delta to the inner store and drops the
// owning entity's cache entry, so the next read sees the adjusted
// counter instead of a value up to a TTL stale.
func (c *CachedStore) ApplyCounterDelta(ctx context.Context, d social.CounterDelta) error {
	if err := c.Store.ApplyCounterDelta(ctx, d); err != nil {
		return err
	}
	c.invalidate(ctx, counterEntityKind(d.Counter), d.EntityID)
	return nil
}

// InvalidateCounters implements social.CounterInvalidator for edge
// stores that write counter columns inside their own transactions.
func (c *CachedStore) InvalidateCounters(ctx context.Context, deltas []social.CounterDelta) {
	for _, d := range deltas {
		c.invalidate(ctx, counterEntityKind(d.Counter), d.EntityID)
	}
}

func counterEntityKind(c social.Counter) string {
	switch c {
	case social.CounterGroupMembers, social.CounterGroupRequests:
		return "group"
	case social.CounterMovieLikes:
		return "movie"
	default:
		return "user"
	}
}

// GetUser fetches a user, consulting the cache first.
func (c *CachedStore) GetUser(ctx context.Context, id string) (*User, error) {
	var cached User
	if c.getCached(ctx, "user", id, &cached) {
		return &cached, nil
	}
	u, err := c.Store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	c.setCached(ctx, "user", id, u)
	return u, nil
}

// UpdateUser updates a user and invalidates its cache entry.
func (c *CachedStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	u, err := c.Store.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "user", id)
	return u, nil
}

// DeleteUser deletes a user and invalidates its cache entry.
func (c *CachedStore) DeleteUser(ctx context.Context, id string) error {
	if err := c.Store.DeleteUser(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, "user", id)
	return nil
}

// GetMovie fetches a movie, consulting the cache first.
func (c *CachedStore) GetMovie(ctx context.Context, id string) (*Movie, error) {
	var cached Movie
	if c.getCached(ctx, "movie", id, &cached) {
		return &cached, nil
	}
	m, err := c.Store.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	c.setCached(ctx, "movie", id, m)
	return m, nil
}

// UpdateMovie updates a movie and invalidates its cache entry.
func (c *CachedStore) UpdateMovie(ctx context.Context, id string, upd MovieUpdate) (*Movie, error) {
	m, err := c.Store.UpdateMovie(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "movie", id)
	return m, nil
}

// DeleteMovie deletes a movie and invalidates its cache entry.
func (c *CachedStore) DeleteMovie(ctx context.Context, id string) error {
	if err := c.Store.DeleteMovie(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, "movie", id)
	return nil
}

// GetGroup fetches a group, consulting the cache first.
func (c *CachedStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	var cached Group
	if c.getCached(ctx, "group", id, &cached) {
		return &cached, nil
	}
	g, err := c.Store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	c.setCached(ctx, "group", id, g)
	return g, nil
}

// UpdateGroup updates a group and invalidates its cache entry.
func (c *CachedStore) UpdateGroup(ctx context.Context, id string, upd GroupUpdate) (*Group, error) {
	g, err := c.Store.UpdateGroup(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "group", id)
	return g, nil
}

// DeleteGroup deletes a group and invalidates its cache entry.
func (c *CachedStore) DeleteGroup(ctx context.Context, id string) error {
	if err := c.Store.DeleteGroup(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, "group", id)
	return nil
}
