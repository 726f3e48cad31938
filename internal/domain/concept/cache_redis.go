package concept

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ehr/emrapi/internal/platform/db"
)

// Cache is the subset of the redis client used by CachedRepository.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedRepository caches mapping lookups in redis. Concept mappings are
// reference data that rarely change, so a short TTL is enough to keep the
// dictionary out of the hot path of every report evaluation. Cache failures
// fall through to the wrapped repository.
type CachedRepository struct {
	next   Repository
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedRepository(next Repository, cache Cache, ttl time.Duration, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedRepository) GetByID(ctx context.Context, id uuid.UUID) (*Concept, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedRepository) GetByMapping(ctx context.Context, source, code string) (*Concept, error) {
	key := cacheKey(db.TenantFromContext(ctx), source, code)

	data, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var c Concept
		if jerr := json.Unmarshal(data, &c); jerr == nil {
			return &c, nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding undecodable cached concept")
	case !errors.Is(err, redis.Nil):
		r.logger.Warn().Err(err).Str("key", key).Msg("concept cache read failed")
	}

	c, err := r.next.GetByMapping(ctx, source, code)
	if err != nil {
		return nil, err
	}

	if b, jerr := json.Marshal(c); jerr == nil {
		if serr := r.cache.Set(ctx, key, b, r.ttl).Err(); serr != nil {
			r.logger.Warn().Err(serr).Str("key", key).Msg("concept cache write failed")
		}
	}
	return c, nil
}

func cacheKey(tenant, source, code string) string {
	if tenant == "" {
		tenant = "default"
	}
	return "emrapi:concept:" + tenant + ":" + source + ":" + code
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
