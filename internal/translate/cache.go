package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/joseph-ayodele/meddocs/internal/metrics"
)

// ErrCacheMiss is returned by a Store when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Store is the key/value contract CachedBackend needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisStore adapts a go-redis client to Store.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(addr, password string, db, poolSize int) *RedisStore {
	return &RedisStore{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// CachedBackend memoizes chunk translations. Concurrent identical requests
// share one backend call. Cache failures fall through to the backend.
type CachedBackend struct {
	inner   Backend
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCachedBackend(inner Backend, store Store, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *CachedBackend {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedBackend{inner: inner, store: store, ttl: ttl, metrics: m, logger: logger}
}

func (c *CachedBackend) Translate(ctx context.Context, text, src, dst string) (string, error) {
	key := cacheKey(text, src, dst)

	if v, err := c.store.Get(ctx, key); err == nil {
		c.metrics.IncCache("hit")
		return v, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		c.metrics.IncCache("error")
		c.logger.Warn("translation cache get failed", "error", err)
	} else {
		c.metrics.IncCache("miss")
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		out, err := c.inner.Translate(ctx, text, src, dst)
		if err != nil {
			return "", err
		}
		if setErr := c.store.Set(ctx, key, out, c.ttl); setErr != nil {
			c.logger.Warn("translation cache set failed", "error", setErr)
		}
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func cacheKey(text, src, dst string) string {
	h := sha256.Sum256([]byte(langPair(src, dst) + "\x00" + text))
	return "meddocs:tr:" + hex.EncodeToString(h[:])
}

func langPair(src, dst string) string {
	return src + ">" + dst
}
