package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// keyPrefix namespaces every key this store touches, so Purge can safely
// scan-and-delete without disturbing other tenants of a shared Redis.
const keyPrefix = "bioterms:"

// RedisStore is the primary cache backend.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials dsn (a redis:// URL) as the primary cache backend.
func NewRedisStore(dsn string) (*RedisStore, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "invalid redis dsn", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to connect to redis cache", err)
	}
	logging.Cache("redis cache store connected")
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return model.NewError(model.ErrTransientStore, "failed to set cache key "+key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, model.NewError(model.ErrTransientStore, "failed to get cache key "+key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return model.NewError(model.ErrTransientStore, "failed to delete cache key "+key, err)
	}
	return nil
}

// Purge scans for every key under keyPrefix and deletes them in batches,
// deliberately avoiding FLUSHDB since the Redis instance may be shared.
func (s *RedisStore) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return model.NewError(model.ErrTransientStore, "failed to scan cache keys for purge", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return model.NewError(model.ErrTransientStore, "failed to delete cache keys during purge", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	logging.Cache("cache purged")
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
