package cache

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps values under `/<prefix>/cache/<key>` with a native
// expiry, so every process behind the same Redis shares quotes.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client *redis.Client, prefix string) Store {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return client, nil
}

func (r *redisStore) key(k string) string {
	return path.Join("/", r.prefix, "cache", k)
}

func (r *redisStore) Get(ctx context.Context, key string, out any) (bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to get cached value from Redis")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrapf(err, "failed to decode cached value for %s", key)
	}
	return true, nil
}

func (r *redisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache value")
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store cached value in Redis")
	}
	return nil
}
