package memo

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghdlab/mapflow/pkg/common/errors"
)

// RedisCache is a Cache shared between processes through Redis. Values
// are stored as JSON, so a cached value comes back in its JSON form:
// numbers as json.Number, objects as map[string]interface{}.
type RedisCache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisCache wraps client. Prefix, TTL and Timeout are taken from
// config; the other fields are ignored.
func NewRedisCache(client redis.UniversalClient, config Config) *RedisCache {
	if config.Timeout == 0 {
		config.Timeout = 500 * time.Millisecond
	}
	return &RedisCache{
		client:  client,
		prefix:  config.Prefix,
		ttl:     config.TTL,
		timeout: config.Timeout,
	}
}

func (c *RedisCache) redisKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get returns the value stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.NewOperationError("memo", "get", err).WithContext(key)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, errors.NewOperationError("memo", "decode", err).WithContext(key)
	}
	return value, nil
}

// Set stores value under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewOperationError("memo", "encode", err).WithContext(key)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		return errors.NewOperationError("memo", "set", err).WithContext(key)
	}
	return nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
