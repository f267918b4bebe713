package memo

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spaolacci/murmur3"

	"github.com/ghdlab/mapflow/pkg/common/errors"
)

// Cache stores map results by key. Implementations are safe for concurrent
// use by pool workers.
type Cache interface {
	// Get returns the value stored under key, or errors.ErrCacheMiss.
	Get(ctx context.Context, key string) (interface{}, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value interface{}) error
}

// Backend names accepted by Config.Backend.
const (
	BackendNone   = ""
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and configures a cache backend.
type Config struct {
	// Backend is "memory", "redis" or empty for no cache.
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=memory redis"`

	// Addr is the Redis address, host:port.
	Addr string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`

	// Password is the Redis password, if any.
	Password string `mapstructure:"redis_password"`

	// DB is the Redis database number.
	DB int `mapstructure:"redis_db" validate:"gte=0"`

	// Prefix namespaces every Redis key.
	Prefix string `mapstructure:"prefix"`

	// TTL bounds how long entries live. Zero keeps them forever.
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`

	// Timeout bounds each Redis round trip.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// DefaultConfig returns a config with no cache and sensible Redis settings
// for when one is enabled.
func DefaultConfig() Config {
	return Config{
		Prefix:  "mapflow",
		TTL:     24 * time.Hour,
		Timeout: 500 * time.Millisecond,
	}
}

// New builds the cache selected by config.Backend. It returns a nil Cache
// when no backend is configured.
func New(config Config) (Cache, error) {
	switch config.Backend {
	case BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryCache(config.TTL), nil
	case BackendRedis:
		if config.Addr == "" {
			return nil, errors.NewValidationError("memo", "redis_addr", config.Addr, "address is required for the redis backend")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
		return NewRedisCache(client, config), nil
	default:
		return nil, errors.NewValidationError("memo", "backend", config.Backend, "unknown cache backend").
			WithHint("use memory or redis")
	}
}

// Key derives a cache key for one map call from the processor namespace
// and the call's arguments. Arguments are hashed with murmur3 so keys stay
// short however large the values are.
func Key(namespace string, parts ...interface{}) string {
	h := murmur3.New128()
	for _, p := range parts {
		fmt.Fprintf(h, "%T:%v\x00", p, p)
	}
	hi, lo := h.Sum128()

	var sum [16]byte
	binary.BigEndian.PutUint64(sum[:8], hi)
	binary.BigEndian.PutUint64(sum[8:], lo)
	return namespace + ":" + hex.EncodeToString(sum[:])
}
