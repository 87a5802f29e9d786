package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hunterwarburton/tokenlens/internal/core"
)

const (
	metaKeyPrefix = "tokenlens:meta"
	defaultTTL    = 24 * time.Hour
)

// RedisConfig holds connection settings for the shared tier.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is the optional cross-process metadata tier.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects and verifies the server with a PING.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisFromClient(client, cfg.TTL), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{rdb: client, ttl: ttl}
}

func metaKey(address string) string {
	return fmt.Sprintf("%s:%s", metaKeyPrefix, address)
}

// Get returns nil, nil on a miss.
func (r *Redis) Get(ctx context.Context, address string) (*core.TokenMetadata, error) {
	raw, err := r.rdb.Get(ctx, metaKey(address)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	var md core.TokenMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("decode cached metadata for %s: %w", address, err)
	}
	return &md, nil
}

// Set stores md under its address with the configured TTL.
func (r *Redis) Set(ctx context.Context, md *core.TokenMetadata) error {
	if md == nil || md.Address == "" {
		return errors.New("cannot store metadata without an address")
	}
	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", md.Address, err)
	}
	return r.rdb.Set(ctx, metaKey(md.Address), data, r.ttl).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
