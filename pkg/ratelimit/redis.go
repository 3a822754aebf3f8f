// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
)

// RedisConfig configures the redis limiter backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`

	// KeyPrefix namespaces limiter keys in a shared redis.
	KeyPrefix string `mapstructure:"key_prefix"`

	// KeyTTL expires abandoned limiter state.
	KeyTTL time.Duration `mapstructure:"key_ttl"`

	// FailOpen allows requests through when redis is unreachable.
	// Availability over strictness; the default for a consumer app.
	FailOpen bool `mapstructure:"fail_open"`
}

// DefaultRedisConfig returns the redis backend defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		PoolSize:  10,
		KeyPrefix: "zapdrive:ratelimit:",
		KeyTTL:    time.Hour,
		FailOpen:  true,
	}
}

// RedisLimiter implements distributed rate limiting with GCRA.
//
// GCRA tracks a "theoretical arrival time" (TAT) per key: each granted
// request moves the TAT forward by one emission interval, and a request
// is allowed while the TAT stays within the burst window. The Lua
// script keeps the read-modify-write atomic, so concurrent API
// instances cannot double-spend tokens.
type RedisLimiter struct {
	client *redis.Client
	cfg    RedisConfig
	rps    int64
	burst  int64
}

// gcraScript returns {allowed (0|1), remaining tokens, retry-after ms}.
var gcraScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])        -- current time, microseconds
local burst = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])       -- tokens per second
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])        -- seconds

local emission_interval = 1000000 / rate
local burst_offset = burst * emission_interval

local tat = redis.call("GET", key)
if tat then
    tat = tonumber(tat)
else
    tat = now
end

local new_tat = tat + (cost * emission_interval)
local allow_at = now + burst_offset

if new_tat > allow_at then
    local remaining = math.max(0, math.floor((allow_at - tat) / emission_interval))
    local retry_after = math.ceil((tat - now) / 1000)
    return {0, remaining, retry_after}
end

if tat < now then
    new_tat = now + (cost * emission_interval)
end

redis.call("SET", key, new_tat, "EX", ttl)

local remaining = math.max(0, math.floor((allow_at - new_tat) / emission_interval))
local retry_after = math.ceil((new_tat - now) / 1000)
return {1, remaining, retry_after}
`)

// NewRedisLimiter connects to redis and verifies the connection.
func NewRedisLimiter(rps, burst int64, cfg RedisConfig) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ratelimit: redis connection failed: %w", err)
	}

	return newRedisLimiterWithClient(client, rps, burst, cfg), nil
}

// newRedisLimiterWithClient wires an existing client; used by tests.
func newRedisLimiterWithClient(client *redis.Client, rps, burst int64, cfg RedisConfig) *RedisLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "zapdrive:ratelimit:"
	}
	if cfg.KeyTTL < time.Second {
		cfg.KeyTTL = time.Hour
	}
	return &RedisLimiter{client: client, cfg: cfg, rps: rps, burst: burst}
}

// Allow checks whether key may spend cost tokens.
func (r *RedisLimiter) Allow(ctx context.Context, key string, cost int64) (Decision, error) {
	fullKey := r.cfg.KeyPrefix + key
	now := time.Now().UnixMicro()
	ttlSeconds := int64(r.cfg.KeyTTL.Seconds())

	vals, err := gcraScript.Run(ctx, r.client, []string{fullKey},
		now, r.burst, r.rps, cost, ttlSeconds,
	).Int64Slice()
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("ratelimit: redis check failed")
		if r.cfg.FailOpen {
			return Decision{Allowed: true, Remaining: r.burst}, nil
		}
		return Decision{}, err
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Reset clears key's limiter state.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.cfg.KeyPrefix+key).Err()
}

// Close closes the redis connection.
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
