// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events to Redis Pub/Sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string // Channel prefix (e.g., "drive:events")
}

// RedisConfig configures the Redis publisher.
type RedisConfig struct {
	// Enabled turns the Redis publisher on.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the Redis server address (e.g., "localhost:6379").
	Addr string `mapstructure:"addr"`

	// Password is the Redis password (optional).
	Password string `mapstructure:"password"`

	// DB is the Redis database number (default 0).
	DB int `mapstructure:"db"`

	// Channel is the Pub/Sub channel prefix (default "drive:events").
	// Events are published to "{channel}:{owner}".
	Channel string `mapstructure:"channel"`

	// DialTimeout is the connection timeout (default 5s).
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// ReadTimeout is the read timeout (default 3s).
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the write timeout (default 3s).
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Channel:      "drive:events",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisPublisher creates a new Redis publisher.
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	if cfg.Channel == "" {
		cfg.Channel = "drive:events"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Str("channel", cfg.Channel).
		Msg("redis event publisher connected")

	return &RedisPublisher{
		client:  client,
		channel: cfg.Channel,
	}, nil
}

// Name returns the publisher identifier.
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Publish sends an event to Redis Pub/Sub.
// Events are published to the channel "{prefix}:{owner}".
func (p *RedisPublisher) Publish(ctx context.Context, ownerID string, event []byte) error {
	channel := fmt.Sprintf("%s:%s", p.channel, ownerID)

	result := p.client.Publish(ctx, channel, event)
	if err := result.Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	logger.Debug().
		Str("channel", channel).
		Int64("subscribers", result.Val()).
		Msg("published event to redis")

	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
