// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides per-key request rate limiting for the API
// layer. Two backends are available: a local in-memory token-bucket
// limiter for single-instance deployments, and a Redis GCRA limiter
// that stays correct across multiple API instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter backend names.
const (
	BackendLocal = "local"
	BackendRedis = "redis"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int64         // tokens left after this request
	RetryAfter time.Duration // how long until the next token, when denied
}

// Limiter answers whether a keyed request may proceed. Keys are
// caller-chosen (user id, IP); cost allows weighted operations.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (Decision, error)
	Close() error
}

// Config selects and tunes the limiter backend.
type Config struct {
	// Enabled turns rate limiting on. Disabled yields a pass-through
	// limiter.
	Enabled bool `mapstructure:"enabled"`

	// Backend is "local" (default) or "redis".
	Backend string `mapstructure:"backend"`

	// RPS is the sustained allowance in requests per second per key.
	RPS int64 `mapstructure:"rps"`

	// Burst is the instantaneous allowance per key.
	Burst int64 `mapstructure:"burst"`

	// Redis holds the redis backend settings; ignored for local.
	Redis RedisConfig `mapstructure:"redis"`
}

// DefaultConfig returns the production defaults: local limiting at
// 50 rps with a 100-request burst per key.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Backend: BackendLocal,
		RPS:     50,
		Burst:   100,
		Redis:   DefaultRedisConfig(),
	}
}

// New builds the configured limiter.
func New(cfg Config) (Limiter, error) {
	if !cfg.Enabled {
		return noopLimiter{}, nil
	}
	if cfg.RPS <= 0 {
		return nil, fmt.Errorf("ratelimit: rps must be positive, got %d", cfg.RPS)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RPS
	}

	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalLimiter(cfg.RPS, cfg.Burst), nil
	case BackendRedis:
		return NewRedisLimiter(cfg.RPS, cfg.Burst, cfg.Redis)
	default:
		return nil, fmt.Errorf("ratelimit: unknown backend %q", cfg.Backend)
	}
}

// noopLimiter allows everything. Used when limiting is disabled.
type noopLimiter struct{}

func (noopLimiter) Allow(ctx context.Context, key string, cost int64) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (noopLimiter) Close() error { return nil }
