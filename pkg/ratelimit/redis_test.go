// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLimiter(t *testing.T, rps, burst int64) *RedisLimiter {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := DefaultRedisConfig()
	cfg.Addr = srv.Addr()
	cfg.KeyTTL = time.Minute
	return newRedisLimiterWithClient(client, rps, burst, cfg)
}

func TestRedisLimiterAllowsWithinBurst(t *testing.T) {
	l := setupRedisLimiter(t, 10, 10)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := l.Allow(ctx, "user-1", 1)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be allowed", i)
	}

	d, err := l.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "request past the burst should be denied")
	assert.Positive(t, d.RetryAfter)
}

func TestRedisLimiterVariableCost(t *testing.T) {
	l := setupRedisLimiter(t, 100, 100)
	ctx := context.Background()

	d, err := l.Allow(ctx, "user-1", 60)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// 60 of 100 spent; another 60 does not fit.
	d, err = l.Allow(ctx, "user-1", 60)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = l.Allow(ctx, "user-1", 40)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiterReset(t *testing.T) {
	l := setupRedisLimiter(t, 1, 1)
	ctx := context.Background()

	d, err := l.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = l.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	require.NoError(t, l.Reset(ctx, "user-1"))

	d, err = l.Allow(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiterFailOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := DefaultRedisConfig()
	cfg.FailOpen = true
	l := newRedisLimiterWithClient(client, 10, 10, cfg)

	srv.Close() // redis goes away

	d, err := l.Allow(context.Background(), "user-1", 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "fail-open must admit the request")
}

func TestRedisLimiterFailClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := DefaultRedisConfig()
	cfg.FailOpen = false
	l := newRedisLimiterWithClient(client, 10, 10, cfg)

	srv.Close()

	_, err := l.Allow(context.Background(), "user-1", 1)
	require.Error(t, err)
}
