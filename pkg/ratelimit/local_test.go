// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiterAllowsWithinBurst(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(10, 10)
	defer l.Close()

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

func TestLocalLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(1, 1)
	defer l.Close()

	ctx := context.Background()
	d, err := l.Allow(ctx, "user-a", 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// user-a is exhausted, user-b is not.
	d, err = l.Allow(ctx, "user-a", 1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = l.Allow(ctx, "user-b", 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	assert.Equal(t, 2, l.Len())
}

func TestLocalLimiterOversizedCostDenied(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(10, 5)
	defer l.Close()

	d, err := l.Allow(context.Background(), "user-1", 50)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// The failed oversized request must not poison the bucket.
	d, err = l.Allow(context.Background(), "user-1", 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLocalLimiterEvictsIdleBuckets(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(10, 10)
	defer l.Close()

	_, err := l.Allow(context.Background(), "stale", 1)
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())

	l.evictIdle(time.Now().Add(idleEvictAfter + time.Minute))
	assert.Zero(t, l.Len())
}

func TestNewDisabledReturnsPassThrough(t *testing.T) {
	t.Parallel()

	l, err := New(Config{Enabled: false})
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 1000; i++ {
		d, err := l.Allow(context.Background(), "anyone", 1)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Enabled: true, Backend: BackendLocal, RPS: 0})
	require.Error(t, err)

	_, err = New(Config{Enabled: true, Backend: "memcached", RPS: 10})
	require.Error(t, err)
}
