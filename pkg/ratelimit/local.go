// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleEvictAfter is how long an unused key's bucket survives before
// the sweeper removes it.
const idleEvictAfter = 10 * time.Minute

// sweepInterval is how often idle buckets are collected.
const sweepInterval = 5 * time.Minute

// LocalLimiter keeps one token bucket per key in process memory.
// Suitable for a single API instance; a multi-instance deployment
// should use the redis backend so all instances share state.
type LocalLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh chan struct{}
	done   sync.WaitGroup
	once   sync.Once
}

type bucket struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

// NewLocalLimiter creates a local limiter and starts its idle-bucket
// sweeper.
func NewLocalLimiter(rps, burst int64) *LocalLimiter {
	l := &LocalLimiter{
		rps:     rate.Limit(rps),
		burst:   int(burst),
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	l.done.Add(1)
	go l.sweep()
	return l
}

// Allow consumes cost tokens from key's bucket if available.
func (l *LocalLimiter) Allow(ctx context.Context, key string, cost int64) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastUsed = now
	l.mu.Unlock()

	// Oversized costs can never be satisfied; deny instead of jamming
	// the bucket with an unfillable reservation.
	if cost > int64(l.burst) {
		return Decision{Allowed: false, RetryAfter: time.Second}, nil
	}

	res := b.lim.ReserveN(now, int(cost))
	if !res.OK() {
		return Decision{Allowed: false, RetryAfter: time.Second}, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: int64(b.lim.TokensAt(now)),
	}, nil
}

// Close stops the sweeper. Outstanding buckets are dropped.
func (l *LocalLimiter) Close() error {
	l.once.Do(func() { close(l.stopCh) })
	l.done.Wait()
	return nil
}

// Len returns the number of live buckets. Exposed for tests and the
// debug endpoint.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *LocalLimiter) sweep() {
	defer l.done.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case now := <-ticker.C:
			l.evictIdle(now)
		}
	}
}

func (l *LocalLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastUsed) > idleEvictAfter {
			delete(l.buckets, key)
		}
	}
}
