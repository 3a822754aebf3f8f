// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"context"
	"errors"
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/utils"
)

// Receipt summarizes one chunk's successful delivery.
type Receipt struct {
	Attempts int
	Elapsed  time.Duration
	Bytes    int64
}

// RetryGovernor wraps a Transport with a bounded retry budget,
// per-attempt timeouts, and jittered exponential backoff. The
// governor is the only retry layer in the pipeline.
type RetryGovernor struct {
	transport   Transport
	maxAttempts int
	timeout     time.Duration
	base        time.Duration
}

// NewRetryGovernor builds a governor around transport. maxAttempts
// includes the first try and must be at least 1.
func NewRetryGovernor(transport Transport, maxAttempts int, perAttemptTimeout, baseBackoff time.Duration) *RetryGovernor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryGovernor{
		transport:   transport,
		maxAttempts: maxAttempts,
		timeout:     perAttemptTimeout,
		base:        baseBackoff,
	}
}

// Send delivers one chunk, retrying failed attempts until the budget
// is exhausted. The task's cancellation flag is polled before every
// attempt, so a cancelled task stops between attempts rather than
// starting new ones. A timed-out attempt consumes budget like any
// other failure. The terminal error is a *ChunkError wrapping the
// last attempt's failure; it is never swallowed.
func (g *RetryGovernor) Send(ctx context.Context, task *Task, chunk Chunk, data []byte) (Receipt, error) {
	start := time.Now()
	crc := chunkCRC(data)

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if task.Cancelled() {
			return Receipt{}, ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return Receipt{}, err
		}

		if attempt > 0 {
			chunkRetriesTotal.Inc()
			if !g.sleep(ctx, g.backoff(attempt-1)) {
				return Receipt{}, ctx.Err()
			}
			// The flag may have been raised while backing off.
			if task.Cancelled() {
				return Receipt{}, ErrCancelled
			}
		}

		attemptStart := time.Now()
		err := g.attempt(ctx, chunk, data, task.ContentType, crc)
		chunkSendDuration.Observe(time.Since(attemptStart).Seconds())
		if err == nil {
			return Receipt{
				Attempts: attempt + 1,
				Elapsed:  time.Since(start),
				Bytes:    chunk.Length,
			}, nil
		}
		lastErr = err

		var te *TransportError
		if errors.As(err, &te) && !te.Retryable() {
			logger.Warn().
				Err(err).
				Str("key", chunk.Key).
				Int("chunk", chunk.Index).
				Msg("uploader: unretryable send failure")
			return Receipt{}, &ChunkError{Index: chunk.Index, Key: chunk.Key, Attempts: attempt + 1, Err: err}
		}

		logger.Debug().
			Err(err).
			Str("key", chunk.Key).
			Int("chunk", chunk.Index).
			Int("attempt", attempt+1).
			Int("max_attempts", g.maxAttempts).
			Msg("uploader: send attempt failed")
	}

	return Receipt{}, &ChunkError{Index: chunk.Index, Key: chunk.Key, Attempts: g.maxAttempts, Err: lastErr}
}

// attempt performs exactly one send under the per-attempt deadline and
// normalizes the failure into the transport error taxonomy.
func (g *RetryGovernor) attempt(ctx context.Context, chunk Chunk, data []byte, contentType string, crc uint64) error {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if g.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := g.transport.Send(attemptCtx, SendRequest{
		Key:            chunk.Key,
		Data:           data,
		ContentType:    contentType,
		CRC64:          crc,
		AllowOverwrite: chunk.Index == 0,
	})
	if err == nil {
		return nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return NewTransportError(KindTimeout, chunk.Key, err)
	}
	return NewTransportError(KindNetwork, chunk.Key, err)
}

// backoff returns the jittered delay after failed attempt k:
// base*2^k, jittered by up to one base unit in either direction.
func (g *RetryGovernor) backoff(k int) time.Duration {
	if g.base <= 0 {
		return 0
	}
	if k > 30 {
		k = 30
	}
	d := g.base << uint(k)
	return utils.Jitter(d, 1/float64(int64(1)<<uint(k)))
}

func (g *RetryGovernor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
