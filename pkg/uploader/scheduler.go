// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
)

// Scheduler drives one task's planned chunks through the retry
// governor under a dispatch policy.
//
// All three policies share the same guarantees: the cancellation flag
// is consulted before every dispatch, attempts already in flight are
// allowed to settle, counter updates stay serialized, and Run returns
// only after every dispatched chunk has settled. A task completes
// only when every chunk succeeded.
type Scheduler struct {
	governor *RetryGovernor
	policy   string
	width    int
	limiter  *rate.Limiter
}

// NewScheduler builds a scheduler from the pipeline configuration.
func NewScheduler(governor *RetryGovernor, cfg Config) *Scheduler {
	s := &Scheduler{
		governor: governor,
		policy:   cfg.Policy,
		width:    cfg.MaxConcurrentUploads,
	}
	if s.width < 1 {
		s.width = 1
	}
	if cfg.MaxBytesPerSec > 0 {
		// Burst must fit the largest single reservation, which is one
		// full chunk.
		burst := int(cfg.ChunkSizeBytes)
		if burst < cfg.MaxBytesPerSec {
			burst = cfg.MaxBytesPerSec
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxBytesPerSec), burst)
	}
	return s
}

// Run uploads all chunks. A nil return means every chunk was stored;
// the task is then still uploading, because completion is decided by
// the caller after the file record is committed. On cancellation or
// failure Run moves the task to its terminal state itself.
func (s *Scheduler) Run(ctx context.Context, task *Task, chunks []Chunk, src io.ReaderAt) error {
	task.Start()
	uploadsStartedTotal.Inc()

	var err error
	switch s.policy {
	case PolicySequential:
		err = s.runSequential(ctx, task, chunks, src)
	case PolicyFixedBatch:
		err = s.runFixedBatch(ctx, task, chunks, src)
	default:
		err = s.runSlidingWindow(ctx, task, chunks, src)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		task.finish(StatusCancelled)
	default:
		task.finish(StatusFailed)
	}
	return err
}

// dispatch reads, throttles, and sends a single chunk, then records
// its completion on the task.
func (s *Scheduler) dispatch(ctx context.Context, task *Task, c Chunk, src io.ReaderAt) error {
	data, release, err := readChunk(src, c)
	if err != nil {
		return err
	}
	defer release()

	if s.limiter != nil && len(data) > 0 {
		if err := s.limiter.WaitN(ctx, len(data)); err != nil {
			return err
		}
	}

	inflightChunks.Inc()
	receipt, err := s.governor.Send(ctx, task, c, data)
	inflightChunks.Dec()
	if err != nil {
		return err
	}

	task.markChunkDone(c)
	chunksSentTotal.Inc()
	bytesSentTotal.Add(float64(receipt.Bytes))
	return nil
}

// runSequential sends one chunk at a time. The first failure aborts
// the remainder of the file.
func (s *Scheduler) runSequential(ctx context.Context, task *Task, chunks []Chunk, src io.ReaderAt) error {
	for _, c := range chunks {
		if task.Cancelled() {
			return ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.dispatch(ctx, task, c, src); err != nil {
			return err
		}
	}
	return nil
}

// runFixedBatch sends chunks in waves of the configured width. A wave
// must fully settle before the next one starts. A wave that loses
// more than half its chunks aborts the file; smaller failure counts
// let later waves proceed so one straggler cannot kill a large file,
// though any failure still fails the task at the end.
func (s *Scheduler) runFixedBatch(ctx context.Context, task *Task, chunks []Chunk, src io.ReaderAt) error {
	var allErrs []error

	for start := 0; start < len(chunks); start += s.width {
		end := start + s.width
		if end > len(chunks) {
			end = len(chunks)
		}
		wave := chunks[start:end]

		results := make(chan error, len(wave))
		launched := 0
		for _, c := range wave {
			if task.Cancelled() {
				break
			}
			launched++
			go func(c Chunk) {
				results <- s.dispatch(ctx, task, c, src)
			}(c)
		}

		waveErrs := s.collect(results, launched, &allErrs)

		if task.Cancelled() {
			return ErrCancelled
		}
		if waveErrs > len(wave)/2 {
			logger.Warn().
				Int("wave_size", len(wave)).
				Int("failures", waveErrs).
				Str("task_id", task.ID.String()).
				Msg("uploader: wave failure threshold exceeded")
			return fmt.Errorf("wave of %d chunks had %d failures: %w", len(wave), waveErrs, errors.Join(allErrs...))
		}
	}

	if len(allErrs) > 0 {
		return fmt.Errorf("%d chunk(s) failed: %w", len(allErrs), errors.Join(allErrs...))
	}
	return nil
}

// runSlidingWindow keeps at most width chunks in flight and admits the
// next chunk as soon as one settles. Failures are evaluated over
// settled generations of window size; a generation that loses more
// than half its chunks stops further admission.
func (s *Scheduler) runSlidingWindow(ctx context.Context, task *Task, chunks []Chunk, src io.ReaderAt) error {
	sem := make(chan struct{}, s.width)
	results := make(chan error, len(chunks))

	var (
		launched   int
		settled    int
		genSettled int
		genFailed  int
		stopped    bool
		allErrs    []error
	)

	handle := func(err error) {
		settled++
		genSettled++
		if err != nil && !errors.Is(err, ErrCancelled) {
			genFailed++
			allErrs = append(allErrs, err)
		}
		if genSettled >= s.width {
			if genFailed > s.width/2 {
				stopped = true
				logger.Warn().
					Int("window", s.width).
					Int("failures", genFailed).
					Str("task_id", task.ID.String()).
					Msg("uploader: window failure threshold exceeded")
			}
			genSettled = 0
			genFailed = 0
		}
	}

admission:
	for _, c := range chunks {
		for {
			if task.Cancelled() || stopped || ctx.Err() != nil {
				break admission
			}
			select {
			case err := <-results:
				handle(err)
			case sem <- struct{}{}:
				launched++
				go func(c Chunk) {
					defer func() { <-sem }()
					results <- s.dispatch(ctx, task, c, src)
				}(c)
				continue admission
			case <-ctx.Done():
				break admission
			}
		}
	}

	// Let everything in flight settle before reporting.
	for settled < launched {
		handle(<-results)
	}

	switch {
	case task.Cancelled():
		return ErrCancelled
	case ctx.Err() != nil:
		return ctx.Err()
	case stopped:
		return fmt.Errorf("window failure threshold exceeded: %w", errors.Join(allErrs...))
	case len(allErrs) > 0:
		return fmt.Errorf("%d chunk(s) failed: %w", len(allErrs), errors.Join(allErrs...))
	}
	return nil
}

// collect drains n results, appending failures to allErrs, and returns
// how many of them failed. Cancellation surfacing through a dispatch
// is not a chunk failure.
func (s *Scheduler) collect(results <-chan error, n int, allErrs *[]error) int {
	failures := 0
	for i := 0; i < n; i++ {
		if err := <-results; err != nil && !errors.Is(err, ErrCancelled) {
			failures++
			*allErrs = append(*allErrs, err)
		}
	}
	return failures
}
