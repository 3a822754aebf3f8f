// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
	"github.com/LeeDigitalWorks/zapdrive/pkg/utils"
)

// ErrBatchStopped marks files skipped because an earlier file in the
// batch failed and StopOnError is set.
var ErrBatchStopped = errors.New("uploader: batch stopped after earlier failure")

// AccountStore provides the quota snapshot read during preflight.
type AccountStore interface {
	GetAccount(ctx context.Context, ownerID string) (*types.Account, error)
}

// MetaStore is the metadata surface the pipeline needs.
type MetaStore interface {
	AccountStore
	RecordStore
}

// EventSink receives notifications after successful commits. Delivery
// is best-effort and must not block the upload path.
type EventSink interface {
	FileUploaded(ctx context.Context, rec *types.FileRecord)
}

// File describes one file of an upload batch.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        io.ReaderAt
	ContentHash string // optional hex SHA-256 of the source bytes
}

// Result is the per-file outcome of a batch.
type Result struct {
	FileID uuid.UUID
	Name   string
	Status Status
	Record *types.FileRecord
	Err    error
}

// Deps wires the pipeline to its backends.
type Deps struct {
	Transport Transport
	Meta      MetaStore
	Resolver  URLResolver
	Events    EventSink    // optional
	Observer  ProgressFunc // optional
}

// batchFlag is the shared cancellation flag of one batch generation.
// Concurrent batches of the same owner share a generation; once every
// batch of the generation finishes, the next batch starts fresh, so a
// past cancellation never leaks into future uploads.
type batchFlag struct {
	flag *atomic.Bool
	refs int
}

// Uploader runs upload batches end to end: preflight, planning,
// scheduling, and finalization. Files within a batch are processed
// strictly sequentially; concurrency exists only at the chunk level.
type Uploader struct {
	cfg      Config
	sched    *Scheduler
	fin      *Finalizer
	accounts AccountStore
	events   EventSink
	observer ProgressFunc

	mu     sync.Mutex
	active map[string]*batchFlag
	clock  keyClock
}

// New validates the configuration and assembles the pipeline.
func New(cfg Config, deps Deps) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("uploader config: %w", err)
	}
	if deps.Transport == nil {
		return nil, errors.New("uploader: transport is required")
	}
	if deps.Meta == nil {
		return nil, errors.New("uploader: meta store is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("uploader: url resolver is required")
	}

	governor := NewRetryGovernor(deps.Transport, cfg.MaxAttempts, cfg.PerAttemptTimeout, cfg.BaseBackoff)
	return &Uploader{
		cfg:      cfg,
		sched:    NewScheduler(governor, cfg),
		fin:      NewFinalizer(deps.Resolver, deps.Meta),
		accounts: deps.Meta,
		events:   deps.Events,
		observer: deps.Observer,
		active:   make(map[string]*batchFlag),
	}, nil
}

// Upload runs one batch for ownerID. Preflight failures reject the
// whole batch before any chunk is planned or sent; afterwards every
// file gets its own terminal status and the batch error stays nil.
func (u *Uploader) Upload(ctx context.Context, ownerID string, files []File) ([]Result, error) {
	if len(files) == 0 {
		return nil, nil
	}

	if err := u.preflight(ctx, ownerID, files); err != nil {
		logger.Warn().
			Err(err).
			Str("owner_id", ownerID).
			Int("files", len(files)).
			Msg("uploader: batch rejected")
		return nil, err
	}

	flag := u.acquireBatch(ownerID)
	defer u.releaseBatch(ownerID)

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}
	logger.Info().
		Str("owner_id", ownerID).
		Int("files", len(files)).
		Int64("bytes", totalBytes).
		Msg("uploader: batch started")

	results := make([]Result, len(files))
	stopped := false
	for i, f := range files {
		name := utils.NormalizeFilename(f.Name)
		results[i].Name = name

		if stopped {
			results[i].Status = StatusFailed
			results[i].Err = ErrBatchStopped
			continue
		}
		if flag.Load() {
			// Files not yet started report cancelled.
			results[i].Status = StatusCancelled
			results[i].Err = ErrCancelled
			continue
		}

		results[i] = u.uploadOne(ctx, ownerID, f, name, flag)
		uploadsFinishedTotal.WithLabelValues(string(results[i].Status)).Inc()

		if results[i].Status == StatusFailed && u.cfg.StopOnError {
			stopped = true
		}
	}

	return results, nil
}

// Cancel raises the cancellation flag of ownerID's in-flight batch.
// It is idempotent and returns false when no batch is active. Chunk
// attempts already in flight settle before their tasks stop.
func (u *Uploader) Cancel(ownerID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	bf, ok := u.active[ownerID]
	if !ok {
		return false
	}
	bf.flag.Store(true)
	return true
}

// preflight validates identity, per-file limits, and the quota
// snapshot before anything is planned or sent. The quota check reads
// the account once: a concurrent upload can still win the race, which
// is accepted, and the database remains the final arbiter of usage.
func (u *Uploader) preflight(ctx context.Context, ownerID string, files []File) error {
	if ownerID == "" {
		return &PreflightError{Reason: ReasonUnauthenticated}
	}

	var pending int64
	for _, f := range files {
		if f.Size < 0 || f.Data == nil {
			return &PreflightError{
				Reason: ReasonInvalidFile,
				Detail: fmt.Sprintf("%s: missing data or negative size", f.Name),
			}
		}
		if f.Size > u.cfg.MaxFileSizeBytes {
			return &PreflightError{
				Reason: ReasonFileTooLarge,
				Detail: fmt.Sprintf("%s is %d bytes, limit is %d", f.Name, f.Size, u.cfg.MaxFileSizeBytes),
			}
		}
		if !u.cfg.TypeAllowed(f.ContentType, utils.FileExt(f.Name)) {
			return &PreflightError{
				Reason: ReasonTypeNotAllowed,
				Detail: fmt.Sprintf("%s: %s", f.Name, f.ContentType),
			}
		}
		pending += f.Size
	}

	acct, err := u.accounts.GetAccount(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", ownerID, err)
	}
	if !acct.CanStore(pending) {
		return &PreflightError{
			Reason: ReasonQuotaExceeded,
			Detail: fmt.Sprintf("%d bytes pending, %d of %d used", pending, acct.StorageUsedBytes, acct.StorageLimitBytes),
		}
	}

	return nil
}

// uploadOne runs a single file through plan, schedule, and commit.
func (u *Uploader) uploadOne(ctx context.Context, ownerID string, f File, name string, flag *atomic.Bool) Result {
	baseKey := BaseKey(ownerID, utils.FileExt(name), u.nextKeyTime())
	chunks, err := Plan(f.Size, u.cfg.ChunkSizeBytes, baseKey)
	if err != nil {
		return Result{Name: name, Status: StatusFailed, Err: fmt.Errorf("plan %s: %w", name, err)}
	}

	task := NewTask(name, f.Size, f.ContentType, len(chunks), flag)
	if u.observer != nil {
		task.Observe(u.observer)
	}

	if err := u.sched.Run(ctx, task, chunks, f.Data); err != nil {
		logger.Warn().
			Err(err).
			Str("owner_id", ownerID).
			Str("file", name).
			Str("status", string(task.Status())).
			Msg("uploader: file upload did not complete")
		return Result{FileID: task.ID, Name: name, Status: task.Status(), Err: err}
	}

	rec, err := u.fin.Commit(ctx, task, chunks, ownerID, f.ContentHash)
	if err != nil {
		task.finish(StatusFailed)
		logger.Error().
			Err(err).
			Str("owner_id", ownerID).
			Str("file", name).
			Msg("uploader: finalize failed")
		return Result{FileID: task.ID, Name: name, Status: StatusFailed, Err: err}
	}
	task.finish(StatusComplete)

	logger.Info().
		Str("owner_id", ownerID).
		Str("file", name).
		Str("key", rec.Key).
		Int64("size", rec.Size).
		Int("chunks", rec.ChunkCount).
		Msg("uploader: file uploaded")

	if u.events != nil {
		u.events.FileUploaded(ctx, rec)
	}

	return Result{FileID: task.ID, Name: name, Status: StatusComplete, Record: rec}
}

func (u *Uploader) nextKeyTime() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.clock.next(time.Now())
}

func (u *Uploader) acquireBatch(ownerID string) *atomic.Bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	bf, ok := u.active[ownerID]
	if !ok {
		bf = &batchFlag{flag: new(atomic.Bool)}
		u.active[ownerID] = bf
	}
	bf.refs++
	return bf.flag
}

func (u *Uploader) releaseBatch(ownerID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	bf, ok := u.active[ownerID]
	if !ok {
		return
	}
	bf.refs--
	if bf.refs <= 0 {
		delete(u.active, ownerID)
	}
}
