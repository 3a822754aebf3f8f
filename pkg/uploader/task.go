// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an upload task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is an end state. Terminal
// statuses never transition again.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled || s == StatusFailed
}

// Progress is a read-only snapshot of an upload task. Percent and the
// counters it derives from only ever increase; a completed task
// reports exactly 100.
type Progress struct {
	FileID          uuid.UUID
	Name            string
	Status          Status
	CompletedChunks int
	TotalChunks     int
	BytesSent       int64
	TotalBytes      int64
	Percent         float64
	Throughput      float64 // bytes per second
	Elapsed         time.Duration
}

// ProgressFunc receives a snapshot after every chunk completion.
// Calls are serialized by the task; the callback must not call back
// into the task.
type ProgressFunc func(Progress)

// Task tracks one file upload from planning to its terminal state.
// Counter updates happen only inside the task's mutex, so concurrent
// chunk completions cannot reorder or lose progress.
type Task struct {
	ID          uuid.UUID
	Name        string
	Size        int64
	ContentType string
	TotalChunks int

	// cancel is shared by all tasks of a batch: cancelling a batch
	// stops every file in it, and only that batch.
	cancel *atomic.Bool

	mu        sync.Mutex
	status    Status
	completed int
	bytesSent int64
	startedAt time.Time
	endedAt   time.Time
	observer  ProgressFunc
}

// NewTask builds a pending task for one planned file. The cancel flag
// is shared across a batch; pass a fresh one for standalone use.
func NewTask(name string, size int64, contentType string, totalChunks int, cancel *atomic.Bool) *Task {
	if cancel == nil {
		cancel = new(atomic.Bool)
	}
	return &Task{
		ID:          uuid.New(),
		Name:        name,
		Size:        size,
		ContentType: contentType,
		TotalChunks: totalChunks,
		cancel:      cancel,
		status:      StatusPending,
	}
}

// Observe registers the progress callback. Must be set before Start.
func (t *Task) Observe(fn ProgressFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = fn
}

// Start moves the task from pending to uploading. Calling Start on a
// task that already left pending is a no-op.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return
	}
	t.status = StatusUploading
	t.startedAt = time.Now()
}

// Cancel raises the task's cancellation flag. It is safe to call from
// any goroutine and at any time; repeated calls have no further
// effect. The flag is honored at dispatch and between retry attempts,
// while attempts already in flight settle naturally.
func (t *Task) Cancel() {
	t.cancel.Store(true)
}

// Cancelled reports whether the cancellation flag is raised.
func (t *Task) Cancelled() bool {
	return t.cancel.Load()
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Snapshot returns the current progress.
func (t *Task) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progressLocked()
}

// markChunkDone records one successfully stored chunk and notifies the
// observer with the resulting snapshot.
func (t *Task) markChunkDone(c Chunk) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	t.bytesSent += c.Length

	if t.observer != nil {
		t.observer(t.progressLocked())
	}
}

// finish moves the task into a terminal state. The first terminal
// transition wins; later calls return false and change nothing.
func (t *Task) finish(s Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return false
	}
	t.status = s
	t.endedAt = time.Now()
	return true
}

func (t *Task) progressLocked() Progress {
	p := Progress{
		FileID:          t.ID,
		Name:            t.Name,
		Status:          t.status,
		CompletedChunks: t.completed,
		TotalChunks:     t.TotalChunks,
		BytesSent:       t.bytesSent,
		TotalBytes:      t.Size,
	}
	if t.TotalChunks > 0 {
		p.Percent = float64(t.completed) / float64(t.TotalChunks) * 100
	}
	if !t.startedAt.IsZero() {
		end := t.endedAt
		if end.IsZero() {
			end = time.Now()
		}
		p.Elapsed = end.Sub(t.startedAt)
		if secs := p.Elapsed.Seconds(); secs > 0 {
			p.Throughput = float64(t.bytesSent) / secs
		}
	}
	return p
}
