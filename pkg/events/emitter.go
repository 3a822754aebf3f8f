// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

// deliverTimeout bounds one publisher call so a stuck destination
// cannot wedge the dispatcher forever.
const deliverTimeout = 10 * time.Second

// defaultBufferSize is the dispatch queue capacity when none is configured.
const defaultBufferSize = 1024

// Emitter queues file lifecycle events for async delivery.
//
// Emit is fire-and-forget: events go onto a bounded channel and a
// dispatcher goroutine fans them out to the publishers in emission
// order. A full buffer drops the event rather than blocking the
// caller.
type Emitter struct {
	publishers []Publisher
	ch         chan *Event
	enabled    bool

	wg        sync.WaitGroup
	closeOnce sync.Once

	// Sequencer state - monotonic counter for event ordering
	sequencer atomic.Uint64
}

// EmitterConfig configures the event emitter.
type EmitterConfig struct {
	// Publishers receive every emitted event.
	// If empty, events are silently dropped.
	Publishers []Publisher

	// BufferSize is the dispatch queue capacity (default 1024).
	BufferSize int
}

// NewEmitter creates an event emitter and starts its dispatcher.
func NewEmitter(cfg EmitterConfig) *Emitter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	e := &Emitter{
		publishers: cfg.Publishers,
		enabled:    len(cfg.Publishers) > 0,
	}
	if !e.enabled {
		return e
	}

	e.ch = make(chan *Event, cfg.BufferSize)
	e.wg.Add(1)
	go e.dispatch()
	return e
}

// NoopEmitter returns an emitter that drops all events.
// Use this when event notifications are disabled.
func NoopEmitter() *Emitter {
	return &Emitter{enabled: false}
}

// Emit queues an event for delivery. Returns immediately; delivery is
// async via the dispatcher. Disabled emitters and full buffers drop
// the event.
func (e *Emitter) Emit(ctx context.Context, ev *Event) {
	if !e.enabled {
		EventsDroppedTotal.Inc()
		return
	}

	if ev.Sequencer == "" {
		ev.Sequencer = e.nextSequencer()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	select {
	case e.ch <- ev:
		EventsEmittedTotal.WithLabelValues(string(ev.Type)).Inc()
		EventsQueueDepth.Set(float64(len(e.ch)))
	default:
		EventsDroppedTotal.Inc()
		logger.Warn().
			Str("event", string(ev.Type)).
			Str("owner", ev.OwnerID).
			Msg("event buffer full, dropping event")
	}
}

// FileUploaded emits a file.uploaded event for a committed record.
func (e *Emitter) FileUploaded(ctx context.Context, rec *types.FileRecord) {
	e.Emit(ctx, &Event{
		Type:    EventFileUploaded,
		OwnerID: rec.OwnerID,
		FileID:  rec.ID.String(),
		Name:    rec.Name,
		Key:     rec.Key,
		Size:    rec.Size,
	})
}

// FileDeleted emits a file.deleted event.
func (e *Emitter) FileDeleted(ctx context.Context, rec *types.FileRecord) {
	e.Emit(ctx, &Event{
		Type:    EventFileDeleted,
		OwnerID: rec.OwnerID,
		FileID:  rec.ID.String(),
		Name:    rec.Name,
		Key:     rec.Key,
		Size:    rec.Size,
	})
}

// UploadFailed emits a file.upload_failed event.
func (e *Emitter) UploadFailed(ctx context.Context, ownerID, name, reason string) {
	e.Emit(ctx, &Event{
		Type:    EventUploadFailed,
		OwnerID: ownerID,
		Name:    name,
		Reason:  reason,
	})
}

// PlanChanged emits an account.plan_changed event.
func (e *Emitter) PlanChanged(ctx context.Context, ownerID string, plan types.Plan) {
	e.Emit(ctx, &Event{
		Type:    EventPlanChanged,
		OwnerID: ownerID,
		Plan:    string(plan),
	})
}

// dispatch drains the queue and fans events out to every publisher.
func (e *Emitter) dispatch() {
	defer e.wg.Done()

	for ev := range e.ch {
		EventsQueueDepth.Set(float64(len(e.ch)))

		data, err := json.Marshal(ev)
		if err != nil {
			EventsErrorsTotal.WithLabelValues("marshal").Inc()
			logger.Warn().
				Err(err).
				Str("event", string(ev.Type)).
				Msg("failed to marshal event")
			continue
		}

		for _, pub := range e.publishers {
			ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
			start := time.Now()
			err := pub.Publish(ctx, ev.OwnerID, data)
			cancel()
			EventsDeliveryDuration.WithLabelValues(pub.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				EventsDeliveryErrorsTotal.WithLabelValues(pub.Name()).Inc()
				logger.Warn().
					Err(err).
					Str("publisher", pub.Name()).
					Str("event", string(ev.Type)).
					Str("owner", ev.OwnerID).
					Msg("failed to publish event")
				continue
			}
			EventsDeliveredTotal.WithLabelValues(pub.Name()).Inc()
			logger.Debug().
				Str("publisher", pub.Name()).
				Str("event", string(ev.Type)).
				Str("owner", ev.OwnerID).
				Msg("delivered event")
		}
	}
}

// Close drains pending events, stops the dispatcher, and closes the
// publishers. Safe to call more than once.
func (e *Emitter) Close() error {
	if !e.enabled {
		return nil
	}

	e.closeOnce.Do(func() {
		close(e.ch)
	})
	e.wg.Wait()

	var lastErr error
	for _, pub := range e.publishers {
		if err := pub.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// IsEnabled returns whether the emitter is enabled.
func (e *Emitter) IsEnabled() bool {
	return e.enabled
}

// Stats contains emitter status information.
// Detailed metrics are exposed via Prometheus (zapdrive_events_*).
type Stats struct {
	Enabled    bool     `json:"enabled"`
	Publishers []string `json:"publishers,omitempty"`
	Queued     int      `json:"queued"`
}

// Stats returns emitter statistics.
func (e *Emitter) Stats() Stats {
	names := make([]string, 0, len(e.publishers))
	for _, p := range e.publishers {
		names = append(names, p.Name())
	}
	queued := 0
	if e.ch != nil {
		queued = len(e.ch)
	}
	return Stats{
		Enabled:    e.enabled,
		Publishers: names,
		Queued:     queued,
	}
}

// nextSequencer generates a unique, monotonically increasing sequencer value.
// Format: hex(timestamp_ms) + hex(counter) + random_suffix
func (e *Emitter) nextSequencer() string {
	ts := time.Now().UnixMilli()
	seq := e.sequencer.Add(1)

	// 4 bytes random suffix for uniqueness across processes
	suffix := make([]byte, 4)
	rand.Read(suffix)

	return hex.EncodeToString([]byte{
		byte(ts >> 40), byte(ts >> 32), byte(ts >> 24), byte(ts >> 16),
		byte(ts >> 8), byte(ts),
		byte(seq >> 8), byte(seq),
	}) + hex.EncodeToString(suffix)
}
