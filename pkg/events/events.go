// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package events provides file lifecycle event notifications.
//
// The Emitter queues events on a bounded channel and a dispatcher
// goroutine delivers them to the configured publishers (log, Redis
// Pub/Sub, Kafka). Emission never blocks the upload path: when the
// buffer is full the event is dropped and counted.
package events

import "context"

// EventType categorizes file lifecycle events.
type EventType string

const (
	EventFileUploaded EventType = "file.uploaded"
	EventFileDeleted  EventType = "file.deleted"
	EventUploadFailed EventType = "file.upload_failed"
	EventPlanChanged  EventType = "account.plan_changed"
)

// Event is one file lifecycle notification. Owner-scoped consumers
// (sync clients, push gateways) subscribe per owner id.
type Event struct {
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	FileID    string    `json:"file_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Key       string    `json:"key,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Plan      string    `json:"plan,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Sequencer string    `json:"sequencer"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds
}

// Publisher is the interface for event notification backends.
type Publisher interface {
	// Name returns the publisher identifier (e.g., "redis", "kafka").
	Name() string

	// Publish sends an event to the configured destination. The owner
	// id is the routing key: Redis channels and Kafka partitions are
	// derived from it so one owner's events stay ordered.
	Publish(ctx context.Context, ownerID string, event []byte) error

	// Close cleanly shuts down the publisher.
	Close() error
}
