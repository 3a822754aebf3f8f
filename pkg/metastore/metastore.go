// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package metastore defines the relational boundary of the service:
// accounts, file records, and billing receipts. Implementations live
// in the postgres and memory subpackages.
package metastore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

var (
	// ErrAccountNotFound is returned when an owner has no account row.
	ErrAccountNotFound = errors.New("metastore: account not found")

	// ErrFileNotFound is returned when a file id does not exist or
	// belongs to a different owner.
	ErrFileNotFound = errors.New("metastore: file not found")

	// ErrDuplicateReceipt is returned when a billing receipt was
	// already applied. Receipts are single-use.
	ErrDuplicateReceipt = errors.New("metastore: receipt already applied")
)

// ListParams controls file listing pagination. Listing walks records
// newest first; Before is an exclusive created-at cursor, zero meaning
// start from the newest record.
type ListParams struct {
	Limit  int
	Before int64
}

// DefaultListLimit caps unbounded list requests.
const DefaultListLimit = 100

// Receipt records one applied billing receipt. The receipt id is the
// replay guard: applying the same id twice fails.
type Receipt struct {
	ReceiptID string
	OwnerID   string
	Plan      types.Plan
	AppliedAt int64
}

// DB is the metadata database interface.
//
// The account's storage_used_bytes counter is maintained by the
// database itself (triggers in postgres, mirrored arithmetic in
// memory): InsertFile and DeleteFile adjust it, nothing else does.
type DB interface {
	// GetAccount returns the owner's account row.
	GetAccount(ctx context.Context, ownerID string) (*types.Account, error)

	// EnsureAccount returns the owner's account, creating a free-plan
	// account on first contact.
	EnsureAccount(ctx context.Context, ownerID string) (*types.Account, error)

	// InsertFile persists one committed file record.
	InsertFile(ctx context.Context, rec *types.FileRecord) error

	// GetFile returns one of the owner's file records.
	GetFile(ctx context.Context, ownerID string, id uuid.UUID) (*types.FileRecord, error)

	// ListFiles returns the owner's records, newest first.
	ListFiles(ctx context.Context, ownerID string, p ListParams) ([]*types.FileRecord, error)

	// DeleteFile removes a record and returns it, so the caller can
	// clean up the record's blob objects.
	DeleteFile(ctx context.Context, ownerID string, id uuid.UUID) (*types.FileRecord, error)

	// ApplyReceipt atomically records a billing receipt and moves the
	// owner to the receipt's plan.
	ApplyReceipt(ctx context.Context, r Receipt) error

	// Close releases the underlying connections.
	Close() error
}
