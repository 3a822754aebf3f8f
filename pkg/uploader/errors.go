// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChunkSize is returned when a plan is requested with a
	// non-positive chunk size. This is a caller bug, not a runtime fault.
	ErrInvalidChunkSize = errors.New("uploader: chunk size must be positive")

	// ErrInvalidFileSize is returned when a plan is requested for a
	// negative file size.
	ErrInvalidFileSize = errors.New("uploader: file size must not be negative")

	// ErrCancelled is returned when an upload stops because its
	// cancellation flag was set. Cancellation is a deliberate stop,
	// distinct from failure.
	ErrCancelled = errors.New("uploader: cancelled")

	// ErrSizeMismatch is returned when a chunk source produces a byte
	// count different from the planned chunk length.
	ErrSizeMismatch = errors.New("uploader: chunk size mismatch")
)

// Transport error kinds.
const (
	KindNetwork  = "network"  // connection-level failure, nothing durable happened
	KindRejected = "rejected" // the storage service refused the write
	KindTimeout  = "timeout"  // the attempt exceeded its deadline
	KindConflict = "conflict" // the key already exists and overwrite is not allowed
)

// TransportError describes a single failed chunk send attempt.
type TransportError struct {
	Kind string
	Key  string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport %s: key %s: %v", e.Kind, e.Key, e.Err)
	}
	return fmt.Sprintf("transport %s: key %s", e.Kind, e.Key)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed.
// Conflicts never resolve by retrying the same key.
func (e *TransportError) Retryable() bool {
	return e.Kind != KindConflict
}

// NewTransportError builds a TransportError for the given kind.
func NewTransportError(kind, key string, err error) *TransportError {
	return &TransportError{Kind: kind, Key: key, Err: err}
}

// ChunkError is the terminal failure of one chunk after its retry
// budget is exhausted (or after a non-retryable transport error).
// It always wraps the last underlying error.
type ChunkError struct {
	Index    int
	Key      string
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%s) failed after %d attempt(s): %v", e.Index, e.Key, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Preflight rejection reasons.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonInvalidFile     = "invalid_file"
	ReasonFileTooLarge    = "file_too_large"
	ReasonTypeNotAllowed  = "type_not_allowed"
	ReasonQuotaExceeded   = "quota_exceeded"
)

// PreflightError rejects a batch before any chunk is planned or sent.
type PreflightError struct {
	Reason string
	Detail string
}

func (e *PreflightError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("preflight rejected: %s", e.Reason)
	}
	return fmt.Sprintf("preflight rejected: %s: %s", e.Reason, e.Detail)
}

// IsPreflight reports whether err is a preflight rejection and returns it.
func IsPreflight(err error) (*PreflightError, bool) {
	var pe *PreflightError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
