// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import "context"

// SendRequest carries one chunk to the storage backend.
type SendRequest struct {
	Key         string
	Data        []byte
	ContentType string
	CRC64       uint64

	// AllowOverwrite permits replacing an existing object at Key. Only
	// the first chunk of a file may overwrite: a re-upload after a
	// partial failure legitimately rewrites it. Every other chunk must
	// fail with a conflict rather than silently replace data.
	AllowOverwrite bool
}

// Transport performs exactly one delivery attempt per Send call.
// Retry policy lives entirely in the RetryGovernor; implementations
// must not retry internally. Failures are reported as *TransportError
// so callers can classify them.
type Transport interface {
	Send(ctx context.Context, req SendRequest) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req SendRequest) error

func (f TransportFunc) Send(ctx context.Context, req SendRequest) error {
	return f(ctx, req)
}
