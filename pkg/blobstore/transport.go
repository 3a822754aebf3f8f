// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"errors"
	"net"

	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"

	"github.com/aws/smithy-go"
)

// NewUploadTransport adapts a Store to the uploader's chunk transport.
// Each Send is exactly one Put; failures come back classified so the
// retry governor can tell a dead connection from a refused write.
func NewUploadTransport(s Store) uploader.Transport {
	return uploader.TransportFunc(func(ctx context.Context, req uploader.SendRequest) error {
		err := s.Put(ctx, PutRequest{
			Key:            req.Key,
			Data:           req.Data,
			ContentType:    req.ContentType,
			CRC64:          req.CRC64,
			AllowOverwrite: req.AllowOverwrite,
		})
		if err == nil {
			return nil
		}
		return uploader.NewTransportError(classify(err), req.Key, err)
	})
}

// classify maps a store error onto the transport taxonomy. A conflict
// means the key is taken and retrying cannot help; a rejection means
// the service answered and said no; everything else is the network's
// fault and worth another attempt.
func classify(err error) string {
	if errors.Is(err, ErrKeyExists) {
		return uploader.KindConflict
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return uploader.KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return uploader.KindTimeout
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return uploader.KindRejected
	}

	return uploader.KindNetwork
}
