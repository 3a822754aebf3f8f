// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"context"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

// URLResolver returns a retrievable URL for a stored object key.
type URLResolver interface {
	URL(ctx context.Context, key string) (string, error)
}

// RecordStore persists file metadata rows.
type RecordStore interface {
	InsertFile(ctx context.Context, rec *types.FileRecord) error
}

// Finalizer turns a fully uploaded task into a durable file record.
type Finalizer struct {
	resolver URLResolver
	records  RecordStore
}

func NewFinalizer(resolver URLResolver, records RecordStore) *Finalizer {
	return &Finalizer{resolver: resolver, records: records}
}

// Commit resolves the file's canonical URL and inserts its metadata
// record. The canonical key is the first chunk's key: for chunked
// files the first part stands in for the whole file, and the
// remaining part objects are reachable only by key convention. Parts
// are not reassembled.
//
// The account's storage usage counter is maintained by a database
// trigger on the inserted row, never incremented here. A failure at
// this stage fails the upload; already stored chunk objects are left
// in place for an external janitor.
func (f *Finalizer) Commit(ctx context.Context, task *Task, chunks []Chunk, ownerID, contentHash string) (*types.FileRecord, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("finalize %s: no chunks", task.Name)
	}

	refKey := chunks[0].Key
	url, err := f.resolver.URL(ctx, refKey)
	if err != nil {
		return nil, fmt.Errorf("resolve file url for %s: %w", refKey, err)
	}

	rec := &types.FileRecord{
		ID:          task.ID,
		OwnerID:     ownerID,
		Name:        task.Name,
		Key:         refKey,
		URL:         url,
		ContentType: task.ContentType,
		Size:        task.Size,
		ContentHash: contentHash,
		ChunkCount:  len(chunks),
		CreatedAt:   time.Now().Unix(),
	}

	if err := f.records.InsertFile(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert file record for %s: %w", task.Name, err)
	}

	logger.Debug().
		Str("owner_id", ownerID).
		Str("key", refKey).
		Int64("size", task.Size).
		Int("chunks", len(chunks)).
		Msg("uploader: file record committed")

	return rec, nil
}
