// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FileRecord represents a stored file's metadata row.
// One record is written per successfully uploaded file; the storage
// usage counters on the owning account are maintained by database
// triggers on insert and delete, never by application code.
type FileRecord struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"` // canonical object key in blob storage
	URL         string    `json:"url,omitempty"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ContentHash string    `json:"content_hash,omitempty"` // hex SHA-256 of the source bytes
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   int64     `json:"created_at"` // Unix timestamp
}

// IsChunked returns true if the file was stored as multiple objects.
func (f *FileRecord) IsChunked() bool {
	return f.ChunkCount > 1
}

// PartKeys returns every object key backing the record. A chunked
// record's Key names its first part; sibling parts share the same base
// with ascending suffixes.
func (f *FileRecord) PartKeys() []string {
	if f.ChunkCount <= 1 {
		return []string{f.Key}
	}
	base := strings.TrimSuffix(f.Key, ".part0")
	keys := make([]string, f.ChunkCount)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s.part%d", base, i)
	}
	return keys
}
