// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"fmt"
	"time"
)

// Chunk is one planned slice of a file. Chunks are contiguous,
// non-overlapping, and cover the byte range [0, fileSize) exactly.
type Chunk struct {
	Index  int    // position in the file, 0-based and dense
	Offset int64  // first byte of the slice
	Length int64  // byte count; 0 only for the sole chunk of an empty file
	Key    string // object key this chunk is stored under
}

// End returns the exclusive upper bound of the chunk's byte range.
func (c Chunk) End() int64 {
	return c.Offset + c.Length
}

// Plan slices a file of fileSize bytes into chunks of at most chunkSize
// bytes and assigns each one its object key.
//
// A file always yields at least one chunk: an empty file produces a
// single zero-length chunk so that it still results in a stored object
// and a metadata record. When the plan has a single chunk its key is
// baseKey itself; otherwise every chunk, including the first, gets a
// ".part{index}" suffix.
//
// Plan is pure: identical inputs yield identical plans.
func Plan(fileSize, chunkSize int64, baseKey string) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if fileSize < 0 {
		return nil, ErrInvalidFileSize
	}

	total := int((fileSize + chunkSize - 1) / chunkSize)
	if total < 1 {
		total = 1
	}

	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		offset := int64(i) * chunkSize
		length := chunkSize
		if offset+length > fileSize {
			length = fileSize - offset
		}
		key := baseKey
		if total > 1 {
			key = fmt.Sprintf("%s.part%d", baseKey, i)
		}
		chunks = append(chunks, Chunk{
			Index:  i,
			Offset: offset,
			Length: length,
			Key:    key,
		})
	}

	return chunks, nil
}

// BaseKey derives the canonical object key for a file: the owner id as
// the key prefix, a millisecond timestamp, and the file's extension
// when it has one.
func BaseKey(ownerID, ext string, ts time.Time) string {
	ms := ts.UnixMilli()
	if ext == "" {
		return fmt.Sprintf("%s/%d", ownerID, ms)
	}
	return fmt.Sprintf("%s/%d.%s", ownerID, ms, ext)
}

// keyClock hands out strictly increasing millisecond timestamps so two
// files uploaded by the same owner in the same millisecond cannot
// collide on their object keys.
type keyClock struct {
	lastMS int64
}

func (k *keyClock) next(now time.Time) time.Time {
	ms := now.UnixMilli()
	if ms <= k.lastMS {
		ms = k.lastMS + 1
	}
	k.lastMS = ms
	return time.UnixMilli(ms)
}
