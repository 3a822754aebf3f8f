// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"bytes"
	"testing"

	"github.com/minio/crc64nvme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadChunk_ExactBytes(t *testing.T) {
	t.Parallel()

	src := []byte("0123456789abcdefghij")
	chunks, err := Plan(int64(len(src)), 8, "o/f")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for _, c := range chunks {
		data, release, err := readChunk(bytes.NewReader(src), c)
		require.NoError(t, err)
		assert.Equal(t, src[c.Offset:c.End()], data, "chunk %d", c.Index)
		release()
	}
}

func TestReadChunk_FinalChunkAtEOF(t *testing.T) {
	t.Parallel()

	// Reading the last chunk up to the exact end of the source returns
	// io.EOF alongside the bytes; that is a complete read, not an error.
	src := make([]byte, 25)
	chunks, err := Plan(25, 10, "o/f")
	require.NoError(t, err)

	last := chunks[len(chunks)-1]
	data, release, err := readChunk(bytes.NewReader(src), last)
	require.NoError(t, err)
	defer release()
	assert.Len(t, data, 5)
}

func TestReadChunk_ZeroLength(t *testing.T) {
	t.Parallel()

	chunks, err := Plan(0, 10, "o/f")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	data, release, err := readChunk(bytes.NewReader(nil), chunks[0])
	require.NoError(t, err)
	defer release()
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestReadChunk_ShortSource(t *testing.T) {
	t.Parallel()

	// The plan promises 10 bytes but the source holds 7. The mismatch
	// must surface instead of sending a truncated chunk.
	chunks, err := Plan(10, 10, "o/f")
	require.NoError(t, err)

	_, _, err = readChunk(bytes.NewReader(make([]byte, 7)), chunks[0])
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestChunkCRC_MatchesDirectDigest(t *testing.T) {
	t.Parallel()

	data := []byte("the quick brown fox")
	h := crc64nvme.New()
	h.Write(data)
	assert.Equal(t, h.Sum64(), chunkCRC(data))
	assert.Equal(t, chunkCRC(data), chunkCRC(data), "digest is deterministic")
	assert.NotEqual(t, chunkCRC(data), chunkCRC([]byte("different")))
}
