// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
)

func TestPlan_SingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := uploader.Plan(100, 1024, "u1/1700000000000.jpg")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, 0, c.Index)
	assert.Equal(t, int64(0), c.Offset)
	assert.Equal(t, int64(100), c.Length)
	// A single-chunk plan uses the base key untouched.
	assert.Equal(t, "u1/1700000000000.jpg", c.Key)
}

func TestPlan_MultiChunkKeys(t *testing.T) {
	t.Parallel()

	chunks, err := uploader.Plan(25*1024*1024, 10*1024*1024, "u1/1700000000000.mp4")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Every chunk of a multi-chunk plan carries a part suffix,
	// including the first.
	assert.Equal(t, "u1/1700000000000.mp4.part0", chunks[0].Key)
	assert.Equal(t, "u1/1700000000000.mp4.part1", chunks[1].Key)
	assert.Equal(t, "u1/1700000000000.mp4.part2", chunks[2].Key)

	assert.Equal(t, int64(10*1024*1024), chunks[0].Length)
	assert.Equal(t, int64(10*1024*1024), chunks[1].Length)
	assert.Equal(t, int64(5*1024*1024), chunks[2].Length)
}

func TestPlan_CoversFileExactly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fileSize  int64
		chunkSize int64
	}{
		{0, 1024},
		{1, 1024},
		{1023, 1024},
		{1024, 1024},
		{1025, 1024},
		{10 * 1024, 3},
		{7, 7},
		{100, 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("size=%d/chunk=%d", tc.fileSize, tc.chunkSize), func(t *testing.T) {
			t.Parallel()

			chunks, err := uploader.Plan(tc.fileSize, tc.chunkSize, "o/base")
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			var offset int64
			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				assert.Equal(t, offset, c.Offset, "chunks must be contiguous")
				assert.LessOrEqual(t, c.Length, tc.chunkSize)
				if i < len(chunks)-1 {
					assert.Equal(t, tc.chunkSize, c.Length, "only the last chunk may be short")
				}
				offset = c.End()
			}
			assert.Equal(t, tc.fileSize, offset, "chunks must cover the whole file")
		})
	}
}

func TestPlan_EmptyFile(t *testing.T) {
	t.Parallel()

	chunks, err := uploader.Plan(0, 8<<20, "u1/1700000000000.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, int64(0), chunks[0].Length)
	assert.Equal(t, int64(0), chunks[0].Offset)
	assert.Equal(t, "u1/1700000000000.txt", chunks[0].Key)
}

func TestPlan_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := uploader.Plan(33, 10, "o/k")
	require.NoError(t, err)
	b, err := uploader.Plan(33, 10, "o/k")
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(a, b))
}

func TestPlan_InvalidInputs(t *testing.T) {
	t.Parallel()

	_, err := uploader.Plan(100, 0, "o/k")
	assert.ErrorIs(t, err, uploader.ErrInvalidChunkSize)

	_, err = uploader.Plan(100, -5, "o/k")
	assert.ErrorIs(t, err, uploader.ErrInvalidChunkSize)

	_, err = uploader.Plan(-1, 1024, "o/k")
	assert.ErrorIs(t, err, uploader.ErrInvalidFileSize)
}

func TestBaseKey(t *testing.T) {
	t.Parallel()

	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "user-9/1700000000123.png", uploader.BaseKey("user-9", "png", ts))
	assert.Equal(t, "user-9/1700000000123", uploader.BaseKey("user-9", "", ts))
}
