// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
)

// failNthTransport fails chosen call numbers regardless of key, which
// keeps failure injection independent of timestamped object keys.
type failNthTransport struct {
	inner *memTransport

	mu    sync.Mutex
	calls int
	fail  map[int]error
}

func (f *failNthTransport) Send(ctx context.Context, req uploader.SendRequest) error {
	f.mu.Lock()
	f.calls++
	err := f.fail[f.calls]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.inner.Send(ctx, req)
}

// recordingSink collects committed records.
type recordingSink struct {
	mu   sync.Mutex
	recs []*types.FileRecord
}

func (s *recordingSink) FileUploaded(ctx context.Context, rec *types.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
}

func (s *recordingSink) uploaded() []*types.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.FileRecord(nil), s.recs...)
}

func freeAccount(owner string, used int64) *types.Account {
	return &types.Account{
		OwnerID:           owner,
		Plan:              types.PlanFree,
		StorageUsedBytes:  used,
		StorageLimitBytes: types.FreePlanLimitBytes,
	}
}

func testConfig() uploader.Config {
	cfg := uploader.DefaultConfig()
	cfg.ChunkSizeBytes = 10 * 1024 * 1024
	cfg.MaxAttempts = 1
	cfg.BaseBackoff = time.Millisecond
	cfg.AcceptedTypes["text/plain"] = []string{"txt"}
	return cfg
}

func srcFile(name, contentType string, data []byte) uploader.File {
	return uploader.File{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Data:        bytes.NewReader(data),
	}
}

func TestUploader_ChunkedFileEndToEnd(t *testing.T) {
	t.Parallel()

	tr := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", 0)}
	sink := &recordingSink{}
	u, err := uploader.New(testConfig(), uploader.Deps{
		Transport: tr,
		Meta:      meta,
		Resolver:  &stubResolver{},
		Events:    sink,
	})
	require.NoError(t, err)

	// 25 MiB at a 10 MiB chunk size splits into 10+10+5.
	data := pattern(25 * 1024 * 1024)
	results, err := u.Upload(context.Background(), "u1", []uploader.File{srcFile("holiday.mp4", "video/mp4", data)})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Err)
	assert.Equal(t, uploader.StatusComplete, res.Status)
	assert.NotEqual(t, uuid.Nil, res.FileID)

	keys := tr.sentKeys()
	require.Len(t, keys, 3)
	assert.True(t, strings.HasSuffix(keys[0], ".mp4.part0"), "key %q", keys[0])
	assert.True(t, strings.HasSuffix(keys[1], ".mp4.part1"), "key %q", keys[1])
	assert.True(t, strings.HasSuffix(keys[2], ".mp4.part2"), "key %q", keys[2])
	assert.True(t, strings.HasPrefix(keys[0], "u1/"), "keys are namespaced under the owner")

	part2, ok := tr.object(keys[2])
	require.True(t, ok)
	assert.Len(t, part2, 5*1024*1024, "final chunk carries the remainder")

	rec := res.Record
	require.NotNil(t, rec)
	assert.Equal(t, int64(25*1024*1024), rec.Size, "record carries the full file size, not a chunk size")
	assert.Equal(t, keys[0], rec.Key, "record references the first part")
	assert.Equal(t, 3, rec.ChunkCount)
	assert.Equal(t, "https://files.test/"+keys[0], rec.URL)

	require.Len(t, meta.inserted(), 1)
	require.Len(t, sink.uploaded(), 1)
	assert.Equal(t, rec.ID, sink.uploaded()[0].ID)
}

func TestUploader_EmptyFileEndToEnd(t *testing.T) {
	t.Parallel()

	tr := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", 0)}
	u, err := uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	results, err := u.Upload(context.Background(), "u1", []uploader.File{srcFile("notes.txt", "text/plain", nil)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	rec := results[0].Record
	require.NotNil(t, rec)
	assert.Equal(t, int64(0), rec.Size)
	assert.Equal(t, 1, rec.ChunkCount)
	assert.NotContains(t, rec.Key, ".part", "single chunk keeps the bare key")

	b, ok := tr.object(rec.Key)
	require.True(t, ok, "an empty file still stores one zero-length object")
	assert.Empty(t, b)
}

func TestUploader_NormalizesFilenames(t *testing.T) {
	t.Parallel()

	tr := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", 0)}
	u, err := uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	results, err := u.Upload(context.Background(), "u1", []uploader.File{srcFile("../../etc/Passwd.PNG", "image/png", pattern(64))})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	rec := results[0].Record
	assert.Equal(t, "Passwd.PNG", rec.Name, "path components are stripped from the stored name")
	assert.True(t, strings.HasSuffix(rec.Key, ".png"), "extension is lowercased in the key, got %q", rec.Key)
}

func TestUploader_PreflightRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		owner  string
		used   int64
		file   uploader.File
		reason string
	}{
		{
			name:   "unauthenticated",
			owner:  "",
			file:   srcFile("a.png", "image/png", pattern(10)),
			reason: uploader.ReasonUnauthenticated,
		},
		{
			name:   "missing data",
			owner:  "u1",
			file:   uploader.File{Name: "a.png", Size: 10, ContentType: "image/png"},
			reason: uploader.ReasonInvalidFile,
		},
		{
			name:  "file too large",
			owner: "u1",
			file: uploader.File{
				Name:        "huge.bin",
				Size:        uploader.DefaultConfig().MaxFileSizeBytes + 1,
				ContentType: "application/pdf",
				Data:        bytes.NewReader(nil),
			},
			reason: uploader.ReasonFileTooLarge,
		},
		{
			name:   "type not allowed",
			owner:  "u1",
			file:   srcFile("setup.exe", "application/x-msdownload", pattern(10)),
			reason: uploader.ReasonTypeNotAllowed,
		},
		{
			name:   "extension contradicts declared type",
			owner:  "u1",
			file:   srcFile("payload.exe", "image/png", pattern(10)),
			reason: uploader.ReasonTypeNotAllowed,
		},
		{
			name:  "quota exceeded",
			owner: "u1",
			used:  types.FreePlanLimitBytes - 100*1024*1024,
			file: uploader.File{
				Name:        "big.mp4",
				Size:        200 * 1024 * 1024,
				ContentType: "video/mp4",
				Data:        bytes.NewReader(nil),
			},
			reason: uploader.ReasonQuotaExceeded,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := newMemTransport()
			meta := &memMeta{account: freeAccount("u1", tt.used)}
			u, err := uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
			require.NoError(t, err)

			results, err := u.Upload(context.Background(), tt.owner, []uploader.File{tt.file})
			require.Error(t, err)
			assert.Nil(t, results, "a rejected batch returns no per-file results")

			var pe *uploader.PreflightError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.reason, pe.Reason)
			assert.Empty(t, tr.sentKeys(), "preflight rejection happens before any chunk is sent")
			assert.Empty(t, meta.inserted())
		})
	}
}

func TestUploader_QuotaCountsWholeBatch(t *testing.T) {
	t.Parallel()

	// Each file fits on its own, but together they burst the quota, so
	// the whole batch is rejected up front.
	tr := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", types.FreePlanLimitBytes-150)}
	u, err := uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	files := []uploader.File{
		srcFile("a.png", "image/png", pattern(100)),
		srcFile("b.png", "image/png", pattern(100)),
	}
	_, err = u.Upload(context.Background(), "u1", files)

	var pe *uploader.PreflightError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, uploader.ReasonQuotaExceeded, pe.Reason)
	assert.Empty(t, tr.sentKeys())
}

func TestUploader_BatchContinuesPastFailuresByDefault(t *testing.T) {
	t.Parallel()

	inner := newMemTransport()
	tr := &failNthTransport{inner: inner, fail: map[int]error{
		1: uploader.NewTransportError(uploader.KindRejected, "", errors.New("backend said no")),
	}}
	meta := &memMeta{account: freeAccount("u1", 0)}
	u, err := uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	files := []uploader.File{
		srcFile("bad.png", "image/png", pattern(100)),
		srcFile("good.png", "image/png", pattern(100)),
	}
	results, err := u.Upload(context.Background(), "u1", files)
	require.NoError(t, err, "per-file failures do not fail the batch call")
	require.Len(t, results, 2)

	assert.Equal(t, uploader.StatusFailed, results[0].Status)
	require.Error(t, results[0].Err)
	assert.Nil(t, results[0].Record)

	assert.Equal(t, uploader.StatusComplete, results[1].Status)
	require.NotNil(t, results[1].Record)

	require.Len(t, meta.inserted(), 1, "only the completed file gains a record")
	assert.Equal(t, "good.png", meta.inserted()[0].Name)
}

func TestUploader_StopOnErrorSkipsRemainingFiles(t *testing.T) {
	t.Parallel()

	inner := newMemTransport()
	tr := &failNthTransport{inner: inner, fail: map[int]error{
		1: uploader.NewTransportError(uploader.KindRejected, "", errors.New("backend said no")),
	}}
	meta := &memMeta{account: freeAccount("u1", 0)}

	cfg := testConfig()
	cfg.StopOnError = true
	u, err := uploader.New(cfg, uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	files := []uploader.File{
		srcFile("bad.png", "image/png", pattern(100)),
		srcFile("skipped.png", "image/png", pattern(100)),
		srcFile("also-skipped.png", "image/png", pattern(100)),
	}
	results, err := u.Upload(context.Background(), "u1", files)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, uploader.StatusFailed, results[0].Status)
	for _, res := range results[1:] {
		assert.Equal(t, uploader.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, uploader.ErrBatchStopped)
	}
	assert.Len(t, inner.sentKeys(), 0, "nothing may be sent after the stop")
}

func TestUploader_FilesRunSequentially(t *testing.T) {
	t.Parallel()

	tr := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", 0)}
	u, err := uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	files := []uploader.File{
		srcFile("first.png", "image/png", pattern(100)),
		srcFile("second.png", "image/png", pattern(100)),
		srcFile("third.png", "image/png", pattern(100)),
	}
	results, err := u.Upload(context.Background(), "u1", files)
	require.NoError(t, err)

	recs := meta.inserted()
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"first.png", "second.png", "third.png"},
		[]string{recs[0].Name, recs[1].Name, recs[2].Name},
		"records appear in batch order because files never interleave")

	// Timestamped keys are strictly increasing across the batch.
	assert.Less(t, recs[0].Key, recs[1].Key)
	assert.Less(t, recs[1].Key, recs[2].Key)

	for _, res := range results {
		assert.Equal(t, uploader.StatusComplete, res.Status)
	}
}

func TestUploader_CancelStopsRemainingFiles(t *testing.T) {
	t.Parallel()

	inner := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", 0)}

	var u *uploader.Uploader
	var cancelAck atomic.Bool
	inner.onSend = func(call int) {
		if call == 1 {
			cancelAck.Store(u.Cancel("u1"))
		}
	}

	u, err := uploader.New(testConfig(), uploader.Deps{Transport: inner, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	files := []uploader.File{
		srcFile("inflight.png", "image/png", pattern(100)),
		srcFile("never-started.png", "image/png", pattern(100)),
	}
	results, err := u.Upload(context.Background(), "u1", files)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, cancelAck.Load(), "an active batch is cancellable")

	// The in-flight chunk settles, so the first file still completes.
	assert.Equal(t, uploader.StatusComplete, results[0].Status)
	assert.Equal(t, uploader.StatusCancelled, results[1].Status)
	assert.ErrorIs(t, results[1].Err, uploader.ErrCancelled)
	assert.Len(t, inner.sentKeys(), 1)

	// The flag dies with the batch. A later upload starts clean.
	inner.onSend = nil
	results, err = u.Upload(context.Background(), "u1", []uploader.File{srcFile("fresh.png", "image/png", pattern(100))})
	require.NoError(t, err)
	assert.Equal(t, uploader.StatusComplete, results[0].Status)
}

func TestUploader_CancelWithoutActiveBatch(t *testing.T) {
	t.Parallel()

	meta := &memMeta{account: freeAccount("u1", 0)}
	u, err := uploader.New(testConfig(), uploader.Deps{Transport: newMemTransport(), Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	assert.False(t, u.Cancel("u1"))
	assert.False(t, u.Cancel("nobody"))
}

func TestUploader_FinalizeFailureFailsFile(t *testing.T) {
	t.Parallel()

	tr := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", 0), insertErr: errors.New("deadlock detected")}
	u, err := uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	require.NoError(t, err)

	results, err := u.Upload(context.Background(), "u1", []uploader.File{srcFile("a.png", "image/png", pattern(100))})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, uploader.StatusFailed, results[0].Status)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "insert file record")

	// The chunk object was stored; cleanup is not the pipeline's job.
	assert.Len(t, tr.sentKeys(), 1)
}

func TestUploader_ObserverSeesEveryChunk(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var percents []float64

	tr := newMemTransport()
	meta := &memMeta{account: freeAccount("u1", 0)}
	cfg := testConfig()
	cfg.ChunkSizeBytes = 32
	u, err := uploader.New(cfg, uploader.Deps{
		Transport: tr,
		Meta:      meta,
		Resolver:  &stubResolver{},
		Observer: func(p uploader.Progress) {
			mu.Lock()
			percents = append(percents, p.Percent)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	results, err := u.Upload(context.Background(), "u1", []uploader.File{srcFile("a.png", "image/png", pattern(100))})
	require.NoError(t, err)
	require.Equal(t, uploader.StatusComplete, results[0].Status)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, percents, 4, "100 bytes in 32 byte chunks is 4 chunks")
	assert.Equal(t, float64(100), percents[len(percents)-1])
}

func TestUploader_RequiredDependencies(t *testing.T) {
	t.Parallel()

	meta := &memMeta{}
	tr := newMemTransport()

	_, err := uploader.New(testConfig(), uploader.Deps{Meta: meta, Resolver: &stubResolver{}})
	assert.ErrorContains(t, err, "transport")

	_, err = uploader.New(testConfig(), uploader.Deps{Transport: tr, Resolver: &stubResolver{}})
	assert.ErrorContains(t, err, "meta store")

	_, err = uploader.New(testConfig(), uploader.Deps{Transport: tr, Meta: meta})
	assert.ErrorContains(t, err, "url resolver")

	bad := testConfig()
	bad.ChunkSizeBytes = 0
	_, err = uploader.New(bad, uploader.Deps{Transport: tr, Meta: meta, Resolver: &stubResolver{}})
	assert.ErrorContains(t, err, "config")
}
