// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := uploader.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(8<<20), cfg.ChunkSizeBytes)
	assert.Equal(t, uploader.PolicySlidingWindow, cfg.Policy)
	assert.Equal(t, 4, cfg.MaxConcurrentUploads)
	assert.Equal(t, 3, cfg.MaxAttempts)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*uploader.Config)
		wantErr string
	}{
		{
			name:    "zero chunk size",
			mutate:  func(c *uploader.Config) { c.ChunkSizeBytes = 0 },
			wantErr: "chunk_size_bytes",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *uploader.Config) { c.Policy = "parallel" },
			wantErr: "unknown policy",
		},
		{
			name: "windowed policy needs width",
			mutate: func(c *uploader.Config) {
				c.Policy = uploader.PolicySlidingWindow
				c.MaxConcurrentUploads = 0
			},
			wantErr: "max_concurrent_uploads",
		},
		{
			name: "sequential ignores width",
			mutate: func(c *uploader.Config) {
				c.Policy = uploader.PolicySequential
				c.MaxConcurrentUploads = 0
			},
		},
		{
			name:    "zero attempt budget",
			mutate:  func(c *uploader.Config) { c.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
		{
			name:    "zero attempt timeout",
			mutate:  func(c *uploader.Config) { c.PerAttemptTimeout = 0 },
			wantErr: "per_attempt_timeout",
		},
		{
			name:    "negative backoff",
			mutate:  func(c *uploader.Config) { c.BaseBackoff = -time.Second },
			wantErr: "base_backoff",
		},
		{
			name:    "zero max file size",
			mutate:  func(c *uploader.Config) { c.MaxFileSizeBytes = 0 },
			wantErr: "max_file_size_bytes",
		},
		{
			name:    "negative bandwidth cap",
			mutate:  func(c *uploader.Config) { c.MaxBytesPerSec = -1 },
			wantErr: "max_bytes_per_sec",
		},
		{
			name:    "empty allowlist",
			mutate:  func(c *uploader.Config) { c.AcceptedTypes = nil },
			wantErr: "accepted_types",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := uploader.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigTypeAllowed(t *testing.T) {
	t.Parallel()

	cfg := uploader.DefaultConfig()
	cfg.AcceptedTypes = map[string][]string{
		"image/*":         {"png", "jpg", "jpeg"},
		"application/pdf": {"pdf"},
		"text/plain":      nil, // no extension restriction
	}

	tests := []struct {
		contentType string
		ext         string
		want        bool
	}{
		{"image/png", "png", true},
		{"IMAGE/JPEG", "JPG", true},
		{"image/png; charset=binary", "png", true},
		{"image/png", ".png", true},
		{"application/pdf", "pdf", true},
		{"Application/PDF", "pdf", true},
		{"text/plain", "log", true},
		{"text/plain", "", true},

		// Declared type allowed, extension contradicts it.
		{"image/png", "exe", false},
		{"image/svg+xml", "svg", false},
		{"application/pdf", "png", false},

		{"application/zip", "zip", false},
		{"video/mp4", "mp4", false},
		{"application/x-msdownload", "exe", false},
		{"image", "png", false},
		{"", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.TypeAllowed(tt.contentType, tt.ext),
			"content type %q ext %q", tt.contentType, tt.ext)
	}
}
