// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import (
	"fmt"
	"strings"
	"time"
)

// Scheduling policy names.
const (
	PolicySequential    = "sequential"
	PolicyFixedBatch    = "fixed_batch"
	PolicySlidingWindow = "sliding_window"
)

// Config holds every tunable of the upload pipeline.
type Config struct {
	// ChunkSizeBytes is the planned size of each chunk. The final
	// chunk of a file is usually smaller.
	ChunkSizeBytes int64

	// Policy selects how chunks are dispatched: sequential,
	// fixed_batch, or sliding_window.
	Policy string

	// MaxConcurrentUploads bounds in-flight chunk sends for the
	// fixed_batch and sliding_window policies.
	MaxConcurrentUploads int

	// PerAttemptTimeout caps a single send attempt. Attempts that hit
	// it count against the retry budget.
	PerAttemptTimeout time.Duration

	// MaxAttempts is the per-chunk attempt budget, first try included.
	MaxAttempts int

	// BaseBackoff is the delay after the first failed attempt; it
	// doubles for each subsequent failure and is jittered.
	BaseBackoff time.Duration

	// MaxFileSizeBytes rejects oversized files before planning.
	MaxFileSizeBytes int64

	// MaxBytesPerSec throttles aggregate send bandwidth. Zero means
	// unlimited.
	MaxBytesPerSec int

	// AcceptedTypes maps a MIME pattern to the file extensions allowed
	// for it. Patterns are exact types ("application/pdf") or wildcard
	// families ("image/*"); extensions are lowercase without the dot.
	// A pattern with an empty extension list accepts any extension.
	AcceptedTypes map[string][]string

	// StopOnError stops a batch at the first failed file instead of
	// continuing with the remaining files.
	StopOnError bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSizeBytes:       8 << 20,
		Policy:               PolicySlidingWindow,
		MaxConcurrentUploads: 4,
		PerAttemptTimeout:    30 * time.Second,
		MaxAttempts:          3,
		BaseBackoff:          500 * time.Millisecond,
		MaxFileSizeBytes:     500 << 20,
		MaxBytesPerSec:       0,
		AcceptedTypes: map[string][]string{
			"image/*":         {"jpg", "jpeg", "png", "gif", "webp", "bmp", "heic"},
			"video/*":         {"mp4", "mov", "avi", "mkv", "webm"},
			"audio/*":         {"mp3", "wav", "ogg", "flac", "aac", "m4a"},
			"application/pdf": {"pdf"},
		},
	}
}

// Validate checks the configuration for values the pipeline cannot
// run with.
func (c *Config) Validate() error {
	if c.ChunkSizeBytes <= 0 {
		return fmt.Errorf("chunk_size_bytes must be positive, got %d", c.ChunkSizeBytes)
	}
	switch c.Policy {
	case PolicySequential, PolicyFixedBatch, PolicySlidingWindow:
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	if c.Policy != PolicySequential && c.MaxConcurrentUploads < 1 {
		return fmt.Errorf("max_concurrent_uploads must be at least 1, got %d", c.MaxConcurrentUploads)
	}
	if c.PerAttemptTimeout <= 0 {
		return fmt.Errorf("per_attempt_timeout must be positive, got %s", c.PerAttemptTimeout)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.BaseBackoff < 0 {
		return fmt.Errorf("base_backoff must not be negative, got %s", c.BaseBackoff)
	}
	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max_file_size_bytes must be positive, got %d", c.MaxFileSizeBytes)
	}
	if c.MaxBytesPerSec < 0 {
		return fmt.Errorf("max_bytes_per_sec must not be negative, got %d", c.MaxBytesPerSec)
	}
	if len(c.AcceptedTypes) == 0 {
		return fmt.Errorf("accepted_types must not be empty")
	}
	return nil
}

// TypeAllowed reports whether the declared content type and the file
// extension pass the allowlist together. Wildcard patterns match a
// whole top-level family, so "image/*" accepts "image/png"; the
// extension must then appear in the matched pattern's list, so a PNG
// payload declared as an image but named *.exe is rejected. Matching
// ignores MIME parameters, case, and a leading dot on the extension.
func (c *Config) TypeAllowed(contentType, ext string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	family, _, ok := strings.Cut(base, "/")
	if !ok || family == "" {
		return false
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	for pattern, exts := range c.AcceptedTypes {
		pattern = strings.ToLower(pattern)
		if pattern != base {
			pf, sub, ok := strings.Cut(pattern, "/")
			if !ok || sub != "*" || pf != family {
				continue
			}
		}
		if len(exts) == 0 {
			return true
		}
		for _, allowed := range exts {
			if strings.ToLower(strings.TrimPrefix(allowed, ".")) == ext {
				return true
			}
		}
	}
	return false
}
