// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// StorageType identifies the blob store backend implementation
type StorageType string

const (
	StorageTypeS3     StorageType = "s3"     // S3-compatible object storage
	StorageTypeMemory StorageType = "memory" // In-memory, for tests and local dev
)

// BackendConfig contains configuration for creating a blob store instance
type BackendConfig struct {
	Type      StorageType `json:"type"`
	Endpoint  string      `json:"endpoint,omitempty"`
	Bucket    string      `json:"bucket,omitempty"`
	Region    string      `json:"region,omitempty"`
	AccessKey string      `json:"access_key,omitempty"`
	SecretKey string      `json:"secret_key,omitempty"`

	// PathStyle forces path-style addressing, required by MinIO and
	// most other self-hosted S3 implementations.
	PathStyle bool `json:"path_style,omitempty"`

	// PublicBaseURL, when set, is prepended to object keys instead of
	// presigning. Use it when the bucket fronts a public CDN.
	PublicBaseURL string `json:"public_base_url,omitempty"`

	// PresignTTL bounds the lifetime of presigned GET URLs. Zero picks
	// the backend default.
	PresignTTL time.Duration `json:"presign_ttl,omitempty"`

	Options map[string]string `json:"options,omitempty"`
}
