// Package blobstore provides the object storage boundary of the upload
// pipeline. All backends implement the Store interface and register
// themselves with the package factory.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

// ErrKeyExists marks a conditional write that lost to an existing
// object under the same key.
var ErrKeyExists = errors.New("blobstore: key already exists")

// PutRequest carries one object write.
type PutRequest struct {
	Key         string
	Data        []byte
	ContentType string

	// CRC64 is the CRC-64/NVME checksum of Data, stored alongside the
	// object so the backend (or a later audit) can verify the bytes.
	CRC64 uint64

	// AllowOverwrite permits replacing an existing object. When false
	// the write is conditional and fails with ErrKeyExists if the key
	// is already taken.
	AllowOverwrite bool
}

// Store is the blob storage interface the pipeline writes through.
type Store interface {
	// Put stores one object, honoring the request's overwrite rule.
	Put(ctx context.Context, req PutRequest) error

	// URL returns a retrievable URL for a stored key: the public URL
	// when the store fronts a CDN, a presigned GET otherwise.
	URL(ctx context.Context, key string) (string, error)

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error

	// Close releases any resources
	Close() error
}

// Registry holds registered backend factories
var (
	registryMu sync.RWMutex
	registry   = make(map[types.StorageType]Factory)
)

// Factory creates a Store from config
type Factory func(cfg types.BackendConfig) (Store, error)

// Register adds a factory for a storage type
func Register(t types.StorageType, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = f
}

// New creates a Store from config
func New(cfg types.BackendConfig) (Store, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
	return f(cfg)
}
