// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

func init() {
	Register(types.StorageTypeMemory, func(cfg types.BackendConfig) (Store, error) {
		m := NewMemoryStore()
		if cfg.PublicBaseURL != "" {
			m.baseURL = cfg.PublicBaseURL
		}
		return m, nil
	})
}

type memoryObject struct {
	data        []byte
	contentType string
	crc64       uint64
}

// MemoryStore is an in-memory blob store for tests and local dev
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

// NewMemoryStore creates a new in-memory blob store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: "memory://bucket",
	}
}

func (m *MemoryStore) Put(ctx context.Context, req PutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.objects[req.Key]; exists && !req.AllowOverwrite {
		return fmt.Errorf("put object %s: %w", req.Key, ErrKeyExists)
	}

	m.objects[req.Key] = memoryObject{
		data:        append([]byte(nil), req.Data...),
		contentType: req.ContentType,
		crc64:       req.CRC64,
	}
	bytesWrittenTotal.WithLabelValues(string(types.StorageTypeMemory)).Add(float64(len(req.Data)))
	return nil
}

func (m *MemoryStore) URL(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("key not found: %s", key)
	}
	return m.baseURL + "/" + key, nil
}

func (m *MemoryStore) Remove(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = make(map[string]memoryObject)
	return nil
}

// Get returns a stored object's bytes. Test helper.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// ContentType returns a stored object's content type. Test helper.
func (m *MemoryStore) ContentType(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.contentType, ok
}

// CRC64 returns a stored object's recorded checksum. Test helper.
func (m *MemoryStore) CRC64(key string) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.crc64, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
