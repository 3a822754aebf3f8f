// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-memory implementation of metastore.DB
// for testing. It stores data in maps, keeps a per-owner time index
// for listing, and mirrors the usage-counter triggers of the SQL
// schema so quota behavior matches the real database.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

// fileTimeItem orders an owner's records by creation time, with the id
// as tiebreak so equal timestamps still have a total order.
type fileTimeItem struct {
	createdAt int64
	id        uuid.UUID
	rec       *types.FileRecord
}

func (a *fileTimeItem) Less(b btree.Item) bool {
	other := b.(*fileTimeItem)
	if a.createdAt != other.createdAt {
		return a.createdAt < other.createdAt
	}
	return bytes.Compare(a.id[:], other.id[:]) < 0
}

// maxID sorts at or after every real record id.
var maxID = uuid.UUID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// DB is an in-memory database implementation for testing.
type DB struct {
	mu sync.RWMutex

	accounts map[string]*types.Account
	files    map[uuid.UUID]*types.FileRecord
	byOwner  map[string]*btree.BTree
	receipts map[string]metastore.Receipt
}

// New creates a new in-memory database for testing.
func New() *DB {
	return &DB{
		accounts: make(map[string]*types.Account),
		files:    make(map[uuid.UUID]*types.FileRecord),
		byOwner:  make(map[string]*btree.BTree),
		receipts: make(map[string]metastore.Receipt),
	}
}

// ============================================================================
// Account Operations
// ============================================================================

func (d *DB) GetAccount(ctx context.Context, ownerID string) (*types.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	acct, ok := d.accounts[ownerID]
	if !ok {
		return nil, metastore.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (d *DB) EnsureAccount(ctx context.Context, ownerID string) (*types.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[ownerID]
	if !ok {
		now := time.Now().Unix()
		acct = &types.Account{
			OwnerID:           ownerID,
			Plan:              types.PlanFree,
			StorageLimitBytes: types.FreePlanLimitBytes,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		d.accounts[ownerID] = acct
	}
	cp := *acct
	return &cp, nil
}

// SeedAccount installs an account as-is, for tests that need a
// specific plan or usage state.
func (d *DB) SeedAccount(acct *types.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *acct
	d.accounts[acct.OwnerID] = &cp
}

func (d *DB) ApplyReceipt(ctx context.Context, r metastore.Receipt) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.receipts[r.ReceiptID]; ok {
		return metastore.ErrDuplicateReceipt
	}
	acct, ok := d.accounts[r.OwnerID]
	if !ok {
		return metastore.ErrAccountNotFound
	}

	appliedAt := r.AppliedAt
	if appliedAt == 0 {
		appliedAt = time.Now().Unix()
	}
	r.AppliedAt = appliedAt

	acct.Plan = r.Plan
	acct.StorageLimitBytes = r.Plan.LimitBytes()
	acct.UpdatedAt = appliedAt
	d.receipts[r.ReceiptID] = r
	return nil
}

// ============================================================================
// File Operations
// ============================================================================

func (d *DB) InsertFile(ctx context.Context, rec *types.FileRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[rec.ID]; ok {
		return fmt.Errorf("insert file: duplicate id %s", rec.ID)
	}
	acct, ok := d.accounts[rec.OwnerID]
	if !ok {
		return metastore.ErrAccountNotFound
	}

	cp := *rec
	d.files[rec.ID] = &cp

	tree, ok := d.byOwner[rec.OwnerID]
	if !ok {
		tree = btree.New(2)
		d.byOwner[rec.OwnerID] = tree
	}
	tree.ReplaceOrInsert(&fileTimeItem{createdAt: cp.CreatedAt, id: cp.ID, rec: &cp})

	// Mirror the insert trigger
	acct.StorageUsedBytes += rec.Size
	acct.UpdatedAt = rec.CreatedAt
	return nil
}

func (d *DB) GetFile(ctx context.Context, ownerID string, id uuid.UUID) (*types.FileRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.files[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, metastore.ErrFileNotFound
	}
	cp := *rec
	return &cp, nil
}

func (d *DB) ListFiles(ctx context.Context, ownerID string, params metastore.ListParams) ([]*types.FileRecord, error) {
	limit := params.Limit
	if limit <= 0 || limit > metastore.DefaultListLimit {
		limit = metastore.DefaultListLimit
	}
	before := params.Before
	if before <= 0 {
		before = math.MaxInt64
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	tree, ok := d.byOwner[ownerID]
	if !ok {
		return nil, nil
	}

	// Walk newest first, starting just below the cursor
	pivot := &fileTimeItem{createdAt: before - 1, id: maxID}
	var records []*types.FileRecord
	tree.DescendLessOrEqual(pivot, func(it btree.Item) bool {
		if len(records) >= limit {
			return false
		}
		cp := *it.(*fileTimeItem).rec
		records = append(records, &cp)
		return true
	})
	return records, nil
}

func (d *DB) DeleteFile(ctx context.Context, ownerID string, id uuid.UUID) (*types.FileRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.files[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, metastore.ErrFileNotFound
	}
	delete(d.files, id)
	if tree, ok := d.byOwner[ownerID]; ok {
		tree.Delete(&fileTimeItem{createdAt: rec.CreatedAt, id: rec.ID})
	}

	// Mirror the delete trigger, clamping at zero like the SQL does
	if acct, ok := d.accounts[ownerID]; ok {
		acct.StorageUsedBytes -= rec.Size
		if acct.StorageUsedBytes < 0 {
			acct.StorageUsedBytes = 0
		}
	}

	cp := *rec
	return &cp, nil
}

func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.accounts = make(map[string]*types.Account)
	d.files = make(map[uuid.UUID]*types.FileRecord)
	d.byOwner = make(map[string]*btree.BTree)
	d.receipts = make(map[string]metastore.Receipt)
	return nil
}

// Ensure DB implements metastore.DB
var _ metastore.DB = (*DB)(nil)
