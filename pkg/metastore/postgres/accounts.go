// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

// GetAccount returns the owner's account row.
func (p *Postgres) GetAccount(ctx context.Context, ownerID string) (*types.Account, error) {
	acct := &types.Account{}
	err := p.db.QueryRowContext(ctx, `
		SELECT owner_id, plan, storage_used_bytes, storage_limit_bytes, created_at, updated_at
		FROM accounts
		WHERE owner_id = $1
	`, ownerID).Scan(
		&acct.OwnerID,
		&acct.Plan,
		&acct.StorageUsedBytes,
		&acct.StorageLimitBytes,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, metastore.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

// EnsureAccount returns the owner's account, creating a free-plan row
// on first contact. Concurrent first contacts race harmlessly: the
// conflict clause keeps the earliest row.
func (p *Postgres) EnsureAccount(ctx context.Context, ownerID string) (*types.Account, error) {
	now := time.Now().Unix()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (owner_id, plan, storage_used_bytes, storage_limit_bytes, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $4)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID, string(types.PlanFree), types.FreePlanLimitBytes, now)
	if err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	return p.GetAccount(ctx, ownerID)
}

// ApplyReceipt records a billing receipt and moves the owner to the
// receipt's plan, both inside one transaction. A receipt id that was
// already recorded fails with ErrDuplicateReceipt and leaves the plan
// untouched.
func (p *Postgres) ApplyReceipt(ctx context.Context, r metastore.Receipt) error {
	appliedAt := r.AppliedAt
	if appliedAt == 0 {
		appliedAt = time.Now().Unix()
	}

	return p.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO billing_receipts (receipt_id, owner_id, plan, applied_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (receipt_id) DO NOTHING
		`, r.ReceiptID, r.OwnerID, string(r.Plan), appliedAt)
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert receipt rows: %w", err)
		}
		if n == 0 {
			return metastore.ErrDuplicateReceipt
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE accounts
			SET plan = $2, storage_limit_bytes = $3, updated_at = $4
			WHERE owner_id = $1
		`, r.OwnerID, string(r.Plan), r.Plan.LimitBytes(), appliedAt)
		if err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update plan rows: %w", err)
		}
		if n == 0 {
			return metastore.ErrAccountNotFound
		}
		return nil
	})
}
