// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
)

// fileColumns is the canonical column list shared by every file query.
const fileColumns = `id, owner_id, name, key, url, content_type, size_bytes, content_hash, chunk_count, created_at`

// scanner is an interface for sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*types.FileRecord, error) {
	rec := &types.FileRecord{}
	err := s.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Name,
		&rec.Key,
		&rec.URL,
		&rec.ContentType,
		&rec.Size,
		&rec.ContentHash,
		&rec.ChunkCount,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, metastore.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return rec, nil
}

// InsertFile persists one committed file record. The insert trigger
// adds the record's size to the owner's usage counter.
func (p *Postgres) InsertFile(ctx context.Context, rec *types.FileRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID,
		rec.OwnerID,
		rec.Name,
		rec.Key,
		rec.URL,
		rec.ContentType,
		rec.Size,
		rec.ContentHash,
		rec.ChunkCount,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// GetFile returns one file record, scoped to the owner so one user can
// never read another's rows.
func (p *Postgres) GetFile(ctx context.Context, ownerID string, id uuid.UUID) (*types.FileRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	return scanFile(row)
}

// ListFiles returns the owner's records newest first. Before is an
// exclusive created-at cursor for pagination.
func (p *Postgres) ListFiles(ctx context.Context, ownerID string, params metastore.ListParams) ([]*types.FileRecord, error) {
	limit := params.Limit
	if limit <= 0 || limit > metastore.DefaultListLimit {
		limit = metastore.DefaultListLimit
	}
	before := params.Before
	if before <= 0 {
		before = math.MaxInt64
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE owner_id = $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, ownerID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []*types.FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteFile removes a record and returns it so the caller can clean
// up the blob objects. The delete trigger releases the record's bytes
// from the owner's usage counter.
func (p *Postgres) DeleteFile(ctx context.Context, ownerID string, id uuid.UUID) (*types.FileRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		DELETE FROM files
		WHERE id = $1 AND owner_id = $2
		RETURNING `+fileColumns+`
	`, id, ownerID)
	return scanFile(row)
}
