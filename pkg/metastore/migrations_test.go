// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package metastore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
)

type fakeMigrator struct {
	version  int
	applied  []metastore.Migration
	applyErr error
}

func (f *fakeMigrator) CurrentVersion(ctx context.Context) (int, error) {
	return f.version, nil
}

func (f *fakeMigrator) Apply(ctx context.Context, m metastore.Migration) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, m)
	return nil
}

func (f *fakeMigrator) SetVersion(ctx context.Context, version int) error {
	f.version = version
	return nil
}

func TestLoadMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := metastore.LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create_accounts", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, "create_files", migrations[1].Name)
	assert.Equal(t, 3, migrations[2].Version)
	assert.Equal(t, "create_receipts", migrations[2].Name)

	for _, m := range migrations {
		assert.NotEmpty(t, m.SQL)
	}
}

func TestRunMigrations_AppliesAllFromZero(t *testing.T) {
	t.Parallel()

	m := &fakeMigrator{}
	require.NoError(t, metastore.RunMigrations(context.Background(), m))

	require.Len(t, m.applied, 3)
	assert.Equal(t, 3, m.version)
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	t.Parallel()

	m := &fakeMigrator{version: 2}
	require.NoError(t, metastore.RunMigrations(context.Background(), m))

	require.Len(t, m.applied, 1)
	assert.Equal(t, 3, m.applied[0].Version)
	assert.Equal(t, 3, m.version)
}

func TestRunMigrations_UpToDate(t *testing.T) {
	t.Parallel()

	m := &fakeMigrator{version: 3}
	require.NoError(t, metastore.RunMigrations(context.Background(), m))
	assert.Empty(t, m.applied)
}

func TestRunMigrations_ApplyErrorStops(t *testing.T) {
	t.Parallel()

	m := &fakeMigrator{applyErr: errors.New("boom")}
	err := metastore.RunMigrations(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migration 1")
	assert.Equal(t, 0, m.version)
}
