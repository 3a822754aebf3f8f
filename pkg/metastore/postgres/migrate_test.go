// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
)

func TestSplitSQLStatements_Basic(t *testing.T) {
	t.Parallel()

	stmts := splitSQLStatements("CREATE TABLE a (id INT); CREATE TABLE b (id INT);")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
}

func TestSplitSQLStatements_SemicolonInString(t *testing.T) {
	t.Parallel()

	stmts := splitSQLStatements(`INSERT INTO t (v) VALUES ('a;b'); SELECT 1;`)
	require.Len(t, stmts, 2)
	assert.Equal(t, `INSERT INTO t (v) VALUES ('a;b')`, stmts[0])
}

func TestSplitSQLStatements_EscapedQuote(t *testing.T) {
	t.Parallel()

	stmts := splitSQLStatements(`INSERT INTO t (v) VALUES ('it''s; fine'); SELECT 1;`)
	require.Len(t, stmts, 2)
	assert.Equal(t, `INSERT INTO t (v) VALUES ('it''s; fine')`, stmts[0])
}

func TestSplitSQLStatements_Comments(t *testing.T) {
	t.Parallel()

	script := "-- leading; comment\nSELECT 1; /* block; comment */ SELECT 2;"
	stmts := splitSQLStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "SELECT 1")
	assert.Contains(t, stmts[1], "SELECT 2")
}

func TestSplitSQLStatements_DollarQuotedBody(t *testing.T) {
	t.Parallel()

	script := `
CREATE OR REPLACE FUNCTION bump() RETURNS TRIGGER AS $$
BEGIN
    UPDATE accounts SET n = n + 1;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;
SELECT 1;
`
	stmts := splitSQLStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "UPDATE accounts SET n = n + 1;")
	assert.Contains(t, stmts[0], "END;")
	assert.Contains(t, stmts[0], "LANGUAGE plpgsql")
	assert.Equal(t, "SELECT 1", stmts[1])
}

func TestSplitSQLStatements_TaggedDollarQuote(t *testing.T) {
	t.Parallel()

	script := `CREATE FUNCTION f() RETURNS TRIGGER AS $body$ BEGIN RETURN NEW; END; $body$ LANGUAGE plpgsql;`
	stmts := splitSQLStatements(script)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "BEGIN RETURN NEW; END;")
}

func TestSplitSQLStatements_PlaceholderIsNotDollarQuote(t *testing.T) {
	t.Parallel()

	stmts := splitSQLStatements(`SELECT * FROM t WHERE id = $1; SELECT $2;`)
	require.Len(t, stmts, 2)
	assert.Equal(t, "SELECT * FROM t WHERE id = $1", stmts[0])
	assert.Equal(t, "SELECT $2", stmts[1])
}

func TestScanDollarTag(t *testing.T) {
	t.Parallel()

	tag, ok := scanDollarTag("$$ BEGIN")
	assert.True(t, ok)
	assert.Equal(t, "$$", tag)

	tag, ok = scanDollarTag("$body$ BEGIN")
	assert.True(t, ok)
	assert.Equal(t, "$body$", tag)

	_, ok = scanDollarTag("$1, $2")
	assert.False(t, ok)

	_, ok = scanDollarTag("$")
	assert.False(t, ok)
}

func TestStripLeadingComments(t *testing.T) {
	t.Parallel()

	stmt := stripLeadingComments("-- one\n-- two\nCREATE TABLE t (id INT)")
	assert.Equal(t, "CREATE TABLE t (id INT)", stmt)

	assert.Equal(t, "", stripLeadingComments("-- only comments\n-- here"))
}

// The embedded migrations have to survive splitting: in particular the
// usage trigger function, whose dollar-quoted body is full of
// semicolons, must come out as a single statement.
func TestSplitSQLStatements_EmbeddedMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := metastore.LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	counts := map[int]int{}
	for _, m := range migrations {
		stmts := splitSQLStatements(m.SQL)
		counts[m.Version] = len(stmts)
		for _, s := range stmts {
			assert.NotEmpty(t, stripLeadingComments(s))
		}
	}
	assert.Equal(t, 1, counts[1], "accounts migration")
	assert.Equal(t, 7, counts[2], "files migration")
	assert.Equal(t, 2, counts[3], "receipts migration")

	var fn string
	for _, s := range splitSQLStatements(migrations[1].SQL) {
		if strings.Contains(s, "CREATE OR REPLACE FUNCTION") {
			fn = s
		}
	}
	require.NotEmpty(t, fn)
	assert.Contains(t, fn, "TG_OP = 'INSERT'")
	assert.Contains(t, fn, "GREATEST(storage_used_bytes - OLD.size_bytes, 0)")
	assert.Contains(t, fn, "LANGUAGE plpgsql")
}
