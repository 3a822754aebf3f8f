// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
)

// Migrate runs database migrations for PostgreSQL
func (p *Postgres) Migrate(ctx context.Context) error {
	// Ensure schema_migrations table exists
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	return metastore.RunMigrations(ctx, &postgresMigrator{db: p.db})
}

// postgresMigrator implements metastore.Migrator for PostgreSQL
type postgresMigrator struct {
	db *sql.DB
}

func (m *postgresMigrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	return version, nil
}

func (m *postgresMigrator) Apply(ctx context.Context, migration metastore.Migration) error {
	// Split migration SQL into individual statements
	statements := splitSQLStatements(migration.SQL)
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		// Strip leading comment lines from statement
		stmt = stripLeadingComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement: %w", err)
		}
	}
	return nil
}

// stripLeadingComments removes leading SQL comment lines from a statement.
func stripLeadingComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	for len(lines) > 0 {
		line := strings.TrimSpace(lines[0])
		if line == "" || strings.HasPrefix(line, "--") {
			lines = lines[1:]
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (m *postgresMigrator) SetVersion(ctx context.Context, version int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO schema_migrations (version) VALUES ($1)
	`, version)
	if err != nil {
		return fmt.Errorf("record migration version: %w", err)
	}
	return nil
}

// splitSQLStatements splits a SQL script into individual statements.
// It handles semicolons inside strings, comments, and dollar-quoted
// bodies (PL/pgSQL trigger functions are full of them).
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)
	inLineComment := false
	inBlockComment := false
	inDollar := false
	dollarTag := ""

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		// Inside a dollar-quoted body everything is literal text until
		// the matching closing tag
		if inDollar {
			if c == '$' && strings.HasPrefix(sql[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				inDollar = false
				continue
			}
			current.WriteByte(c)
			continue
		}

		// Handle line comments
		if !inString && !inBlockComment && i+1 < len(sql) && c == '-' && sql[i+1] == '-' {
			inLineComment = true
			current.WriteByte(c)
			continue
		}

		if inLineComment {
			current.WriteByte(c)
			if c == '\n' {
				inLineComment = false
			}
			continue
		}

		// Handle block comments
		if !inString && !inLineComment && i+1 < len(sql) && c == '/' && sql[i+1] == '*' {
			inBlockComment = true
			current.WriteByte(c)
			continue
		}

		if inBlockComment {
			current.WriteByte(c)
			if c == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				current.WriteByte(sql[i+1])
				i++
				inBlockComment = false
			}
			continue
		}

		// Handle strings
		if !inString && (c == '\'' || c == '"') {
			inString = true
			stringChar = c
			current.WriteByte(c)
			continue
		}

		if inString {
			current.WriteByte(c)
			if c == stringChar {
				// Check for escaped quote
				if i+1 < len(sql) && sql[i+1] == stringChar {
					current.WriteByte(sql[i+1])
					i++
					continue
				}
				inString = false
			}
			continue
		}

		// Handle dollar quote openers ($$ or $tag$)
		if c == '$' {
			if tag, ok := scanDollarTag(sql[i:]); ok {
				inDollar = true
				dollarTag = tag
				current.WriteString(tag)
				i += len(tag) - 1
				continue
			}
		}

		// Handle semicolons
		if c == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(c)
	}

	// Add any remaining statement
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// scanDollarTag reports whether s begins with a dollar-quote delimiter
// and returns it (e.g. "$$" or "$body$"). Positional placeholders like
// $1 are not delimiters.
func scanDollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return "", false
		}
	}
	return "", false
}
