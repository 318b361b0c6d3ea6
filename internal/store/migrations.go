package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed migrations/001_documents_revisions.sql
var documentsRevisionsSQL string

// documentMigration is one versioned change to the document store schema.
type documentMigration struct {
	Version int
	Name    string
	SQL     string
}

// documentMigrations must stay sorted by Version.
var documentMigrations = []documentMigration{
	{Version: 1, Name: "documents_revisions", SQL: documentsRevisionsSQL},
}

// latestSchemaVersion is the version a fully migrated document store reports.
func latestSchemaVersion() int {
	return documentMigrations[len(documentMigrations)-1].Version
}

// runMigrations brings the documents and revisions tables up to
// latestSchemaVersion. Each migration runs in its own transaction and is
// recorded in schema_version.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("document store: create schema_version: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range documentMigrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// schemaVersion reports the highest applied document store migration.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return 0, fmt.Errorf("document store: read schema_version: %w", err)
	}
	return current, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m documentMigration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("document store: begin migration %d (%s): %w", m.Version, m.Name, err)
	}
	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("document store: migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("document store: record migration %d (%s): %w", m.Version, m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("document store: commit migration %d (%s): %w", m.Version, m.Name, err)
	}
	return nil
}

// splitStatements cuts a migration script on semicolons and drops chunks
// that hold only `--` comments.
func splitStatements(script string) []string {
	var stmts []string
	for _, raw := range strings.Split(script, ";") {
		s := strings.TrimSpace(raw)
		if s != "" && hasSQL(s) {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func hasSQL(chunk string) bool {
	for _, l := range strings.Split(chunk, "\n") {
		l = strings.TrimSpace(l)
		if l != "" && !strings.HasPrefix(l, "--") {
			return true
		}
	}
	return false
}
