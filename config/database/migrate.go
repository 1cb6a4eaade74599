package database

import (
	"context"
	"database/sql"
	"fmt"

	"docuflow/pkg/logger"
)

type schema struct {
	create string
	// hasCreatedAt counts the created_at column on an existing table.
	hasCreatedAt string
	// addCreatedAt upgrades tables from releases that had no created_at.
	// SQLite rejects a CURRENT_TIMESTAMP default on ADD COLUMN, so older
	// rows keep a NULL timestamp there.
	addCreatedAt string
}

var schemas = map[string]schema{
	DriverSQLite: {
		create: `CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
		hasCreatedAt: `SELECT COUNT(*) FROM pragma_table_info('documents') WHERE name = 'created_at'`,
		addCreatedAt: `ALTER TABLE documents ADD COLUMN created_at DATETIME`,
	},
	DriverPostgres: {
		create: `CREATE TABLE IF NOT EXISTS documents (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
		hasCreatedAt: `SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = 'documents' AND column_name = 'created_at'`,
		addCreatedAt: `ALTER TABLE documents ADD COLUMN created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP`,
	},
}

// Migrate creates the documents table if it does not exist and adds the
// created_at column to tables created without it.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	s, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", driver)
	}
	if _, err := db.ExecContext(ctx, s.create); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, s.hasCreatedAt).Scan(&n); err != nil {
		return fmt.Errorf("inspect documents table: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, s.addCreatedAt); err != nil {
		return fmt.Errorf("add created_at column: %w", err)
	}
	logger.Sugar.Info("Added created_at column to documents table")
	return nil
}
