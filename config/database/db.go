package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docuflow/pkg/logger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// retryDelay is the pause between failed pings.
var retryDelay = 2 * time.Second

// Connect opens a pool for driver and pings it up to attempts times.
// SQLite gets a single connection so writes are serialized by the pool.
func Connect(ctx context.Context, driver, dsn string, attempts int) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if attempts < 1 {
		attempts = 1
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	for i := 1; i <= attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if i == attempts {
			break
		}
		logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", retryDelay, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to %s database after %d attempts: %w", driver, attempts, err)
	}

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	logger.Sugar.Infof("Successfully connected to the %s database", driver)
	return db, nil
}
