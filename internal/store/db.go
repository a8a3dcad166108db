// Package store persists acts, harvest runs and archive metrics in SQLite or
// PostgreSQL through sqlx.
package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jjenkins/rtharvest/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const pingTimeout = 5 * time.Second

func init() {
	// Queries are written with ? placeholders and rebound per driver.
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// Open connects to the configured database, applies pending migrations and
// returns the handle.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if err := MigrateUp(cfg); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dataSource(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == config.DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// dataSource returns the driver specific connection string. SQLite files are
// opened in WAL mode with a busy timeout so the web UI can read while a
// harvest writes.
func dataSource(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverPostgres {
		return cfg.DSN()
	}
	return cfg.DSN() + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func ensureDir(cfg config.DatabaseConfig) error {
	if cfg.Driver != config.DriverSQLite || cfg.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", cfg.Dir, err)
	}
	return nil
}
