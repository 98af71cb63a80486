package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"chasopis/internal/config"
	"chasopis/internal/logger"
)

const sqliteFile = "chasopis.db"

// NewStorage opens the store selected by cfg.DBDriver and ensures the schema.
func NewStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*SQLStorage, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.DataDir, log)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, log)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.DBDriver)
	}
}

// OpenSQLite opens (or creates) the database file under dataDir.
func OpenSQLite(ctx context.Context, dataDir string, log logger.Logger) (*SQLStorage, error) {
	// Ensure data directory exists with secure permissions (0750)
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, sqliteFile)
	log.Info("Initializing database", logger.String("driver", config.DriverSQLite), logger.String("path", dbPath))

	db, err := sqlx.Open(config.DriverSQLite, dbPath+"?_journal=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Warn("Failed to set pragma", logger.String("pragma", pragma), logger.Error(err))
		}
	}

	return initStorage(ctx, db, sqliteDialect, log)
}

// OpenPostgres connects to dsn.
func OpenPostgres(ctx context.Context, dsn string, log logger.Logger) (*SQLStorage, error) {
	log.Info("Initializing database", logger.String("driver", config.DriverPostgres))

	db, err := sqlx.ConnectContext(ctx, config.DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return initStorage(ctx, db, postgresDialect, log)
}

func initStorage(ctx context.Context, db *sqlx.DB, d dialect, log logger.Logger) (*SQLStorage, error) {
	if err := createTables(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := validateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return New(db, d.name, log), nil
}
