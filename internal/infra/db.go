package infra

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour behind a *sql.DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

// DialectFor picks the driver for a DATABASE_URL. postgres:// and
// postgresql:// URLs go to pgx, anything else is a SQLite file path.
func DialectFor(databaseURL string) Dialect {
	lower := strings.ToLower(databaseURL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// OpenDB opens the local store and makes sure the schema exists.
func OpenDB(ctx context.Context, cfg *Config) (*sql.DB, Dialect, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("config is required")
	}
	dialect := DialectFor(cfg.DatabaseURL)

	dsn := cfg.DatabaseURL
	if dialect == DialectSQLite {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn = "file:" + dsn + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("connect database: %w", err)
	}
	if err := EnsureSchema(ctx, db, dialect); err != nil {
		db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

// EnsureSchema creates the account, session and story tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	tsCol := "TIMESTAMP"
	if dialect == DialectPostgres {
		idCol = "BIGSERIAL PRIMARY KEY"
		tsCol = "TIMESTAMPTZ"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
    id ` + idCol + `,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at ` + tsCol + ` NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    created_at ` + tsCol + ` NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS stories (
    id ` + idCol + `,
    account_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
    title TEXT NOT NULL,
    subject TEXT NOT NULL,
    path TEXT NOT NULL,
    images_dir TEXT NOT NULL DEFAULT '',
    page_count INTEGER NOT NULL,
    created_at ` + tsCol + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS stories_account_idx ON stories (account_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
