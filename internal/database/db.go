// Package database owns the SQLite store behind favorites and search counters.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var ErrDatabasePathRequired = errors.New("database path is required")

type Config struct {
	DatabasePath string
	// BusyTimeoutMS bounds how long a writer waits on a locked database.
	BusyTimeoutMS int
}

// DB wraps the SQLite connection and the repositories built on it.
type DB struct {
	conn      *sql.DB
	Favorites *FavoriteRepository
	Searches  *SearchRepository
}

// NewDB opens (creating if needed) the database and applies pending migrations.
func NewDB(cfg Config) (*DB, error) {
	path := strings.TrimSpace(cfg.DatabasePath)
	if path == "" {
		return nil, ErrDatabasePathRequired
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 5000
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d", path, cfg.BusyTimeoutMS)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY between our own goroutines.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(context.Background(), conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{
		conn:      conn,
		Favorites: NewFavoriteRepository(conn),
		Searches:  NewSearchRepository(conn),
	}, nil
}

func migrate(ctx context.Context, conn *sql.DB) error {
	dir, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, dir)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		slog.Default().With("component", "database").Info("applied migration",
			"version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Connection exposes the underlying handle for repositories and tests.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}
