// Package store opens the configured record store backend and applies its
// migrations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"booklibrary/db/migrations"
	"booklibrary/internal/book"
	"booklibrary/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store is an opened backend: the repository plus the handle that owns its
// connections.
type Store struct {
	Repo   book.Repository
	closer io.Closer
}

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open connects to the backend named by cfg.Driver, runs pending migrations
// and returns the repository.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	switch cfg.Driver {
	case migrations.DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store ready", "path", cfg.SQLitePath)
		return &Store{Repo: book.NewSQLiteRepo(db, cfg.QueryTimeout), closer: db}, nil
	case migrations.DriverPostgres:
		pool, err := OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Info("postgres store ready", "dsn", RedactDSN(cfg.PostgresDSN))
		return &Store{
			Repo:   book.NewPostgresRepo(pool, cfg.QueryTimeout),
			closer: closerFunc(func() error { pool.Close(); return nil }),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
// ":memory:" yields a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := openSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, migrations.DriverSQLite, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openSQLiteDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive and shared.
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenPostgres creates a pool, pings it and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := openPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := migrations.Up(ctx, migrations.DriverPostgres, db); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(dsn), err)
	}
	return pool, nil
}

// OpenSQL opens the configured backend as a *sql.DB without migrating it.
// It is the handle the migrate command drives goose with.
func OpenSQL(ctx context.Context, cfg config.StoreConfig) (*sql.DB, io.Closer, error) {
	switch cfg.Driver {
	case migrations.DriverSQLite:
		db, err := openSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case migrations.DriverPostgres:
		pool, err := openPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		db := stdlib.OpenDBFromPool(pool)
		return db, closerFunc(func() error {
			err := db.Close()
			pool.Close()
			return err
		}), nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// RedactDSN hides the credentials of a URL-style DSN.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
