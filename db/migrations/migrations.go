// Package migrations embeds the goose SQL migrations for each supported
// store driver.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// FS returns the migration directory for driver.
func FS(driver string) (fs.FS, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
		return fs.Sub(files, driver)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func dialect(driver string) goose.Dialect {
	if driver == DriverSQLite {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// NewProvider builds a goose provider over the embedded migrations for driver.
func NewProvider(driver string, db *sql.DB) (*goose.Provider, error) {
	fsys, err := FS(driver)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(dialect(driver), db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, driver string, db *sql.DB) error {
	p, err := NewProvider(driver, db)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
