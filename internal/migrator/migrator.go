// Package migrator applies embedded schema migrations on service start.
package migrator

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator applies the SQL migrations carried in an fs.FS against one
// database. The ingestor embeds its migrations and runs Up before
// opening the pool, so the schema is always current by the time the
// repositories touch it.
type Migrator struct {
	migrationsFS fs.FS
	databaseURL  string
}

// New creates a Migrator over the given migrations filesystem.
func New(migrationsFS fs.FS, databaseURL string) (*Migrator, error) {
	if migrationsFS == nil {
		return nil, errors.New("migrations filesystem is required")
	}
	if databaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	return &Migrator{
		migrationsFS: migrationsFS,
		databaseURL:  toPgx5URL(databaseURL),
	}, nil
}

// Up applies all pending migrations. A database already at the latest
// version is not an error.
func (m *Migrator) Up() error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Version reports the current schema version and dirty flag. A fresh
// database reports version zero.
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get version: %w", err)
	}
	return version, dirty, nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	src, err := iofs.New(m.migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	mg, err := migrate.NewWithSourceInstance("iofs", src, m.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return mg, nil
}

// toPgx5URL rewrites postgres:// URLs to the scheme the registered
// pgx/v5 migrate driver answers to. Other schemes pass through.
func toPgx5URL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}
