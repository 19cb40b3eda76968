package sqldb

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// withMigrator runs fn against a migrate instance built on a separate handle
// to db's database. The postgres and mysql drivers pin a connection for as
// long as they live, so the handle is closed again before returning and the
// shared pool is never touched.
func withMigrator(ctx context.Context, db *DB, fn func(m *migrate.Migrate) error) (err error) {
	source, err := iofs.New(migrationsFS, "migrations/"+string(db.dialect))
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	handle, err := Open(ctx, db.dialect, db.dsn)
	if err != nil {
		_ = source.Close()
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	var driver database.Driver
	switch db.dialect {
	case Postgres:
		driver, err = migratepostgres.WithInstance(handle.conn, &migratepostgres.Config{})
	case MySQL:
		driver, err = migratemysql.WithInstance(handle.conn, &migratemysql.Config{})
	case SQLite:
		driver, err = migratesqlite.WithInstance(handle.conn, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported dialect %q", db.dialect)
	}
	if err != nil {
		_ = source.Close()
		_ = handle.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(db.dialect), driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	// Closing the driver closes handle as well.
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	return fn(m)
}

// MigrateUp applies every pending migration. Being up to date is not an error.
func MigrateUp(ctx context.Context, db *DB) error {
	return withMigrator(ctx, db, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the given number of migrations; steps <= 0 rolls
// back everything.
func MigrateDown(ctx context.Context, db *DB, steps int) error {
	return withMigrator(ctx, db, func(m *migrate.Migrate) error {
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		return nil
	})
}

// Version reports the applied schema version; 0 means nothing is applied.
func Version(ctx context.Context, db *DB) (version uint, dirty bool, err error) {
	err = withMigrator(ctx, db, func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			version, dirty = 0, false
			return nil
		}
		return verr
	})
	return version, dirty, err
}
