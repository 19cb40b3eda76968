// Package storage opens the configured backend and hands out its
// repositories, so the rest of the program never switches on the driver.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/issuetracker/issues-api/internal/core/ports"
	"github.com/issuetracker/issues-api/internal/infrastructure/config"
	mongostore "github.com/issuetracker/issues-api/internal/infrastructure/db/mongo"
	"github.com/issuetracker/issues-api/internal/infrastructure/db/sqldb"
)

// Pinger checks that the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles the repositories of one backend with its lifecycle.
type Store struct {
	Users  ports.UserRepository
	Issues ports.IssueRepository
	// Name is the backend's display name in readiness output.
	Name   string
	Pinger Pinger

	close func(ctx context.Context) error
}

// Close releases the backend's connections.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects to the backend selected by cfg.Driver. SQL backends are
// migrated first when cfg.AutoMigrate is set; mongo gets its indexes.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	if cfg.Store.Driver == config.DriverMongo {
		return openMongo(ctx, cfg.Mongo, log)
	}
	return openSQL(ctx, cfg.Store, log)
}

func openSQL(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (*Store, error) {
	dialect, err := sqldb.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqldb.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := sqldb.MigrateUp(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logSchemaVersion(ctx, db, log)
	}

	log.Info().Str("driver", string(dialect)).Msg("connected to SQL store")
	return &Store{
		Users:  sqldb.NewUserRepository(db),
		Issues: sqldb.NewIssueRepository(db),
		Name:   string(dialect),
		Pinger: db,
		close:  func(context.Context) error { return db.Close() },
	}, nil
}

// logSchemaVersion reports the applied migration version. Failing to read it
// does not stop startup.
func logSchemaVersion(ctx context.Context, db *sqldb.DB, log zerolog.Logger) {
	version, dirty, err := sqldb.Version(ctx, db)
	if err != nil {
		log.Warn().Err(err).Str("dialect", string(db.Dialect())).Msg("could not read schema version")
		return
	}
	log.Info().Str("dialect", string(db.Dialect())).Uint("version", version).Bool("dirty", dirty).Msg("schema up to date")
}

func openMongo(ctx context.Context, cfg config.MongoConfig, log zerolog.Logger) (*Store, error) {
	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.URI, Database: cfg.Database})
	if err != nil {
		return nil, err
	}

	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("connected to MongoDB")
	return &Store{
		Users:  mongostore.NewUserRepository(db),
		Issues: mongostore.NewIssueRepository(db),
		Name:   "mongodb",
		Pinger: mongostore.Pinger{DB: db},
		close:  client.Disconnect,
	}, nil
}
