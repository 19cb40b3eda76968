package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/issuetracker/issues-api/internal/infrastructure/config"
	mongostore "github.com/issuetracker/issues-api/internal/infrastructure/db/mongo"
	"github.com/issuetracker/issues-api/internal/infrastructure/db/sqldb"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations (indexes for mongo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStore(cmd.Context())
		if err != nil {
			return err
		}

		if cfg.Store.Driver == config.DriverMongo {
			client, db, err := mongostore.Connect(cmd.Context(), mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
			if err != nil {
				return err
			}
			defer client.Disconnect(cmd.Context())
			if err := mongostore.EnsureIndexes(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "mongo indexes ensured")
			return nil
		}

		db, err := openSQL(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := sqldb.MigrateUp(cmd.Context(), db); err != nil {
			return err
		}
		return printVersion(cmd, db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all of them unless --steps is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStore(cmd.Context())
		if err != nil {
			return err
		}
		db, err := openSQL(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := sqldb.MigrateDown(cmd.Context(), db, migrateSteps); err != nil {
			return err
		}
		return printVersion(cmd, db)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStore(cmd.Context())
		if err != nil {
			return err
		}
		db, err := openSQL(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		return printVersion(cmd, db)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 0, "number of migrations to roll back (0 = all)")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func openSQL(cmd *cobra.Command, cfg *config.Config) (*sqldb.DB, error) {
	dialect, err := sqldb.ParseDialect(cfg.Store.Driver)
	if err != nil {
		return nil, fmt.Errorf("schema migrations apply to SQL stores only: %w", err)
	}
	return sqldb.Open(cmd.Context(), dialect, cfg.Store.DatabaseURL)
}

func printVersion(cmd *cobra.Command, db *sqldb.DB) error {
	version, dirty, err := sqldb.Version(cmd.Context(), db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d (dirty=%v)\n", db.Dialect(), version, dirty)
	return nil
}
