/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	sqlmigrate "github.com/acronis/go-sqlmigrate"
	"github.com/acronis/go-sqlmigrate/migrate"
	"github.com/acronis/go-sqlmigrate/runlock"
)

func init() {
	var upSteps uint
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long: `Apply pending migrations in ascending order within a single transaction.
By default the database is brought to the latest defined version;
with --steps only the given number of migrations is applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, mgr *migrate.Manager, dbConn *sql.DB) error {
				return runlock.DoExclusively(ctx, dbConn, runlock.DefaultLockKey, func(ctx context.Context) error {
					if !cmd.Flags().Changed("steps") {
						return mgr.ToLatest(ctx)
					}
					current, err := mgr.CurrentVersion(ctx)
					if err != nil {
						return err
					}
					target := current.Value() + uint64(upSteps)
					if target > mgr.LatestVersion() {
						target = mgr.LatestVersion()
					}
					return mgr.ToVersion(ctx, target)
				})
			})
		},
	}
	upCmd.Flags().UintVarP(&upSteps, "steps", "n", 0, "number of migrations to apply instead of all pending")
	rootCmd.AddCommand(upCmd)

	var downSteps uint
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations",
		Long: `Revert applied migrations in descending order within a single transaction.
By default the whole schema is reverted; with --steps only the given
number of migrations is reverted. The run is rejected before anything
is touched if a migration in range has no down script.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, mgr *migrate.Manager, dbConn *sql.DB) error {
				return runlock.DoExclusively(ctx, dbConn, runlock.DefaultLockKey, func(ctx context.Context) error {
					if !cmd.Flags().Changed("steps") {
						return mgr.ToVersion(ctx, 0)
					}
					current, err := mgr.CurrentVersion(ctx)
					if err != nil {
						return err
					}
					if uint64(downSteps) > current.Value() {
						return fmt.Errorf("number of steps down is too large: only %d migrations are applied",
							current.Value())
					}
					return mgr.ToVersion(ctx, current.Value()-uint64(downSteps))
				})
			})
		},
	}
	downCmd.Flags().UintVarP(&downSteps, "steps", "n", 0, "number of migrations to revert instead of all")
	rootCmd.AddCommand(downCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, mgr *migrate.Manager, dbConn *sql.DB) error {
				current, err := mgr.CurrentVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database version: %s\n", current)
				fmt.Fprintf(cmd.OutOrStdout(), "Latest defined:   %d\n", mgr.LatestVersion())
				return nil
			})
		},
	}
	rootCmd.AddCommand(statusCmd)
}

// withManager loads the configuration and the migration set, opens the
// database and hands a ready migration manager to fn. The database
// connection is closed when fn returns.
func withManager(ctx context.Context, fn func(ctx context.Context, mgr *migrate.Manager, dbConn *sql.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err = validateConfig(cfg); err != nil {
		return err
	}

	logger, closeLogger := newLogger()
	defer closeLogger()

	migrations, err := migrate.LoadDirMigrations(cfg.Source)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	dbConn, err := sqlmigrate.Open(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = dbConn.Close() }()

	mgr, err := migrate.NewManager(dbConn, migrations, logger)
	if err != nil {
		return err
	}

	return fn(ctx, mgr, dbConn)
}
