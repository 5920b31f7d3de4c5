/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Command sqlmigrate manages versioned schema migrations for SQLite databases.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"
	"github.com/spf13/cobra"

	sqlmigrate "github.com/acronis/go-sqlmigrate"
)

const defaultConfigFile = ".sqlmigrate.yaml"

var (
	sourceDir  string
	dbPath     string
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sqlmigrate",
	Short: "Versioned schema migrations for SQLite databases",
	Long: `sqlmigrate applies an ordered set of reversible schema migrations to a
SQLite database. Progress is tracked in the database itself, so repeated
runs only execute what is missing. Each run is a single transaction.

Migrations live in a directory, one sub-directory per migration, named
<id>-<name> (e.g. 0001-create_users) and holding an up.sql file and,
when the migration is revertible, a down.sql file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sourceDir, "source", "s",
		os.Getenv("MIGRATION_DIR"), "directory holding the migrations (env MIGRATION_DIR)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d",
		os.Getenv("DATABASE_PATH"), "path to the SQLite database file (env DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config",
		defaultConfigFile, "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v",
		false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration: defaults, then the
// configuration file when one is present, then flag/env overrides on top.
func loadConfig() (*sqlmigrate.Config, error) {
	cfg := sqlmigrate.NewDefaultConfig()

	if _, err := os.Stat(configFile); err == nil {
		if err = config.NewDefaultLoader("").LoadFromFile(configFile, config.DataTypeYAML, cfg); err != nil {
			return nil, fmt.Errorf("load configuration file %s: %w", configFile, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat configuration file %s: %w", configFile, err)
	}

	if sourceDir != "" {
		cfg.Source = sourceDir
	}
	if dbPath != "" {
		cfg.SQLite.Path = dbPath
	}
	return cfg, nil
}

func validateConfig(cfg *sqlmigrate.Config) error {
	if cfg.Source == "" {
		return fmt.Errorf("migration directory is not set " +
			"(flag --source, env MIGRATION_DIR or config key migrator.source)")
	}
	if cfg.SQLite.Path == "" {
		return fmt.Errorf("database path is not set " +
			"(flag --database, env DATABASE_PATH or config key migrator.sqlite3.path)")
	}
	return nil
}

func newLogger() (log.FieldLogger, func()) {
	level := log.LevelInfo
	if verbose {
		level = log.LevelDebug
	}
	return log.NewLogger(&log.Config{Output: log.OutputStderr, Level: level})
}
