/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"github.com/acronis/go-appkit/log"

	sqlmigrate "github.com/acronis/go-sqlmigrate"
	"github.com/acronis/go-sqlmigrate/migrate"
)

func main() {
	if err := runMigrations(); err != nil {
		stdlog.Fatal(err)
	}
}

func runMigrations() error {
	var migrationDir string
	flag.StringVar(&migrationDir, "dir", "migrations", "directory holding the migrations")
	var targetVersion uint64
	flag.Uint64Var(&targetVersion, "to", 0, "target schema version, 0 migrates to the latest")
	flag.Parse()

	cfg := sqlmigrate.NewDefaultConfig()
	cfg.SQLite.Path = os.Getenv("DATABASE_PATH")
	if cfg.SQLite.Path == "" {
		return fmt.Errorf("DATABASE_PATH is not set")
	}

	dbConn, err := sqlmigrate.Open(cfg, true)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = dbConn.Close() }()

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelInfo})
	defer loggerClose()

	migrations, err := migrate.LoadDirMigrations(migrationDir)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	migrationManager, err := migrate.NewManager(dbConn, migrations, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if targetVersion == 0 {
		return migrationManager.ToLatest(ctx)
	}
	return migrationManager.ToVersion(ctx, targetVersion)
}
