/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate_test

import (
	"context"
	"fmt"

	"github.com/acronis/go-appkit/log"

	sqlmigrate "github.com/acronis/go-sqlmigrate"
	"github.com/acronis/go-sqlmigrate/migrate"
)

func Example() {
	cfg := sqlmigrate.NewDefaultConfig()
	cfg.SQLite.Path = ":memory:"

	dbConn, err := sqlmigrate.Open(cfg, true)
	if err != nil {
		panic(err)
	}
	defer func() { _ = dbConn.Close() }()

	logger, closeLogger := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelError})
	defer closeLogger()

	migrations := []*migrate.Migration{
		migrate.NewMigration("0001-create_users",
			"CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE)",
			migrate.WithDownSQL("DROP TABLE users")),
	}
	mgr, err := migrate.NewManager(dbConn, migrations, logger)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	if err = mgr.ToLatest(ctx); err != nil {
		panic(err)
	}
	current, err := mgr.CurrentVersion(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println(current)

	// Output: 1 (inside)
}
