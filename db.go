/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the name under which the SQLite driver is registered in database/sql.
const DriverName = "sqlite3"

// Open opens a SQLite database using the passed configuration and optionally pings it.
func Open(cfg *Config, ping bool) (*sql.DB, error) {
	dbConn, err := sql.Open(DriverName, MakeSQLiteDSN(&cfg.SQLite))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if ping {
		if err = dbConn.Ping(); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}

	return dbConn, nil
}

// DoInTx begins a new transaction, calls the passed function and commits the transaction.
// The transaction is rolled back if the function returns an error or panics.
func DoInTx(ctx context.Context, dbConn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := dbConn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
