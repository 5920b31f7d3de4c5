/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"fmt"
	"net/url"
	"time"
)

// MakeSQLiteDSN makes DSN for opening SQLite database.
// The busy timeout is passed via the _busy_timeout query parameter
// understood by the github.com/mattn/go-sqlite3 driver.
func MakeSQLiteDSN(cfg *SQLiteConfig) string {
	busyTimeout := time.Duration(cfg.BusyTimeout)
	if busyTimeout <= 0 {
		return cfg.Path
	}
	query := url.Values{}
	query.Add("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	return fmt.Sprintf("file:%s?%s", cfg.Path, query.Encode())
}
