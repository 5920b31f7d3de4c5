/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"errors"
	"fmt"
)

// ErrNoMigrations is returned when a transition is requested on an empty migration set.
var ErrNoMigrations = errors.New("no migrations defined")

// ErrTargetOutOfRange is returned when the requested version is higher than
// the latest defined migration. The request is rejected, never clamped.
var ErrTargetOutOfRange = errors.New("target version is higher than the latest defined migration")

// ErrDatabaseAhead is returned when a downward transition is requested while the
// database's current version is higher than any defined migration.
var ErrDatabaseAhead = errors.New("database schema version is ahead of the defined migrations")

// NotRevertibleError is returned by the pre-flight check of a downward
// transition when a migration in the requested range has no down script.
// Nothing is executed and no transaction is opened in that case.
type NotRevertibleError struct {
	Version uint64
	Name    string
}

// Error implements the error interface.
func (e *NotRevertibleError) Error() string {
	return fmt.Sprintf("migration %d (%s) has no down script", e.Version, e.Name)
}
