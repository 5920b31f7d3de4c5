/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"database/sql"
)

// Direction defines the direction of schema migrations.
type Direction string

// Migration directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Hook is a side-effecting procedure executed over the active migration transaction.
// Hooks carry per-migration logic that cannot be expressed in SQL.
// An up hook runs after the up script, a down hook runs before the down script.
// A non-nil error aborts the whole transition and rolls the transaction back.
type Hook func(ctx context.Context, tx *sql.Tx) error

// Migration is one numbered unit of schema change: an up SQL batch and,
// when the migration is revertible, a down SQL batch.
// A Migration is immutable once constructed.
type Migration struct {
	name            string
	upSQL           string
	downSQL         string
	hasDown         bool
	upHook          Hook
	downHook        Hook
	foreignKeyCheck bool
}

// MigrationOption is a functional option for NewMigration.
type MigrationOption func(*Migration)

// WithDownSQL sets the down script, marking the migration as revertible.
// An empty string is a valid down script.
func WithDownSQL(downSQL string) MigrationOption {
	return func(m *Migration) {
		m.downSQL = downSQL
		m.hasDown = true
	}
}

// WithUpHook sets a hook invoked after the up script within the same transaction.
func WithUpHook(h Hook) MigrationOption {
	return func(m *Migration) {
		m.upHook = h
	}
}

// WithDownHook sets a hook invoked before the down script within the same transaction.
func WithDownHook(h Hook) MigrationOption {
	return func(m *Migration) {
		m.downHook = h
	}
}

// WithForeignKeyCheck enables a foreign key consistency check
// right after the up script is executed.
func WithForeignKeyCheck() MigrationOption {
	return func(m *Migration) {
		m.foreignKeyCheck = true
	}
}

// NewMigration creates a new Migration with the given display name and up script.
// The up script is executed verbatim as a single batch of statements.
func NewMigration(name, upSQL string, options ...MigrationOption) *Migration {
	m := &Migration{name: name, upSQL: upSQL}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Name returns the display name of the migration. It is used for diagnostics only.
func (m *Migration) Name() string {
	return m.name
}

// UpSQL returns the up script.
func (m *Migration) UpSQL() string {
	return m.upSQL
}

// DownSQL returns the down script and whether the migration defines one.
func (m *Migration) DownSQL() (string, bool) {
	return m.downSQL, m.hasDown
}

// Revertible reports whether the migration defines a down script.
func (m *Migration) Revertible() bool {
	return m.hasDown
}

// revertibleMigration is a view of a Migration whose down script presence
// has already been validated. The down executor accepts only this view, so
// the "no down script" branch cannot be reached after the pre-flight check.
type revertibleMigration struct {
	version   uint64
	migration *Migration
	downSQL   string
}
