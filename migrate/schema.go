/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// VersionState classifies a raw schema version against the known migration set.
type VersionState int

// Version states.
const (
	// VersionNoneSet means no schema version has ever been written (raw value 0).
	VersionNoneSet VersionState = iota
	// VersionInside means the version lies within the range of defined migrations.
	VersionInside
	// VersionOutside means the version is higher than any defined migration.
	VersionOutside
)

// SchemaVersion is a raw schema version paired with its classification
// against a migration set. Ordering between schema versions is numeric on
// the raw value.
type SchemaVersion struct {
	value uint64
	state VersionState
}

// classifyVersion classifies a raw version against a set of max defined migrations.
func classifyVersion(raw uint64, max int) SchemaVersion {
	switch {
	case raw == 0:
		return SchemaVersion{state: VersionNoneSet}
	case raw <= uint64(max):
		return SchemaVersion{value: raw, state: VersionInside}
	default:
		return SchemaVersion{value: raw, state: VersionOutside}
	}
}

// Value returns the raw schema version as stored in the database.
func (sv SchemaVersion) Value() uint64 {
	return sv.value
}

// State returns the classification of the schema version.
func (sv SchemaVersion) State() VersionState {
	return sv.state
}

// String implements fmt.Stringer interface.
func (sv SchemaVersion) String() string {
	switch sv.state {
	case VersionInside:
		return fmt.Sprintf("%d (inside)", sv.value)
	case VersionOutside:
		return fmt.Sprintf("%d (outside)", sv.value)
	default:
		return "0 (no version set)"
	}
}

// sqlQuerier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// readUserVersion reads the persisted schema version counter.
// SQLite returns 0 for databases where the pragma was never written.
func readUserVersion(ctx context.Context, q sqlQuerier) (uint64, error) {
	const query = "PRAGMA user_version"
	var v int64
	if err := q.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return 0, fmt.Errorf("query %q: %w", query, err)
	}
	return uint64(v), nil
}

// setUserVersion writes the schema version counter within the passed transaction.
// It must be called exactly once per migration run, right before commit.
func setUserVersion(ctx context.Context, tx *sql.Tx, v uint64) error {
	// Pragma values cannot be bound as query parameters.
	query := fmt.Sprintf("PRAGMA user_version = %d", v)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("query %q: %w", query, err)
	}
	return nil
}
