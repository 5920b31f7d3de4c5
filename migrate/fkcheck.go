/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ForeignKeyViolationError describes the first row reported by PRAGMA foreign_key_check.
// A single violation is sufficient to abort the enclosing transition.
type ForeignKeyViolationError struct {
	Table  string
	RowID  sql.NullInt64
	Parent string
	FKID   int64
}

// Error implements the error interface.
func (e *ForeignKeyViolationError) Error() string {
	rowID := "?"
	if e.RowID.Valid {
		rowID = fmt.Sprintf("%d", e.RowID.Int64)
	}
	return fmt.Sprintf("foreign key violation: table %q, rowid %s, parent %q, fkid %d",
		e.Table, rowID, e.Parent, e.FKID)
}

// checkForeignKeys validates that no foreign key constraints are violated
// within the passed transaction. The first violation row is turned into a
// ForeignKeyViolationError.
func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	const query = "PRAGMA foreign_key_check"
	var violation ForeignKeyViolationError
	err := tx.QueryRowContext(ctx, query).
		Scan(&violation.Table, &violation.RowID, &violation.Parent, &violation.FKID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query %q: %w", query, err)
	}
	return &violation
}
