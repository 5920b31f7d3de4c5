/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package migrate provides a schema migration engine for SQLite databases.
//
// The engine applies an ordered, versioned set of reversible migrations and
// tracks progress via the database's own user_version pragma: version N means
// the first N migrations of the set have been applied. Each run computes the
// delta between the current and the requested version and executes exactly
// the migrations needed, forward or backward, as one transaction.
//
// Key properties:
//   - Atomic runs: a failed migration rolls back the whole transition,
//     including the version counter.
//   - Fail-fast reverts: a downward transition is rejected before any
//     mutation if a migration in range has no down script.
//   - Optional per-migration foreign key checks and Go hooks executed
//     within the migration transaction.
//   - Directory and embed.FS loaders enforcing contiguous numbering.
//
// Basic usage:
//
//	migrations, err := migrate.LoadDirMigrations("migrations")
//	if err != nil {
//	    return err
//	}
//	mgr, err := migrate.NewManager(db, migrations, logger)
//	if err != nil {
//	    return err
//	}
//	if err := mgr.ToLatest(ctx); err != nil {
//	    return err
//	}
//
// Concurrent runs against the same database are not coordinated by the
// engine; see the runlock package for a database-backed lock that
// serializes whole migration runs.
package migrate
