/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"

	// The SQLite driver is needed for Validate, which runs the migration
	// set against a throwaway in-memory database.
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// MetricsCollector is an interface for collecting metrics about executed migration steps.
type MetricsCollector interface {
	// ObserveStepDuration observes the duration of a single executed migration step.
	ObserveStepDuration(migration string, direction Direction, duration time.Duration)
}

// Manager applies an ordered set of schema migrations to a SQLite database.
// Progress is tracked in the database itself via the user_version pragma:
// version N means the first N migrations of the set have been applied.
//
// Each transition (upward or downward) is executed as a single transaction;
// the version counter is written right before commit, so a failed run
// leaves the database exactly as it was.
//
// Manager does not coordinate concurrent runs against the same database;
// serializing access is the caller's responsibility (see the runlock package).
type Manager struct {
	db         *sql.DB
	migrations []*Migration
	logger     log.FieldLogger
	metrics    MetricsCollector
}

// ManagerOption is a functional option for Manager configuration.
type ManagerOption func(*Manager)

// WithMetrics sets a collector of metrics about executed migration steps.
func WithMetrics(mc MetricsCollector) ManagerOption {
	return func(m *Manager) {
		m.metrics = mc
	}
}

// NewManager creates a new migration manager owning the passed migration set.
// The set must be ordered: the migration at index i carries version i+1.
// Contiguous numbering is the loader's responsibility (see LoadDirMigrations).
func NewManager(db *sql.DB, migrations []*Migration, logger log.FieldLogger, options ...ManagerOption) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	m := &Manager{
		db:         db,
		migrations: append([]*Migration(nil), migrations...),
		logger:     logger,
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// LatestVersion returns the highest version defined in the migration set.
func (m *Manager) LatestVersion() uint64 {
	return uint64(len(m.migrations))
}

// CurrentVersion reads the database's schema version and classifies it
// against the owned migration set. It has no side effects.
func (m *Manager) CurrentVersion(ctx context.Context) (SchemaVersion, error) {
	raw, err := readUserVersion(ctx, m.db)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("read schema version: %w", err)
	}
	return classifyVersion(raw, len(m.migrations)), nil
}

// ToLatest migrates the database up to the latest defined version.
func (m *Manager) ToLatest(ctx context.Context) error {
	if len(m.migrations) == 0 {
		m.logger.Warn("no migrations defined")
		return ErrNoMigrations
	}
	return m.gotoVersion(ctx, m.LatestVersion())
}

// ToVersion migrates the database up or down to the requested version.
// The requested version must be representable in the owned migration set
// (0 for an empty database, at most the latest defined version).
func (m *Manager) ToVersion(ctx context.Context, target uint64) error {
	if len(m.migrations) == 0 {
		m.logger.Warn("no migrations defined")
		return ErrNoMigrations
	}
	if classifyVersion(target, len(m.migrations)).State() == VersionOutside {
		m.logger.Warn(fmt.Sprintf("requested version %d is higher than the latest defined version %d",
			target, m.LatestVersion()))
		return fmt.Errorf("%w: requested %d, latest is %d", ErrTargetOutOfRange, target, m.LatestVersion())
	}
	return m.gotoVersion(ctx, target)
}

// Validate runs every migration against a throwaway in-memory database,
// letting callers catch broken scripts without touching a real one.
func (m *Manager) Validate(ctx context.Context) error {
	tmpDB, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return fmt.Errorf("open in-memory database: %w", err)
	}
	defer func() { _ = tmpDB.Close() }()

	tmp := &Manager{db: tmpDB, migrations: m.migrations, logger: m.logger, metrics: m.metrics}
	return tmp.ToLatest(ctx)
}

// gotoVersion brings the database to the target version.
// The target must already be validated against the migration set.
func (m *Manager) gotoVersion(ctx context.Context, target uint64) error {
	current, err := readUserVersion(ctx, m.db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case target == current:
		m.logger.Debug("no migration to run, database already at the requested version")
		return nil
	case target < current:
		if current > m.LatestVersion() {
			m.logger.Warn(fmt.Sprintf("cannot migrate down: current version is %d, latest defined is %d",
				current, m.LatestVersion()))
			return fmt.Errorf("%w: current version is %d, latest defined is %d",
				ErrDatabaseAhead, current, m.LatestVersion())
		}
		m.logger.Debug(fmt.Sprintf("migrating down, current version: %d, target version: %d", current, target))
		if err = m.migrateDown(ctx, current, target); err != nil {
			return err
		}
	default:
		m.logger.Debug(fmt.Sprintf("migrating up, current version: %d, target version: %d", current, target))
		if err = m.migrateUp(ctx, current, target); err != nil {
			return err
		}
	}

	m.logger.Info(fmt.Sprintf("database migrated to version %d", target))
	return nil
}

// migrateUp applies migrations with versions in (current, target] in ascending
// order within a single transaction and persists the target version before commit.
func (m *Manager) migrateUp(ctx context.Context, current, target uint64) error {
	return m.runInTx(ctx, func(tx *sql.Tx) error {
		for v := current; v < target; v++ {
			if err := m.applyUp(ctx, tx, v+1, m.migrations[v]); err != nil {
				return err
			}
		}
		return setUserVersion(ctx, tx, target)
	})
}

// migrateDown reverts migrations with versions in (target, current] in
// descending order within a single transaction. Before anything is touched,
// every migration in the range is checked to define a down script.
func (m *Manager) migrateDown(ctx context.Context, current, target uint64) error {
	revs, err := m.revertibleRange(target, current)
	if err != nil {
		m.logger.Warn(fmt.Sprintf("cannot migrate down: %v", err))
		return err
	}

	return m.runInTx(ctx, func(tx *sql.Tx) error {
		for i := len(revs) - 1; i >= 0; i-- {
			if err := m.applyDown(ctx, tx, revs[i]); err != nil {
				return err
			}
		}
		return setUserVersion(ctx, tx, target)
	})
}

// revertibleRange builds pre-validated views of the migrations with versions
// in (target, current], in ascending order. It fails on the first migration
// that has no down script.
func (m *Manager) revertibleRange(target, current uint64) ([]revertibleMigration, error) {
	revs := make([]revertibleMigration, 0, current-target)
	for v := target; v < current; v++ {
		mig := m.migrations[v]
		downSQL, ok := mig.DownSQL()
		if !ok {
			return nil, &NotRevertibleError{Version: v + 1, Name: mig.Name()}
		}
		revs = append(revs, revertibleMigration{version: v + 1, migration: mig, downSQL: downSQL})
	}
	return revs, nil
}

// applyUp executes a single migration in the up direction:
// up script, optional foreign key check, optional up hook.
func (m *Manager) applyUp(ctx context.Context, tx *sql.Tx, version uint64, mig *Migration) error {
	m.logger.Debug(fmt.Sprintf("applying migration %d (%s)", version, mig.Name()))
	start := time.Now()

	if _, err := tx.ExecContext(ctx, mig.UpSQL()); err != nil {
		return fmt.Errorf("migration %d (%s): execute up script: %w", version, mig.Name(), err)
	}
	if mig.foreignKeyCheck {
		if err := checkForeignKeys(ctx, tx); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version, mig.Name(), err)
		}
	}
	if mig.upHook != nil {
		if err := mig.upHook(ctx, tx); err != nil {
			return fmt.Errorf("migration %d (%s): up hook: %w", version, mig.Name(), err)
		}
	}

	m.observeStep(mig.Name(), DirectionUp, time.Since(start))
	return nil
}

// applyDown executes a single migration in the down direction:
// optional down hook first, then the down script.
func (m *Manager) applyDown(ctx context.Context, tx *sql.Tx, rev revertibleMigration) error {
	m.logger.Debug(fmt.Sprintf("reverting migration %d (%s)", rev.version, rev.migration.Name()))
	start := time.Now()

	if rev.migration.downHook != nil {
		if err := rev.migration.downHook(ctx, tx); err != nil {
			return fmt.Errorf("migration %d (%s): down hook: %w", rev.version, rev.migration.Name(), err)
		}
	}
	if _, err := tx.ExecContext(ctx, rev.downSQL); err != nil {
		return fmt.Errorf("migration %d (%s): execute down script: %w", rev.version, rev.migration.Name(), err)
	}

	m.observeStep(rev.migration.Name(), DirectionDown, time.Since(start))
	return nil
}

func (m *Manager) observeStep(migration string, direction Direction, duration time.Duration) {
	if m.metrics != nil {
		m.metrics.ObserveStepDuration(migration, direction, duration)
	}
}

// runInTx executes fn within a new transaction and commits it.
// Any error rolls the whole transaction back.
func (m *Manager) runInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint: errcheck

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
