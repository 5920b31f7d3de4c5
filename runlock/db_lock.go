/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package runlock provides a database-backed lock that serializes whole
// migration runs against the same SQLite database. The migration engine
// itself is lock-free; runlock is for callers (like the sqlmigrate CLI)
// that may race with other processes.
package runlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/acronis/go-sqlmigrate/migrate"
)

// DefaultTableName is a default name for the table that stores locks.
const DefaultTableName = "migration_locks"

// DefaultLockKey is the key under which migration runs are serialized.
const DefaultLockKey = "schema-migration"

// ErrLockAlreadyAcquired is returned when the lock is held by somebody else.
var ErrLockAlreadyAcquired = errors.New("lock is already acquired")

// ErrLockAlreadyReleased is returned when the lock is not held anymore.
var ErrLockAlreadyReleased = errors.New("lock is already released")

// SQLExecutor is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// DBManager provides management functionality for database-backed locks.
type DBManager struct {
	queries dbQueries
	nowFn   func() time.Time
}

// DBManagerOption is an option for NewDBManager.
type DBManagerOption func(*dbManagerOptions)

type dbManagerOptions struct {
	tableName string
	nowFn     func() time.Time
}

// WithTableName sets a custom table name for the table that stores locks.
func WithTableName(tableName string) DBManagerOption {
	return func(o *dbManagerOptions) {
		o.tableName = tableName
	}
}

// withNowFunc overrides the clock. Used in tests.
func withNowFunc(nowFn func() time.Time) DBManagerOption {
	return func(o *dbManagerOptions) {
		o.nowFn = nowFn
	}
}

// NewDBManager creates a new lock manager that uses a SQLite database as a backend.
func NewDBManager(options ...DBManagerOption) *DBManager {
	opts := dbManagerOptions{tableName: DefaultTableName, nowFn: time.Now}
	for _, opt := range options {
		opt(&opts)
	}
	return &DBManager{queries: newDBQueries(opts.tableName), nowFn: opts.nowFn}
}

// Migrations returns the migration set that must be applied before creating new locks.
func (m *DBManager) Migrations() []*migrate.Migration {
	return []*migrate.Migration{
		migrate.NewMigration("0001-create_locks_table",
			m.CreateTableSQL(), migrate.WithDownSQL(m.DropTableSQL())),
	}
}

// CreateTableSQL returns SQL query for creating a table that stores locks.
func (m *DBManager) CreateTableSQL() string {
	return m.queries.createTable
}

// DropTableSQL returns SQL query for dropping a table that stores locks.
func (m *DBManager) DropTableSQL() string {
	return m.queries.dropTable
}

// NewLock creates new initialized (but not acquired) lock.
func (m *DBManager) NewLock(ctx context.Context, executor SQLExecutor, key string) (DBLock, error) {
	if key == "" {
		return DBLock{}, fmt.Errorf("lock key cannot be empty")
	}
	if len(key) > 40 {
		return DBLock{}, fmt.Errorf("lock key cannot be longer than 40 symbols")
	}
	if _, err := executor.ExecContext(ctx, m.queries.initLock, key); err != nil {
		return DBLock{}, fmt.Errorf("init lock with key %s: %w", key, err)
	}
	return DBLock{Key: key, manager: m}, nil
}

// DBLock represents a lock object in the database.
type DBLock struct {
	Key     string
	TTL     time.Duration
	token   string
	manager *DBManager
}

// Acquire acquires lock for the key in the database.
func (l *DBLock) Acquire(ctx context.Context, executor SQLExecutor, lockTTL time.Duration) error {
	token := uuid.NewString()
	now := l.manager.nowFn()
	err := execQueryAndCheckAffectedRow(ctx, executor, l.manager.queries.acquireLock,
		[]interface{}{now.Add(lockTTL).UnixMilli(), token, l.Key, now.UnixMilli(), token}, ErrLockAlreadyAcquired)
	if err != nil {
		return err
	}
	l.TTL = lockTTL
	l.token = token
	return nil
}

// AcquireWithRetry acquires the lock, retrying with exponential backoff while
// it is held by somebody else. It gives up when maxElapsedTime has passed or
// the context is canceled.
func (l *DBLock) AcquireWithRetry(
	ctx context.Context, dbConn *sql.DB, lockTTL time.Duration, maxElapsedTime time.Duration,
) error {
	bOff := backoff.NewExponentialBackOff()
	bOff.MaxElapsedTime = maxElapsedTime
	return backoff.Retry(func() error {
		if err := l.Acquire(ctx, dbConn, lockTTL); err != nil {
			if errors.Is(err, ErrLockAlreadyAcquired) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bOff, ctx))
}

// Release releases lock for the key in the database.
func (l *DBLock) Release(ctx context.Context, executor SQLExecutor) error {
	return execQueryAndCheckAffectedRow(ctx, executor, l.manager.queries.releaseLock,
		[]interface{}{l.Key, l.token, l.manager.nowFn().UnixMilli()}, ErrLockAlreadyReleased)
}

// Extend resets expiration timeout for already acquired lock.
// ErrLockAlreadyReleased error will be returned if lock is already released,
// in this case lock should be acquired again.
func (l *DBLock) Extend(ctx context.Context, executor SQLExecutor) error {
	now := l.manager.nowFn()
	return execQueryAndCheckAffectedRow(ctx, executor, l.manager.queries.extendLock,
		[]interface{}{now.Add(l.TTL).UnixMilli(), l.Key, l.token, now.UnixMilli()}, ErrLockAlreadyReleased)
}

// Token returns token of the last acquired lock.
// May be used in logs to make the investigation process easier.
func (l *DBLock) Token() string {
	return l.token
}

// Logger is an interface for logging errors.
type Logger interface {
	Errorf(format string, args ...interface{})
}

type doOptions struct {
	lockTTL                time.Duration
	acquireTimeout         time.Duration
	periodicExtendInterval time.Duration
	releaseTimeout         time.Duration
	logger                 Logger
}

// DoOption is an option for DoExclusively.
type DoOption func(*doOptions)

// WithLockTTL sets TTL for the lock acquired by DoExclusively.
func WithLockTTL(ttl time.Duration) DoOption {
	return func(o *doOptions) {
		o.lockTTL = ttl
	}
}

// WithAcquireTimeout sets how long DoExclusively keeps retrying to acquire
// a lock that is held by somebody else.
func WithAcquireTimeout(timeout time.Duration) DoOption {
	return func(o *doOptions) {
		o.acquireTimeout = timeout
	}
}

// WithPeriodicExtendInterval sets interval for periodic lock extension.
func WithPeriodicExtendInterval(interval time.Duration) DoOption {
	return func(o *doOptions) {
		o.periodicExtendInterval = interval
	}
}

// WithReleaseTimeout sets timeout for lock release.
func WithReleaseTimeout(timeout time.Duration) DoOption {
	return func(o *doOptions) {
		o.releaseTimeout = timeout
	}
}

// WithLogger sets logger for DoExclusively.
func WithLogger(logger Logger) DoOption {
	return func(o *doOptions) {
		o.logger = logger
	}
}

// DoExclusively acquires the lock, calls the passed function and releases the
// lock when the function is finished. The lock is acquired with a default TTL
// of 1 minute and extended periodically within a separate goroutine while the
// function runs.
func (l *DBLock) DoExclusively(
	ctx context.Context,
	dbConn *sql.DB,
	fn func(ctx context.Context) error,
	options ...DoOption,
) error {
	var opts doOptions
	for _, opt := range options {
		opt(&opts)
	}
	if opts.lockTTL == 0 {
		opts.lockTTL = 1 * time.Minute
	}
	if opts.acquireTimeout == 0 {
		opts.acquireTimeout = 30 * time.Second
	}
	if opts.periodicExtendInterval == 0 {
		opts.periodicExtendInterval = opts.lockTTL / 2
	}
	if opts.releaseTimeout == 0 {
		opts.releaseTimeout = 5 * time.Second
	}
	if opts.logger == nil {
		opts.logger = disabledLogger{}
	}

	if acquireLockErr := l.AcquireWithRetry(ctx, dbConn, opts.lockTTL, opts.acquireTimeout); acquireLockErr != nil {
		return acquireLockErr
	}

	//nolint:contextcheck // context.Background() is being used to allow lock release even
	// if the passed ctx is already canceled
	defer func() {
		releaseCtx, releaseCtxCancel := context.WithTimeout(context.Background(), opts.releaseTimeout)
		defer releaseCtxCancel()
		if releaseLockErr := l.Release(releaseCtx, dbConn); releaseLockErr != nil {
			opts.logger.Errorf("failed to release lock with key %s and token %s, error: %v",
				l.Key, l.token, releaseLockErr)
		}
	}()

	childCtx, childCtxCancel := context.WithCancel(ctx)
	defer childCtxCancel()

	periodicalExtensionExit := make(chan struct{})
	periodicalExtensionDone := make(chan struct{})
	defer func() {
		close(periodicalExtensionDone)
		<-periodicalExtensionExit
	}()

	go func() {
		defer func() { close(periodicalExtensionExit) }()
		ticker := time.NewTicker(opts.periodicExtendInterval)
		defer ticker.Stop()
		for {
			select {
			case <-periodicalExtensionDone:
				return
			case <-ticker.C:
				if extendErr := l.Extend(ctx, dbConn); extendErr != nil {
					opts.logger.Errorf("failed to extend lock with key %s and token %s, error: %v",
						l.Key, l.token, extendErr)
					if errors.Is(extendErr, ErrLockAlreadyReleased) {
						childCtxCancel() // If lock was already released, let's try to stop an exclusive job asap.
						return
					}
				}
			}
		}
	}()

	return fn(childCtx)
}

// DoExclusively creates the lock table if it is missing, initializes a lock
// with the given key and runs the passed function under it.
// See DBLock.DoExclusively for more details.
func DoExclusively(
	ctx context.Context,
	dbConn *sql.DB,
	key string,
	fn func(ctx context.Context) error,
	options ...DoOption,
) error {
	manager := NewDBManager()
	if _, err := dbConn.ExecContext(ctx, manager.CreateTableSQL()); err != nil {
		return fmt.Errorf("create lock table: %w", err)
	}
	lock, err := manager.NewLock(ctx, dbConn, key)
	if err != nil {
		return fmt.Errorf("create new lock: %w", err)
	}
	return lock.DoExclusively(ctx, dbConn, fn, options...)
}

func execQueryAndCheckAffectedRow(
	ctx context.Context, executor SQLExecutor, query string, args []interface{}, errOnNoAffectedRows error,
) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	// Drivers may swallow context cancellation happening mid-statement.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var affected int64
	if affected, err = result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return errOnNoAffectedRows
	}
	return nil
}

type dbQueries struct {
	createTable string
	dropTable   string
	initLock    string
	acquireLock string
	releaseLock string
	extendLock  string
}

// Expiration times are epoch milliseconds passed from Go: SQLite has no
// server-side clock with sub-second precision.
//
//nolint:lll
func newDBQueries(tableName string) dbQueries {
	return dbQueries{
		createTable: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (lock_key TEXT PRIMARY KEY, token TEXT, expire_at INTEGER);`, tableName),
		dropTable:   fmt.Sprintf(`DROP TABLE IF EXISTS "%s";`, tableName),
		initLock:    fmt.Sprintf(`INSERT INTO "%s" (lock_key) VALUES (?) ON CONFLICT (lock_key) DO NOTHING;`, tableName),
		acquireLock: fmt.Sprintf(`UPDATE "%s" SET expire_at = ?, token = ? WHERE lock_key = ? AND ((expire_at IS NULL OR expire_at < ?) OR token = ?);`, tableName),
		releaseLock: fmt.Sprintf(`UPDATE "%s" SET expire_at = NULL WHERE lock_key = ? AND token = ? AND expire_at >= ?;`, tableName),
		extendLock:  fmt.Sprintf(`UPDATE "%s" SET expire_at = ? WHERE lock_key = ? AND token = ? AND expire_at >= ?;`, tableName),
	}
}

type disabledLogger struct{}

func (disabledLogger) Errorf(msg string, args ...interface{}) {}
