// Package core implements the business-object query engine: descriptor
// registry, filter translation, predicate compilation, parameter binding,
// and the list/load/save/delete statement assembly.
package core

import (
	"context"
	"database/sql"

	"github.com/bizcore/bizcore/internal/cache"
	"github.com/bizcore/bizcore/internal/dialects"
	"github.com/bizcore/bizcore/internal/logger"
	"github.com/bizcore/bizcore/internal/tracer"
)

// DB wraps a database/sql pool with the dialect, statement cache, logging,
// and tracing the engine needs. The dialect is injected here once and
// consumed everywhere through the DB; no component reads process-wide state.
type DB struct {
	sqlDB     *sql.DB
	driver    string
	dialect   dialects.Dialect
	stmtCache *cache.StmtCache
	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    tracer.Tracer
	errMap    *ErrorMapper
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithStmtCacheCapacity sets the prepared-statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCache = cache.WithCapacity(capacity)
	}
}

// WithLogger sets the statement logger.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		db.logger = l
	}
}

// WithTracer sets the tracing implementation.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		db.tracer = t
	}
}

// WithDialect overrides the dialect resolved from the driver name.
// Tests use this to drive the MySQL dialect over an in-memory database.
func WithDialect(d dialects.Dialect) Option {
	return func(db *DB) {
		db.dialect = d
	}
}

// WithErrorMapper replaces the driver-error mapping table.
func WithErrorMapper(m *ErrorMapper) Option {
	return func(db *DB) {
		db.errMap = m
	}
}

// WithSensitiveFields replaces the parameter names masked in logs.
func WithSensitiveFields(fields []string) Option {
	return func(db *DB) {
		db.sanitizer = logger.NewSanitizer(fields)
	}
}

// NewDB creates a DB over a fresh connection pool.
func NewDB(driverName, dsn string) (*DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return WrapDB(sqlDB, driverName), nil
}

// WrapDB adopts an existing pool. The dialect is resolved from the driver
// name unless overridden with WithDialect.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) *DB {
	db := &DB{
		sqlDB:     sqlDB,
		driver:    driverName,
		stmtCache: cache.New(),
		logger:    &logger.NoopLogger{},
		sanitizer: logger.NewSanitizer(nil),
		tracer:    &tracer.NoopTracer{},
		errMap:    NewErrorMapper(),
	}
	if d, ok := dialects.Lookup(driverName); ok {
		db.dialect = d
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.dialect == nil {
		// Unknown driver and no WithDialect override.
		db.dialect = dialects.Get(driverName)
	}
	return db
}

// Open creates a DB with options applied.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return WrapDB(sqlDB, driverName, opts...), nil
}

// Close releases the statement cache and the underlying pool.
func (db *DB) Close() error {
	db.stmtCache.Clear()
	return db.sqlDB.Close()
}

// Dialect returns the active dialect.
func (db *DB) Dialect() dialects.Dialect { return db.dialect }

// SQLDB exposes the underlying pool for schema setup and ad-hoc statements.
func (db *DB) SQLDB() *sql.DB { return db.sqlDB }

// Tx represents one transaction. Save and Delete sequences run inside a Tx
// so a partial failure between the parent write and relation reconciliation
// rolls back instead of leaving an orphan.
type Tx struct {
	tx   *sql.Tx
	db   *DB
	done bool
}

// Begin starts a transaction with default options.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with the given options.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.sqlDB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return t.tx.Commit()
}

// Rollback rolls back the transaction. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
