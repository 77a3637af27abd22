package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bizcore/bizcore/internal/tracer"
)

// Record is one scanned result row, keyed by column name.
type Record map[string]interface{}

// Int64 reads a column as int64, tolerating the driver-dependent integer
// shapes a dynamic scan produces.
func (r Record) Int64(col string) int64 {
	n, _ := toInt64(r[col])
	return n
}

// String reads a column as string, "" when absent or NULL.
func (r Record) String(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return valueString(v)
}

// prepare resolves a prepared statement, via the transaction (uncached) or
// the LRU statement cache.
func (db *DB) prepare(ctx context.Context, tx *Tx, sqlText string) (*sql.Stmt, bool, error) {
	if tx != nil {
		stmt, err := tx.tx.PrepareContext(ctx, sqlText)
		if err != nil {
			return nil, false, err
		}
		return stmt, true, nil // caller closes
	}
	if stmt, ok := db.stmtCache.Get(sqlText); ok {
		return stmt, false, nil
	}
	stmt, err := db.sqlDB.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, false, err
	}
	db.stmtCache.Set(sqlText, stmt)
	return stmt, false, nil
}

// requestIDKey tags a context with the caller's correlation id.
type requestIDKey struct{}

// withRequestID stamps the caller's request id into the context so every
// statement executed on its behalf logs the same correlation id.
func withRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id.String())
}

// requestIDFrom reads the correlation id, "" when the context is untagged.
func requestIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}

// logStatement logs one executed statement with masked parameters.
func (db *DB) logStatement(ctx context.Context, sqlText string, ps *ParamSet, elapsed time.Duration, rows int64, err error) {
	params := ps.Params()
	names := make([]string, len(params))
	values := make([]any, len(params))
	for i, p := range params {
		names[i] = p.Name
		values[i] = p.Value
	}
	formatted := db.sanitizer.FormatParams(names, values)

	args := []any{
		"sql", sqlText,
		"params", formatted,
		"duration_ms", elapsed.Milliseconds(),
		"dialect", db.dialect.Name(),
	}
	if rid := requestIDFrom(ctx); rid != "" {
		args = append(args, "request_id", rid)
	}

	if err != nil {
		db.logger.Error("statement failed", append(args, "error", err)...)
		return
	}
	db.logger.Info("statement executed", append(args, "rows", rows)...)
}

// traceStatement records span attributes for one executed statement.
func traceStatement(span tracer.Span, db *DB, sqlText string, elapsed time.Duration, rows int64, err error) {
	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          sqlText,
		Duration:     elapsed,
		RowsAffected: rows,
		Error:        err,
		Database:     db.dialect.Name(),
		Operation:    tracer.DetectOperation(sqlText),
	})
}

// queryRecords runs a SELECT and scans every row into a Record.
func (db *DB) queryRecords(ctx context.Context, tx *Tx, sqlText string, ps *ParamSet) ([]Record, error) {
	finalSQL, args := ps.Finalize(sqlText)

	ctx, span := db.tracer.StartSpan(ctx, "engine.query")
	defer span.End()
	start := time.Now()

	stmt, needsClose, err := db.prepare(ctx, tx, finalSQL)
	if err != nil {
		db.logStatement(ctx, finalSQL, ps, time.Since(start), 0, err)
		return nil, err
	}
	if needsClose {
		defer func() { _ = stmt.Close() }()
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		elapsed := time.Since(start)
		db.logStatement(ctx, finalSQL, ps, elapsed, 0, err)
		traceStatement(span, db, finalSQL, elapsed, 0, err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows)
	elapsed := time.Since(start)
	db.logStatement(ctx, finalSQL, ps, elapsed, int64(len(records)), err)
	traceStatement(span, db, finalSQL, elapsed, int64(len(records)), err)
	return records, err
}

// queryScalar runs a SELECT expected to return one value; ErrNoRows when
// the result set is empty.
func (db *DB) queryScalar(ctx context.Context, tx *Tx, sqlText string, ps *ParamSet) (interface{}, error) {
	records, err := db.queryRecords(ctx, tx, sqlText, ps)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sql.ErrNoRows
	}
	for _, v := range records[0] {
		return v, nil
	}
	return nil, sql.ErrNoRows
}

// execStmt runs a mutating statement and returns the affected-row count.
func (db *DB) execStmt(ctx context.Context, tx *Tx, sqlText string, ps *ParamSet) (int64, error) {
	finalSQL, args := ps.Finalize(sqlText)

	ctx, span := db.tracer.StartSpan(ctx, "engine.exec")
	defer span.End()
	start := time.Now()

	stmt, needsClose, err := db.prepare(ctx, tx, finalSQL)
	if err != nil {
		db.logStatement(ctx, finalSQL, ps, time.Since(start), 0, err)
		return 0, err
	}
	if needsClose {
		defer func() { _ = stmt.Close() }()
	}

	result, err := stmt.ExecContext(ctx, args...)
	elapsed := time.Since(start)

	var affected int64
	if result != nil {
		affected, _ = result.RowsAffected()
	}
	db.logStatement(ctx, finalSQL, ps, elapsed, affected, err)
	traceStatement(span, db, finalSQL, elapsed, affected, err)
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// identityBatch appends the dialect's identity retrieval to the insert so
// both statements execute in one batch on one scope.
func identityBatch(insertSQL, idQuery string) string {
	return insertSQL + ";\n" + idQuery
}

// execInsert runs an INSERT and retrieves the generated identity, either by
// batching the dialect's identity statement onto the INSERT and reading the
// returned scalar, or from the driver result when the dialect has none.
func (db *DB) execInsert(ctx context.Context, tx *Tx, sqlText string, ps *ParamSet) (int64, error) {
	if idQuery := db.dialect.IdentityQuery(); idQuery != "" {
		// SCOPE_IDENTITY() resolves per batch, so the retrieval select
		// must ride the same batch as the INSERT.
		v, err := db.queryScalar(ctx, tx, identityBatch(sqlText, idQuery), ps)
		if err != nil {
			return 0, err
		}
		id, ok := toInt64(v)
		if !ok {
			return 0, Validationf("identity query returned non-numeric value %v", v)
		}
		return id, nil
	}

	finalSQL, args := ps.Finalize(sqlText)

	ctx, span := db.tracer.StartSpan(ctx, "engine.exec")
	defer span.End()
	start := time.Now()

	stmt, needsClose, err := db.prepare(ctx, tx, finalSQL)
	if err != nil {
		db.logStatement(ctx, finalSQL, ps, time.Since(start), 0, err)
		return 0, err
	}
	if needsClose {
		defer func() { _ = stmt.Close() }()
	}

	result, err := stmt.ExecContext(ctx, args...)
	elapsed := time.Since(start)
	var affected int64
	if result != nil {
		affected, _ = result.RowsAffected()
	}
	db.logStatement(ctx, finalSQL, ps, elapsed, affected, err)
	traceStatement(span, db, finalSQL, elapsed, affected, err)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
