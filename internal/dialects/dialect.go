// Package dialects provides database-specific SQL dialect implementations for
// SQL Server (T-SQL) and MySQL, handling named-parameter placeholders, identifier
// quoting, pagination clauses, identity retrieval, and the strategy used to bind
// large value lists.
package dialects

import "time"

// Param is a single named value bound to a statement.
// The dialect decides how it reaches the driver (sql.Named vs positional).
type Param struct {
	Name  string
	Value interface{}
}

// Dialect defines database-specific behaviors.
// All query-building components consume only this interface; no upstream code
// emits dialect-specific syntax directly.
type Dialect interface {
	// Name returns the dialect identifier ("sqlserver", "mysql").
	Name() string

	// ParamPrefix returns the placeholder prefix used in generated SQL
	// ("@" for T-SQL, ":" for MySQL).
	ParamPrefix() string

	// Placeholder returns the placeholder token for a named parameter.
	Placeholder(name string) string

	// QuoteIdentifier quotes a table or column identifier.
	QuoteIdentifier(string) string

	// ParamCeiling returns the maximum number of scalar parameters one
	// statement may carry before list binding switches to the aggregate
	// strategy (TVP or set-function fallback).
	ParamCeiling() int

	// SupportsTVP reports whether table-valued parameters are available.
	SupportsTVP() bool

	// ListSetFragment returns the boolean fragment testing membership of
	// field in the aggregate list parameter bound under placeholder.
	ListSetFragment(field, placeholder string, negate bool) string

	// ListSetValue converts an id list into the aggregate bind value
	// (a TVP for T-SQL, a CSV string for MySQL).
	ListSetValue(values []int64) interface{}

	// IdentityQuery returns the select retrieving the generated identity,
	// or "" when the driver exposes it through sql.Result. The engine
	// appends it to the INSERT and runs both as one batch; on T-SQL the
	// identity function only resolves inside the inserting batch.
	IdentityQuery() string

	// LimitClause returns the pagination clause using the two already-bound
	// placeholders for the row offset and the page size.
	LimitClause(startPlaceholder, limitPlaceholder string) string

	// BoolLiteral renders a boolean constant.
	BoolLiteral(b bool) string

	// FormatDateTime renders a timestamp the way the engine expects
	// date-typed bind values to look.
	FormatDateTime(t time.Time) string

	// Finalize converts the accumulated named parameters into driver
	// arguments, rewriting placeholder tokens in the SQL text when the
	// driver only accepts positional parameters.
	Finalize(sqlText string, params []Param) (string, []interface{})
}

var registry = make(map[string]Dialect)

// Register registers a dialect under a driver name.
func Register(name string, d Dialect) {
	registry[name] = d
}

// Get retrieves a registered dialect by driver name, panics if not found.
func Get(name string) Dialect {
	if d, ok := registry[name]; ok {
		return d
	}
	panic("unsupported dialect: " + name)
}

// Lookup retrieves a registered dialect by driver name.
func Lookup(name string) (Dialect, bool) {
	d, ok := registry[name]
	return d, ok
}
