package dialects

import (
	"database/sql"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
)

// DefaultSQLServerParamCeiling is the documented T-SQL limit on bound
// parameters per statement. Above it, list binding switches to a TVP.
const DefaultSQLServerParamCeiling = 2100

// BigIntListTypeName is the user-defined table type used for TVP list
// binding. It must exist in the target database:
//
//	CREATE TYPE dbo.BigIntList AS TABLE (Value BIGINT NOT NULL)
const BigIntListTypeName = "dbo.BigIntList"

// SQLServerDialect implements the T-SQL dialect.
type SQLServerDialect struct {
	// Ceiling overrides the parameter-count ceiling when > 0.
	Ceiling int
}

func init() {
	Register("sqlserver", &SQLServerDialect{})
	Register("mssql", &SQLServerDialect{})
}

// Name returns "sqlserver".
func (d *SQLServerDialect) Name() string { return "sqlserver" }

// ParamPrefix returns "@".
func (d *SQLServerDialect) ParamPrefix() string { return "@" }

// Placeholder returns the T-SQL placeholder token (@name).
func (d *SQLServerDialect) Placeholder(name string) string { return "@" + name }

// QuoteIdentifier quotes an identifier using square brackets.
func (d *SQLServerDialect) QuoteIdentifier(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// ParamCeiling returns the T-SQL parameter-count ceiling.
func (d *SQLServerDialect) ParamCeiling() int {
	if d.Ceiling > 0 {
		return d.Ceiling
	}
	return DefaultSQLServerParamCeiling
}

// SupportsTVP reports true; SQL Server accepts table-valued parameters.
func (d *SQLServerDialect) SupportsTVP() bool { return true }

// ListSetFragment emits an IN over the TVP's Value column.
func (d *SQLServerDialect) ListSetFragment(field, placeholder string, negate bool) string {
	op := "IN"
	if negate {
		op = "NOT IN"
	}
	return field + " " + op + " (SELECT [Value] FROM " + placeholder + ")"
}

// bigIntRow is the row shape of the dbo.BigIntList table type.
type bigIntRow struct {
	Value int64
}

// ListSetValue wraps the id list in a table-valued parameter.
func (d *SQLServerDialect) ListSetValue(values []int64) interface{} {
	rows := make([]bigIntRow, len(values))
	for i, v := range values {
		rows[i] = bigIntRow{Value: v}
	}
	return mssql.TVP{TypeName: BigIntListTypeName, Value: rows}
}

// IdentityQuery returns the SCOPE_IDENTITY retrieval select, batched onto
// the INSERT by the engine because SCOPE_IDENTITY is NULL outside the
// inserting batch.
func (d *SQLServerDialect) IdentityQuery() string {
	return "SELECT CAST(SCOPE_IDENTITY() AS BIGINT)"
}

// LimitClause returns the OFFSET/FETCH pagination clause.
// Requires an ORDER BY on the statement, which the list engine guarantees.
func (d *SQLServerDialect) LimitClause(startPlaceholder, limitPlaceholder string) string {
	return " OFFSET " + startPlaceholder + " ROWS FETCH NEXT " + limitPlaceholder + " ROWS ONLY"
}

// BoolLiteral renders booleans as BIT literals.
func (d *SQLServerDialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// FormatDateTime renders a timestamp in ODBC canonical form.
func (d *SQLServerDialect) FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// Finalize passes parameters through as sql.Named arguments; the driver
// binds @name placeholders natively, so the SQL text is unchanged.
func (d *SQLServerDialect) Finalize(sqlText string, params []Param) (string, []interface{}) {
	args := make([]interface{}, len(params))
	for i, p := range params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return sqlText, args
}
