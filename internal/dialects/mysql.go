package dialects

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultMySQLParamCeiling is the practical bound-parameter limit for the
// MySQL wire protocol (16-bit parameter count in COM_STMT_PREPARE).
const DefaultMySQLParamCeiling = 65535

// MySQLDialect implements the MySQL dialect.
//
// The driver accepts only positional "?" placeholders, so generated SQL
// carries :name tokens until Finalize rewrites them. String literals are
// never inlined into statement text (all values are bound), so a ":" can
// only appear as a parameter token.
type MySQLDialect struct {
	// Ceiling overrides the parameter-count ceiling when > 0.
	Ceiling int
}

func init() {
	Register("mysql", &MySQLDialect{})
}

// namedTokenRegex matches :name parameter tokens in generated SQL.
var namedTokenRegex = regexp.MustCompile(`:([A-Za-z_]\w*)`)

// Name returns "mysql".
func (d *MySQLDialect) Name() string { return "mysql" }

// ParamPrefix returns ":".
func (d *MySQLDialect) ParamPrefix() string { return ":" }

// Placeholder returns the named placeholder token (:name).
func (d *MySQLDialect) Placeholder(name string) string { return ":" + name }

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// ParamCeiling returns the MySQL parameter-count ceiling.
func (d *MySQLDialect) ParamCeiling() int {
	if d.Ceiling > 0 {
		return d.Ceiling
	}
	return DefaultMySQLParamCeiling
}

// SupportsTVP reports false; MySQL has no table-valued parameters.
func (d *MySQLDialect) SupportsTVP() bool { return false }

// ListSetFragment falls back to FIND_IN_SET against a CSV parameter.
func (d *MySQLDialect) ListSetFragment(field, placeholder string, negate bool) string {
	if negate {
		return "FIND_IN_SET(" + field + ", " + placeholder + ") = 0"
	}
	return "FIND_IN_SET(" + field + ", " + placeholder + ") > 0"
}

// ListSetValue joins the id list into a CSV string for FIND_IN_SET.
func (d *MySQLDialect) ListSetValue(values []int64) interface{} {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// IdentityQuery returns "" because the driver surfaces generated keys
// through sql.Result.LastInsertId.
func (d *MySQLDialect) IdentityQuery() string { return "" }

// LimitClause returns the LIMIT offset, count pagination clause.
func (d *MySQLDialect) LimitClause(startPlaceholder, limitPlaceholder string) string {
	return " LIMIT " + startPlaceholder + ", " + limitPlaceholder
}

// BoolLiteral renders booleans as 1/0.
func (d *MySQLDialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// FormatDateTime renders a timestamp in MySQL DATETIME form.
func (d *MySQLDialect) FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// Finalize rewrites :name tokens to "?" in order of appearance and returns
// the positional argument list. A name appearing more than once in the SQL
// repeats its value at each position.
func (d *MySQLDialect) Finalize(sqlText string, params []Param) (string, []interface{}) {
	byName := make(map[string]interface{}, len(params))
	for _, p := range params {
		byName[p.Name] = p.Value
	}

	var args []interface{}
	rewritten := namedTokenRegex.ReplaceAllStringFunc(sqlText, func(match string) string {
		name := match[1:]
		v, ok := byName[name]
		if !ok {
			// Unbound token; leave it so the driver reports the fault.
			return match
		}
		args = append(args, v)
		return "?"
	})

	return rewritten, args
}
