package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bizcore/bizcore/internal/dialects"
)

// ParamSet accumulates the named values bound while compiling one statement.
// It is owned exclusively by that statement build and discarded after
// execution; it is never shared across concurrent calls.
//
// Parameter names are unique within the set. Binding a name twice yields a
// suffixed variant (name, name_2, name_3, ...) so list expansions never
// collide with manually-chosen names.
type ParamSet struct {
	dialect dialects.Dialect
	params  []dialects.Param
	used    map[string]int
}

// NewParamSet creates an empty parameter set for the given dialect.
func NewParamSet(d dialects.Dialect) *ParamSet {
	return &ParamSet{dialect: d, used: make(map[string]int)}
}

// Dialect returns the dialect this set binds for.
func (ps *ParamSet) Dialect() dialects.Dialect { return ps.dialect }

// Params returns the accumulated bindings in registration order.
func (ps *ParamSet) Params() []dialects.Param { return ps.params }

// Len returns the number of bound parameters.
func (ps *ParamSet) Len() int { return len(ps.params) }

var paramNameStrip = regexp.MustCompile(`\W`)

// safeName reduces a field name to characters legal in a parameter name.
func safeName(name string) string {
	// A qualified field keeps only the portion after the last dot.
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = paramNameStrip.ReplaceAllString(name, "")
	if name == "" {
		name = "p"
	}
	return name
}

// Bind registers a scalar value and returns its placeholder token
// (@name for T-SQL, :name for MySQL).
func (ps *ParamSet) Bind(name string, value interface{}) string {
	name = safeName(name)
	n := ps.used[name]
	ps.used[name] = n + 1
	if n > 0 {
		name = name + "_" + strconv.Itoa(n+1)
	}
	ps.params = append(ps.params, dialects.Param{Name: name, Value: value})
	return ps.dialect.Placeholder(name)
}

// Finalize renders the statement text and driver arguments for execution.
func (ps *ParamSet) Finalize(sqlText string) (string, []interface{}) {
	return ps.dialect.Finalize(sqlText, ps.params)
}

// ListOptions controls list binding.
type ListOptions struct {
	// Operator is one of =, !=, in, not in, between, not between.
	// Equality operators are canonicalized to their IN forms.
	Operator string
	// SQLType tags the value type; numeric types trigger coercion.
	SQLType string
	// IgnoreZero drops values equal to zero after coercion.
	IgnoreZero bool
}

var numericTypes = map[string]bool{
	"int": true, "integer": true, "bigint": true, "smallint": true,
	"tinyint": true, "numeric": true, "decimal": true, "float": true,
	"real": true, "number": true,
}

func isNumericType(sqlType string) bool {
	return numericTypes[strings.ToLower(sqlType)]
}

// coerceNumeric validates and converts one list value to int64.
// Strings are trimmed and parsed; anything else but a Go integer is a
// validation error surfaced before any statement executes.
func coerceNumeric(v interface{}, param string) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, Validationf("invalid value %q for %s", t, param)
		}
		return n, nil
	default:
		return 0, Validationf("unsupported value type %T for %s", v, param)
	}
}

// canonicalListOp normalizes the operator to "IN" or "NOT IN", reporting
// whether the test is negated.
func canonicalListOp(op string) (string, bool, error) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "", "=", "in":
		return "IN", false, nil
	case "!=", "<>", "not in":
		return "NOT IN", true, nil
	default:
		return "", false, Validationf("operator %q is not a list operator", op)
	}
}

// BindList registers a set of values for membership testing and returns the
// predicate fragment plus the surviving value count. A zero count means the
// caller must omit the fragment entirely; no dialect ever sees "IN ()".
//
// Small sets explode into one uniquely-named placeholder per value. When
// the expanded count would push the statement past the dialect's parameter
// ceiling, the whole set binds as one aggregate parameter (a table-valued
// parameter on T-SQL, a CSV set-function fallback on MySQL). The caller
// only ever sees the returned fragment.
func (ps *ParamSet) BindList(field, prefix string, values []interface{}, opts ListOptions) (string, int, error) {
	op := strings.ToLower(strings.TrimSpace(opts.Operator))
	if op == "between" || op == "not between" {
		frag, err := ps.BindRange(field, prefix, values, op == "not between")
		if err != nil {
			return "", 0, err
		}
		return frag, len(values), nil
	}

	sqlOp, negate, err := canonicalListOp(opts.Operator)
	if err != nil {
		return "", 0, err
	}

	numeric := isNumericType(opts.SQLType)
	kept := make([]interface{}, 0, len(values))
	ints := make([]int64, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		if numeric {
			n, err := coerceNumeric(v, prefix)
			if err != nil {
				return "", 0, err
			}
			if opts.IgnoreZero && n == 0 {
				continue
			}
			kept = append(kept, n)
			ints = append(ints, n)
			continue
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return "", 0, nil
	}

	if ps.Len()+len(kept) > ps.dialect.ParamCeiling() {
		if !numeric {
			return "", 0, Validationf("too many values for %s (%d exceeds parameter ceiling)", prefix, len(kept))
		}
		placeholder := ps.Bind(prefix, ps.dialect.ListSetValue(ints))
		return ps.dialect.ListSetFragment(field, placeholder, negate), len(kept), nil
	}

	tokens := make([]string, len(kept))
	for i, v := range kept {
		tokens[i] = ps.Bind(prefix+strconv.Itoa(i), v)
	}
	return field + " " + sqlOp + " (" + strings.Join(tokens, ", ") + ")", len(kept), nil
}

// BindRange registers the two bounds of a BETWEEN test. Any other value
// count is a caller error.
func (ps *ParamSet) BindRange(field, prefix string, values []interface{}, negate bool) (string, error) {
	if len(values) != 2 {
		return "", Validationf("range operator on %s requires exactly 2 values, got %d", field, len(values))
	}
	lo := ps.Bind(prefix+"0", values[0])
	hi := ps.Bind(prefix+"1", values[1])
	op := "BETWEEN"
	if negate {
		op = "NOT BETWEEN"
	}
	return field + " " + op + " " + lo + " AND " + hi, nil
}
