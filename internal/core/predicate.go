package core

import (
	"strings"
)

// PredicateSpec is the normalized per-field comparison consumed by the
// predicate compiler.
type PredicateSpec struct {
	// Operator defaults to "=".
	Operator string
	Value    interface{}
	// Type is the semantic type carried over from the filter DSL.
	Type string
	// SQLType optionally tags the bound parameter's SQL type; numeric types
	// trigger list-value coercion.
	SQLType string
	// Statement, when set, is emitted verbatim and every other attribute is
	// ignored.
	Statement string
	// Field overrides the map key as the emitted column reference
	// (used to redirect audit columns to their joined lookup alias).
	Field string
	// IgnoreNull defaults to true: nil values drop the predicate. Set to
	// false to turn a nil value into an explicit null test.
	IgnoreNull *bool
}

// FieldSpecs is an insertion-ordered map from field name to PredicateSpec. Iteration
// order is the order the caller built the map, which keeps generated SQL
// deterministic for testing.
type FieldSpecs struct {
	order []string
	specs map[string]PredicateSpec
}

// NewFieldSpecs creates an empty spec map.
func NewFieldSpecs() *FieldSpecs {
	return &FieldSpecs{specs: make(map[string]PredicateSpec)}
}

// Set stores a spec for a field, keeping first-insertion order on updates.
func (fs *FieldSpecs) Set(field string, spec PredicateSpec) *FieldSpecs {
	if _, ok := fs.specs[field]; !ok {
		fs.order = append(fs.order, field)
	}
	fs.specs[field] = spec
	return fs
}

// Get returns the spec stored for field.
func (fs *FieldSpecs) Get(field string) (PredicateSpec, bool) {
	s, ok := fs.specs[field]
	return s, ok
}

// Len returns the number of fields.
func (fs *FieldSpecs) Len() int { return len(fs.order) }

// Merge appends every entry of other, preserving insertion order.
func (fs *FieldSpecs) Merge(other *FieldSpecs) *FieldSpecs {
	if other == nil {
		return fs
	}
	for _, f := range other.order {
		fs.Set(f, other.specs[f])
	}
	return fs
}

// scalar comparison operators the compiler will emit as-is.
var scalarOps = map[string]string{
	"=": "=", "!=": "!=", "<>": "<>",
	">": ">", "<": "<", ">=": ">=", "<=": "<=",
	"like": "LIKE", "not like": "NOT LIKE",
}

func isListOperator(op string) bool {
	switch op {
	case "in", "not in", "between", "not between":
		return true
	}
	return false
}

// CompilePredicates turns the spec map into a SQL boolean fragment,
// registering parameters into ps as a side effect. Fields are visited in
// insertion order. When combineForWhere is true the fragments are joined
// with AND and prefixed with WHERE; otherwise the bare conjunction is
// returned for the caller to splice elsewhere.
func CompilePredicates(ps *ParamSet, specs *FieldSpecs, combineForWhere bool) (string, error) {
	if specs == nil {
		return "", nil
	}

	var parts []string
	for _, key := range specs.order {
		spec := specs.specs[key]

		if spec.Statement != "" {
			parts = append(parts, spec.Statement)
			continue
		}

		field := spec.Field
		if field == "" {
			field = key
		}
		op := strings.ToLower(strings.TrimSpace(spec.Operator))
		if op == "" {
			op = "="
		}

		// Null-sentinel operators emit regardless of value.
		if op == "is null" || op == "is not null" {
			parts = append(parts, field+" "+strings.ToUpper(op))
			continue
		}

		ignoreNull := spec.IgnoreNull == nil || *spec.IgnoreNull
		if spec.Value == nil {
			if ignoreNull {
				continue
			}
			switch op {
			case "=":
				parts = append(parts, field+" IS NULL")
			case "!=", "<>":
				parts = append(parts, field+" IS NOT NULL")
			}
			continue
		}

		values, isSlice := asSlice(spec.Value)
		if isSlice || isListOperator(op) {
			if !isSlice {
				values = []interface{}{spec.Value}
			}
			frag, n, err := ps.BindList(field, key, values, ListOptions{
				Operator: op,
				SQLType:  spec.SQLType,
			})
			if err != nil {
				return "", err
			}
			if n == 0 {
				continue
			}
			parts = append(parts, frag)
			continue
		}

		sqlOp, ok := scalarOps[op]
		if !ok {
			return "", Validationf("unsupported operator %q for field %s", spec.Operator, key)
		}
		placeholder := ps.Bind(key, spec.Value)
		parts = append(parts, field+" "+sqlOp+" "+placeholder)
	}

	if len(parts) == 0 {
		return "", nil
	}
	joined := strings.Join(parts, " AND ")
	if combineForWhere {
		return " WHERE " + joined, nil
	}
	return joined, nil
}

// asSlice normalizes the common slice shapes a filter value may arrive in
// (JSON decoding yields []interface{}; callers may pass typed slices).
func asSlice(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]interface{}, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]interface{}, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}
