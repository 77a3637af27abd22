package core

import (
	"fmt"
	"strings"
	"time"
)

// Filter is one entry of the client-supplied filter array.
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Type     string      `json:"type"`
}

// TranslateOptions adjusts filter translation to the query source.
type TranslateOptions struct {
	// AliasPrefix qualifies unqualified field names ("Main.").
	AliasPrefix string
	// ViewSource disables the audit-column alias redirect; list views
	// already project CreatedByUser/ModifiedByUser as real columns.
	ViewSource bool
	// UserDisplayColumn is the user-table column projected by the audit
	// lookup joins. Defaults to "UserName".
	UserDisplayColumn string
	// Now supplies the clock for isToday/isYesterday/isTomorrow.
	// Defaults to time.Now. Anchors are computed in UTC.
	Now func() time.Time
}

const (
	auditCreatedAlias  = "Created_"
	auditModifiedAlias = "Modified_"
	dayStartSuffix     = " 00:00:00"
	dayEndSuffix       = " 23:59:59"
)

func isDateType(t string) bool {
	return strings.HasPrefix(strings.ToLower(t), "date")
}

// isLocalType reports a timezone-naive datetime: day-boundary expansion is
// skipped and values pass through bare.
func isLocalType(t string) bool {
	return strings.EqualFold(t, "dateTimeLocal")
}

func valueString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// dayRange expands a date value into its start-of-day/end-of-day bounds,
// unless the value already is a two-element range.
func dayRange(v interface{}) []interface{} {
	if vs, ok := asSlice(v); ok && len(vs) == 2 {
		return vs
	}
	s := valueString(v)
	return []interface{}{s + dayStartSuffix, s + dayEndSuffix}
}

// TranslateFilters converts the filter array into the predicate compiler's
// field-to-spec map, applying per-operator semantic rules.
func TranslateFilters(filters []Filter, opts TranslateOptions) (*FieldSpecs, error) {
	if opts.UserDisplayColumn == "" {
		opts.UserDisplayColumn = "UserName"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	specs := NewFieldSpecs()
	for _, f := range filters {
		if f.Field == "" {
			return nil, Validationf("filter entry has no field")
		}
		spec, err := translateOne(f, opts, now)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			continue
		}
		if spec.Field == "" {
			spec.Field = qualifyFilterField(f.Field, opts)
		}
		specs.Set(f.Field, *spec)
	}
	return specs, nil
}

// qualifyFilterField resolves the column reference a filter targets.
// Audit columns are populated by LEFT JOINs to the user table, so filters
// on them redirect to the joined lookup alias instead of the main alias.
func qualifyFilterField(field string, opts TranslateOptions) string {
	if !opts.ViewSource {
		switch field {
		case "CreatedByUser":
			return auditCreatedAlias + "." + opts.UserDisplayColumn
		case "ModifiedByUser":
			return auditModifiedAlias + "." + opts.UserDisplayColumn
		}
	}
	if strings.Contains(field, ".") {
		return field
	}
	return opts.AliasPrefix + field
}

//nolint:cyclop // single flat dispatch over the operator table
func translateOne(f Filter, _ TranslateOptions, now func() time.Time) (*PredicateSpec, error) {
	ignoreNullOff := false

	switch f.Operator {
	case "contains":
		return &PredicateSpec{Operator: "like", Value: "%" + valueString(f.Value) + "%", Type: f.Type}, nil
	case "notContains", "doesNotContain":
		return &PredicateSpec{Operator: "not like", Value: "%" + valueString(f.Value) + "%", Type: f.Type}, nil
	case "startsWith":
		return &PredicateSpec{Operator: "like", Value: valueString(f.Value) + "%", Type: f.Type}, nil
	case "endsWith":
		return &PredicateSpec{Operator: "like", Value: "%" + valueString(f.Value), Type: f.Type}, nil

	case "=", "equals":
		v := f.Value
		if s, ok := v.(string); ok && s == "" {
			v = nil
		}
		return &PredicateSpec{Operator: "=", Value: v, Type: f.Type, IgnoreNull: &ignoreNullOff}, nil
	case "!=", "notEquals":
		v := f.Value
		if s, ok := v.(string); ok && s == "" {
			v = nil
		}
		return &PredicateSpec{Operator: "!=", Value: v, Type: f.Type, IgnoreNull: &ignoreNullOff}, nil

	case "isEmpty", "isBlank", "isNull":
		return &PredicateSpec{Operator: "is null"}, nil
	case "isNotEmpty", "isNotBlank", "isNotNull":
		return &PredicateSpec{Operator: "is not null"}, nil

	case ">", "greaterThan":
		return &PredicateSpec{Operator: ">", Value: f.Value, Type: f.Type}, nil
	case "<", "lessThan":
		return &PredicateSpec{Operator: "<", Value: f.Value, Type: f.Type}, nil
	case ">=", "greaterThanOrEqual":
		return &PredicateSpec{Operator: ">=", Value: f.Value, Type: f.Type}, nil
	case "<=", "lessThanOrEqual":
		return &PredicateSpec{Operator: "<=", Value: f.Value, Type: f.Type}, nil

	case "is":
		if isDateType(f.Type) && !isLocalType(f.Type) {
			return &PredicateSpec{Operator: "between", Value: dayRange(f.Value), Type: f.Type}, nil
		}
		return &PredicateSpec{Operator: "=", Value: f.Value, Type: f.Type}, nil
	case "not":
		if isDateType(f.Type) && !isLocalType(f.Type) {
			return &PredicateSpec{Operator: "not between", Value: dayRange(f.Value), Type: f.Type}, nil
		}
		return &PredicateSpec{Operator: "!=", Value: f.Value, Type: f.Type}, nil

	case "onOrAfter":
		return datedComparison(f, ">=", dayStartSuffix), nil
	case "after":
		return datedComparison(f, ">", dayEndSuffix), nil
	case "onOrBefore":
		return datedComparison(f, "<=", dayEndSuffix), nil
	case "before":
		return datedComparison(f, "<", dayStartSuffix), nil

	case "isAnyOf":
		values, ok := asSlice(f.Value)
		if !ok {
			return nil, Validationf("isAnyOf on %s requires an array value", f.Field)
		}
		return &PredicateSpec{Operator: "in", Value: values, Type: f.Type}, nil

	case "isTrue":
		return &PredicateSpec{Operator: "=", Value: true, SQLType: "bit"}, nil
	case "isFalse":
		return &PredicateSpec{Operator: "=", Value: false, SQLType: "bit"}, nil

	case "isToday":
		return dateAnchor(now, 0), nil
	case "isYesterday":
		return dateAnchor(now, -1), nil
	case "isTomorrow":
		return dateAnchor(now, 1), nil

	default:
		return nil, Validationf("unknown filter operator %q on field %s", f.Operator, f.Field)
	}
}

// datedComparison appends the day-start or day-end time to the value unless
// the semantic type is timezone-naive, in which case the bare value passes
// through.
func datedComparison(f Filter, op, suffix string) *PredicateSpec {
	v := f.Value
	if isDateType(f.Type) && !isLocalType(f.Type) {
		v = valueString(f.Value) + suffix
	}
	return &PredicateSpec{Operator: op, Value: v, Type: f.Type}
}

// dateAnchor builds the whole-day range test for a date offset by
// dayOffset from today, anchored in UTC at call time.
func dateAnchor(now func() time.Time, dayOffset int) *PredicateSpec {
	d := now().UTC().AddDate(0, 0, dayOffset).Format("2006-01-02")
	return &PredicateSpec{Operator: "between", Value: dayRange(d), Type: "date"}
}
