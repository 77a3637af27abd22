package core

import (
	"database/sql"
	"strconv"
)

// scanRecords reads every row of a dynamic result set into Records.
// Column shapes are not known at compile time (descriptors are data, not
// structs), so values scan through interface{} and normalize afterwards.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []Record
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeValue(values[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// normalizeValue converts driver-specific scan results into plain Go
// values: []byte becomes string, everything else passes through.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}

// toInt64 converts the integer shapes drivers hand back for numeric columns.
func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
