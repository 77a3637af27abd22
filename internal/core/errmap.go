package core

import (
	"errors"
	"regexp"

	"github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
)

// SQL Server and MySQL error numbers for unique-constraint violations.
// Detected during Save so a duplicate key surfaces as a readable message
// instead of raw driver text.
const (
	mssqlUniqueConstraint = 2627
	mssqlUniqueIndex      = 2601
	mysqlDuplicateEntry   = 1062
)

// IsDuplicateKey reports whether err is a vendor unique-violation error.
func IsDuplicateKey(err error) bool {
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Number == mssqlUniqueConstraint || sqlErr.Number == mssqlUniqueIndex
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return false
}

// ErrorMapper rewrites raw driver error text into readable messages using a
// configurable pattern table. Unmapped errors pass through unchanged.
type ErrorMapper struct {
	rules []mapRule
}

type mapRule struct {
	pattern *regexp.Regexp
	message string
}

// NewErrorMapper creates a mapper with the default rule set.
func NewErrorMapper() *ErrorMapper {
	m := &ErrorMapper{}
	m.AddRule(`(?i)duplicate (key|entry)`, "a record with the same unique value already exists")
	m.AddRule(`(?i)(foreign key|reference) constraint`, "the record is referenced by other data and cannot be changed")
	m.AddRule(`(?i)string or binary data would be truncated`, "one of the values is too long for its column")
	return m
}

// AddRule appends a pattern/message pair. Patterns are tried in order and
// the first match wins.
func (m *ErrorMapper) AddRule(pattern, message string) {
	m.rules = append(m.rules, mapRule{
		pattern: regexp.MustCompile(pattern),
		message: message,
	})
}

// Map returns err wrapped with a readable message when a rule matches,
// otherwise err unchanged.
func (m *ErrorMapper) Map(err error) error {
	if err == nil || m == nil {
		return err
	}
	text := err.Error()
	for _, r := range m.rules {
		if r.pattern.MatchString(text) {
			return WrapError(err, r.message)
		}
	}
	return err
}
