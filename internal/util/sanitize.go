// Package util provides identifier sanitation helpers shared by the query
// engine.
package util

import (
	"regexp"
	"strings"
)

// Sort and group fields cannot be parameterized, so character stripping is
// the injection defense for those clauses specifically.
var (
	orderFieldIllegal = regexp.MustCompile(`[^A-Za-z0-9_. ]`)
	identifierStrip   = regexp.MustCompile(`\W`)
)

// SanitizeSortField keeps the leading run of [A-Za-z0-9_. ] characters of a
// single sort field, so qualified names and ASC/DESC suffixes survive.
// Everything from the first illegal character on is discarded, which keeps
// text smuggled in behind a statement terminator out of the clause.
func SanitizeSortField(field string) string {
	if loc := orderFieldIllegal.FindStringIndex(field); loc != nil {
		field = field[:loc[0]]
	}
	return strings.TrimSpace(field)
}

// SanitizeSortExpr sanitizes a comma-separated sort expression field by
// field, dropping entries that end up empty.
func SanitizeSortExpr(expr string) string {
	parts := strings.Split(expr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := SanitizeSortField(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

// SanitizeIdentifier removes every non-word character from an identifier.
func SanitizeIdentifier(ident string) string {
	return identifierStrip.ReplaceAllString(ident, "")
}
