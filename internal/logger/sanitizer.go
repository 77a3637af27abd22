package logger

import (
	"fmt"
	"strings"
)

// Sanitizer masks sensitive values before query parameters reach the log.
// Because the engine binds named parameters, detection works on parameter
// names directly rather than on heuristics over the SQL text.
type Sanitizer struct {
	sensitive []string
	maskValue string
}

// NewSanitizer creates a sanitizer with the specified sensitive name
// fragments. If none are provided, a default set of common ones is used.
func NewSanitizer(sensitive []string) *Sanitizer {
	if len(sensitive) == 0 {
		sensitive = []string{
			"password", "passwd", "pwd",
			"token", "apikey", "api_key", "secret",
			"auth", "authorization",
			"ssn", "creditcard", "cardnumber", "cvv",
		}
	}
	return &Sanitizer{
		sensitive: sensitive,
		maskValue: "***REDACTED***",
	}
}

// Mask returns the value to log for a named parameter, redacting it when
// the name matches a sensitive fragment.
func (s *Sanitizer) Mask(name string, value any) any {
	lower := strings.ToLower(name)
	for _, frag := range s.sensitive {
		if strings.Contains(lower, frag) {
			return s.maskValue
		}
	}
	return value
}

// FormatParams renders named parameters as "name=value" pairs for logging,
// masking sensitive names and truncating long values.
func (s *Sanitizer) FormatParams(names []string, values []any) string {
	if len(names) == 0 {
		return "[]"
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + s.formatValue(s.Mask(name, values[i]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue renders a single value, truncating anything unreasonably long.
func (s *Sanitizer) formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	str := fmt.Sprintf("%v", v)
	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
