package main

import (
	"errors"
	"strings"
)

var errNotSelect = errors.New("Only SELECT queries are allowed")

// checkReadOnlyQuery accepts a single SELECT (or WITH ... SELECT)
// statement and rejects everything else. Leading whitespace and SQL
// comments are stripped before the check so a commented preamble cannot
// hide a write, and any interior semicolon rejects the input outright —
// one statement per request. The read-only connection remains the
// backstop either way.
func checkReadOnlyQuery(raw string) error {
	body := stripLeadingTrivia(raw)
	if body == "" {
		return errors.New("empty query")
	}

	// allow one trailing terminator, nothing after it
	body = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body), ";"))
	if strings.Contains(body, ";") {
		return errNotSelect
	}

	upper := strings.ToUpper(body)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		return nil
	}
	return errNotSelect
}

// stripLeadingTrivia removes leading whitespace, line comments (-- ...)
// and block comments (/* ... */) until real SQL text starts.
func stripLeadingTrivia(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		default:
			return s
		}
	}
}
