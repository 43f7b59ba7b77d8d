package database

import "strings"

// IsUniqueViolation reports whether err came from a UNIQUE index. Both sqlite
// drivers behind sqliteshim use the same message text.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
