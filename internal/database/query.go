package database

import (
	"fmt"
	"strings"
)

// PlaceholderStyle controls which parameter marker statements are built with.
type PlaceholderStyle string

const (
	// PlaceholderQuestion uses positional ? markers (ODBC style).
	PlaceholderQuestion PlaceholderStyle = "question"

	// PlaceholderOrdinal uses @p1, @p2, … markers (go-mssqldb style).
	PlaceholderOrdinal PlaceholderStyle = "ordinal"
)

// Marker returns the parameter marker for the 1-based position idx.
func (s PlaceholderStyle) Marker(idx int) string {
	if s == PlaceholderOrdinal {
		return fmt.Sprintf("@p%d", idx)
	}
	return "?"
}

// Markers returns n comma-joined markers starting at position from.
func (s PlaceholderStyle) Markers(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.Marker(from + i)
	}
	return strings.Join(parts, ", ")
}

// DefaultPlaceholder returns the style driverName accepts. go-mssqldb's
// "sqlserver" driver only understands @name and @pN markers; positional ? is
// left to ODBC-style bridges.
func DefaultPlaceholder(driverName string) PlaceholderStyle {
	if driverName == "" || driverName == DefaultDriverName {
		return PlaceholderOrdinal
	}
	return PlaceholderQuestion
}

// Valid reports whether s is a known style.
func (s PlaceholderStyle) Valid() bool {
	return s == PlaceholderQuestion || s == PlaceholderOrdinal
}
