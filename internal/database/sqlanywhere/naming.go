package sqlanywhere

import "strings"

// QuoteName wraps an identifier in brackets, doubling any closing bracket.
// Already-quoted identifiers are returned unchanged.
func QuoteName(name string) string {
	if isQuoted(name) {
		return name
	}
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteQualified quotes schema and name and joins them with a dot. An empty
// schema yields the quoted name alone.
func QuoteQualified(schema, name string) string {
	if schema == "" {
		return QuoteName(name)
	}
	return QuoteName(schema) + "." + QuoteName(name)
}

// UnquoteName strips one level of bracket or double-quote quoting.
func UnquoteName(name string) string {
	name = strings.TrimSpace(name)
	if !isQuoted(name) {
		return name
	}
	inner := name[1 : len(name)-1]
	if name[0] == '[' {
		return strings.ReplaceAll(inner, "]]", "]")
	}
	return strings.ReplaceAll(inner, `""`, `"`)
}

// CompareNames reports whether a and b name the same object. Identifiers
// are case-insensitive and quoting is ignored.
func CompareNames(a, b string) bool {
	return strings.EqualFold(UnquoteName(a), UnquoteName(b))
}

func isQuoted(name string) bool {
	if len(name) < 2 {
		return false
	}
	first, last := name[0], name[len(name)-1]
	return (first == '[' && last == ']') || (first == '"' && last == '"')
}

// quoteLiteral renders s as a single-quoted string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
