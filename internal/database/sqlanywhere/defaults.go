package sqlanywhere

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/koustreak/sqlany/internal/schema"
	"github.com/shopspring/decimal"
)

// Catalog spellings of special defaults.
const (
	catalogAutoIncrement    = "autoincrement"
	catalogCurrentTimestamp = "current timestamp"
	catalogTimestamp        = "timestamp"
)

// ExtractDefault interprets the catalog default text raw for column c,
// which must already carry its abstract type. It may promote c.Type
// (timestamp defaults) and set c.AutoIncrement.
func ExtractDefault(c *schema.ColumnInfo, raw *string) {
	c.Default = nil
	if raw == nil {
		return
	}
	text := strings.TrimSpace(*raw)
	lower := strings.ToLower(text)

	switch {
	case lower == catalogAutoIncrement:
		c.AutoIncrement = true
		return
	case text == "" || lower == "(null)" || lower == "null":
		return
	}

	switch c.Type {
	case schema.TypeBoolean:
		switch text {
		case "1":
			c.Default = schema.Literal(true)
		case "0":
			c.Default = schema.Literal(false)
		}
		return
	case schema.TypeTimestamp:
		switch lower {
		case catalogCurrentTimestamp:
			c.Default = schema.Expression(exprCurrentTimestamp)
			c.Type = schema.TypeTimestampOnCreate
		case catalogTimestamp:
			c.Default = schema.Expression(exprTimestamp)
			c.Type = schema.TypeTimestampOnUpdate
		}
		return
	}

	c.Default = schema.Literal(parseLiteral(familyOf(c.DBType), stripLiteral(text)))
}

// stripLiteral removes surrounding parentheses and quote characters.
func stripLiteral(s string) string {
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '(' && last == ')') || (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			s = s[1 : len(s)-1]
			continue
		}
		break
	}
	return s
}

// parseLiteral turns default text into a typed value where the family
// allows it, falling back to the text itself.
func parseLiteral(fam family, s string) any {
	switch fam {
	case famInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case famDecimal:
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	case famFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// coerceNumeric converts a caller-supplied default to the Go type matching
// the native family. Non-numeric families pass through.
func coerceNumeric(fam family, v any) (any, error) {
	switch fam {
	case famInteger:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%v is not an integer", n)
			}
			return int64(n), nil
		case bool:
			return int64(boolToBit(n)), nil
		case string:
			return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		}
	case famDecimal:
		switch n := v.(type) {
		case decimal.Decimal:
			return n, nil
		case int:
			return decimal.NewFromInt(int64(n)), nil
		case int64:
			return decimal.NewFromInt(n), nil
		case float64:
			return decimal.NewFromFloat(n), nil
		case string:
			return decimal.NewFromString(strings.TrimSpace(n))
		}
	case famFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(n), 64)
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported default %v (%T)", v, v)
}

// FormatValue corrects a driver quirk: the engine returns a single space for
// an empty string. Every other value passes through unchanged.
func FormatValue(v any) any {
	switch s := v.(type) {
	case string:
		if s == " " {
			return ""
		}
	case []byte:
		if len(s) == 1 && s[0] == ' ' {
			return ""
		}
	}
	return v
}
