package sqlanywhere

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
	"github.com/shopspring/decimal"
)

// BuildColumn renders a normalised column as a definition fragment:
//
//	<type><extras> [NOT] NULL [DEFAULT <v>] [IDENTITY] [UNIQUE | PRIMARY KEY]
//
// The clause order is fixed. Unique and primary key are mutually exclusive.
func BuildColumn(c *schema.ColumnInfo) (string, error) {
	if c.IsUnique && c.IsPrimaryKey {
		return "", errs.Newf(errs.ErrKindConfiguration,
			"column %q: unique and primary key cannot both be set", c.Name)
	}
	if c.DBType == "" {
		return "", errs.Newf(errs.ErrKindInvalidInput, "column %q has no native type", c.Name)
	}

	var sb strings.Builder
	sb.WriteString(c.DBType)
	sb.WriteString(c.Extras)

	if c.AllowNull {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}

	if c.Default != nil {
		sb.WriteString(" DEFAULT ")
		if c.Default.IsExpression() {
			sb.WriteString(c.Default.Expression)
		} else {
			sb.WriteString(renderLiteral(c.Default.Value))
		}
	}

	if c.AutoIncrement {
		sb.WriteString(" IDENTITY")
	}

	if c.IsUnique {
		sb.WriteString(" UNIQUE")
	} else if c.IsPrimaryKey {
		sb.WriteString(" PRIMARY KEY")
	}
	return sb.String(), nil
}

// renderLiteral renders v as SQL: numbers bare, everything else quoted.
func renderLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case decimal.Decimal:
		return x.String()
	case bool:
		return strconv.Itoa(boolToBit(x))
	case time.Time:
		return quoteLiteral(x.Format("2006-01-02 15:04:05.000000"))
	case string:
		return quoteLiteral(x)
	default:
		return quoteLiteral(fmt.Sprint(x))
	}
}
