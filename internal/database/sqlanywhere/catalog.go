package sqlanywhere

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/koustreak/sqlany/internal/database"
)

// Identities that own engine objects rather than user data.
var systemSchemas = []string{"SYS", "dbo", "SA_DEBUG", "rs_systabgroup"}

// User-type codes of ordinary user roles in SYS.SYSUSER.
const userTypeCodes = "12, 13, 14"

// Parameter-kind codes of SYS.SYSPROCPARMS.parmtype.
const (
	parmTypeParameter = 0
	parmTypeResult    = 1
	parmTypeSQLState  = 2
	parmTypeSQLCode   = 3
	parmTypeReturn    = 4
)

// Index-type values of SYS.SYSINDEXES.indextype.
const (
	indexPrimaryKey = "primary key"
	indexUnique     = "unique constraint"
	indexUniqueIdx  = "unique"
	indexNonUnique  = "non-unique"
)

// fkSeparator joins the local and remote column in SYS.SYSFOREIGNKEYS.columns.
const fkSeparator = " IS "

// catalogRows runs a catalog query and drains its single result set.
func (d *Dialect) catalogRows(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	d.log.DebugWith("catalog query", map[string]any{"sql": compact(q), "args": args})

	rows, err := d.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rs, err := database.ScanRows(rows, FormatValue)
	if err != nil {
		return nil, err
	}
	return rs.Rows, nil
}

func isSystemSchema(name string) bool {
	for _, s := range systemSchemas {
		if CompareNames(s, name) {
			return true
		}
	}
	return false
}

func systemSchemaList() string {
	quoted := make([]string, len(systemSchemas))
	for i, s := range systemSchemas {
		quoted[i] = quoteLiteral(s)
	}
	return strings.Join(quoted, ", ")
}

// compact collapses whitespace so statements log on one line.
func compact(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// --- catalog value decoding ---

func str(row map[string]any, key string) string {
	return asString(row[key])
}

func optStr(row map[string]any, key string) *string {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func num(row map[string]any, key string) int {
	return asInt(row[key])
}

func flag(row map[string]any, key string) bool {
	switch v := row[key].(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		s := strings.ToUpper(strings.TrimSpace(asString(v)))
		return s == "Y" || s == "YES" || s == "1" || s == "TRUE"
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	case float32:
		return int(x)
	case float64:
		return int(x)
	case decimal.Decimal:
		return int(x.IntPart())
	case string, []byte:
		n, err := strconv.Atoi(strings.TrimSpace(asString(x)))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
