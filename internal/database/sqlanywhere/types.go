package sqlanywhere

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
)

// MaxVarLength bounds variable-length character and binary columns declared
// without an explicit length. The engine requires a bound.
const MaxVarLength = 32767

// maxFloatPrecision is the largest float precision (double).
const maxFloatPrecision = 53

// Expressions the engine evaluates for timestamp defaults.
const (
	exprCurrentTimestamp = "CURRENT TIMESTAMP"
	exprTimestamp        = "TIMESTAMP"
)

// --- abstract -> native ---

type nativeRule struct {
	native    func(c *schema.ColumnInfo) string
	normalize func(c *schema.ColumnInfo) error
}

func fixed(native string) func(*schema.ColumnInfo) string {
	return func(*schema.ColumnInfo) string { return native }
}

var toNative = map[schema.SimpleType]nativeRule{
	schema.TypeID: {fixed("int"), func(c *schema.ColumnInfo) error {
		c.AllowNull = false
		c.AutoIncrement = true
		c.IsPrimaryKey = true
		return nil
	}},
	schema.TypeReference: {fixed("int"), func(c *schema.ColumnInfo) error {
		c.IsForeignKey = true
		return nil
	}},
	schema.TypeTimestampOnCreate: {fixed("timestamp"), func(c *schema.ColumnInfo) error {
		if c.Default == nil {
			c.Default = schema.Expression(exprCurrentTimestamp)
		}
		return nil
	}},
	schema.TypeTimestampOnUpdate: {fixed("timestamp"), func(c *schema.ColumnInfo) error {
		if c.Default == nil {
			c.Default = schema.Expression(exprTimestamp)
		}
		return nil
	}},
	schema.TypeUserID:         {fixed("int"), nil},
	schema.TypeUserIDOnCreate: {fixed("int"), nil},
	schema.TypeUserIDOnUpdate: {fixed("int"), nil},
	schema.TypeBoolean:        {fixed("bit"), normalizeBooleanDefault},
	schema.TypeInteger:        {fixed("int"), nil},
	schema.TypeBigInt:         {fixed("bigint"), nil},
	schema.TypeSmallInt:       {fixed("smallint"), nil},
	schema.TypeDecimal:        {fixed("decimal"), nil},
	schema.TypeMoney:          {fixed("money"), nil},
	schema.TypeFloat:          {fixed("real"), nil},
	schema.TypeDouble: {fixed("float"), func(c *schema.ColumnInfo) error {
		c.Precision = maxFloatPrecision
		c.Length = 0
		return nil
	}},
	schema.TypeText: {func(c *schema.ColumnInfo) string {
		if c.SupportsMultibyte {
			return "long nvarchar"
		}
		return "long varchar"
	}, nil},
	schema.TypeLargeBinary: {fixed("varbinary"), func(c *schema.ColumnInfo) error {
		c.Length = MaxVarLength
		return nil
	}},
	schema.TypeString: {func(c *schema.ColumnInfo) string {
		switch {
		case c.FixedLength && c.SupportsMultibyte:
			return "nchar"
		case c.FixedLength:
			return "char"
		case c.SupportsMultibyte:
			return "nvarchar"
		default:
			return "varchar"
		}
	}, nil},
	schema.TypeBinary: {func(c *schema.ColumnInfo) string {
		if c.FixedLength {
			return "binary"
		}
		return "varbinary"
	}, nil},
	schema.TypeDate:      {fixed("date"), nil},
	schema.TypeTime:      {fixed("time"), nil},
	schema.TypeDatetime:  {fixed("datetime"), nil},
	schema.TypeTimestamp: {fixed("timestamp"), nil},
	schema.TypeUUID:      {fixed("uniqueidentifier"), nil},
}

// Translate returns a copy of col with its native type chosen from the
// abstract type, type-specific normalisation applied and size extras and
// default value validated. The abstract type decides the native type when
// both are set. A column with only a native DBType is validated, with any
// "(n[,s])" suffix filling the sizes not given explicitly.
func Translate(col *schema.ColumnInfo) (*schema.ColumnInfo, error) {
	c := col.Clone()

	if c.Type == "" {
		if c.DBType == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "column %q has neither a type nor a native type", c.Name)
		}
		if err := sizeFromSuffix(c); err != nil {
			return nil, err
		}
		c.DBType = baseType(c.DBType)
		return c, Validate(c)
	}

	rule, ok := toNative[c.Type]
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "column %q: unsupported type %q", c.Name, c.Type)
	}
	c.DBType = rule.native(c)
	if rule.normalize != nil {
		if err := rule.normalize(c); err != nil {
			return nil, err
		}
	}
	return c, Validate(c)
}

// Validate computes c.Extras from the native type and the given sizes and
// coerces numeric defaults. Boolean and timestamp defaults are left alone.
func Validate(c *schema.ColumnInfo) error {
	if extras := sizeExtras(c); extras != "" {
		c.Extras = extras
	}

	if c.Default == nil || c.Default.IsExpression() {
		return nil
	}
	v, err := coerceNumeric(familyOf(baseType(c.DBType)), c.Default.Value)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("column %q: bad default", c.Name), err)
	}
	c.Default.Value = v
	return nil
}

// sizeExtras renders the "(n[,s])" suffix c's native type takes for its
// sizes, or "" when the type takes none.
func sizeExtras(c *schema.ColumnInfo) string {
	switch familyOf(baseType(c.DBType)) {
	case famInteger:
		if n := firstPositive(c.Length, c.Precision); n > 0 {
			return fmt.Sprintf("(%d)", n)
		}
	case famDecimal:
		if p := firstPositive(c.Precision, c.Length); p > 0 {
			if c.Scale != nil {
				return fmt.Sprintf("(%d,%d)", p, *c.Scale)
			}
			return fmt.Sprintf("(%d)", p)
		}
	case famFloat:
		if n := firstPositive(c.Precision, c.Length); n > 0 {
			return fmt.Sprintf("(%d)", n)
		}
	case famFixed:
		if c.Length > 0 {
			return fmt.Sprintf("(%d)", c.Length)
		}
	case famVariable:
		n := c.Length
		if n <= 0 {
			n = MaxVarLength
		}
		return fmt.Sprintf("(%d)", n)
	}
	return ""
}

// sizeFromSuffix copies the sizes of a native type such as "varchar(40)" or
// "numeric(10,2)" into c where c leaves them unset.
func sizeFromSuffix(c *schema.ColumnInfo) error {
	open := strings.IndexByte(c.DBType, '(')
	if open < 0 {
		return nil
	}
	end := strings.IndexByte(c.DBType[open:], ')')
	if end < 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "column %q: unterminated size in %q", c.Name, c.DBType)
	}

	var sizes []int
	for _, part := range strings.Split(c.DBType[open+1:open+end], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return errs.Newf(errs.ErrKindInvalidInput, "column %q: bad size in %q", c.Name, c.DBType)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) > 2 {
		return errs.Newf(errs.ErrKindInvalidInput, "column %q: too many sizes in %q", c.Name, c.DBType)
	}

	switch familyOf(baseType(c.DBType)) {
	case famDecimal:
		if c.Precision == 0 && c.Length == 0 {
			c.Precision = sizes[0]
		}
		if len(sizes) == 2 && c.Scale == nil {
			scale := sizes[1]
			c.Scale = &scale
		}
	case famFloat:
		if c.Precision == 0 && c.Length == 0 {
			c.Precision = sizes[0]
		}
	default:
		if c.Length == 0 {
			c.Length = sizes[0]
		}
	}
	return nil
}

func normalizeBooleanDefault(c *schema.ColumnInfo) error {
	if c.Default == nil || c.Default.IsExpression() {
		return nil
	}
	switch v := c.Default.Value.(type) {
	case bool:
		c.Default.Value = boolToBit(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			c.Default.Value = 1
		case "0", "false", "no", "off":
			c.Default.Value = 0
		default:
			return errs.Newf(errs.ErrKindInvalidInput, "column %q: %q is not a boolean", c.Name, v)
		}
	case int:
		c.Default.Value = boolToBit(v != 0)
	case int64:
		c.Default.Value = boolToBit(v != 0)
	}
	return nil
}

func boolToBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- native -> abstract ---

type abstractRule struct {
	typ       schema.SimpleType
	multibyte bool
	fixed     bool
	readExpr  string
}

var fromNative = map[string]abstractRule{
	"bit":                      {typ: schema.TypeBoolean},
	"tinyint":                  {typ: schema.TypeSmallInt},
	"smallint":                 {typ: schema.TypeSmallInt},
	"unsigned smallint":        {typ: schema.TypeSmallInt},
	"int":                      {typ: schema.TypeInteger},
	"integer":                  {typ: schema.TypeInteger},
	"unsigned int":             {typ: schema.TypeInteger},
	"bigint":                   {typ: schema.TypeBigInt},
	"unsigned bigint":          {typ: schema.TypeBigInt},
	"decimal":                  {typ: schema.TypeDecimal},
	"numeric":                  {typ: schema.TypeDecimal},
	"money":                    {typ: schema.TypeMoney},
	"smallmoney":               {typ: schema.TypeMoney},
	"real":                     {typ: schema.TypeFloat},
	"float":                    {typ: schema.TypeDouble},
	"double":                   {typ: schema.TypeDouble},
	"char":                     {typ: schema.TypeString, fixed: true},
	"nchar":                    {typ: schema.TypeString, fixed: true, multibyte: true},
	"varchar":                  {typ: schema.TypeString},
	"nvarchar":                 {typ: schema.TypeString, multibyte: true},
	"sysname":                  {typ: schema.TypeString},
	"long varchar":             {typ: schema.TypeText},
	"text":                     {typ: schema.TypeText},
	"xml":                      {typ: schema.TypeText},
	"long nvarchar":            {typ: schema.TypeText, multibyte: true},
	"ntext":                    {typ: schema.TypeText, multibyte: true},
	"binary":                   {typ: schema.TypeBinary, fixed: true},
	"varbinary":                {typ: schema.TypeBinary},
	"long binary":              {typ: schema.TypeBinary},
	"image":                    {typ: schema.TypeBinary},
	"date":                     {typ: schema.TypeDate},
	"time":                     {typ: schema.TypeTime},
	"datetime":                 {typ: schema.TypeDatetime},
	"smalldatetime":            {typ: schema.TypeDatetime},
	"timestamp":                {typ: schema.TypeTimestamp},
	"timestamp with time zone": {typ: schema.TypeTimestamp},
	"uniqueidentifier":         {typ: schema.TypeUUID},
	"uniqueidentifierstr":      {typ: schema.TypeUUID},
	"st_geometry":              {typ: schema.TypeString, readExpr: "%s.ST_AsText()"},
	"geography":                {typ: schema.TypeString, readExpr: "%s.ST_AsText()"},
	"hierarchyid":              {typ: schema.TypeString, readExpr: "CAST(%s AS LONG VARCHAR)"},
}

// ExtractType sets the native and abstract type of c from a catalog type
// string such as "varchar(40)" or "LONG NVARCHAR".
func ExtractType(c *schema.ColumnInfo, dbType string) {
	base := baseType(dbType)
	c.DBType = base

	rule, ok := fromNative[base]
	if !ok {
		c.Type = schema.TypeString
		return
	}
	c.Type = rule.typ
	c.SupportsMultibyte = rule.multibyte
	c.FixedLength = rule.fixed
	c.ReadExpr = rule.readExpr
}

// baseType strips any parenthesised size suffix, lower-cases and collapses
// whitespace.
func baseType(dbType string) string {
	if i := strings.IndexByte(dbType, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(dbType[i:], ')'); j >= 0 {
			rest = dbType[i+j+1:]
		}
		dbType = dbType[:i] + " " + rest
	}
	return strings.Join(strings.Fields(strings.ToLower(dbType)), " ")
}

// --- native families ---

type family int

const (
	famOther family = iota
	famInteger
	famDecimal
	famFloat
	famFixed
	famVariable
)

func familyOf(base string) family {
	switch base {
	case "int", "integer", "bigint", "smallint", "tinyint",
		"unsigned int", "unsigned bigint", "unsigned smallint":
		return famInteger
	case "decimal", "numeric", "money", "smallmoney":
		return famDecimal
	case "real", "float", "double":
		return famFloat
	case "char", "nchar", "binary":
		return famFixed
	case "varchar", "nvarchar", "varbinary":
		return famVariable
	default:
		return famOther
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
