package schema

import (
	"fmt"
	"strings"
)

// SimpleType is the engine-agnostic column type tag.
type SimpleType string

const (
	TypeID                SimpleType = "id"        // auto-increment primary key
	TypeReference         SimpleType = "reference" // foreign key
	TypeUserID            SimpleType = "user_id"
	TypeUserIDOnCreate    SimpleType = "user_id_on_create"
	TypeUserIDOnUpdate    SimpleType = "user_id_on_update"
	TypeTimestampOnCreate SimpleType = "timestamp_on_create"
	TypeTimestampOnUpdate SimpleType = "timestamp_on_update"
	TypeBoolean           SimpleType = "boolean"
	TypeInteger           SimpleType = "integer"
	TypeBigInt            SimpleType = "bigint"
	TypeSmallInt          SimpleType = "smallint"
	TypeDecimal           SimpleType = "decimal"
	TypeMoney             SimpleType = "money"
	TypeFloat             SimpleType = "float"
	TypeDouble            SimpleType = "double"
	TypeString            SimpleType = "string"
	TypeText              SimpleType = "text"
	TypeBinary            SimpleType = "binary"
	TypeLargeBinary       SimpleType = "large_binary"
	TypeDate              SimpleType = "date"
	TypeTime              SimpleType = "time"
	TypeDatetime          SimpleType = "datetime"
	TypeTimestamp         SimpleType = "timestamp"
	TypeUUID              SimpleType = "uuid"
)

// Family collapses tags that share a storage representation. Translating a
// tag to a native type and reading it back always lands in the same family.
func (t SimpleType) Family() SimpleType {
	switch t {
	case TypeID, TypeReference, TypeUserID, TypeUserIDOnCreate, TypeUserIDOnUpdate,
		TypeInteger, TypeBigInt, TypeSmallInt:
		return TypeInteger
	case TypeTimestampOnCreate, TypeTimestampOnUpdate, TypeTimestamp, TypeDatetime:
		return TypeTimestamp
	case TypeFloat, TypeDouble:
		return TypeDouble
	case TypeDecimal, TypeMoney:
		return TypeDecimal
	case TypeLargeBinary:
		return TypeBinary
	case TypeUUID:
		return TypeString
	default:
		return t
	}
}

// DefaultValue is a column or parameter default. Exactly one of a literal
// value or a raw SQL expression (such as CURRENT TIMESTAMP) is carried.
type DefaultValue struct {
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Literal returns a literal default.
func Literal(v any) *DefaultValue {
	return &DefaultValue{Value: v}
}

// Expression returns a default rendered verbatim into DDL.
func Expression(expr string) *DefaultValue {
	return &DefaultValue{Expression: expr}
}

// IsExpression reports whether d is an expression default.
func (d *DefaultValue) IsExpression() bool {
	return d != nil && d.Expression != ""
}

func (d *DefaultValue) String() string {
	if d == nil {
		return "<null>"
	}
	if d.IsExpression() {
		return d.Expression
	}
	return fmt.Sprint(d.Value)
}

// ColumnInfo describes a single column, either reflected from the catalog or
// supplied by a caller who wants DDL for it.
type ColumnInfo struct {
	Name string `json:"name"`
	// DBType is the native type without size suffix; Extras holds the suffix.
	DBType string     `json:"db_type"`
	Extras string     `json:"extras,omitempty"`
	Type   SimpleType `json:"type"`

	AllowNull bool `json:"allow_null"`
	// Length and Precision are 0 when not given. Scale is nil when not given.
	Length            int  `json:"length,omitempty"`
	Precision         int  `json:"precision,omitempty"`
	Scale             *int `json:"scale,omitempty"`
	FixedLength       bool `json:"fixed_length,omitempty"`
	SupportsMultibyte bool `json:"supports_multibyte,omitempty"`

	Default       *DefaultValue `json:"default,omitempty"`
	AutoIncrement bool          `json:"auto_increment,omitempty"`

	IsPrimaryKey bool   `json:"is_primary_key,omitempty"`
	IsUnique     bool   `json:"is_unique,omitempty"`
	IsIndex      bool   `json:"is_index,omitempty"`
	IsForeignKey bool   `json:"is_foreign_key,omitempty"`
	RefSchema    string `json:"ref_schema,omitempty"`
	RefTable     string `json:"ref_table,omitempty"`
	RefField     string `json:"ref_field,omitempty"`

	Comment string `json:"comment,omitempty"`

	// ReadExpr, when set, is a format string with one %s for the quoted column
	// name; the column must be selected through it instead of read raw.
	ReadExpr string `json:"read_expr,omitempty"`
}

// Clone returns a deep copy of c.
func (c *ColumnInfo) Clone() *ColumnInfo {
	cp := *c
	if c.Scale != nil {
		s := *c.Scale
		cp.Scale = &s
	}
	if c.Default != nil {
		d := *c.Default
		cp.Default = &d
	}
	return &cp
}

// SelectExpr returns what to put in a select list for the column given its
// quoted name.
func (c *ColumnInfo) SelectExpr(quoted string) string {
	if c.ReadExpr == "" {
		return quoted
	}
	return fmt.Sprintf(c.ReadExpr, quoted)
}

// Relation is one foreign-key link from a local column to a column of
// another table.
type Relation struct {
	Field     string `json:"field"`
	RefSchema string `json:"ref_schema"`
	RefTable  string `json:"ref_table"`
	RefField  string `json:"ref_field"`
}

// TableInfo describes a table or view and its columns.
type TableInfo struct {
	Schema string `json:"schema"`
	// ResourceName is the bare table name; Name is schema-qualified when the
	// schema is not the connection's default one.
	ResourceName string `json:"resource_name"`
	Name         string `json:"name"`
	QuotedName   string `json:"quoted_name"`
	IsView       bool   `json:"is_view"`
	Description  string `json:"description,omitempty"`

	Columns      []*ColumnInfo `json:"columns"`
	PrimaryKey   []string      `json:"primary_key,omitempty"`
	SequenceName string        `json:"sequence_name,omitempty"`
	Relations    []Relation    `json:"relations,omitempty"`
}

// Column returns the column named name (case-insensitive), or nil.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// AddRelation appends r unless an identical relation is already present.
func (t *TableInfo) AddRelation(r Relation) {
	for _, existing := range t.Relations {
		if strings.EqualFold(existing.Field, r.Field) &&
			strings.EqualFold(existing.RefSchema, r.RefSchema) &&
			strings.EqualFold(existing.RefTable, r.RefTable) &&
			strings.EqualFold(existing.RefField, r.RefField) {
			return
		}
	}
	t.Relations = append(t.Relations, r)
}

// SchemaInfo is the inspected content of one schema.
type SchemaInfo struct {
	Name     string         `json:"name"`
	Tables   []*TableInfo   `json:"tables"`
	Views    []*TableInfo   `json:"views,omitempty"`
	Routines []*RoutineInfo `json:"routines,omitempty"`
}
