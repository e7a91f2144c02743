package schema

import "context"

// Dialect is implemented once per target engine and injected into the
// generic Inspector. It owns every engine-specific decision: quoting, type
// translation, DDL rendering, catalog queries and routine invocation.
type Dialect interface {
	// Name identifies the engine (for logs).
	Name() string

	// QuoteName quotes a single identifier.
	QuoteName(name string) string

	// CompareNames reports whether two identifiers name the same object.
	CompareNames(a, b string) bool

	// TranslateType normalises an abstract column into its native form.
	// The input is not modified.
	TranslateType(col *ColumnInfo) (*ColumnInfo, error)

	// BuildColumn renders a normalised column as a DDL fragment.
	BuildColumn(col *ColumnInfo) (string, error)

	// SchemaNames lists user schemas.
	SchemaNames(ctx context.Context) ([]string, error)

	// TableNames lists tables (views=false) or views (views=true) of schema
	// without column detail.
	TableNames(ctx context.Context, schema string, views bool) ([]*TableInfo, error)

	// DescribeTable reflects one table or view with columns, constraints and
	// foreign keys.
	DescribeTable(ctx context.Context, schema, table string) (*TableInfo, error)

	// RoutineNames lists routines of the given kind in schema without
	// parameter detail.
	RoutineNames(ctx context.Context, schema string, kind RoutineKind) ([]*RoutineInfo, error)

	// DescribeRoutine reflects one routine with its parameters.
	DescribeRoutine(ctx context.Context, schema, name string, kind RoutineKind) (*RoutineInfo, error)

	// InvokeRoutine executes routine with args keyed by parameter name.
	InvokeRoutine(ctx context.Context, routine *RoutineInfo, args map[string]any) (*RoutineResult, error)

	// Execute runs a statement that returns no rows and reports the affected
	// row count.
	Execute(ctx context.Context, stmt string) (int64, error)

	// IntegrityStatement renders the statement that disables or enables
	// referential-integrity checks on table.
	IntegrityStatement(table *TableInfo, enable bool) string
}
