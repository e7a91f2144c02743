package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDialect serves canned answers and counts catalog listings.
type stubDialect struct {
	tables    map[string][]*TableInfo
	views     map[string][]*TableInfo
	routines  []*RoutineInfo
	missing   map[string]bool
	listCalls int
	invoked   map[string]any
	executed  []string
	execErr   map[string]error
}

func (s *stubDialect) Name() string                 { return "stub" }
func (s *stubDialect) QuoteName(name string) string { return "[" + name + "]" }
func (s *stubDialect) CompareNames(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (s *stubDialect) TranslateType(col *ColumnInfo) (*ColumnInfo, error) {
	cp := col.Clone()
	cp.DBType = "int"
	return cp, nil
}

func (s *stubDialect) BuildColumn(col *ColumnInfo) (string, error) {
	return col.DBType + " NOT NULL", nil
}

func (s *stubDialect) SchemaNames(context.Context) ([]string, error) { return []string{"DBA"}, nil }

func (s *stubDialect) TableNames(_ context.Context, schema string, views bool) ([]*TableInfo, error) {
	s.listCalls++
	if views {
		return s.views[schema], nil
	}
	return s.tables[schema], nil
}

func (s *stubDialect) DescribeTable(_ context.Context, schema, table string) (*TableInfo, error) {
	if s.missing[table] {
		return nil, errs.New(errs.ErrKindNotFound, "table not found")
	}
	return &TableInfo{Schema: schema, ResourceName: table, Name: table}, nil
}

func (s *stubDialect) RoutineNames(_ context.Context, _ string, kind RoutineKind) ([]*RoutineInfo, error) {
	var out []*RoutineInfo
	for _, r := range s.routines {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubDialect) DescribeRoutine(_ context.Context, schema, name string, kind RoutineKind) (*RoutineInfo, error) {
	return &RoutineInfo{Kind: kind, Schema: schema, Name: name}, nil
}

func (s *stubDialect) InvokeRoutine(_ context.Context, _ *RoutineInfo, args map[string]any) (*RoutineResult, error) {
	s.invoked = args
	return &RoutineResult{}, nil
}

func (s *stubDialect) Execute(_ context.Context, stmt string) (int64, error) {
	if err := s.execErr[stmt]; err != nil {
		return 0, err
	}
	s.executed = append(s.executed, stmt)
	return 0, nil
}

func (s *stubDialect) IntegrityStatement(t *TableInfo, enable bool) string {
	if enable {
		return "CHECK " + t.Name
	}
	return "NOCHECK " + t.Name
}

func newStub() *stubDialect {
	return &stubDialect{
		tables: map[string][]*TableInfo{
			"DBA": {{Schema: "DBA", ResourceName: "orders", Name: "orders"}, {Schema: "DBA", ResourceName: "gone", Name: "gone"}},
		},
		views: map[string][]*TableInfo{
			"DBA": {{Schema: "DBA", ResourceName: "order_totals", Name: "order_totals", IsView: true}},
		},
		routines: []*RoutineInfo{
			{Kind: RoutineProcedure, Name: "sp_place"},
			{Kind: RoutineFunction, Name: "fn_total"},
		},
		missing: map[string]bool{"gone": true},
	}
}

func TestInspector_InspectSchema(t *testing.T) {
	ins := NewInspector(newStub(), nil)

	info, err := ins.InspectSchema(context.Background(), "DBA")
	require.NoError(t, err)

	require.Len(t, info.Tables, 1, "a table dropped mid-inspection is skipped")
	assert.Equal(t, "orders", info.Tables[0].Name)
	require.Len(t, info.Views, 1)
	assert.Len(t, info.Routines, 2)
}

func TestInspector_TableExists(t *testing.T) {
	ins := NewInspector(newStub(), nil)
	ctx := context.Background()

	ok, err := ins.TableExists(ctx, "DBA", "ORDERS")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ins.TableExists(ctx, "DBA", "order_totals")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ins.TableExists(ctx, "DBA", "customers")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInspector_IntegrityStatementsUseCache(t *testing.T) {
	stub := newStub()
	ins := NewInspector(stub, nil)
	cache := NewCache()
	ctx := context.Background()

	stmts, err := ins.IntegrityStatements(ctx, cache, "DBA", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOCHECK orders", "NOCHECK gone"}, stmts)

	_, err = ins.IntegrityStatements(ctx, cache, "DBA", true)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.listCalls, "second toggle is served from the cache")
}

func TestInspector_ApplyIntegrity(t *testing.T) {
	stub := newStub()
	ins := NewInspector(stub, nil)
	ctx := context.Background()

	ran, err := ins.ApplyIntegrity(ctx, NewCache(), "DBA", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"NOCHECK orders", "NOCHECK gone"}, ran)
	assert.Equal(t, ran, stub.executed)

	stub.executed = nil
	stub.execErr = map[string]error{"CHECK gone": errs.New(errs.ErrKindPermissionDenied, "not owner")}
	ran, err = ins.ApplyIntegrity(ctx, NewCache(), "DBA", true)
	require.Error(t, err)
	assert.True(t, errs.IsPermissionDenied(err))
	assert.Equal(t, []string{"CHECK orders"}, ran)
}

func TestInspector_CallAndColumnDDL(t *testing.T) {
	stub := newStub()
	ins := NewInspector(stub, nil)

	_, err := ins.Call(context.Background(), "DBA", "sp_place", RoutineProcedure, map[string]any{"qty": 5})
	require.NoError(t, err)
	assert.Equal(t, 5, stub.invoked["qty"])

	ddl, err := ins.ColumnDDL(&ColumnInfo{Name: "id", Type: TypeInteger})
	require.NoError(t, err)
	assert.Equal(t, "int NOT NULL", ddl)
}

func TestCache_ExplicitRefresh(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()
	calls := 0
	load := func(context.Context, string) ([]*TableInfo, error) {
		calls++
		return []*TableInfo{{Name: "t"}}, nil
	}

	_, err := cache.Tables(ctx, "DBA", load)
	require.NoError(t, err)
	_, err = cache.Tables(ctx, "DBA", load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = cache.Refresh(ctx, "DBA", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	cache.Invalidate("DBA")
	assert.False(t, cache.Cached("DBA"))
}

func TestCache_ZeroValueIsUsable(t *testing.T) {
	var cache Cache
	ctx := context.Background()
	assert.False(t, cache.Cached("DBA"))
	cache.Invalidate("DBA")

	tables, err := cache.Tables(ctx, "DBA", func(context.Context, string) ([]*TableInfo, error) {
		return []*TableInfo{{Name: "t"}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, tables, 1)
	assert.True(t, cache.Cached("DBA"))

	cache.InvalidateAll()
	assert.False(t, cache.Cached("DBA"))
	_, err = cache.Refresh(ctx, "DBA", func(context.Context, string) ([]*TableInfo, error) { return nil, nil })
	require.NoError(t, err)
	assert.True(t, cache.Cached("DBA"))
}

func TestCache_RefreshErrorKeepsEntry(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()
	_, err := cache.Refresh(ctx, "DBA", func(context.Context, string) ([]*TableInfo, error) {
		return []*TableInfo{{Name: "t"}}, nil
	})
	require.NoError(t, err)

	_, err = cache.Refresh(ctx, "DBA", func(context.Context, string) ([]*TableInfo, error) {
		return nil, errors.New("conn lost")
	})
	require.Error(t, err)
	tables, err := cache.Tables(ctx, "DBA", nil)
	require.NoError(t, err)
	assert.Len(t, tables, 1)
}

func TestRoutineResult_Payload(t *testing.T) {
	one := database.ResultSet{Columns: []string{"a"}, Rows: []map[string]any{{"a": 1}}}

	assert.Nil(t, (&RoutineResult{}).Payload())
	assert.Equal(t, one.Rows, (&RoutineResult{Sets: []database.ResultSet{one}}).Payload())

	many := (&RoutineResult{Sets: []database.ResultSet{one, one}}).Payload()
	assert.Len(t, many, 2)
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, ParamOut, ParseDirection("out"))
	assert.Equal(t, ParamInOut, ParseDirection("INOUT"))
	assert.Equal(t, ParamIn, ParseDirection(""))
	assert.True(t, ParamInOut.Returns())
	assert.False(t, ParamIn.Returns())
}

func TestSimpleType_Family(t *testing.T) {
	assert.Equal(t, TypeInteger, TypeID.Family())
	assert.Equal(t, TypeTimestamp, TypeTimestampOnUpdate.Family())
	assert.Equal(t, TypeBinary, TypeLargeBinary.Family())
	assert.Equal(t, TypeText, TypeText.Family())
}
