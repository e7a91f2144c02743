package sqlanywhere

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
)

func calcProc() *schema.RoutineInfo {
	return &schema.RoutineInfo{
		Kind:       schema.RoutineProcedure,
		Schema:     "DBA",
		Name:       "sp_calc",
		QuotedName: "[sp_calc]",
		Parameters: []*schema.ParameterInfo{
			{Name: "a", Position: 1, Direction: schema.ParamIn, Type: schema.TypeInteger, DBType: "integer"},
			{Name: "b", Position: 2, Direction: schema.ParamOut, Type: schema.TypeInteger, DBType: "integer"},
		},
	}
}

func TestInvokeRoutine_EmulatedOutParameter(t *testing.T) {
	db := newFakeDB().on("CALL [sp_calc]",
		database.ResultSet{},
		set(cols("b"), row(int64(10))),
	)
	d := New(db, "DBA", nil)

	res, err := d.InvokeRoutine(context.Background(), calcProc(), map[string]any{"a": 5})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"b": int64(10)}, res.Out)
	assert.Empty(t, res.Sets)
	assert.Nil(t, res.Payload())

	q, args := db.lastQuery("CALL [sp_calc]")
	assert.Equal(t, "DECLARE @b integer;\nCALL [sp_calc](?, @b);\nSELECT @b AS [b]", q)
	assert.Equal(t, []any{5}, args)
}

func TestInvokeRoutine_EmulatedWithCallerData(t *testing.T) {
	rows := set(cols("id", "name"), row(int64(1), "a"), row(int64(2), " "))
	db := newFakeDB().on("CALL [sp_calc]", rows, set(cols("b"), row(int64(3))))

	res, err := New(db, "DBA", nil).InvokeRoutine(context.Background(), calcProc(), map[string]any{"A": 1})
	require.NoError(t, err)

	require.Len(t, res.Sets, 1)
	assert.Equal(t, int64(3), res.Out["b"])
	payload, ok := res.Payload().([]map[string]any)
	require.True(t, ok)
	require.Len(t, payload, 2)
	assert.Equal(t, "", payload[1]["name"])
}

func TestInvokeRoutine_MissingArgumentUsesCatalogDefault(t *testing.T) {
	proc := calcProc()
	proc.Parameters = append([]*schema.ParameterInfo{
		{Name: "scale", Position: 0, Direction: schema.ParamIn, DBType: "integer", Default: schema.Literal(int64(2))},
	}, proc.Parameters...)

	db := newFakeDB().on("CALL [sp_calc]", set(cols("b"), row(int64(10))))
	res, err := New(db, "DBA", nil).InvokeRoutine(context.Background(), proc, map[string]any{"a": 5})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Out["b"])

	q, args := db.lastQuery("CALL [sp_calc]")
	assert.Equal(t, "DECLARE @b integer;\nCALL [sp_calc](a = ?, b = @b);\nSELECT @b AS [b]", q)
	assert.Equal(t, []any{5}, args)

	// A supplied argument keeps the positional form.
	_, err = New(db, "DBA", nil).InvokeRoutine(context.Background(), proc, map[string]any{"a": 5, "scale": 3})
	require.NoError(t, err)
	q, args = db.lastQuery("CALL [sp_calc]")
	assert.Equal(t, "DECLARE @b integer;\nCALL [sp_calc](?, ?, @b);\nSELECT @b AS [b]", q)
	assert.Equal(t, []any{3, 5}, args)
}

func TestInvokeRoutine_MissingArgumentWithoutDefaultIsNull(t *testing.T) {
	db := newFakeDB().on("CALL [sp_calc]", set(cols("b"), row(nil)))
	_, err := New(db, "DBA", nil).InvokeRoutine(context.Background(), calcProc(), nil)
	require.NoError(t, err)

	q, args := db.lastQuery("CALL [sp_calc]")
	assert.Contains(t, q, "CALL [sp_calc](?, @b)")
	assert.Equal(t, []any{nil}, args)
}

func TestParamTypeDecl(t *testing.T) {
	tests := []struct {
		name string
		p    schema.ParameterInfo
		want string
	}{
		{"untyped", schema.ParameterInfo{}, "long varchar"},
		{"varchar bound", schema.ParameterInfo{DBType: "varchar"}, "varchar(32767)"},
		{"varchar sized", schema.ParameterInfo{DBType: "varchar", Length: 20}, "varchar(20)"},
		{"numeric", schema.ParameterInfo{DBType: "numeric", Precision: 10, Scale: intPtr(2)}, "numeric(10,2)"},
		{"default is not coerced", schema.ParameterInfo{DBType: "integer", Default: schema.Literal("not a number")}, "integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			assert.Equal(t, tt.want, paramTypeDecl(&p))
		})
	}
}

func TestInvokeRoutine_MultipleSets(t *testing.T) {
	proc := &schema.RoutineInfo{Kind: schema.RoutineProcedure, Name: "sp_report", QuotedName: "[sp_report]"}
	db := newFakeDB().on("CALL [sp_report]",
		set(cols("x"), row(int64(1))),
		database.ResultSet{},
		set(cols("y"), row(int64(2)), row(int64(3))),
	)

	res, err := New(db, "DBA", nil).InvokeRoutine(context.Background(), proc, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Out)

	payload, ok := res.Payload().([][]map[string]any)
	require.True(t, ok)
	require.Len(t, payload, 2)
	assert.Len(t, payload[1], 2)

	q, _ := db.lastQuery("CALL [sp_report]")
	assert.Equal(t, "CALL [sp_report]()", q)
}

func TestInvokeRoutine_InOutParameter(t *testing.T) {
	proc := &schema.RoutineInfo{
		Kind:       schema.RoutineProcedure,
		Schema:     "sales",
		Name:       "sp_tag",
		Parameters: []*schema.ParameterInfo{
			{Name: "id", Direction: schema.ParamIn, DBType: "integer"},
			{Name: "@label", Direction: schema.ParamInOut, DBType: "varchar", Length: 20},
		},
	}
	fake := newFakeDB()
	fake.caps = database.Capabilities{Placeholder: database.PlaceholderOrdinal, PrologueResultSets: 1}
	fake.on("CALL [sales].[sp_tag]",
		set(cols("rowcount"), row(int64(1))),
		set(cols("label"), row("new")),
	)

	res, err := New(fake, "DBA", nil).InvokeRoutine(context.Background(), proc, map[string]any{"id": 7, "label": "old"})
	require.NoError(t, err)
	assert.Equal(t, "new", res.Out["label"])
	assert.Empty(t, res.Sets)

	q, args := fake.lastQuery("CALL [sales].[sp_tag]")
	assert.Equal(t,
		"DECLARE @label varchar(20);\nSET @label = @p1;\nCALL [sales].[sp_tag](@p2, @label);\nSELECT @label AS [label]", q)
	assert.Equal(t, []any{"old", 7}, args)
}

func TestInvokeRoutine_MissingInOutValue(t *testing.T) {
	proc := &schema.RoutineInfo{
		Kind:       schema.RoutineProcedure,
		Name:       "sp_tag",
		Parameters: []*schema.ParameterInfo{{Name: "label", Direction: schema.ParamInOut, DBType: "varchar"}},
	}
	_, err := New(newFakeDB(), "DBA", nil).InvokeRoutine(context.Background(), proc, nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestInvokeRoutine_MissingTrailer(t *testing.T) {
	db := newFakeDB().on("CALL [sp_calc]", set(cols("id"), row(int64(1)), row(int64(2))))

	_, err := New(db, "DBA", nil).InvokeRoutine(context.Background(), calcProc(), map[string]any{"a": 5})
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), `"b"`)
}

func TestInvokeRoutine_PropagatesDriverError(t *testing.T) {
	cause := errs.WrapCode(errs.ErrKindQueryFailed, "query failed: Procedure raised error", 17000, nil)
	db := newFakeDB().fail("CALL [sp_calc]", cause)

	_, err := New(db, "DBA", nil).InvokeRoutine(context.Background(), calcProc(), map[string]any{"a": 5})
	require.Error(t, err)
	assert.Equal(t, 17000, errs.CodeOf(err))
	assert.Contains(t, err.Error(), "Procedure raised error")
}

func TestInvokeRoutine_NativeOutputBinding(t *testing.T) {
	fake := newFakeDB()
	fake.caps = database.Capabilities{OutputBinding: true}

	d := New(fake, "DBA", nil)
	plan, err := d.buildCall(calcProc(), map[string]any{"a": 5})
	require.NoError(t, err)

	assert.Empty(t, plan.prologue)
	assert.Empty(t, plan.epilogue)
	assert.Empty(t, plan.demux.trailer)
	assert.Equal(t, "CALL [sp_calc](?, @b)", plan.SQL())
	require.Len(t, plan.args, 2)
	assert.Equal(t, 5, plan.args[0])

	named, ok := plan.args[1].(sql.NamedArg)
	require.True(t, ok)
	assert.Equal(t, "b", named.Name)
	out, ok := named.Value.(sql.Out)
	require.True(t, ok)
	assert.False(t, out.In)

	fake.on("CALL [sp_calc]", database.ResultSet{})
	res, err := d.InvokeRoutine(context.Background(), calcProc(), map[string]any{"a": 5})
	require.NoError(t, err)
	assert.Contains(t, res.Out, "b")
}

func TestInvokeRoutine_Function(t *testing.T) {
	fn := &schema.RoutineInfo{
		Kind:       schema.RoutineFunction,
		Schema:     "DBA",
		Name:       "fn_total",
		QuotedName: "[fn_total]",
		Parameters: []*schema.ParameterInfo{{Name: "customer", Direction: schema.ParamIn, DBType: "integer"}},
		ReturnType: schema.TypeDecimal,
	}
	db := newFakeDB().on("SELECT [fn_total]", set(cols("fn_total"), row("12.50")))

	res, err := New(db, "DBA", nil).InvokeRoutine(context.Background(), fn, map[string]any{"customer": 3})
	require.NoError(t, err)
	require.Len(t, res.Sets, 1)
	assert.Equal(t, "12.50", res.Sets[0].Rows[0]["fn_total"])

	q, args := db.lastQuery("SELECT [fn_total]")
	assert.Equal(t, "SELECT [fn_total](?) AS [fn_total]", q)
	assert.Equal(t, []any{3}, args)
}

func TestInvokeRoutine_FunctionRejectsOutParameter(t *testing.T) {
	fn := &schema.RoutineInfo{
		Kind:       schema.RoutineFunction,
		Name:       "fn_bad",
		Parameters: []*schema.ParameterInfo{{Name: "x", Direction: schema.ParamOut}},
	}
	_, err := New(newFakeDB(), "DBA", nil).InvokeRoutine(context.Background(), fn, nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestDemuxer(t *testing.T) {
	scalar := func(name string, v any) database.ResultSet { return set(cols(name), row(v)) }
	data := set(cols("id"), row(int64(1)))

	tests := []struct {
		name     string
		demux    demuxer
		sets     []database.ResultSet
		wantSets int
		wantOut  map[string]any
		wantErr  bool
	}{
		{
			name:     "no sets",
			sets:     nil,
			wantSets: 0,
		},
		{
			name:     "column-less sets dropped",
			sets:     []database.ResultSet{{}, data, {}},
			wantSets: 1,
		},
		{
			name:     "per-parameter skip",
			demux:    demuxer{skip: 1, trailer: []string{"x"}},
			sets:     []database.ResultSet{{}, scalar("rowcount", 1), data, scalar("x", 9)},
			wantSets: 1,
			wantOut:  map[string]any{"x": 9},
		},
		{
			name:     "two trailers",
			demux:    demuxer{trailer: []string{"x", "y"}},
			sets:     []database.ResultSet{data, data, scalar("x", 1), scalar("Y", 2)},
			wantSets: 2,
			wantOut:  map[string]any{"x": 1, "y": 2},
		},
		{
			name:    "trailer name mismatch",
			demux:   demuxer{trailer: []string{"x"}},
			sets:    []database.ResultSet{scalar("z", 1)},
			wantErr: true,
		},
		{
			name:    "trailer missing",
			demux:   demuxer{trailer: []string{"x", "y"}},
			sets:    []database.ResultSet{scalar("x", 1)},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.demux.run(tt.sets)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Sets, tt.wantSets)
			if tt.wantOut != nil {
				assert.Equal(t, tt.wantOut, res.Out)
			}
		})
	}
}

func TestDemuxStateString(t *testing.T) {
	assert.Equal(t, "prologue", statePrologue.String())
	assert.Equal(t, "trailer", stateTrailer.String())
	assert.Equal(t, "done", stateDone.String())
}
