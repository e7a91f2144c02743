package sqlanywhere

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
)

var allTypes = []schema.SimpleType{
	schema.TypeID, schema.TypeReference,
	schema.TypeUserID, schema.TypeUserIDOnCreate, schema.TypeUserIDOnUpdate,
	schema.TypeTimestampOnCreate, schema.TypeTimestampOnUpdate,
	schema.TypeBoolean, schema.TypeInteger, schema.TypeBigInt, schema.TypeSmallInt,
	schema.TypeDecimal, schema.TypeMoney, schema.TypeFloat, schema.TypeDouble,
	schema.TypeString, schema.TypeText, schema.TypeBinary, schema.TypeLargeBinary,
	schema.TypeDate, schema.TypeTime, schema.TypeDatetime, schema.TypeTimestamp, schema.TypeUUID,
}

func TestTranslate_RoundTripKeepsFamily(t *testing.T) {
	for _, typ := range allTypes {
		for _, multibyte := range []bool{false, true} {
			t.Run(string(typ), func(t *testing.T) {
				native, err := Translate(&schema.ColumnInfo{Name: "c", Type: typ, SupportsMultibyte: multibyte})
				require.NoError(t, err)

				back := &schema.ColumnInfo{Name: "c"}
				ExtractType(back, native.DBType+native.Extras)
				assert.Equal(t, typ.Family(), back.Type.Family(), "native type %q", native.DBType)
			})
		}
	}
}

func TestTranslate_NativeTypes(t *testing.T) {
	tests := []struct {
		name   string
		col    schema.ColumnInfo
		native string
		extras string
	}{
		{"text", schema.ColumnInfo{Type: schema.TypeText}, "long varchar", ""},
		{"national text", schema.ColumnInfo{Type: schema.TypeText, SupportsMultibyte: true}, "long nvarchar", ""},
		{"varchar default bound", schema.ColumnInfo{Type: schema.TypeString}, "varchar", "(32767)"},
		{"nvarchar sized", schema.ColumnInfo{Type: schema.TypeString, SupportsMultibyte: true, Length: 80}, "nvarchar", "(80)"},
		{"char", schema.ColumnInfo{Type: schema.TypeString, FixedLength: true, Length: 2}, "char", "(2)"},
		{"nchar", schema.ColumnInfo{Type: schema.TypeString, FixedLength: true, SupportsMultibyte: true, Length: 3}, "nchar", "(3)"},
		{"binary", schema.ColumnInfo{Type: schema.TypeBinary, FixedLength: true, Length: 16}, "binary", "(16)"},
		{"varbinary", schema.ColumnInfo{Type: schema.TypeBinary}, "varbinary", "(32767)"},
		{"large binary", schema.ColumnInfo{Type: schema.TypeLargeBinary, Length: 10}, "varbinary", "(32767)"},
		{"int without display size", schema.ColumnInfo{Type: schema.TypeInteger}, "int", ""},
		{"int with display size", schema.ColumnInfo{Type: schema.TypeInteger, Length: 11}, "int", "(11)"},
		{"decimal", schema.ColumnInfo{Type: schema.TypeDecimal, Precision: 10, Scale: intPtr(2)}, "decimal", "(10,2)"},
		{"decimal without scale", schema.ColumnInfo{Type: schema.TypeDecimal, Length: 8}, "decimal", "(8)"},
		{"money", schema.ColumnInfo{Type: schema.TypeMoney}, "money", ""},
		{"double", schema.ColumnInfo{Type: schema.TypeDouble, Length: 10}, "float", "(53)"},
		{"float", schema.ColumnInfo{Type: schema.TypeFloat}, "real", ""},
		{"uuid", schema.ColumnInfo{Type: schema.TypeUUID}, "uniqueidentifier", ""},
		{"native passthrough", schema.ColumnInfo{DBType: "NVARCHAR(20)", Length: 20}, "nvarchar", "(20)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := tt.col
			col.Name = "c"
			got, err := Translate(&col)
			require.NoError(t, err)
			assert.Equal(t, tt.native, got.DBType)
			assert.Equal(t, tt.extras, got.Extras)
		})
	}
}

func TestTranslate_NativeTypeKeepsSizes(t *testing.T) {
	tests := []struct {
		name string
		col  schema.ColumnInfo
		want string
	}{
		{"varchar length", schema.ColumnInfo{DBType: "varchar(40)", AllowNull: true}, "varchar(40) NULL"},
		{"numeric precision and scale", schema.ColumnInfo{DBType: "numeric(10,2)"}, "numeric(10,2) NOT NULL"},
		{"numeric precision only", schema.ColumnInfo{DBType: "NUMERIC(12)"}, "numeric(12) NOT NULL"},
		{"char", schema.ColumnInfo{DBType: "char( 3 )"}, "char(3) NOT NULL"},
		{"float precision", schema.ColumnInfo{DBType: "float(24)"}, "float(24) NOT NULL"},
		{"explicit length wins", schema.ColumnInfo{DBType: "varchar(40)", Length: 60}, "varchar(60) NOT NULL"},
		{"explicit scale wins", schema.ColumnInfo{DBType: "decimal(10,2)", Scale: intPtr(4)}, "decimal(10,4) NOT NULL"},
		{"no suffix keeps the bound", schema.ColumnInfo{DBType: "varchar"}, "varchar(32767) NOT NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := tt.col
			col.Name = "c"
			native, err := Translate(&col)
			require.NoError(t, err)
			got, err := BuildColumn(native)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"varchar(x)", "numeric(10,2,1)", "varchar(40"} {
		_, err := Translate(&schema.ColumnInfo{Name: "c", DBType: bad})
		assert.True(t, errs.IsInvalidInput(err), bad)
	}
}

func TestTranslate_AbstractTypeDecidesNativeType(t *testing.T) {
	got, err := Translate(&schema.ColumnInfo{Name: "c", Type: schema.TypeInteger, DBType: "varchar(10)"})
	require.NoError(t, err)
	assert.Equal(t, "int", got.DBType)
	assert.Empty(t, got.Extras)
}

func TestTranslate_ID(t *testing.T) {
	got, err := Translate(&schema.ColumnInfo{Name: "id", Type: schema.TypeID, AllowNull: true})
	require.NoError(t, err)
	assert.False(t, got.AllowNull)
	assert.True(t, got.AutoIncrement)
	assert.True(t, got.IsPrimaryKey)
}

func TestTranslate_DoesNotModifyInput(t *testing.T) {
	in := &schema.ColumnInfo{Name: "flag", Type: schema.TypeBoolean, Default: schema.Literal(true)}
	_, err := Translate(in)
	require.NoError(t, err)
	assert.Equal(t, true, in.Default.Value)
	assert.Empty(t, in.DBType)
}

func TestTranslate_BooleanDefault(t *testing.T) {
	tests := []struct {
		name string
		def  *schema.DefaultValue
		want any
	}{
		{"true", schema.Literal(true), 1},
		{"false", schema.Literal(false), 0},
		{"string yes", schema.Literal("yes"), 1},
		{"int zero", schema.Literal(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate(&schema.ColumnInfo{Name: "b", Type: schema.TypeBoolean, Default: tt.def})
			require.NoError(t, err)
			require.NotNil(t, got.Default)
			assert.Equal(t, tt.want, got.Default.Value)
		})
	}

	t.Run("absent", func(t *testing.T) {
		got, err := Translate(&schema.ColumnInfo{Name: "b", Type: schema.TypeBoolean})
		require.NoError(t, err)
		assert.Nil(t, got.Default)
	})

	t.Run("not a boolean", func(t *testing.T) {
		_, err := Translate(&schema.ColumnInfo{Name: "b", Type: schema.TypeBoolean, Default: schema.Literal("maybe")})
		assert.True(t, errs.IsInvalidInput(err))
	})
}

func TestTranslate_TimestampDefaults(t *testing.T) {
	created, err := Translate(&schema.ColumnInfo{Name: "created", Type: schema.TypeTimestampOnCreate})
	require.NoError(t, err)
	assert.Equal(t, "CURRENT TIMESTAMP", created.Default.Expression)

	updated, err := Translate(&schema.ColumnInfo{Name: "updated", Type: schema.TypeTimestampOnUpdate})
	require.NoError(t, err)
	assert.Equal(t, "TIMESTAMP", updated.Default.Expression)

	given, err := Translate(&schema.ColumnInfo{Name: "c", Type: schema.TypeTimestampOnCreate, Default: schema.Expression("NOW()")})
	require.NoError(t, err)
	assert.Equal(t, "NOW()", given.Default.Expression)
}

func TestValidate_CoercesNumericDefaults(t *testing.T) {
	c := &schema.ColumnInfo{Name: "n", DBType: "int", Default: schema.Literal("42")}
	require.NoError(t, Validate(c))
	assert.Equal(t, int64(42), c.Default.Value)

	d := &schema.ColumnInfo{Name: "d", DBType: "decimal", Precision: 10, Scale: intPtr(2), Default: schema.Literal(1.5)}
	require.NoError(t, Validate(d))
	assert.True(t, decimal.NewFromFloat(1.5).Equal(d.Default.Value.(decimal.Decimal)))

	f := &schema.ColumnInfo{Name: "f", DBType: "float", Default: schema.Literal(3)}
	require.NoError(t, Validate(f))
	assert.Equal(t, float64(3), f.Default.Value)

	bad := &schema.ColumnInfo{Name: "n", DBType: "int", Default: schema.Literal(2.5)}
	assert.True(t, errs.IsInvalidInput(Validate(bad)))
}

func TestTranslate_Errors(t *testing.T) {
	_, err := Translate(&schema.ColumnInfo{Name: "x"})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Translate(&schema.ColumnInfo{Name: "x", Type: "geometry"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestExtractType(t *testing.T) {
	tests := []struct {
		native    string
		want      schema.SimpleType
		multibyte bool
		fixed     bool
		readExpr  string
	}{
		{"LONG VARCHAR", schema.TypeText, false, false, ""},
		{"long  nvarchar", schema.TypeText, true, false, ""},
		{"varchar(40)", schema.TypeString, false, false, ""},
		{"nchar(2)", schema.TypeString, true, true, ""},
		{"numeric(10,2)", schema.TypeDecimal, false, false, ""},
		{"bit", schema.TypeBoolean, false, false, ""},
		{"double", schema.TypeDouble, false, false, ""},
		{"ST_Geometry", schema.TypeString, false, false, "%s.ST_AsText()"},
		{"hierarchyid", schema.TypeString, false, false, "CAST(%s AS LONG VARCHAR)"},
		{"something odd", schema.TypeString, false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			c := &schema.ColumnInfo{}
			ExtractType(c, tt.native)
			assert.Equal(t, tt.want, c.Type)
			assert.Equal(t, tt.multibyte, c.SupportsMultibyte)
			assert.Equal(t, tt.fixed, c.FixedLength)
			assert.Equal(t, tt.readExpr, c.ReadExpr)
		})
	}
}

func TestExtractType_ReadExprSelect(t *testing.T) {
	c := &schema.ColumnInfo{}
	ExtractType(c, "st_geometry")
	assert.Equal(t, "[shape].ST_AsText()", c.SelectExpr("[shape]"))
}

func intPtr(n int) *int { return &n }
