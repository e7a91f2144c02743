package sqlanywhere

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
)

// SchemaNames lists the owners of user objects.
func (d *Dialect) SchemaNames(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`
		SELECT user_name AS user_name
		FROM SYS.SYSUSER
		WHERE user_type IN (%s)
		  AND user_name NOT IN (%s)
		ORDER BY user_name`, userTypeCodes, systemSchemaList())

	rows, err := d.catalogRows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, str(row, "user_name"))
	}
	return names, nil
}

// TableNames lists the tables or views of schemaName without columns.
func (d *Dialect) TableNames(ctx context.Context, schemaName string, views bool) ([]*schema.TableInfo, error) {
	op := "NOT LIKE"
	if views {
		op = "LIKE"
	}
	q := fmt.Sprintf(`
		SELECT tname AS tname, tabletype AS tabletype, remarks AS remarks
		FROM SYS.SYSCATALOG
		WHERE creator = %s
		  AND tabletype %s '%%VIEW%%'
		ORDER BY tname`, d.marker(1), op)

	rows, err := d.catalogRows(ctx, q, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", schemaName, err)
	}

	tables := make([]*schema.TableInfo, 0, len(rows))
	for _, row := range rows {
		t := d.newTable(schemaName, str(row, "tname"))
		t.IsView = isViewType(str(row, "tabletype"))
		t.Description = str(row, "remarks")
		tables = append(tables, t)
	}
	return tables, nil
}

// DescribeTable reflects schemaName.table with columns, constraints and
// foreign keys.
//
// A table with no catalog columns and a failing column query are both
// reported as ErrKindNotFound. The driver error, if any, stays attached as
// the cause and is logged.
func (d *Dialect) DescribeTable(ctx context.Context, schemaName, table string) (*schema.TableInfo, error) {
	table = UnquoteName(table)
	log := d.log.With().Str("schema", schemaName).Str("table", table).Logger()

	t := d.newTable(schemaName, table)
	if err := d.loadColumns(ctx, t); err != nil {
		if !errs.IsNotFound(err) {
			log.WarnWith("column discovery failed, reporting table as not found", err, nil)
			return nil, errs.WrapCode(errs.ErrKindNotFound, fmt.Sprintf("table %s not found", t.Name), errs.CodeOf(err), err)
		}
		return nil, err
	}

	if err := d.loadCatalogEntry(ctx, t); err != nil {
		return nil, err
	}
	if err := d.loadIndexes(ctx, t); err != nil {
		return nil, err
	}
	if err := d.loadForeignKeys(ctx, t); err != nil {
		return nil, err
	}

	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			t.PrimaryKey = append(t.PrimaryKey, c.Name)
		}
		if c.AutoIncrement && t.SequenceName == "" {
			t.SequenceName = t.QuotedName
		}
	}

	log.Debugf("described %d columns", len(t.Columns))
	return t, nil
}

func (d *Dialect) newTable(schemaName, table string) *schema.TableInfo {
	display, quoted := d.qualify(schemaName, table)
	return &schema.TableInfo{
		Schema:       schemaName,
		ResourceName: table,
		Name:         display,
		QuotedName:   quoted,
	}
}

func isViewType(tabletype string) bool {
	return strings.Contains(strings.ToUpper(tabletype), "VIEW")
}

func (d *Dialect) loadColumns(ctx context.Context, t *schema.TableInfo) error {
	q := fmt.Sprintf(`
		SELECT cname AS cname, nulls AS nulls, in_primary_key AS in_primary_key,
		       coltype AS coltype, syslength AS syslength, length AS length,
		       remarks AS remarks, default_value AS default_value
		FROM SYS.SYSCOLUMNS
		WHERE creator = %s AND tname = %s
		ORDER BY colno`, d.marker(1), d.marker(2))

	rows, err := d.catalogRows(ctx, q, t.Schema, t.ResourceName)
	if err != nil {
		return fmt.Errorf("describe columns of %s: %w", t.Name, err)
	}
	if len(rows) == 0 {
		return errs.Newf(errs.ErrKindNotFound, "table %s not found", t.Name)
	}

	for _, row := range rows {
		c := &schema.ColumnInfo{
			Name:         str(row, "cname"),
			AllowNull:    flag(row, "nulls"),
			IsPrimaryKey: flag(row, "in_primary_key"),
			Comment:      str(row, "remarks"),
		}
		describeNative(c, str(row, "coltype"), num(row, "length"), num(row, "syslength"))
		ExtractDefault(c, optStr(row, "default_value"))
		t.Columns = append(t.Columns, c)
	}
	return nil
}

// describeNative fills type and size fields from catalog values. length is
// the declared size (or precision); scale is the catalog's internal length.
func describeNative(c *schema.ColumnInfo, dbType string, length, scale int) {
	ExtractType(c, dbType)
	switch familyOf(c.DBType) {
	case famDecimal:
		c.Precision = length
		s := scale
		c.Scale = &s
	case famFloat:
		c.Precision = length
	case famFixed, famVariable:
		c.Length = length
	}
}

func (d *Dialect) loadCatalogEntry(ctx context.Context, t *schema.TableInfo) error {
	q := fmt.Sprintf(`
		SELECT tabletype AS tabletype, remarks AS remarks
		FROM SYS.SYSCATALOG
		WHERE creator = %s AND tname = %s`, d.marker(1), d.marker(2))

	rows, err := d.catalogRows(ctx, q, t.Schema, t.ResourceName)
	if err != nil {
		return fmt.Errorf("describe %s: %w", t.Name, err)
	}
	if len(rows) > 0 {
		t.IsView = isViewType(str(rows[0], "tabletype"))
		t.Description = str(rows[0], "remarks")
	}
	return nil
}

func (d *Dialect) loadIndexes(ctx context.Context, t *schema.TableInfo) error {
	q := fmt.Sprintf(`
		SELECT indextype AS indextype, colnames AS colnames
		FROM SYS.SYSINDEXES
		WHERE creator = %s AND tname = %s`, d.marker(1), d.marker(2))

	rows, err := d.catalogRows(ctx, q, t.Schema, t.ResourceName)
	if err != nil {
		return fmt.Errorf("describe indexes of %s: %w", t.Name, err)
	}
	for _, row := range rows {
		foldIndex(t, str(row, "indextype"), str(row, "colnames"))
	}
	return nil
}

// foldIndex flags the columns named in colnames ("name ASC,other DESC")
// according to indexType.
func foldIndex(t *schema.TableInfo, indexType, colnames string) {
	for _, part := range strings.Split(colnames, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, " ")
		c := t.Column(UnquoteName(name))
		if c == nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(indexType)) {
		case indexPrimaryKey:
			c.IsPrimaryKey = true
		case indexUnique, indexUniqueIdx:
			c.IsUnique = true
		case indexNonUnique:
			c.IsIndex = true
		}
	}
}

func (d *Dialect) loadForeignKeys(ctx context.Context, t *schema.TableInfo) error {
	q := fmt.Sprintf(`
		SELECT columns AS columns, foreign_creator AS foreign_creator, foreign_tname AS foreign_tname,
		       primary_creator AS primary_creator, primary_tname AS primary_tname
		FROM SYS.SYSFOREIGNKEYS
		WHERE foreign_creator = %s AND foreign_tname = %s`, d.marker(1), d.marker(2))

	rows, err := d.catalogRows(ctx, q, t.Schema, t.ResourceName)
	if err != nil {
		return fmt.Errorf("describe foreign keys of %s: %w", t.Name, err)
	}

	for _, row := range rows {
		fkOwner, pkOwner := str(row, "foreign_creator"), str(row, "primary_creator")
		if CompareNames(fkOwner, pkOwner) && isSystemSchema(pkOwner) {
			continue
		}
		pkTable := str(row, "primary_tname")
		for _, pair := range DecodeForeignKey(str(row, "columns")) {
			rel := schema.Relation{
				Field:     pair.Local,
				RefSchema: pkOwner,
				RefTable:  pkTable,
				RefField:  pair.Remote,
			}
			t.AddRelation(rel)
			if c := t.Column(pair.Local); c != nil {
				c.IsForeignKey = true
				c.RefSchema = pkOwner
				c.RefTable = pkTable
				c.RefField = pair.Remote
			}
		}
	}
	return nil
}

// ColumnPair is one local/remote column link of a foreign key.
type ColumnPair struct {
	Local  string
	Remote string
}

// DecodeForeignKey splits a catalog columns value such as "order_id IS id"
// (comma-separated for multi-column keys) into column pairs. Malformed
// entries are skipped.
func DecodeForeignKey(columns string) []ColumnPair {
	var pairs []ColumnPair
	for _, part := range strings.Split(columns, ",") {
		local, remote, ok := strings.Cut(strings.TrimSpace(part), fkSeparator)
		if !ok {
			continue
		}
		local, remote = strings.TrimSpace(local), strings.TrimSpace(remote)
		if local == "" || remote == "" {
			continue
		}
		pairs = append(pairs, ColumnPair{Local: UnquoteName(local), Remote: UnquoteName(remote)})
	}
	return pairs
}

// --- routines ---

// RoutineNames lists procedures or functions of schemaName. Both live in
// one catalog; a routine is a function when it declares a return value.
func (d *Dialect) RoutineNames(ctx context.Context, schemaName string, kind schema.RoutineKind) ([]*schema.RoutineInfo, error) {
	q := fmt.Sprintf(`
		SELECT procname AS procname
		FROM SYS.SYSPROCS
		WHERE creator = %s
		ORDER BY procname`, d.marker(1))

	rows, err := d.catalogRows(ctx, q, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list routines of %s: %w", schemaName, err)
	}

	functions, err := d.functionNames(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	var out []*schema.RoutineInfo
	for _, row := range rows {
		name := str(row, "procname")
		k := schema.RoutineProcedure
		if functions[strings.ToLower(name)] {
			k = schema.RoutineFunction
		}
		if kind != "" && k != kind {
			continue
		}
		out = append(out, d.newRoutine(schemaName, name, k))
	}
	return out, nil
}

func (d *Dialect) functionNames(ctx context.Context, schemaName string) (map[string]bool, error) {
	q := fmt.Sprintf(`
		SELECT DISTINCT procname AS procname
		FROM SYS.SYSPROCPARMS
		WHERE creator = %s AND parmtype = %d`, d.marker(1), parmTypeReturn)

	rows, err := d.catalogRows(ctx, q, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list functions of %s: %w", schemaName, err)
	}
	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		set[strings.ToLower(str(row, "procname"))] = true
	}
	return set, nil
}

func (d *Dialect) newRoutine(schemaName, name string, kind schema.RoutineKind) *schema.RoutineInfo {
	r := &schema.RoutineInfo{Kind: kind, Schema: schemaName, Name: name}
	_, r.QuotedName = d.qualify(schemaName, name)
	return r
}

// DescribeRoutine reflects schemaName.name with its parameters. An empty
// kind is inferred from the presence of a return value.
func (d *Dialect) DescribeRoutine(ctx context.Context, schemaName, name string, kind schema.RoutineKind) (*schema.RoutineInfo, error) {
	name = UnquoteName(name)

	exists := fmt.Sprintf(`
		SELECT procname AS procname
		FROM SYS.SYSPROCS
		WHERE creator = %s AND procname = %s`, d.marker(1), d.marker(2))
	found, err := d.catalogRows(ctx, exists, schemaName, name)
	if err != nil {
		return nil, fmt.Errorf("describe routine %s.%s: %w", schemaName, name, err)
	}
	if len(found) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "routine %s.%s not found", schemaName, name)
	}
	name = str(found[0], "procname")

	q := fmt.Sprintf(`
		SELECT parm_id AS parm_id, parmmode AS parmmode, parmname AS parmname, parmtype AS parmtype,
		       parmdomain AS parmdomain, length AS length, scale AS scale, "default" AS "default"
		FROM SYS.SYSPROCPARMS
		WHERE creator = %s AND procname = %s
		ORDER BY parm_id`, d.marker(1), d.marker(2))

	rows, err := d.catalogRows(ctx, q, schemaName, name)
	if err != nil {
		return nil, fmt.Errorf("describe parameters of %s.%s: %w", schemaName, name, err)
	}

	r := d.newRoutine(schemaName, name, kind)
	hasReturn := false
	for _, row := range rows {
		c := &schema.ColumnInfo{Name: str(row, "parmname")}
		describeNative(c, str(row, "parmdomain"), num(row, "length"), num(row, "scale"))

		switch num(row, "parmtype") {
		case parmTypeParameter:
			ExtractDefault(c, optStr(row, "default"))
			r.Parameters = append(r.Parameters, &schema.ParameterInfo{
				Name:      c.Name,
				Position:  len(r.Parameters) + 1,
				Direction: schema.ParseDirection(str(row, "parmmode")),
				Type:      c.Type,
				DBType:    c.DBType,
				Length:    c.Length,
				Precision: c.Precision,
				Scale:     c.Scale,
				Default:   c.Default,
			})
		case parmTypeResult, parmTypeReturn:
			hasReturn = hasReturn || num(row, "parmtype") == parmTypeReturn
			if r.ReturnDBType == "" {
				r.ReturnType = c.Type
				r.ReturnDBType = c.DBType
			}
		case parmTypeSQLState, parmTypeSQLCode:
			// driver status codes
		}
	}

	if r.Kind == "" {
		r.Kind = schema.RoutineProcedure
		if hasReturn {
			r.Kind = schema.RoutineFunction
		}
	}
	if r.Kind == schema.RoutineProcedure {
		r.ReturnType, r.ReturnDBType = "", ""
	}
	return r, nil
}
