package schema

import (
	"context"
	"fmt"

	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/logger"
)

// Inspector is the engine-agnostic reflection driver. All engine knowledge
// lives in the injected Dialect; Inspector only orchestrates calls.
type Inspector struct {
	dialect Dialect
	log     *logger.Logger
}

// NewInspector returns an Inspector over d. A nil log discards output.
func NewInspector(d Dialect, log *logger.Logger) *Inspector {
	if log == nil {
		log = logger.Nop()
	}
	return &Inspector{
		dialect: d,
		log:     log.Component("inspector").With().Str("dialect", d.Name()).Logger(),
	}
}

// Dialect returns the injected dialect.
func (i *Inspector) Dialect() Dialect {
	return i.dialect
}

// SchemaNames lists user schemas.
func (i *Inspector) SchemaNames(ctx context.Context) ([]string, error) {
	return i.dialect.SchemaNames(ctx)
}

// TableNames lists the tables of schema.
func (i *Inspector) TableNames(ctx context.Context, schema string) ([]*TableInfo, error) {
	return i.dialect.TableNames(ctx, schema, false)
}

// ViewNames lists the views of schema.
func (i *Inspector) ViewNames(ctx context.Context, schema string) ([]*TableInfo, error) {
	return i.dialect.TableNames(ctx, schema, true)
}

// Table reflects one table or view.
func (i *Inspector) Table(ctx context.Context, schema, table string) (*TableInfo, error) {
	return i.dialect.DescribeTable(ctx, schema, table)
}

// TableExists reports whether schema.table exists as a table or view.
func (i *Inspector) TableExists(ctx context.Context, schema, table string) (bool, error) {
	for _, views := range []bool{false, true} {
		list, err := i.dialect.TableNames(ctx, schema, views)
		if err != nil {
			return false, err
		}
		for _, t := range list {
			if i.dialect.CompareNames(t.ResourceName, table) {
				return true, nil
			}
		}
	}
	return false, nil
}

// InspectSchema reflects every table and view of schema and lists its
// routines. This is expensive; callers should keep the result.
func (i *Inspector) InspectSchema(ctx context.Context, schema string) (*SchemaInfo, error) {
	info := &SchemaInfo{Name: schema}

	for _, views := range []bool{false, true} {
		list, err := i.dialect.TableNames(ctx, schema, views)
		if err != nil {
			return nil, err
		}
		for _, entry := range list {
			t, err := i.dialect.DescribeTable(ctx, schema, entry.ResourceName)
			if err != nil {
				if errs.IsNotFound(err) {
					// Dropped between listing and describing.
					i.log.Warnf("skipping %s.%s: %v", schema, entry.ResourceName, err)
					continue
				}
				return nil, fmt.Errorf("inspecting %s.%s: %w", schema, entry.ResourceName, err)
			}
			if views {
				info.Views = append(info.Views, t)
			} else {
				info.Tables = append(info.Tables, t)
			}
		}
	}

	for _, kind := range []RoutineKind{RoutineProcedure, RoutineFunction} {
		routines, err := i.dialect.RoutineNames(ctx, schema, kind)
		if err != nil {
			return nil, err
		}
		info.Routines = append(info.Routines, routines...)
	}

	i.log.With().
		Str("schema", schema).
		Int("tables", len(info.Tables)).
		Int("views", len(info.Views)).
		Int("routines", len(info.Routines)).
		Logger().
		Info("schema inspected")
	return info, nil
}

// RoutineNames lists routines of kind in schema.
func (i *Inspector) RoutineNames(ctx context.Context, schema string, kind RoutineKind) ([]*RoutineInfo, error) {
	return i.dialect.RoutineNames(ctx, schema, kind)
}

// Routine reflects one routine.
func (i *Inspector) Routine(ctx context.Context, schema, name string, kind RoutineKind) (*RoutineInfo, error) {
	return i.dialect.DescribeRoutine(ctx, schema, name, kind)
}

// Call describes the routine then invokes it with args.
func (i *Inspector) Call(ctx context.Context, schema, name string, kind RoutineKind, args map[string]any) (*RoutineResult, error) {
	routine, err := i.dialect.DescribeRoutine(ctx, schema, name, kind)
	if err != nil {
		return nil, err
	}
	return i.dialect.InvokeRoutine(ctx, routine, args)
}

// ColumnDDL normalises col and renders it as a column definition.
func (i *Inspector) ColumnDDL(col *ColumnInfo) (string, error) {
	native, err := i.dialect.TranslateType(col)
	if err != nil {
		return "", err
	}
	return i.dialect.BuildColumn(native)
}

// ApplyIntegrity executes the integrity toggles of schema and returns the
// statements that ran. It stops at the first failure.
func (i *Inspector) ApplyIntegrity(ctx context.Context, cache *Cache, schema string, enable bool) ([]string, error) {
	stmts, err := i.IntegrityStatements(ctx, cache, schema, enable)
	if err != nil {
		return nil, err
	}
	for n, stmt := range stmts {
		if _, err := i.dialect.Execute(ctx, stmt); err != nil {
			return stmts[:n], fmt.Errorf("applying %q: %w", stmt, err)
		}
	}
	i.log.With().
		Str("schema", schema).
		Bool("enable", enable).
		Int("tables", len(stmts)).
		Logger().
		Info("integrity checks toggled")
	return stmts, nil
}

// IntegrityStatements renders one integrity toggle per non-view table of
// schema, using cache to avoid re-listing tables.
func (i *Inspector) IntegrityStatements(ctx context.Context, cache *Cache, schema string, enable bool) ([]string, error) {
	tables, err := cache.Tables(ctx, schema, i.TableNames)
	if err != nil {
		return nil, err
	}
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, i.dialect.IntegrityStatement(t, enable))
	}
	return stmts, nil
}
