package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/koustreak/sqlany/internal/database/sqlanywhere"
	"github.com/koustreak/sqlany/internal/schema"
)

// columnFlags collects an abstract column description from the command line.
type columnFlags struct {
	name          string
	simpleType    string
	dbType        string
	length        int
	precision     int
	scale         int
	nullable      bool
	unique        bool
	primaryKey    bool
	autoIncrement bool
	defaultValue  string
	defaultExpr   string
}

func (f *columnFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "column name")
	fs.StringVar(&f.simpleType, "type", "", "abstract type (integer, string, decimal, timestamp, ...)")
	fs.StringVar(&f.dbType, "db-type", "", "native type such as varchar(40), used when --type is empty")
	fs.IntVar(&f.length, "length", 0, "character or binary length")
	fs.IntVar(&f.precision, "precision", 0, "numeric precision")
	fs.IntVar(&f.scale, "scale", -1, "numeric scale (unset when negative)")
	fs.BoolVar(&f.nullable, "nullable", true, "allow NULL")
	fs.BoolVar(&f.unique, "unique", false, "add a UNIQUE constraint")
	fs.BoolVar(&f.primaryKey, "primary-key", false, "mark as PRIMARY KEY")
	fs.BoolVar(&f.autoIncrement, "auto-increment", false, "DEFAULT AUTOINCREMENT")
	fs.StringVar(&f.defaultValue, "default", "", "literal default (parsed like --arg values)")
	fs.StringVar(&f.defaultExpr, "default-expr", "", "expression default, rendered verbatim")
}

func (f *columnFlags) column(fs *pflag.FlagSet) *schema.ColumnInfo {
	col := &schema.ColumnInfo{
		Name:          f.name,
		Type:          schema.SimpleType(f.simpleType),
		DBType:        f.dbType,
		Length:        f.length,
		Precision:     f.precision,
		AllowNull:     f.nullable,
		IsUnique:      f.unique,
		IsPrimaryKey:  f.primaryKey,
		AutoIncrement: f.autoIncrement,
	}
	if f.scale >= 0 {
		scale := f.scale
		col.Scale = &scale
	}
	switch {
	case f.defaultExpr != "":
		col.Default = schema.Expression(f.defaultExpr)
	case fs.Changed("default"):
		col.Default = schema.Literal(parseScalar(f.defaultValue))
	}
	return col
}

func newDDLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Render DDL statements without touching the database",
		Long: `Render DDL statements without touching the database. Table names are
qualified only when --schema is given.`,
	}
	cmd.AddCommand(
		newColumnDDLCmd(a),
		newTableColumnDDLCmd(a, "add-column", "ALTER TABLE ... ADD", sqlanywhere.AddColumn),
		newTableColumnDDLCmd(a, "alter-column", "ALTER TABLE ... ALTER COLUMN", sqlanywhere.AlterColumn),
		&cobra.Command{
			Use:   "drop-column TABLE COLUMN",
			Short: "ALTER TABLE ... DROP",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), sqlanywhere.DropColumn(a.schemaName, args[0], args[1]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename-table OLD NEW",
			Short: "Rename a table",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), sqlanywhere.RenameTable(args[0], args[1]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename-column TABLE OLD NEW",
			Short: "Rename a column",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), sqlanywhere.RenameColumn(args[0], args[1], args[2]))
				return nil
			},
		},
	)
	return cmd
}

func newColumnDDLCmd(a *app) *cobra.Command {
	var f columnFlags
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Translate a column and print its definition fragment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			col := f.column(cmd.Flags())
			if a.output == "json" {
				native, err := sqlanywhere.Translate(col)
				if err != nil {
					return err
				}
				def, err := sqlanywhere.BuildColumn(native)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), map[string]any{"column": native, "definition": def})
			}
			def, err := sqlanywhere.ColumnDefinition(col)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), def)
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}

type tableColumnRenderer func(schemaName, table string, col *schema.ColumnInfo) (string, error)

func newTableColumnDDLCmd(a *app, use, short string, render tableColumnRenderer) *cobra.Command {
	var f columnFlags
	cmd := &cobra.Command{
		Use:   use + " TABLE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt, err := render(a.schemaName, args[0], f.column(cmd.Flags()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stmt)
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}
