package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
)

func newSchemasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List user schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			names, err := a.inspector.SchemaNames(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, len(names))
			for i, n := range names {
				rows[i] = []string{n}
			}
			return a.printNames(cmd.OutOrStdout(), nil, rows, names)
		},
	}
}

func newTablesCmd(a *app) *cobra.Command {
	var views bool
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables (or views) of a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			var (
				tables []*schema.TableInfo
				err    error
			)
			if views {
				tables, err = a.inspector.ViewNames(ctx, a.schema())
			} else {
				tables, err = a.inspector.TableNames(ctx, a.schema())
			}
			if err != nil {
				return err
			}
			rows := make([][]string, len(tables))
			for i, t := range tables {
				rows[i] = []string{t.Name, t.QuotedName}
			}
			return a.printNames(cmd.OutOrStdout(), []string{"NAME", "QUOTED"}, rows, tables)
		},
	}
	cmd.Flags().BoolVar(&views, "views", false, "list views instead of tables")
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "describe [TABLE]",
		Short: "Reflect one table or view, or the whole schema with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errs.New(errs.ErrKindInvalidInput, "describe needs a table name or --all")
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			if all {
				info, err := a.inspector.InspectSchema(ctx, a.schema())
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), info)
			}

			t, err := a.inspector.Table(ctx, a.schema(), args[0])
			if err != nil {
				return err
			}
			if a.output == "text" {
				rows := make([][]string, len(t.Columns))
				for i, c := range t.Columns {
					rows[i] = []string{c.Name, c.DBType, string(c.Type), strconv.FormatBool(c.AllowNull), c.Default.String()}
				}
				return a.printNames(cmd.OutOrStdout(), []string{"COLUMN", "NATIVE", "TYPE", "NULL", "DEFAULT"}, rows, t)
			}
			return a.print(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "reflect every table, view and routine of the schema")
	return cmd
}

func newRoutinesCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "routines",
		Short: "List the procedures and functions of a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			kinds := []schema.RoutineKind{k}
			if k == "" {
				kinds = []schema.RoutineKind{schema.RoutineProcedure, schema.RoutineFunction}
			}
			var all []*schema.RoutineInfo
			for _, k := range kinds {
				list, err := a.inspector.RoutineNames(ctx, a.schema(), k)
				if err != nil {
					return err
				}
				all = append(all, list...)
			}
			rows := make([][]string, len(all))
			for i, r := range all {
				rows[i] = []string{r.Name, string(r.Kind)}
			}
			return a.printNames(cmd.OutOrStdout(), []string{"NAME", "KIND"}, rows, all)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "procedure or function (default both)")
	return cmd
}

func newRoutineCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "routine NAME",
		Short: "Reflect one routine with its parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			r, err := a.inspector.Routine(ctx, a.schema(), args[0], k)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "procedure or function (inferred when empty)")
	return cmd
}

func newCallCmd(a *app) *cobra.Command {
	var (
		kind     string
		pairs    []string
		argsJSON string
	)
	cmd := &cobra.Command{
		Use:   "call NAME",
		Short: "Invoke a routine and print its result sets and output parameters",
		Example: `  sainspect call sp_calc --arg a=5
  sainspect call sp_tag -s sales --args '{"id": 7, "label": "old"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			callArgs, err := parseCallArgs(pairs, argsJSON)
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			res, err := a.inspector.Call(ctx, a.schema(), args[0], k, callArgs)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]any{
				"data": res.Payload(),
				"out":  res.Out,
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "procedure or function (inferred when empty)")
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "argument as name=value (repeatable)")
	cmd.Flags().StringVar(&argsJSON, "args", "", "arguments as a JSON object")
	return cmd
}

func newIntegrityCmd(a *app) *cobra.Command {
	var enable, apply bool
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Print (or run with --apply) the statements toggling constraint checks on every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := a.queryContext(cmd.Context())
			defer cancel()

			var (
				stmts []string
				err   error
			)
			if apply {
				stmts, err = a.inspector.ApplyIntegrity(ctx, schema.NewCache(), a.schema(), enable)
			} else {
				stmts, err = a.inspector.IntegrityStatements(ctx, schema.NewCache(), a.schema(), enable)
			}
			// ApplyIntegrity returns the statements that ran before a failure.
			for _, s := range stmts {
				fmt.Fprintln(cmd.OutOrStdout(), s+";")
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&enable, "enable", true, "re-enable (true) or disable (false) checks")
	cmd.Flags().BoolVar(&apply, "apply", false, "execute the statements instead of printing them only")
	return cmd
}

func parseKind(raw string) (schema.RoutineKind, error) {
	switch k := schema.RoutineKind(strings.ToLower(raw)); k {
	case "", schema.RoutineProcedure, schema.RoutineFunction:
		return k, nil
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "--kind %q must be procedure or function", raw)
	}
}

// parseCallArgs merges --args (JSON) with --arg pairs; pairs win.
func parseCallArgs(pairs []string, argsJSON string) (map[string]any, error) {
	out := make(map[string]any)
	if argsJSON != "" {
		dec := json.NewDecoder(strings.NewReader(argsJSON))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid --args", err)
		}
		for k, v := range out {
			if n, ok := v.(json.Number); ok {
				out[k] = parseScalar(n.String())
			}
		}
	}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "--arg %q must be name=value", p)
		}
		out[name] = parseScalar(value)
	}
	return out, nil
}

// parseScalar turns a command-line value into the narrowest Go value:
// NULL, integer, exact decimal, boolean, or the text itself.
func parseScalar(s string) any {
	switch strings.ToLower(s) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	return s
}
