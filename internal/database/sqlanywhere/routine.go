package sqlanywhere

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/schema"
)

// callPlan is a built routine call: the statement batch, its bound arguments
// and what the demultiplexer must expect back.
type callPlan struct {
	prologue []string
	call     string
	epilogue []string
	args     []any

	demux demuxer
	// native holds natively bound output destinations keyed by parameter name.
	native map[string]*any
}

// SQL returns the statement batch.
func (p *callPlan) SQL() string {
	stmts := make([]string, 0, len(p.prologue)+1+len(p.epilogue))
	stmts = append(stmts, p.prologue...)
	stmts = append(stmts, p.call)
	stmts = append(stmts, p.epilogue...)
	return strings.Join(stmts, ";\n")
}

// InvokeRoutine executes r with args keyed by parameter name and
// demultiplexes the result stream. Procedures emulate INOUT and OUT
// parameters unless the driver binds output parameters natively.
func (d *Dialect) InvokeRoutine(ctx context.Context, r *schema.RoutineInfo, args map[string]any) (*schema.RoutineResult, error) {
	log := d.log.With().Str("routine", r.QuotedName).Str("kind", string(r.Kind)).Logger()

	plan, err := d.buildCall(r, args)
	if err != nil {
		return nil, err
	}
	stmt := plan.SQL()
	log.DebugWith("invoking routine", map[string]any{"sql": compact(stmt), "args": len(plan.args)})

	rows, err := d.db.Query(ctx, stmt, plan.args...)
	if err != nil {
		log.ErrorWith("routine call failed", err, map[string]any{"code": errs.CodeOf(err)})
		return nil, err
	}
	sets, err := database.ScanResultSets(rows, FormatValue)
	if err != nil {
		log.ErrorWith("reading routine results failed", err, map[string]any{"code": errs.CodeOf(err)})
		return nil, err
	}

	res, err := plan.demux.run(sets)
	if err != nil {
		log.ErrorWith("demultiplexing routine results failed", err, nil)
		return nil, err
	}
	for name, dest := range plan.native {
		if res.Out == nil {
			res.Out = make(map[string]any, len(plan.native))
		}
		res.Out[name] = FormatValue(*dest)
	}
	return res, nil
}

// buildCall composes the statement batch for r.
func (d *Dialect) buildCall(r *schema.RoutineInfo, args map[string]any) (*callPlan, error) {
	quoted := r.QuotedName
	if quoted == "" {
		_, quoted = d.qualify(r.Schema, r.Name)
	}
	if r.Kind == schema.RoutineFunction {
		return d.buildFunctionCall(r, quoted, args)
	}

	plan := &callPlan{}
	emulate := !d.caps.OutputBinding

	// Prologue arguments precede the call's in statement order.
	if emulate {
		for _, p := range r.Parameters {
			if !p.Direction.Returns() {
				continue
			}
			name := paramName(p.Name)
			v := "@" + name
			plan.prologue = append(plan.prologue, fmt.Sprintf("DECLARE %s %s", v, paramTypeDecl(p)))
			if p.Direction == schema.ParamInOut {
				value, supplied := lookupArg(args, name)
				if !supplied {
					return nil, errs.Newf(errs.ErrKindInvalidInput, "routine %s: missing value for INOUT parameter %q", r.Name, name)
				}
				plan.args = append(plan.args, value)
				plan.prologue = append(plan.prologue, fmt.Sprintf("SET %s = %s", v, d.marker(len(plan.args))))
				plan.demux.skip += d.caps.PrologueResultSets
			}
			plan.epilogue = append(plan.epilogue, fmt.Sprintf("SELECT %s AS %s", v, QuoteName(name)))
			plan.demux.trailer = append(plan.demux.trailer, name)
		}
	}

	// An IN parameter with a catalog default and no argument is left out,
	// which switches the call to named arguments. Without a default the
	// parameter is bound as NULL.
	names := make([]string, 0, len(r.Parameters))
	tokens := make([]string, 0, len(r.Parameters))
	named := false
	for _, p := range r.Parameters {
		name := paramName(p.Name)
		value, supplied := lookupArg(args, name)
		if !p.Direction.Returns() && !supplied && p.Default != nil {
			named = true
			continue
		}
		names = append(names, name)

		switch {
		case !p.Direction.Returns():
			plan.args = append(plan.args, value)
			tokens = append(tokens, d.marker(len(plan.args)))

		case emulate:
			tokens = append(tokens, "@"+name)

		default:
			if plan.native == nil {
				plan.native = make(map[string]*any)
			}
			dest := new(any)
			if p.Direction == schema.ParamInOut {
				*dest = value
			}
			plan.native[name] = dest
			plan.args = append(plan.args, sql.Named(name, sql.Out{Dest: dest, In: p.Direction == schema.ParamInOut}))
			tokens = append(tokens, "@"+name)
		}
	}

	if named {
		for i, name := range names {
			tokens[i] = name + " = " + tokens[i]
		}
	}
	plan.call = fmt.Sprintf("CALL %s(%s)", quoted, strings.Join(tokens, ", "))
	return plan, nil
}

// buildFunctionCall projects a function call; functions only take IN
// parameters, so nothing is emulated. Function calls are positional, so a
// missing argument is bound as NULL even when the catalog has a default.
func (d *Dialect) buildFunctionCall(r *schema.RoutineInfo, quoted string, args map[string]any) (*callPlan, error) {
	plan := &callPlan{}
	for _, p := range r.Parameters {
		if p.Direction.Returns() {
			return nil, errs.Newf(errs.ErrKindInvalidInput,
				"function %s: parameter %q is %s", r.Name, p.Name, p.Direction)
		}
		value, _ := lookupArg(args, paramName(p.Name))
		plan.args = append(plan.args, value)
	}
	markers := d.caps.Placeholder.Markers(1, len(plan.args))
	plan.call = fmt.Sprintf("SELECT %s(%s) AS %s", quoted, markers, QuoteName(r.Name))
	return plan, nil
}

// paramTypeDecl renders the native type of p with its size suffix.
func paramTypeDecl(p *schema.ParameterInfo) string {
	c := &schema.ColumnInfo{
		Name:      p.Name,
		DBType:    p.DBType,
		Length:    p.Length,
		Precision: p.Precision,
		Scale:     p.Scale,
	}
	if c.DBType == "" {
		c.DBType = "long varchar"
	}
	return c.DBType + sizeExtras(c)
}

func paramName(name string) string {
	return strings.TrimPrefix(UnquoteName(name), "@")
}

// lookupArg finds the argument for a parameter, ignoring case and a leading @.
func lookupArg(args map[string]any, name string) (any, bool) {
	if v, ok := args[name]; ok {
		return v, true
	}
	for k, v := range args {
		if strings.EqualFold(strings.TrimPrefix(k, "@"), name) {
			return v, true
		}
	}
	return nil, false
}
