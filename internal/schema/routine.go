package schema

import (
	"strings"

	"github.com/koustreak/sqlany/internal/database"
)

// RoutineKind separates procedures from functions.
type RoutineKind string

const (
	RoutineProcedure RoutineKind = "procedure"
	RoutineFunction  RoutineKind = "function"
)

// ParamDirection is the declared direction of a routine parameter.
type ParamDirection string

const (
	ParamIn    ParamDirection = "IN"
	ParamInOut ParamDirection = "INOUT"
	ParamOut   ParamDirection = "OUT"
)

// ParseDirection maps a catalog mode string to a direction; anything
// unrecognised is IN.
func ParseDirection(mode string) ParamDirection {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "OUT":
		return ParamOut
	case "INOUT", "IN OUT":
		return ParamInOut
	default:
		return ParamIn
	}
}

// Returns reports whether the direction carries a value back to the caller.
func (d ParamDirection) Returns() bool {
	return d == ParamOut || d == ParamInOut
}

// ParameterInfo describes one routine parameter.
type ParameterInfo struct {
	Name      string         `json:"name"`
	Position  int            `json:"position"`
	Direction ParamDirection `json:"direction"`
	Type      SimpleType     `json:"type"`
	DBType    string         `json:"db_type"`
	Length    int            `json:"length,omitempty"`
	Precision int            `json:"precision,omitempty"`
	Scale     *int           `json:"scale,omitempty"`
	Default   *DefaultValue  `json:"default,omitempty"`
}

// RoutineInfo describes a stored procedure or function.
type RoutineInfo struct {
	Kind       RoutineKind      `json:"kind"`
	Schema     string           `json:"schema"`
	Name       string           `json:"name"`
	QuotedName string           `json:"quoted_name"`
	Parameters []*ParameterInfo `json:"parameters"`
	// ReturnType is empty for procedures.
	ReturnType   SimpleType `json:"return_type,omitempty"`
	ReturnDBType string     `json:"return_db_type,omitempty"`
}

// Parameter returns the parameter named name (case-insensitive, leading @
// ignored), or nil.
func (r *RoutineInfo) Parameter(name string) *ParameterInfo {
	name = strings.TrimPrefix(name, "@")
	for _, p := range r.Parameters {
		if strings.EqualFold(strings.TrimPrefix(p.Name, "@"), name) {
			return p
		}
	}
	return nil
}

// RoutineResult is what a routine call produced once emulated output
// parameters have been folded out of the result stream.
type RoutineResult struct {
	Sets []database.ResultSet `json:"sets"`
	// Out holds INOUT/OUT parameter values keyed by parameter name.
	Out map[string]any `json:"out,omitempty"`
}

// Payload shapes the caller-visible data: nil for no result set, the rows of
// the single result set, or the list of result sets' rows.
func (r *RoutineResult) Payload() any {
	switch len(r.Sets) {
	case 0:
		return nil
	case 1:
		return r.Sets[0].Rows
	default:
		out := make([][]map[string]any, len(r.Sets))
		for i, s := range r.Sets {
			out[i] = s.Rows
		}
		return out
	}
}
