package database

import (
	"errors"

	"github.com/koustreak/sqlany/internal/errs"
)

// ResultSet is one fully drained result set. Columns keeps the order the
// driver reported; each row maps column name to its Go value.
type ResultSet struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Scalar reports the single value of a one-row, one-column result set.
func (rs ResultSet) Scalar() (name string, value any, ok bool) {
	if len(rs.Columns) != 1 || len(rs.Rows) != 1 {
		return "", nil, false
	}
	name = rs.Columns[0]
	return name, rs.Rows[0][name], true
}

// ValueFormatter rewrites a raw driver value before it is handed to callers.
type ValueFormatter func(any) any

// ScanRows reads the current result set and returns it as a ResultSet.
// It does not advance to the next result set and does not close rows.
// A nil format leaves values untouched.
func ScanRows(rows Rows, format ValueFormatter) (ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, wrapScan("failed to read column names", err)
	}

	rs := ResultSet{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return ResultSet{}, wrapScan("failed to scan row", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			v := dest[i]
			if format != nil {
				v = format(v)
			}
			row[col] = v
		}
		rs.Rows = append(rs.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return ResultSet{}, wrapScan("error during row iteration", err)
	}
	return rs, nil
}

// ScanResultSets drains every result set in arrival order, including the
// column-less sets statements without a projection produce, so callers can
// count statements. ScanResultSets always closes rows.
func ScanResultSets(rows Rows, format ValueFormatter) ([]ResultSet, error) {
	defer rows.Close()

	var sets []ResultSet
	for {
		rs, err := ScanRows(rows, format)
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapScan("error advancing result sets", err)
	}
	return sets, nil
}

// wrapScan keeps errors the driver already classified (timeouts, engine
// codes) and marks anything else as a failed query.
func wrapScan(msg string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}
