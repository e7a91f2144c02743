package sqlanywhere

import (
	"context"
	"strings"

	"github.com/koustreak/sqlany/internal/database"
)

// fakeDB answers statements from a script: the first response whose match
// string occurs in the SQL wins. Unmatched statements yield one empty set.
type fakeDB struct {
	caps      database.Capabilities
	responses []fakeResponse
	queries   []string
	args      [][]any
}

type fakeResponse struct {
	match string
	sets  []database.ResultSet
	err   error
}

func newFakeDB() *fakeDB {
	return &fakeDB{caps: database.Capabilities{Placeholder: database.PlaceholderQuestion}}
}

func (f *fakeDB) on(match string, sets ...database.ResultSet) *fakeDB {
	f.responses = append(f.responses, fakeResponse{match: match, sets: sets})
	return f
}

func (f *fakeDB) fail(match string, err error) *fakeDB {
	f.responses = append(f.responses, fakeResponse{match: match, err: err})
	return f
}

func (f *fakeDB) lookup(q string, args []any) ([]database.ResultSet, error) {
	f.queries = append(f.queries, q)
	f.args = append(f.args, args)
	for _, r := range f.responses {
		if strings.Contains(q, r.match) {
			return r.sets, r.err
		}
	}
	return []database.ResultSet{{}}, nil
}

// lastQuery returns the most recent statement containing match.
func (f *fakeDB) lastQuery(match string) (string, []any) {
	for i := len(f.queries) - 1; i >= 0; i-- {
		if strings.Contains(f.queries[i], match) {
			return f.queries[i], f.args[i]
		}
	}
	return "", nil
}

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close()                     {}

func (f *fakeDB) Query(_ context.Context, q string, args ...any) (database.Rows, error) {
	sets, err := f.lookup(q, args)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		sets = []database.ResultSet{{}}
	}
	return &fakeRows{sets: sets, row: -1}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, q string, args ...any) (database.Row, error) {
	rows, err := f.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return &fakeRow{rows: rows.(*fakeRows)}, nil
}

func (f *fakeDB) Exec(_ context.Context, q string, args ...any) (int64, error) {
	_, err := f.lookup(q, args)
	return 0, err
}

func (f *fakeDB) Capabilities() database.Capabilities { return f.caps }

type fakeRows struct {
	sets []database.ResultSet
	set  int
	row  int
}

func (r *fakeRows) Next() bool {
	r.row++
	return r.row < len(r.sets[r.set].Rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	cur := r.sets[r.set]
	for i, col := range cur.Columns {
		*(dest[i].(*any)) = cur.Rows[r.row][col]
	}
	return nil
}

func (r *fakeRows) Columns() ([]string, error) { return r.sets[r.set].Columns, nil }

func (r *fakeRows) NextResultSet() bool {
	if r.set+1 >= len(r.sets) {
		return false
	}
	r.set++
	r.row = -1
	return true
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

type fakeRow struct {
	rows *fakeRows
}

func (r *fakeRow) Scan(dest ...any) error {
	if !r.rows.Next() {
		return nil
	}
	return r.rows.Scan(dest...)
}

// set builds a result set from column names and positional row values.
func set(cols []string, rows ...[]any) database.ResultSet {
	rs := database.ResultSet{Columns: cols, Rows: make([]map[string]any, 0, len(rows))}
	for _, vals := range rows {
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = vals[i]
		}
		rs.Rows = append(rs.Rows, m)
	}
	return rs
}

func cols(names ...string) []string { return names }

func row(vals ...any) []any { return vals }
