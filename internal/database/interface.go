package database

import "context"

// DB is the connection contract the dialect is built on. It is one open,
// synchronous connection (or a pool the caller treats as one): statements
// are issued strictly one after another.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection.
	Close()

	// Query executes a statement or batch that returns one or more result sets.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Capabilities reports what the underlying driver can bind.
	Capabilities() Capabilities
}

// Rows is an abstraction over an ordered stream of result sets.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row of the current result set.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the current result set.
	Columns() ([]string, error)

	// NextResultSet advances to the next result set. It reports false when
	// the stream is exhausted.
	NextResultSet() bool

	// Close releases resources held by the result stream.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}
