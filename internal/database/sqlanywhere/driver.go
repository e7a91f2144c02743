package sqlanywhere

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/microsoft/go-mssqldb" // register "sqlserver" (TDS) driver

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
)

const (
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

// Driver implements database.DB over database/sql.
// It is safe for concurrent use, but a reflection or invocation sequence
// must still drain each result stream before issuing the next statement.
type Driver struct {
	db   *sql.DB
	caps database.Capabilities
}

// Open opens the pool described by cfg and pings it before returning.
func Open(ctx context.Context, cfg *database.Config) (*Driver, error) {
	if cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindConfiguration, "database DSN is empty")
	}
	driverName := cfg.DriverName
	if driverName == "" {
		driverName = database.DefaultDriverName
	}
	caps := cfg.Capabilities()
	switch {
	case caps.Placeholder == "":
		caps.Placeholder = database.DefaultPlaceholder(driverName)
	case !caps.Placeholder.Valid():
		return nil, errs.Newf(errs.ErrKindConfiguration, "unknown placeholder style %q", caps.Placeholder)
	case caps.Placeholder == database.PlaceholderQuestion && driverName == database.DefaultDriverName:
		return nil, errs.Newf(errs.ErrKindConfiguration, "the %q driver does not accept ? markers", driverName)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(withDefault(cfg.MaxConns, defaultMaxOpenConns)))
	db.SetMaxIdleConns(int(withDefault(cfg.MaxIdleConns, defaultMaxIdleConns)))
	db.SetConnMaxLifetime(durationOr(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(durationOr(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))

	d := NewDriver(db, caps)

	pingCtx, cancel := context.WithTimeout(ctx, durationOr(cfg.ConnectTimeout, defaultConnectTimeout))
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// NewDriver wraps an already opened *sql.DB. An unset placeholder style
// defaults to the one the "sqlserver" driver accepts.
func NewDriver(db *sql.DB, caps database.Capabilities) *Driver {
	if caps.Placeholder == "" {
		caps.Placeholder = database.DefaultPlaceholder(database.DefaultDriverName)
	}
	return &Driver{db: db, caps: caps}
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &saRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	return &saRow{row: d.db.QueryRowContext(ctx, query, args...)}, nil
}

func (d *Driver) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Not every statement reports a count (DDL, CALL).
		return 0, nil
	}
	return n, nil
}

func (d *Driver) Capabilities() database.Capabilities {
	return d.caps
}

// --- sql.DB type wrappers ---

type saRows struct {
	rows *sql.Rows
}

func (r *saRows) Next() bool                 { return r.rows.Next() }
func (r *saRows) Scan(dest ...any) error     { return mapErrorOrNil(r.rows.Scan(dest...), "scan failed") }
func (r *saRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *saRows) NextResultSet() bool        { return r.rows.NextResultSet() }
func (r *saRows) Close()                     { _ = r.rows.Close() }
func (r *saRows) Err() error                 { return mapErrorOrNil(r.rows.Err(), "row iteration failed") }

type saRow struct {
	row *sql.Row
}

func (r *saRow) Scan(dest ...any) error {
	return mapErrorOrNil(r.row.Scan(dest...), "scan failed")
}

// mapErrorOrNil avoids returning a typed nil through the error interface.
func mapErrorOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}
	return mapError(err, msg)
}

func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}

func durationOr(val, def time.Duration) time.Duration {
	if val == 0 {
		return def
	}
	return val
}
