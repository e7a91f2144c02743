package sqlanywhere

import (
	"context"

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/logger"
	"github.com/koustreak/sqlany/internal/schema"
)

// DialectName identifies the engine in logs and snapshots.
const DialectName = "sqlanywhere"

// Dialect implements schema.Dialect for SQL Anywhere.
//
// Each call issues its statements strictly one after another on db and
// drains every result stream before the next statement. A Dialect holds no
// mutable state of its own, so it is as safe for concurrent use as db is.
type Dialect struct {
	db            database.DB
	caps          database.Capabilities
	defaultSchema string
	log           *logger.Logger
}

var _ schema.Dialect = (*Dialect)(nil)

// New returns a Dialect over db. Objects owned by defaultSchema are reported
// without schema qualification. A nil log discards output.
func New(db database.DB, defaultSchema string, log *logger.Logger) *Dialect {
	if log == nil {
		log = logger.Nop()
	}
	if defaultSchema == "" {
		defaultSchema = database.DefaultSchema
	}
	caps := db.Capabilities()
	if !caps.Placeholder.Valid() {
		caps.Placeholder = database.DefaultPlaceholder(database.DefaultDriverName)
	}
	return &Dialect{
		db:            db,
		caps:          caps,
		defaultSchema: defaultSchema,
		log:           log.Component(DialectName),
	}
}

func (d *Dialect) Name() string { return DialectName }

func (d *Dialect) QuoteName(name string) string { return QuoteName(name) }

func (d *Dialect) CompareNames(a, b string) bool { return CompareNames(a, b) }

func (d *Dialect) TranslateType(col *schema.ColumnInfo) (*schema.ColumnInfo, error) {
	return Translate(col)
}

func (d *Dialect) BuildColumn(col *schema.ColumnInfo) (string, error) {
	return BuildColumn(col)
}

func (d *Dialect) IntegrityStatement(t *schema.TableInfo, enable bool) string {
	return IntegrityStatement(t, enable)
}

// Execute runs a statement that returns no rows.
func (d *Dialect) Execute(ctx context.Context, stmt string) (int64, error) {
	d.log.DebugWith("executing statement", map[string]any{"sql": compact(stmt)})
	n, err := d.db.Exec(ctx, stmt)
	if err != nil {
		d.log.ErrorWith("statement failed", err, map[string]any{"sql": compact(stmt), "code": errs.CodeOf(err)})
		return 0, err
	}
	return n, nil
}

// DefaultSchema returns the owner whose objects are not qualified.
func (d *Dialect) DefaultSchema() string {
	return d.defaultSchema
}

// isDefault reports whether schemaName is the default schema.
func (d *Dialect) isDefault(schemaName string) bool {
	return schemaName == "" || CompareNames(schemaName, d.defaultSchema)
}

// qualify returns the display and quoted names of an object in schemaName.
func (d *Dialect) qualify(schemaName, name string) (display, quoted string) {
	if d.isDefault(schemaName) {
		return name, QuoteName(name)
	}
	return schemaName + "." + name, QuoteQualified(schemaName, name)
}

func (d *Dialect) marker(idx int) string {
	return d.caps.Placeholder.Marker(idx)
}
