package sqlanywhere

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
)

func TestNew_Defaults(t *testing.T) {
	fake := newFakeDB()
	fake.caps = database.Capabilities{Placeholder: "dollar"}

	d := New(fake, "", nil)
	assert.Equal(t, database.DefaultSchema, d.DefaultSchema())
	assert.Equal(t, "@p1", d.marker(1), "unknown placeholder styles fall back to the sqlserver markers")
	assert.Equal(t, DialectName, d.Name())
}

func TestDialect_Qualify(t *testing.T) {
	d := New(newFakeDB(), "DBA", nil)

	display, quoted := d.qualify("dba", "orders")
	assert.Equal(t, "orders", display)
	assert.Equal(t, "[orders]", quoted)

	display, quoted = d.qualify("sales", "orders")
	assert.Equal(t, "sales.orders", display)
	assert.Equal(t, "[sales].[orders]", quoted)
}

func TestDialect_Execute(t *testing.T) {
	fake := newFakeDB()
	d := New(fake, "DBA", nil)

	_, err := d.Execute(context.Background(), "ALTER TABLE [orders] NOCHECK CONSTRAINT ALL")
	require.NoError(t, err)
	q, _ := fake.lastQuery("NOCHECK")
	assert.Equal(t, "ALTER TABLE [orders] NOCHECK CONSTRAINT ALL", q)

	fake.fail("[locked]", errs.WrapCode(errs.ErrKindPermissionDenied, "permission denied", -codePermissionDenied, nil))
	_, err = d.Execute(context.Background(), "ALTER TABLE [locked] CHECK CONSTRAINT ALL")
	assert.True(t, errs.IsPermissionDenied(err))
	assert.Equal(t, -codePermissionDenied, errs.CodeOf(err))
}
