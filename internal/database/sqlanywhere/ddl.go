package sqlanywhere

import (
	"fmt"

	"github.com/koustreak/sqlany/internal/schema"
)

// ColumnDefinition translates col and renders its definition fragment.
func ColumnDefinition(col *schema.ColumnInfo) (string, error) {
	native, err := Translate(col)
	if err != nil {
		return "", err
	}
	return BuildColumn(native)
}

// AddColumn returns the statement adding col to schema.table.
func AddColumn(schemaName, table string, col *schema.ColumnInfo) (string, error) {
	def, err := ColumnDefinition(col)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s %s", QuoteQualified(schemaName, table), QuoteName(col.Name), def), nil
}

// AlterColumn returns the statement redefining col on schema.table.
func AlterColumn(schemaName, table string, col *schema.ColumnInfo) (string, error) {
	def, err := ColumnDefinition(col)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", QuoteQualified(schemaName, table), QuoteName(col.Name), def), nil
}

// DropColumn returns the statement dropping column from schema.table.
func DropColumn(schemaName, table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP %s", QuoteQualified(schemaName, table), QuoteName(column))
}

// RenameTable returns the rename-procedure call renaming a table.
func RenameTable(oldName, newName string) string {
	return fmt.Sprintf("CALL sp_rename(%s,%s)", quoteLiteral(UnquoteName(oldName)), quoteLiteral(UnquoteName(newName)))
}

// RenameColumn returns the rename-procedure call renaming table.oldName.
func RenameColumn(table, oldName, newName string) string {
	return fmt.Sprintf("CALL sp_rename(%s,%s,'COLUMN')",
		quoteLiteral(UnquoteName(table)+"."+UnquoteName(oldName)),
		quoteLiteral(UnquoteName(newName)))
}

// IntegrityStatement disables (enable=false) or re-enables constraint
// checking on t.
func IntegrityStatement(t *schema.TableInfo, enable bool) string {
	name := t.QuotedName
	if name == "" {
		name = QuoteQualified(t.Schema, t.ResourceName)
	}
	if enable {
		return fmt.Sprintf("ALTER TABLE %s CHECK CONSTRAINT ALL", name)
	}
	return fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT ALL", name)
}
