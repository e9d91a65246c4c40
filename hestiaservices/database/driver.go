package database

import (
	"database/sql"

	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
)

// Driver is one SQL dialect: it opens the underlying handle and renders
// statement intents into SQL with positional ? placeholders.
type Driver interface {
	Name() string
	Open() (*sql.DB, error)
	// WrapValue quotes a single identifier.
	WrapValue(value string) string
	// WrapColumn quotes a column reference, honouring table.column and aliases.
	WrapColumn(column string) string
	// WrapTable quotes a table reference and applies the table prefix.
	WrapTable(table string) string
	TablePrefix() string
	// DateFormat is the Go time layout used when binding time.Time values.
	DateFormat() string
	describe() connectionDescription
	setTablePrefix(prefix string)
	compileAggregate(query Query, function string, columns []string) (statement, error)
	compileDateBasedWhere(where whereDate) (statement, error)
	compileDelete(query Query) (statement, error)
	compileExists(query Query) (statement, error)
	compileInsert(query Query, rows []map[string]any) (statement, error)
	compileInsertGetID(query Query, values map[string]any, sequence string) (statement, error)
	compileInsertOrIgnore(query Query, rows []map[string]any) (statement, error)
	compileLimit(query Query, parts *selectParts)
	compileLock(query Query, parts *selectParts)
	compileSelect(query Query) (statement, error)
	compileTruncate(query Query) ([]statement, error)
	compileUpdate(query Query, values map[string]any) (statement, error)
	compileUpsert(query Query, rows []map[string]any, uniqueBy []string, update []string) (statement, error)
	placeholderStyle() utils.PlaceholderStyle
	usesLastInsertId() bool
}

// connectionDescription is what may be logged about a connection. It never
// carries credentials.
type connectionDescription struct {
	Host     string
	Database string
	Username string
}
