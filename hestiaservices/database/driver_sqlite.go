package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
	_ "github.com/mattn/go-sqlite3"
)

func NewDriverSQLite(path string) Driver {
	return NewDriverSQLiteWithOptions(path, nil)
}

// NewDriverSQLiteWithOptions passes extra DSN parameters to go-sqlite3, for
// example _busy_timeout or _journal_mode.
func NewDriverSQLiteWithOptions(path string, options map[string]string) Driver {
	return &driverSQLite{
		path:    path,
		options: options,
	}
}

type driverSQLite struct {
	path    string
	options map[string]string
	prefix  string
}

func (driver *driverSQLite) Name() string {
	return "sqlite"
}

func (driver *driverSQLite) Open() (*sql.DB, error) {
	params := url.Values{}
	params.Set("cache", "shared")
	params.Set("_foreign_keys", "on")
	for key, value := range driver.options {
		params.Set(key, value)
	}

	return sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", driver.path, params.Encode()))
}

func (driver *driverSQLite) WrapValue(value string) string {
	return wrapValue(`"`, `"`, value)
}

func (driver *driverSQLite) WrapColumn(column string) string {
	return wrapColumn(driver, column)
}

func (driver *driverSQLite) WrapTable(table string) string {
	return wrapTable(driver, table)
}

func (driver *driverSQLite) TablePrefix() string {
	return driver.prefix
}

func (driver *driverSQLite) DateFormat() string {
	return "2006-01-02 15:04:05"
}

func (driver *driverSQLite) describe() connectionDescription {
	return connectionDescription{
		Database: driver.path,
	}
}

func (driver *driverSQLite) setTablePrefix(prefix string) {
	driver.prefix = prefix
}

func (driver *driverSQLite) compileAggregate(query Query, function string, columns []string) (statement, error) {
	return compileAggregate(driver, query, function, columns)
}

var sqliteDateFormats = map[dateKind]string{
	dateKindDate:  "%%Y-%%m-%%d",
	dateKindTime:  "%%H:%%M:%%S",
	dateKindYear:  "%%Y",
	dateKindMonth: "%%m",
	dateKindDay:   "%%d",
}

func (driver *driverSQLite) compileDateBasedWhere(where whereDate) (statement, error) {
	value := where.normalizedValue()

	// strftime zero pads months and days
	if where.kind == dateKindMonth || where.kind == dateKindDay {
		if n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(value))); err == nil {
			value = fmt.Sprintf("%02d", n)
		}
	}

	return compileDateBasedWhere(
		driver,
		where,
		"strftime('"+sqliteDateFormats[where.kind]+"', %s)",
		"cast(? as text)",
		value,
	), nil
}

func (driver *driverSQLite) compileDelete(query Query) (statement, error) {
	if len(query.joins) > 0 || query.limit > 0 {
		return compileDeleteByKey(driver, query, "rowid")
	}

	return compileDelete(driver, query)
}

func (driver *driverSQLite) compileExists(query Query) (statement, error) {
	return compileExists(driver, query, "SELECT EXISTS(%s) AS %s")
}

func (driver *driverSQLite) compileInsert(query Query, rows []map[string]any) (statement, error) {
	return compileInsert(driver, query, rows, "INSERT INTO")
}

func (driver *driverSQLite) compileInsertGetID(query Query, values map[string]any, sequence string) (statement, error) {
	return compileInsert(driver, query, []map[string]any{values}, "INSERT INTO")
}

func (driver *driverSQLite) compileInsertOrIgnore(query Query, rows []map[string]any) (statement, error) {
	return compileInsert(driver, query, rows, "INSERT OR IGNORE INTO")
}

func (driver *driverSQLite) compileLimit(query Query, parts *selectParts) {
	switch {
	case query.limit > 0 && query.offset > 0:
		parts.limit = fmt.Sprintf("LIMIT %d OFFSET %d", query.limit, query.offset)
	case query.limit > 0:
		parts.limit = fmt.Sprintf("LIMIT %d", query.limit)
	case query.offset > 0:
		parts.limit = fmt.Sprintf("LIMIT -1 OFFSET %d", query.offset)
	}
}

// compileLock is a no-op, SQLite locks the whole database per transaction.
func (driver *driverSQLite) compileLock(query Query, parts *selectParts) {}

func (driver *driverSQLite) compileSelect(query Query) (statement, error) {
	return compileSelect(driver, query)
}

func (driver *driverSQLite) compileTruncate(query Query) ([]statement, error) {
	if query.table == "" {
		return nil, compilationError(ErrNoTable, "truncate requires a table")
	}

	return []statement{
		{Query: "DELETE FROM " + driver.WrapTable(query.tableName())},
		{
			Query:         "DELETE FROM " + driver.WrapValue("sqlite_sequence") + " WHERE " + driver.WrapValue("name") + " = ?",
			Bindings:      []any{driver.prefix + query.tableName()},
			ignoreFailure: true,
		},
	}, nil
}

func (driver *driverSQLite) compileUpdate(query Query, values map[string]any) (statement, error) {
	if len(query.joins) > 0 || query.limit > 0 {
		return compileUpdateByKey(driver, query, values, "rowid")
	}

	return compileUpdate(driver, query, values)
}

// compileUpsert replaces the conflicting row as a whole, so the update column
// list does not narrow what is written.
func (driver *driverSQLite) compileUpsert(query Query, rows []map[string]any, uniqueBy []string, update []string) (statement, error) {
	return compileInsert(driver, query, rows, "INSERT OR REPLACE INTO")
}

func (driver *driverSQLite) placeholderStyle() utils.PlaceholderStyle {
	return utils.PlaceholderQuestion
}

func (driver *driverSQLite) usesLastInsertId() bool {
	return true
}
