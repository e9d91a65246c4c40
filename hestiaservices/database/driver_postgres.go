package database

import (
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
)

func NewDriverPostgres(config DriverPostgresConfig) Driver {
	return &driverPostgres{
		config: config,
	}
}

type DriverPostgresConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	Name    string
	Charset string
	// Options are appended to the connection string, sslmode defaults to disable.
	Options map[string]string
}

type driverPostgres struct {
	config DriverPostgresConfig
	prefix string
}

func (driver *driverPostgres) Name() string {
	return "pgsql"
}

func (driver *driverPostgres) Open() (*sql.DB, error) {
	options := map[string]string{
		"sslmode": "disable",
	}
	if driver.config.Charset != "" {
		options["client_encoding"] = driver.config.Charset
	}
	maps.Copy(options, driver.config.Options)

	parts := []string{
		fmt.Sprintf("host=%s", driver.config.Host),
		fmt.Sprintf("port=%d", driver.config.Port),
		fmt.Sprintf("user=%s", quoteConnectionValue(driver.config.User)),
		fmt.Sprintf("password=%s", quoteConnectionValue(driver.config.Pass)),
		fmt.Sprintf("dbname=%s", quoteConnectionValue(driver.config.Name)),
	}
	for _, key := range slices.Sorted(maps.Keys(options)) {
		parts = append(parts, fmt.Sprintf("%s=%s", key, quoteConnectionValue(options[key])))
	}

	return sql.Open("postgres", strings.Join(parts, " "))
}

// quoteConnectionValue quotes a lib/pq key=value setting when it holds spaces,
// quotes or backslashes.
func quoteConnectionValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}

	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)

	return "'" + value + "'"
}

func (driver *driverPostgres) WrapValue(value string) string {
	return wrapValue(`"`, `"`, value)
}

func (driver *driverPostgres) WrapColumn(column string) string {
	return wrapColumn(driver, column)
}

func (driver *driverPostgres) WrapTable(table string) string {
	return wrapTable(driver, table)
}

func (driver *driverPostgres) TablePrefix() string {
	return driver.prefix
}

func (driver *driverPostgres) DateFormat() string {
	return "2006-01-02 15:04:05"
}

func (driver *driverPostgres) describe() connectionDescription {
	return connectionDescription{
		Host:     driver.config.Host + ":" + strconv.Itoa(driver.config.Port),
		Database: driver.config.Name,
		Username: driver.config.User,
	}
}

func (driver *driverPostgres) setTablePrefix(prefix string) {
	driver.prefix = prefix
}

func (driver *driverPostgres) compileAggregate(query Query, function string, columns []string) (statement, error) {
	return compileAggregate(driver, query, function, columns)
}

func (driver *driverPostgres) compileDateBasedWhere(where whereDate) (statement, error) {
	switch where.kind {
	case dateKindDate:
		return compileDateBasedWhere(driver, where, "%s::date", "?", where.normalizedValue()), nil
	case dateKindTime:
		return compileDateBasedWhere(driver, where, "%s::time", "?", where.normalizedValue()), nil
	}

	return compileDateBasedWhere(driver, where, "extract("+string(where.kind)+" from %s)", "?", where.normalizedValue()), nil
}

func (driver *driverPostgres) compileDelete(query Query) (statement, error) {
	if len(query.joins) > 0 || query.limit > 0 {
		return compileDeleteByKey(driver, query, "ctid")
	}

	return compileDelete(driver, query)
}

func (driver *driverPostgres) compileExists(query Query) (statement, error) {
	return compileExists(driver, query, "SELECT EXISTS(%s) AS %s")
}

func (driver *driverPostgres) compileInsert(query Query, rows []map[string]any) (statement, error) {
	return compileInsert(driver, query, rows, "INSERT INTO")
}

func (driver *driverPostgres) compileInsertGetID(query Query, values map[string]any, sequence string) (statement, error) {
	s, err := compileInsert(driver, query, []map[string]any{values}, "INSERT INTO")
	if err != nil {
		return statement{}, err
	}

	s.Query += " RETURNING " + driver.WrapColumn(sequence)

	return s, nil
}

func (driver *driverPostgres) compileInsertOrIgnore(query Query, rows []map[string]any) (statement, error) {
	s, err := compileInsert(driver, query, rows, "INSERT INTO")
	if err != nil {
		return statement{}, err
	}

	s.Query += " ON CONFLICT DO NOTHING"

	return s, nil
}

func (driver *driverPostgres) compileLimit(query Query, parts *selectParts) {
	clauses := []string{}
	if query.limit > 0 {
		clauses = append(clauses, fmt.Sprintf("LIMIT %d", query.limit))
	}
	if query.offset > 0 {
		clauses = append(clauses, fmt.Sprintf("OFFSET %d", query.offset))
	}

	parts.limit = strings.Join(clauses, " ")
}

func (driver *driverPostgres) compileLock(query Query, parts *selectParts) {
	switch query.lock {
	case lockForUpdate:
		parts.lock = "FOR UPDATE"
	case lockShared:
		parts.lock = "FOR SHARE"
	}
}

func (driver *driverPostgres) compileSelect(query Query) (statement, error) {
	return compileSelect(driver, query)
}

func (driver *driverPostgres) compileTruncate(query Query) ([]statement, error) {
	if query.table == "" {
		return nil, compilationError(ErrNoTable, "truncate requires a table")
	}

	return []statement{
		{Query: "TRUNCATE " + driver.WrapTable(query.tableName()) + " RESTART IDENTITY CASCADE"},
	}, nil
}

func (driver *driverPostgres) compileUpdate(query Query, values map[string]any) (statement, error) {
	if len(query.joins) > 0 || query.limit > 0 {
		return compileUpdateByKey(driver, query, values, "ctid")
	}

	return compileUpdate(driver, query, values)
}

func (driver *driverPostgres) compileUpsert(query Query, rows []map[string]any, uniqueBy []string, update []string) (statement, error) {
	if err := requireUniqueBy(uniqueBy); err != nil {
		return statement{}, err
	}

	s, err := compileInsert(driver, query, rows, "INSERT INTO")
	if err != nil {
		return statement{}, err
	}

	columns, _ := insertColumns(rows)

	sets := []string{}
	for _, c := range upsertUpdateColumns(columns, update) {
		sets = append(sets, fmt.Sprintf("%s = %s.%s", driver.WrapColumn(c), driver.WrapValue("excluded"), driver.WrapValue(c)))
	}

	s.Query += " ON CONFLICT (" + columnize(driver, uniqueBy) + ")"
	if len(sets) == 0 {
		s.Query += " DO NOTHING"
	} else {
		s.Query += " DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return s, nil
}

func (driver *driverPostgres) placeholderStyle() utils.PlaceholderStyle {
	return utils.PlaceholderDollar
}

func (driver *driverPostgres) usesLastInsertId() bool {
	return false
}
