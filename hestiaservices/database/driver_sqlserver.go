package database

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
	_ "github.com/microsoft/go-mssqldb"
)

func NewDriverSQLServer(config DriverSQLServerConfig) Driver {
	return &driverSQLServer{
		config: config,
	}
}

type DriverSQLServerConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	Name    string
	Options map[string]string
}

type driverSQLServer struct {
	config DriverSQLServerConfig
	prefix string
}

func (driver *driverSQLServer) Name() string {
	return "sqlsrv"
}

func (driver *driverSQLServer) Open() (*sql.DB, error) {
	query := url.Values{}
	query.Set("database", driver.config.Name)
	for key, value := range driver.config.Options {
		query.Set(key, value)
	}

	dsn := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(driver.config.User, driver.config.Pass),
		Host:     net.JoinHostPort(driver.config.Host, strconv.Itoa(driver.config.Port)),
		RawQuery: query.Encode(),
	}

	return sql.Open("sqlserver", dsn.String())
}

func (driver *driverSQLServer) WrapValue(value string) string {
	return wrapValue("[", "]", value)
}

func (driver *driverSQLServer) WrapColumn(column string) string {
	return wrapColumn(driver, column)
}

func (driver *driverSQLServer) WrapTable(table string) string {
	return wrapTable(driver, table)
}

func (driver *driverSQLServer) TablePrefix() string {
	return driver.prefix
}

func (driver *driverSQLServer) DateFormat() string {
	return "2006-01-02 15:04:05.000"
}

func (driver *driverSQLServer) describe() connectionDescription {
	return connectionDescription{
		Host:     driver.config.Host + ":" + strconv.Itoa(driver.config.Port),
		Database: driver.config.Name,
		Username: driver.config.User,
	}
}

func (driver *driverSQLServer) setTablePrefix(prefix string) {
	driver.prefix = prefix
}

func (driver *driverSQLServer) compileAggregate(query Query, function string, columns []string) (statement, error) {
	return compileAggregate(driver, query, function, columns)
}

func (driver *driverSQLServer) compileDateBasedWhere(where whereDate) (statement, error) {
	switch where.kind {
	case dateKindDate:
		return compileDateBasedWhere(driver, where, "cast(%s as date)", "?", where.normalizedValue()), nil
	case dateKindTime:
		return compileDateBasedWhere(driver, where, "cast(%s as time)", "?", where.normalizedValue()), nil
	}

	return compileDateBasedWhere(driver, where, string(where.kind)+"(%s)", "?", where.normalizedValue()), nil
}

func (driver *driverSQLServer) compileDelete(query Query) (statement, error) {
	if len(query.joins) == 0 {
		if query.limit <= 0 {
			return compileDelete(driver, query)
		}

		s, err := compileDelete(driver, query)
		if err != nil {
			return statement{}, err
		}

		s.Query = fmt.Sprintf("DELETE TOP (%d) ", query.limit) + strings.TrimPrefix(s.Query, "DELETE ")

		return s, nil
	}

	joins, err := compileJoins(driver, query.joins)
	if err != nil {
		return statement{}, err
	}

	wheres, err := compileWheres(driver, query.wheres)
	if err != nil {
		return statement{}, err
	}

	text := fmt.Sprintf(
		"DELETE %s FROM %s %s",
		tableQualifier(driver, query.table),
		driver.WrapTable(query.table),
		joins.Query,
	)
	if !wheres.isBlank() {
		text += " " + wheres.Query
	}

	return statement{
		Query:    text,
		Bindings: append(joins.Bindings, wheres.Bindings...),
	}, nil
}

func (driver *driverSQLServer) compileExists(query Query) (statement, error) {
	return compileExists(driver, query, "SELECT CASE WHEN EXISTS(%s) THEN 1 ELSE 0 END AS %s")
}

func (driver *driverSQLServer) compileInsert(query Query, rows []map[string]any) (statement, error) {
	return compileInsert(driver, query, rows, "INSERT INTO")
}

// compileInsertGetID reads the identity back in the same batch so it is taken
// from the same session and scope as the insert.
func (driver *driverSQLServer) compileInsertGetID(query Query, values map[string]any, sequence string) (statement, error) {
	s, err := compileInsert(driver, query, []map[string]any{values}, "INSERT INTO")
	if err != nil {
		return statement{}, err
	}

	s.Query = fmt.Sprintf(
		"SET NOCOUNT ON; %s; SELECT CAST(SCOPE_IDENTITY() AS BIGINT) AS %s",
		s.Query,
		driver.WrapValue(sequence),
	)

	return s, nil
}

func (driver *driverSQLServer) compileInsertOrIgnore(query Query, rows []map[string]any) (statement, error) {
	return statement{}, compilationError(ErrUnsupported, "sqlsrv has no insert-or-ignore, use Upsert with an empty update list")
}

// compileLimit uses TOP for a bare limit. OFFSET/FETCH is only legal after an
// ORDER BY so one is synthesized when the statement has none.
func (driver *driverSQLServer) compileLimit(query Query, parts *selectParts) {
	if query.offset <= 0 {
		if query.limit > 0 {
			parts.top = fmt.Sprintf("TOP %d", query.limit)
		}

		return
	}

	if parts.orders == "" {
		parts.orders = "ORDER BY (SELECT NULL)"
	}

	parts.limit = fmt.Sprintf("OFFSET %d ROWS", query.offset)
	if query.limit > 0 {
		parts.limit += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", query.limit)
	}
}

func (driver *driverSQLServer) compileLock(query Query, parts *selectParts) {
	switch query.lock {
	case lockForUpdate:
		parts.from += " WITH(ROWLOCK, UPDLOCK, HOLDLOCK)"
	case lockShared:
		parts.from += " WITH(ROWLOCK, HOLDLOCK)"
	}
}

func (driver *driverSQLServer) compileSelect(query Query) (statement, error) {
	return compileSelect(driver, query)
}

func (driver *driverSQLServer) compileTruncate(query Query) ([]statement, error) {
	if query.table == "" {
		return nil, compilationError(ErrNoTable, "truncate requires a table")
	}

	return []statement{
		{Query: "TRUNCATE TABLE " + driver.WrapTable(query.tableName())},
	}, nil
}

func (driver *driverSQLServer) compileUpdate(query Query, values map[string]any) (statement, error) {
	if len(query.joins) == 0 {
		s, err := compileUpdate(driver, query, values)
		if err != nil {
			return statement{}, err
		}

		if query.limit > 0 {
			s.Query = fmt.Sprintf("UPDATE TOP (%d) ", query.limit) + strings.TrimPrefix(s.Query, "UPDATE ")
		}

		return s, nil
	}

	sets, setBindings, err := compileUpdateSets(driver, values)
	if err != nil {
		return statement{}, err
	}

	joins, err := compileJoins(driver, query.joins)
	if err != nil {
		return statement{}, err
	}

	wheres, err := compileWheres(driver, query.wheres)
	if err != nil {
		return statement{}, err
	}

	text := fmt.Sprintf(
		"UPDATE %s SET %s FROM %s %s",
		tableQualifier(driver, query.table),
		sets,
		driver.WrapTable(query.table),
		joins.Query,
	)
	if !wheres.isBlank() {
		text += " " + wheres.Query
	}

	bindings := append(setBindings, joins.Bindings...)

	return statement{
		Query:    text,
		Bindings: append(bindings, wheres.Bindings...),
	}, nil
}

func (driver *driverSQLServer) compileUpsert(query Query, rows []map[string]any, uniqueBy []string, update []string) (statement, error) {
	if query.table == "" {
		return statement{}, compilationError(ErrNoTable, "upsert requires a table")
	}

	if err := requireUniqueBy(uniqueBy); err != nil {
		return statement{}, err
	}

	columns, err := insertColumns(rows)
	if err != nil {
		return statement{}, err
	}

	values, bindings := compileValueRows(rows, columns)
	table := driver.WrapTable(query.tableName())
	source := driver.WrapValue("hestia_source")

	on := []string{}
	for _, c := range uniqueBy {
		on = append(on, fmt.Sprintf("%s.%s = %s.%s", source, driver.WrapValue(c), table, driver.WrapValue(c)))
	}

	text := fmt.Sprintf(
		"MERGE %s USING (VALUES %s) AS %s (%s) ON %s",
		table,
		values,
		source,
		columnize(driver, columns),
		strings.Join(on, " AND "),
	)

	if updates := upsertUpdateColumns(columns, update); len(updates) > 0 {
		sets := []string{}
		for _, c := range updates {
			sets = append(sets, fmt.Sprintf("%s = %s.%s", driver.WrapValue(c), source, driver.WrapValue(c)))
		}

		text += " WHEN MATCHED THEN UPDATE SET " + strings.Join(sets, ", ")
	}

	sourceColumns := []string{}
	for _, c := range columns {
		sourceColumns = append(sourceColumns, source+"."+driver.WrapValue(c))
	}

	text += fmt.Sprintf(
		" WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		columnize(driver, columns),
		strings.Join(sourceColumns, ", "),
	)

	return statement{
		Query:    text,
		Bindings: bindings,
	}, nil
}

func (driver *driverSQLServer) placeholderStyle() utils.PlaceholderStyle {
	return utils.PlaceholderAtP
}

func (driver *driverSQLServer) usesLastInsertId() bool {
	return false
}
