package database

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
)

func NewDriverMySQL(config DriverMySQLConfig) Driver {
	return &driverMySQL{
		config: config,
	}
}

type DriverMySQLConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	Name    string
	Charset string
	Options map[string]string
}

type driverMySQL struct {
	config DriverMySQLConfig
	prefix string
}

func (driver *driverMySQL) Name() string {
	return "mysql"
}

func (driver *driverMySQL) Open() (*sql.DB, error) {
	_ = mysql.SetLogger(log.New(io.Discard, "", log.LstdFlags))

	return sql.Open("mysql", driver.dsn())
}

func (driver *driverMySQL) dsn() string {
	config := mysql.NewConfig()
	config.User = driver.config.User
	config.Passwd = driver.config.Pass
	config.Net = "tcp"
	config.Addr = net.JoinHostPort(driver.config.Host, strconv.Itoa(driver.config.Port))
	config.DBName = driver.config.Name
	config.ParseTime = true
	config.Params = map[string]string{}

	if driver.config.Charset != "" {
		config.Params["charset"] = driver.config.Charset
	}
	for key, value := range driver.config.Options {
		config.Params[key] = value
	}

	return config.FormatDSN()
}

func (driver *driverMySQL) WrapValue(value string) string {
	return wrapValue("`", "`", value)
}

func (driver *driverMySQL) WrapColumn(column string) string {
	return wrapColumn(driver, column)
}

func (driver *driverMySQL) WrapTable(table string) string {
	return wrapTable(driver, table)
}

func (driver *driverMySQL) TablePrefix() string {
	return driver.prefix
}

func (driver *driverMySQL) DateFormat() string {
	return "2006-01-02 15:04:05"
}

func (driver *driverMySQL) describe() connectionDescription {
	return connectionDescription{
		Host:     driver.config.Host + ":" + strconv.Itoa(driver.config.Port),
		Database: driver.config.Name,
		Username: driver.config.User,
	}
}

func (driver *driverMySQL) setTablePrefix(prefix string) {
	driver.prefix = prefix
}

func (driver *driverMySQL) compileAggregate(query Query, function string, columns []string) (statement, error) {
	return compileAggregate(driver, query, function, columns)
}

func (driver *driverMySQL) compileDateBasedWhere(where whereDate) (statement, error) {
	return compileDateBasedWhere(driver, where, string(where.kind)+"(%s)", "?", where.normalizedValue()), nil
}

func (driver *driverMySQL) compileDelete(query Query) (statement, error) {
	if len(query.joins) == 0 {
		s, err := compileDelete(driver, query)
		if err != nil {
			return statement{}, err
		}

		return driver.appendOrderAndLimit(query, s), nil
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

func (driver *driverMySQL) compileExists(query Query) (statement, error) {
	return compileExists(driver, query, "SELECT EXISTS(%s) AS %s")
}

func (driver *driverMySQL) compileInsert(query Query, rows []map[string]any) (statement, error) {
	return compileInsert(driver, query, rows, "INSERT INTO")
}

func (driver *driverMySQL) compileInsertGetID(query Query, values map[string]any, sequence string) (statement, error) {
	return compileInsert(driver, query, []map[string]any{values}, "INSERT INTO")
}

func (driver *driverMySQL) compileInsertOrIgnore(query Query, rows []map[string]any) (statement, error) {
	return compileInsert(driver, query, rows, "INSERT IGNORE INTO")
}

func (driver *driverMySQL) compileLimit(query Query, parts *selectParts) {
	switch {
	case query.limit > 0 && query.offset > 0:
		parts.limit = fmt.Sprintf("LIMIT %d OFFSET %d", query.limit, query.offset)
	case query.limit > 0:
		parts.limit = fmt.Sprintf("LIMIT %d", query.limit)
	case query.offset > 0:
		// MySQL has no OFFSET without LIMIT; use the largest unsigned bigint
		parts.limit = fmt.Sprintf("LIMIT 18446744073709551615 OFFSET %d", query.offset)
	}
}

func (driver *driverMySQL) compileLock(query Query, parts *selectParts) {
	switch query.lock {
	case lockForUpdate:
		parts.lock = "FOR UPDATE"
	case lockShared:
		parts.lock = "LOCK IN SHARE MODE"
	}
}

func (driver *driverMySQL) compileSelect(query Query) (statement, error) {
	return compileSelect(driver, query)
}

func (driver *driverMySQL) compileTruncate(query Query) ([]statement, error) {
	if query.table == "" {
		return nil, compilationError(ErrNoTable, "truncate requires a table")
	}

	return []statement{
		{Query: "TRUNCATE TABLE " + driver.WrapTable(query.tableName())},
	}, nil
}

func (driver *driverMySQL) compileUpdate(query Query, values map[string]any) (statement, error) {
	if len(query.joins) == 0 {
		s, err := compileUpdate(driver, query, values)
		if err != nil {
			return statement{}, err
		}

		return driver.appendOrderAndLimit(query, s), nil
	}

	joins, err := compileJoins(driver, query.joins)
	if err != nil {
		return statement{}, err
	}

	sets, setBindings, err := compileUpdateSets(driver, values)
	if err != nil {
		return statement{}, err
	}

	wheres, err := compileWheres(driver, query.wheres)
	if err != nil {
		return statement{}, err
	}

	text := fmt.Sprintf("UPDATE %s %s SET %s", driver.WrapTable(query.table), joins.Query, sets)
	if !wheres.isBlank() {
		text += " " + wheres.Query
	}

	bindings := append(joins.Bindings, setBindings...)

	return statement{
		Query:    text,
		Bindings: append(bindings, wheres.Bindings...),
	}, nil
}

func (driver *driverMySQL) compileUpsert(query Query, rows []map[string]any, uniqueBy []string, update []string) (statement, error) {
	s, err := compileInsert(driver, query, rows, "INSERT INTO")
	if err != nil {
		return statement{}, err
	}

	columns, _ := insertColumns(rows)

	sets := []string{}
	for _, c := range upsertUpdateColumns(columns, update) {
		sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", driver.WrapColumn(c), driver.WrapColumn(c)))
	}

	if len(sets) == 0 {
		return compileInsert(driver, query, rows, "INSERT IGNORE INTO")
	}

	s.Query += " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")

	return s, nil
}

func (driver *driverMySQL) placeholderStyle() utils.PlaceholderStyle {
	return utils.PlaceholderQuestion
}

func (driver *driverMySQL) usesLastInsertId() bool {
	return true
}

func (driver *driverMySQL) appendOrderAndLimit(query Query, s statement) statement {
	orders, bindings := compileOrders(driver, query.orders)
	if orders != "" {
		s.Query += " " + orders
		s.Bindings = append(s.Bindings, bindings...)
	}

	if query.limit > 0 {
		s.Query += fmt.Sprintf(" LIMIT %d", query.limit)
	}

	return s
}
