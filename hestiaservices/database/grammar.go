package database

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

var aliasFinder = regexp.MustCompile(`(?i)\s+as\s+`)

func splitAlias(value string) (string, string) {
	parts := aliasFinder.Split(strings.TrimSpace(value), 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}

	return parts[0], ""
}

func wrapValue(open string, close string, value string) string {
	if value == "*" {
		return value
	}

	return open + strings.ReplaceAll(value, close, close+close) + close
}

func wrapColumn(driver Driver, value string) string {
	if looksLikeExpression(value) {
		return value
	}

	if name, alias := splitAlias(value); alias != "" {
		return wrapColumn(driver, name) + " AS " + driver.WrapValue(alias)
	}

	segments := strings.Split(value, ".")
	wrapped := make([]string, 0, len(segments))
	for i, segment := range segments {
		if len(segments) > 1 && i == len(segments)-2 {
			segment = driver.TablePrefix() + segment
		}

		wrapped = append(wrapped, driver.WrapValue(segment))
	}

	return strings.Join(wrapped, ".")
}

func wrapTable(driver Driver, value string) string {
	if looksLikeExpression(value) {
		return value
	}

	if name, alias := splitAlias(value); alias != "" {
		return wrapTable(driver, name) + " AS " + driver.WrapValue(driver.TablePrefix()+alias)
	}

	segments := strings.Split(value, ".")
	wrapped := make([]string, 0, len(segments))
	for i, segment := range segments {
		if i == len(segments)-1 {
			segment = driver.TablePrefix() + segment
		}

		wrapped = append(wrapped, driver.WrapValue(segment))
	}

	return strings.Join(wrapped, ".")
}

// tableQualifier is how columns of the statement's table are qualified: the
// alias when there is one, the prefixed table otherwise.
func tableQualifier(driver Driver, table string) string {
	name, alias := splitAlias(table)
	if alias != "" {
		return driver.WrapValue(driver.TablePrefix() + alias)
	}

	return wrapTable(driver, name)
}

func columnize(driver Driver, columns []string) string {
	wrapped := make([]string, 0, len(columns))
	for _, c := range columns {
		wrapped = append(wrapped, driver.WrapColumn(c))
	}

	return strings.Join(wrapped, ", ")
}

// parameter renders a value as a placeholder, or inline when it is an
// Expression.
func parameter(value any) (string, []any) {
	if expression, ok := value.(Expression); ok {
		return expression.SQL, expression.Bindings
	}

	return "?", []any{value}
}

// selectParts holds each clause of a select with the bindings that clause
// contributes. Dialects adjust the parts before they are assembled.
type selectParts struct {
	distinct       bool
	top            string
	columns        string
	columnBindings []any
	from           string
	joins          string
	joinBindings   []any
	wheres         string
	whereBindings  []any
	groups         string
	groupBindings  []any
	havings        string
	havingBindings []any
	orders         string
	orderBindings  []any
	limit          string
	lock           string
}

func (parts selectParts) assemble() statement {
	clauses := []string{"SELECT"}
	if parts.distinct {
		clauses = append(clauses, "DISTINCT")
	}
	if parts.top != "" {
		clauses = append(clauses, parts.top)
	}
	clauses = append(clauses, parts.columns, "FROM", parts.from)

	for _, clause := range []string{parts.joins, parts.wheres, parts.groups, parts.havings, parts.orders, parts.limit, parts.lock} {
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}

	bindings := []any{}
	bindings = append(bindings, parts.columnBindings...)
	bindings = append(bindings, parts.joinBindings...)
	bindings = append(bindings, parts.whereBindings...)
	bindings = append(bindings, parts.groupBindings...)
	bindings = append(bindings, parts.havingBindings...)
	bindings = append(bindings, parts.orderBindings...)

	return statement{
		Query:    strings.Join(clauses, " "),
		Bindings: bindings,
	}
}

func compileSelectParts(driver Driver, query Query) (selectParts, error) {
	if query.table == "" {
		return selectParts{}, compilationError(ErrNoTable, "select requires a table")
	}

	parts := selectParts{
		distinct: query.distinct,
		from:     driver.WrapTable(query.table),
	}

	parts.columns, parts.columnBindings = compileColumns(driver, query.columns)

	joins, err := compileJoins(driver, query.joins)
	if err != nil {
		return selectParts{}, err
	}
	parts.joins, parts.joinBindings = joins.Query, joins.Bindings

	wheres, err := compileWheres(driver, query.wheres)
	if err != nil {
		return selectParts{}, err
	}
	parts.wheres, parts.whereBindings = wheres.Query, wheres.Bindings

	if len(query.groups) > 0 {
		groups, bindings := compileColumns(driver, query.groups)
		parts.groups, parts.groupBindings = "GROUP BY "+groups, bindings
	}

	if len(query.havings) > 0 {
		havings, err := compilePredicates(driver, query.havings)
		if err != nil {
			return selectParts{}, err
		}
		if !havings.isBlank() {
			parts.havings, parts.havingBindings = "HAVING "+havings.Query, havings.Bindings
		}
	}

	parts.orders, parts.orderBindings = compileOrders(driver, query.orders)

	return parts, nil
}

func compileSelect(driver Driver, query Query) (statement, error) {
	parts, err := compileSelectParts(driver, query)
	if err != nil {
		return statement{}, err
	}

	driver.compileLimit(query, &parts)
	driver.compileLock(query, &parts)

	return parts.assemble(), nil
}

func compileColumns(driver Driver, columns []column) (string, []any) {
	if len(columns) == 0 {
		return "*", nil
	}

	rendered := make([]string, 0, len(columns))
	bindings := []any{}
	for _, c := range columns {
		if c.expression != nil {
			rendered = append(rendered, c.expression.SQL)
			bindings = append(bindings, c.expression.Bindings...)
			continue
		}

		rendered = append(rendered, driver.WrapColumn(c.name))
	}

	return strings.Join(rendered, ", "), bindings
}

func compileJoins(driver Driver, joins []*JoinClause) (statement, error) {
	parts := []string{}
	bindings := []any{}

	for _, join := range joins {
		if join.err != nil {
			return statement{}, join.err
		}

		clause := join.joinType + " JOIN " + driver.WrapTable(join.table)
		if len(join.wheres) > 0 {
			conditions, err := compilePredicates(driver, join.wheres)
			if err != nil {
				return statement{}, err
			}

			if !conditions.isBlank() {
				clause += " ON " + conditions.Query
				bindings = append(bindings, conditions.Bindings...)
			}
		}

		parts = append(parts, clause)
	}

	return statement{
		Query:    strings.Join(parts, " "),
		Bindings: bindings,
	}, nil
}

func compileWheres(driver Driver, wheres []Predicate) (statement, error) {
	s, err := compilePredicates(driver, wheres)
	if err != nil {
		return statement{}, err
	}

	if s.isBlank() {
		return statement{}, nil
	}

	s.Query = "WHERE " + s.Query

	return s, nil
}

// compilePredicates joins predicates with their connectors. The first rendered
// predicate carries no connector and bindings follow rendering order.
func compilePredicates(driver Driver, predicates []Predicate) (statement, error) {
	parts := []string{}
	bindings := []any{}

	for _, predicate := range predicates {
		s, err := predicate.haveDriverRender(driver)
		if err != nil {
			return statement{}, err
		}

		if s.isBlank() {
			continue
		}

		if len(parts) > 0 {
			parts = append(parts, predicate.connector())
		}

		parts = append(parts, s.Query)
		bindings = append(bindings, s.Bindings...)
	}

	return statement{
		Query:    strings.Join(parts, " "),
		Bindings: bindings,
	}, nil
}

func compileOrders(driver Driver, orders []order) (string, []any) {
	if len(orders) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(orders))
	bindings := []any{}
	for _, o := range orders {
		if o.expression != nil {
			parts = append(parts, o.expression.SQL)
			bindings = append(bindings, o.expression.Bindings...)
			continue
		}

		parts = append(parts, driver.WrapColumn(o.column)+" "+o.direction)
	}

	return "ORDER BY " + strings.Join(parts, ", "), bindings
}

func compileAggregate(driver Driver, query Query, function string, columns []string) (statement, error) {
	parts, err := compileSelectParts(driver, query)
	if err != nil {
		return statement{}, err
	}

	target := "*"
	if len(columns) > 0 && !(len(columns) == 1 && columns[0] == "*") {
		target = columnize(driver, columns)
		if query.distinct {
			target = "DISTINCT " + target
		}
	}

	expression := fmt.Sprintf("%s(%s) AS %s", strings.ToUpper(function), target, driver.WrapValue("aggregate"))

	if len(query.groups) > 0 || len(query.havings) > 0 {
		inner := parts.assemble()

		return statement{
			Query: fmt.Sprintf(
				"SELECT %s FROM (%s) AS %s",
				expression,
				inner.Query,
				driver.WrapValue("aggregate_table"),
			),
			Bindings: inner.Bindings,
		}, nil
	}

	parts.distinct = false
	parts.columns = expression
	parts.columnBindings = nil
	driver.compileLock(query, &parts)

	return parts.assemble(), nil
}

func compileExists(driver Driver, query Query, format string) (statement, error) {
	inner, err := compileSelect(driver, query)
	if err != nil {
		return statement{}, err
	}

	return statement{
		Query:    fmt.Sprintf(format, inner.Query, driver.WrapValue("exists")),
		Bindings: inner.Bindings,
	}, nil
}

// insertColumns returns the sorted column set shared by every row.
func insertColumns(rows []map[string]any) ([]string, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, compilationError(ErrNoValues, "insert requires at least one column")
	}

	columns := slices.Sorted(maps.Keys(rows[0]))
	for i, row := range rows[1:] {
		if len(row) != len(columns) {
			return nil, compilationError(ErrInconsistentInsert, "row %d has %d columns, expected %d", i+1, len(row), len(columns))
		}

		for _, c := range columns {
			if _, found := row[c]; !found {
				return nil, compilationError(ErrInconsistentInsert, "row %d is missing column %s", i+1, c)
			}
		}
	}

	return columns, nil
}

func compileValueRows(rows []map[string]any, columns []string) (string, []any) {
	tuples := make([]string, 0, len(rows))
	bindings := []any{}

	for _, row := range rows {
		placeholders := make([]string, 0, len(columns))
		for _, c := range columns {
			placeholder, values := parameter(row[c])
			placeholders = append(placeholders, placeholder)
			bindings = append(bindings, values...)
		}

		tuples = append(tuples, "("+strings.Join(placeholders, ", ")+")")
	}

	return strings.Join(tuples, ", "), bindings
}

func compileInsert(driver Driver, query Query, rows []map[string]any, verb string) (statement, error) {
	if query.table == "" {
		return statement{}, compilationError(ErrNoTable, "insert requires a table")
	}

	columns, err := insertColumns(rows)
	if err != nil {
		return statement{}, err
	}

	values, bindings := compileValueRows(rows, columns)

	return statement{
		Query: fmt.Sprintf(
			"%s %s (%s) VALUES %s",
			verb,
			driver.WrapTable(query.tableName()),
			columnize(driver, columns),
			values,
		),
		Bindings: bindings,
	}, nil
}

func compileUpdateSets(driver Driver, values map[string]any) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, compilationError(ErrNoValues, "update requires at least one column")
	}

	sets := make([]string, 0, len(values))
	bindings := []any{}
	for _, c := range slices.Sorted(maps.Keys(values)) {
		placeholder, b := parameter(values[c])
		sets = append(sets, driver.WrapColumn(c)+" = "+placeholder)
		bindings = append(bindings, b...)
	}

	return strings.Join(sets, ", "), bindings, nil
}

// compileUpdate renders UPDATE without joins or limits.
func compileUpdate(driver Driver, query Query, values map[string]any) (statement, error) {
	if query.table == "" {
		return statement{}, compilationError(ErrNoTable, "update requires a table")
	}

	sets, bindings, err := compileUpdateSets(driver, values)
	if err != nil {
		return statement{}, err
	}

	wheres, err := compileWheres(driver, query.wheres)
	if err != nil {
		return statement{}, err
	}

	text := "UPDATE " + driver.WrapTable(query.table) + " SET " + sets
	if !wheres.isBlank() {
		text += " " + wheres.Query
	}

	return statement{
		Query:    text,
		Bindings: append(bindings, wheres.Bindings...),
	}, nil
}

// compileDelete renders DELETE without joins or limits.
func compileDelete(driver Driver, query Query) (statement, error) {
	if query.table == "" {
		return statement{}, compilationError(ErrNoTable, "delete requires a table")
	}

	wheres, err := compileWheres(driver, query.wheres)
	if err != nil {
		return statement{}, err
	}

	text := "DELETE FROM " + driver.WrapTable(query.table)
	if !wheres.isBlank() {
		text += " " + wheres.Query
	}

	return statement{
		Query:    text,
		Bindings: wheres.Bindings,
	}, nil
}

// compileKeyedSubquery selects the physical row key of every row the query
// targets. Dialects without UPDATE/DELETE joins or limits filter on it.
func compileKeyedSubquery(driver Driver, query Query, key string) (statement, error) {
	inner := query.clone()
	inner.columns = []column{{
		expression: &Expression{SQL: tableQualifier(driver, query.table) + "." + driver.WrapValue(key)},
	}}
	inner.lock = lockNone

	return compileSelect(driver, inner)
}

func compileUpdateByKey(driver Driver, query Query, values map[string]any, key string) (statement, error) {
	sets, bindings, err := compileUpdateSets(driver, values)
	if err != nil {
		return statement{}, err
	}

	inner, err := compileKeyedSubquery(driver, query, key)
	if err != nil {
		return statement{}, err
	}

	return statement{
		Query: fmt.Sprintf(
			"UPDATE %s SET %s WHERE %s IN (%s)",
			driver.WrapTable(query.table),
			sets,
			driver.WrapValue(key),
			inner.Query,
		),
		Bindings: append(bindings, inner.Bindings...),
	}, nil
}

func compileDeleteByKey(driver Driver, query Query, key string) (statement, error) {
	inner, err := compileKeyedSubquery(driver, query, key)
	if err != nil {
		return statement{}, err
	}

	return statement{
		Query: fmt.Sprintf(
			"DELETE FROM %s WHERE %s IN (%s)",
			driver.WrapTable(query.table),
			driver.WrapValue(key),
			inner.Query,
		),
		Bindings: inner.Bindings,
	}, nil
}

func upsertUpdateColumns(columns []string, update []string) []string {
	if update == nil {
		return columns
	}

	return update
}

func requireUniqueBy(uniqueBy []string) error {
	if len(uniqueBy) == 0 {
		return compilationError(ErrInvalidPredicate, "upsert requires at least one unique column")
	}

	return nil
}
