package database

import (
	"strings"
	"time"
)

// QueryBuilder accumulates one statement. Mutators record invalid input
// instead of failing and the first recorded error is returned by the next
// terminal operation. A builder compiles once: mutating it afterwards records
// ErrStatementCompiled.
type QueryBuilder struct {
	connection *Connection
	driver     Driver
	query      Query
	err        error
	compiled   bool
	cacheTTL   time.Duration
}

// NewQueryBuilder returns a builder that can only compile, for a driver with
// no connection behind it.
func NewQueryBuilder(driver Driver) *QueryBuilder {
	return newQueryBuilder(nil, driver)
}

func newQueryBuilder(connection *Connection, driver Driver) *QueryBuilder {
	return &QueryBuilder{
		connection: connection,
		driver:     driver,
	}
}

// Err is the first error recorded while building.
func (builder *QueryBuilder) Err() error {
	return builder.err
}

// Clone returns an uncompiled copy that can be built further.
func (builder *QueryBuilder) Clone() *QueryBuilder {
	return &QueryBuilder{
		connection: builder.connection,
		driver:     builder.driver,
		query:      builder.query.clone(),
		err:        builder.err,
		cacheTTL:   builder.cacheTTL,
	}
}

func (builder *QueryBuilder) recordError(err error) {
	if builder.err == nil {
		builder.err = err
	}
}

func (builder *QueryBuilder) mutate(callback func(query *Query) error) *QueryBuilder {
	if builder.compiled {
		builder.recordError(compilationError(ErrStatementCompiled, "create a new builder for another statement"))
		return builder
	}

	if err := callback(&builder.query); err != nil {
		builder.recordError(err)
	}

	return builder
}

func (builder *QueryBuilder) child() *QueryBuilder {
	return newQueryBuilder(builder.connection, builder.driver)
}

func (builder *QueryBuilder) From(table string) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.table = table
		return nil
	})
}

// Select replaces the selected columns.
func (builder *QueryBuilder) Select(columns ...string) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.columns = nil
		for _, c := range columns {
			query.columns = append(query.columns, column{name: c})
		}

		return nil
	})
}

func (builder *QueryBuilder) AddSelect(columns ...string) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		for _, c := range columns {
			query.columns = append(query.columns, column{name: c})
		}

		return nil
	})
}

// SelectRaw adds a column expression emitted verbatim.
func (builder *QueryBuilder) SelectRaw(sql string, bindings ...any) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		expression := Raw(sql, bindings...)
		query.columns = append(query.columns, column{expression: &expression})

		return nil
	})
}

func (builder *QueryBuilder) Distinct() *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.distinct = true
		return nil
	})
}

func (builder *QueryBuilder) Join(table string, first string, operator string, second string) *QueryBuilder {
	return builder.join("INNER", table, func(join *JoinClause) {
		join.On(first, operator, second)
	})
}

func (builder *QueryBuilder) LeftJoin(table string, first string, operator string, second string) *QueryBuilder {
	return builder.join("LEFT", table, func(join *JoinClause) {
		join.On(first, operator, second)
	})
}

func (builder *QueryBuilder) RightJoin(table string, first string, operator string, second string) *QueryBuilder {
	return builder.join("RIGHT", table, func(join *JoinClause) {
		join.On(first, operator, second)
	})
}

func (builder *QueryBuilder) CrossJoin(table string) *QueryBuilder {
	return builder.join("CROSS", table, nil)
}

// JoinWhere adds a join whose conditions are built by callback. joinType is
// INNER, LEFT or RIGHT.
func (builder *QueryBuilder) JoinWhere(joinType string, table string, callback func(join *JoinClause)) *QueryBuilder {
	joinType = strings.ToUpper(strings.TrimSpace(joinType))
	switch joinType {
	case "INNER", "LEFT", "RIGHT":
	default:
		builder.recordError(compilationError(ErrInvalidPredicate, "unknown join type %q", joinType))
		return builder
	}

	return builder.join(joinType, table, callback)
}

func (builder *QueryBuilder) join(joinType string, table string, callback func(join *JoinClause)) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		join := &JoinClause{
			joinType: joinType,
			table:    table,
		}

		if callback != nil {
			callback(join)
		}

		query.joins = append(query.joins, join)

		return nil
	})
}

func (builder *QueryBuilder) addWhere(predicate Predicate, err error) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		if err != nil {
			return err
		}

		query.wheres = append(query.wheres, predicate)

		return nil
	})
}

// Where adds `column operator value` joined with AND. A nil value with = or
// <> becomes IS [NOT] NULL.
func (builder *QueryBuilder) Where(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newBasicPredicate(column, operator, value, "AND"))
}

func (builder *QueryBuilder) OrWhere(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newBasicPredicate(column, operator, value, "OR"))
}

// WhereNested groups the conditions added by callback in parentheses.
func (builder *QueryBuilder) WhereNested(callback func(query *QueryBuilder)) *QueryBuilder {
	return builder.addWhere(builder.nested(callback, "AND"))
}

func (builder *QueryBuilder) OrWhereNested(callback func(query *QueryBuilder)) *QueryBuilder {
	return builder.addWhere(builder.nested(callback, "OR"))
}

func (builder *QueryBuilder) nested(callback func(query *QueryBuilder), boolean string) (Predicate, error) {
	child := builder.child()
	callback(child)
	if child.err != nil {
		return nil, child.err
	}

	return whereNested{
		boolean: boolean,
		wheres:  child.query.wheres,
	}, nil
}

// WhereIn accepts a slice of values or a *QueryBuilder used as a subquery. An
// empty slice is rejected with ErrInvalidPredicate.
func (builder *QueryBuilder) WhereIn(column string, values any) *QueryBuilder {
	return builder.addWhere(newInPredicate(column, values, "AND", false))
}

func (builder *QueryBuilder) OrWhereIn(column string, values any) *QueryBuilder {
	return builder.addWhere(newInPredicate(column, values, "OR", false))
}

func (builder *QueryBuilder) WhereNotIn(column string, values any) *QueryBuilder {
	return builder.addWhere(newInPredicate(column, values, "AND", true))
}

func (builder *QueryBuilder) OrWhereNotIn(column string, values any) *QueryBuilder {
	return builder.addWhere(newInPredicate(column, values, "OR", true))
}

func newInPredicate(column string, values any, boolean string, negated bool) (Predicate, error) {
	if sub, ok := values.(*QueryBuilder); ok {
		if sub.err != nil {
			return nil, sub.err
		}

		return whereInSub{
			boolean: boolean,
			column:  column,
			query:   sub.query.clone(),
			negated: negated,
		}, nil
	}

	flattened, err := flattenValues(values)
	if err != nil {
		return nil, err
	}

	return whereIn{
		boolean: boolean,
		column:  column,
		values:  flattened,
		negated: negated,
	}, nil
}

func (builder *QueryBuilder) WhereNull(column string) *QueryBuilder {
	return builder.addWhere(whereNull{boolean: "AND", column: column}, nil)
}

func (builder *QueryBuilder) OrWhereNull(column string) *QueryBuilder {
	return builder.addWhere(whereNull{boolean: "OR", column: column}, nil)
}

func (builder *QueryBuilder) WhereNotNull(column string) *QueryBuilder {
	return builder.addWhere(whereNull{boolean: "AND", column: column, negated: true}, nil)
}

func (builder *QueryBuilder) OrWhereNotNull(column string) *QueryBuilder {
	return builder.addWhere(whereNull{boolean: "OR", column: column, negated: true}, nil)
}

func (builder *QueryBuilder) WhereBetween(column string, low any, high any) *QueryBuilder {
	return builder.addWhere(whereBetween{boolean: "AND", column: column, low: low, high: high}, nil)
}

func (builder *QueryBuilder) OrWhereBetween(column string, low any, high any) *QueryBuilder {
	return builder.addWhere(whereBetween{boolean: "OR", column: column, low: low, high: high}, nil)
}

func (builder *QueryBuilder) WhereNotBetween(column string, low any, high any) *QueryBuilder {
	return builder.addWhere(whereBetween{boolean: "AND", column: column, low: low, high: high, negated: true}, nil)
}

func (builder *QueryBuilder) OrWhereNotBetween(column string, low any, high any) *QueryBuilder {
	return builder.addWhere(whereBetween{boolean: "OR", column: column, low: low, high: high, negated: true}, nil)
}

// WhereRaw adds a condition emitted verbatim with its bindings.
func (builder *QueryBuilder) WhereRaw(sql string, bindings ...any) *QueryBuilder {
	return builder.addWhere(whereRaw{boolean: "AND", sql: sql, bindings: bindings}, nil)
}

func (builder *QueryBuilder) OrWhereRaw(sql string, bindings ...any) *QueryBuilder {
	return builder.addWhere(whereRaw{boolean: "OR", sql: sql, bindings: bindings}, nil)
}

// WhereColumn compares two columns.
func (builder *QueryBuilder) WhereColumn(first string, operator string, second string) *QueryBuilder {
	return builder.addWhere(newColumnPredicate(first, operator, second, "AND"))
}

func (builder *QueryBuilder) OrWhereColumn(first string, operator string, second string) *QueryBuilder {
	return builder.addWhere(newColumnPredicate(first, operator, second, "OR"))
}

func newColumnPredicate(first string, operator string, second string, boolean string) (Predicate, error) {
	op, err := normalizeOperator(operator)
	if err != nil {
		return nil, err
	}

	return whereColumn{
		boolean:  boolean,
		first:    first,
		operator: op,
		second:   second,
	}, nil
}

// WhereDate compares the date part of column. A time.Time value is reduced to
// its date.
func (builder *QueryBuilder) WhereDate(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("AND", dateKindDate, column, operator, value))
}

func (builder *QueryBuilder) OrWhereDate(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("OR", dateKindDate, column, operator, value))
}

func (builder *QueryBuilder) WhereTime(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("AND", dateKindTime, column, operator, value))
}

func (builder *QueryBuilder) OrWhereTime(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("OR", dateKindTime, column, operator, value))
}

func (builder *QueryBuilder) WhereYear(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("AND", dateKindYear, column, operator, value))
}

func (builder *QueryBuilder) OrWhereYear(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("OR", dateKindYear, column, operator, value))
}

func (builder *QueryBuilder) WhereMonth(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("AND", dateKindMonth, column, operator, value))
}

func (builder *QueryBuilder) OrWhereMonth(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("OR", dateKindMonth, column, operator, value))
}

func (builder *QueryBuilder) WhereDay(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("AND", dateKindDay, column, operator, value))
}

func (builder *QueryBuilder) OrWhereDay(column string, operator string, value any) *QueryBuilder {
	return builder.addWhere(newDatePredicate("OR", dateKindDay, column, operator, value))
}

func newDatePredicate(boolean string, kind dateKind, column string, operator string, value any) (Predicate, error) {
	op, err := normalizeOperator(operator)
	if err != nil {
		return nil, err
	}

	if value == nil {
		return nil, compilationError(ErrInvalidPredicate, "where %s on %s requires a value", kind, column)
	}

	return whereDate{
		boolean:  boolean,
		kind:     kind,
		column:   column,
		operator: op,
		value:    value,
	}, nil
}

// WhereExists adds EXISTS (subquery) where callback builds the subquery.
func (builder *QueryBuilder) WhereExists(callback func(query *QueryBuilder)) *QueryBuilder {
	return builder.addWhere(builder.exists(callback, false))
}

func (builder *QueryBuilder) WhereNotExists(callback func(query *QueryBuilder)) *QueryBuilder {
	return builder.addWhere(builder.exists(callback, true))
}

func (builder *QueryBuilder) exists(callback func(query *QueryBuilder), negated bool) (Predicate, error) {
	child := builder.child()
	callback(child)
	if child.err != nil {
		return nil, child.err
	}

	return whereExists{
		boolean: "AND",
		query:   child.query,
		negated: negated,
	}, nil
}

func (builder *QueryBuilder) GroupBy(columns ...string) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		for _, c := range columns {
			query.groups = append(query.groups, column{name: c})
		}

		return nil
	})
}

func (builder *QueryBuilder) GroupByRaw(sql string, bindings ...any) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		expression := Raw(sql, bindings...)
		query.groups = append(query.groups, column{expression: &expression})

		return nil
	})
}

func (builder *QueryBuilder) addHaving(predicate Predicate, err error) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		if err != nil {
			return err
		}

		query.havings = append(query.havings, predicate)

		return nil
	})
}

func (builder *QueryBuilder) Having(column string, operator string, value any) *QueryBuilder {
	return builder.addHaving(newBasicPredicate(column, operator, value, "AND"))
}

func (builder *QueryBuilder) OrHaving(column string, operator string, value any) *QueryBuilder {
	return builder.addHaving(newBasicPredicate(column, operator, value, "OR"))
}

func (builder *QueryBuilder) HavingRaw(sql string, bindings ...any) *QueryBuilder {
	return builder.addHaving(whereRaw{boolean: "AND", sql: sql, bindings: bindings}, nil)
}

// OrderBy adds an ordering. direction is asc or desc in any case.
func (builder *QueryBuilder) OrderBy(column string, direction string) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		normalized := strings.ToUpper(strings.TrimSpace(direction))
		if normalized != "ASC" && normalized != "DESC" {
			return compilationError(ErrInvalidOrder, "direction %q", direction)
		}

		query.orders = append(query.orders, order{
			column:    column,
			direction: normalized,
		})

		return nil
	})
}

func (builder *QueryBuilder) OrderByDesc(column string) *QueryBuilder {
	return builder.OrderBy(column, "desc")
}

func (builder *QueryBuilder) OrderByRaw(sql string, bindings ...any) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		expression := Raw(sql, bindings...)
		query.orders = append(query.orders, order{expression: &expression})

		return nil
	})
}

// Latest orders by column descending, created_at when column is empty.
func (builder *QueryBuilder) Latest(column string) *QueryBuilder {
	if column == "" {
		column = "created_at"
	}

	return builder.OrderBy(column, "desc")
}

func (builder *QueryBuilder) Oldest(column string) *QueryBuilder {
	if column == "" {
		column = "created_at"
	}

	return builder.OrderBy(column, "asc")
}

// Reorder drops every ordering added so far.
func (builder *QueryBuilder) Reorder() *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.orders = nil
		return nil
	})
}

// Limit caps the rows returned. Zero or a negative value removes the cap.
func (builder *QueryBuilder) Limit(limit int) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.limit = max(limit, 0)
		return nil
	})
}

func (builder *QueryBuilder) Offset(offset int) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.offset = max(offset, 0)
		return nil
	})
}

// ForPage sets the limit and offset of a 1-based page.
func (builder *QueryBuilder) ForPage(page int, perPage int) *QueryBuilder {
	page = max(page, 1)

	return builder.Offset((page - 1) * perPage).Limit(perPage)
}

func (builder *QueryBuilder) LockForUpdate() *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.lock = lockForUpdate
		return nil
	})
}

func (builder *QueryBuilder) SharedLock() *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		query.lock = lockShared
		return nil
	})
}

// Remember serves Get from the connection's result cache for ttl.
func (builder *QueryBuilder) Remember(ttl time.Duration) *QueryBuilder {
	return builder.mutate(func(query *Query) error {
		builder.cacheTTL = ttl
		return nil
	})
}

// When applies callback only when condition holds.
func (builder *QueryBuilder) When(condition bool, callback func(query *QueryBuilder)) *QueryBuilder {
	if condition {
		callback(builder)
	}

	return builder
}
