package database

import (
	"slices"
	"strings"
)

type statement struct {
	Query    string
	Bindings []any
	// ignoreFailure marks housekeeping statements whose failure does not fail
	// the operation that issued them.
	ignoreFailure bool
}

func (s statement) isBlank() bool {
	return strings.TrimSpace(s.Query) == ""
}

type lockMode int

const (
	lockNone lockMode = iota
	lockForUpdate
	lockShared
)

type column struct {
	name       string
	expression *Expression
}

type order struct {
	column     string
	direction  string
	expression *Expression
}

// Query is the statement intent accumulated by a QueryBuilder and handed to a
// Driver for compilation.
type Query struct {
	table    string
	distinct bool
	columns  []column
	joins    []*JoinClause
	wheres   []Predicate
	groups   []column
	havings  []Predicate
	orders   []order
	limit    int
	offset   int
	lock     lockMode
}

func (query Query) clone() Query {
	c := query
	c.columns = slices.Clone(query.columns)
	c.groups = slices.Clone(query.groups)
	c.wheres = slices.Clone(query.wheres)
	c.havings = slices.Clone(query.havings)
	c.orders = slices.Clone(query.orders)
	c.joins = make([]*JoinClause, 0, len(query.joins))
	for _, join := range query.joins {
		c.joins = append(c.joins, join.clone())
	}

	return c
}

func (query Query) hasPagination() bool {
	return query.limit > 0 || query.offset > 0
}

// tableName is the table without any alias.
func (query Query) tableName() string {
	name, _ := splitAlias(query.table)
	return name
}

// JoinClause is one JOIN of a select. Its conditions are ordinary predicates so
// value conditions keep their bindings at the join's position.
type JoinClause struct {
	joinType string
	table    string
	wheres   []Predicate
	err      error
}

func (join *JoinClause) clone() *JoinClause {
	c := *join
	c.wheres = slices.Clone(join.wheres)
	return &c
}

// On adds a column comparison joined with AND.
func (join *JoinClause) On(first string, operator string, second string) *JoinClause {
	return join.on(first, operator, second, "AND")
}

// OrOn adds a column comparison joined with OR.
func (join *JoinClause) OrOn(first string, operator string, second string) *JoinClause {
	return join.on(first, operator, second, "OR")
}

func (join *JoinClause) on(first string, operator string, second string, boolean string) *JoinClause {
	op, err := normalizeOperator(operator)
	if err != nil {
		join.recordError(err)
		return join
	}

	join.wheres = append(join.wheres, whereColumn{
		boolean:  boolean,
		first:    first,
		operator: op,
		second:   second,
	})

	return join
}

// Where adds a value comparison to the join condition.
func (join *JoinClause) Where(column string, operator string, value any) *JoinClause {
	return join.where(column, operator, value, "AND")
}

func (join *JoinClause) OrWhere(column string, operator string, value any) *JoinClause {
	return join.where(column, operator, value, "OR")
}

func (join *JoinClause) where(column string, operator string, value any, boolean string) *JoinClause {
	node, err := newBasicPredicate(column, operator, value, boolean)
	if err != nil {
		join.recordError(err)
		return join
	}

	join.wheres = append(join.wheres, node)

	return join
}

func (join *JoinClause) recordError(err error) {
	if join.err == nil {
		join.err = err
	}
}
