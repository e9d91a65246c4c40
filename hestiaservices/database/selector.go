package database

import (
	"context"
	"reflect"

	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
)

func NewSelector[T any](connection *Connection, table string, columns []string) Selector[T] {
	return Selector[T]{
		connection: connection,
		table:      table,
		columns:    columns,
	}
}

// Selector runs selects against one table and hydrates the rows into T.
type Selector[T any] struct {
	connection *Connection
	table      string
	columns    []string
}

type QueryModifier func(query *QueryBuilder) *QueryBuilder

func WithLimitOverride(size int, offset int) QueryModifier {
	return func(query *QueryBuilder) *QueryBuilder {
		return query.Limit(size).Offset(offset)
	}
}

// WithAdditionalWhere ANDs the conditions added by callback, grouped in
// parentheses, onto the query.
func WithAdditionalWhere(callback func(query *QueryBuilder)) QueryModifier {
	return func(query *QueryBuilder) *QueryBuilder {
		return query.WhereNested(callback)
	}
}

func WithOrderBy(column string, direction string) QueryModifier {
	return func(query *QueryBuilder) *QueryBuilder {
		return query.OrderBy(column, direction)
	}
}

// Query returns a fresh builder selecting the mapped columns.
func (selector Selector[T]) Query() *QueryBuilder {
	return selector.connection.Table(selector.table).Select(selector.columns...)
}

func (selector Selector[T]) SelectMultiple(ctx context.Context, mods ...QueryModifier) ([]T, error) {
	query := selector.Query()
	for _, mod := range mods {
		query = mod(query)
	}

	rows, err := query.Get(ctx)
	if err != nil {
		return nil, err
	}

	return Hydrate[T](rows)
}

func (selector Selector[T]) SelectSingle(ctx context.Context, mods ...QueryModifier) (T, error) {
	mods = append(mods, WithLimitOverride(1, 0))

	rows, err := selector.SelectMultiple(ctx, mods...)
	if err != nil {
		return *new(T), err
	}

	if len(rows) < 1 {
		return *new(T), ErrNoRows
	}

	return rows[0], nil
}

// mappedColumns lists the db columns of a struct in field order.
func mappedColumns(value any) ([]string, error) {
	columns := []string{}
	if err := utils.LoopOverStructFields(reflect.ValueOf(value), func(fieldDefinition reflect.StructField, fieldValue reflect.Value) error {
		tag := utils.ParseTag(fieldDefinition.Tag)
		if tag.Column == "" {
			return nil
		}

		columns = append(columns, tag.Column)

		return nil
	}); err != nil {
		return nil, err
	}

	return columns, nil
}
