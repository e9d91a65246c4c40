package database

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Predicate is one WHERE, HAVING or JOIN condition. Implementations render
// their own SQL and carry exactly the bindings that SQL needs.
type Predicate interface {
	connector() string
	haveDriverRender(driver Driver) (statement, error)
}

var operators = map[string]bool{
	"=": true, "<": true, ">": true, "<=": true, ">=": true, "<>": true, "!=": true, "<=>": true,
	"like": true, "not like": true, "ilike": true, "not ilike": true, "like binary": true,
	"rlike": true, "not rlike": true, "regexp": true, "not regexp": true,
	"similar to": true, "not similar to": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true,
}

func normalizeOperator(operator string) (string, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(operator), " "))
	if !operators[normalized] {
		return "", compilationError(ErrInvalidPredicate, "unknown operator %q", operator)
	}

	return strings.ToUpper(normalized), nil
}

// newBasicPredicate builds a comparison. A nil value compared with = or <>
// becomes an IS [NOT] NULL check.
func newBasicPredicate(column string, operator string, value any, boolean string) (Predicate, error) {
	op, err := normalizeOperator(operator)
	if err != nil {
		return nil, err
	}

	if value == nil {
		switch op {
		case "=":
			return whereNull{boolean: boolean, column: column}, nil
		case "<>", "!=":
			return whereNull{boolean: boolean, column: column, negated: true}, nil
		}

		return nil, compilationError(ErrInvalidPredicate, "nil value used with operator %s on %s", op, column)
	}

	return whereBasic{
		boolean:  boolean,
		column:   column,
		operator: op,
		value:    value,
	}, nil
}

// flattenValues expands a slice or array into its elements.
func flattenValues(values any) ([]any, error) {
	if values == nil {
		return nil, compilationError(ErrInvalidPredicate, "IN requires a list of values")
	}

	valueOf := reflect.ValueOf(values)
	if valueOf.Kind() != reflect.Slice && valueOf.Kind() != reflect.Array {
		return nil, compilationError(ErrInvalidPredicate, "IN requires a list of values, got %T", values)
	}

	// []byte is a single value, not a list
	if valueOf.Type().Elem().Kind() == reflect.Uint8 {
		return nil, compilationError(ErrInvalidPredicate, "IN requires a list of values, got %T", values)
	}

	flattened := make([]any, 0, valueOf.Len())
	for i := range valueOf.Len() {
		flattened = append(flattened, valueOf.Index(i).Interface())
	}

	if len(flattened) == 0 {
		return nil, compilationError(ErrInvalidPredicate, "IN requires at least one value")
	}

	return flattened, nil
}

type whereBasic struct {
	boolean  string
	column   string
	operator string
	value    any
}

func (where whereBasic) connector() string { return where.boolean }

func (where whereBasic) haveDriverRender(driver Driver) (statement, error) {
	placeholder, bindings := parameter(where.value)

	return statement{
		Query:    fmt.Sprintf("%s %s %s", driver.WrapColumn(where.column), where.operator, placeholder),
		Bindings: bindings,
	}, nil
}

type whereIn struct {
	boolean string
	column  string
	values  []any
	negated bool
}

func (where whereIn) connector() string { return where.boolean }

func (where whereIn) haveDriverRender(driver Driver) (statement, error) {
	if len(where.values) == 0 {
		return statement{}, compilationError(ErrInvalidPredicate, "IN on %s requires at least one value", where.column)
	}

	placeholders := make([]string, 0, len(where.values))
	bindings := []any{}
	for _, value := range where.values {
		placeholder, b := parameter(value)
		placeholders = append(placeholders, placeholder)
		bindings = append(bindings, b...)
	}

	return statement{
		Query:    fmt.Sprintf("%s %sIN (%s)", driver.WrapColumn(where.column), not(where.negated), strings.Join(placeholders, ", ")),
		Bindings: bindings,
	}, nil
}

type whereInSub struct {
	boolean string
	column  string
	query   Query
	negated bool
}

func (where whereInSub) connector() string { return where.boolean }

func (where whereInSub) haveDriverRender(driver Driver) (statement, error) {
	inner, err := driver.compileSelect(where.query)
	if err != nil {
		return statement{}, err
	}

	return statement{
		Query:    fmt.Sprintf("%s %sIN (%s)", driver.WrapColumn(where.column), not(where.negated), inner.Query),
		Bindings: inner.Bindings,
	}, nil
}

type whereNull struct {
	boolean string
	column  string
	negated bool
}

func (where whereNull) connector() string { return where.boolean }

func (where whereNull) haveDriverRender(driver Driver) (statement, error) {
	return statement{
		Query: fmt.Sprintf("%s IS %sNULL", driver.WrapColumn(where.column), not(where.negated)),
	}, nil
}

type whereBetween struct {
	boolean string
	column  string
	low     any
	high    any
	negated bool
}

func (where whereBetween) connector() string { return where.boolean }

func (where whereBetween) haveDriverRender(driver Driver) (statement, error) {
	low, lowBindings := parameter(where.low)
	high, highBindings := parameter(where.high)

	return statement{
		Query:    fmt.Sprintf("%s %sBETWEEN %s AND %s", driver.WrapColumn(where.column), not(where.negated), low, high),
		Bindings: append(lowBindings, highBindings...),
	}, nil
}

type whereRaw struct {
	boolean  string
	sql      string
	bindings []any
}

func (where whereRaw) connector() string { return where.boolean }

func (where whereRaw) haveDriverRender(driver Driver) (statement, error) {
	return statement{
		Query:    where.sql,
		Bindings: where.bindings,
	}, nil
}

type whereNested struct {
	boolean string
	wheres  []Predicate
}

func (where whereNested) connector() string { return where.boolean }

func (where whereNested) haveDriverRender(driver Driver) (statement, error) {
	inner, err := compilePredicates(driver, where.wheres)
	if err != nil {
		return statement{}, err
	}

	if inner.isBlank() {
		return statement{}, nil
	}

	return statement{
		Query:    "(" + inner.Query + ")",
		Bindings: inner.Bindings,
	}, nil
}

type whereColumn struct {
	boolean  string
	first    string
	operator string
	second   string
}

func (where whereColumn) connector() string { return where.boolean }

func (where whereColumn) haveDriverRender(driver Driver) (statement, error) {
	return statement{
		Query: fmt.Sprintf("%s %s %s", driver.WrapColumn(where.first), where.operator, driver.WrapColumn(where.second)),
	}, nil
}

type whereExists struct {
	boolean string
	query   Query
	negated bool
}

func (where whereExists) connector() string { return where.boolean }

func (where whereExists) haveDriverRender(driver Driver) (statement, error) {
	inner, err := driver.compileSelect(where.query)
	if err != nil {
		return statement{}, err
	}

	return statement{
		Query:    fmt.Sprintf("%sEXISTS (%s)", not(where.negated), inner.Query),
		Bindings: inner.Bindings,
	}, nil
}

type dateKind string

const (
	dateKindDate  dateKind = "date"
	dateKindTime  dateKind = "time"
	dateKindYear  dateKind = "year"
	dateKindMonth dateKind = "month"
	dateKindDay   dateKind = "day"
)

type whereDate struct {
	boolean  string
	kind     dateKind
	column   string
	operator string
	value    any
}

func (where whereDate) connector() string { return where.boolean }

func (where whereDate) haveDriverRender(driver Driver) (statement, error) {
	return driver.compileDateBasedWhere(where)
}

// normalizedValue turns a time.Time into the part of it the comparison needs.
func (where whereDate) normalizedValue() any {
	t, ok := where.value.(time.Time)
	if !ok {
		return where.value
	}

	switch where.kind {
	case dateKindDate:
		return t.Format(time.DateOnly)
	case dateKindTime:
		return t.Format(time.TimeOnly)
	case dateKindYear:
		return t.Year()
	case dateKindMonth:
		return int(t.Month())
	case dateKindDay:
		return t.Day()
	}

	return where.value
}

// compileDateBasedWhere renders `{function(column)} {op} {placeholder}`.
func compileDateBasedWhere(driver Driver, where whereDate, function string, placeholder string, value any) statement {
	if expression, ok := value.(Expression); ok {
		return statement{
			Query:    fmt.Sprintf("%s %s %s", fmt.Sprintf(function, driver.WrapColumn(where.column)), where.operator, expression.SQL),
			Bindings: expression.Bindings,
		}
	}

	return statement{
		Query:    fmt.Sprintf("%s %s %s", fmt.Sprintf(function, driver.WrapColumn(where.column)), where.operator, placeholder),
		Bindings: []any{value},
	}
}

func not(negated bool) string {
	if negated {
		return "NOT "
	}

	return ""
}
