package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"math"
	"strings"
)

// ToSQL compiles the select statement.
func (builder *QueryBuilder) ToSQL() (string, error) {
	s, err := builder.compileSelect()
	if err != nil {
		return "", err
	}

	return s.Query, nil
}

// Bindings returns the values of the select statement in placeholder order.
func (builder *QueryBuilder) Bindings() ([]any, error) {
	s, err := builder.compileSelect()
	if err != nil {
		return nil, err
	}

	return s.Bindings, nil
}

func (builder *QueryBuilder) compile(callback func(driver Driver, query Query) (statement, error)) (statement, error) {
	builder.compiled = true

	if builder.err != nil {
		return statement{}, builder.err
	}

	return callback(builder.driver, builder.query)
}

func (builder *QueryBuilder) compileSelect() (statement, error) {
	return builder.compile(func(driver Driver, query Query) (statement, error) {
		return driver.compileSelect(query)
	})
}

// derive marks the builder compiled and returns a copy to build the statement
// a terminal operation actually runs.
func (builder *QueryBuilder) derive(callback func(query *Query)) *QueryBuilder {
	builder.compiled = true

	derived := builder.Clone()
	if callback != nil {
		callback(&derived.query)
	}

	return derived
}

func withoutPagination(query *Query) {
	query.orders = nil
	query.limit = 0
	query.offset = 0
}

func (builder *QueryBuilder) requireConnection() error {
	if builder.connection == nil {
		return ErrNoConnection
	}

	return nil
}

// Get runs the select and returns every row.
func (builder *QueryBuilder) Get(ctx context.Context) ([]Row, error) {
	s, err := builder.compileSelect()
	if err != nil {
		return nil, err
	}

	if err := builder.requireConnection(); err != nil {
		return nil, err
	}

	if builder.cacheTTL > 0 && builder.connection.resultCache != nil {
		return builder.remembered(ctx, s)
	}

	return builder.connection.runSelect(ctx, s)
}

// remembered serves rows from the result cache. Cache failures fall back to
// the database.
func (builder *QueryBuilder) remembered(ctx context.Context, s statement) ([]Row, error) {
	connection := builder.connection

	return connection.resultCache.Remember(ctx, resultCacheKey(connection.name, s), builder.cacheTTL, func(ctx context.Context) ([]Row, error) {
		return connection.runSelect(ctx, s)
	})
}

func resultCacheKey(connectionName string, s statement) string {
	bindings, err := json.Marshal(s.Bindings)
	if err != nil {
		bindings = []byte(err.Error())
	}

	hash := sha256.New()
	hash.Write([]byte(connectionName))
	hash.Write([]byte{0})
	hash.Write([]byte(s.Query))
	hash.Write([]byte{0})
	hash.Write(bindings)

	return hex.EncodeToString(hash.Sum(nil))
}

// First returns the first row or ErrNoRows.
func (builder *QueryBuilder) First(ctx context.Context) (Row, error) {
	rows, err := builder.derive(func(query *Query) {
		query.limit = 1
	}).Get(ctx)
	if err != nil {
		return nil, err
	}

	if len(rows) < 1 {
		return nil, ErrNoRows
	}

	return rows[0], nil
}

// Find returns the row whose id column equals id.
func (builder *QueryBuilder) Find(ctx context.Context, id any) (Row, error) {
	return builder.derive(nil).Where("id", "=", id).First(ctx)
}

// Value returns a single column of the first row.
func (builder *QueryBuilder) Value(ctx context.Context, column string) (any, error) {
	row, err := builder.derive(nil).Select(column).First(ctx)
	if err != nil {
		return nil, err
	}

	return row[resultColumnName(column)], nil
}

// Pluck returns a single column of every row.
func (builder *QueryBuilder) Pluck(ctx context.Context, column string) ([]any, error) {
	rows, err := builder.derive(nil).Select(column).Get(ctx)
	if err != nil {
		return nil, err
	}

	name := resultColumnName(column)
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row[name])
	}

	return values, nil
}

// resultColumnName is the key a selected column appears under in a Row.
func resultColumnName(column string) string {
	name, alias := splitAlias(column)
	if alias != "" {
		return alias
	}

	return name[strings.LastIndex(name, ".")+1:]
}

func (builder *QueryBuilder) Exists(ctx context.Context) (bool, error) {
	derived := builder.derive(withoutPagination)

	s, err := derived.compile(func(driver Driver, query Query) (statement, error) {
		return driver.compileExists(query)
	})
	if err != nil {
		return false, err
	}

	if err := builder.requireConnection(); err != nil {
		return false, err
	}

	rows, err := builder.connection.runSelect(ctx, s)
	if err != nil {
		return false, err
	}

	if len(rows) < 1 {
		return false, nil
	}

	exists, err := toInt64(rows[0]["exists"])
	if err != nil {
		return false, err
	}

	return exists != 0, nil
}

func (builder *QueryBuilder) DoesntExist(ctx context.Context) (bool, error) {
	exists, err := builder.Exists(ctx)
	return !exists, err
}

// Aggregate runs function over columns and returns the raw scalar, nil when
// the statement produced no row.
func (builder *QueryBuilder) Aggregate(ctx context.Context, function string, columns ...string) (any, error) {
	derived := builder.derive(withoutPagination)

	s, err := derived.compile(func(driver Driver, query Query) (statement, error) {
		return driver.compileAggregate(query, function, columns)
	})
	if err != nil {
		return nil, err
	}

	if err := builder.requireConnection(); err != nil {
		return nil, err
	}

	rows, err := builder.connection.runSelect(ctx, s)
	if err != nil {
		return nil, err
	}

	if len(rows) < 1 {
		return nil, nil
	}

	return rows[0]["aggregate"], nil
}

func (builder *QueryBuilder) Count(ctx context.Context, columns ...string) (int64, error) {
	value, err := builder.Aggregate(ctx, "count", columns...)
	if err != nil {
		return 0, err
	}

	return toInt64(value)
}

func (builder *QueryBuilder) Sum(ctx context.Context, column string) (float64, error) {
	value, err := builder.Aggregate(ctx, "sum", column)
	if err != nil {
		return 0, err
	}

	return toFloat64(value)
}

func (builder *QueryBuilder) Avg(ctx context.Context, column string) (float64, error) {
	value, err := builder.Aggregate(ctx, "avg", column)
	if err != nil {
		return 0, err
	}

	return toFloat64(value)
}

func (builder *QueryBuilder) Min(ctx context.Context, column string) (any, error) {
	return builder.Aggregate(ctx, "min", column)
}

func (builder *QueryBuilder) Max(ctx context.Context, column string) (any, error) {
	return builder.Aggregate(ctx, "max", column)
}

// Page is one page of a paginated select.
type Page struct {
	Items       []Row `json:"items"`
	Total       int64 `json:"total"`
	PerPage     int   `json:"perPage"`
	CurrentPage int   `json:"currentPage"`
	LastPage    int   `json:"lastPage"`
}

// Paginate counts the matching rows and fetches the requested 1-based page.
func (builder *QueryBuilder) Paginate(ctx context.Context, page int, perPage int) (Page, error) {
	if perPage <= 0 {
		return Page{}, compilationError(ErrInvalidPredicate, "per page must be positive, got %d", perPage)
	}

	page = max(page, 1)

	total, err := builder.derive(nil).Count(ctx)
	if err != nil {
		return Page{}, err
	}

	items, err := builder.derive(nil).ForPage(page, perPage).Get(ctx)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Items:       items,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    max(int(math.Ceil(float64(total)/float64(perPage))), 1),
	}, nil
}

// Chunk walks the result set size rows at a time. The statement must be
// ordered so that pages do not overlap. An error from callback stops the walk
// and is returned.
func (builder *QueryBuilder) Chunk(ctx context.Context, size int, callback func(rows []Row, page int) error) error {
	builder.compiled = true

	if builder.err != nil {
		return builder.err
	}

	if size <= 0 {
		return compilationError(ErrInvalidPredicate, "chunk size must be positive, got %d", size)
	}

	if len(builder.query.orders) == 0 {
		return compilationError(ErrUnsupported, "chunk requires an order by clause")
	}

	for page := 1; ; page++ {
		rows, err := builder.derive(nil).ForPage(page, size).Get(ctx)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			return nil
		}

		if err := callback(rows, page); err != nil {
			return err
		}

		if len(rows) < size {
			return nil
		}
	}
}

func (builder *QueryBuilder) execute(
	ctx context.Context,
	callback func(driver Driver, query Query) (statement, error),
) (int64, error) {
	s, err := builder.compile(callback)
	if err != nil {
		return 0, err
	}

	if err := builder.requireConnection(); err != nil {
		return 0, err
	}

	result, err := builder.connection.runExecute(ctx, s)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Insert writes rows. Every row must carry the same columns.
func (builder *QueryBuilder) Insert(ctx context.Context, rows ...map[string]any) (int64, error) {
	return builder.execute(ctx, func(driver Driver, query Query) (statement, error) {
		return driver.compileInsert(query, rows)
	})
}

func (builder *QueryBuilder) InsertOrIgnore(ctx context.Context, rows ...map[string]any) (int64, error) {
	return builder.execute(ctx, func(driver Driver, query Query) (statement, error) {
		return driver.compileInsertOrIgnore(query, rows)
	})
}

// InsertGetID writes one row and returns its generated key. sequence names
// the key column and defaults to id.
func (builder *QueryBuilder) InsertGetID(ctx context.Context, values map[string]any, sequence string) (int64, error) {
	if sequence == "" {
		sequence = "id"
	}

	s, err := builder.compile(func(driver Driver, query Query) (statement, error) {
		return driver.compileInsertGetID(query, values, sequence)
	})
	if err != nil {
		return 0, err
	}

	if err := builder.requireConnection(); err != nil {
		return 0, err
	}

	if builder.driver.usesLastInsertId() {
		result, err := builder.connection.runExecute(ctx, s)
		if err != nil {
			return 0, err
		}

		return result.LastInsertId()
	}

	rows, err := builder.connection.runSelect(ctx, s)
	if err != nil {
		return 0, err
	}

	if len(rows) < 1 {
		return 0, ErrNoRows
	}

	return toInt64(rows[0][sequence])
}

// Upsert inserts rows and updates the update columns of rows that collide on
// uniqueBy. A nil update list updates every inserted column.
func (builder *QueryBuilder) Upsert(ctx context.Context, rows []map[string]any, uniqueBy []string, update []string) (int64, error) {
	return builder.execute(ctx, func(driver Driver, query Query) (statement, error) {
		return driver.compileUpsert(query, rows, uniqueBy, update)
	})
}

func (builder *QueryBuilder) Update(ctx context.Context, values map[string]any) (int64, error) {
	return builder.execute(ctx, func(driver Driver, query Query) (statement, error) {
		return driver.compileUpdate(query, values)
	})
}

// Increment adds amount to column, setting extra columns in the same
// statement.
func (builder *QueryBuilder) Increment(ctx context.Context, column string, amount any, extra map[string]any) (int64, error) {
	return builder.step(ctx, column, "+", amount, extra)
}

func (builder *QueryBuilder) Decrement(ctx context.Context, column string, amount any, extra map[string]any) (int64, error) {
	return builder.step(ctx, column, "-", amount, extra)
}

func (builder *QueryBuilder) step(ctx context.Context, column string, operator string, amount any, extra map[string]any) (int64, error) {
	values := maps.Clone(extra)
	if values == nil {
		values = map[string]any{}
	}

	values[column] = Raw(builder.driver.WrapColumn(column)+" "+operator+" ?", amount)

	return builder.Update(ctx, values)
}

func (builder *QueryBuilder) Delete(ctx context.Context) (int64, error) {
	return builder.execute(ctx, func(driver Driver, query Query) (statement, error) {
		return driver.compileDelete(query)
	})
}

// Truncate empties the table and resets its identity where the dialect allows.
func (builder *QueryBuilder) Truncate(ctx context.Context) error {
	builder.compiled = true

	if builder.err != nil {
		return builder.err
	}

	statements, err := builder.driver.compileTruncate(builder.query)
	if err != nil {
		return err
	}

	if err := builder.requireConnection(); err != nil {
		return err
	}

	for _, s := range statements {
		if _, err := builder.connection.runExecute(ctx, s); err != nil && !s.ignoreFailure {
			return err
		}
	}

	return nil
}
