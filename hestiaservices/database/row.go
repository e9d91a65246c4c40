package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Row is one result row keyed by column name. Text columns returned as []byte
// by the driver are converted to string.
type Row map[string]any

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}

			row[c] = values[i]
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// normalizeBindings prepares bound values for the driver: integers widen to
// int64, times are formatted with the dialect's date format, and anything the
// driver cannot take natively is sent as text.
func normalizeBindings(dateFormat string, bindings []any) []any {
	normalized := make([]any, 0, len(bindings))
	for _, binding := range bindings {
		normalized = append(normalized, normalizeBinding(dateFormat, binding))
	}

	return normalized
}

// normalizeBinding binds named numeric and boolean types by kind, even when
// they implement fmt.Stringer.
func normalizeBinding(dateFormat string, value any) any {
	switch v := value.(type) {
	case nil, bool, int64, float64, string, []byte:
		return v
	case time.Time:
		return v.Format(dateFormat)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(dateFormat)
	case driver.Valuer:
		return v
	case json.Number:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return strconv.FormatUint(u, 10)
		}
		return int64(u)
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalizeBinding(dateFormat, rv.Elem().Interface())
	}

	if stringer, ok := value.(fmt.Stringer); ok {
		return stringer.String()
	}

	return fmt.Sprint(value)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return v.Int64()
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			f, floatErr := strconv.ParseFloat(v, 64)
			if floatErr != nil {
				return 0, err
			}
			return int64(f), nil
		}
		return i, nil
	}

	return 0, fmt.Errorf("cannot convert %T to int64", value)
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(v, 64)
	}

	return 0, fmt.Errorf("cannot convert %T to float64", value)
}
