package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
)

type ErrUnsupportedType struct {
	Type string
}

func (err ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported type: %s", err.Type)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
	time.TimeOnly,
}

// Hydrate maps rows onto structs using their db tags. Every column of the rows
// must have a field; fields without a column keep their zero value.
func Hydrate[T any](rows []Row) ([]T, error) {
	target := make([]T, 0, len(rows))

	for i, row := range rows {
		item := new(T)
		used := map[string]bool{}

		if err := utils.LoopOverStructFields(reflect.ValueOf(item), func(fieldDefinition reflect.StructField, fieldValue reflect.Value) error {
			tag := utils.ParseTag(fieldDefinition.Tag)
			if tag.Column == "" {
				return nil
			}

			value, found := row[tag.Column]
			if !found {
				return nil
			}

			used[tag.Column] = true

			if tag.JSON || shouldBeJSON(fieldDefinition) {
				return assignJSON(fieldValue, value)
			}

			if err := assignValue(fieldValue, value); err != nil {
				return fmt.Errorf("column %s: %w", tag.Column, err)
			}

			return nil
		}); err != nil {
			return nil, err
		}

		if i == 0 {
			for column := range row {
				if !used[column] {
					return nil, fmt.Errorf("column %s not found in target", column)
				}
			}
		}

		target = append(target, *item)
	}

	return target, nil
}

func shouldBeJSON(fieldDefinition reflect.StructField) bool {
	switch fieldDefinition.Type.Kind() {
	case reflect.Slice:
		// []byte is stored as is
		return fieldDefinition.Type.Elem().Kind() != reflect.Uint8
	case reflect.Map:
		return true
	case reflect.Struct:
		if fieldDefinition.Type == reflect.TypeFor[time.Time]() {
			return false
		}

		if reflect.PointerTo(fieldDefinition.Type).Implements(reflect.TypeFor[sql.Scanner]()) {
			return false
		}

		return true
	}

	return false
}

func assignJSON(field reflect.Value, value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return ErrUnsupportedType{Type: fmt.Sprintf("%T as json", value)}
	}

	if len(raw) == 0 {
		return nil
	}

	return json.Unmarshal(raw, field.Addr().Interface())
}

func assignValue(field reflect.Value, value any) error {
	if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
		return scanner.Scan(value)
	}

	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := assignValue(elem.Elem(), value); err != nil {
			return err
		}

		field.Set(elem)

		return nil
	}

	if field.Type() == reflect.TypeFor[time.Time]() {
		t, err := toTime(value)
		if err != nil {
			return err
		}

		field.Set(reflect.ValueOf(t))

		return nil
	}

	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt64(value)
		if err != nil {
			return err
		}
		field.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if s, ok := value.(string); ok {
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return err
			}
			field.SetUint(u)
			return nil
		}
		i, err := toInt64(value)
		if err != nil {
			return err
		}
		field.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(value)
		if err != nil {
			return err
		}
		field.SetFloat(f)
		return nil
	case reflect.Bool:
		if s, ok := value.(string); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			field.SetBool(b)
			return nil
		}
		i, err := toInt64(value)
		if err != nil {
			return err
		}
		field.SetBool(i != 0)
		return nil
	case reflect.String:
		switch v := value.(type) {
		case string:
			field.SetString(v)
		case []byte:
			field.SetString(string(v))
		case time.Time:
			field.SetString(v.Format(time.RFC3339Nano))
		default:
			field.SetString(fmt.Sprint(v))
		}
		return nil
	}

	source := reflect.ValueOf(value)
	if source.Type().AssignableTo(field.Type()) {
		field.Set(source)
		return nil
	}

	if source.Type().ConvertibleTo(field.Type()) {
		field.Set(source.Convert(field.Type()))
		return nil
	}

	return ErrUnsupportedType{
		Type: fmt.Sprintf("%T into %s", value, field.Type()),
	}
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}

		return time.Time{}, fmt.Errorf("cannot parse %q as time", v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}

	return time.Time{}, ErrUnsupportedType{Type: fmt.Sprintf("%T as time", value)}
}
