package utils

import "reflect"

// LoopOverStructFields visits every exported field of value, descending into
// embedded structs that carry no db tag of their own.
func LoopOverStructFields(value reflect.Value, fieldHandler func(fieldDefinition reflect.StructField, fieldValue reflect.Value) error) error {
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}

	for i := range value.NumField() {
		fieldValue := value.Field(i)
		fieldDefinition := value.Type().Field(i)

		if !fieldDefinition.IsExported() {
			continue
		}

		if fieldDefinition.Anonymous && fieldDefinition.Type.Kind() == reflect.Struct && fieldDefinition.Tag.Get("db") == "" {
			if err := LoopOverStructFields(fieldValue, fieldHandler); err != nil {
				return err
			}

			continue
		}

		if err := fieldHandler(fieldDefinition, fieldValue); err != nil {
			return err
		}
	}

	return nil
}
