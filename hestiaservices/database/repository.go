package database

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/lunagic/hestia/hestiaservices/database/internal/utils"
)

// Entity is a struct stored in one table. Its fields are mapped with db tags:
// `db:"column,primaryKey,autoIncrement"`, `db:"column,readOnly"` and
// `db:"column,json"`.
type Entity interface {
	TableName() string
}

func NewRepository[ID ~int64, T Entity](connection *Connection, baseModifiers ...func(ctx context.Context) (QueryModifier, error)) Repository[ID, T] {
	entity := *new(T)

	columns, err := mappedColumns(&entity)
	if err != nil {
		panic(err)
	}

	r := Repository[ID, T]{
		selector:      NewSelector[T](connection, entity.TableName(), columns),
		connection:    connection,
		table:         entity.TableName(),
		BaseModifiers: baseModifiers,
	}

	if err := utils.LoopOverStructFields(reflect.ValueOf(&entity), func(fieldDefinition reflect.StructField, fieldValue reflect.Value) error {
		tag := utils.ParseTag(fieldDefinition.Tag)
		if tag.PrimaryKey && r.primaryKey == "" {
			r.primaryKey = tag.Column
			r.autoIncrement = tag.AutoIncrement
		}

		return nil
	}); err != nil {
		panic(err)
	}

	return r
}

type Repository[ID ~int64, T Entity] struct {
	selector      Selector[T]
	connection    *Connection
	table         string
	primaryKey    string
	autoIncrement bool
	BaseModifiers []func(ctx context.Context) (QueryModifier, error)
}

// Query returns a builder on the entity's table.
func (repository *Repository[ID, T]) Query() *QueryBuilder {
	return repository.selector.Query()
}

func (repository *Repository[ID, T]) withBaseModifiers(ctx context.Context, mods []QueryModifier) ([]QueryModifier, error) {
	for _, mod := range repository.BaseModifiers {
		queryModifier, err := mod(ctx)
		if err != nil {
			return nil, err
		}

		// Prepend the base modifiers
		mods = append([]QueryModifier{queryModifier}, mods...)
	}

	return mods, nil
}

func (repository *Repository[ID, T]) SelectMultiple(ctx context.Context, mods ...QueryModifier) ([]T, error) {
	mods, err := repository.withBaseModifiers(ctx, mods)
	if err != nil {
		return nil, err
	}

	return repository.selector.SelectMultiple(ctx, mods...)
}

func (repository *Repository[ID, T]) SelectSingle(ctx context.Context, mods ...QueryModifier) (T, error) {
	mods, err := repository.withBaseModifiers(ctx, mods)
	if err != nil {
		return *new(T), err
	}

	return repository.selector.SelectSingle(ctx, mods...)
}

func (repository *Repository[ID, T]) All(ctx context.Context) ([]T, error) {
	return repository.SelectMultiple(ctx)
}

// Find loads the entity with the given primary key or returns ErrNoRows.
func (repository *Repository[ID, T]) Find(ctx context.Context, id ID) (T, error) {
	if err := repository.requirePrimaryKey(); err != nil {
		return *new(T), err
	}

	return repository.SelectSingle(ctx, WithAdditionalWhere(func(query *QueryBuilder) {
		query.Where(repository.primaryKey, "=", int64(id))
	}))
}

func (repository *Repository[ID, T]) Insert(ctx context.Context, entity T) (ID, error) {
	values, primaryKeyValue, err := repository.values(entity, true)
	if err != nil {
		return 0, err
	}

	if repository.autoIncrement {
		id, err := repository.connection.Table(repository.table).InsertGetID(ctx, values, repository.primaryKey)
		if err != nil {
			return 0, err
		}

		return ID(id), nil
	}

	if _, err := repository.connection.Table(repository.table).Insert(ctx, values); err != nil {
		return 0, err
	}

	// Grab the primary key if it wasn't from an AUTO_INCREMENT
	id, err := toInt64(normalizeBinding("", primaryKeyValue))
	if err != nil {
		return 0, err
	}

	return ID(id), nil
}

func (repository *Repository[ID, T]) Update(ctx context.Context, entity T) error {
	if err := repository.requirePrimaryKey(); err != nil {
		return err
	}

	values, primaryKeyValue, err := repository.values(entity, false)
	if err != nil {
		return err
	}

	if _, err := repository.connection.Table(repository.table).
		Where(repository.primaryKey, "=", primaryKeyValue).
		Update(ctx, values); err != nil {
		return err
	}

	return nil
}

func (repository *Repository[ID, T]) Delete(ctx context.Context, entity T) error {
	if err := repository.requirePrimaryKey(); err != nil {
		return err
	}

	_, primaryKeyValue, err := repository.values(entity, false)
	if err != nil {
		return err
	}

	if _, err := repository.connection.Table(repository.table).
		Where(repository.primaryKey, "=", primaryKeyValue).
		Delete(ctx); err != nil {
		return err
	}

	return nil
}

func (repository *Repository[ID, T]) requirePrimaryKey() error {
	if repository.primaryKey == "" {
		return compilationError(ErrInvalidPredicate, "%s has no primaryKey column", repository.table)
	}

	return nil
}

// values collects the writable columns of entity. The primary key is returned
// separately and is only part of the values of an insert without
// autoIncrement.
func (repository *Repository[ID, T]) values(entity T, forInsert bool) (map[string]any, any, error) {
	values := map[string]any{}
	var primaryKeyValue any

	if err := utils.LoopOverStructFields(reflect.ValueOf(entity), func(fieldDefinition reflect.StructField, fieldValue reflect.Value) error {
		tag := utils.ParseTag(fieldDefinition.Tag)
		if tag.Column == "" || tag.ReadOnly {
			return nil
		}

		value := fieldValue.Interface()

		if tag.JSON || shouldBeJSON(fieldDefinition) {
			jsonBytes, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("column %s: %w", tag.Column, err)
			}

			value = string(jsonBytes)
		}

		if tag.Column == repository.primaryKey {
			primaryKeyValue = value
			if !forInsert || repository.autoIncrement {
				return nil
			}
		}

		values[tag.Column] = value

		return nil
	}); err != nil {
		return nil, nil, err
	}

	return values, primaryKeyValue, nil
}
