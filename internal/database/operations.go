package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Table represents a database table with common methods
type Table interface {
	TableName() string
}

// ListOptions narrows a List query
type ListOptions struct {
	// OrderBy is a column name optionally followed by ASC or DESC
	OrderBy string
	Limit   int
	Offset  int
}

// CRUD provides generic database operations for any model whose fields carry db tags
type CRUD struct {
	DB *Pool
}

// NewCRUD creates a new CRUD instance with the given database pool
func NewCRUD(db *Pool) *CRUD {
	return &CRUD{DB: db}
}

// Create inserts a new record. Models generate their own IDs.
func (c *CRUD) Create(ctx context.Context, model Table) error {
	modelValue := reflect.ValueOf(model).Elem()
	columns := columnsOf(modelValue.Type())

	placeholders := make([]string, len(columns))
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		values[i] = modelValue.Field(col.index).Interface()
	}

	query := c.DB.Rebind(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		model.TableName(),
		strings.Join(columnNames(columns), ", "),
		strings.Join(placeholders, ", "),
	))

	log.Debug().
		Str("query", query).
		Str("table", model.TableName()).
		Msg("Creating database record")

	if _, err := c.DB.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to create record in %s: %w", model.TableName(), err)
	}
	return nil
}

// List retrieves all records that match the given equality conditions into dest,
// which must be a pointer to a slice of structs or struct pointers
func (c *CRUD) List(ctx context.Context, model Table, dest interface{}, conditions map[string]interface{}, opts ListOptions) error {
	destValue := reflect.ValueOf(dest).Elem()
	elemType := destValue.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}
	columns := columnsOf(elemType)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columnNames(columns), ", "), model.TableName())
	where, params := whereClause(conditions)
	query += where

	if opts.OrderBy != "" {
		query += " ORDER BY " + opts.OrderBy
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", opts.Offset)
		}
	}
	query = c.DB.Rebind(query)

	log.Debug().
		Str("query", query).
		Interface("params", params).
		Str("table", model.TableName()).
		Msg("Listing database records")

	rows, err := c.DB.QueryContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("failed to query records from %s: %w", model.TableName(), err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	for rows.Next() {
		newElem := reflect.New(elemType).Elem()

		values := make([]interface{}, len(columns))
		for i, col := range columns {
			values[i] = newElem.Field(col.index).Addr().Interface()
		}

		if err := rows.Scan(values...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		if isPtr {
			destValue.Set(reflect.Append(destValue, newElem.Addr()))
		} else {
			destValue.Set(reflect.Append(destValue, newElem))
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	return nil
}

// Count gets the count of records in a table with optional conditions
func (c *CRUD) Count(ctx context.Context, model Table, conditions map[string]interface{}) (int64, error) {
	where, params := whereClause(conditions)
	query := c.DB.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s", model.TableName()) + where)

	log.Debug().
		Str("query", query).
		Interface("params", params).
		Str("table", model.TableName()).
		Msg("Counting database records")

	var count int64
	if err := c.DB.QueryRowContext(ctx, query, params...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records in %s: %w", model.TableName(), err)
	}

	return count, nil
}

type column struct {
	name  string
	index int
}

// columnsOf returns the db-tagged fields of a struct type in declaration order
func columnsOf(t reflect.Type) []column {
	var columns []column
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		columns = append(columns, column{name: tag, index: i})
	}
	return columns
}

func columnNames(columns []column) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.name
	}
	return names
}

// whereClause builds an AND of equality conditions with keys in sorted order
// so the generated SQL is stable
func whereClause(conditions map[string]interface{}) (string, []interface{}) {
	if len(conditions) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(conditions))
	for key := range conditions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	where := make([]string, len(keys))
	params := make([]interface{}, len(keys))
	for i, key := range keys {
		where[i] = key + " = ?"
		params[i] = conditions[key]
	}
	return " WHERE " + strings.Join(where, " AND "), params
}
