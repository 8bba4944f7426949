// Package querysql compiles queryir queries to parameterized SQLite SQL
// over the JSON records table.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/mirror/internal/queryir"
	"github.com/roach88/mirror/internal/value"
)

// DefaultTable is the records table created by the sqlite backend.
const DefaultTable = "records"

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Records live in one table keyed by (entity, id) with the record stored
// as JSON text in the body column. Field access goes through json_extract
// and json_type, whose path argument is bound like any other value.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	// Table is the records table name. It is trusted input.
	Table string
}

// NewSQLCompiler creates a compiler for DefaultTable.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: DefaultTable}
}

// Compile converts a query to parameterized SQL selecting (id, body).
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil query")
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	table := c.Table
	if table == "" {
		table = DefaultTable
	}

	whereClause := "entity = ?"
	params := []any{q.Entity}
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause += " AND " + filterSQL
		params = append(params, filterParams...)
	}

	sql := fmt.Sprintf("SELECT id, body FROM %s WHERE %s ORDER BY %s",
		table,
		whereClause,
		StableOrderKey)

	return sql, params, nil
}

// StableOrderKey orders rows by creation, with the id as tiebreaker.
// COLLATE BINARY ensures deterministic text ordering across SQLite versions.
const StableOrderKey = "seq ASC, id ASC COLLATE BINARY"

// compilePredicate compiles a predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case queryir.In:
		return c.compileIn(pred)
	case queryir.HasKind:
		return c.compileHasKind(pred)
	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "0 = 1")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles to "json_extract(body, ?) = ?".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	path, err := JSONPath(eq.Field)
	if err != nil {
		return "", nil, err
	}
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", eq.Field, err)
	}
	return "json_extract(body, ?) = ?", []any{path, param}, nil
}

// compileIn compiles to "json_extract(body, ?) IN (?, ...)".
func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	path, err := JSONPath(in.Field)
	if err != nil {
		return "", nil, err
	}
	if len(in.Values) == 0 {
		return "0 = 1", nil, nil
	}

	params := []any{path}
	marks := make([]string, len(in.Values))
	for i, v := range in.Values {
		param, err := valueToParam(v)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", in.Field, err)
		}
		params = append(params, param)
		marks[i] = "?"
	}
	return "json_extract(body, ?) IN (" + strings.Join(marks, ", ") + ")", params, nil
}

// compileHasKind compiles to "json_type(body, ?) = ?".
func (c *SQLCompiler) compileHasKind(hk queryir.HasKind) (string, []any, error) {
	path, err := JSONPath(hk.Field)
	if err != nil {
		return "", nil, err
	}
	var typ string
	switch hk.Kind {
	case value.KindNull:
		typ = "null"
	case value.KindArray:
		typ = "array"
	case value.KindObject:
		typ = "object"
	default:
		return "", nil, fmt.Errorf("field %q: unsupported kind %s", hk.Field, hk.Kind)
	}
	return "json_type(body, ?) = ?", []any{path, typ}, nil
}

// compileJunction joins sub-predicates with op. The result is wrapped in
// parentheses so it nests safely.
func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, op, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range preds {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	if len(sqlParts) == 1 {
		return sqlParts[0], allParams, nil
	}
	return "(" + strings.Join(sqlParts, op) + ")", allParams, nil
}

// JSONPath returns the SQLite JSON path addressing a top-level field.
// Field names containing a double quote cannot be expressed and are rejected.
func JSONPath(field string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("empty field name")
	}
	if strings.ContainsRune(field, '"') {
		return "", fmt.Errorf("field %q: double quotes are not supported", field)
	}
	return `$."` + field + `"`, nil
}

// valueToParam converts a scalar value to a Go native SQL parameter.
func valueToParam(v value.Value) (any, error) {
	switch val := v.(type) {
	case value.String:
		return string(val), nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		return float64(val), nil
	case value.Bool:
		return bool(val), nil
	case nil:
		return nil, fmt.Errorf("missing value")
	default:
		return nil, fmt.Errorf("%s cannot be used as SQL parameter directly", v.Kind())
	}
}
