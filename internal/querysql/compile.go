package querysql

import (
	"fmt"
	"strings"

	"github.com/intel/compute-runtime-sub069/internal/ir"
	"github.com/intel/compute-runtime-sub069/internal/queryir"
)

// Compile converts a query to parameterized SQLite SQL.
//
// Every query is ordered by its table's stable key with COLLATE BINARY on
// text columns, and every literal is passed as a ? parameter.
func Compile(q queryir.Query) (string, []any, error) {
	if res := queryir.Validate(q); !res.Valid {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(res.Problems, "; "))
	}
	switch query := q.(type) {
	case queryir.Select:
		return compileSelect(query)
	case *queryir.Select:
		return compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q queryir.Select) (string, []any, error) {
	table, _ := queryir.LookupTable(q.From)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(q.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table.Name)

	var params []any
	if q.Filter != nil {
		where, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
		params = p
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderKey(table))
	return sb.String(), params, nil
}

// orderKey renders the table's stable order. Integer columns sort
// numerically; the rest get COLLATE BINARY so text order does not depend
// on the connection's collation.
func orderKey(t queryir.Table) string {
	parts := make([]string, 0, len(t.OrderKey))
	for _, col := range t.OrderKey {
		if isIntegerColumn(col) {
			parts = append(parts, col+" ASC")
		} else {
			parts = append(parts, col+" COLLATE BINARY ASC")
		}
	}
	return strings.Join(parts, ", ")
}

func isIntegerColumn(col string) bool {
	return col == "seq" || col == "command_id"
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileComparison(pred.Field, "=", pred.Value)
	case *queryir.Equals:
		return compileComparison(pred.Field, "=", pred.Value)
	case queryir.NotEquals:
		return compileComparison(pred.Field, "!=", pred.Value)
	case *queryir.NotEquals:
		return compileComparison(pred.Field, "!=", pred.Value)
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileComparison(field, op string, v ir.Value) (string, []any, error) {
	param, err := valueToParam(v)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", field, err)
	}
	return fmt.Sprintf("%s %s ?", field, op), []any{param}, nil
}

func compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if isAnd(pred) && len(and.Predicates) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func isAnd(p queryir.Predicate) bool {
	switch p.(type) {
	case queryir.And, *queryir.And:
		return true
	}
	return false
}

// valueToParam converts a scalar payload value to a database/sql argument.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
