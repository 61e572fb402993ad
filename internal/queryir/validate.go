package queryir

import (
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Validate checks that a query names a known table, known columns and
// scalar literals. It is a pure function.
func Validate(q Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(q)
	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems}
}

type validator struct {
	table    Table
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	table, ok := LookupTable(sel.From)
	if !ok {
		v.addProblem("unknown table %q", sel.From)
		return
	}
	v.table = table

	if len(sel.Columns) == 0 {
		v.addProblem("empty column list: name the columns to read")
	}
	for _, c := range sel.Columns {
		v.checkField(c)
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) checkField(name string) {
	if !v.table.HasColumn(name) {
		v.addProblem("table %s has no column %q", v.table.Name, name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.checkComparison(pred.Field, pred.Value)
	case *Equals:
		v.checkComparison(pred.Field, pred.Value)
	case NotEquals:
		v.checkComparison(pred.Field, pred.Value)
	case *NotEquals:
		v.checkComparison(pred.Field, pred.Value)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) checkComparison(field string, value ir.Value) {
	v.checkField(field)
	switch value.(type) {
	case ir.String, ir.Int, ir.Bool:
	case nil:
		v.addProblem("field %q compared to a missing value", field)
	default:
		v.addProblem("field %q compared to non-scalar %T", field, value)
	}
}
