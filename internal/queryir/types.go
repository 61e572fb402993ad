package queryir

import "github.com/intel/compute-runtime-sub069/internal/ir"

// Query is a read against one table.
//
// Sealed: only types in this package implement it, so backend compilers
// can switch exhaustively.
type Query interface {
	queryNode()
}

// Predicate is a row filter.
type Predicate interface {
	predicateNode()
}

// Select reads Columns from From, keeping rows where Filter holds.
// A nil Filter keeps every row.
//
//	Select{
//	  From:    "journal",
//	  Columns: []string{"seq", "op"},
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "buffer_id", Value: ir.String("demo/main")},
//	    NotEquals{Field: "error_code", Value: ir.String("")},
//	  }},
//	}
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
}

func (Select) queryNode() {}

// Equals holds when the field equals a literal.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// NotEquals holds when the field differs from a literal.
type NotEquals struct {
	Field string
	Value ir.Value
}

func (NotEquals) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Table describes a queryable table: its columns and the stable order key
// every read is sorted by.
type Table struct {
	Name     string
	Columns  []string
	OrderKey []string
}

// HasColumn reports whether the table declares the column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Journal and Buffers mirror the store schema.
var (
	Journal = Table{
		Name:     "journal",
		Columns:  []string{"buffer_id", "seq", "op", "command_id", "payload", "payload_hash", "error_code"},
		OrderKey: []string{"buffer_id", "seq"},
	}
	Buffers = Table{
		Name:     "buffers",
		Columns:  []string{"id", "device", "engine_version", "payload_version"},
		OrderKey: []string{"id"},
	}
)

// LookupTable returns the table with the given name.
func LookupTable(name string) (Table, bool) {
	switch name {
	case Journal.Name:
		return Journal, true
	case Buffers.Name:
		return Buffers, true
	}
	return Table{}, false
}
