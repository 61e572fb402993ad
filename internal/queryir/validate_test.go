package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

func TestValidate_JournalQuery(t *testing.T) {
	query := Select{
		From:    "journal",
		Columns: Journal.Columns,
		Filter: And{Predicates: []Predicate{
			Equals{Field: "buffer_id", Value: ir.String("demo/main")},
			Equals{Field: "command_id", Value: ir.Int(1)},
			NotEquals{Field: "error_code", Value: ir.String("")},
		}},
	}

	result := Validate(query)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_Pointers(t *testing.T) {
	query := &Select{
		From:    "buffers",
		Columns: []string{"id"},
		Filter:  &And{Predicates: []Predicate{&Equals{Field: "device", Value: ir.String("full")}}},
	}

	assert.True(t, Validate(query).Valid)
}

func TestValidate_NilFilter(t *testing.T) {
	result := Validate(Select{From: "journal", Columns: []string{"seq"}})
	assert.True(t, result.Valid)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		problem string
	}{
		{"nil query", nil, "nil query"},
		{"unknown table", Select{From: "commands", Columns: []string{"id"}}, `unknown table "commands"`},
		{"no columns", Select{From: "journal"}, "empty column list"},
		{"unknown column", Select{From: "journal", Columns: []string{"tick"}}, `table journal has no column "tick"`},
		{
			"unknown filter field",
			Select{From: "journal", Columns: []string{"seq"}, Filter: Equals{Field: "device", Value: ir.String("full")}},
			`table journal has no column "device"`,
		},
		{
			"missing value",
			Select{From: "journal", Columns: []string{"seq"}, Filter: Equals{Field: "op"}},
			`field "op" compared to a missing value`,
		},
		{
			"array value",
			Select{From: "journal", Columns: []string{"seq"}, Filter: NotEquals{Field: "op", Value: ir.Array{ir.String("open")}}},
			`field "op" compared to non-scalar ir.Array`,
		},
		{
			"nested",
			Select{From: "journal", Columns: []string{"seq"}, Filter: And{Predicates: []Predicate{
				And{Predicates: []Predicate{Equals{Field: "payload", Value: ir.Object{}}}},
			}}},
			`field "payload" compared to non-scalar ir.Object`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.False(t, result.Valid)
			require.Len(t, result.Problems, 1)
			assert.Contains(t, result.Problems[0], tt.problem)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	query := Select{
		From:    "journal",
		Columns: []string{"seq", "tick"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "device", Value: ir.String("full")},
			Equals{Field: "op", Value: ir.Array{}},
		}},
	}

	result := Validate(query)
	assert.False(t, result.Valid)
	assert.Len(t, result.Problems, 3)
}

func TestLookupTable(t *testing.T) {
	table, ok := LookupTable("journal")
	require.True(t, ok)
	assert.Equal(t, []string{"buffer_id", "seq"}, table.OrderKey)
	assert.True(t, table.HasColumn("payload_hash"))
	assert.False(t, table.HasColumn("device"))

	_, ok = LookupTable("nope")
	assert.False(t, ok)
}
