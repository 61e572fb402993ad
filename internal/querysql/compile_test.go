package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/compute-runtime-sub069/internal/ir"
	"github.com/intel/compute-runtime-sub069/internal/queryir"
)

func TestCompile_JournalSelect(t *testing.T) {
	query := queryir.Select{
		From:    "journal",
		Columns: []string{"seq", "op"},
		Filter:  queryir.Equals{Field: "buffer_id", Value: ir.String("demo/main")},
	}

	sql, params, err := Compile(query)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT seq, op FROM journal WHERE buffer_id = ? ORDER BY buffer_id COLLATE BINARY ASC, seq ASC",
		sql)
	assert.Equal(t, []any{"demo/main"}, params)
	assert.NotContains(t, sql, "demo/main")
}

func TestCompile_Conjunction(t *testing.T) {
	query := &queryir.Select{
		From:    "journal",
		Columns: []string{"seq"},
		Filter: &queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "buffer_id", Value: ir.String("b")},
			queryir.Equals{Field: "command_id", Value: ir.Int(3)},
			queryir.NotEquals{Field: "error_code", Value: ir.String("")},
		}},
	}

	sql, params, err := Compile(query)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE buffer_id = ? AND command_id = ? AND error_code != ?")
	assert.Equal(t, []any{"b", int64(3), ""}, params)
}

func TestCompile_NestedAnd(t *testing.T) {
	query := queryir.Select{
		From:    "journal",
		Columns: []string{"seq"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "op", Value: ir.String("mutate")},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: "buffer_id", Value: ir.String("b")},
				queryir.Equals{Field: "seq", Value: ir.Int(2)},
			}},
		}},
	}

	sql, params, err := Compile(query)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE op = ? AND (buffer_id = ? AND seq = ?)")
	assert.Equal(t, []any{"mutate", "b", int64(2)}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := Compile(queryir.Select{
		From:    "journal",
		Columns: []string{"seq"},
		Filter:  queryir.And{},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_NoFilter(t *testing.T) {
	sql, params, err := Compile(queryir.Select{From: "buffers", Columns: []string{"id", "device"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, device FROM buffers ORDER BY id COLLATE BINARY ASC", sql)
	assert.Nil(t, params)
}

func TestCompile_BoolParam(t *testing.T) {
	_, params, err := Compile(queryir.Select{
		From:    "buffers",
		Columns: []string{"id"},
		Filter:  queryir.Equals{Field: "device", Value: ir.Bool(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{true}, params)
}

func TestCompile_Deterministic(t *testing.T) {
	query := queryir.Select{
		From:    "journal",
		Columns: queryir.Journal.Columns,
		Filter:  queryir.Equals{Field: "op", Value: ir.String("record")},
	}
	first, _, err := Compile(query)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, _, err := Compile(query)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
		want  string
	}{
		{"nil", nil, "nil query"},
		{"unknown table", queryir.Select{From: "events", Columns: []string{"id"}}, "unknown table"},
		{"unknown column", queryir.Select{From: "journal", Columns: []string{"seq; DROP TABLE journal"}}, "has no column"},
		{
			"object literal",
			queryir.Select{From: "journal", Columns: []string{"seq"}, Filter: queryir.Equals{Field: "payload", Value: ir.Object{}}},
			"non-scalar",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
