package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

var copyKernel = &ir.Kernel{Name: "copy", Args: []ir.ArgSpec{
	{Name: "dst", Kind: ir.ArgBuffer},
	{Name: "src", Kind: ir.ArgBuffer},
}}

// journaledBuffer drives a real buffer through request, record, close,
// a failed request after close, and a mutation.
func journaledBuffer(t *testing.T, s *Store) *engine.Buffer {
	t.Helper()
	caps := engine.CapabilityTable{Device: "full", Supported: ir.AllMutations}
	b := engine.Open(caps, engine.WithJournal(s), engine.WithBufferID("buf-1"))

	id, err := b.RequestIDNoVariant(ir.MutateArgumentValues)
	require.NoError(t, err)
	require.NoError(t, b.Record(id, engine.Launch{
		Kernel: copyKernel,
		Args:   []ir.ArgValue{ir.PointerArg(0x1000), ir.PointerArg(0x2000)},
		Shape:  ir.DispatchShape{GroupSize: ir.D3(8, 1, 1), GroupCount: ir.D3(1, 1, 1)},
	}))
	require.NoError(t, b.Close())

	_, err = b.RequestIDNoVariant(0)
	require.Error(t, err, "requests after close fail")

	require.NoError(t, b.ApplyMutations(engine.NewChain().SetArg(id, 0, ir.PointerArg(0x3000)).Build()))
	return b
}

func TestReplayJournal_FromBuffer(t *testing.T) {
	s := createTestStore(t)
	b := journaledBuffer(t, s)

	state, err := s.ReplayJournal(context.Background(), b.ID())
	require.NoError(t, err)
	assert.True(t, state.Consistent(), "issues: %v", state.Issues)
	assert.Equal(t, 6, state.Entries)
	assert.Equal(t, int64(6), state.LastSeq)
	assert.Equal(t, 1, state.Failed)
	assert.Equal(t, []ir.CommandID{1}, state.Commands)
	assert.True(t, state.Closed)
	assert.True(t, state.Dirty, "mutated after close")

	require.NoError(t, b.Close())
	state, err = s.ReplayJournal(context.Background(), b.ID())
	require.NoError(t, err)
	assert.False(t, state.Dirty)
}

func TestReplayJournal_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	b := journaledBuffer(t, s)

	_, err := s.db.Exec(`UPDATE journal SET payload = '{"index":0}' WHERE buffer_id = ? AND op = 'mutate'`, b.ID())
	require.NoError(t, err)

	state, err := s.ReplayJournal(context.Background(), b.ID())
	require.NoError(t, err)
	require.False(t, state.Consistent())
	assert.Equal(t, "payload hash mismatch", state.Issues[0].Message)
}

func TestReplayJournal_Gaps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, createTestEntry(t, "buf", 1, ir.OpOpen, 0, nil)))
	require.NoError(t, s.Append(ctx, createTestEntry(t, "buf", 3, ir.OpRecord, 4, nil)))

	state, err := s.ReplayJournal(ctx, "buf")
	require.NoError(t, err)
	require.Len(t, state.Issues, 2)
	assert.Equal(t, "expected seq 2", state.Issues[0].Message)
	assert.Contains(t, state.Issues[1].Message, "never granted")
}

func TestReplayJournal_Unknown(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReplayJournal(context.Background(), "nope")
	assert.Error(t, err)
}
