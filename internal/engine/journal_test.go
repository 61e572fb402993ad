package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/compute-runtime-sub069/internal/ir"
	"github.com/intel/compute-runtime-sub069/internal/testutil"
)

func TestJournal_RecordsEveryOperation(t *testing.T) {
	j := &MemoryJournal{}
	b, id := recordedSwap(t, WithJournal(j), WithBufferID("buf-1"))
	_ = b.ApplyMutations(NewChain().SwapKernel(id, addKernel).Build())

	ops := make([]ir.JournalOp, len(j.Entries))
	for i, e := range j.Entries {
		ops[i] = e.Op
		assert.Equal(t, "buf-1", e.BufferID)
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Len(t, e.PayloadHash, 64)
	}
	assert.Equal(t, []ir.JournalOp{ir.OpOpen, ir.OpRequestID, ir.OpRecord, ir.OpClose, ir.OpMutate}, ops)

	last := j.Entries[len(j.Entries)-1]
	assert.Equal(t, string(ErrCodeKernelNotInGroup), last.ErrorCode)
	assert.Equal(t, id, last.CommandID)
}

func TestJournal_FailureDoesNotFailOperation(t *testing.T) {
	j := testutil.NewFailingJournal(errors.New("disk full"))
	b, id := recordedSwap(t, WithJournal(j))
	require.NoError(t, b.ApplyMutations(NewChain().SetGroupCount(id, ir.D3(3, 1, 1)).Build()))
	require.NoError(t, b.Close())
	assert.Equal(t, 6, j.Calls())
	assert.Empty(t, j.Entries())
}

func TestJournal_ReopenWithFixedID(t *testing.T) {
	j := testutil.NewJournal()
	gen := testutil.NewFixedBufferID("replay")

	for range 2 {
		j.Reset()
		b := Open(fullCaps(), WithJournal(j), WithIDGenerator(gen), WithJournalContext(context.Background()))
		_, err := b.RequestID(ir.MutateGroupCount)
		require.NoError(t, err)
		require.NoError(t, b.Close())

		entries := j.Entries()
		require.Len(t, entries, 3)
		for i, e := range entries {
			assert.Equal(t, "replay", e.BufferID)
			assert.Equal(t, int64(i+1), e.Seq)
		}
		assert.Equal(t, []ir.JournalOp{ir.OpOpen, ir.OpRequestID, ir.OpClose}, j.Ops())
	}
}

func TestErrorHelpers(t *testing.T) {
	err := newError(ErrCodeAlreadyRecorded, 7, "twice")
	assert.Equal(t, "ALREADY_RECORDED: twice (command=7)", err.Error())

	wrapped := errors.Join(errors.New("context"), err)
	assert.True(t, HasCode(wrapped, ErrCodeAlreadyRecorded))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, HasCode(nil, ""))
}
