package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

func TestJournal_KeepsEntriesInOrder(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, ir.JournalEntry{BufferID: "b", Seq: 1, Op: ir.OpOpen}))
	require.NoError(t, j.Append(ctx, ir.JournalEntry{BufferID: "b", Seq: 2, Op: ir.OpClose}))

	assert.Equal(t, []ir.JournalOp{ir.OpOpen, ir.OpClose}, j.Ops())
	assert.Equal(t, 2, j.Calls())
	assert.Equal(t, int64(2), j.Entries()[1].Seq)
}

func TestJournal_EntriesIsACopy(t *testing.T) {
	j := NewJournal()
	require.NoError(t, j.Append(context.Background(), ir.JournalEntry{Op: ir.OpOpen}))

	entries := j.Entries()
	entries[0].Op = ir.OpMutate
	assert.Equal(t, ir.OpOpen, j.Entries()[0].Op)
}

func TestJournal_Reset(t *testing.T) {
	j := NewJournal()
	require.NoError(t, j.Append(context.Background(), ir.JournalEntry{Op: ir.OpOpen}))

	j.Reset()
	assert.Empty(t, j.Entries())
	assert.Equal(t, 0, j.Calls())
}

func TestFailingJournal(t *testing.T) {
	boom := errors.New("disk full")
	j := NewFailingJournal(boom)

	err := j.Append(context.Background(), ir.JournalEntry{Op: ir.OpOpen})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, j.Calls())
	assert.Empty(t, j.Entries())
}

func TestJournal_ThreadSafe(t *testing.T) {
	j := NewJournal()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				_ = j.Append(context.Background(), ir.JournalEntry{Op: ir.OpRecord})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, j.Calls())
	assert.Len(t, j.Entries(), 1000)
}
