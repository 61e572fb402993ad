package testutil

import (
	"context"
	"sync"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// Journal is an in-memory journal sink for tests.
//
// Unlike engine.MemoryJournal, Journal can be reset for test reuse and can
// be told to fail, so the same buffer can be driven against a healthy and
// a broken sink.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Journal struct {
	mu      sync.Mutex
	entries []ir.JournalEntry
	calls   int
	err     error
}

// NewJournal creates an empty journal that accepts every entry.
func NewJournal() *Journal {
	return &Journal{}
}

// NewFailingJournal creates a journal whose Append always returns err.
// Rejected entries are counted but not kept.
func NewFailingJournal(err error) *Journal {
	return &Journal{err: err}
}

// Append implements engine.Journal.
func (j *Journal) Append(_ context.Context, entry ir.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, entry)
	return nil
}

// Entries returns a copy of the accepted entries in append order.
func (j *Journal) Entries() []ir.JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ir.JournalEntry(nil), j.entries...)
}

// Ops returns the op of every accepted entry.
func (j *Journal) Ops() []ir.JournalOp {
	j.mu.Lock()
	defer j.mu.Unlock()
	ops := make([]ir.JournalOp, len(j.entries))
	for i, e := range j.entries {
		ops[i] = e.Op
	}
	return ops
}

// Calls returns the number of Append calls, accepted or not.
func (j *Journal) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

// Reset drops every entry and the call count.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
	j.calls = 0
}
