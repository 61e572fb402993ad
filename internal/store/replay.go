package store

import (
	"context"
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// JournalIssue is one inconsistency found while verifying a journal.
type JournalIssue struct {
	Seq     int64  `json:"seq"`
	Message string `json:"message"`
}

// JournalState is the outcome of replaying a buffer's journal.
type JournalState struct {
	BufferID string
	Entries  int
	LastSeq  int64

	// Closed is true when the last successful lifecycle entry is a close.
	Closed bool
	// Dirty is true when a successful mutate follows the last close.
	Dirty bool
	// Commands lists the command ids granted by successful requests.
	Commands []ir.CommandID
	Failed   int
	Issues   []JournalIssue
}

// Consistent reports whether the journal replayed without issues.
func (s JournalState) Consistent() bool {
	return len(s.Issues) == 0
}

// ReplayJournal reads a buffer's journal and checks it can have been
// produced by one buffer: seq runs 1..n without gaps, the first entry is
// an open, every payload hash matches its stored payload, and successful
// record and mutate entries name ids that an earlier request granted.
// Lifecycle state is reconstructed along the way.
func (s *Store) ReplayJournal(ctx context.Context, bufferID string) (JournalState, error) {
	state := JournalState{BufferID: bufferID, Commands: []ir.CommandID{}}

	entries, err := s.ReadJournal(ctx, bufferID)
	if err != nil {
		return state, fmt.Errorf("replay journal: %w", err)
	}
	state.Entries = len(entries)
	if len(entries) == 0 {
		return state, fmt.Errorf("replay journal: buffer %s has no entries", bufferID)
	}

	issue := func(seq int64, format string, args ...any) {
		state.Issues = append(state.Issues, JournalIssue{Seq: seq, Message: fmt.Sprintf(format, args...)})
	}

	granted := make(map[ir.CommandID]bool)
	for i, e := range entries {
		want := int64(i + 1)
		if e.Seq != want {
			issue(e.Seq, "expected seq %d", want)
		}
		state.LastSeq = e.Seq

		hash, err := ir.PayloadHash(e.Payload)
		if err != nil {
			issue(e.Seq, "payload not hashable: %v", err)
		} else if hash != e.PayloadHash {
			issue(e.Seq, "payload hash mismatch")
		}

		if i == 0 && e.Op != ir.OpOpen {
			issue(e.Seq, "first entry is %s, expected open", e.Op)
		}
		if i > 0 && e.Op == ir.OpOpen {
			issue(e.Seq, "buffer opened twice")
		}

		if e.ErrorCode != "" {
			state.Failed++
			continue
		}
		switch e.Op {
		case ir.OpRequestID:
			granted[e.CommandID] = true
			state.Commands = append(state.Commands, e.CommandID)
		case ir.OpRecord:
			if !granted[e.CommandID] {
				issue(e.Seq, "record of command %d that was never granted", e.CommandID)
			}
		case ir.OpMutate:
			state.Dirty = true
		case ir.OpClose:
			state.Closed = true
			state.Dirty = false
		}
	}
	return state, nil
}
