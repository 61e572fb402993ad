package store

import (
	"path/filepath"
	"testing"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry builds a hashed entry with the given payload.
func createTestEntry(t *testing.T, buffer string, seq int64, op ir.JournalOp, id ir.CommandID, payload ir.Object) ir.JournalEntry {
	t.Helper()
	if payload == nil {
		payload = ir.Object{}
	}
	hash, err := ir.PayloadHash(payload)
	if err != nil {
		t.Fatalf("PayloadHash() failed: %v", err)
	}
	return ir.JournalEntry{
		BufferID:    buffer,
		Seq:         seq,
		Op:          op,
		CommandID:   id,
		Payload:     payload,
		PayloadHash: hash,
	}
}

func openPayload(device string) ir.Object {
	return ir.Object{"device": ir.String(device), "supported": ir.Array{ir.String("ArgumentValues")}}
}
