package engine

import (
	"context"
	"log/slog"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// Journal receives one entry per buffer operation. The SQLite store
// implements it. A failing journal never fails the operation itself.
type Journal interface {
	Append(ctx context.Context, entry ir.JournalEntry) error
}

// MemoryJournal keeps entries in memory, for tests and dry runs.
type MemoryJournal struct {
	Entries []ir.JournalEntry
}

// Append implements Journal.
func (m *MemoryJournal) Append(_ context.Context, entry ir.JournalEntry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}

// journal writes an entry for op. err is the operation's outcome; its code
// is stored alongside the payload.
func (b *Buffer) journal(op ir.JournalOp, id ir.CommandID, payload ir.Object, err error) {
	if b.sink == nil {
		return
	}
	if payload == nil {
		payload = ir.Object{}
	}
	hash, herr := ir.PayloadHash(payload)
	if herr != nil {
		slog.Warn("journal payload not hashable",
			"buffer", b.id,
			"op", op,
			"error", herr,
		)
		return
	}
	entry := ir.JournalEntry{
		BufferID:    b.id,
		Seq:         b.seq.Next(),
		Op:          op,
		CommandID:   id,
		Payload:     payload,
		PayloadHash: hash,
		ErrorCode:   string(CodeOf(err)),
	}
	if err != nil && entry.ErrorCode == "" {
		entry.ErrorCode = "INTERNAL"
	}
	if jerr := b.sink.Append(b.ctx, entry); jerr != nil {
		slog.Warn("journal write failed",
			"buffer", b.id,
			"op", op,
			"seq", entry.Seq,
			"error", jerr,
		)
	}
}
