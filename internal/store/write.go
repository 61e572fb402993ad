package store

import (
	"context"
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// Append writes one journal entry. It implements engine.Journal.
//
// The buffer row is created on the first entry for a buffer and its device
// name is filled in from the open payload. Writing the same (buffer, seq)
// twice is a no-op, so a journal can be re-fed after a crash.
func (s *Store) Append(ctx context.Context, entry ir.JournalEntry) error {
	payloadJSON, err := marshalPayload(entry.Payload)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append journal entry: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO buffers (id, engine_version, payload_version)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, entry.BufferID, ir.EngineVersion, ir.PayloadVersion)
	if err != nil {
		return fmt.Errorf("append journal entry: buffer: %w", err)
	}

	if entry.Op == ir.OpOpen {
		if dev, ok := entry.Payload["device"].(ir.String); ok {
			_, err = tx.ExecContext(ctx, `UPDATE buffers SET device = ? WHERE id = ?`, string(dev), entry.BufferID)
			if err != nil {
				return fmt.Errorf("append journal entry: device: %w", err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journal
		(buffer_id, seq, op, command_id, payload, payload_hash, error_code)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(buffer_id, seq) DO NOTHING
	`,
		entry.BufferID,
		entry.Seq,
		string(entry.Op),
		int64(entry.CommandID),
		payloadJSON,
		entry.PayloadHash,
		entry.ErrorCode,
	)
	if err != nil {
		return fmt.Errorf("append journal entry: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append journal entry: commit: %w", err)
	}
	return nil
}
