package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/ir"
	"github.com/intel/compute-runtime-sub069/internal/queryir"
	"github.com/intel/compute-runtime-sub069/internal/querysql"
)

// BufferSummary describes one journaled buffer.
type BufferSummary struct {
	ID            string `json:"id"`
	Device        string `json:"device"`
	EngineVersion string `json:"engine_version"`
	Entries       int    `json:"entries"`
	LastSeq       int64  `json:"last_seq"`
	Failed        int    `json:"failed"`
}

// JournalFilter selects journal entries. Zero fields match anything.
type JournalFilter struct {
	BufferID  string
	Op        ir.JournalOp
	CommandID ir.CommandID
	// FailedOnly keeps entries that carry an error code.
	FailedOnly bool
}

func (f JournalFilter) query() queryir.Select {
	var preds []queryir.Predicate
	if f.BufferID != "" {
		preds = append(preds, queryir.Equals{Field: "buffer_id", Value: ir.String(f.BufferID)})
	}
	if f.Op != "" {
		preds = append(preds, queryir.Equals{Field: "op", Value: ir.String(string(f.Op))})
	}
	if f.CommandID != 0 {
		preds = append(preds, queryir.Equals{Field: "command_id", Value: ir.Int(f.CommandID)})
	}
	if f.FailedOnly {
		preds = append(preds, queryir.NotEquals{Field: "error_code", Value: ir.String("")})
	}
	q := queryir.Select{From: queryir.Journal.Name, Columns: queryir.Journal.Columns}
	if len(preds) > 0 {
		q.Filter = queryir.And{Predicates: preds}
	}
	return q
}

// QueryJournal returns the entries matching the filter, ordered by buffer
// id and then seq. Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryJournal(ctx context.Context, f JournalFilter) ([]ir.JournalEntry, error) {
	query, params, err := querysql.Compile(f.query())
	if err != nil {
		return nil, fmt.Errorf("compile journal query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []ir.JournalEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// ReadJournal returns every entry for a buffer ordered by seq.
// Returns an empty slice (not nil) if the buffer has no entries.
func (s *Store) ReadJournal(ctx context.Context, bufferID string) ([]ir.JournalEntry, error) {
	return s.QueryJournal(ctx, JournalFilter{BufferID: bufferID})
}

// ReadCommand returns the entries that name a command id, ordered by seq.
// Request, record and mutate entries carry the id; open and close do not.
func (s *Store) ReadCommand(ctx context.Context, bufferID string, id ir.CommandID) ([]ir.JournalEntry, error) {
	return s.QueryJournal(ctx, JournalFilter{BufferID: bufferID, CommandID: id})
}

// ListBuffers summarizes every journaled buffer, ordered by id.
func (s *Store) ListBuffers(ctx context.Context) ([]BufferSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.device, b.engine_version,
		       COUNT(j.seq),
		       COALESCE(MAX(j.seq), 0),
		       COALESCE(SUM(CASE WHEN j.error_code != '' THEN 1 ELSE 0 END), 0)
		FROM buffers b
		LEFT JOIN journal j ON j.buffer_id = b.id
		GROUP BY b.id
		ORDER BY b.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query buffers: %w", err)
	}
	defer rows.Close()

	out := []BufferSummary{}
	for rows.Next() {
		var b BufferSummary
		if err := rows.Scan(&b.ID, &b.Device, &b.EngineVersion, &b.Entries, &b.LastSeq, &b.Failed); err != nil {
			return nil, fmt.Errorf("scan buffer: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buffers: %w", err)
	}
	return out, nil
}

// scanEntry scans a journal row from sql.Rows.
func scanEntry(rows *sql.Rows) (ir.JournalEntry, error) {
	var (
		e          ir.JournalEntry
		op         string
		commandID  int64
		payloadStr string
	)
	if err := rows.Scan(&e.BufferID, &e.Seq, &op, &commandID, &payloadStr, &e.PayloadHash, &e.ErrorCode); err != nil {
		return ir.JournalEntry{}, fmt.Errorf("scan journal entry: %w", err)
	}
	payload, err := unmarshalPayload(payloadStr)
	if err != nil {
		return ir.JournalEntry{}, fmt.Errorf("journal entry %s/%d: %w", e.BufferID, e.Seq, err)
	}
	e.Op = ir.JournalOp(op)
	e.CommandID = ir.CommandID(commandID)
	e.Payload = payload
	return e, nil
}
