// Package store provides SQLite-backed durable storage for the mutation
// journal.
//
// Every buffer operation (open, request_id, record, append, close, mutate)
// is written as one row keyed by (buffer_id, seq). The payload column holds
// canonical JSON and payload_hash its domain-separated SHA-256, so a
// journal read back from disk can be checked without the engine.
//
// # Ordering
//
// All queries order by seq ASC. seq is a per-buffer logical clock; wall
// time is never stored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
