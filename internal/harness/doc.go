// Package harness runs conformance scenarios against the mutable command
// buffer engine.
//
// A scenario is a YAML file naming a catalog, a device profile, memory
// regions and events, then an ordered list of steps: request_id, record,
// append, close, mutate, submit, timestamp, reset_event, host_signal and
// fill. Each step may declare expect_error with the error code it must fail
// with. Buffers are opened on first use and take the step's buffer name as
// their id.
//
// Every scenario runs on a fresh software device and a fresh in-memory
// SQLite journal. After the steps, the journal is read back and replayed,
// and assertions (memory_equals, command_valid, timestamps_ordered,
// journal_count, wait_cycles) are evaluated.
//
// Traces serialize to canonical JSON and are compared against golden files
// with goldie:
//
//	go test ./internal/harness -update
package harness
