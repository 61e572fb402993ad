// Package ir provides the foundational value types shared by the mutable
// command buffer engine, the reference device, the journal store, and the
// conformance harness.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Kernels and events are referenced, never owned: *Kernel is an
//     externally managed handle and EventRef is an opaque name.
//   - Patches form a sealed interface so the chain processor can switch
//     over every kind exhaustively.
//   - Journal payloads use canonical JSON (sorted keys, NFC strings, no
//     floats) so that payload hashes are stable across runs.
//   - All JSON tags use snake_case.
package ir
