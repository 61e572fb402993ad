// Package engine implements the mutable command buffer.
//
// A Buffer is recorded once and then patched in place. Each command that
// may change later is recorded against a command id, requested up front
// with the set of mutation kinds it needs and, for kernel swapping, the
// group of kernels it may switch between. After Close, mutation chains
// addressed by id patch arguments, dispatch shape, global offset, event
// bindings or the kernel itself, and the buffer is closed again before the
// next submission.
//
// Lifecycle:
//
//	Open --RequestID/Record/Append--> Open --Close--> Closed
//	Closed --ApplyMutations--> Closed (dirty) --Close--> Closed
//
// Rules:
//   - Every requested mutation kind must be supported by the device
//   - Command ids are buffer-scoped and strictly increasing from 1
//   - A chain is validated and applied as one unit; on error nothing changes
//   - A kernel swap drops all argument bindings; the command is invalid
//     until every argument and each granted shape component is resupplied
//   - Close fails while any command is invalid
//
// Events and kernels are weak references. The engine never runs a
// command; the device package executes closed buffers and enforces the
// signal-before-wait ordering described by Edges.
//
// Every operation can be mirrored to a Journal. Journal failures are
// logged and never change the outcome of an operation.
package engine
