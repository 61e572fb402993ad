// Package device is a software device that executes closed engine buffers
// on host memory.
//
// It stands in for the collaborators the engine consumes: capability
// reporting, memory allocation, events with kernel timestamps, and a queue
// with submit and synchronize. Kernel bodies are Go functions looked up by
// kernel name; they operate on uint32 elements.
//
// Timestamps come from a logical engine.Clock, so a replayed scenario
// produces the same timestamps.
package device
