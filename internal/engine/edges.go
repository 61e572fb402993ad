package engine

import "github.com/intel/compute-runtime-sub069/internal/ir"

// CommandRef locates a command within a set of buffers.
type CommandRef struct {
	Buffer string
	// Index is the command's position in record order.
	Index int
	// ID is zero for launches appended without a command id.
	ID ir.CommandID
}

// Edge is a completion dependency: Consumer waits on Event, which Producer
// signals.
type Edge struct {
	Event    ir.EventRef
	Producer CommandRef
	Consumer CommandRef
}

// Producers returns every command that signals e, in buffer then record
// order.
func Producers(e ir.EventRef, buffers ...*Buffer) []CommandRef {
	var out []CommandRef
	for _, b := range buffers {
		for i, c := range b.commands {
			if c.Signal == e {
				out = append(out, CommandRef{Buffer: b.id, Index: i, ID: c.ID})
			}
		}
	}
	return out
}

// Consumers returns every command that waits on e.
func Consumers(e ir.EventRef, buffers ...*Buffer) []CommandRef {
	var out []CommandRef
	for _, b := range buffers {
		for i, c := range b.commands {
			for _, w := range c.Wait {
				if w == e {
					out = append(out, CommandRef{Buffer: b.id, Index: i, ID: c.ID})
					break
				}
			}
		}
	}
	return out
}

// Edges returns the producer/consumer graph over the given buffers. A wait
// event with no producer in the set yields no edge; it is expected to be
// signaled from outside, for example by the host.
func Edges(buffers ...*Buffer) []Edge {
	var out []Edge
	for _, b := range buffers {
		for i, c := range b.commands {
			consumer := CommandRef{Buffer: b.id, Index: i, ID: c.ID}
			for _, w := range c.Wait {
				for _, p := range Producers(w, buffers...) {
					out = append(out, Edge{Event: w, Producer: p, Consumer: consumer})
				}
			}
		}
	}
	return out
}
