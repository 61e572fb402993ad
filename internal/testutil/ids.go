package testutil

// FixedBufferID names every buffer the same.
//
// Unlike engine.FixedGenerator, which hands out a list of ids in order and
// panics when it runs dry, this generator never runs out. It suits tests
// that open buffers in a loop and only care that ids are stable.
//
// Thread-safety: FixedBufferID is stateless and safe for concurrent use.
type FixedBufferID struct {
	id string
}

// NewFixedBufferID creates a generator returning id.
// If id is empty, Generate() returns "test-buffer".
func NewFixedBufferID(id string) *FixedBufferID {
	if id == "" {
		id = "test-buffer"
	}
	return &FixedBufferID{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.BufferIDGenerator interface.
func (g *FixedBufferID) Generate() string {
	return g.id
}
