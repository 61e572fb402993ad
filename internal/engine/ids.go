package engine

import (
	"sync"

	"github.com/google/uuid"
)

// BufferIDGenerator names buffers in the journal.
// Implemented by UUIDv7Generator (default) and FixedGenerator (tests).
type BufferIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 buffer ids, so journal
// listings sort by creation time.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids, for golden traces.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next id. It panics once all ids are consumed, which
// means a test opened more buffers than it declared.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
