package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	id := gen.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, gen.Generate())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("buf-a", "buf-b")
	assert.Equal(t, "buf-a", gen.Generate())
	assert.Equal(t, "buf-b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestOpenUsesGenerator(t *testing.T) {
	b := Open(fullCaps(), WithIDGenerator(NewFixedGenerator("buf-fixed")))
	assert.Equal(t, "buf-fixed", b.ID())

	named := Open(fullCaps(), WithBufferID("explicit"))
	assert.Equal(t, "explicit", named.ID())

	_, err := uuid.Parse(Open(fullCaps()).ID())
	assert.NoError(t, err, "default ids are UUIDs")
}
