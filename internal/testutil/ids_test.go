package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedBufferID_ReturnsSameID(t *testing.T) {
	gen := NewFixedBufferID("buf-123")

	assert.Equal(t, "buf-123", gen.Generate())
	assert.Equal(t, "buf-123", gen.Generate())
	assert.Equal(t, "buf-123", gen.Generate())
}

func TestFixedBufferID_EmptyIDDefault(t *testing.T) {
	gen := NewFixedBufferID("")

	assert.Equal(t, "test-buffer", gen.Generate())
}

func TestFixedBufferID_ThreadSafe(t *testing.T) {
	gen := NewFixedBufferID("thread-safe-id")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe-id", gen.Generate())
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
