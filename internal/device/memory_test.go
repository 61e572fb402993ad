package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AllocDistinctAligned(t *testing.T) {
	m := NewMemory()
	a, err := m.Alloc(AllocDevice, 10)
	require.NoError(t, err)
	b, err := m.Alloc(AllocShared, 4)
	require.NoError(t, err)

	assert.Greater(t, b, a)
	assert.Zero(t, b%alignment)

	_, err = m.Alloc(AllocHost, 0)
	assert.Error(t, err)
}

func TestMemory_ReadWrite(t *testing.T) {
	m := NewMemory()
	addr, err := m.Alloc(AllocDevice, 16)
	require.NoError(t, err)

	require.NoError(t, m.Fill(addr, 10, 4))
	require.NoError(t, m.WriteUint32s(addr+4, []uint32{7}))
	got, err := m.ReadUint32s(addr, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{10, 7, 10, 10}, got)

	_, err = m.ReadUint32s(addr, 5)
	assert.ErrorContains(t, err, "overruns")
	_, err = m.ReadUint32s(addr+0x1000, 1)
	assert.ErrorContains(t, err, "not allocated")
}

func TestMemory_Free(t *testing.T) {
	m := NewMemory()
	addr, _ := m.Alloc(AllocHost, 8)
	require.NoError(t, m.Free(addr))
	_, err := m.Resolve(addr, 4)
	assert.Error(t, err, "freed memory no longer resolves")
	assert.Error(t, m.Free(addr))

	again, _ := m.Alloc(AllocHost, 8)
	assert.NotEqual(t, addr, again, "addresses are not reused")
}
