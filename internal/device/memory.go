package device

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

// AllocKind is the placement of an allocation. The software device keeps
// every kind in host memory; the kind is only reported back.
type AllocKind string

const (
	AllocHost   AllocKind = "host"
	AllocDevice AllocKind = "device"
	AllocShared AllocKind = "shared"
)

const (
	baseAddress = 0x10000
	alignment   = 0x100
)

// Allocation is one block of the flat address space.
type Allocation struct {
	Base uint64
	Kind AllocKind
	Data []byte
}

func (a *Allocation) end() uint64 {
	return a.Base + uint64(len(a.Data))
}

// Memory is a flat address space. Addresses are never reused, so a stale
// pointer fails to resolve instead of aliasing a newer allocation.
type Memory struct {
	mu     sync.Mutex
	allocs []*Allocation // sorted by Base
	next   uint64
}

// NewMemory creates an empty address space.
func NewMemory() *Memory {
	return &Memory{next: baseAddress}
}

// Alloc reserves size zeroed bytes and returns the base address.
func (m *Memory) Alloc(kind AllocKind, size int) (uint64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("allocation size must be positive, got %d", size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &Allocation{Base: m.next, Kind: kind, Data: make([]byte, size)}
	m.allocs = append(m.allocs, a)
	m.next = (a.end() + alignment) &^ (alignment - 1)
	return a.Base, nil
}

// Free releases the allocation starting at addr.
func (m *Memory) Free(addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.allocs {
		if a.Base == addr {
			m.allocs = append(m.allocs[:i], m.allocs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("free of unknown allocation 0x%x", addr)
}

// Resolve returns n bytes starting at addr. The bytes alias device memory.
func (m *Memory) Resolve(addr uint64, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.allocs), func(i int) bool { return m.allocs[i].end() > addr })
	if i == len(m.allocs) || addr < m.allocs[i].Base {
		return nil, fmt.Errorf("address 0x%x is not allocated", addr)
	}
	a := m.allocs[i]
	off := addr - a.Base
	if n < 0 || off+uint64(n) > uint64(len(a.Data)) {
		return nil, fmt.Errorf("access of %d bytes at 0x%x overruns allocation 0x%x (%d bytes)", n, addr, a.Base, len(a.Data))
	}
	return a.Data[off : off+uint64(n)], nil
}

// ReadUint32s reads count little-endian uint32 values at addr.
func (m *Memory) ReadUint32s(addr uint64, count int) ([]uint32, error) {
	b, err := m.Resolve(addr, count*4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// WriteUint32s writes values at addr.
func (m *Memory) WriteUint32s(addr uint64, values []uint32) error {
	b, err := m.Resolve(addr, len(values)*4)
	if err != nil {
		return err
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return nil
}

// Fill writes count copies of v at addr.
func (m *Memory) Fill(addr uint64, v uint32, count int) error {
	values := make([]uint32, count)
	for i := range values {
		values[i] = v
	}
	return m.WriteUint32s(addr, values)
}

// view is a uint32 window onto an allocation, bounds-checked per access.
type view struct {
	addr uint64
	data []byte
}

func (m *Memory) view(addr uint64) (view, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.allocs {
		if addr >= a.Base && addr < a.end() {
			return view{addr: addr, data: a.Data[addr-a.Base:]}, nil
		}
	}
	return view{}, fmt.Errorf("address 0x%x is not allocated", addr)
}

func (v view) get(i uint64) (uint32, error) {
	if (i+1)*4 > uint64(len(v.data)) {
		return 0, fmt.Errorf("element %d out of bounds at 0x%x", i, v.addr)
	}
	return binary.LittleEndian.Uint32(v.data[i*4:]), nil
}

func (v view) set(i uint64, x uint32) error {
	if (i+1)*4 > uint64(len(v.data)) {
		return fmt.Errorf("element %d out of bounds at 0x%x", i, v.addr)
	}
	binary.LittleEndian.PutUint32(v.data[i*4:], x)
	return nil
}
