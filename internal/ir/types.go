package ir

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

// CommandID identifies a mutable command within one buffer.
// Zero is never issued.
type CommandID uint64

// EventRef is a weak reference to an externally owned event.
// The empty ref means "no event".
type EventRef string

// Dim3 is a three-dimensional extent or offset.
type Dim3 struct {
	X uint32 `json:"x" yaml:"x"`
	Y uint32 `json:"y" yaml:"y"`
	Z uint32 `json:"z" yaml:"z"`
}

// D3 builds a Dim3.
func D3(x, y, z uint32) Dim3 {
	return Dim3{X: x, Y: y, Z: z}
}

// Volume returns X*Y*Z. ok is false when the product does not fit in
// 64 bits.
func (d Dim3) Volume() (v uint64, ok bool) {
	hi, xy := bits.Mul64(uint64(d.X), uint64(d.Y))
	if hi != 0 {
		return 0, false
	}
	hi, v = bits.Mul64(xy, uint64(d.Z))
	return v, hi == 0
}

// String formats the extent as "(x,y,z)".
func (d Dim3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", d.X, d.Y, d.Z)
}

// DispatchShape is the group size and group count of a launch.
type DispatchShape struct {
	GroupSize  Dim3 `json:"group_size"`
	GroupCount Dim3 `json:"group_count"`
}

// GlobalSize returns the total number of work-items per dimension. ok is
// false when a dimension does not fit in 32 bits.
func (s DispatchShape) GlobalSize() (Dim3, bool) {
	x, okX := mul32(s.GroupSize.X, s.GroupCount.X)
	y, okY := mul32(s.GroupSize.Y, s.GroupCount.Y)
	z, okZ := mul32(s.GroupSize.Z, s.GroupCount.Z)
	return Dim3{X: x, Y: y, Z: z}, okX && okY && okZ
}

// CheckGlobalSize fails when the global work size overflows a dimension.
func (s DispatchShape) CheckGlobalSize() error {
	if _, ok := s.GlobalSize(); !ok {
		return fmt.Errorf("global size of group size %s times group count %s overflows 32 bits", s.GroupSize, s.GroupCount)
	}
	return nil
}

func mul32(a, b uint32) (uint32, bool) {
	p := uint64(a) * uint64(b)
	return uint32(p), p <= math.MaxUint32
}

// ArgValue is one argument binding: a byte size plus either the value
// bytes or the null marker (null pointer or shared-local allocation).
type ArgValue struct {
	Size  int
	Bytes []byte
	Null  bool
}

// PointerArg binds a buffer argument to an address.
func PointerArg(addr uint64) ArgValue {
	b := make([]byte, PointerSize)
	binary.LittleEndian.PutUint64(b, addr)
	return ArgValue{Size: PointerSize, Bytes: b}
}

// NullPointerArg binds a buffer argument to null.
func NullPointerArg() ArgValue {
	return ArgValue{Size: PointerSize, Null: true}
}

// Uint32Arg binds a 4-byte scalar.
func Uint32Arg(v uint32) ArgValue {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return ArgValue{Size: 4, Bytes: b}
}

// LocalArg reserves size bytes of shared-local memory.
func LocalArg(size int) ArgValue {
	return ArgValue{Size: size, Null: true}
}

// Pointer decodes a buffer argument value. Null decodes as 0.
func (v ArgValue) Pointer() uint64 {
	if v.Null || len(v.Bytes) < PointerSize {
		return 0
	}
	return binary.LittleEndian.Uint64(v.Bytes)
}

// Uint32 decodes a 4-byte scalar value.
func (v ArgValue) Uint32() uint32 {
	if len(v.Bytes) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(v.Bytes)
}

// Equal reports whether two bindings are identical.
func (v ArgValue) Equal(o ArgValue) bool {
	return v.Size == o.Size && v.Null == o.Null && bytes.Equal(v.Bytes, o.Bytes)
}

// Clone returns a copy that shares no memory with v.
func (v ArgValue) Clone() ArgValue {
	c := v
	if v.Bytes != nil {
		c.Bytes = bytes.Clone(v.Bytes)
	}
	return c
}
