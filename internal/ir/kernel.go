package ir

import "fmt"

// ArgKind describes how a kernel argument is bound.
type ArgKind string

const (
	// ArgBuffer is a pointer to device-visible memory. Its value is an
	// 8-byte little-endian address, or null.
	ArgBuffer ArgKind = "buffer"

	// ArgScalar is a by-value argument of a fixed byte size.
	ArgScalar ArgKind = "scalar"

	// ArgLocal is a shared-local-memory argument. It carries only a size;
	// its value is always the null marker.
	ArgLocal ArgKind = "local"
)

// PointerSize is the byte size of a buffer argument value.
const PointerSize = 8

// ValidArgKinds defines allowed argument kinds.
var ValidArgKinds = map[ArgKind]bool{
	ArgBuffer: true,
	ArgScalar: true,
	ArgLocal:  true,
}

// ArgSpec is one parameter of a kernel signature.
type ArgSpec struct {
	Name string  `json:"name"`
	Kind ArgKind `json:"kind"`
	Size int     `json:"size,omitempty"` // scalar byte size
}

// Kernel is a kernel handle. Handles are created and destroyed outside the
// engine; the engine compares them by pointer identity and reads only the
// signature.
type Kernel struct {
	Name string    `json:"name"`
	Args []ArgSpec `json:"args"`

	// MaxGroupSize bounds the product of the group size dimensions.
	// Zero means unbounded.
	MaxGroupSize uint32 `json:"max_group_size,omitempty"`
}

// NumArgs returns the number of parameters in the kernel signature.
func (k *Kernel) NumArgs() int {
	return len(k.Args)
}

// String returns the kernel name.
func (k *Kernel) String() string {
	if k == nil {
		return "<nil>"
	}
	return k.Name
}

// CheckArg validates an argument binding against parameter index.
func (k *Kernel) CheckArg(index int, v ArgValue) error {
	if index < 0 || index >= len(k.Args) {
		return fmt.Errorf("kernel %s has %d arguments, index %d out of range", k.Name, len(k.Args), index)
	}
	spec := k.Args[index]
	switch spec.Kind {
	case ArgBuffer:
		if v.Size != PointerSize {
			return fmt.Errorf("kernel %s argument %d (%s) is a buffer: size must be %d, got %d", k.Name, index, spec.Name, PointerSize, v.Size)
		}
		if !v.Null && len(v.Bytes) != PointerSize {
			return fmt.Errorf("kernel %s argument %d (%s): value has %d bytes, want %d", k.Name, index, spec.Name, len(v.Bytes), PointerSize)
		}
	case ArgScalar:
		if v.Null {
			return fmt.Errorf("kernel %s argument %d (%s) is a scalar and cannot be null", k.Name, index, spec.Name)
		}
		if v.Size != spec.Size || len(v.Bytes) != spec.Size {
			return fmt.Errorf("kernel %s argument %d (%s): scalar size must be %d, got %d", k.Name, index, spec.Name, spec.Size, v.Size)
		}
	case ArgLocal:
		if !v.Null {
			return fmt.Errorf("kernel %s argument %d (%s) is shared-local memory and takes no value", k.Name, index, spec.Name)
		}
		if v.Size <= 0 {
			return fmt.Errorf("kernel %s argument %d (%s): shared-local size must be positive", k.Name, index, spec.Name)
		}
	default:
		return fmt.Errorf("kernel %s argument %d has unknown kind %q", k.Name, index, spec.Kind)
	}
	return nil
}

// CheckGroupSize validates a work-group size against the kernel limits.
func (k *Kernel) CheckGroupSize(size Dim3) error {
	if size.X == 0 || size.Y == 0 || size.Z == 0 {
		return fmt.Errorf("group size %s has a zero dimension", size)
	}
	if k.MaxGroupSize == 0 {
		return nil
	}
	if v, ok := size.Volume(); !ok || v > uint64(k.MaxGroupSize) {
		return fmt.Errorf("group size %s exceeds kernel %s maximum of %d work-items", size, k.Name, k.MaxGroupSize)
	}
	return nil
}
