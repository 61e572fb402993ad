package device

import (
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// WorkItem identifies one work-item of a launch.
type WorkItem struct {
	// Global is the work-item's global id, offset included.
	Global ir.Dim3
	// Local is the id within the work-group.
	Local ir.Dim3
	// Group is the work-group id.
	Group ir.Dim3
	// Index is the linear global index used to address uint32 elements.
	Index uint64
	// LocalIndex is the linear id within the work-group.
	LocalIndex uint64
}

// Launch is everything a kernel body sees.
type Launch struct {
	Kernel *ir.Kernel
	Args   []ir.ArgValue
	Shape  ir.DispatchShape
	Offset ir.Dim3
	Mem    *Memory
}

// Body runs a kernel over a whole launch.
type Body func(l *Launch) error

func (l *Launch) buffer(i int) (view, error) {
	if i >= len(l.Args) {
		return view{}, fmt.Errorf("argument %d not bound", i)
	}
	a := l.Args[i]
	if a.Null {
		return view{}, fmt.Errorf("argument %d is a null pointer", i)
	}
	return l.Mem.view(a.Pointer())
}

func (l *Launch) scalar(i int) uint32 {
	return l.Args[i].Uint32()
}

// items calls fn for every work-item in group order.
//
// The linear index is x + y*W + z*W*H where W and H are the global extent
// plus offset, so an offset in X shifts the addressed elements.
func (l *Launch) items(fn func(WorkItem) error) error {
	gs, gc, off := l.Shape.GroupSize, l.Shape.GroupCount, l.Offset
	w := uint64(gs.X)*uint64(gc.X) + uint64(off.X)
	h := uint64(gs.Y)*uint64(gc.Y) + uint64(off.Y)
	for gz := uint32(0); gz < gc.Z; gz++ {
		for gy := uint32(0); gy < gc.Y; gy++ {
			for gx := uint32(0); gx < gc.X; gx++ {
				for lz := uint32(0); lz < gs.Z; lz++ {
					for ly := uint32(0); ly < gs.Y; ly++ {
						for lx := uint32(0); lx < gs.X; lx++ {
							g := ir.D3(off.X+gx*gs.X+lx, off.Y+gy*gs.Y+ly, off.Z+gz*gs.Z+lz)
							wi := WorkItem{
								Global:     g,
								Local:      ir.D3(lx, ly, lz),
								Group:      ir.D3(gx, gy, gz),
								Index:      uint64(g.X) + uint64(g.Y)*w + uint64(g.Z)*w*h,
								LocalIndex: uint64(lx) + uint64(ly)*uint64(gs.X) + uint64(lz)*uint64(gs.X)*uint64(gs.Y),
							}
							if err := fn(wi); err != nil {
								return err
							}
						}
					}
				}
			}
		}
	}
	return nil
}

// elementwise builds a body computing dst[i] = f(src[i], scalar) where the
// scalar is argument 2 when the kernel has one.
func elementwise(f func(x, s uint32) uint32) Body {
	return func(l *Launch) error {
		dst, err := l.buffer(0)
		if err != nil {
			return err
		}
		src, err := l.buffer(1)
		if err != nil {
			return err
		}
		var s uint32
		if len(l.Args) > 2 {
			s = l.scalar(2)
		}
		return l.items(func(wi WorkItem) error {
			x, err := src.get(wi.Index)
			if err != nil {
				return err
			}
			return dst.set(wi.Index, f(x, s))
		})
	}
}

func fillGlobalID(l *Launch) error {
	dst, err := l.buffer(0)
	if err != nil {
		return err
	}
	return l.items(func(wi WorkItem) error {
		return dst.set(wi.Index, uint32(wi.Index))
	})
}

// reverseLocal reverses src within each work-group through shared-local
// scratch. The scratch argument must hold one uint32 per work-item.
func reverseLocal(l *Launch) error {
	dst, err := l.buffer(0)
	if err != nil {
		return err
	}
	src, err := l.buffer(1)
	if err != nil {
		return err
	}
	groupItems, ok := l.Shape.GroupSize.Volume()
	if !ok || groupItems > uint64(l.Args[2].Size)/4 {
		return fmt.Errorf("shared-local scratch of %d bytes cannot hold a %s work-group", l.Args[2].Size, l.Shape.GroupSize)
	}
	scratch := make(map[ir.Dim3][]uint32)
	err = l.items(func(wi WorkItem) error {
		x, err := src.get(wi.Index)
		if err != nil {
			return err
		}
		s, ok := scratch[wi.Group]
		if !ok {
			s = make([]uint32, groupItems)
			scratch[wi.Group] = s
		}
		s[wi.LocalIndex] = x
		return nil
	})
	if err != nil {
		return err
	}
	return l.items(func(wi WorkItem) error {
		s := scratch[wi.Group]
		return dst.set(wi.Index, s[groupItems-1-wi.LocalIndex])
	})
}

// Builtins returns the kernel bodies every device starts with, keyed by
// kernel name.
func Builtins() map[string]Body {
	identity := func(x, _ uint32) uint32 { return x }
	add := func(x, s uint32) uint32 { return x + s }
	return map[string]Body{
		"copy":              elementwise(identity),
		"copy_linear":       elementwise(identity),
		"add_scalar":        elementwise(add),
		"add_scalar_linear": elementwise(add),
		"mul_scalar":        elementwise(func(x, s uint32) uint32 { return x * s }),
		"fill_global_id":    fillGlobalID,
		"reverse_local":     reverseLocal,
	}
}
