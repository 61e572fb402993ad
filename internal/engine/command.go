package engine

import (
	"slices"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// Launch is a kernel launch as handed to Record or Append.
type Launch struct {
	Kernel *ir.Kernel

	// Args binds every parameter of the kernel signature, in order.
	Args []ir.ArgValue

	Shape  ir.DispatchShape
	Offset ir.Dim3

	// Signal is the event signaled on completion, or empty.
	Signal ir.EventRef

	// Wait lists the events that must be signaled before the launch runs.
	Wait []ir.EventRef
}

// Command is a recorded launch. Buffers hand out copies; mutating a copy
// has no effect on the buffer.
type Command struct {
	// ID is zero for launches appended without a command id.
	ID    ir.CommandID
	Grant Grant

	Kernel *ir.Kernel
	Args   []ir.ArgValue
	Shape  ir.DispatchShape
	Offset ir.Dim3
	Signal ir.EventRef
	Wait   []ir.EventRef

	// argSet marks which Args are bound for the current kernel.
	argSet []bool

	// pending holds the shape kinds still to be resupplied after a swap.
	pending ir.MutationFlags

	valid bool
}

func newCommand(id ir.CommandID, grant Grant, l Launch) *Command {
	c := &Command{
		ID:     id,
		Grant:  grant,
		Kernel: l.Kernel,
		Args:   make([]ir.ArgValue, len(l.Args)),
		argSet: make([]bool, len(l.Args)),
		Shape:  l.Shape,
		Offset: l.Offset,
		Signal: l.Signal,
		Wait:   slices.Clone(l.Wait),
	}
	for i, a := range l.Args {
		c.Args[i] = a.Clone()
		c.argSet[i] = true
	}
	c.refresh()
	return c
}

// Valid reports whether the command has every argument of its current
// kernel bound and no outstanding shape components.
func (c *Command) Valid() bool {
	return c.valid
}

// Mutable reports whether the command was recorded with a command id.
func (c *Command) Mutable() bool {
	return c.ID != 0
}

// Missing returns the indexes of unbound arguments.
func (c *Command) Missing() []int {
	var out []int
	for i, set := range c.argSet {
		if !set {
			out = append(out, i)
		}
	}
	return out
}

// PendingShape returns the shape kinds that must be resupplied.
func (c *Command) PendingShape() ir.MutationFlags {
	return c.pending
}

func (c *Command) refresh() {
	c.valid = c.pending == 0 && !slices.Contains(c.argSet, false)
}

// clone deep-copies the command so patches can be staged on it.
func (c *Command) clone() *Command {
	cp := *c
	cp.Args = make([]ir.ArgValue, len(c.Args))
	for i, a := range c.Args {
		cp.Args[i] = a.Clone()
	}
	cp.argSet = slices.Clone(c.argSet)
	cp.Wait = slices.Clone(c.Wait)
	cp.Grant.Group = slices.Clone(c.Grant.Group)
	return &cp
}

// swapKernel installs k and drops every binding of the previous kernel.
func (c *Command) swapKernel(k *ir.Kernel) {
	c.Kernel = k
	c.Args = make([]ir.ArgValue, k.NumArgs())
	c.argSet = make([]bool, k.NumArgs())
	c.pending = c.Grant.Mask & (ir.MutateGroupCount | ir.MutateGroupSize)
	if c.Grant.Mask.Has(ir.MutateGlobalOffset) {
		c.Offset = ir.Dim3{}
	}
	c.valid = false
}

func (c *Command) payload() ir.Object {
	args := make(ir.Array, len(c.Args))
	for i, a := range c.Args {
		args[i] = ir.ArgPayload(a)
	}
	return ir.Object{
		"kernel":      ir.String(c.Kernel.String()),
		"args":        args,
		"group_size":  ir.DimPayload(c.Shape.GroupSize),
		"group_count": ir.DimPayload(c.Shape.GroupCount),
		"offset":      ir.DimPayload(c.Offset),
		"signal":      ir.String(c.Signal),
		"wait":        ir.EventsPayload(c.Wait),
	}
}
