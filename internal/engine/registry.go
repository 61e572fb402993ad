package engine

import (
	"fmt"
	"slices"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// Grant is an issued command id together with what it was granted.
type Grant struct {
	ID   ir.CommandID
	Mask ir.MutationFlags

	// Group is the kernel group, empty unless Mask has KernelInstruction.
	Group []*ir.Kernel
}

// HasKernelInstruction reports whether the id may have its kernel swapped.
func (g Grant) HasKernelInstruction() bool {
	return g.Mask.Has(ir.MutateKernelInstruction)
}

// InGroup reports whether k is a member of the kernel group.
func (g Grant) InGroup(k *ir.Kernel) bool {
	for _, member := range g.Group {
		if member == k {
			return true
		}
	}
	return false
}

// Registry issues command ids for one buffer. Ids start at 1 and strictly
// increase; they are never reused.
type Registry struct {
	caps    CapabilityTable
	clock   *Clock
	entries map[ir.CommandID]*Grant
}

// NewRegistry creates an empty registry bound to a capability table.
func NewRegistry(caps CapabilityTable) *Registry {
	return &Registry{
		caps:    caps,
		clock:   NewClock(),
		entries: make(map[ir.CommandID]*Grant),
	}
}

// Request validates the mask and kernel group and issues a fresh id.
// Nothing is issued when validation fails.
func (r *Registry) Request(mask ir.MutationFlags, group []*ir.Kernel) (Grant, error) {
	granted, err := r.caps.Grant(mask)
	if err != nil {
		return Grant{}, err
	}

	ki := granted.Has(ir.MutateKernelInstruction)
	switch {
	case len(group) > 0 && !ki:
		return Grant{}, newError(ErrCodeInvalidKernelGroup, 0,
			"kernel group supplied without KernelInstruction in the mask")
	case len(group) == 0 && ki:
		return Grant{}, newError(ErrCodeInvalidKernelGroup, 0,
			"KernelInstruction requested without a kernel group")
	case ki:
		if err := checkGroup(group); err != nil {
			return Grant{}, err
		}
	}

	g := &Grant{
		ID:    ir.CommandID(r.clock.Next()),
		Mask:  granted,
		Group: slices.Clone(group),
	}
	r.entries[g.ID] = g
	cp := *g
	cp.Group = slices.Clone(g.Group)
	return cp, nil
}

func checkGroup(group []*ir.Kernel) error {
	seen := make(map[*ir.Kernel]bool, len(group))
	for i, k := range group {
		if k == nil {
			return newError(ErrCodeInvalidKernelGroup, 0, "kernel group entry %d is nil", i).
				withDetail("index", fmt.Sprint(i))
		}
		if seen[k] {
			return newError(ErrCodeInvalidKernelGroup, 0, "kernel %s appears twice in the group", k.Name)
		}
		seen[k] = true
	}
	if len(seen) < 2 {
		return newError(ErrCodeInvalidKernelGroup, 0,
			"kernel group needs at least 2 distinct kernels, got %d", len(seen))
	}
	return nil
}

// Lookup returns the grant for id.
func (r *Registry) Lookup(id ir.CommandID) (Grant, bool) {
	g, ok := r.entries[id]
	if !ok {
		return Grant{}, false
	}
	cp := *g
	cp.Group = slices.Clone(g.Group)
	return cp, true
}

// Issued returns the number of ids issued so far.
func (r *Registry) Issued() int {
	return len(r.entries)
}
