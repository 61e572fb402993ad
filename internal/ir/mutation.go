package ir

import (
	"fmt"
	"strings"
)

// MutationFlags is a set of mutation kinds. A device reports the kinds it
// supports; a command id carries the subset it was granted.
type MutationFlags uint32

const (
	// MutateArgumentValues allows patching kernel argument bindings.
	MutateArgumentValues MutationFlags = 1 << iota
	// MutateGroupCount allows patching the number of work-groups.
	MutateGroupCount
	// MutateGroupSize allows patching the work-group size.
	MutateGroupSize
	// MutateGlobalOffset allows patching the global work offset.
	MutateGlobalOffset
	// MutateSignalEvent allows rebinding the signal event.
	MutateSignalEvent
	// MutateWaitEvents allows rebinding wait events.
	MutateWaitEvents
	// MutateKernelInstruction allows swapping the kernel within a kernel group.
	MutateKernelInstruction
)

// AllMutations is every mutation kind.
const AllMutations = MutateArgumentValues | MutateGroupCount | MutateGroupSize |
	MutateGlobalOffset | MutateSignalEvent | MutateWaitEvents | MutateKernelInstruction

// DefaultMutations is what an empty request stands for: every kind except
// kernel swapping, which always needs an explicit kernel group.
const DefaultMutations = AllMutations &^ MutateKernelInstruction

// mutationNames lists flag names in bit order.
var mutationNames = []struct {
	flag MutationFlags
	name string
}{
	{MutateArgumentValues, "ArgumentValues"},
	{MutateGroupCount, "GroupCount"},
	{MutateGroupSize, "GroupSize"},
	{MutateGlobalOffset, "GlobalOffset"},
	{MutateSignalEvent, "SignalEvent"},
	{MutateWaitEvents, "WaitEvents"},
	{MutateKernelInstruction, "KernelInstruction"},
}

// Has reports whether every flag in other is set in f.
func (f MutationFlags) Has(other MutationFlags) bool {
	return f&other == other
}

// Missing returns the flags of other that are not set in f.
func (f MutationFlags) Missing(other MutationFlags) MutationFlags {
	return other &^ f
}

// Names returns the flag names in bit order.
func (f MutationFlags) Names() []string {
	names := make([]string, 0, len(mutationNames))
	for _, m := range mutationNames {
		if f&m.flag != 0 {
			names = append(names, m.name)
		}
	}
	return names
}

// String formats flags as "A|B|C", or "None".
func (f MutationFlags) String() string {
	if f == 0 {
		return "None"
	}
	names := f.Names()
	if unknown := f &^ AllMutations; unknown != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(unknown)))
	}
	return strings.Join(names, "|")
}

// ParseMutationFlag resolves a single flag name. Matching ignores case.
func ParseMutationFlag(name string) (MutationFlags, error) {
	for _, m := range mutationNames {
		if strings.EqualFold(m.name, name) {
			return m.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown mutation kind %q", name)
}

// ParseMutationFlags resolves a list of flag names into a set.
func ParseMutationFlags(names []string) (MutationFlags, error) {
	var f MutationFlags
	for _, name := range names {
		flag, err := ParseMutationFlag(name)
		if err != nil {
			return 0, err
		}
		f |= flag
	}
	return f, nil
}
