package ir

// PatchKind names a mutation descriptor kind.
type PatchKind string

const (
	PatchKernelSwap   PatchKind = "kernel_swap"
	PatchArgument     PatchKind = "argument"
	PatchGroupCount   PatchKind = "group_count"
	PatchGroupSize    PatchKind = "group_size"
	PatchGlobalOffset PatchKind = "global_offset"
	PatchSignalEvent  PatchKind = "signal_event"
	PatchWaitEvents   PatchKind = "wait_events"
)

// Patch is one mutation descriptor addressed to a command id.
// The interface is sealed; the seven types below are the only patches.
type Patch interface {
	Target() CommandID
	Kind() PatchKind
	// Requires is the mutation kind the target must have been granted.
	Requires() MutationFlags
	patch()
}

// KernelSwap replaces the current kernel of a command with another member
// of its kernel group.
type KernelSwap struct {
	Command CommandID
	Kernel  *Kernel
}

// ArgumentPatch rebinds one kernel argument.
type ArgumentPatch struct {
	Command CommandID
	Index   int
	Value   ArgValue
}

// GroupCountPatch sets the number of work-groups.
type GroupCountPatch struct {
	Command CommandID
	Count   Dim3
}

// GroupSizePatch sets the work-group size.
type GroupSizePatch struct {
	Command CommandID
	Size    Dim3
}

// GlobalOffsetPatch sets the global work offset.
type GlobalOffsetPatch struct {
	Command CommandID
	Offset  Dim3
}

// SignalEventPatch rebinds the event a command signals on completion.
type SignalEventPatch struct {
	Command CommandID
	Event   EventRef
}

// WaitEventsPatch rebinds the events a command waits on. Events are
// rebound positionally, starting at the first recorded slot.
type WaitEventsPatch struct {
	Command CommandID
	Events  []EventRef
}

func (p KernelSwap) Target() CommandID        { return p.Command }
func (p ArgumentPatch) Target() CommandID     { return p.Command }
func (p GroupCountPatch) Target() CommandID   { return p.Command }
func (p GroupSizePatch) Target() CommandID    { return p.Command }
func (p GlobalOffsetPatch) Target() CommandID { return p.Command }
func (p SignalEventPatch) Target() CommandID  { return p.Command }
func (p WaitEventsPatch) Target() CommandID   { return p.Command }

func (KernelSwap) Kind() PatchKind        { return PatchKernelSwap }
func (ArgumentPatch) Kind() PatchKind     { return PatchArgument }
func (GroupCountPatch) Kind() PatchKind   { return PatchGroupCount }
func (GroupSizePatch) Kind() PatchKind    { return PatchGroupSize }
func (GlobalOffsetPatch) Kind() PatchKind { return PatchGlobalOffset }
func (SignalEventPatch) Kind() PatchKind  { return PatchSignalEvent }
func (WaitEventsPatch) Kind() PatchKind   { return PatchWaitEvents }

func (KernelSwap) Requires() MutationFlags        { return MutateKernelInstruction }
func (ArgumentPatch) Requires() MutationFlags     { return MutateArgumentValues }
func (GroupCountPatch) Requires() MutationFlags   { return MutateGroupCount }
func (GroupSizePatch) Requires() MutationFlags    { return MutateGroupSize }
func (GlobalOffsetPatch) Requires() MutationFlags { return MutateGlobalOffset }
func (SignalEventPatch) Requires() MutationFlags  { return MutateSignalEvent }
func (WaitEventsPatch) Requires() MutationFlags   { return MutateWaitEvents }

func (KernelSwap) patch()        {}
func (ArgumentPatch) patch()     {}
func (GroupCountPatch) patch()   {}
func (GroupSizePatch) patch()    {}
func (GlobalOffsetPatch) patch() {}
func (SignalEventPatch) patch()  {}
func (WaitEventsPatch) patch()   {}

// PatchPayload describes a patch as a journal payload.
func PatchPayload(p Patch) Object {
	obj := Object{
		"kind":    String(p.Kind()),
		"command": Int(p.Target()),
	}
	switch v := p.(type) {
	case KernelSwap:
		obj["kernel"] = String(v.Kernel.String())
	case ArgumentPatch:
		obj["index"] = Int(v.Index)
		obj["value"] = ArgPayload(v.Value)
	case GroupCountPatch:
		obj["count"] = DimPayload(v.Count)
	case GroupSizePatch:
		obj["size"] = DimPayload(v.Size)
	case GlobalOffsetPatch:
		obj["offset"] = DimPayload(v.Offset)
	case SignalEventPatch:
		obj["event"] = String(v.Event)
	case WaitEventsPatch:
		obj["events"] = EventsPayload(v.Events)
	}
	return obj
}

// DimPayload encodes a Dim3 as [x,y,z].
func DimPayload(d Dim3) Array {
	return Array{Int(d.X), Int(d.Y), Int(d.Z)}
}

// ArgPayload encodes an argument binding.
func ArgPayload(v ArgValue) Object {
	obj := Object{"size": Int(v.Size), "null": Bool(v.Null)}
	if !v.Null {
		obj["bytes"] = String(hexString(v.Bytes))
	}
	return obj
}

// EventsPayload encodes an ordered event list.
func EventsPayload(events []EventRef) Array {
	arr := make(Array, len(events))
	for i, e := range events {
		arr[i] = String(e)
	}
	return arr
}

func hexString(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}
