package engine

import "github.com/intel/compute-runtime-sub069/internal/ir"

// Chain is an ordered list of patches applied as one unit.
type Chain []ir.Patch

// ChainBuilder builds a Chain fluently.
//
//	chain := engine.NewChain().
//		SwapKernel(id, copyLinear).
//		SetArg(id, 0, ir.PointerArg(dst)).
//		SetGroupSize(id, ir.D3(64, 1, 1)).
//		Build()
type ChainBuilder struct {
	patches Chain
}

// NewChain starts an empty chain.
func NewChain() *ChainBuilder {
	return &ChainBuilder{}
}

// Add appends arbitrary patches.
func (c *ChainBuilder) Add(p ...ir.Patch) *ChainBuilder {
	c.patches = append(c.patches, p...)
	return c
}

func (c *ChainBuilder) SwapKernel(id ir.CommandID, k *ir.Kernel) *ChainBuilder {
	return c.Add(ir.KernelSwap{Command: id, Kernel: k})
}

func (c *ChainBuilder) SetArg(id ir.CommandID, index int, v ir.ArgValue) *ChainBuilder {
	return c.Add(ir.ArgumentPatch{Command: id, Index: index, Value: v})
}

func (c *ChainBuilder) SetGroupCount(id ir.CommandID, count ir.Dim3) *ChainBuilder {
	return c.Add(ir.GroupCountPatch{Command: id, Count: count})
}

func (c *ChainBuilder) SetGroupSize(id ir.CommandID, size ir.Dim3) *ChainBuilder {
	return c.Add(ir.GroupSizePatch{Command: id, Size: size})
}

func (c *ChainBuilder) SetGlobalOffset(id ir.CommandID, offset ir.Dim3) *ChainBuilder {
	return c.Add(ir.GlobalOffsetPatch{Command: id, Offset: offset})
}

func (c *ChainBuilder) SetSignalEvent(id ir.CommandID, e ir.EventRef) *ChainBuilder {
	return c.Add(ir.SignalEventPatch{Command: id, Event: e})
}

func (c *ChainBuilder) SetWaitEvents(id ir.CommandID, events ...ir.EventRef) *ChainBuilder {
	return c.Add(ir.WaitEventsPatch{Command: id, Events: append([]ir.EventRef(nil), events...)})
}

// Build returns the chain. The builder may keep being used; later calls do
// not alter a chain already built.
func (c *ChainBuilder) Build() Chain {
	return append(Chain(nil), c.patches...)
}

// Payload describes the chain as a journal payload.
func (ch Chain) Payload() ir.Object {
	arr := make(ir.Array, len(ch))
	for i, p := range ch {
		arr[i] = ir.PatchPayload(p)
	}
	return ir.Object{"patches": arr}
}
