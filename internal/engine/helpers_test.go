package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

var (
	copyKernel = &ir.Kernel{Name: "copy", Args: []ir.ArgSpec{
		{Name: "dst", Kind: ir.ArgBuffer},
		{Name: "src", Kind: ir.ArgBuffer},
	}}
	copyLinearKernel = &ir.Kernel{Name: "copy_linear", Args: []ir.ArgSpec{
		{Name: "dst", Kind: ir.ArgBuffer},
		{Name: "src", Kind: ir.ArgBuffer},
	}, MaxGroupSize: 256}
	addKernel = &ir.Kernel{Name: "add_scalar", Args: []ir.ArgSpec{
		{Name: "dst", Kind: ir.ArgBuffer},
		{Name: "src", Kind: ir.ArgBuffer},
		{Name: "value", Kind: ir.ArgScalar, Size: 4},
	}}
	noArgKernel = &ir.Kernel{Name: "barrier"}
)

func fullCaps() CapabilityTable {
	return CapabilityTable{Device: "test", Supported: ir.AllMutations}
}

func copyLaunch(k *ir.Kernel, dst, src uint64) Launch {
	return Launch{
		Kernel: k,
		Args:   []ir.ArgValue{ir.PointerArg(dst), ir.PointerArg(src)},
		Shape:  ir.DispatchShape{GroupSize: ir.D3(32, 1, 1), GroupCount: ir.D3(2, 1, 1)},
	}
}

// recordedSwap opens a buffer with one swappable copy command and closes it.
func recordedSwap(t *testing.T, opts ...BufferOption) (*Buffer, ir.CommandID) {
	t.Helper()
	b := Open(fullCaps(), opts...)
	mask := ir.MutateKernelInstruction | ir.MutateArgumentValues | ir.MutateGroupSize | ir.MutateGroupCount
	id, err := b.RequestID(mask, copyKernel, copyLinearKernel)
	require.NoError(t, err)
	require.NoError(t, b.Record(id, copyLaunch(copyKernel, 0x2000, 0x1000)))
	require.NoError(t, b.Close())
	return b, id
}
