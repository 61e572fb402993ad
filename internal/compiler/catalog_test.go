package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

func TestLoadCatalog(t *testing.T) {
	cat, errs := LoadCatalog("../../catalog", LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, cat)
	assert.Equal(t, 2, cat.FileCount)

	names := make([]string, len(cat.Kernels))
	for i, k := range cat.Kernels {
		names[i] = k.Name
	}
	assert.Equal(t, []string{
		"add_scalar", "add_scalar_linear", "copy", "copy_linear",
		"fill_global_id", "mul_scalar", "reverse_local",
	}, names)

	add, ok := cat.Kernel("add_scalar")
	require.True(t, ok)
	assert.Equal(t, ir.ArgSpec{Name: "value", Kind: ir.ArgScalar, Size: 4}, add.Args[2])
	assert.Equal(t, uint32(1024), add.MaxGroupSize)

	full, ok := cat.Device("full")
	require.True(t, ok)
	assert.Equal(t, ir.AllMutations, full.Supported)

	noSwap, ok := cat.Device("no_kernel_swap")
	require.True(t, ok)
	assert.Equal(t, ir.DefaultMutations, noSwap.Supported)

	_, ok = cat.Device("missing")
	assert.False(t, ok)

	assert.False(t, HasErrors(Validate(cat)))
}

func TestLoadCatalog_SchemaViolation(t *testing.T) {
	_, errs := LoadCatalog("testdata/bad_kind", LoadModeCollectAll)
	require.Len(t, errs, 1)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, ErrCodeSchema, le.Code)
	assert.True(t, le.Pos.IsValid(), "schema errors carry a CUE position")
}

func TestLoadCatalog_UnknownMutation(t *testing.T) {
	_, errs := LoadCatalog("testdata/bad_mutation", LoadModeCollectAll)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "E007")
}

func TestLoadCatalog_NotFound(t *testing.T) {
	_, errs := LoadCatalog("testdata/does-not-exist", LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNotFound)

	_, errs = LoadCatalog("testdata/empty", LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoFiles)
}

func TestCompileKernel(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kernel: scale: {
			args: [
				{name: "dst", kind: "buffer"},
				{name: "factor", kind: "scalar", size: 4},
				{name: "tmp", kind: "local"},
			]
			max_group_size: 64
		}
	`)
	require.NoError(t, v.Err())

	k, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.scale")))
	require.NoError(t, err)
	assert.Equal(t, "scale", k.Name)
	assert.Len(t, k.Args, 3)
	assert.Equal(t, ir.ArgLocal, k.Args[2].Kind)
	assert.Equal(t, uint32(64), k.MaxGroupSize)
}

func TestCompileKernel_MissingArgs(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`kernel: bare: {max_group_size: 8}`)
	_, err := CompileKernel(v.LookupPath(cue.ParsePath("kernel.bare")))

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "args", ce.Field)
}

func TestCompileDevice(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`device: gen: mutations: ["GroupSize", "KernelInstruction"]`)
	caps, err := CompileDevice(v.LookupPath(cue.ParsePath("device.gen")))
	require.NoError(t, err)
	assert.Equal(t, "gen", caps.Device)
	assert.Equal(t, ir.MutateGroupSize|ir.MutateKernelInstruction, caps.Supported)

	v = ctx.CompileString(`device: odd: mutations: ["Warp"]`)
	_, err = CompileDevice(v.LookupPath(cue.ParsePath("device.odd")))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "mutations", ce.Field)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "args", Message: "bad"}
	assert.Equal(t, "args: bad", err.Error())
}
