package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateKernel(t *testing.T) {
	tests := []struct {
		name   string
		kernel *ir.Kernel
		want   []string
	}{
		{"valid", &ir.Kernel{Name: "k", Args: []ir.ArgSpec{{Name: "a", Kind: ir.ArgBuffer}}}, []string{}},
		{"no name", &ir.Kernel{}, []string{ErrKernelNameEmpty}},
		{"bad kind", &ir.Kernel{Name: "k", Args: []ir.ArgSpec{{Name: "a", Kind: "image"}}}, []string{ErrInvalidArgKind}},
		{"scalar without size", &ir.Kernel{Name: "k", Args: []ir.ArgSpec{{Name: "a", Kind: ir.ArgScalar}}}, []string{ErrScalarSize}},
		{"buffer wrong size", &ir.Kernel{Name: "k", Args: []ir.ArgSpec{{Name: "a", Kind: ir.ArgBuffer, Size: 4}}}, []string{ErrBufferSize}},
		{"sized local", &ir.Kernel{Name: "k", Args: []ir.ArgSpec{{Name: "a", Kind: ir.ArgLocal, Size: 64}}}, []string{ErrLocalSizeForbidden}},
		{"duplicate", &ir.Kernel{Name: "k", Args: []ir.ArgSpec{
			{Name: "a", Kind: ir.ArgBuffer}, {Name: "a", Kind: ir.ArgBuffer},
		}}, []string{ErrDuplicateArg}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.kernel)))
		})
	}
}

func TestValidateDevice(t *testing.T) {
	errs := Validate(engine.CapabilityTable{Device: "none"})
	assert.Equal(t, []string{ErrDeviceNoMutations}, codes(errs))
	assert.False(t, HasErrors(errs), "an empty mask is only a warning")

	errs = Validate(engine.CapabilityTable{Supported: ir.AllMutations})
	assert.True(t, HasErrors(errs))
}

func TestValidateCatalog_Empty(t *testing.T) {
	errs := Validate(&Catalog{})
	assert.ElementsMatch(t, []string{ErrCatalogNoKernels, ErrCatalogNoDevices}, codes(errs))
}

func TestValidateBodies(t *testing.T) {
	cat := &Catalog{Kernels: []*ir.Kernel{{Name: "copy"}, {Name: "fft"}}}
	errs := ValidateBodies(cat, func(name string) bool { return name == "copy" })
	assert.Equal(t, []string{ErrUnknownKernelBody}, codes(errs))
	assert.True(t, errs[0].IsWarning())
}

func TestValidateUnsupportedType(t *testing.T) {
	assert.Equal(t, []string{ErrUnsupportedType}, codes(Validate(42)))
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "kernel.k", Message: "boom", Code: "E101"}
	assert.Equal(t, "[E101] kernel.k: boom", e.Error())
}
