package compiler

import (
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType = "E100" // unsupported type for validation

	// Kernel errors (E101-E109)
	ErrKernelNameEmpty    = "E101" // kernel name is required
	ErrInvalidArgKind     = "E102" // argument kind is not buffer, scalar or local
	ErrScalarSize         = "E103" // scalar argument needs a positive size
	ErrDuplicateArg       = "E104" // argument name used twice
	ErrBufferSize         = "E105" // buffer argument declares a size other than 8
	ErrUnknownKernelBody  = "E106" // no device body for the kernel
	ErrLocalSizeForbidden = "E107" // local argument declares a size

	// Device errors (E110-E119)
	ErrDeviceNameEmpty   = "E110" // device name is required
	ErrDeviceNoMutations = "E111" // device supports no mutation kinds

	// Catalog errors (E120-E129)
	ErrCatalogNoKernels = "E120" // catalog declares no kernels
	ErrCatalogNoDevices = "E121" // catalog declares no devices
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	// Level is "error" or "warning". Warnings do not fail validation.
	Level string `json:"level"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the finding is advisory.
func (e ValidationError) IsWarning() bool {
	return e.Level == "warning"
}

// Validate checks compiled kernels, device profiles and catalogs.
// Returns all findings (does not fail-fast).
func Validate(v any) []ValidationError {
	switch val := v.(type) {
	case *ir.Kernel:
		return validateKernel(val)
	case engine.CapabilityTable:
		return validateDevice(val)
	case *Catalog:
		return validateCatalog(val)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
			Level:   "error",
		}}
	}
}

func validateKernel(k *ir.Kernel) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Level:   "error",
		})
	}

	if k.Name == "" {
		add("kernel", ErrKernelNameEmpty, "kernel name is required")
	}
	seen := make(map[string]bool)
	for i, a := range k.Args {
		field := fmt.Sprintf("kernel.%s.args[%d]", k.Name, i)
		if seen[a.Name] {
			add(field, ErrDuplicateArg, "argument name %q used twice", a.Name)
		}
		seen[a.Name] = true

		switch a.Kind {
		case ir.ArgScalar:
			if a.Size <= 0 {
				add(field, ErrScalarSize, "scalar argument %q needs a positive size", a.Name)
			}
		case ir.ArgBuffer:
			if a.Size != 0 && a.Size != ir.PointerSize {
				add(field, ErrBufferSize, "buffer argument %q is %d bytes wide, got size %d", a.Name, ir.PointerSize, a.Size)
			}
		case ir.ArgLocal:
			if a.Size != 0 {
				add(field, ErrLocalSizeForbidden, "local argument %q is sized at launch, not in the signature", a.Name)
			}
		default:
			add(field, ErrInvalidArgKind, "argument %q has invalid kind %q", a.Name, a.Kind)
		}
	}
	return errs
}

func validateDevice(c engine.CapabilityTable) []ValidationError {
	var errs []ValidationError
	if c.Device == "" {
		errs = append(errs, ValidationError{Field: "device", Message: "device name is required", Code: ErrDeviceNameEmpty, Level: "error"})
	}
	if c.Supported == 0 {
		errs = append(errs, ValidationError{
			Field:   "device." + c.Device + ".mutations",
			Message: "device supports no mutation kinds; every mutable command id request will fail",
			Code:    ErrDeviceNoMutations,
			Level:   "warning",
		})
	}
	return errs
}

func validateCatalog(c *Catalog) []ValidationError {
	var errs []ValidationError
	if len(c.Kernels) == 0 {
		errs = append(errs, ValidationError{Field: "kernel", Message: "catalog declares no kernels", Code: ErrCatalogNoKernels, Level: "error"})
	}
	if len(c.Devices) == 0 {
		errs = append(errs, ValidationError{Field: "device", Message: "catalog declares no devices", Code: ErrCatalogNoDevices, Level: "error"})
	}
	for _, k := range c.Kernels {
		errs = append(errs, validateKernel(k)...)
	}
	for _, d := range c.Devices {
		errs = append(errs, validateDevice(d)...)
	}
	return errs
}

// ValidateBodies reports kernels that the given body lookup cannot run.
// These are warnings: a catalog may describe kernels for other devices.
func ValidateBodies(c *Catalog, hasBody func(name string) bool) []ValidationError {
	var errs []ValidationError
	for _, k := range c.Kernels {
		if !hasBody(k.Name) {
			errs = append(errs, ValidationError{
				Field:   "kernel." + k.Name,
				Message: fmt.Sprintf("no device body for kernel %s", k.Name),
				Code:    ErrUnknownKernelBody,
				Level:   "warning",
			})
		}
	}
	return errs
}

// HasErrors reports whether any finding is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.IsWarning() {
			return true
		}
	}
	return false
}
