package compiler

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// LoadMode controls how errors are handled during catalog loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Catalog is the compiled set of kernel signatures and device profiles.
// Kernels and devices are sorted by name.
type Catalog struct {
	Kernels   []*ir.Kernel
	Devices   []engine.CapabilityTable
	FileCount int
}

// Kernel returns the kernel with the given name.
func (c *Catalog) Kernel(name string) (*ir.Kernel, bool) {
	for _, k := range c.Kernels {
		if k.Name == name {
			return k, true
		}
	}
	return nil, false
}

// Device returns the device profile with the given name.
func (c *Catalog) Device(name string) (engine.CapabilityTable, bool) {
	for _, d := range c.Devices {
		if d.Device == name {
			return d, true
		}
	}
	return engine.CapabilityTable{}, false
}

// Error codes for catalog loading.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeSchema       = "E007" // Catalog does not match the schema
	ErrCodeKernelArgs   = "E008" // Kernel arguments malformed
	ErrCodeDeviceMasks  = "E009" // Device mutations malformed
	ErrCodeEmptyCatalog = "E010" // No kernels or devices
)

// LoadError is an error raised while loading a catalog directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCatalog loads and compiles every .cue file in dir as one CUE
// instance, unified with the embedded catalog schema.
func LoadCatalog(dir string, mode LoadMode) (*Catalog, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	cat, errs := CompileCatalog(value, mode)
	if cat != nil {
		cat.FileCount = len(files)
	}
	return cat, errs
}

// CompileCatalog checks v against the catalog schema and compiles its
// kernel and device blocks.
func CompileCatalog(v cue.Value, mode LoadMode) (*Catalog, []error) {
	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("catalog schema: %v", err)}}
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, []error{convertCompileError(formatCUEError(err), ErrCodeSchema, "schema")}
	}

	cat := &Catalog{}
	var errs []error

	if kv := unified.LookupPath(cue.ParsePath("kernel")); kv.Exists() {
		iter, err := kv.Fields()
		if err != nil {
			return cat, append(errs, convertCompileError(formatCUEError(err), ErrCodeKernelArgs, "kernel"))
		}
		for iter.Next() {
			k, err := CompileKernel(iter.Value())
			if err != nil {
				errs = append(errs, convertCompileError(err, ErrCodeKernelArgs, "kernel."+iter.Selector().String()))
				if mode == LoadModeFailFast {
					return cat, errs
				}
				continue
			}
			cat.Kernels = append(cat.Kernels, k)
		}
	}

	if dv := unified.LookupPath(cue.ParsePath("device")); dv.Exists() {
		iter, err := dv.Fields()
		if err != nil {
			return cat, append(errs, convertCompileError(formatCUEError(err), ErrCodeDeviceMasks, "device"))
		}
		for iter.Next() {
			d, err := CompileDevice(iter.Value())
			if err != nil {
				errs = append(errs, convertCompileError(err, ErrCodeDeviceMasks, "device."+iter.Selector().String()))
				if mode == LoadModeFailFast {
					return cat, errs
				}
				continue
			}
			cat.Devices = append(cat.Devices, d)
		}
	}

	sort.Slice(cat.Kernels, func(i, j int) bool { return cat.Kernels[i].Name < cat.Kernels[j].Name })
	sort.Slice(cat.Devices, func(i, j int) bool { return cat.Devices[i].Device < cat.Devices[j].Device })

	if len(cat.Kernels) == 0 && len(cat.Devices) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeEmptyCatalog, Message: "no kernels or devices found in catalog"})
	}
	return cat, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with
// position info.
func convertCompileError(err error, code, context string) *LoadError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return &LoadError{Code: code, Message: ce.Field + ": " + ce.Message, Pos: ce.Pos}
	}
	return &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
}
