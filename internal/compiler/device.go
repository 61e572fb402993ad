package compiler

import (
	"cuelang.org/go/cue"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// CompileDevice parses a device profile into a capability table.
//
//	device: gen12: {
//		mutations: ["ArgumentValues", "GroupCount", "GroupSize", "KernelInstruction"]
//	}
func CompileDevice(v cue.Value) (engine.CapabilityTable, error) {
	caps := engine.CapabilityTable{Device: labelOf(v)}
	if err := v.Err(); err != nil {
		return caps, formatCUEError(err)
	}

	mv := v.LookupPath(cue.ParsePath("mutations"))
	if !mv.Exists() {
		return caps, &CompileError{Field: "mutations", Message: "mutations is required (use [] for none)", Pos: v.Pos()}
	}
	var names []string
	if err := mv.Decode(&names); err != nil {
		return caps, formatCUEError(err)
	}
	flags, err := ir.ParseMutationFlags(names)
	if err != nil {
		return caps, &CompileError{Field: "mutations", Message: err.Error(), Pos: mv.Pos()}
	}
	caps.Supported = flags
	return caps, nil
}
