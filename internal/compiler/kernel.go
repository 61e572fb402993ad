package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// CompileKernel parses a CUE value into a kernel signature.
//
// The value is the kernel struct itself:
//
//	kernel: add_scalar: {
//		args: [
//			{name: "dst", kind: "buffer"},
//			{name: "src", kind: "buffer"},
//			{name: "value", kind: "scalar", size: 4},
//		]
//		max_group_size: 1024
//	}
func CompileKernel(v cue.Value) (*ir.Kernel, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	k := &ir.Kernel{Name: labelOf(v)}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if !argsVal.Exists() {
		return nil, &CompileError{Field: "args", Message: "args is required (use [] for none)", Pos: v.Pos()}
	}
	iter, err := argsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		arg, err := parseArg(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		k.Args = append(k.Args, arg)
	}

	if mg := v.LookupPath(cue.ParsePath("max_group_size")); mg.Exists() {
		n, err := mg.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if n < 0 || n > int64(^uint32(0)) {
			return nil, &CompileError{Field: "max_group_size", Message: fmt.Sprintf("out of range: %d", n), Pos: mg.Pos()}
		}
		k.MaxGroupSize = uint32(n)
	}

	return k, nil
}

func parseArg(v cue.Value, index int) (ir.ArgSpec, error) {
	var arg ir.ArgSpec

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return arg, &CompileError{Field: "args.name", Message: fmt.Sprintf("argument %d has no name", index), Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return arg, formatCUEError(err)
	}
	arg.Name = name

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return arg, &CompileError{Field: "args.kind", Message: fmt.Sprintf("argument %s has no kind", name), Pos: v.Pos()}
	}
	kind, err := kindVal.String()
	if err != nil {
		return arg, formatCUEError(err)
	}
	arg.Kind = ir.ArgKind(kind)

	if sizeVal := v.LookupPath(cue.ParsePath("size")); sizeVal.Exists() {
		n, err := sizeVal.Int64()
		if err != nil {
			return arg, formatCUEError(err)
		}
		arg.Size = int(n)
	}
	return arg, nil
}

func labelOf(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return strings.Trim(sels[len(sels)-1].String(), `"`)
}
