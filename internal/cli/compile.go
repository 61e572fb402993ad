package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/intel/compute-runtime-sub069/internal/compiler"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// ErrCodeWriteFailed is reported when the output file cannot be written.
const ErrCodeWriteFailed = "E011"

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompilationStats summarizes a compiled catalog.
type CompilationStats struct {
	Kernels int    `json:"kernels"`
	Devices int    `json:"devices"`
	Args    int    `json:"args"`
	Files   int    `json:"files"`
	Bytes   int    `json:"bytes"`
	Written bool   `json:"written"`
	Output  string `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog-dir>",
		Short: "Compile a catalog to canonical JSON",
		Long: `Compile a CUE kernel catalog to canonical JSON.

Kernels and devices are emitted sorted by name with object keys in
canonical order, so the output is byte-stable across runs and suitable
for diffing or hashing.

Example:
  mcl compile ./catalog -o catalog.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, err := loadCatalog(formatter, catalogDir)
	if err != nil {
		return err
	}
	for _, k := range cat.Kernels {
		formatter.VerboseLog("compiled kernel %s (%d args)", k.Name, k.NumArgs())
	}
	for _, d := range cat.Devices {
		formatter.VerboseLog("compiled device %s: %s", d.Device, d.Supported)
	}

	data, err := ir.MarshalCanonical(catalogDocument(cat))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode catalog", err)
	}

	stats := CompilationStats{
		Kernels: len(cat.Kernels),
		Devices: len(cat.Devices),
		Files:   cat.FileCount,
		Bytes:   len(data),
		Output:  opts.Output,
	}
	for _, k := range cat.Kernels {
		stats.Args += k.NumArgs()
	}

	if opts.Output == "" {
		if formatter.JSON() {
			return formatter.Success(catalogDocument(cat))
		}
		_, err := fmt.Fprintln(formatter.Writer, string(data))
		return err
	}

	if err := os.WriteFile(opts.Output, append(data, '\n'), 0644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	stats.Written = true

	if formatter.JSON() {
		return formatter.Success(stats)
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d kernel(s), %d device(s)\n", stats.Kernels, stats.Devices)
	fmt.Fprintf(formatter.Writer, "Wrote canonical catalog to %s (%d bytes)\n", opts.Output, stats.Bytes)
	return nil
}

// catalogDocument renders a catalog as a canonical payload object.
func catalogDocument(cat *compiler.Catalog) ir.Object {
	kernels := make(ir.Array, 0, len(cat.Kernels))
	for _, k := range cat.Kernels {
		args := make(ir.Array, 0, len(k.Args))
		for _, a := range k.Args {
			arg := ir.Object{"name": ir.String(a.Name), "kind": ir.String(a.Kind)}
			if a.Size > 0 {
				arg["size"] = ir.Int(a.Size)
			}
			args = append(args, arg)
		}
		kernel := ir.Object{"name": ir.String(k.Name), "args": args}
		if k.MaxGroupSize > 0 {
			kernel["max_group_size"] = ir.Int(k.MaxGroupSize)
		}
		kernels = append(kernels, kernel)
	}

	devices := make(ir.Array, 0, len(cat.Devices))
	for _, d := range cat.Devices {
		devices = append(devices, d.Payload())
	}
	return ir.Object{"kernels": kernels, "devices": devices}
}
