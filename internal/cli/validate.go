package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/intel/compute-runtime-sub069/internal/compiler"
	"github.com/intel/compute-runtime-sub069/internal/device"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Kernels  int                        `json:"kernels"`
	Devices  int                        `json:"devices"`
	Findings []compiler.ValidationError `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a kernel and device catalog",
		Long: `Validate a CUE catalog of kernel signatures and device profiles.

Checks the catalog against the schema, then checks each kernel signature
and device profile. Kernels with no device body and devices that support
no mutation kinds are reported as warnings and do not fail validation.

Exit codes:
  0 - Catalog valid (warnings allowed)
  1 - Catalog has errors
  2 - Catalog directory missing or empty`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cat, loadErrs := compiler.LoadCatalog(catalogDir, compiler.LoadModeCollectAll)
	if cat == nil {
		code, msg := loadErrorCode(loadErrs[0])
		_ = formatter.Error(code, msg, nil)
		exit := ExitFailure
		if isPathError(code) {
			exit = ExitCommandError
		}
		return NewExitError(exit, code+": "+msg)
	}
	formatter.VerboseLog("found %d CUE file(s) in %s", cat.FileCount, catalogDir)

	findings := loadFindings(loadErrs)
	findings = append(findings, compiler.Validate(cat)...)
	findings = append(findings, compiler.ValidateBodies(cat, hasBuiltinBody)...)

	result := ValidationResult{
		Valid:    !compiler.HasErrors(findings),
		Kernels:  len(cat.Kernels),
		Devices:  len(cat.Devices),
		Findings: findings,
	}
	return outputValidation(formatter, result)
}

func hasBuiltinBody(name string) bool {
	_, ok := device.Builtins()[name]
	return ok
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	var failure error
	if !result.Valid {
		errCount := 0
		for _, v := range result.Findings {
			if !v.IsWarning() {
				errCount++
			}
		}
		failure = NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", errCount))
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			first := firstError(result.Findings)
			resp.Status = "error"
			resp.Error = &CLIError{Code: first.Code, Message: first.Message}
		}
		if err := f.Response(resp); err != nil {
			return err
		}
		return failure
	}

	if result.Valid {
		fmt.Fprintf(f.Writer, "✓ Catalog valid (%d kernels, %d devices)\n", result.Kernels, result.Devices)
	} else {
		fmt.Fprintln(f.Writer, "✗ Validation failed")
	}
	for _, v := range result.Findings {
		mark := "error"
		if v.IsWarning() {
			mark = "warning"
		}
		fmt.Fprintf(f.Writer, "  %s %s %s: %s\n", mark, v.Code, v.Field, v.Message)
	}
	return failure
}

func firstError(findings []compiler.ValidationError) compiler.ValidationError {
	for _, v := range findings {
		if !v.IsWarning() {
			return v
		}
	}
	return compiler.ValidationError{}
}
