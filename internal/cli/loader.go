package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/intel/compute-runtime-sub069/internal/compiler"
)

// ErrCodeCatalog is reported when a catalog error carries no code.
const ErrCodeCatalog = compiler.ErrCodeGeneric

// loadCatalog loads a catalog directory for a command. Load failures are
// written through f and returned as an ExitError: a missing or empty
// directory is a command error, a catalog that does not compile is a
// failure.
func loadCatalog(f *OutputFormatter, dir string) (*compiler.Catalog, error) {
	cat, errs := compiler.LoadCatalog(dir, compiler.LoadModeFailFast)
	if len(errs) == 0 {
		f.VerboseLog("loaded %d kernel(s), %d device(s) from %d file(s) in %s",
			len(cat.Kernels), len(cat.Devices), cat.FileCount, dir)
		return cat, nil
	}

	code, msg := loadErrorCode(errs[0])
	if err := f.Error(code, msg, nil); err != nil {
		return nil, err
	}
	exit := ExitFailure
	if cat == nil && isPathError(code) {
		exit = ExitCommandError
	}
	return nil, WrapExitError(exit, "failed to load catalog", errs[0])
}

// loadErrorCode splits a catalog error into its code and message.
func loadErrorCode(err error) (string, string) {
	var le *compiler.LoadError
	if errors.As(err, &le) {
		if le.Pos.IsValid() {
			return le.Code, fmt.Sprintf("%s:%d: %s", filepath.Base(le.Pos.Filename()), le.Pos.Line(), le.Message)
		}
		return le.Code, le.Message
	}
	return ErrCodeCatalog, err.Error()
}

// isPathError reports whether a load code means the directory itself is
// unusable, as opposed to its contents.
func isPathError(code string) bool {
	switch code {
	case compiler.ErrCodeNotFound, compiler.ErrCodeScanError, compiler.ErrCodeNoFiles:
		return true
	}
	return false
}

// loadFindings converts catalog load errors into validation findings so
// validate can report them alongside structural checks.
func loadFindings(errs []error) []compiler.ValidationError {
	out := make([]compiler.ValidationError, 0, len(errs))
	for _, err := range errs {
		finding := compiler.ValidationError{Field: "load", Code: ErrCodeCatalog, Message: err.Error(), Level: "error"}
		var le *compiler.LoadError
		if errors.As(err, &le) {
			finding.Code = le.Code
			finding.Message = le.Message
			if le.Pos.IsValid() {
				finding.Field = fmt.Sprintf("%s:%d", filepath.Base(le.Pos.Filename()), le.Pos.Line())
			}
		}
		out = append(out, finding)
	}
	return out
}
