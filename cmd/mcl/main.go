// Command mcl records, mutates and replays mutable command buffers.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/intel/compute-runtime-sub069/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands print their own diagnostics; cobra usage errors do not.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
