package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/harness"
	"github.com/intel/compute-runtime-sub069/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Catalog  string
	RunID    string

	// IDGenerator names the run when --run-id is empty.
	// Default: engine.UUIDv7Generator.
	IDGenerator engine.BufferIDGenerator
}

// RunSummary is the outcome of one journaled scenario run.
type RunSummary struct {
	RunID    string   `json:"run_id"`
	Scenario string   `json:"scenario"`
	Pass     bool     `json:"pass"`
	Steps    int      `json:"steps"`
	Entries  int      `json:"entries"`
	Buffers  []string `json:"buffers"`
	Errors   []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run a scenario into a journal database",
		Long: `Run one scenario and keep its journal in a SQLite database.

Buffers are journaled as "<run-id>/<buffer>", so repeated runs share one
database. Inspect the result with "mcl trace" and "mcl replay".

Example:
  mcl run --db ./mcl.db testdata/scenarios/copy_to_copy_linear.yaml
  mcl run --db ./mcl.db --catalog ./catalog --run-id demo scenario.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "catalog directory (default: the scenario's catalog)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "journal prefix for this run (default: a new UUIDv7)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	catalogDir := opts.Catalog
	if catalogDir == "" {
		catalogDir = scenario.Catalog
	}
	if catalogDir == "" {
		msg := fmt.Sprintf("scenario %s names no catalog; pass --catalog", scenario.Name)
		_ = formatter.Error(ErrCodeScenario, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	cat, err := loadCatalog(formatter, catalogDir)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	runID := opts.RunID
	if runID == "" {
		gen := opts.IDGenerator
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		runID = gen.Generate()
	}
	slog.Info("running scenario", "scenario", scenario.Name, "run_id", runID, "db", opts.Database)

	result, err := harness.RunWithOptions(scenario, cat, harness.Options{Store: st, RunID: runID})
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	summary := summarizeRun(runID, scenario, result)
	return outputRun(formatter, summary)
}

func summarizeRun(runID string, scenario *harness.Scenario, result *harness.Result) RunSummary {
	s := RunSummary{
		RunID:    runID,
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Steps:    len(result.Trace),
		Entries:  len(result.Journal),
		Buffers:  []string{},
		Errors:   result.Errors,
	}
	seen := make(map[string]bool)
	for _, e := range result.Journal {
		if !seen[e.BufferID] {
			seen[e.BufferID] = true
			s.Buffers = append(s.Buffers, runID+"/"+e.BufferID)
		}
	}
	return s
}

func outputRun(f *OutputFormatter, s RunSummary) error {
	var failure error
	if !s.Pass {
		failure = NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", s.Scenario))
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: s}
		if !s.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: fmt.Sprintf("scenario %s failed", s.Scenario)}
		}
		if err := f.Response(resp); err != nil {
			return err
		}
		return failure
	}

	mark := "✓"
	if !s.Pass {
		mark = "✗"
	}
	fmt.Fprintf(f.Writer, "%s %s (run %s)\n", mark, s.Scenario, s.RunID)
	fmt.Fprintf(f.Writer, "  %d step(s), %d journal entries\n", s.Steps, s.Entries)
	for _, b := range s.Buffers {
		fmt.Fprintf(f.Writer, "  buffer %s\n", b)
	}
	for _, e := range s.Errors {
		fmt.Fprintf(f.Writer, "  %s\n", e)
	}
	return failure
}
