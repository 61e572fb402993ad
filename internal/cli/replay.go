package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/intel/compute-runtime-sub069/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayBufferResult holds the replay result for a single buffer.
type ReplayBufferResult struct {
	Buffer        string               `json:"buffer"`
	Entries       int                  `json:"entries"`
	Failed        int                  `json:"failed"`
	Commands      int                  `json:"commands"`
	Closed        bool                 `json:"closed"`
	Dirty         bool                 `json:"dirty"`
	Consistent    bool                 `json:"consistent"`
	Deterministic bool                 `json:"deterministic"`
	Issues        []store.JournalIssue `json:"issues,omitempty"`
}

// ok reports whether the buffer passed verification.
func (r ReplayBufferResult) ok() bool {
	return r.Consistent && r.Deterministic
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Buffers      []ReplayBufferResult `json:"buffers"`
	TotalBuffers int                  `json:"total_buffers"`
	AllVerified  bool                 `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [buffer-id]",
		Short: "Replay journals and verify consistency",
		Long: `Replay buffer journals and verify they could have been produced by
one buffer: seq numbers run without gaps from an open entry, every
payload hash matches its payload, and records and mutations name
command ids that were granted earlier. Each journal is replayed twice
and the reconstructed states must agree.

Exit codes:
  0 - All journals verified
  1 - A journal is inconsistent
  2 - Command error (database not found, etc.)

Examples:
  mcl replay --db ./mcl.db
  mcl replay --db ./mcl.db demo/main
  mcl replay --db ./mcl.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			buffer := ""
			if len(args) == 1 {
				buffer = args[0]
			}
			return runReplay(opts, buffer, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, buffer string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var ids []string
	if buffer != "" {
		ids = []string{buffer}
	} else {
		buffers, err := st.ListBuffers(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list buffers", err)
		}
		for _, b := range buffers {
			ids = append(ids, b.ID)
		}
	}

	result := ReplayResult{
		Buffers:      make([]ReplayBufferResult, 0, len(ids)),
		TotalBuffers: len(ids),
		AllVerified:  true,
	}
	if len(ids) == 0 {
		if formatter.JSON() {
			return outputReplayJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No buffers found in database.")
		return nil
	}

	for _, id := range ids {
		br, err := replayAndVerifyBuffer(ctx, st, id)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay buffer %s", id), err)
		}
		formatter.VerboseLog("replayed %s: %d entries", id, br.Entries)
		result.Buffers = append(result.Buffers, br)
		if !br.ok() {
			result.AllVerified = false
		}
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result, opts.Verbose)
}

// replayAndVerifyBuffer replays a journal twice and compares the states.
func replayAndVerifyBuffer(ctx context.Context, st *store.Store, id string) (ReplayBufferResult, error) {
	first, err := st.ReplayJournal(ctx, id)
	if err != nil {
		return ReplayBufferResult{}, err
	}
	second, err := st.ReplayJournal(ctx, id)
	if err != nil {
		return ReplayBufferResult{}, fmt.Errorf("second replay: %w", err)
	}

	return ReplayBufferResult{
		Buffer:        id,
		Entries:       first.Entries,
		Failed:        first.Failed,
		Commands:      len(first.Commands),
		Closed:        first.Closed,
		Dirty:         first.Dirty,
		Consistent:    first.Consistent(),
		Deterministic: reflect.DeepEqual(first, second),
		Issues:        first.Issues,
	}, nil
}

func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if !result.AllVerified {
		resp.Status = "error"
		resp.Error = &CLIError{Code: ErrCodeInconsistent, Message: "journal verification failed"}
	}
	if err := f.Response(resp); err != nil {
		return err
	}
	if !result.AllVerified {
		return NewExitError(ExitFailure, "journal verification failed")
	}
	return nil
}

func outputReplayText(f *OutputFormatter, result ReplayResult, verbose bool) error {
	w := f.Writer
	fmt.Fprintf(w, "Replay Summary: %d buffer(s)\n", result.TotalBuffers)
	fmt.Fprintln(w)

	for _, b := range result.Buffers {
		status := "✓"
		if !b.ok() {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Buffer: %s\n", status, b.Buffer)

		if verbose {
			fmt.Fprintf(w, "  Entries:  %d (%d failed)\n", b.Entries, b.Failed)
			fmt.Fprintf(w, "  Commands: %d\n", b.Commands)
			fmt.Fprintf(w, "  Closed:   %v\n", b.Closed)
			fmt.Fprintf(w, "  Dirty:    %v\n", b.Dirty)
		} else {
			fmt.Fprintf(w, "  Entries: %d, commands: %d\n", b.Entries, b.Commands)
		}
		for _, issue := range b.Issues {
			fmt.Fprintf(w, "  seq %d: %s\n", issue.Seq, issue.Message)
		}
		if !b.Deterministic {
			fmt.Fprintln(w, "  Warning: replay produced different states")
		}
		fmt.Fprintln(w)
	}

	if result.AllVerified {
		fmt.Fprintln(w, "✓ All journals verified")
		return nil
	}
	fmt.Fprintln(w, "✗ Journal verification failed")
	return NewExitError(ExitFailure, "journal verification failed")
}
