package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intel/compute-runtime-sub069/internal/ir"
	"github.com/intel/compute-runtime-sub069/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Command  int64  // optional - filter to one command id
	Op       string // optional - filter to one journal op
	Failed   bool   // optional - only entries with an error code
}

// ErrCodeInvalidFilter is reported for an unknown --op value.
const ErrCodeInvalidFilter = "E015"

var journalOps = []ir.JournalOp{ir.OpOpen, ir.OpRequestID, ir.OpRecord, ir.OpAppend, ir.OpClose, ir.OpMutate}

// TraceEntry is one journal entry in the timeline.
type TraceEntry struct {
	Seq     int64          `json:"seq"`
	Op      string         `json:"op"`
	Command int64          `json:"command,omitempty"`
	Error   string         `json:"error,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Hash    string         `json:"hash"`
}

// TraceState is the buffer state reconstructed from its journal.
type TraceState struct {
	Closed   bool                 `json:"closed"`
	Dirty    bool                 `json:"dirty"`
	Commands []int64              `json:"commands"`
	Issues   []store.JournalIssue `json:"issues,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Entries  int            `json:"entries"`
	Failed   int            `json:"failed"`
	ByOp     map[string]int `json:"by_op"`
	LastSeq  int64          `json:"last_seq"`
	Filtered bool           `json:"filtered"`
}

// TraceResult holds the complete trace output for one buffer.
type TraceResult struct {
	Buffer   string       `json:"buffer"`
	Timeline []TraceEntry `json:"timeline"`
	State    TraceState   `json:"state"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [buffer-id]",
		Short: "Show the journal of a buffer",
		Long: `Show the journal kept for a command buffer.

Without a buffer id, lists every journaled buffer with its device and
entry counts. With a buffer id, prints the journal timeline and the
lifecycle state reconstructed from it.

The output includes:
- Timeline: journal entries in seq order, with error codes
- State: closed/dirty flags and the command ids granted
- Stats: entry counts per operation

Examples:
  mcl trace --db ./mcl.db
  mcl trace --db ./mcl.db demo/main
  mcl trace --db ./mcl.db demo/main --command 1 --format json
  mcl trace --db ./mcl.db demo/main --op mutate --failed`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListBuffers(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.Command, "command", 0, "show only entries naming this command id")
	cmd.Flags().StringVar(&opts.Op, "op", "", "show only entries of this operation (open|request_id|record|append|close|mutate)")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "show only entries that carry an error code")

	return cmd
}

func (o *TraceOptions) filter(bufferID string) store.JournalFilter {
	return store.JournalFilter{
		BufferID:   bufferID,
		Op:         ir.JournalOp(o.Op),
		CommandID:  ir.CommandID(o.Command),
		FailedOnly: o.Failed,
	}
}

func openStore(f *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runListBuffers(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	buffers, err := st.ListBuffers(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list buffers", err)
	}

	if formatter.JSON() {
		return formatter.Success(buffers)
	}
	w := formatter.Writer
	if len(buffers) == 0 {
		fmt.Fprintln(w, "No buffers found in database.")
		return nil
	}
	fmt.Fprintln(w, "=== Buffers ===")
	for _, b := range buffers {
		fmt.Fprintf(w, "  %s  device=%s entries=%d failed=%d engine=%s\n",
			b.ID, b.Device, b.Entries, b.Failed, b.EngineVersion)
	}
	return nil
}

func runTrace(opts *TraceOptions, bufferID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Op != "" && !slices.Contains(journalOps, ir.JournalOp(opts.Op)) {
		msg := fmt.Sprintf("unknown journal op %q", opts.Op)
		_ = formatter.Error(ErrCodeInvalidFilter, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := openStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ReadJournal(ctx, bufferID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if len(entries) == 0 {
		if formatter.JSON() {
			return formatter.Success(TraceResult{
				Buffer:   bufferID,
				Timeline: []TraceEntry{},
				State:    TraceState{Commands: []int64{}},
				Stats:    TraceStats{ByOp: map[string]int{}},
			})
		}
		fmt.Fprintf(formatter.Writer, "No journal entries for buffer: %s\n", bufferID)
		return nil
	}

	state, err := st.ReplayJournal(ctx, bufferID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	filter := opts.filter(bufferID)
	filtered := filter != (store.JournalFilter{BufferID: bufferID})
	if filtered {
		entries, err = st.QueryJournal(ctx, filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query journal", err)
		}
	}

	result := TraceResult{
		Buffer:   bufferID,
		Timeline: buildTimeline(entries),
		State:    traceState(state),
		Stats: TraceStats{
			Entries:  len(entries),
			ByOp:     make(map[string]int),
			LastSeq:  state.LastSeq,
			Filtered: filtered,
		},
	}
	for _, e := range entries {
		result.Stats.ByOp[string(e.Op)]++
		if e.ErrorCode != "" {
			result.Stats.Failed++
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

func buildTimeline(entries []ir.JournalEntry) []TraceEntry {
	timeline := make([]TraceEntry, 0, len(entries))
	for _, e := range entries {
		timeline = append(timeline, TraceEntry{
			Seq:     e.Seq,
			Op:      string(e.Op),
			Command: int64(e.CommandID),
			Error:   e.ErrorCode,
			Payload: objectToMap(e.Payload),
			Hash:    e.PayloadHash,
		})
	}
	return timeline
}

func traceState(s store.JournalState) TraceState {
	out := TraceState{
		Closed:   s.Closed,
		Dirty:    s.Dirty,
		Commands: make([]int64, 0, len(s.Commands)),
		Issues:   s.Issues,
	}
	for _, id := range s.Commands {
		out.Commands = append(out.Commands, int64(id))
	}
	return out
}

// objectToMap converts a payload object to plain Go values.
func objectToMap(obj ir.Object) map[string]any {
	if len(obj) == 0 {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v ir.Value) any {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Bool:
		return bool(val)
	case ir.Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = valueToAny(elem)
		}
		return out
	case ir.Object:
		return objectToMap(val)
	default:
		return nil
	}
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Journal for Buffer: %s\n", result.Buffer)
	fmt.Fprintf(w, "State: %s\n", lifecycleStatus(result.State))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	for _, e := range result.Timeline {
		line := fmt.Sprintf("  [%d] %s", e.Seq, strings.ToUpper(e.Op))
		if e.Command != 0 {
			line += fmt.Sprintf(" #%d", e.Command)
		}
		if e.Error != "" {
			line += " -> " + e.Error
		}
		fmt.Fprintln(w, line)
		if verbose && len(e.Payload) > 0 {
			fmt.Fprintf(w, "       Payload: %s\n", formatArgs(e.Payload))
		}
		if verbose {
			fmt.Fprintf(w, "       Hash: %s\n", truncateID(e.Hash))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== State ===")
	fmt.Fprintf(w, "  Commands: %v\n", result.State.Commands)
	if len(result.State.Issues) == 0 {
		fmt.Fprintln(w, "  Journal consistent")
	}
	for _, issue := range result.State.Issues {
		fmt.Fprintf(w, "  issue at seq %d: %s\n", issue.Seq, issue.Message)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Entries: %d\n", result.Stats.Entries)
	fmt.Fprintf(w, "  Failed:  %d\n", result.Stats.Failed)
	ops := make([]string, 0, len(result.Stats.ByOp))
	for op := range result.Stats.ByOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(w, "  %-10s %d\n", op+":", result.Stats.ByOp[op])
	}
	return nil
}

// formatArgs formats a map with sorted keys for deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID shortens a long id for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func lifecycleStatus(s TraceState) string {
	switch {
	case s.Closed && s.Dirty:
		return "Closed (dirty, close before submit)"
	case s.Closed:
		return "Closed"
	default:
		return "Recording"
	}
}
