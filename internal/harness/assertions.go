package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/intel/compute-runtime-sub069/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			line := fmt.Sprintf("  [%d] %s", ev.Step, ev.Op)
			if ev.Buffer != "" {
				line += " " + ev.Buffer
			}
			if ev.Error != "" {
				line += " -> " + ev.Error
			}
			fmt.Fprintln(&buf, line)
		}
	}
	return buf.String()
}

// AssertionContext gives assertions access to the state a scenario left.
type AssertionContext struct {
	Harness *Harness
	Ctx     context.Context
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertMemoryEquals:
		return assertMemoryEquals(result, a, actx.Harness)
	case AssertCommandValid:
		return assertCommandValid(result, a, actx.Harness)
	case AssertTimestampsOrdered:
		return assertTimestampsOrdered(result, a)
	case AssertJournalCount:
		return assertJournalCount(result, a)
	case AssertWaitCycles:
		return assertWaitCycles(result, a, actx.Harness)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertMemoryEquals compares a whole memory region.
func assertMemoryEquals(result *Result, a Assertion, h *Harness) error {
	addr, ok := h.memory[a.Memory]
	if !ok {
		return fmt.Errorf("memory_equals: unknown memory %q", a.Memory)
	}
	n := h.elements[a.Memory]
	got, err := h.dev.Memory().ReadUint32s(addr, n)
	if err != nil {
		return fmt.Errorf("memory_equals: %w", err)
	}

	want := a.Values
	if a.Value != nil {
		want = make([]uint32, n)
		for i := range want {
			want[i] = *a.Value
		}
	}
	if slices.Equal(got, want) {
		return nil
	}

	actual := fmt.Sprint(got)
	for i := range got {
		if i >= len(want) || got[i] != want[i] {
			actual = fmt.Sprintf("first difference at element %d: got %d", i, got[i])
			break
		}
	}
	return &AssertionError{
		Type:     AssertMemoryEquals,
		Expected: fmt.Sprintf("%s == %s", a.Memory, summarize(want)),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertCommandValid checks a command's completeness flag.
func assertCommandValid(result *Result, a Assertion, h *Harness) error {
	name := a.Buffer
	if name == "" {
		name = DefaultBuffer
	}
	b, ok := h.buffers[name]
	if !ok {
		return fmt.Errorf("command_valid: buffer %q was never opened", name)
	}
	id, err := h.resolve(name, CommandRef{Command: a.Command})
	if err != nil {
		return fmt.Errorf("command_valid: %w", err)
	}
	valid, err := b.IsValid(id)
	if err != nil {
		return fmt.Errorf("command_valid: %w", err)
	}
	if valid != *a.Valid {
		return &AssertionError{
			Type:     AssertCommandValid,
			Expected: fmt.Sprintf("%s/%s valid=%t", name, a.Command, *a.Valid),
			Actual:   fmt.Sprintf("valid=%t", valid),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTimestampsOrdered checks that captured stamps never go back in time.
func assertTimestampsOrdered(result *Result, a Assertion) error {
	for i, name := range a.Stamps {
		ts, ok := result.Stamps[name]
		if !ok {
			return fmt.Errorf("timestamps_ordered: no stamp %q was captured", name)
		}
		if ts.Start > ts.End {
			return &AssertionError{
				Type:     AssertTimestampsOrdered,
				Expected: fmt.Sprintf("%s start <= end", name),
				Actual:   fmt.Sprintf("start %d, end %d", ts.Start, ts.End),
				Trace:    result.Trace,
			}
		}
		if i == 0 {
			continue
		}
		prev := result.Stamps[a.Stamps[i-1]]
		if ts.End < prev.End {
			return &AssertionError{
				Type:     AssertTimestampsOrdered,
				Expected: fmt.Sprintf("%s end >= %s end", name, a.Stamps[i-1]),
				Actual:   fmt.Sprintf("%d < %d", ts.End, prev.End),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertJournalCount counts journal entries matching buffer, op and
// failure filters.
func assertJournalCount(result *Result, a Assertion) error {
	count := 0
	for _, e := range result.Journal {
		if a.Buffer != "" && e.BufferID != a.Buffer {
			continue
		}
		if a.Op != "" && string(e.Op) != a.Op {
			continue
		}
		if a.Failed != nil && (e.ErrorCode != "") != *a.Failed {
			continue
		}
		count++
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d entries (buffer=%q op=%q)", a.Count, a.Buffer, a.Op),
			Actual:   fmt.Sprintf("%d entries", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertWaitCycles counts cycles in the static wait graph of the named
// buffers, or of every opened buffer.
func assertWaitCycles(result *Result, a Assertion, h *Harness) error {
	names := a.Buffers
	if len(names) == 0 {
		names = h.order
	}
	bufs := make([]*engine.Buffer, 0, len(names))
	for _, n := range names {
		b, ok := h.buffers[n]
		if !ok {
			return fmt.Errorf("wait_cycles: buffer %q was never opened", n)
		}
		bufs = append(bufs, b)
	}
	cycles := engine.AnalyzeWaitCycles(engine.BuildWaitGraph(bufs...))
	if len(cycles) != a.Count {
		msgs := make([]string, len(cycles))
		for i, c := range cycles {
			msgs[i] = c.Message
		}
		return &AssertionError{
			Type:     AssertWaitCycles,
			Expected: fmt.Sprintf("%d cycles", a.Count),
			Actual:   fmt.Sprintf("%d cycles %v", len(cycles), msgs),
			Trace:    result.Trace,
		}
	}
	return nil
}

// summarize prints a uint32 slice, collapsing a uniform one.
func summarize(v []uint32) string {
	if len(v) > 0 && slices.Min(v) == slices.Max(v) {
		return fmt.Sprintf("[%d x %d]", len(v), v[0])
	}
	return fmt.Sprint(v)
}
