package harness

import (
	"github.com/intel/compute-runtime-sub069/internal/device"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// TraceEvent is the observable outcome of one scenario step.
type TraceEvent struct {
	Step    int          `json:"step"`
	Op      string       `json:"op"`
	Buffer  string       `json:"buffer,omitempty"`
	Command ir.CommandID `json:"command,omitempty"`
	Error   string       `json:"error,omitempty"`

	Buffers []string `json:"buffers,omitempty"` // submit
	Patches int      `json:"patches,omitempty"` // mutate
	Event   string   `json:"event,omitempty"`   // timestamp, reset_event, host_signal
	Start   int64    `json:"start,omitempty"`   // timestamp
	End     int64    `json:"end,omitempty"`     // timestamp
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step met its expect_error and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Journal holds every journal entry read back from the store, grouped
	// by buffer in open order and ordered by seq within a buffer.
	Journal []ir.JournalEntry `json:"journal"`

	// Stamps holds timestamps captured by timestamp steps.
	Stamps map[string]device.KernelTimestamp `json:"stamps,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Journal: []ir.JournalEntry{},
		Stamps:  make(map[string]device.KernelTimestamp),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
