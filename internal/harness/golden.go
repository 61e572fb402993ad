package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
// It serializes to canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Pass         bool
	Trace        []TraceEvent
	Journal      []ir.JournalEntry
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Zero-valued optional fields are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step": ev.Step,
			"op":   ev.Op,
		}
		if ev.Buffer != "" {
			m["buffer"] = ev.Buffer
		}
		if ev.Command != 0 {
			m["command"] = int64(ev.Command)
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		if len(ev.Buffers) > 0 {
			names := make([]any, len(ev.Buffers))
			for j, b := range ev.Buffers {
				names[j] = b
			}
			m["buffers"] = names
		}
		if ev.Patches != 0 {
			m["patches"] = ev.Patches
		}
		if ev.Event != "" {
			m["event"] = ev.Event
		}
		if ev.Start != 0 || ev.End != 0 {
			m["start"] = ev.Start
			m["end"] = ev.End
		}
		traceList[i] = m
	}

	journalList := make([]any, len(s.Journal))
	for i, e := range s.Journal {
		m := map[string]any{
			"buffer": e.BufferID,
			"seq":    e.Seq,
			"op":     string(e.Op),
		}
		if e.CommandID != 0 {
			m["command"] = int64(e.CommandID)
		}
		if e.ErrorCode != "" {
			m["error"] = e.ErrorCode
		}
		journalList[i] = m
	}

	return map[string]any{
		"scenario": s.ScenarioName,
		"pass":     s.Pass,
		"trace":    traceList,
		"journal":  journalList,
	}
}

// Snapshot returns the canonical JSON trace of a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Pass:         result.Pass,
		Trace:        result.Trace,
		Journal:      result.Journal,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
