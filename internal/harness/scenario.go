package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultBuffer is the buffer name used by steps that name none.
const DefaultBuffer = "main"

// Scenario defines a conformance test scenario: a device profile, memory
// and events to set up, an ordered list of buffer and queue operations,
// and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the directory of kernel and device CUE files.
	// Relative paths are resolved against the base path given at load time.
	Catalog string `yaml:"catalog"`

	// Device names the device profile in the catalog.
	Device string `yaml:"device"`

	Memory []MemorySpec `yaml:"memory,omitempty"`
	Events []string     `yaml:"events,omitempty"`

	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	// Supported types: memory_equals, command_valid, timestamps_ordered,
	// journal_count, wait_cycles
	Assertions []Assertion `yaml:"assertions"`
}

// MemorySpec declares a named uint32 allocation.
type MemorySpec struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind,omitempty"` // host, device or shared; default device
	Elements int      `yaml:"elements"`
	Fill     uint32   `yaml:"fill,omitempty"`
	Values   []uint32 `yaml:"values,omitempty"`
}

// Step is one operation. Exactly one operation field is set. Buffer names
// the target buffer for buffer operations; buffers open on first use.
type Step struct {
	Buffer string `yaml:"buffer,omitempty"`

	RequestID  *RequestStep   `yaml:"request_id,omitempty"`
	Record     *RecordStep    `yaml:"record,omitempty"`
	Append     *LaunchSpec    `yaml:"append,omitempty"`
	Close      bool           `yaml:"close,omitempty"`
	Mutate     []PatchSpec    `yaml:"mutate,omitempty"`
	Submit     []string       `yaml:"submit,omitempty"`
	Timestamp  *TimestampStep `yaml:"timestamp,omitempty"`
	ResetEvent string         `yaml:"reset_event,omitempty"`
	HostSignal string         `yaml:"host_signal,omitempty"`
	Fill       *FillStep      `yaml:"fill,omitempty"`

	// ExpectError is the error code the step must fail with.
	// Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operation names, as they appear in traces.
const (
	OpRequestID  = "request_id"
	OpRecord     = "record"
	OpAppend     = "append"
	OpClose      = "close"
	OpMutate     = "mutate"
	OpSubmit     = "submit"
	OpTimestamp  = "timestamp"
	OpResetEvent = "reset_event"
	OpHostSignal = "host_signal"
	OpFill       = "fill"
)

// Ops returns the names of the operation fields that are set.
func (s Step) Ops() []string {
	var ops []string
	if s.RequestID != nil {
		ops = append(ops, OpRequestID)
	}
	if s.Record != nil {
		ops = append(ops, OpRecord)
	}
	if s.Append != nil {
		ops = append(ops, OpAppend)
	}
	if s.Close {
		ops = append(ops, OpClose)
	}
	if s.Mutate != nil {
		ops = append(ops, OpMutate)
	}
	if s.Submit != nil {
		ops = append(ops, OpSubmit)
	}
	if s.Timestamp != nil {
		ops = append(ops, OpTimestamp)
	}
	if s.ResetEvent != "" {
		ops = append(ops, OpResetEvent)
	}
	if s.HostSignal != "" {
		ops = append(ops, OpHostSignal)
	}
	if s.Fill != nil {
		ops = append(ops, OpFill)
	}
	return ops
}

// BufferName returns the step's buffer, or DefaultBuffer.
func (s Step) BufferName() string {
	if s.Buffer == "" {
		return DefaultBuffer
	}
	return s.Buffer
}

// RequestStep requests a command id and binds it to an alias.
type RequestStep struct {
	As        string   `yaml:"as"`
	Mutations []string `yaml:"mutations,omitempty"`
	Group     []string `yaml:"group,omitempty"`
}

// CommandRef names a command by alias, or by raw id for ids that were
// never issued.
type CommandRef struct {
	Command   string `yaml:"command,omitempty"`
	CommandID uint64 `yaml:"command_id,omitempty"`
}

// RecordStep records a launch against a requested command id.
type RecordStep struct {
	CommandRef `yaml:",inline"`
	LaunchSpec `yaml:",inline"`
}

// LaunchSpec describes a kernel launch. Dimensions take one to three
// values; missing trailing dimensions are 1 (0 for global_offset).
type LaunchSpec struct {
	Kernel       string       `yaml:"kernel"`
	Args         []ArgLiteral `yaml:"args"`
	GroupSize    []uint32     `yaml:"group_size"`
	GroupCount   []uint32     `yaml:"group_count"`
	GlobalOffset []uint32     `yaml:"global_offset,omitempty"`
	Signal       string       `yaml:"signal,omitempty"`
	Wait         []string     `yaml:"wait,omitempty"`
}

// ArgLiteral is one argument value. Exactly one field is set.
type ArgLiteral struct {
	Buffer string  `yaml:"buffer,omitempty"` // memory name
	U32    *uint32 `yaml:"u32,omitempty"`
	Local  int     `yaml:"local,omitempty"` // shared-local bytes
	Null   bool    `yaml:"null,omitempty"`
}

// PatchSpec is one mutation descriptor. Exactly one patch field is set.
type PatchSpec struct {
	CommandRef `yaml:",inline"`

	SwapKernel   string    `yaml:"swap_kernel,omitempty"`
	Arg          *ArgPatch `yaml:"arg,omitempty"`
	GroupCount   []uint32  `yaml:"group_count,omitempty"`
	GroupSize    []uint32  `yaml:"group_size,omitempty"`
	GlobalOffset []uint32  `yaml:"global_offset,omitempty"`
	Signal       string    `yaml:"signal,omitempty"`
	Wait         []string  `yaml:"wait,omitempty"`
}

// ArgPatch replaces one argument.
type ArgPatch struct {
	Index int        `yaml:"index"`
	Value ArgLiteral `yaml:"value"`
}

// TimestampStep reads an event's kernel timestamp into a named slot.
type TimestampStep struct {
	Event string `yaml:"event"`
	As    string `yaml:"as"`
}

// FillStep overwrites every element of a memory region.
type FillStep struct {
	Memory string `yaml:"memory"`
	Value  uint32 `yaml:"value"`
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "memory_equals": region holds Values, or every element equals Value
	// - "command_valid": command's validity equals Valid
	// - "timestamps_ordered": captured Stamps have non-decreasing end ticks
	// - "journal_count": journal holds Count entries matching Op and Failed
	// - "wait_cycles": Buffers' static wait graph has Count cycles
	Type string `yaml:"type"`

	Memory string   `yaml:"memory,omitempty"`
	Values []uint32 `yaml:"values,omitempty"`
	Value  *uint32  `yaml:"value,omitempty"`

	Buffer  string `yaml:"buffer,omitempty"`
	Command string `yaml:"command,omitempty"`
	Valid   *bool  `yaml:"valid,omitempty"`

	Stamps []string `yaml:"stamps,omitempty"`

	Op      string   `yaml:"op,omitempty"`
	Failed  *bool    `yaml:"failed,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Buffers []string `yaml:"buffers,omitempty"`
}

// Assertion type constants.
const (
	AssertMemoryEquals      = "memory_equals"
	AssertCommandValid      = "command_valid"
	AssertTimestampsOrdered = "timestamps_ordered"
	AssertJournalCount      = "journal_count"
	AssertWaitCycles        = "wait_cycles"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml file in dir, sorted by file name.
func LoadScenarios(dir, basePath string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	sort.Strings(matches)

	out := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenarioWithBasePath(path, basePath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Device == "" {
		return fmt.Errorf("device is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog directory not found: %s", s.Catalog)
		}
	}

	seen := make(map[string]bool)
	for i, m := range s.Memory {
		if m.Name == "" {
			return fmt.Errorf("memory[%d]: name is required", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("memory[%d]: duplicate name %q", i, m.Name)
		}
		seen[m.Name] = true
		if m.Elements <= 0 {
			return fmt.Errorf("memory[%d]: elements must be positive", i)
		}
		if len(m.Values) > m.Elements {
			return fmt.Errorf("memory[%d]: %d values for %d elements", i, len(m.Values), m.Elements)
		}
		switch m.Kind {
		case "", "host", "device", "shared":
		default:
			return fmt.Errorf("memory[%d]: unknown kind %q", i, m.Kind)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	ops := s.Ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: no operation given", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one operation allowed, got %v", index, ops)
	}

	switch ops[0] {
	case OpRequestID:
		if s.RequestID.As == "" {
			return fmt.Errorf("steps[%d]: request_id.as is required", index)
		}
	case OpRecord:
		if err := validateLaunch(index, s.Record.LaunchSpec); err != nil {
			return err
		}
	case OpAppend:
		if err := validateLaunch(index, *s.Append); err != nil {
			return err
		}
	case OpMutate:
		for j, p := range s.Mutate {
			if n := p.kinds(); n != 1 {
				return fmt.Errorf("steps[%d].mutate[%d]: exactly one patch field allowed, got %d", index, j, n)
			}
		}
	case OpTimestamp:
		if s.Timestamp.Event == "" || s.Timestamp.As == "" {
			return fmt.Errorf("steps[%d]: timestamp needs event and as", index)
		}
	case OpFill:
		if s.Fill.Memory == "" {
			return fmt.Errorf("steps[%d]: fill.memory is required", index)
		}
	}
	return nil
}

func validateLaunch(index int, l LaunchSpec) error {
	if l.Kernel == "" {
		return fmt.Errorf("steps[%d]: kernel is required", index)
	}
	for j, a := range l.Args {
		if n := a.kinds(); n != 1 {
			return fmt.Errorf("steps[%d].args[%d]: exactly one of buffer, u32, local, null allowed", index, j)
		}
	}
	for _, dims := range [][]uint32{l.GroupSize, l.GroupCount, l.GlobalOffset} {
		if len(dims) > 3 {
			return fmt.Errorf("steps[%d]: dimensions take at most 3 values", index)
		}
	}
	return nil
}

func (a ArgLiteral) kinds() int {
	n := 0
	if a.Buffer != "" {
		n++
	}
	if a.U32 != nil {
		n++
	}
	if a.Local != 0 {
		n++
	}
	if a.Null {
		n++
	}
	return n
}

func (p PatchSpec) kinds() int {
	n := 0
	if p.SwapKernel != "" {
		n++
	}
	if p.Arg != nil {
		n++
	}
	for _, d := range [][]uint32{p.GroupCount, p.GroupSize, p.GlobalOffset} {
		if d != nil {
			n++
		}
	}
	if p.Signal != "" {
		n++
	}
	if p.Wait != nil {
		n++
	}
	return n
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMemoryEquals:
		if a.Memory == "" {
			return fmt.Errorf("assertions[%d]: memory is required for memory_equals", index)
		}
		if (a.Values == nil) == (a.Value == nil) {
			return fmt.Errorf("assertions[%d]: exactly one of values or value is required for memory_equals", index)
		}
	case AssertCommandValid:
		if a.Command == "" || a.Valid == nil {
			return fmt.Errorf("assertions[%d]: command and valid are required for command_valid", index)
		}
	case AssertTimestampsOrdered:
		if len(a.Stamps) < 2 {
			return fmt.Errorf("assertions[%d]: at least two stamps are required for timestamps_ordered", index)
		}
	case AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	case AssertWaitCycles:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for wait_cycles", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
