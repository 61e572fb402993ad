package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/intel/compute-runtime-sub069/internal/compiler"
	"github.com/intel/compute-runtime-sub069/internal/device"
	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
	"github.com/intel/compute-runtime-sub069/internal/store"
)

// Error codes for step failures that do not come from the engine.
const (
	CodeDeadlock    = "DEADLOCK"
	CodeDeviceError = "DEVICE_ERROR"
)

// Harness is the test execution engine. It owns one device, one store and
// the buffers a scenario opens.
type Harness struct {
	ctx      context.Context
	catalog  *compiler.Catalog
	caps     engine.CapabilityTable
	store    *store.Store
	dev      *device.Device
	buffers  map[string]*engine.Buffer
	order    []string // buffer names in open order
	aliases  map[string]map[string]ir.CommandID
	memory   map[string]uint64
	elements map[string]int
	runID    string
}

// Options configures a scenario run.
type Options struct {
	// Store receives the journal. Nil runs against a fresh in-memory store.
	Store *store.Store
	// RunID prefixes journal buffer ids as "<run-id>/<buffer>" so several
	// runs can share one store. Results still name buffers by scenario name.
	RunID string
}

// Run executes a test scenario against the catalog named in the scenario.
func Run(scenario *Scenario) (*Result, error) {
	if scenario.Catalog == "" {
		return nil, fmt.Errorf("scenario %s names no catalog", scenario.Name)
	}
	cat, errs := compiler.LoadCatalog(scenario.Catalog, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load catalog: %w", errs[0])
	}
	return RunWithCatalog(scenario, cat)
}

// RunWithCatalog executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal and a fresh device,
// so results are reproducible: buffer ids are the scenario's buffer names
// and device timestamps come from a logical clock starting at zero.
//
// Execution flow:
// 1. Create fresh in-memory store and device
// 2. Allocate memory and create events
// 3. Execute steps, checking each against expect_error
// 4. Read the journal back and replay it for consistency
// 5. Evaluate assertions
func RunWithCatalog(scenario *Scenario, cat *compiler.Catalog) (*Result, error) {
	return RunWithOptions(scenario, cat, Options{})
}

// RunWithOptions executes a test scenario, journaling into opts.Store when
// one is given.
func RunWithOptions(scenario *Scenario, cat *compiler.Catalog, opts Options) (*Result, error) {
	caps, ok := cat.Device(scenario.Device)
	if !ok {
		return nil, fmt.Errorf("device profile %q not in catalog", scenario.Device)
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	h := &Harness{
		ctx:      context.Background(),
		catalog:  cat,
		caps:     caps,
		store:    st,
		dev:      device.New(caps),
		buffers:  make(map[string]*engine.Buffer),
		aliases:  make(map[string]map[string]ir.CommandID),
		memory:   make(map[string]uint64),
		elements: make(map[string]int),
		runID:    opts.RunID,
	}

	if err := h.setup(scenario); err != nil {
		return nil, fmt.Errorf("failed to set up scenario: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	if err := h.collectJournal(result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Harness: h, Ctx: h.ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) setup(s *Scenario) error {
	for _, m := range s.Memory {
		kind := device.AllocDevice
		if m.Kind != "" {
			kind = device.AllocKind(m.Kind)
		}
		addr, err := h.dev.Memory().Alloc(kind, m.Elements*4)
		if err != nil {
			return fmt.Errorf("memory %s: %w", m.Name, err)
		}
		if err := h.dev.Memory().Fill(addr, m.Fill, m.Elements); err != nil {
			return fmt.Errorf("memory %s: %w", m.Name, err)
		}
		if len(m.Values) > 0 {
			if err := h.dev.Memory().WriteUint32s(addr, m.Values); err != nil {
				return fmt.Errorf("memory %s: %w", m.Name, err)
			}
		}
		h.memory[m.Name] = addr
		h.elements[m.Name] = m.Elements
	}
	for _, e := range s.Events {
		if err := h.dev.Events().Create(ir.EventRef(e)); err != nil {
			return err
		}
	}
	return nil
}

// buffer returns the named buffer, opening it on first use.
func (h *Harness) buffer(name string) *engine.Buffer {
	if b, ok := h.buffers[name]; ok {
		return b
	}
	b := engine.Open(h.caps,
		engine.WithBufferID(h.bufferID(name)),
		engine.WithJournal(h.store),
		engine.WithJournalContext(h.ctx),
	)
	h.buffers[name] = b
	h.order = append(h.order, name)
	h.aliases[name] = make(map[string]ir.CommandID)
	return b
}

// bufferID is the journal id of a scenario buffer.
func (h *Harness) bufferID(name string) string {
	if h.runID == "" {
		return name
	}
	return h.runID + "/" + name
}

// executeStep runs one step. Errors the step is allowed to produce are
// checked against expect_error and recorded in the result; the returned
// error means the scenario itself is malformed.
func (h *Harness) executeStep(index int, step Step, result *Result) error {
	ops := step.Ops()
	if len(ops) != 1 {
		return fmt.Errorf("exactly one operation allowed, got %v", ops)
	}
	ev := TraceEvent{Step: index, Op: ops[0]}

	var opErr error
	switch ev.Op {
	case OpRequestID:
		ev.Buffer = step.BufferName()
		id, err := h.requestID(step)
		if err != nil && !isStepError(err) {
			return err
		}
		ev.Command, opErr = id, err

	case OpRecord:
		ev.Buffer = step.BufferName()
		b := h.buffer(ev.Buffer)
		id, err := h.resolve(ev.Buffer, step.Record.CommandRef)
		if err != nil {
			return err
		}
		l, err := h.launch(step.Record.LaunchSpec)
		if err != nil {
			return err
		}
		ev.Command = id
		opErr = b.Record(id, l)

	case OpAppend:
		ev.Buffer = step.BufferName()
		b := h.buffer(ev.Buffer)
		l, err := h.launch(*step.Append)
		if err != nil {
			return err
		}
		opErr = b.Append(l)

	case OpClose:
		ev.Buffer = step.BufferName()
		opErr = h.buffer(ev.Buffer).Close()

	case OpMutate:
		ev.Buffer = step.BufferName()
		b := h.buffer(ev.Buffer)
		chain, err := h.chain(ev.Buffer, step.Mutate)
		if err != nil {
			return err
		}
		ev.Patches = len(chain)
		opErr = b.ApplyMutations(chain)

	case OpSubmit:
		ev.Buffers = step.Submit
		bufs := make([]*engine.Buffer, len(step.Submit))
		for i, name := range step.Submit {
			b, ok := h.buffers[name]
			if !ok {
				return fmt.Errorf("submit: buffer %q was never opened", name)
			}
			bufs[i] = b
		}
		opErr = h.submit(bufs)

	case OpTimestamp:
		ev.Event = step.Timestamp.Event
		ts, err := h.dev.Events().Timestamp(ir.EventRef(ev.Event))
		if err == nil {
			ev.Start, ev.End = ts.Start, ts.End
			result.Stamps[step.Timestamp.As] = ts
		}
		opErr = err

	case OpResetEvent:
		ev.Event = step.ResetEvent
		opErr = h.dev.Events().HostReset(ir.EventRef(ev.Event))

	case OpHostSignal:
		ev.Event = step.HostSignal
		opErr = h.dev.Events().HostSignal(ir.EventRef(ev.Event), h.dev.Clock())

	case OpFill:
		addr, ok := h.memory[step.Fill.Memory]
		if !ok {
			return fmt.Errorf("fill: unknown memory %q", step.Fill.Memory)
		}
		opErr = h.dev.Memory().Fill(addr, step.Fill.Value, h.elements[step.Fill.Memory])
	}

	ev.Error = errorCode(opErr)
	result.AddTrace(ev)

	switch {
	case opErr == nil && step.ExpectError != "":
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got success", index, ev.Op, step.ExpectError))
	case opErr != nil && step.ExpectError == "":
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", index, ev.Op, opErr))
	case opErr != nil && ev.Error != step.ExpectError:
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %s: %v", index, ev.Op, step.ExpectError, ev.Error, opErr))
	}

	slog.Debug("scenario step",
		"step", index,
		"op", ev.Op,
		"buffer", ev.Buffer,
		"error", ev.Error,
	)
	return nil
}

func (h *Harness) requestID(step Step) (ir.CommandID, error) {
	name := step.BufferName()
	b := h.buffer(name)
	req := step.RequestID

	mask, err := ir.ParseMutationFlags(req.Mutations)
	if err != nil {
		return 0, err
	}
	group := make([]*ir.Kernel, len(req.Group))
	for i, k := range req.Group {
		kern, ok := h.catalog.Kernel(k)
		if !ok {
			return 0, fmt.Errorf("request_id: unknown kernel %q", k)
		}
		group[i] = kern
	}

	id, err := b.RequestID(mask, group...)
	if err != nil {
		return 0, err
	}
	h.aliases[name][req.As] = id
	return id, nil
}

func (h *Harness) submit(bufs []*engine.Buffer) error {
	q := h.dev.NewQueue()
	if err := q.Submit(bufs...); err != nil {
		return err
	}
	return q.Synchronize(h.ctx)
}

// resolve maps a command reference to an id within a buffer.
func (h *Harness) resolve(buffer string, ref CommandRef) (ir.CommandID, error) {
	if ref.Command == "" {
		return ir.CommandID(ref.CommandID), nil
	}
	id, ok := h.aliases[buffer][ref.Command]
	if !ok {
		return 0, fmt.Errorf("buffer %s has no command %q", buffer, ref.Command)
	}
	return id, nil
}

func (h *Harness) launch(spec LaunchSpec) (engine.Launch, error) {
	k, ok := h.catalog.Kernel(spec.Kernel)
	if !ok {
		return engine.Launch{}, fmt.Errorf("unknown kernel %q", spec.Kernel)
	}
	args := make([]ir.ArgValue, len(spec.Args))
	for i, a := range spec.Args {
		v, err := h.argValue(a)
		if err != nil {
			return engine.Launch{}, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = v
	}
	l := engine.Launch{
		Kernel: k,
		Args:   args,
		Shape: ir.DispatchShape{
			GroupSize:  dims(spec.GroupSize, 1),
			GroupCount: dims(spec.GroupCount, 1),
		},
		Offset: dims(spec.GlobalOffset, 0),
		Signal: ir.EventRef(spec.Signal),
	}
	for _, w := range spec.Wait {
		l.Wait = append(l.Wait, ir.EventRef(w))
	}
	return l, nil
}

func (h *Harness) argValue(a ArgLiteral) (ir.ArgValue, error) {
	switch {
	case a.Buffer != "":
		addr, ok := h.memory[a.Buffer]
		if !ok {
			return ir.ArgValue{}, fmt.Errorf("unknown memory %q", a.Buffer)
		}
		return ir.PointerArg(addr), nil
	case a.U32 != nil:
		return ir.Uint32Arg(*a.U32), nil
	case a.Local != 0:
		return ir.LocalArg(a.Local), nil
	default:
		return ir.NullPointerArg(), nil
	}
}

func (h *Harness) chain(buffer string, specs []PatchSpec) (engine.Chain, error) {
	cb := engine.NewChain()
	for i, p := range specs {
		id, err := h.resolve(buffer, p.CommandRef)
		if err != nil {
			return nil, fmt.Errorf("mutate[%d]: %w", i, err)
		}
		switch {
		case p.SwapKernel != "":
			k, ok := h.catalog.Kernel(p.SwapKernel)
			if !ok {
				return nil, fmt.Errorf("mutate[%d]: unknown kernel %q", i, p.SwapKernel)
			}
			cb.SwapKernel(id, k)
		case p.Arg != nil:
			v, err := h.argValue(p.Arg.Value)
			if err != nil {
				return nil, fmt.Errorf("mutate[%d]: %w", i, err)
			}
			cb.SetArg(id, p.Arg.Index, v)
		case p.GroupCount != nil:
			cb.SetGroupCount(id, dims(p.GroupCount, 1))
		case p.GroupSize != nil:
			cb.SetGroupSize(id, dims(p.GroupSize, 1))
		case p.GlobalOffset != nil:
			cb.SetGlobalOffset(id, dims(p.GlobalOffset, 0))
		case p.Signal != "":
			cb.SetSignalEvent(id, ir.EventRef(p.Signal))
		case p.Wait != nil:
			events := make([]ir.EventRef, len(p.Wait))
			for j, w := range p.Wait {
				events[j] = ir.EventRef(w)
			}
			cb.SetWaitEvents(id, events...)
		default:
			return nil, fmt.Errorf("mutate[%d]: no patch field set", i)
		}
	}
	return cb.Build(), nil
}

// collectJournal reads every buffer's journal back from the store and
// replays it. A journal that does not replay cleanly fails the scenario.
func (h *Harness) collectJournal(result *Result) error {
	for _, name := range h.order {
		id := h.bufferID(name)
		entries, err := h.store.ReadJournal(h.ctx, id)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		for _, e := range entries {
			e.BufferID = name
			result.Journal = append(result.Journal, e)
		}

		state, err := h.store.ReplayJournal(h.ctx, id)
		if err != nil {
			return fmt.Errorf("failed to replay journal: %w", err)
		}
		for _, issue := range state.Issues {
			result.AddError(fmt.Sprintf("journal %s seq %d: %s", name, issue.Seq, issue.Message))
		}
	}
	return nil
}

func dims(v []uint32, def uint32) ir.Dim3 {
	d := ir.Dim3{X: def, Y: def, Z: def}
	if len(v) > 0 {
		d.X = v[0]
	}
	if len(v) > 1 {
		d.Y = v[1]
	}
	if len(v) > 2 {
		d.Z = v[2]
	}
	return d
}

// isStepError reports whether err is an outcome a step may legitimately
// produce, as opposed to a malformed scenario.
func isStepError(err error) bool {
	return engine.CodeOf(err) != ""
}

// errorCode maps a step error to the code scenarios match expect_error on.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	if errors.Is(err, device.ErrDeadlock) {
		return CodeDeadlock
	}
	return CodeDeviceError
}
