package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// State is the lifecycle state of a Buffer.
type State int

const (
	// StateOpen accepts id requests and recordings.
	StateOpen State = iota
	// StateClosed accepts mutation chains and can be submitted.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Buffer is a recorded command buffer whose commands can be patched after
// close.
//
// A Buffer has a single writer. None of its operations block; only the
// device that executes it waits.
//
// INVARIANTS:
//   - Commands keep record order; mutation never reorders them
//   - A rejected mutation chain leaves every command unchanged
//   - Submittable only when Closed with no mutation since the last Close
type Buffer struct {
	id       string
	caps     CapabilityTable
	registry *Registry
	commands []*Command
	byID     map[ir.CommandID]int // index into commands
	state    State

	// dirty is set by a successful mutation chain and cleared by Close.
	dirty bool

	sink  Journal
	seq   *Clock
	ctx   context.Context
	idGen BufferIDGenerator
}

// BufferOption configures a Buffer at Open.
type BufferOption func(*Buffer)

// WithJournal appends every operation to j.
func WithJournal(j Journal) BufferOption {
	return func(b *Buffer) {
		b.sink = j
	}
}

// WithBufferID sets the buffer id used in the journal.
func WithBufferID(id string) BufferOption {
	return func(b *Buffer) {
		b.id = id
	}
}

// WithIDGenerator draws the buffer id from gen.
//
// Default: UUIDv7Generator.
func WithIDGenerator(gen BufferIDGenerator) BufferOption {
	return func(b *Buffer) {
		b.idGen = gen
	}
}

// WithJournalContext sets the context passed to journal writes.
func WithJournalContext(ctx context.Context) BufferOption {
	return func(b *Buffer) {
		b.ctx = ctx
	}
}

// Open creates an empty buffer in the Open state. The capability table is
// fixed for the buffer's lifetime.
func Open(caps CapabilityTable, opts ...BufferOption) *Buffer {
	b := &Buffer{
		caps:     caps,
		registry: NewRegistry(caps),
		byID:     make(map[ir.CommandID]int),
		state:    StateOpen,
		seq:      NewClock(),
		ctx:      context.Background(),
		idGen:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.id == "" {
		b.id = b.idGen.Generate()
	}

	slog.Debug("buffer opened",
		"buffer", b.id,
		"device", caps.Device,
		"supported", caps.Supported.String(),
	)
	b.journal(ir.OpOpen, 0, caps.Payload(), nil)
	return b
}

// ID returns the buffer id.
func (b *Buffer) ID() string { return b.id }

// State returns the lifecycle state.
func (b *Buffer) State() State { return b.state }

// Capabilities returns the capability table the buffer was opened with.
func (b *Buffer) Capabilities() CapabilityTable { return b.caps }

// Dirty reports whether a mutation chain was applied since the last Close.
func (b *Buffer) Dirty() bool { return b.dirty }

// RequestID issues a command id for a command that may later be mutated.
// kernelGroup, when given, lists the kernels the command may switch between
// and requires KernelInstruction in mask.
func (b *Buffer) RequestID(mask ir.MutationFlags, kernelGroup ...*ir.Kernel) (ir.CommandID, error) {
	id, err := b.requestID(mask, kernelGroup)
	payload := ir.Object{"mask": ir.String(mask.String())}
	if len(kernelGroup) > 0 {
		names := make(ir.Array, len(kernelGroup))
		for i, k := range kernelGroup {
			names[i] = ir.String(k.String())
		}
		payload["group"] = names
	}
	b.journal(ir.OpRequestID, id, payload, err)
	return id, err
}

// RequestIDNoVariant issues a command id without a kernel group.
func (b *Buffer) RequestIDNoVariant(mask ir.MutationFlags) (ir.CommandID, error) {
	return b.RequestID(mask)
}

func (b *Buffer) requestID(mask ir.MutationFlags, group []*ir.Kernel) (ir.CommandID, error) {
	if b.state != StateOpen {
		return 0, newError(ErrCodeInvalidState, 0, "command ids can only be requested while the buffer is open")
	}
	g, err := b.registry.Request(mask, group)
	if err != nil {
		return 0, err
	}
	slog.Debug("command id issued",
		"buffer", b.id,
		"command", g.ID,
		"mask", g.Mask.String(),
		"group", len(g.Group),
	)
	return g.ID, nil
}

// Record appends a launch bound to a previously issued command id.
func (b *Buffer) Record(id ir.CommandID, l Launch) error {
	err := b.record(id, l)
	var payload ir.Object
	if err == nil {
		payload = b.commands[b.byID[id]].payload()
	} else {
		payload = ir.Object{"kernel": ir.String(l.Kernel.String())}
	}
	b.journal(ir.OpRecord, id, payload, err)
	return err
}

func (b *Buffer) record(id ir.CommandID, l Launch) error {
	if b.state != StateOpen {
		return newError(ErrCodeInvalidState, id, "cannot record into a closed buffer")
	}
	grant, ok := b.registry.Lookup(id)
	if !ok {
		return newError(ErrCodeUnknownCommandID, id, "command id was not issued by this buffer")
	}
	if _, dup := b.byID[id]; dup {
		return newError(ErrCodeAlreadyRecorded, id, "command id already has a recorded launch")
	}
	if grant.HasKernelInstruction() && !grant.InGroup(l.Kernel) {
		return newError(ErrCodeKernelNotInGroup, id, "kernel %s is not in the command's kernel group", l.Kernel)
	}
	if err := checkLaunch(id, l); err != nil {
		return err
	}

	b.byID[id] = len(b.commands)
	b.commands = append(b.commands, newCommand(id, grant, l))
	return nil
}

// Append records an immutable launch that has no command id.
func (b *Buffer) Append(l Launch) error {
	err := b.appendLaunch(l)
	var payload ir.Object
	if err == nil {
		payload = b.commands[len(b.commands)-1].payload()
	}
	b.journal(ir.OpAppend, 0, payload, err)
	return err
}

func (b *Buffer) appendLaunch(l Launch) error {
	if b.state != StateOpen {
		return newError(ErrCodeInvalidState, 0, "cannot append to a closed buffer")
	}
	if err := checkLaunch(0, l); err != nil {
		return err
	}
	b.commands = append(b.commands, newCommand(0, Grant{}, l))
	return nil
}

func checkLaunch(id ir.CommandID, l Launch) error {
	if l.Kernel == nil {
		return newError(ErrCodeInvalidArgument, id, "launch has no kernel")
	}
	if len(l.Args) != l.Kernel.NumArgs() {
		return newError(ErrCodeInvalidArgument, id,
			"kernel %s takes %d arguments, launch binds %d", l.Kernel, l.Kernel.NumArgs(), len(l.Args))
	}
	for i, a := range l.Args {
		if err := l.Kernel.CheckArg(i, a); err != nil {
			return newError(ErrCodeInvalidArgument, id, "%v", err)
		}
	}
	if err := l.Kernel.CheckGroupSize(l.Shape.GroupSize); err != nil {
		return newError(ErrCodeInvalidArgument, id, "%v", err)
	}
	if err := l.Shape.CheckGlobalSize(); err != nil {
		return newError(ErrCodeInvalidArgument, id, "%v", err)
	}
	for i, e := range l.Wait {
		if e == "" {
			return newError(ErrCodeInvalidArgument, id, "wait event %d is empty", i)
		}
	}
	return nil
}

// Close finalizes the buffer for submission. It fails with
// NOT_ALL_COMMANDS_VALID while any command still misses arguments or shape
// after a kernel swap; the buffer then stays unsubmittable until a later
// chain completes the command and Close succeeds. Closing a closed buffer
// with no mutation since the last Close does nothing.
func (b *Buffer) Close() error {
	if b.state == StateClosed && !b.dirty {
		return nil
	}
	err := b.close()
	payload := ir.Object{"commands": ir.Int(len(b.commands))}
	b.journal(ir.OpClose, 0, payload, err)
	return err
}

func (b *Buffer) close() error {
	var invalid []string
	var first ir.CommandID
	for _, c := range b.commands {
		if !c.valid {
			if first == 0 {
				first = c.ID
			}
			invalid = append(invalid, fmt.Sprint(c.ID))
		}
	}
	if len(invalid) > 0 {
		return newError(ErrCodeNotAllCommandsValid, first,
			"%d command(s) are missing arguments or dispatch shape", len(invalid)).
			withDetail("invalid", fmt.Sprint(invalid))
	}

	b.state = StateClosed
	b.dirty = false
	slog.Info("buffer closed",
		"buffer", b.id,
		"commands", len(b.commands),
	)
	return nil
}

// Submittable reports whether the buffer may be handed to a queue.
func (b *Buffer) Submittable() error {
	if b.state != StateClosed {
		return newError(ErrCodeInvalidState, 0, "buffer must be closed before submission")
	}
	if b.dirty {
		return newError(ErrCodeInvalidState, 0, "buffer was mutated and must be closed again before submission")
	}
	for _, c := range b.commands {
		if !c.valid {
			return newError(ErrCodeNotAllCommandsValid, c.ID, "command is not valid")
		}
	}
	return nil
}

// Commands returns copies of all commands in record order.
func (b *Buffer) Commands() []Command {
	out := make([]Command, len(b.commands))
	for i, c := range b.commands {
		out[i] = *c.clone()
	}
	return out
}

func (b *Buffer) lookup(id ir.CommandID) (*Command, error) {
	idx, ok := b.byID[id]
	if !ok {
		return nil, newError(ErrCodeUnknownCommandID, id, "no recorded command with this id")
	}
	return b.commands[idx], nil
}

// Command returns a copy of the command recorded with id.
func (b *Buffer) Command(id ir.CommandID) (Command, error) {
	c, err := b.lookup(id)
	if err != nil {
		return Command{}, err
	}
	return *c.clone(), nil
}

// CurrentKernel returns the kernel the command currently launches.
func (b *Buffer) CurrentKernel(id ir.CommandID) (*ir.Kernel, error) {
	c, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	return c.Kernel, nil
}

// DispatchShape returns the command's group size and group count.
func (b *Buffer) DispatchShape(id ir.CommandID) (ir.DispatchShape, error) {
	c, err := b.lookup(id)
	if err != nil {
		return ir.DispatchShape{}, err
	}
	return c.Shape, nil
}

// GlobalOffset returns the command's global work offset.
func (b *Buffer) GlobalOffset(id ir.CommandID) (ir.Dim3, error) {
	c, err := b.lookup(id)
	if err != nil {
		return ir.Dim3{}, err
	}
	return c.Offset, nil
}

// IsValid reports whether the command is complete.
func (b *Buffer) IsValid(id ir.CommandID) (bool, error) {
	c, err := b.lookup(id)
	if err != nil {
		return false, err
	}
	return c.valid, nil
}

// SignalEvent returns the event the command signals, or "".
func (b *Buffer) SignalEvent(id ir.CommandID) (ir.EventRef, error) {
	c, err := b.lookup(id)
	if err != nil {
		return "", err
	}
	return c.Signal, nil
}

// WaitEvents returns the events the command waits on.
func (b *Buffer) WaitEvents(id ir.CommandID) ([]ir.EventRef, error) {
	c, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	return append([]ir.EventRef(nil), c.Wait...), nil
}
