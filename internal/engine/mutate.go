package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// ApplyMutations applies a chain of patches to recorded commands.
//
// The chain is all or nothing: patches are applied in order to staged
// copies of their target commands, and the copies replace the originals
// only when every patch succeeded. On error the buffer is unchanged and the
// error's "patch" detail names the failing index.
//
// Mutations are accepted only while the buffer is Closed. A successful
// chain makes the buffer unsubmittable until Close is called again.
func (b *Buffer) ApplyMutations(chain Chain) error {
	err := b.applyMutations(chain)
	var target ir.CommandID
	if len(chain) == 1 {
		target = chain[0].Target()
	}
	b.journal(ir.OpMutate, target, chain.Payload(), err)
	return err
}

func (b *Buffer) applyMutations(chain Chain) error {
	if b.state != StateClosed {
		return newError(ErrCodeInvalidState, 0, "mutations are only accepted after close")
	}
	if len(chain) == 0 {
		return nil
	}

	staged := make(map[ir.CommandID]*Command)
	var order []ir.CommandID
	for i, p := range chain {
		if p == nil {
			return newError(ErrCodeInvalidArgument, 0, "patch %d is nil", i).
				withDetail("patch", strconv.Itoa(i))
		}
		c, ok := staged[p.Target()]
		if !ok {
			orig, err := b.lookup(p.Target())
			if err != nil {
				return err.(*Error).withDetail("patch", strconv.Itoa(i))
			}
			c = orig.clone()
			staged[p.Target()] = c
			order = append(order, p.Target())
		}
		if err := applyPatch(c, p); err != nil {
			return err.withDetail("patch", strconv.Itoa(i)).withDetail("kind", string(p.Kind()))
		}
		slog.Debug("patch staged",
			"buffer", b.id,
			"command", p.Target(),
			"kind", p.Kind(),
		)
	}

	for _, id := range order {
		if err := staged[id].Shape.CheckGlobalSize(); err != nil {
			return newError(ErrCodeInvalidArgument, id, "%v", err)
		}
	}

	invalidated := 0
	for _, id := range order {
		c := staged[id]
		c.refresh()
		if !c.valid {
			invalidated++
		}
		b.commands[b.byID[id]] = c
	}
	b.dirty = true

	slog.Info("mutation chain applied",
		"buffer", b.id,
		"patches", len(chain),
		"commands", len(order),
		"invalid", invalidated,
	)
	return nil
}

func applyPatch(c *Command, p ir.Patch) *Error {
	id := c.ID
	if !c.Grant.Mask.Has(p.Requires()) {
		return newError(ErrCodeMutationNotRequested, id,
			"%s patch needs %s, command was granted %s", p.Kind(), p.Requires(), c.Grant.Mask)
	}

	switch v := p.(type) {
	case ir.KernelSwap:
		if v.Kernel == nil || !c.Grant.InGroup(v.Kernel) {
			return newError(ErrCodeKernelNotInGroup, id, "kernel %s is not in the command's kernel group", v.Kernel)
		}
		if v.Kernel == c.Kernel {
			return nil
		}
		if v.Kernel.NumArgs() > 0 && !c.Grant.Mask.Has(ir.MutateArgumentValues) {
			return newError(ErrCodeMutationNotRequested, id,
				"kernel %s takes arguments but the command cannot patch argument values", v.Kernel)
		}
		if !c.Grant.Mask.Has(ir.MutateGroupSize) {
			if err := v.Kernel.CheckGroupSize(c.Shape.GroupSize); err != nil {
				return newError(ErrCodeInvalidArgument, id, "recorded %v", err)
			}
		}
		c.swapKernel(v.Kernel)

	case ir.ArgumentPatch:
		if err := c.Kernel.CheckArg(v.Index, v.Value); err != nil {
			return newError(ErrCodeInvalidArgument, id, "%v", err).withDetail("index", strconv.Itoa(v.Index))
		}
		c.Args[v.Index] = v.Value.Clone()
		c.argSet[v.Index] = true

	case ir.GroupCountPatch:
		c.Shape.GroupCount = v.Count
		c.pending &^= ir.MutateGroupCount

	case ir.GroupSizePatch:
		if err := c.Kernel.CheckGroupSize(v.Size); err != nil {
			return newError(ErrCodeInvalidArgument, id, "%v", err)
		}
		c.Shape.GroupSize = v.Size
		c.pending &^= ir.MutateGroupSize

	case ir.GlobalOffsetPatch:
		c.Offset = v.Offset

	case ir.SignalEventPatch:
		if c.Signal == "" {
			return newError(ErrCodeInvalidArgument, id, "command was recorded without a signal event")
		}
		if v.Event == "" {
			return newError(ErrCodeInvalidArgument, id, "signal event cannot be rebound to nothing")
		}
		c.Signal = v.Event

	case ir.WaitEventsPatch:
		if len(v.Events) > len(c.Wait) {
			return newError(ErrCodeInvalidArgument, id,
				"%d wait events given, command was recorded with %d", len(v.Events), len(c.Wait))
		}
		if i := slices.Index(v.Events, ""); i >= 0 {
			return newError(ErrCodeInvalidArgument, id, "wait event %d is empty", i)
		}
		copy(c.Wait, v.Events)

	default:
		return newError(ErrCodeInvalidArgument, id, "unknown patch type %s", fmt.Sprintf("%T", p))
	}
	return nil
}
