package device

import (
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/engine"
)

// Device executes engine buffers on host memory.
type Device struct {
	caps   engine.CapabilityTable
	mem    *Memory
	events *Events
	clock  *engine.Clock
	bodies map[string]Body
}

// Option configures a Device.
type Option func(*Device)

// WithClock sets the clock timestamps are drawn from.
func WithClock(c *engine.Clock) Option {
	return func(d *Device) {
		d.clock = c
	}
}

// WithBody registers or replaces the body for a kernel name.
func WithBody(name string, body Body) Option {
	return func(d *Device) {
		d.bodies[name] = body
	}
}

// New creates a device reporting caps, with the builtin kernel bodies.
func New(caps engine.CapabilityTable, opts ...Option) *Device {
	d := &Device{
		caps:   caps,
		mem:    NewMemory(),
		events: newEvents(),
		clock:  engine.NewClock(),
		bodies: Builtins(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Capabilities returns the mutation kinds the device supports.
func (d *Device) Capabilities() engine.CapabilityTable { return d.caps }

// Memory returns the device address space.
func (d *Device) Memory() *Memory { return d.mem }

// Events returns the device event pool.
func (d *Device) Events() *Events { return d.events }

// Clock returns the timestamp clock.
func (d *Device) Clock() *engine.Clock { return d.clock }

// HasBody reports whether the device can run a kernel with this name.
func (d *Device) HasBody(name string) bool {
	_, ok := d.bodies[name]
	return ok
}

func (d *Device) run(c *engine.Command) (KernelTimestamp, error) {
	body, ok := d.bodies[c.Kernel.Name]
	if !ok {
		return KernelTimestamp{}, fmt.Errorf("no body for kernel %s", c.Kernel.Name)
	}
	start := d.clock.Next()
	l := &Launch{
		Kernel: c.Kernel,
		Args:   c.Args,
		Shape:  c.Shape,
		Offset: c.Offset,
		Mem:    d.mem,
	}
	if err := body(l); err != nil {
		return KernelTimestamp{}, fmt.Errorf("kernel %s: %w", c.Kernel.Name, err)
	}
	return KernelTimestamp{Start: start, End: d.clock.Next()}, nil
}
