package device

import (
	"fmt"
	"sort"
	"sync"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// KernelTimestamp is the logical start and end of the launch that last
// signaled an event.
type KernelTimestamp struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Event is a host-visible completion flag.
type Event struct {
	Name      ir.EventRef
	Signaled  bool
	Timestamp KernelTimestamp
}

// Events is the event pool of a device.
type Events struct {
	mu     sync.Mutex
	events map[ir.EventRef]*Event
}

func newEvents() *Events {
	return &Events{events: make(map[ir.EventRef]*Event)}
}

// Create adds an unsignaled event.
func (p *Events) Create(name ir.EventRef) error {
	if name == "" {
		return fmt.Errorf("event name is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.events[name]; ok {
		return fmt.Errorf("event %q already exists", name)
	}
	p.events[name] = &Event{Name: name}
	return nil
}

// Destroy removes an event. Commands still referencing it fail at execution.
func (p *Events) Destroy(name ir.EventRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.events[name]; !ok {
		return fmt.Errorf("unknown event %q", name)
	}
	delete(p.events, name)
	return nil
}

func (p *Events) get(name ir.EventRef) (*Event, error) {
	e, ok := p.events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}
	return e, nil
}

// Query reports whether the event is signaled.
func (p *Events) Query(name ir.EventRef) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.get(name)
	if err != nil {
		return false, err
	}
	return e.Signaled, nil
}

// HostReset clears the signaled state and timestamp.
func (p *Events) HostReset(name ir.EventRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.get(name)
	if err != nil {
		return err
	}
	e.Signaled = false
	e.Timestamp = KernelTimestamp{}
	return nil
}

// HostSignal signals the event from the host, stamped with the next tick.
func (p *Events) HostSignal(name ir.EventRef, clock *engine.Clock) error {
	t := clock.Next()
	return p.signal(name, KernelTimestamp{Start: t, End: t})
}

func (p *Events) signal(name ir.EventRef, ts KernelTimestamp) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.get(name)
	if err != nil {
		return err
	}
	e.Signaled = true
	e.Timestamp = ts
	return nil
}

// Timestamp returns the kernel timestamp of a signaled event.
func (p *Events) Timestamp(name ir.EventRef) (KernelTimestamp, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.get(name)
	if err != nil {
		return KernelTimestamp{}, err
	}
	if !e.Signaled {
		return KernelTimestamp{}, fmt.Errorf("event %q is not signaled", name)
	}
	return e.Timestamp, nil
}

// Names returns all event names, sorted.
func (p *Events) Names() []ir.EventRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ir.EventRef, 0, len(p.events))
	for n := range p.events {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
