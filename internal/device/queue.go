package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/intel/compute-runtime-sub069/internal/engine"
	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// ErrDeadlock is returned by Synchronize when no pending command can run.
var ErrDeadlock = errors.New("queue deadlocked")

// stream is one submitted buffer. Commands in a stream run in record
// order. Streams of different buffers are independent and may interleave;
// repeated submissions of one buffer run in submission order.
type stream struct {
	buffer   string
	node     string // buffer id, suffixed "@n" for the n-th pending submission
	commands []engine.Command
	next     int
}

func (s *stream) done() bool { return s.next >= len(s.commands) }

// Queue accepts closed buffers and runs them on Synchronize.
type Queue struct {
	dev     *Device
	streams []*stream
}

// NewQueue creates an empty queue on d.
func (d *Device) NewQueue() *Queue {
	return &Queue{dev: d}
}

// Submit snapshots buffers for execution. Each buffer must be submittable;
// when any is not, nothing is enqueued. Later mutations to a buffer do not
// affect a submission already made.
func (q *Queue) Submit(buffers ...*engine.Buffer) error {
	for _, b := range buffers {
		if err := b.Submittable(); err != nil {
			return fmt.Errorf("submit buffer %s: %w", b.ID(), err)
		}
	}
	for _, b := range buffers {
		s := &stream{buffer: b.ID(), node: b.ID(), commands: b.Commands()}
		if n := q.submissions(b.ID()); n > 0 {
			s.node = fmt.Sprintf("%s@%d", b.ID(), n+1)
		}
		q.streams = append(q.streams, s)
		slog.Debug("buffer submitted", "buffer", b.ID(), "commands", len(b.Commands()))
	}
	return nil
}

func (q *Queue) submissions(buffer string) int {
	n := 0
	for _, s := range q.streams {
		if s.buffer == buffer {
			n++
		}
	}
	return n
}

// predecessor returns the closest earlier unfinished submission of the
// same buffer as streams[i], or nil.
func (q *Queue) predecessor(i int) *stream {
	for j := i - 1; j >= 0; j-- {
		p := q.streams[j]
		if p.buffer == q.streams[i].buffer && !p.done() {
			return p
		}
	}
	return nil
}

// Pending returns the number of commands not yet executed.
func (q *Queue) Pending() int {
	n := 0
	for _, s := range q.streams {
		n += len(s.commands) - s.next
	}
	return n
}

// Synchronize executes every pending command. A command runs only after
// all of its wait events are signaled; its signal event is set once it
// finishes. When no stream can make progress Synchronize fails and the
// remaining commands stay queued.
func (q *Queue) Synchronize(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		progressed := false
		remaining := false
		for i, s := range q.streams {
			if q.predecessor(i) != nil {
				remaining = remaining || !s.done()
				continue
			}
			for !s.done() {
				c := &s.commands[s.next]
				ready, err := q.ready(c)
				if err != nil {
					return fmt.Errorf("buffer %s command %d: %w", s.buffer, s.next, err)
				}
				if !ready {
					break
				}
				if err := q.execute(s, c); err != nil {
					return err
				}
				s.next++
				progressed = true
			}
			if !s.done() {
				remaining = true
			}
		}
		if !remaining {
			q.streams = nil
			return nil
		}
		if !progressed {
			return q.deadlock()
		}
	}
}

func (q *Queue) ready(c *engine.Command) (bool, error) {
	for _, w := range c.Wait {
		ok, err := q.dev.events.Query(w)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (q *Queue) execute(s *stream, c *engine.Command) error {
	ts, err := q.dev.run(c)
	if err != nil {
		return fmt.Errorf("buffer %s command %d: %w", s.buffer, s.next, err)
	}
	if c.Signal != "" {
		if err := q.dev.events.signal(c.Signal, ts); err != nil {
			return fmt.Errorf("buffer %s command %d: %w", s.buffer, s.next, err)
		}
	}
	slog.Debug("command executed",
		"buffer", s.buffer,
		"index", s.next,
		"command", c.ID,
		"kernel", c.Kernel.Name,
		"signal", c.Signal,
	)
	return nil
}

func (q *Queue) deadlock() error {
	var blocked []string
	for i, s := range q.streams {
		if s.done() {
			continue
		}
		if p := q.predecessor(i); p != nil {
			blocked = append(blocked, fmt.Sprintf("%s[%d] waits for submission %s", s.node, s.next, p.node))
			continue
		}
		c := s.commands[s.next]
		var waiting []ir.EventRef
		for _, w := range c.Wait {
			if ok, _ := q.dev.events.Query(w); !ok {
				waiting = append(waiting, w)
			}
		}
		blocked = append(blocked, fmt.Sprintf("%s[%d] waits on %v", s.node, s.next, waiting))
	}
	for _, cycle := range engine.AnalyzeWaitCycles(q.waitGraph()) {
		blocked = append(blocked, cycle.Message)
	}
	return fmt.Errorf("%w: %s", ErrDeadlock, strings.Join(blocked, "; "))
}

// waitGraph links each pending command to its predecessor in the stream,
// the first command of a resubmission to the last command of the earlier
// submission, and every command to the pending commands that signal its
// unsignaled wait events.
func (q *Queue) waitGraph() *engine.WaitGraph {
	g := engine.NewWaitGraph()
	producers := make(map[ir.EventRef][]string)
	for si, s := range q.streams {
		for i := s.next; i < len(s.commands); i++ {
			n := engine.NodeName(s.node, i)
			g.AddNode(n)
			if i > s.next {
				g.AddWait(n, engine.NodeName(s.node, i-1))
			} else if p := q.predecessor(si); p != nil {
				g.AddWait(n, engine.NodeName(p.node, len(p.commands)-1))
			}
			if sig := s.commands[i].Signal; sig != "" {
				producers[sig] = append(producers[sig], n)
			}
		}
	}
	for _, s := range q.streams {
		for i := s.next; i < len(s.commands); i++ {
			for _, w := range s.commands[i].Wait {
				if ok, _ := q.dev.events.Query(w); ok {
					continue
				}
				for _, p := range producers[w] {
					g.AddWait(engine.NodeName(s.node, i), p)
				}
			}
		}
	}
	return g
}
