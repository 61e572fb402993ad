package engine

import (
	"fmt"
	"strings"
)

// WaitCycle is a set of commands that each wait, directly or through
// record order, on another member of the set. Such commands can never run.
type WaitCycle struct {
	Path    []string `json:"path"` // ["b1[0]", "b2[1]", "b1[0]"]
	Message string   `json:"message"`
}

// WaitGraph maps a command node to the nodes it waits on. Nodes are
// named "buffer[index]". Iteration follows insertion order.
type WaitGraph struct {
	nodes []string
	edges map[string][]string
}

// NewWaitGraph returns an empty graph.
func NewWaitGraph() *WaitGraph {
	return &WaitGraph{edges: make(map[string][]string)}
}

// NodeName formats the node for a command position.
func NodeName(buffer string, index int) string {
	return fmt.Sprintf("%s[%d]", buffer, index)
}

// AddNode registers n with no edges.
func (g *WaitGraph) AddNode(n string) {
	if _, ok := g.edges[n]; ok {
		return
	}
	g.nodes = append(g.nodes, n)
	g.edges[n] = []string{}
}

// AddWait records that consumer cannot start before producer finishes.
func (g *WaitGraph) AddWait(consumer, producer string) {
	g.AddNode(consumer)
	g.AddNode(producer)
	g.edges[consumer] = append(g.edges[consumer], producer)
}

// WaitsOn returns the nodes n waits on.
func (g *WaitGraph) WaitsOn(n string) []string {
	return g.edges[n]
}

// Nodes returns every node in insertion order.
func (g *WaitGraph) Nodes() []string {
	return g.nodes
}

// BuildWaitGraph derives the static wait graph of the given buffers: each
// command waits on its predecessor in the same buffer and on every command
// that signals one of its wait events.
func BuildWaitGraph(buffers ...*Buffer) *WaitGraph {
	g := NewWaitGraph()
	for _, b := range buffers {
		for i := range b.commands {
			n := NodeName(b.id, i)
			g.AddNode(n)
			if i > 0 {
				g.AddWait(n, NodeName(b.id, i-1))
			}
		}
	}
	for _, e := range Edges(buffers...) {
		g.AddWait(NodeName(e.Consumer.Buffer, e.Consumer.Index), NodeName(e.Producer.Buffer, e.Producer.Index))
	}
	return g
}

// AnalyzeWaitCycles finds strongly connected components of g and reports
// each component of more than one node, or a node waiting on itself, as a
// cycle. An acyclic graph yields an empty list.
func AnalyzeWaitCycles(g *WaitGraph) []WaitCycle {
	cycles := []WaitCycle{}
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			cycles = append(cycles, sccToCycle(scc, g))
		}
	}
	return cycles
}

func hasSelfLoop(n string, g *WaitGraph) bool {
	for _, w := range g.edges[n] {
		if w == n {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of g.
func tarjanSCC(g *WaitGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range g.nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

func sccToCycle(scc []string, g *WaitGraph) WaitCycle {
	if len(scc) == 1 {
		n := scc[0]
		return WaitCycle{
			Path:    []string{n, n},
			Message: fmt.Sprintf("command waits on itself: %s", n),
		}
	}
	path := cyclePath(scc, g)
	return WaitCycle{
		Path:    path,
		Message: "wait cycle: " + strings.Join(path, " -> "),
	}
}

// cyclePath walks edges inside the component from its earliest inserted
// member until it returns to the start.
func cyclePath(scc []string, g *WaitGraph) []string {
	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}
	start := scc[0]
	for _, n := range g.nodes {
		if member[n] {
			start = n
			break
		}
	}

	path := []string{start}
	visited := map[string]bool{}
	current := start
	for {
		visited[current] = true
		next := ""
		for _, w := range g.edges[current] {
			if member[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
