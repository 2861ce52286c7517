// Package evalctx implements evaluation contexts (spec.md §7): the small
// closed set of "reasons" a graph can be evaluated for, each with its own
// scratch state but sharing one underlying graph.
package evalctx

import (
	"fmt"
	"sync"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

// Type is one of the graph's evaluation contexts. All is a sentinel used
// only when tagging ("this applies regardless of context"), never a
// context a Manager allocates scratch for.
type Type int

const (
	Viewport Type = iota
	Render
	Bake

	numContextTypes

	// All is DEG_ALL_EVALUATION_CONTEXTS from the original API: -1, meaning
	// "every context", valid only as a tag-time selector.
	All Type = -1
)

// MaxContexts mirrors DEG_MAX_EVALUATION_CONTEXTS: the graph never
// allocates scratch for more than this many concrete contexts at once.
const MaxContexts = int(numContextTypes)

func (t Type) String() string {
	switch t {
	case Viewport:
		return "VIEWPORT"
	case Render:
		return "RENDER"
	case Bake:
		return "BAKE"
	case All:
		return "ALL"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

func (t Type) valid() bool { return t >= Viewport && t < numContextTypes }

// Context is one context's private view of a shared graph: per-operation
// scratch (e.g. cached inputs, last-evaluated time) that must not leak
// between a viewport redraw and a concurrent render, even though both walk
// the same Graph (spec.md §7 "contexts share graph structure but not
// scratch").
type Context struct {
	Type  Type
	Graph *graph.Graph

	mu      sync.RWMutex
	scratch map[*graph.Node]any
}

// Scratch returns n's per-context scratch value and whether one was set.
func (c *Context) Scratch(n *graph.Node) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.scratch[n]
	return v, ok
}

// SetScratch stores n's per-context scratch value.
func (c *Context) SetScratch(n *graph.Node, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scratch[n] = v
}

// ClearScratch drops every scratch entry, without touching the graph
// itself — used when a context is reinitialized for a new evaluation
// (e.g. switching render engines) but kept alive.
func (c *Context) ClearScratch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scratch = make(map[*graph.Node]any)
}

// Manager owns the (at most MaxContexts) live Contexts for one Graph.
type Manager struct {
	mu       sync.Mutex
	g        *graph.Graph
	contexts map[Type]*Context
}

// NewManager creates a Manager over g with no contexts allocated yet.
func NewManager(g *graph.Graph) *Manager {
	return &Manager{g: g, contexts: make(map[Type]*Context)}
}

// Context returns the Context for t, allocating it on first use. It
// returns an error for t == All or any other value outside the closed set
// — All only ever makes sense as a tagging selector, never as something to
// evaluate directly.
func (m *Manager) Context(t Type) (*Context, error) {
	if !t.valid() {
		return nil, fmt.Errorf("evalctx: %s is not a concrete evaluation context", t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contexts[t]; ok {
		return c, nil
	}
	c := &Context{Type: t, Graph: m.g, scratch: make(map[*graph.Node]any)}
	m.contexts[t] = c
	return c, nil
}

// Teardown releases t's scratch state entirely (as opposed to ClearScratch,
// which keeps the Context alive but empty).
func (m *Manager) Teardown(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contexts, t)
}

// TeardownAll releases every live context, e.g. when the graph itself is
// freed.
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts = make(map[Type]*Context)
}

// Active returns the set of context types currently allocated.
func (m *Manager) Active() []Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Type, 0, len(m.contexts))
	for t := range m.contexts {
		out = append(out, t)
	}
	return out
}
