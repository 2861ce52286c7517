// Package callback is a named registry of operation-evaluation callbacks,
// generalized from the teacher's Cypher/APOC function registry
// (apoc/registry) to depsgraph operation callbacks.
//
// Actually evaluating an operation — what a TRANSFORM or GEOMETRY callback
// does — is explicitly out of scope (spec.md Non-goals: "no per-operation
// evaluator implementations"). What this package owns is callback
// *identity*: a Node carries a CallbackName, and the scheduler looks it up
// here at dispatch time. A host registers its real evaluators before
// building any graph.
package callback

import (
	"context"
	"fmt"
	"sync"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

// Func is an operation callback: given the context it is running under and
// the operation node itself, it evaluates whatever that operation
// represents and returns an error on failure.
type Func func(ctx context.Context, n *graph.Node) error

// Descriptor describes one registered callback, mirroring the teacher's
// FunctionDescriptor (apoc/registry/registry.go) minus the reflection-based
// Handler — depsgraph callbacks share one fixed signature, so no adapter is
// needed.
type Descriptor struct {
	Name        string
	Category    string
	Fn          Func
	Description string
}

// Registry is a named callback registry; the zero value is not usable, use
// NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	callbacks map[string]*Descriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{callbacks: make(map[string]*Descriptor)}
}

// Register adds a callback under name. It returns an error if name is
// already registered — callbacks are meant to be registered once at host
// startup, not silently overwritten.
func (r *Registry) Register(name, category string, fn Func, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[name]; exists {
		return fmt.Errorf("callback: %q already registered", name)
	}
	r.callbacks[name] = &Descriptor{Name: name, Category: category, Fn: fn, Description: description}
	return nil
}

// Call invokes the callback registered under name. Returns an error if no
// such callback exists — a node whose CallbackName doesn't resolve is a
// build-time bug the scheduler surfaces rather than silently skips.
func (r *Registry) Call(ctx context.Context, name string, n *graph.Node) error {
	r.mu.RLock()
	d, exists := r.callbacks[name]
	r.mu.RUnlock()
	if !exists {
		return fmt.Errorf("callback: %q not registered", name)
	}
	return d.Fn(ctx, n)
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.callbacks[name]
	return d, ok
}

// List returns every registered callback name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for name := range r.callbacks {
		names = append(names, name)
	}
	return names
}

// ListByCategory returns the registered callback names in category.
func (r *Registry) ListByCategory(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0)
	for name, d := range r.callbacks {
		if d.Category == category {
			names = append(names, name)
		}
	}
	return names
}

// Unregister removes a callback.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, name)
}

// Clear removes every registered callback.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = make(map[string]*Descriptor)
}

var global = NewRegistry()

// Register adds fn to the global registry.
func Register(name, category string, fn Func, description string) error {
	return global.Register(name, category, fn, description)
}

// Call invokes a callback from the global registry.
func Call(ctx context.Context, name string, n *graph.Node) error {
	return global.Call(ctx, name, n)
}

// Global returns the package-level default registry.
func Global() *Registry { return global }
