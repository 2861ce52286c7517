// Package tag implements dirty tagging and flush propagation over a
// dependency graph (spec.md §5): marking operations that need
// re-evaluation, and propagating that dirtiness forward along the edges
// that mean "produces data this depends on".
package tag

import (
	"fmt"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

// PropertyResolver resolves a host-specific property path (e.g.
// "object.location.x") to the operation node whose evaluation would change
// that property's value. Resolving property paths to nodes is out of
// scope for this package (spec.md Non-goals: "no property-path resolver
// implementation") — only the interface a host must satisfy is defined
// here.
type PropertyResolver interface {
	Resolve(path string) (*graph.Node, error)
}

// Node marks n dirty. If n is an operation, only n is marked; if n is a
// component, bone, or ID_REF, every operation it owns (transitively, for
// ID_REF/EVAL_POSE) is marked.
func Node(n *graph.Node) {
	if n == nil {
		return
	}
	forEachOperation(n, func(op *graph.Node) { op.SetFlag(graph.FlagDirty, true) })
}

// Entity marks every operation belonging to entity's ID_REF dirty —
// "tag whole datablock" in spec.md §5.
func Entity(g *graph.Graph, entity graph.EntityID) error {
	idref, err := g.Find(graph.KindIDRef, entity, "")
	if err != nil {
		return err
	}
	if idref == nil {
		return fmt.Errorf("tag: no ID_REF for entity %v", entity)
	}
	Node(idref)
	return nil
}

// ByPropertyReference resolves path via resolver and tags the node it
// names. It is the mechanism a host uses to tag "this one driven property
// changed" without the host needing to know graph internals.
func ByPropertyReference(resolver PropertyResolver, path string) error {
	n, err := resolver.Resolve(path)
	if err != nil {
		return fmt.Errorf("tag: resolving %q: %w", path, err)
	}
	if n == nil {
		return fmt.Errorf("tag: %q did not resolve to a node", path)
	}
	Node(n)
	return nil
}

// AllVisible tags every operation reachable from entities the host
// considers currently visible. visible lists the entities; it does not
// clear tags already set for non-visible entities — a resolved Open
// Question (SPEC_FULL.md §7.4): "all visible update" only adds tags, it
// never clears prior ones.
func AllVisible(g *graph.Graph, visible []graph.EntityID) error {
	for _, e := range visible {
		if err := Entity(g, e); err != nil {
			return err
		}
	}
	return nil
}

// forEachOperation walks n's descendants (components -> bones ->
// operations, or straight to operations for a leaf component) and calls fn
// on every operation found. It also covers the IsLeaf case directly.
func forEachOperation(n *graph.Node, fn func(op *graph.Node)) {
	if n.IsLeaf() {
		fn(n)
		return
	}
	switch n.Kind {
	case graph.KindIDRef:
		for _, comp := range n.Components() {
			forEachOperation(comp, fn)
		}
	default:
		for _, op := range n.Operations() {
			fn(op)
		}
		for _, bone := range n.Bones() {
			forEachOperation(bone, fn)
		}
	}
}
