// Package subgraph implements group instancing (spec.md rule 11): a
// SUBGRAPH node wraps a complete nested Graph, built once per group and
// reused across every instance, then spliced into the outer graph so one
// scheduler pass covers both.
package subgraph

import (
	"fmt"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

// Subgraph is the opaque handle a SUBGRAPH node's Node.Inner carries. It
// lives in its own package, not pkg/graph, because it embeds a
// *graph.Graph and pkg/graph must not import back up to it.
type Subgraph struct {
	Group graph.EntityID
	Inner *graph.Graph

	spliced bool // set once Inner has been merged into an outer graph
}

// BuildFunc populates a freshly created inner graph for a group — the
// caller (pkg/build) is responsible for walking the group's members and
// calling the inner graph's Ensure* functions, exactly as it would for a
// top-level scene.
type BuildFunc func(inner *graph.Graph) error

// Attach resolves instanceEntity's SUBGRAPH node under outer, building (and
// caching) the group's inner graph on first use, or reusing a previously
// built one (same group) on every subsequent instance.
//
// The inner graph's time source is linked with a synthetic TIME relation
// from outer's own time source (SPEC_FULL.md §7.2, the resolved Open
// Question for subgraph time propagation) so a frame change tagged on the
// outer root still flushes into every instanced group — without wiring
// every instance's operations to the outer time source individually.
func Attach(outer *graph.Graph, instanceEntity, group graph.EntityID, build BuildFunc) (*graph.Node, error) {
	n, err := outer.EnsureSubgraph(instanceEntity)
	if err != nil {
		return nil, err
	}
	if n.Inner != nil {
		return n, nil // already attached for this instance
	}

	if cached := outer.GroupSubgraph(group); cached != nil {
		sg, ok := cached.Inner.(*Subgraph)
		if !ok {
			return nil, fmt.Errorf("subgraph: cached group node has no Subgraph handle")
		}
		n.Inner = sg
		return n, nil
	}

	inner := graph.New()
	if build != nil {
		if err := build(inner); err != nil {
			return nil, fmt.Errorf("subgraph: building group %v: %w", group, err)
		}
	}
	sg := &Subgraph{Group: group, Inner: inner}
	n.Inner = sg

	if outerTS := outer.TimeSource(); outerTS != nil {
		if _, err := outer.AddRelation(outerTS, inner.TimeSource(), graph.RelTime, "group instance time propagation"); err != nil {
			return nil, err
		}
	}

	outer.SetGroupSubgraph(group, n)
	return n, nil
}

// Splice folds every group's inner graph reachable under outer into outer
// itself, so a single TopoSort/Run covers both (spec.md rule 11's
// evaluation-time requirement: instanced operations execute as part of the
// same scheduling pass as their parent scene, not a separate one).
//
// Splice is idempotent per group: a group already spliced (its inner graph
// already merged) is skipped on a later call even if instanced multiple
// times, since Attach reuses one Subgraph handle across instances.
func Splice(outer *graph.Graph) error {
	spliced := make(map[*graph.Graph]bool)
	for _, n := range outer.Nodes() {
		if n.Kind != graph.KindSubgraph || n.Inner == nil {
			continue
		}
		sg, ok := n.Inner.(*Subgraph)
		if !ok {
			return fmt.Errorf("subgraph: node %s has a non-Subgraph Inner handle", n.Name)
		}
		if sg.spliced || spliced[sg.Inner] {
			continue
		}
		if err := outer.Splice(sg.Inner); err != nil {
			return fmt.Errorf("subgraph: splicing group %v: %w", sg.Group, err)
		}
		spliced[sg.Inner] = true
		sg.spliced = true
	}
	return nil
}
