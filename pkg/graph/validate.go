package graph

import "fmt"

// componentCanonicalOrder fixes the within-entity component execution order
// that implicit COMPONENT_ORDER edges are wired against (spec.md §4.D).
// SUBGRAPH is deliberately excluded: a group instance is spliced into the
// schedule by pkg/subgraph, not ordered as a component of its own entity.
var componentCanonicalOrder = []Kind{
	KindParameters,
	KindProxy,
	KindAnimation,
	KindTransform,
	KindGeometry,
	KindEvalPose,
	KindEvalParticles,
}

// defaultValidateLinks performs the per-kind structural checks every node
// must satisfy before a graph can be scheduled: components must still be
// anchored to a live ID_REF, operations to a live component or bone. The
// cross-entity work (implicit edges, cycle detection) lives in the
// package-level ValidateLinks below, since it needs the whole graph, not
// one node at a time.
func defaultValidateLinks(g *Graph, n *Node) error {
	switch {
	case n.Kind == KindIDRef:
		if n.Entity == nil {
			return &LinkError{Node: n, Reason: "ID_REF has lost its entity"}
		}
	case n.Kind.IsComponent() && n.Kind != KindBone:
		if n.Owner == nil || n.Owner.Kind != KindIDRef {
			return &LinkError{Node: n, Reason: "component has no ID_REF owner", Wrapped: ErrMissingOwner}
		}
	case n.Kind == KindBone:
		if n.Owner == nil || n.Owner.Kind != KindEvalPose {
			return &LinkError{Node: n, Reason: "bone has no EVAL_POSE owner", Wrapped: ErrMissingOwner}
		}
	case n.Kind.IsOperation():
		if n.Owner == nil {
			return &LinkError{Node: n, Reason: "operation has no owner", Wrapped: ErrMissingOwner}
		}
	}
	return nil
}

// ValidateLinks runs validate_links over the whole graph (spec.md §4.D,
// §4.G): per-node structural checks, implicit OPERATION/COMPONENT_ORDER
// edge insertion, duplicate-relation coalescing, and cycle detection. It
// must succeed before a graph is scheduled; pkg/schedule's Run calls it
// itself and wraps any failure in ErrValidationFirst.
func ValidateLinks(g *Graph) error {
	for _, n := range g.nodes {
		desc, err := descriptorFor(n.Kind)
		if err != nil {
			return err
		}
		if desc.ValidateLinks != nil {
			if err := desc.ValidateLinks(g, n); err != nil {
				return err
			}
		}
	}

	redirectNonOperationEndpoints(g)
	coalesceDuplicateRelations(g)

	for entity, idref := range g.byEntity {
		if err := wireOperationOrder(g, idref); err != nil {
			return fmt.Errorf("entity %v: %w", entity, err)
		}
		wireComponentOrder(g, idref)
	}

	if cyc := detectCycle(g); cyc != nil {
		return cyc
	}
	return nil
}

// wireOperationOrder adds an implicit OPERATION edge between each
// consecutive pair of operations within every component/bone owned
// (directly or, for EVAL_POSE, transitively through its bones) by idref.
func wireOperationOrder(g *Graph, idref *Node) error {
	for _, comp := range idref.components {
		if err := wireOpsWithin(g, comp); err != nil {
			return err
		}
		if comp.Kind == KindEvalPose {
			for _, bone := range comp.bones {
				if err := wireOpsWithin(g, bone); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func wireOpsWithin(g *Graph, owner *Node) error {
	for i := 1; i < len(owner.opOrder); i++ {
		prev := owner.operations[owner.opOrder[i-1]]
		next := owner.operations[owner.opOrder[i]]
		if prev == nil || next == nil {
			continue
		}
		if hasRelation(prev, next, RelOperation) {
			continue
		}
		if _, err := g.AddRelation(prev, next, RelOperation, "implicit operation order"); err != nil {
			return err
		}
	}
	return nil
}

// wireComponentOrder adds an implicit COMPONENT_ORDER edge between the last
// operation of one present component and the first operation of the next
// present component, following componentCanonicalOrder. Components with no
// operations are skipped entirely — the edge connects the nearest
// operation-bearing neighbors, not necessarily adjacent components.
func wireComponentOrder(g *Graph, idref *Node) {
	var lastOp *Node
	for _, kind := range componentCanonicalOrder {
		comp := idref.components[kind]
		if comp == nil || len(comp.opOrder) == 0 {
			continue
		}
		firstOp := comp.operations[comp.opOrder[0]]
		if lastOp != nil && firstOp != nil && !hasRelation(lastOp, firstOp, RelComponentOrder) {
			g.AddRelation(lastOp, firstOp, RelComponentOrder, "implicit component order")
		}
		lastOp = comp.operations[comp.opOrder[len(comp.opOrder)-1]]
	}
}

// redirectNonOperationEndpoints implements edge redirection (spec.md §4.D):
// a relation whose endpoint is an ID_REF, component, or bone is rewritten
// to point at that node's last operation (as a From) or first operation (as
// a To), so that by the time scheduling runs, every non-diagnostic
// relation connects two operations directly. ROOT and TIMESOURCE endpoints
// are left alone — they are not owners of an operation chain, just
// well-known sources.
func redirectNonOperationEndpoints(g *Graph) {
	for _, r := range append([]*Relation{}, g.relations...) {
		if r.Kind == RelRootToActive {
			continue
		}
		from, fromChanged := redirectEndpoint(r.From, true)
		to, toChanged := redirectEndpoint(r.To, false)
		if !fromChanged && !toChanged {
			continue
		}
		g.RemoveRelation(r)
		if from == nil || to == nil {
			continue // nothing to redirect to (component has no operations)
		}
		g.AddRelation(from, to, r.Kind, r.Description)
	}
}

func redirectEndpoint(n *Node, wantLast bool) (*Node, bool) {
	if n == nil || n.IsLeaf() || !(n.Kind == KindIDRef || n.Kind.IsComponent() || n.Kind == KindBone) {
		return n, false
	}
	return boundaryOp(n, wantLast), true
}

// boundaryOp returns a component/bone/ID_REF's first (wantLast=false) or
// last (wantLast=true) operation, recursing into an ID_REF's components in
// componentCanonicalOrder and an EVAL_POSE's bones.
func boundaryOp(n *Node, wantLast bool) *Node {
	switch {
	case n.Kind == KindIDRef:
		order := componentCanonicalOrder
		if wantLast {
			order = reversedKinds(order)
		}
		for _, kind := range order {
			comp := n.components[kind]
			if comp == nil {
				continue
			}
			if op := boundaryOp(comp, wantLast); op != nil {
				return op
			}
		}
		return nil
	case n.Kind == KindEvalPose:
		if op := boundaryOpFromOrder(n, wantLast); op != nil {
			return op
		}
		for _, bone := range n.bones {
			if op := boundaryOp(bone, wantLast); op != nil {
				return op
			}
		}
		return nil
	default:
		return boundaryOpFromOrder(n, wantLast)
	}
}

func boundaryOpFromOrder(n *Node, wantLast bool) *Node {
	if len(n.opOrder) == 0 {
		return nil
	}
	if wantLast {
		return n.operations[n.opOrder[len(n.opOrder)-1]]
	}
	return n.operations[n.opOrder[0]]
}

func reversedKinds(ks []Kind) []Kind {
	out := make([]Kind, len(ks))
	for i, k := range ks {
		out[len(ks)-1-i] = k
	}
	return out
}

func hasRelation(from, to *Node, kind RelationKind) bool {
	for _, r := range from.OutLinks {
		if r.To == to && r.Kind == kind {
			return true
		}
	}
	return false
}

// HasRelation reports whether a (from, to, kind) relation already exists,
// for callers outside the package (e.g. pkg/build) that want to avoid
// adding duplicate edges before validate_links would coalesce them anyway.
func HasRelation(from, to *Node, kind RelationKind) bool { return hasRelation(from, to, kind) }

// coalesceDuplicateRelations drops exact duplicate (From, To, Kind)
// relations, keeping the first occurrence's Description (spec.md §4.D).
func coalesceDuplicateRelations(g *Graph) {
	seen := make(map[relationKey]*Relation, len(g.relations))
	kept := g.relations[:0]
	for _, r := range g.relations {
		key := r.key()
		if seen[key] != nil {
			removeRelationFromSlice(&r.From.OutLinks, r)
			removeRelationFromSlice(&r.To.InLinks, r)
			continue
		}
		seen[key] = r
		kept = append(kept, r)
	}
	g.relations = kept
	g.relSeen = seen
}

// detectCycle runs a three-color DFS over the whole relation graph looking
// for a back-edge, reporting the first cycle found as a *CycleError
// (spec.md §8 scenario 4). Structural/component nodes participate in the
// search too since implicit COMPONENT_ORDER/OPERATION edges route through
// them via the original relations (e.g. a DATABLOCK edge lands on a
// component, not an operation).
func detectCycle(g *Graph) *CycleError {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*Node]int, len(g.nodes))
	var path []*Relation

	var visit func(n *Node) *CycleError
	visit = func(n *Node) *CycleError {
		color[n] = gray
		for _, r := range n.OutLinks {
			switch color[r.To] {
			case white:
				path = append(path, r)
				if cyc := visit(r.To); cyc != nil {
					return cyc
				}
				path = path[:len(path)-1]
			case gray:
				return &CycleError{Edges: append(append([]*Relation{}, path...), r)}
			}
		}
		color[n] = black
		return nil
	}

	for _, n := range g.nodes {
		if color[n] == white {
			if cyc := visit(n); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}
