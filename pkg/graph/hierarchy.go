package graph

import "fmt"

// defaultAddToGraph stitches a freshly created node into its owner's index.
// It is the same function for every kind (registry.go wires every
// Descriptor.AddToGraph to it) because the indexing rule is uniform once
// expressed in terms of stratum: an ID_REF is indexed by entity on the
// graph itself; everything else is indexed on its owner, which the caller
// (the Ensure* wrappers below) sets on n.Owner before calling this.
//
// Structural singletons (ROOT, TIMESOURCE) never reach here — they are
// created directly by New() — so the only structural kind this sees is
// SUBGRAPH, indexed exactly like a component.
func defaultAddToGraph(g *Graph, n *Node) error {
	switch {
	case n.Kind == KindIDRef:
		if n.Entity == nil {
			return &LinkError{Node: n, Reason: "ID_REF requires a non-nil entity"}
		}
		if _, exists := g.byEntity[n.Entity]; exists {
			return &LinkError{Node: n, Reason: "duplicate ID_REF for entity", Wrapped: ErrDuplicateNode}
		}
		n.Owner = g.root
		g.byEntity[n.Entity] = n
		return nil

	case n.Kind == KindSubgraph || (n.Kind.IsComponent() && n.Kind != KindBone):
		if n.Owner == nil || n.Owner.Kind != KindIDRef {
			return &LinkError{Node: n, Reason: "component/subgraph requires an ID_REF owner", Wrapped: ErrMissingOwner}
		}
		if n.Owner.components == nil {
			n.Owner.components = make(map[Kind]*Node)
		}
		if existing, ok := n.Owner.components[n.Kind]; ok && existing != n {
			return &LinkError{Node: n, Reason: "duplicate component for this entity", Wrapped: ErrDuplicateNode}
		}
		n.Owner.components[n.Kind] = n
		return nil

	case n.Kind == KindBone:
		if n.Owner == nil || n.Owner.Kind != KindEvalPose {
			return &LinkError{Node: n, Reason: "BONE requires an EVAL_POSE owner", Wrapped: ErrMissingOwner}
		}
		if n.Owner.bones == nil {
			n.Owner.bones = make(map[string]*Node)
		}
		n.Owner.bones[n.Name] = n
		return nil

	case n.Kind.IsOperation():
		wantOwnerKind := opComponentKind[n.Kind]
		if n.Kind == KindOpBone {
			wantOwnerKind = KindBone
		}
		if n.Owner == nil || n.Owner.Kind != wantOwnerKind {
			return &LinkError{Node: n, Reason: fmt.Sprintf("%s requires a %s owner", n.Kind, wantOwnerKind), Wrapped: ErrMissingOwner}
		}
		if n.Owner.operations == nil {
			n.Owner.operations = make(map[string]*Node)
		}
		if _, exists := n.Owner.operations[n.Name]; !exists {
			n.Owner.opOrder = append(n.Owner.opOrder, n.Name)
		}
		n.Owner.operations[n.Name] = n
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, n.Kind)
	}
}

// defaultRemoveFromGraph is the inverse of defaultAddToGraph: it drops n
// from whichever index owns it. Edge cleanup is handled separately by
// Graph.RemoveNode, since it is uniform across all kinds.
func defaultRemoveFromGraph(g *Graph, n *Node) {
	switch {
	case n.Kind == KindIDRef:
		delete(g.byEntity, n.Entity)
	case n.Kind == KindSubgraph || (n.Kind.IsComponent() && n.Kind != KindBone):
		if n.Owner != nil && n.Owner.components != nil {
			delete(n.Owner.components, n.Kind)
		}
	case n.Kind == KindBone:
		if n.Owner != nil && n.Owner.bones != nil {
			delete(n.Owner.bones, n.Name)
		}
	case n.Kind.IsOperation():
		if n.Owner != nil && n.Owner.operations != nil {
			delete(n.Owner.operations, n.Name)
			for i, name := range n.Owner.opOrder {
				if name == n.Name {
					n.Owner.opOrder = append(n.Owner.opOrder[:i], n.Owner.opOrder[i+1:]...)
					break
				}
			}
		}
	}
}

// EnsureIDRef returns the ID_REF for entity, creating it (and wiring it
// under root) if missing.
func (g *Graph) EnsureIDRef(entity EntityID) (*Node, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: entity must be non-nil", ErrMissingOwner)
	}
	return g.Get(KindIDRef, entity, "")
}

// EnsureComponent returns entity's component of the given kind, creating
// the ID_REF and the component itself as needed — this is the get-or-create
// policy from spec.md §4.C ("materializes missing ancestors transparently").
func (g *Graph) EnsureComponent(entity EntityID, kind Kind) (*Node, error) {
	if !kind.IsComponent() && kind != KindSubgraph {
		return nil, fmt.Errorf("%w: %s is not a component kind", ErrUnknownKind, kind)
	}
	idref, err := g.EnsureIDRef(entity)
	if err != nil {
		return nil, err
	}
	if existing := idref.components[kind]; existing != nil {
		return existing, nil
	}
	desc, err := descriptorFor(kind)
	if err != nil {
		return nil, err
	}
	n := newNode(kind, kind.String(), entity)
	n.Owner = idref
	if desc.Init != nil {
		desc.Init(n)
	}
	if err := defaultAddToGraph(g, n); err != nil {
		return nil, err
	}
	g.nodes = append(g.nodes, n)
	g.topoValid = false
	return n, nil
}

// EnsureSubgraph returns entity's SUBGRAPH node, creating it if missing.
// The caller (pkg/build / pkg/subgraph) is responsible for populating
// Node.Inner with the nested *subgraph.Subgraph.
func (g *Graph) EnsureSubgraph(entity EntityID) (*Node, error) {
	return g.EnsureComponent(entity, KindSubgraph)
}

// EnsureOperation returns the named operation under entity's component of
// compKind, creating the ID_REF, component, and operation as needed.
func (g *Graph) EnsureOperation(entity EntityID, compKind Kind, opKind Kind, name string) (*Node, error) {
	if !opKind.IsOperation() || opKind == KindOpBone {
		return nil, fmt.Errorf("%w: %s is not a non-bone operation kind", ErrUnknownKind, opKind)
	}
	comp, err := g.EnsureComponent(entity, compKind)
	if err != nil {
		return nil, err
	}
	if existing := comp.operations[name]; existing != nil {
		return existing, nil
	}
	n := newNode(opKind, name, entity)
	n.Owner = comp
	if err := defaultAddToGraph(g, n); err != nil {
		return nil, err
	}
	g.nodes = append(g.nodes, n)
	g.topoValid = false
	return n, nil
}

// EnsureBone returns the named bone component under entity's EVAL_POSE,
// creating the ID_REF, EVAL_POSE, and bone as needed.
func (g *Graph) EnsureBone(entity EntityID, boneName string) (*Node, error) {
	pose, err := g.EnsureComponent(entity, KindEvalPose)
	if err != nil {
		return nil, err
	}
	if existing := pose.bones[boneName]; existing != nil {
		return existing, nil
	}
	n := newNode(KindBone, boneName, entity)
	n.Owner = pose
	n.operations = make(map[string]*Node)
	if err := defaultAddToGraph(g, n); err != nil {
		return nil, err
	}
	g.nodes = append(g.nodes, n)
	g.topoValid = false
	return n, nil
}

// EnsureBoneOperation returns the named OP_BONE under (entity, boneName),
// creating every ancestor as needed.
func (g *Graph) EnsureBoneOperation(entity EntityID, boneName, opName string) (*Node, error) {
	bone, err := g.EnsureBone(entity, boneName)
	if err != nil {
		return nil, err
	}
	if existing := bone.operations[opName]; existing != nil {
		return existing, nil
	}
	n := newNode(KindOpBone, opName, entity)
	n.Owner = bone
	if err := defaultAddToGraph(g, n); err != nil {
		return nil, err
	}
	g.nodes = append(g.nodes, n)
	g.topoValid = false
	return n, nil
}
