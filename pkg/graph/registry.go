package graph

import "fmt"

// Descriptor is the per-kind vtable described in spec.md §4.A: Init
// populates kind-specific fields, AddToGraph stitches the node into its
// parent's index (this is where hierarchy is wired — see hierarchy.go),
// RemoveFromGraph is its inverse, ValidateLinks enforces kind-specific
// implicit constraints (§4.G), and Free releases kind-specific extensions
// (the registry never frees edge lists; the graph does, in Graph.Free).
//
// SizeHint is vestigial: it mirrors the C original's nti->size (bytes to
// MEM_callocN for a node of this kind) but Go's GC makes per-kind manual
// sizing unnecessary — every Node is the same Go struct regardless of
// Kind. It is kept only as documentation of roughly how much a given kind
// "costs" and is never used to allocate anything.
type Descriptor struct {
	Kind            Kind
	SizeHint        uintptr
	Init            func(n *Node)
	AddToGraph      func(g *Graph, n *Node) error
	RemoveFromGraph func(g *Graph, n *Node)
	ValidateLinks   func(g *Graph, n *Node) error
	Free            func(n *Node)
}

var (
	registry       [numKinds]*Descriptor
	registryFrozen bool
)

// RegisterNodeTypes populates the global registry. It corresponds to
// DEG_register_node_types in spec.md §6 and must be called once at process
// start, before any Graph is built; the registry is frozen (read-only) for
// the remainder of execution.
//
// Calling it again after FreeNodeTypes is safe (tests do this routinely);
// calling it while already frozen is a no-op.
func RegisterNodeTypes() {
	if registryFrozen {
		return
	}
	for k := Kind(0); k < numKinds; k++ {
		registry[k] = defaultDescriptor(k)
	}
	registryFrozen = true
}

// FreeNodeTypes clears the registry (DEG_free_node_types, §6). Intended for
// process shutdown; also used by tests that want a clean registry.
func FreeNodeTypes() {
	for k := range registry {
		registry[k] = nil
	}
	registryFrozen = false
}

func descriptorFor(k Kind) (*Descriptor, error) {
	if k < 0 || k >= numKinds {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, k)
	}
	if !registryFrozen {
		// Builder/tests are expected to call RegisterNodeTypes() during
		// setup; auto-registering here keeps single-file examples and
		// table-driven tests from having to remember the boilerplate.
		RegisterNodeTypes()
	}
	d := registry[k]
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
	return d, nil
}

func defaultDescriptor(k Kind) *Descriptor {
	d := &Descriptor{Kind: k, SizeHint: 96}
	switch {
	case k == KindRoot:
		d.SizeHint = 64
	case k.IsStructural():
		d.SizeHint = 80
	case k.IsComponent():
		d.SizeHint = 96
	case k.IsOperation():
		d.SizeHint = 112
	}

	d.Init = func(n *Node) {
		switch n.Kind {
		case KindIDRef:
			n.components = make(map[Kind]*Node)
		case KindEvalPose:
			n.operations = make(map[string]*Node)
			n.bones = make(map[string]*Node)
		default:
			if n.Kind.IsComponent() || n.Kind == KindBone {
				n.operations = make(map[string]*Node)
			}
		}
	}

	d.AddToGraph = func(g *Graph, n *Node) error { return defaultAddToGraph(g, n) }
	d.RemoveFromGraph = func(g *Graph, n *Node) { defaultRemoveFromGraph(g, n) }
	d.ValidateLinks = func(g *Graph, n *Node) error { return defaultValidateLinks(g, n) }
	d.Free = func(n *Node) {
		n.components = nil
		n.bones = nil
		n.operations = nil
		n.CtxPtr = nil
		n.Inner = nil
	}
	return d
}
