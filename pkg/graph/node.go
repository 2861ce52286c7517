package graph

import "sync/atomic"

// MaxNameBytes is the hard cap on a node's human-readable name, per spec.md
// §3 ("a human-readable name (<= 64 bytes)").
const MaxNameBytes = 64

// EntityID is an opaque, stable identifier for a scene entity (object,
// mesh, material, armature, ...). The graph treats it only as an
// equality/hash key — never dereferences it, never interprets it.
//
// Concrete hosts use whatever comparable type fits their scene model
// (string, int64, a pointer-shaped handle); depsgraph stores it as `any`
// so it never has to import the host's ID type.
type EntityID = any

// Flag is a bitset of per-node state.
type Flag uint32

const (
	// FlagDirty marks an operation node as needing re-evaluation.
	FlagDirty Flag = 1 << iota
	// FlagVisited is a traversal-visited bit. Nothing in this module sets
	// it (pkg/build keeps its own visited set instead); Clone never copies
	// it, so clones never carry visitation state.
	FlagVisited
	// FlagUsesPython marks a driver operation whose expression is
	// host-evaluated Python (or an equivalent scripting sandbox); the
	// scheduler serializes these under the script lock.
	FlagUsesPython
	// FlagSkipped marks an operation downgraded by a failed predecessor
	// during the current evaluation (§4.G failure policy). Cleared along
	// with FlagDirty by tag.ClearAll.
	FlagSkipped
)

// Node is the universal graph vertex. Every Kind shares this header; the
// few fields relevant only to one stratum (component child-maps, operation
// callback identity, structural singletons) are zero-valued on every node
// that doesn't use them.
//
// Rationale for a single flat struct instead of the C original's per-kind
// allocation + vtable-sized memcpy (DEG_create_node / nti->size): Go's GC
// and static typing make "allocate nti->size bytes and cast" both
// unnecessary and unsafe to imitate. What actually matters behaviorally —
// the registry's Init/Free/AddToGraph/RemoveFromGraph/ValidateLinks hooks
// per kind — is preserved in registry.go and operates on this common type;
// copying is Node.Clone rather than a registry hook. See DESIGN.md for the
// full rationale.
type Node struct {
	Kind   Kind
	Name   string
	Entity EntityID // zero value (nil) for structural nodes with no entity
	Owner  *Node

	InLinks  []*Relation
	OutLinks []*Relation

	// Traversal scratch, reset between topological sorts.
	Valency  int
	LastTime float64

	flags atomic.Uint32

	// Component-stratum: component-kind -> component node (IDRef only) or
	// bone-name -> bone component node (EvalPose only).
	components map[Kind]*Node
	bones      map[string]*Node

	// Operation-name -> operation node, kept on every component/bone node.
	operations map[string]*Node
	// opOrder records the order operations were first added, since
	// validate_links (validate.go) wires implicit OPERATION edges between
	// consecutive operations in insertion order and a map alone would lose it.
	opOrder []string

	// Operation-stratum fields.
	ExecClassV   ExecClass
	CallbackName string
	CtxPtr       any // opaque context pointer, e.g. a resolved property reference

	// ROOT only.
	timeSource *Node

	// SUBGRAPH only: an opaque handle to a *subgraph.Subgraph, set via
	// pkg/subgraph so that pkg/graph never imports pkg/subgraph (it would
	// be a cycle — subgraph.Subgraph embeds a *graph.Graph).
	Inner any
}

func newNode(kind Kind, name string, entity EntityID) *Node {
	if len(name) > MaxNameBytes {
		name = name[:MaxNameBytes]
	}
	return &Node{Kind: kind, Name: name, Entity: entity}
}

// SetFlag sets or clears a flag bit, atomically.
func (n *Node) SetFlag(f Flag, on bool) {
	for {
		old := n.flags.Load()
		var next uint32
		if on {
			next = old | uint32(f)
		} else {
			next = old &^ uint32(f)
		}
		if n.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

// HasFlag reports whether f is set.
func (n *Node) HasFlag(f Flag) bool {
	return n.flags.Load()&uint32(f) != 0
}

// Dirty reports whether the node is tagged for re-evaluation.
func (n *Node) Dirty() bool { return n.HasFlag(FlagDirty) }

// IsLeaf reports whether this is an operation (leaf) node.
func (n *Node) IsLeaf() bool { return n.Kind.IsOperation() }

// Components returns an ID_REF's component-kind -> node map. Callers must
// not mutate the returned map; nil on any node that isn't an ID_REF.
func (n *Node) Components() map[Kind]*Node { return n.components }

// Bones returns an EVAL_POSE's bone-name -> node map. Callers must not
// mutate the returned map; nil on any node that isn't an EVAL_POSE.
func (n *Node) Bones() map[string]*Node { return n.bones }

// Operations returns a component/bone's operation-name -> node map.
// Callers must not mutate the returned map.
func (n *Node) Operations() map[string]*Node { return n.operations }

// CopyContext carries filter criteria for Clone, mirroring the C original's
// FIXME-flagged "subject to filter criteria" copy_data contract. An empty
// CopyContext copies unconditionally.
type CopyContext struct {
	// SkipComponents, if non-nil, excludes component kinds whose predicate
	// returns true from a cloned ID_REF's component map.
	SkipComponents func(Kind) bool
}

// Clone deep-copies a node's kind-specific extensions for use in filter/query
// contexts (spec.md §3: "Nodes may be cloned into filter/query contexts
// without being re-parented; cloned nodes carry empty edge lists").
//
// The clone: carries no Owner, no in/out-links, reset traversal scratch
// (Valency, LastTime), and FlagVisited/FlagDirty/FlagSkipped cleared — a
// query snapshot is not itself subject to re-evaluation.
func (n *Node) Clone(ctx CopyContext) *Node {
	dst := &Node{
		Kind:         n.Kind,
		Name:         n.Name,
		Entity:       n.Entity,
		ExecClassV:   n.ExecClassV,
		CallbackName: n.CallbackName,
		CtxPtr:       n.CtxPtr,
	}
	if n.HasFlag(FlagUsesPython) {
		dst.SetFlag(FlagUsesPython, true)
	}

	if n.components != nil {
		dst.components = make(map[Kind]*Node, len(n.components))
		for k, child := range n.components {
			if ctx.SkipComponents != nil && ctx.SkipComponents(k) {
				continue
			}
			dst.components[k] = child.Clone(ctx)
		}
	}
	if n.bones != nil {
		dst.bones = make(map[string]*Node, len(n.bones))
		for name, b := range n.bones {
			dst.bones[name] = b.Clone(ctx)
		}
	}
	if n.operations != nil {
		dst.operations = make(map[string]*Node, len(n.operations))
		for name, op := range n.operations {
			dst.operations[name] = op.Clone(ctx)
		}
	}
	return dst
}
