package graph

import (
	"fmt"
	"sync"
)

// Graph owns every node and relation for the lifetime of a scene's
// dependency graph (spec.md §3 "Lifecycle"). It is the `B Graph storage`
// component: find/get/add/remove/copy/free over nodes and relations, plus
// the indices that make those O(1) expected.
//
// Structural mutation (adding/removing nodes or relations) requires
// exclusive access (Mu); read-only traversal — including concurrent
// evaluation under multiple EvaluationContexts — is safe against a
// read-locked graph, matching §5's "read-only structural state ... is safe
// to read concurrently".
type Graph struct {
	Mu sync.RWMutex

	nodes     []*Node
	relations []*Relation

	root *Node

	// Primary index: entity -> ID_REF node.
	byEntity map[EntityID]*Node

	// groupSubgraphs caches SUBGRAPH nodes by the group entity they
	// instance, so repeated instancing of one group reuses one inner
	// Subgraph (spec.md rule 11; SPEC_FULL.md §4.3).
	groupSubgraphs map[EntityID]*Node

	relSeen map[relationKey]*Relation // for duplicate coalescing at validate time

	topoOrder []*Node
	topoValid bool
}

// New creates an empty Graph: a ROOT and one anonymous TIMESOURCE, per
// invariant 7 ("exactly one ROOT and at most one anonymous TIMESOURCE exist
// per graph"). RegisterNodeTypes is called automatically if the registry
// hasn't been populated yet.
func New() *Graph {
	if !registryFrozen {
		RegisterNodeTypes()
	}
	g := &Graph{
		byEntity:       make(map[EntityID]*Node),
		groupSubgraphs: make(map[EntityID]*Node),
		relSeen:        make(map[relationKey]*Relation),
	}
	root := newNode(KindRoot, "Root", nil)
	g.root = root
	g.nodes = append(g.nodes, root)

	ts := newNode(KindTimeSource, "TimeSource", nil)
	ts.Owner = root
	root.timeSource = ts
	g.nodes = append(g.nodes, ts)

	return g
}

// Root returns the graph's unique ROOT node.
func (g *Graph) Root() *Node { return g.root }

// TimeSource returns the graph's own time source (not a subgraph's, unless
// g itself is the subgraph's inner graph).
func (g *Graph) TimeSource() *Node { return g.root.timeSource }

// Nodes returns every node currently in the graph. The slice is owned by
// the caller; mutating it does not affect the graph.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Relations returns every relation currently in the graph.
func (g *Graph) Relations() []*Relation {
	out := make([]*Relation, len(g.relations))
	copy(out, g.relations)
	return out
}

// Find resolves (kind, entity, name) to an existing node without creating
// one, mirroring DEG_find_node's per-class dispatch (depsgraph_core.c):
// ROOT and TIMESOURCE are graph singletons; ID_REF consults the primary
// index; component kinds consult the owning ID_REF's component map;
// operation kinds resolve via opComponentKind then the component's
// operation map. BONE and OP_BONE are not reachable through Find — use
// FindBone/FindBoneOperation, since they are keyed by (entity, boneName)
// rather than (entity, name) alone.
func (g *Graph) Find(kind Kind, entity EntityID, name string) (*Node, error) {
	switch {
	case kind == KindRoot:
		return g.root, nil
	case kind == KindTimeSource:
		if entity == nil {
			return g.root.timeSource, nil
		}
		idref := g.byEntity[entity]
		if idref == nil {
			return nil, nil
		}
		return nil, nil // no per-entity TIMESOURCE concept outside subgraphs
	case kind == KindIDRef:
		return g.byEntity[entity], nil
	case kind == KindBone:
		return nil, fmt.Errorf("graph: use FindBone for BONE lookups")
	case kind.IsComponent():
		idref := g.byEntity[entity]
		if idref == nil {
			return nil, nil
		}
		return idref.components[kind], nil
	case kind.IsOperation():
		if kind == KindOpBone {
			return nil, fmt.Errorf("graph: use FindBoneOperation for OP_BONE lookups")
		}
		compKind, ok := opComponentKind[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
		}
		idref := g.byEntity[entity]
		if idref == nil {
			return nil, nil
		}
		comp := idref.components[compKind]
		if comp == nil {
			return nil, nil
		}
		return comp.operations[name], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// FindBone resolves a bone component by (entity, boneName).
func (g *Graph) FindBone(entity EntityID, boneName string) (*Node, error) {
	idref := g.byEntity[entity]
	if idref == nil {
		return nil, nil
	}
	pose := idref.components[KindEvalPose]
	if pose == nil {
		return nil, nil
	}
	return pose.bones[boneName], nil
}

// FindBoneOperation resolves an OP_BONE by (entity, boneName, opName).
func (g *Graph) FindBoneOperation(entity EntityID, boneName, opName string) (*Node, error) {
	bone, err := g.FindBone(entity, boneName)
	if err != nil || bone == nil {
		return nil, err
	}
	return bone.operations[opName], nil
}

// Get is Find with create-on-miss (spec.md §4.B: "get is find with
// create-on-miss"). It is the low-level primitive; hierarchy.go's Ensure*
// wrappers are what the builder actually calls, since they additionally
// materialize missing ancestors (§4.C).
func (g *Graph) Get(kind Kind, entity EntityID, name string) (*Node, error) {
	existing, err := g.Find(kind, entity, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return g.addNew(kind, entity, name)
}

func (g *Graph) addNew(kind Kind, entity EntityID, name string) (*Node, error) {
	desc, err := descriptorFor(kind)
	if err != nil {
		return nil, err
	}
	n := newNode(kind, name, entity)
	if desc.Init != nil {
		desc.Init(n)
	}
	if desc.AddToGraph != nil {
		if err := desc.AddToGraph(g, n); err != nil {
			return nil, err
		}
	}
	g.nodes = append(g.nodes, n)
	g.topoValid = false
	return n, nil
}

// RemoveNode detaches n from its owner's index and drops every relation
// touching it, then releases its kind-specific extensions via the
// registry's Free hook. The node's memory itself is reclaimed by the Go
// garbage collector once unreferenced — there is no separate "free" step
// beyond dropping all owning references, unlike the C original's
// MEM_freeN/BLI_ghash_free calls.
func (g *Graph) RemoveNode(n *Node) error {
	if n == nil || n == g.root {
		return fmt.Errorf("%w", ErrNotInGraph)
	}
	desc, err := descriptorFor(n.Kind)
	if err != nil {
		return err
	}
	if desc.RemoveFromGraph != nil {
		desc.RemoveFromGraph(g, n)
	}

	// Drop every relation touching n from both endpoints and from the
	// graph's relation list (invariant 5: in/out-link lists agree).
	kept := g.relations[:0]
	for _, r := range g.relations {
		if r.From == n || r.To == n {
			removeRelationFromSlice(&r.From.OutLinks, r)
			removeRelationFromSlice(&r.To.InLinks, r)
			delete(g.relSeen, r.key())
			continue
		}
		kept = append(kept, r)
	}
	g.relations = kept

	for i, node := range g.nodes {
		if node == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}

	if desc.Free != nil {
		desc.Free(n)
	}
	g.topoValid = false
	return nil
}

func removeRelationFromSlice(list *[]*Relation, r *Relation) {
	s := *list
	for i, e := range s {
		if e == r {
			*list = append(s[:i], s[i+1:]...)
			return
		}
	}
}

// AddRelation appends a relation to both endpoints' edge lists and to the
// graph's relation list. Duplicates (same From, To, Kind) are allowed —
// ValidateLinks coalesces them, keeping the first Description (spec.md §4.D).
func (g *Graph) AddRelation(from, to *Node, kind RelationKind, description string) (*Relation, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%w: relation endpoints must be non-nil", ErrNotInGraph)
	}
	r := &Relation{From: from, To: to, Kind: kind, Description: description}
	from.OutLinks = append(from.OutLinks, r)
	to.InLinks = append(to.InLinks, r)
	g.relations = append(g.relations, r)
	g.topoValid = false
	return r, nil
}

// RemoveRelation removes a single relation from both endpoints and the
// graph's relation list.
func (g *Graph) RemoveRelation(r *Relation) {
	removeRelationFromSlice(&r.From.OutLinks, r)
	removeRelationFromSlice(&r.To.InLinks, r)
	for i, e := range g.relations {
		if e == r {
			g.relations = append(g.relations[:i], g.relations[i+1:]...)
			break
		}
	}
	delete(g.relSeen, r.key())
	g.topoValid = false
}

// CopyNode clones n via the registry's Copy semantics (Node.Clone) without
// attaching the clone to any graph — used by query/filter contexts per
// spec.md §3.
func (g *Graph) CopyNode(n *Node, ctx CopyContext) *Node {
	return n.Clone(ctx)
}

// Free releases every node's kind-specific extensions and drops all
// graph-owned references, matching spec.md's "graph owns every node" and
// "freed in bulk when the graph is freed" lifecycle.
func (g *Graph) Free() {
	for _, n := range g.nodes {
		if desc, err := descriptorFor(n.Kind); err == nil && desc.Free != nil {
			desc.Free(n)
		}
	}
	g.nodes = nil
	g.relations = nil
	g.byEntity = make(map[EntityID]*Node)
	g.groupSubgraphs = make(map[EntityID]*Node)
	g.relSeen = make(map[relationKey]*Relation)
	g.root = nil
	g.topoOrder = nil
	g.topoValid = false
}

// InvalidateTopoCache marks the cached topological order stale. Any
// structural mutation does this automatically. pkg/schedule's TopoSort
// computes its order afresh and neither reads nor writes this cache.
func (g *Graph) InvalidateTopoCache() { g.topoValid = false }

// TopoCache returns the order last stored by SetTopoCache and whether it
// is still valid.
func (g *Graph) TopoCache() ([]*Node, bool) { return g.topoOrder, g.topoValid }

// SetTopoCache stores a freshly computed topological order as valid.
func (g *Graph) SetTopoCache(order []*Node) {
	g.topoOrder = order
	g.topoValid = true
}

// Entities returns every entity currently holding an ID_REF node, in no
// particular order. Used by tag.AllVisible-style bulk tagging, which needs
// every entity in the graph rather than just those reachable from ROOT
// (ROOT owns no operations of its own).
func (g *Graph) Entities() []EntityID {
	out := make([]EntityID, 0, len(g.byEntity))
	for e := range g.byEntity {
		out = append(out, e)
	}
	return out
}

// GroupSubgraph returns the cached SUBGRAPH node for a given group entity,
// if one was already built (spec.md rule 11).
func (g *Graph) GroupSubgraph(group EntityID) *Node { return g.groupSubgraphs[group] }

// SetGroupSubgraph records the SUBGRAPH node built for a group entity so
// later instances reuse it instead of rebuilding.
func (g *Graph) SetGroupSubgraph(group EntityID, n *Node) { g.groupSubgraphs[group] = n }

// Splice merges inner's nodes and relations directly into g, so that a
// single TopoSort/Run over g also covers everything inner contains — this
// is how a SUBGRAPH's nested graph is folded into the outer schedule
// (spec.md rule 11; pkg/subgraph is the caller). Entity collisions between
// the two graphs are rejected: a spliced subgraph must use its own
// entity namespace (typically instance-qualified), never the outer
// graph's. inner's own ROOT/TIMESOURCE nodes come along as inert
// structural leftovers — scheduling only ever walks operation nodes, so
// they are harmless, just no longer meaningful as "the" root of anything.
func (g *Graph) Splice(inner *Graph) error {
	for entity := range inner.byEntity {
		if _, exists := g.byEntity[entity]; exists {
			return fmt.Errorf("%w: entity %v present in both outer and inner graphs", ErrDuplicateNode, entity)
		}
	}
	for entity, n := range inner.byEntity {
		g.byEntity[entity] = n
	}
	g.nodes = append(g.nodes, inner.nodes...)
	g.relations = append(g.relations, inner.relations...)
	g.topoValid = false
	return nil
}
