package graph

// RelationKind tags a Relation with the dependency category it represents.
// Several categories get special treatment during flush (pkg/tag) and
// validate_links (validate.go): see each constant's comment.
type RelationKind uint8

const (
	// RelStandard is a generic ordering dependency.
	RelStandard RelationKind = iota
	// RelTime fans out from the time source. Only traversed during
	// time-change flushes (pkg/tag).
	RelTime
	// RelDatablock links a data-block's component to the using object's
	// equivalent component (rule 6: data GEOMETRY -> object GEOMETRY).
	RelDatablock
	// RelData is a generic data dependency (e.g. shape keys, shading).
	RelData
	// RelOperation orders operations within one component. Always
	// traversed during flush.
	RelOperation
	// RelComponentOrder orders components within one entity (inserted by
	// validate_links). Always traversed during flush.
	RelComponentOrder
	// RelGeometryEval links to a GEOMETRY component's evaluation (e.g.
	// spline-IK from a curve's geometry, metaball motherball fan-in).
	RelGeometryEval
	// RelTransform links to a TRANSFORM component's evaluation.
	RelTransform
	// RelDriver is the driver's outgoing edge to the node its property
	// path resolved to.
	RelDriver
	// RelDriverTarget is a driver variable's incoming edge from its target.
	// Propagates dirty only *into* the driver, never past it (pkg/tag).
	RelDriverTarget
	// RelRootToActive is the root's edge to the active scene (diagnostic
	// only; never traversed by flush).
	RelRootToActive
)

var relationKindNames = [...]string{
	RelStandard:       "STANDARD",
	RelTime:           "TIME",
	RelDatablock:      "DATABLOCK",
	RelData:           "DATA",
	RelOperation:      "OPERATION",
	RelComponentOrder: "COMPONENT_ORDER",
	RelGeometryEval:   "GEOMETRY_EVAL",
	RelTransform:      "TRANSFORM",
	RelDriver:         "DRIVER",
	RelDriverTarget:   "DRIVER_TARGET",
	RelRootToActive:   "ROOT_TO_ACTIVE",
}

func (k RelationKind) String() string {
	if int(k) < len(relationKindNames) {
		return relationKindNames[k]
	}
	return "UNKNOWN"
}

// Relation is a directed edge from -> to, carrying a kind and a short
// diagnostic-only description (spec.md §3).
type Relation struct {
	From        *Node
	To          *Node
	Kind        RelationKind
	Description string
}

// key identifies duplicate relations for coalescing during validate_links
// (same From, To, Kind are allowed to be added more than once; the build
// pass coalesces them afterwards, keeping the first Description).
type relationKey struct {
	from *Node
	to   *Node
	kind RelationKind
}

func (r *Relation) key() relationKey {
	return relationKey{from: r.From, to: r.To, kind: r.Kind}
}
