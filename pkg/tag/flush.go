package tag

import (
	"github.com/scenedeps/depsgraph/pkg/graph"
	"github.com/scenedeps/depsgraph/pkg/pool"
)

// Flush propagates dirtiness from every currently-tagged node forward
// along dependency edges, so that anything downstream of a changed
// operation is also marked for re-evaluation before the scheduler runs
// (spec.md §5 "flush"). timeChanged selects whether TIME relations
// participate — a plain property edit does not need to re-run every
// time-driven operation in the scene, only an actual frame change does.
//
// Flush is idempotent: running it twice on an already-flushed graph marks
// nothing new, since every reachable node is already dirty.
func Flush(g *graph.Graph, timeChanged bool) {
	frontier := pool.GetNodeSlice()
	for _, n := range g.Nodes() {
		// Most dirty seeds are operations (tag.Node on a leaf), but
		// evaluate_on_framechange tags the time source itself dirty before
		// flushing — it is not a leaf, yet still has to seed the walk so
		// its TIME edges reach every time-dependent operation.
		if n.Dirty() {
			frontier = append(frontier, n)
		}
	}

	visited := pool.GetNodeSet()
	defer pool.PutNodeSet(visited)
	for _, n := range frontier {
		visited[n] = true
	}

	for len(frontier) > 0 {
		n := frontier[0]
		frontier = frontier[1:]

		for _, r := range n.OutLinks {
			if !shouldTraverse(r.Kind, timeChanged) {
				continue
			}
			dest := r.To
			dest.SetFlag(graph.FlagDirty, true)

			if r.Kind == graph.RelDriverTarget {
				// Propagates dirty into the driver, never past it.
				continue
			}
			if !visited[dest] {
				visited[dest] = true
				frontier = append(frontier, dest)
			}
		}
	}
	pool.PutNodeSlice(frontier[:0])
}

// shouldTraverse reports whether flush should follow an edge of kind k.
// RelTime only participates on an actual time change; RelRootToActive is
// diagnostic-only and never traversed; every other kind is always
// traversed (spec.md §5).
func shouldTraverse(k graph.RelationKind, timeChanged bool) bool {
	switch k {
	case graph.RelTime:
		return timeChanged
	case graph.RelRootToActive:
		return false
	default:
		return true
	}
}

// ClearAll clears FlagDirty and FlagSkipped on every node, in O(N), for use
// after a completed evaluation pass (spec.md §5 "clear is O(N) over all
// nodes, never a full edge walk").
func ClearAll(g *graph.Graph) {
	for _, n := range g.Nodes() {
		n.SetFlag(graph.FlagDirty, false)
		n.SetFlag(graph.FlagSkipped, false)
	}
}
