// Package schedule implements the scheduler (spec.md §8): a deterministic
// topological ordering of operation nodes (Kahn's algorithm) followed by
// worker-pool dispatch that honors script-lock serialization, SIM-class
// mutual exclusion, cancellation, and failure downgrading.
package schedule

import (
	"sort"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

// TopoSort returns every operation node in g in a deterministic
// dependency-respecting order, computed with Kahn's algorithm. Ties (nodes
// simultaneously ready) are broken by ExecClass ordinal first (INIT <
// REBUILD < EXEC < SIM < POST), then by name, then by the order the node
// was first added to the graph — so the same graph always produces the
// same order, which is what makes dispatch reproducible across runs.
//
// Only edges between two operation nodes count toward dependency order;
// an edge from a structural node (e.g. the time source) is not a
// scheduling dependency, since structural/component nodes are never
// themselves dispatched.
func TopoSort(g *graph.Graph) ([]*graph.Node, error) {
	ops, indeg, succ, index := buildAdjacency(g)

	var ready []*graph.Node
	for _, n := range ops {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*graph.Node, 0, len(ops))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j], index) })
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, s := range succ[n] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}

	if len(order) != len(ops) {
		return nil, &graph.CycleError{}
	}
	return order, nil
}

// buildAdjacency extracts every operation node from g along with its
// in-degree and successor list, counting only operation-to-operation
// edges as scheduling dependencies, plus a stable insertion-order index
// used as the final tie-break.
func buildAdjacency(g *graph.Graph) (ops []*graph.Node, indeg map[*graph.Node]int, succ map[*graph.Node][]*graph.Node, index map[*graph.Node]int) {
	all := g.Nodes()
	index = make(map[*graph.Node]int)
	for _, n := range all {
		if n.IsLeaf() {
			index[n] = len(ops)
			ops = append(ops, n)
		}
	}

	indeg = make(map[*graph.Node]int, len(ops))
	succ = make(map[*graph.Node][]*graph.Node, len(ops))
	for _, n := range ops {
		count := 0
		for _, r := range n.InLinks {
			if r.From.IsLeaf() {
				count++
			}
		}
		indeg[n] = count
	}
	for _, n := range ops {
		for _, r := range n.OutLinks {
			if r.To.IsLeaf() {
				succ[n] = append(succ[n], r.To)
			}
		}
	}
	return ops, indeg, succ, index
}

func less(a, b *graph.Node, index map[*graph.Node]int) bool {
	if ca, cb := execClassOf(a), execClassOf(b); ca != cb {
		return ca < cb
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return index[a] < index[b]
}

func execClassOf(n *graph.Node) int { return int(n.ExecClassV) }
