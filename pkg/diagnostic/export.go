// Package diagnostic exports a Graph to a plain JSON document for
// debugging and golden-file tests — there is no query language to drive
// it, unlike the teacher's Cypher surface; this is the generalization of
// its Neo4j JSON export (pkg/storage/types.go's ToNeo4jExport) to a
// dependency graph's node/relation shape.
package diagnostic

import (
	"encoding/json"
	"fmt"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

// Export is the JSON-serializable snapshot of a Graph.
type Export struct {
	Nodes     []NodeDump `json:"nodes"`
	Relations []RelDump  `json:"relations"`
}

// NodeDump is one node's exported shape.
type NodeDump struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Entity     string `json:"entity,omitempty"`
	Dirty      bool   `json:"dirty"`
	UsesPython bool   `json:"usesPython,omitempty"`
	ExecClass  string `json:"execClass,omitempty"`
}

// RelDump is one relation's exported shape, referencing nodes by the same
// ID a NodeDump carries.
type RelDump struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

// ToExport walks g and builds an Export. Node identity in the dump is a
// synthetic "kind:entity:name" string — good enough for a debugging
// artifact, not meant as a stable cross-run ID.
func ToExport(g *graph.Graph) *Export {
	nodes := g.Nodes()
	ids := make(map[*graph.Node]string, len(nodes))
	exp := &Export{Nodes: make([]NodeDump, 0, len(nodes))}

	for _, n := range nodes {
		id := nodeID(n)
		ids[n] = id
		dump := NodeDump{
			ID:         id,
			Kind:       n.Kind.String(),
			Name:       n.Name,
			Dirty:      n.Dirty(),
			UsesPython: n.HasFlag(graph.FlagUsesPython),
		}
		if n.Entity != nil {
			dump.Entity = fmt.Sprintf("%v", n.Entity)
		}
		if n.IsLeaf() {
			dump.ExecClass = n.ExecClassV.String()
		}
		exp.Nodes = append(exp.Nodes, dump)
	}

	for _, r := range g.Relations() {
		exp.Relations = append(exp.Relations, RelDump{
			From:        ids[r.From],
			To:          ids[r.To],
			Kind:        r.Kind.String(),
			Description: r.Description,
		})
	}
	return exp
}

func nodeID(n *graph.Node) string {
	entity := ""
	if n.Entity != nil {
		entity = fmt.Sprintf("%v", n.Entity)
	}
	return fmt.Sprintf("%s:%s:%s", n.Kind, entity, n.Name)
}

// MarshalJSON renders g as indented JSON, ready to write to a file.
func MarshalJSON(g *graph.Graph) ([]byte, error) {
	return json.MarshalIndent(ToExport(g), "", "  ")
}
