package subgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

func newOuter(t *testing.T) *graph.Graph {
	t.Helper()
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	return graph.New()
}

func buildGroup(inner *graph.Graph) error {
	_, err := inner.EnsureOperation("lamp", graph.KindTransform, graph.KindOpTransform, "eval")
	return err
}

func TestAttachBuildsOnce(t *testing.T) {
	outer := newOuter(t)
	var calls int
	build := func(inner *graph.Graph) error {
		calls++
		return buildGroup(inner)
	}

	n1, err := Attach(outer, "instance:A", "group:lamps", build)
	require.NoError(t, err)
	n2, err := Attach(outer, "instance:B", "group:lamps", build)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	sg1 := n1.Inner.(*Subgraph)
	sg2 := n2.Inner.(*Subgraph)
	assert.Same(t, sg1.Inner, sg2.Inner)
}

func TestAttachWiresTimeSource(t *testing.T) {
	outer := newOuter(t)
	n, err := Attach(outer, "instance:A", "group:lamps", buildGroup)
	require.NoError(t, err)
	sg := n.Inner.(*Subgraph)

	found := false
	for _, r := range outer.TimeSource().OutLinks {
		if r.To == sg.Inner.TimeSource() && r.Kind == graph.RelTime {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSpliceMergesInnerNodes(t *testing.T) {
	outer := newOuter(t)
	_, err := Attach(outer, "instance:A", "group:lamps", buildGroup)
	require.NoError(t, err)

	require.NoError(t, Splice(outer))

	op, err := outer.Find(graph.KindOpTransform, "lamp", "eval")
	require.NoError(t, err)
	assert.NotNil(t, op)
}

func TestSpliceIsIdempotentAcrossInstances(t *testing.T) {
	outer := newOuter(t)
	_, err := Attach(outer, "instance:A", "group:lamps", buildGroup)
	require.NoError(t, err)
	_, err = Attach(outer, "instance:B", "group:lamps", buildGroup)
	require.NoError(t, err)

	require.NoError(t, Splice(outer))
	require.NoError(t, Splice(outer)) // second call must not re-append nodes
}
