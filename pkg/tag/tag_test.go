package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

func newTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	return graph.New()
}

func TestNodeTagsWholeComponent(t *testing.T) {
	g := newTestGraph(t)
	op1, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "a")
	require.NoError(t, err)
	op2, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "b")
	require.NoError(t, err)
	comp, err := g.EnsureComponent("cube", graph.KindTransform)
	require.NoError(t, err)

	Node(comp)

	assert.True(t, op1.Dirty())
	assert.True(t, op2.Dirty())
}

func TestFlushPropagatesAlongOperationOrder(t *testing.T) {
	g := newTestGraph(t)
	op1, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "init")
	require.NoError(t, err)
	op2, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "eval")
	require.NoError(t, err)
	require.NoError(t, graph.ValidateLinks(g))

	Node(op1)
	Flush(g, false)

	assert.True(t, op2.Dirty())
}

func TestFlushSkipsTimeEdgeWithoutTimeChange(t *testing.T) {
	g := newTestGraph(t)
	op, err := g.EnsureOperation("cube", graph.KindAnimation, graph.KindOpAnimation, "eval_anim")
	require.NoError(t, err)
	_, err = g.AddRelation(g.TimeSource(), op, graph.RelTime, "time dependency")
	require.NoError(t, err)

	Flush(g, false)
	assert.False(t, op.Dirty())

	g.TimeSource().SetFlag(graph.FlagDirty, true)
	Flush(g, true)
	assert.True(t, op.Dirty())
}

func TestFlushStopsAtDriverTarget(t *testing.T) {
	g := newTestGraph(t)
	target, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "target")
	require.NoError(t, err)
	driver, err := g.EnsureOperation("cube", graph.KindParameters, graph.KindOpDriver, "driver")
	require.NoError(t, err)
	downstream, err := g.EnsureOperation("cube", graph.KindGeometry, graph.KindOpGeometry, "downstream")
	require.NoError(t, err)
	_, err = g.AddRelation(target, driver, graph.RelDriverTarget, "drives")
	require.NoError(t, err)
	_, err = g.AddRelation(driver, downstream, graph.RelStandard, "applies")
	require.NoError(t, err)

	Node(target)
	Flush(g, false)

	assert.True(t, driver.Dirty())
	assert.False(t, downstream.Dirty())
}

func TestClearAllResetsDirtyAndSkipped(t *testing.T) {
	g := newTestGraph(t)
	op, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "a")
	require.NoError(t, err)
	op.SetFlag(graph.FlagDirty, true)
	op.SetFlag(graph.FlagSkipped, true)

	ClearAll(g)

	assert.False(t, op.Dirty())
	assert.False(t, op.HasFlag(graph.FlagSkipped))
}
