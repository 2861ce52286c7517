package evalctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

func TestContextAllocatesOnce(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	g := graph.New()
	m := NewManager(g)

	a, err := m.Context(Viewport)
	require.NoError(t, err)
	b, err := m.Context(Viewport)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestContextRejectsAll(t *testing.T) {
	m := NewManager(graph.New())
	_, err := m.Context(All)
	assert.Error(t, err)
}

func TestScratchIsolatedPerContext(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	g := graph.New()
	m := NewManager(g)
	n, err := g.EnsureComponent("cube", graph.KindTransform)
	require.NoError(t, err)

	viewport, err := m.Context(Viewport)
	require.NoError(t, err)
	render, err := m.Context(Render)
	require.NoError(t, err)

	viewport.SetScratch(n, "viewport-value")
	_, ok := render.Scratch(n)
	assert.False(t, ok)

	v, ok := viewport.Scratch(n)
	require.True(t, ok)
	assert.Equal(t, "viewport-value", v)
}

func TestTeardownRemovesContext(t *testing.T) {
	m := NewManager(graph.New())
	_, err := m.Context(Bake)
	require.NoError(t, err)
	m.Teardown(Bake)
	assert.Len(t, m.Active(), 0)
}
