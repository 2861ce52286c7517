package schedule

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/callback"
	"github.com/scenedeps/depsgraph/pkg/graph"
)

func TestEvaluateOnFramechangeDispatchesTimeDependentOps(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	g := graph.New()
	op, err := g.EnsureOperation("cube", graph.KindAnimation, graph.KindOpAnimation, "eval_anim")
	require.NoError(t, err)
	op.CallbackName = "noop"
	_, err = g.AddRelation(g.TimeSource(), op, graph.RelTime, "time dependency")
	require.NoError(t, err)

	var mu sync.Mutex
	var executed []string
	reg := callback.NewRegistry()
	require.NoError(t, reg.Register("noop", "test", func(ctx context.Context, n *graph.Node) error {
		mu.Lock()
		executed = append(executed, n.Name)
		mu.Unlock()
		return nil
	}, ""))

	s := New(reg, 1, false)
	_, err = s.EvaluateOnFramechange(context.Background(), g, 24)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"eval_anim"}, executed)
	assert.Equal(t, float64(24), g.TimeSource().LastTime)
}

func TestEvaluateOnRefreshDoesNotTagTimeDependentOps(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	g := graph.New()
	op, err := g.EnsureOperation("cube", graph.KindAnimation, graph.KindOpAnimation, "eval_anim")
	require.NoError(t, err)
	op.CallbackName = "noop"
	_, err = g.AddRelation(g.TimeSource(), op, graph.RelTime, "time dependency")
	require.NoError(t, err)

	reg := callback.NewRegistry()
	var executed bool
	require.NoError(t, reg.Register("noop", "test", func(ctx context.Context, n *graph.Node) error {
		executed = true
		return nil
	}, ""))

	s := New(reg, 1, false)
	_, err = s.EvaluateOnRefresh(context.Background(), g)
	require.NoError(t, err)
	assert.False(t, executed)
}
