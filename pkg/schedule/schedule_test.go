package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/callback"
	"github.com/scenedeps/depsgraph/pkg/graph"
)

func buildChain(t *testing.T) *graph.Graph {
	t.Helper()
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	g := graph.New()
	op1, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "a")
	require.NoError(t, err)
	op2, err := g.EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "b")
	require.NoError(t, err)
	op1.CallbackName = "noop"
	op2.CallbackName = "noop"
	op1.SetFlag(graph.FlagDirty, true)
	op2.SetFlag(graph.FlagDirty, true)
	require.NoError(t, graph.ValidateLinks(g))
	return g
}

func TestTopoSortRespectsOperationOrder(t *testing.T) {
	g := buildChain(t)
	order, err := TopoSort(g)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "a", order[0].Name)
	assert.Equal(t, "b", order[1].Name)
}

func TestRunDispatchesOnlyDirtyOperations(t *testing.T) {
	g := buildChain(t)
	var mu sync.Mutex
	var executed []string
	reg := callback.NewRegistry()
	require.NoError(t, reg.Register("noop", "test", func(ctx context.Context, n *graph.Node) error {
		mu.Lock()
		executed = append(executed, n.Name)
		mu.Unlock()
		return nil
	}, ""))

	op, err := g.Find(graph.KindOpTransform, "cube", "b")
	require.NoError(t, err)
	op.SetFlag(graph.FlagDirty, false) // "b" already clean

	s := New(reg, 2, true)
	results, err := s.Run(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, results, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a"}, executed)
}

func TestRunDowngradesDependentsOnFailure(t *testing.T) {
	g := buildChain(t)
	reg := callback.NewRegistry()
	require.NoError(t, reg.Register("noop", "test", func(ctx context.Context, n *graph.Node) error {
		if n.Name == "a" {
			return errors.New("boom")
		}
		return nil
	}, ""))

	s := New(reg, 2, true)
	results, err := s.Run(context.Background(), g)
	require.NoError(t, err)

	var bOutcome Outcome
	for _, r := range results {
		if r.Node.Name == "b" {
			bOutcome = r
		}
	}
	assert.True(t, bOutcome.Skipped)
	assert.Equal(t, "predecessor failed", bOutcome.Reason)
}

func TestRunHonorsCancellation(t *testing.T) {
	g := buildChain(t)
	reg := callback.NewRegistry()
	require.NoError(t, reg.Register("noop", "test", func(ctx context.Context, n *graph.Node) error { return nil }, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(reg, 1, true)
	results, err := s.Run(ctx, g)
	require.ErrorIs(t, err, ErrAborted)
	for _, r := range results {
		assert.True(t, r.Skipped)
	}
}

// TestRunRejectsCyclesWithoutDispatching covers scenario 4: a cycle between
// two operations must fail validate_links and dispatch no callback at all.
func TestRunRejectsCyclesWithoutDispatching(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	g := graph.New()
	op1, err := g.EnsureOperation("a", graph.KindTransform, graph.KindOpTransform, "eval")
	require.NoError(t, err)
	op2, err := g.EnsureOperation("b", graph.KindTransform, graph.KindOpTransform, "eval")
	require.NoError(t, err)
	_, err = g.AddRelation(op1, op2, graph.RelStandard, "a -> b")
	require.NoError(t, err)
	_, err = g.AddRelation(op2, op1, graph.RelStandard, "b -> a")
	require.NoError(t, err)
	op1.CallbackName, op2.CallbackName = "noop", "noop"
	op1.SetFlag(graph.FlagDirty, true)
	op2.SetFlag(graph.FlagDirty, true)

	var invoked int32
	reg := callback.NewRegistry()
	require.NoError(t, reg.Register("noop", "test", func(ctx context.Context, n *graph.Node) error {
		atomic.AddInt32(&invoked, 1)
		return nil
	}, ""))

	s := New(reg, 2, true)
	_, err = s.Run(context.Background(), g)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrValidationFirst)
	assert.Equal(t, int32(0), atomic.LoadInt32(&invoked))
}

func TestScriptLockSerializesPythonOps(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	g := graph.New()
	op1, err := g.EnsureOperation("cube", graph.KindParameters, graph.KindOpDriver, "drv1")
	require.NoError(t, err)
	op2, err := g.EnsureOperation("cube", graph.KindParameters, graph.KindOpDriver, "drv2")
	require.NoError(t, err)
	op1.CallbackName, op2.CallbackName = "py", "py"
	op1.SetFlag(graph.FlagUsesPython, true)
	op2.SetFlag(graph.FlagUsesPython, true)
	op1.SetFlag(graph.FlagDirty, true)
	op2.SetFlag(graph.FlagDirty, true)
	require.NoError(t, graph.ValidateLinks(g))

	var active int32
	var maxActive int32
	var mu sync.Mutex
	reg := callback.NewRegistry()
	require.NoError(t, reg.Register("py", "driver", func(ctx context.Context, n *graph.Node) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}, ""))

	s := New(reg, 4, true)
	_, err = s.Run(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, int32(1), maxActive)
}
