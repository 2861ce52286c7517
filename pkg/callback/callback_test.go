package callback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

func TestRegisterAndCall(t *testing.T) {
	r := NewRegistry()
	called := false
	require.NoError(t, r.Register("transform.eval", "transform", func(ctx context.Context, n *graph.Node) error {
		called = true
		return nil
	}, "evaluates local-to-world transform"))

	require.NoError(t, r.Call(context.Background(), "transform.eval", nil))
	assert.True(t, called)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	fn := func(ctx context.Context, n *graph.Node) error { return nil }
	require.NoError(t, r.Register("x", "cat", fn, ""))
	assert.Error(t, r.Register("x", "cat", fn, ""))
}

func TestCallUnknownReturnsError(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Call(context.Background(), "missing", nil))
}

func TestListByCategory(t *testing.T) {
	r := NewRegistry()
	fn := func(ctx context.Context, n *graph.Node) error { return nil }
	require.NoError(t, r.Register("a", "transform", fn, ""))
	require.NoError(t, r.Register("b", "geometry", fn, ""))
	assert.ElementsMatch(t, []string{"a"}, r.ListByCategory("transform"))
}
