package trace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

func openTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	dir := t.TempDir()
	r, err := Open(filepath.Join(dir, "trace"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRecorderAppendsInOrder(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	r := openTestRecorder(t)

	op, err := graph.New().EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "eval")
	require.NoError(t, err)

	r.OnDispatch(op)
	r.OnComplete(op, nil)
	r.OnSkip(op, "predecessor failed")

	events, err := r.All()
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "dispatch", events[0].Kind)
	assert.Equal(t, "complete", events[1].Kind)
	assert.Equal(t, "skip", events[2].Kind)
	assert.Equal(t, "predecessor failed", events[2].SkipCause)
	assert.Less(t, events[0].Seq, events[1].Seq)
	assert.Less(t, events[1].Seq, events[2].Seq)
}

func TestRecorderRecordsError(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	r := openTestRecorder(t)

	op, err := graph.New().EnsureOperation("cube", graph.KindTransform, graph.KindOpTransform, "eval")
	require.NoError(t, err)

	r.OnComplete(op, errors.New("boom"))

	events, err := r.All()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "boom", events[0].Error)
}
