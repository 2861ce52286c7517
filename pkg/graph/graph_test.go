package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	FreeNodeTypes()
	RegisterNodeTypes()
	return New()
}

func TestNewGraphHasRootAndTimeSource(t *testing.T) {
	g := newTestGraph(t)
	require.NotNil(t, g.Root())
	require.Equal(t, KindRoot, g.Root().Kind)
	require.NotNil(t, g.TimeSource())
	assert.Equal(t, KindTimeSource, g.TimeSource().Kind)
}

func TestEnsureIDRefIsIdempotent(t *testing.T) {
	g := newTestGraph(t)
	a, err := g.EnsureIDRef("object:cube")
	require.NoError(t, err)
	b, err := g.EnsureIDRef("object:cube")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestEnsureIDRefRejectsNilEntity(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.EnsureIDRef(nil)
	assert.ErrorIs(t, err, ErrMissingOwner)
}

func TestEnsureComponentMaterializesIDRef(t *testing.T) {
	g := newTestGraph(t)
	comp, err := g.EnsureComponent("object:cube", KindTransform)
	require.NoError(t, err)
	require.Equal(t, KindTransform, comp.Kind)

	idref, err := g.Find(KindIDRef, "object:cube", "")
	require.NoError(t, err)
	require.NotNil(t, idref)
	assert.Same(t, comp, idref.components[KindTransform])
}

func TestEnsureOperationMaterializesAncestors(t *testing.T) {
	g := newTestGraph(t)
	op, err := g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "local_to_world")
	require.NoError(t, err)
	assert.Equal(t, KindOpTransform, op.Kind)

	found, err := g.Find(KindOpTransform, "object:cube", "local_to_world")
	require.NoError(t, err)
	assert.Same(t, op, found)

	again, err := g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "local_to_world")
	require.NoError(t, err)
	assert.Same(t, op, again)
}

func TestEnsureBoneOperation(t *testing.T) {
	g := newTestGraph(t)
	op, err := g.EnsureBoneOperation("object:armature", "upper_arm.L", "pose_solve")
	require.NoError(t, err)
	assert.Equal(t, KindOpBone, op.Kind)

	bone, err := g.FindBone("object:armature", "upper_arm.L")
	require.NoError(t, err)
	require.NotNil(t, bone)
	assert.Same(t, op, bone.operations["pose_solve"])

	again, err := g.FindBoneOperation("object:armature", "upper_arm.L", "pose_solve")
	require.NoError(t, err)
	assert.Same(t, op, again)
}

func TestRemoveNodeDetachesFromIndex(t *testing.T) {
	g := newTestGraph(t)
	comp, err := g.EnsureComponent("object:cube", KindTransform)
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(comp))

	idref, err := g.Find(KindIDRef, "object:cube", "")
	require.NoError(t, err)
	assert.Nil(t, idref.components[KindTransform])
}

func TestRemoveNodeRejectsRoot(t *testing.T) {
	g := newTestGraph(t)
	assert.ErrorIs(t, g.RemoveNode(g.Root()), ErrNotInGraph)
}

func TestValidateLinksWiresOperationOrder(t *testing.T) {
	g := newTestGraph(t)
	op1, err := g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "init")
	require.NoError(t, err)
	op2, err := g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "eval")
	require.NoError(t, err)

	require.NoError(t, ValidateLinks(g))

	assert.True(t, hasRelation(op1, op2, RelOperation))
}

func TestValidateLinksWiresComponentOrder(t *testing.T) {
	g := newTestGraph(t)
	animOp, err := g.EnsureOperation("object:cube", KindAnimation, KindOpAnimation, "eval_anim")
	require.NoError(t, err)
	xformOp, err := g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "eval_xform")
	require.NoError(t, err)

	require.NoError(t, ValidateLinks(g))

	assert.True(t, hasRelation(animOp, xformOp, RelComponentOrder))
}

func TestValidateLinksDetectsCycle(t *testing.T) {
	g := newTestGraph(t)
	op1, err := g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "a")
	require.NoError(t, err)
	op2, err := g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "b")
	require.NoError(t, err)

	// Manually force a back-edge that the implicit ordering wouldn't create.
	_, err = g.AddRelation(op2, op1, RelStandard, "manual cycle")
	require.NoError(t, err)

	err = ValidateLinks(g)
	require.Error(t, err)
	var cycleErr *CycleError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestCloneNodeHasNoEdgesOrOwner(t *testing.T) {
	g := newTestGraph(t)
	comp, err := g.EnsureComponent("object:cube", KindTransform)
	require.NoError(t, err)
	_, err = g.EnsureOperation("object:cube", KindTransform, KindOpTransform, "eval")
	require.NoError(t, err)

	clone := g.CopyNode(comp, CopyContext{})
	assert.Nil(t, clone.Owner)
	assert.Empty(t, clone.OutLinks)
	assert.Len(t, clone.operations, 1)
}

func TestCloneSkipsFilteredComponents(t *testing.T) {
	g := newTestGraph(t)
	idref, err := g.EnsureIDRef("object:cube")
	require.NoError(t, err)
	_, err = g.EnsureComponent("object:cube", KindTransform)
	require.NoError(t, err)
	_, err = g.EnsureComponent("object:cube", KindGeometry)
	require.NoError(t, err)

	clone := g.CopyNode(idref, CopyContext{SkipComponents: func(k Kind) bool { return k == KindGeometry }})
	assert.NotNil(t, clone.components[KindTransform])
	assert.Nil(t, clone.components[KindGeometry])
}

func TestKindStratumOrdering(t *testing.T) {
	assert.Equal(t, 0, KindRoot.stratum())
	assert.Equal(t, 1, KindIDRef.stratum())
	assert.Equal(t, 2, KindTransform.stratum())
	assert.Equal(t, 3, KindBone.stratum())
	assert.Equal(t, 3, KindOpTransform.stratum())
	assert.Equal(t, 4, KindOpBone.stratum())
}

func TestFlagRoundTrip(t *testing.T) {
	n := newNode(KindOpTransform, "eval", "object:cube")
	assert.False(t, n.Dirty())
	n.SetFlag(FlagDirty, true)
	assert.True(t, n.Dirty())
	n.SetFlag(FlagDirty, false)
	assert.False(t, n.Dirty())
}
