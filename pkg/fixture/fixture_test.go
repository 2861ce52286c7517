package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedeps/depsgraph/pkg/build"
	"github.com/scenedeps/depsgraph/pkg/graph"
)

const sampleYAML = `
objects:
  - name: Cube
    data: CubeMesh
    materials: [Mat1]
  - name: Lamp
    parent: Cube
materials:
  - name: Mat1
    textures: [Tex1]
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadAndReaderAdapter(t *testing.T) {
	path := writeSample(t)
	scene, err := Load(path)
	require.NoError(t, err)
	require.Len(t, scene.Objects, 2)

	reader := NewReader(scene)
	var _ build.SceneReader = reader

	assert.ElementsMatch(t, []graph.EntityID{"Cube", "Lamp"}, reader.Objects())

	parent, ok := reader.ParentOf("Lamp")
	require.True(t, ok)
	assert.Equal(t, graph.EntityID("Cube"), parent)

	mats := reader.Materials("Cube")
	require.Len(t, mats, 1)
	assert.Equal(t, graph.EntityID("Mat1"), mats[0])

	texs := reader.Textures("Mat1")
	require.Len(t, texs, 1)
	assert.Equal(t, graph.EntityID("Tex1"), texs[0])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/scene.yaml")
	assert.Error(t, err)
}

func TestBuildSceneFromFixture(t *testing.T) {
	graph.FreeNodeTypes()
	graph.RegisterNodeTypes()
	path := writeSample(t)
	scene, err := Load(path)
	require.NoError(t, err)
	reader := NewReader(scene)

	g := graph.New()
	require.NoError(t, build.BuildScene(g, reader))
	require.NoError(t, graph.ValidateLinks(g))

	op, err := g.Find(graph.KindOpTransform, graph.EntityID("Lamp"), "eval")
	require.NoError(t, err)
	assert.NotNil(t, op)
}
