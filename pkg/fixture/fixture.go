// Package fixture provides a YAML scene-description format used by tests
// and cmd/depsgraphctl to exercise the builder without a real host scene.
// It is explicitly not the production scene data model (spec.md
// Non-goals exclude that) — a stand-in, grounded on the teacher's
// gopkg.in/yaml.v3 config-overlay usage (pkg/config/config.go).
package fixture

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scenedeps/depsgraph/pkg/build"
	"github.com/scenedeps/depsgraph/pkg/graph"
)

// DriverTarget is one resolved property reference in YAML form: an entity
// plus the component kind its evaluation reads or writes.
type DriverTarget struct {
	Entity string `yaml:"entity"`
	Kind   string `yaml:"kind"`
}

// Driver is one driven-property entry in YAML form.
type Driver struct {
	Name    string         `yaml:"name"`
	Python  bool           `yaml:"python"`
	Writes  DriverTarget   `yaml:"writes"`
	Targets []DriverTarget `yaml:"targets"`
}

// Constraint is one object or bone constraint entry in YAML form.
type Constraint struct {
	Name        string `yaml:"name"`
	TargetKind  string `yaml:"targetKind"` // default, bone, path, geometry, camera, ik, splineIK
	Target      string `yaml:"target"`
	Bone        string `yaml:"bone"`        // set when targetKind == bone
	DepthObject string `yaml:"depthObject"` // optional, targetKind == camera
}

// IK marks a bone as the tip of an IK or spline-IK chain.
type IK struct {
	RootBone   string `yaml:"rootBone"`
	Spline     bool   `yaml:"spline"`
	SplineData string `yaml:"splineData"`
}

// Bone is one armature bone entry in YAML form.
type Bone struct {
	Name        string       `yaml:"name"`
	Parent      string       `yaml:"parent"`
	Constraints []Constraint `yaml:"constraints"`
	IK          *IK          `yaml:"ik"`
}

// Group describes the group a YAML object instances.
type Group struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// RigidBodyConstraint links a constraint object to (up to) two rigid-body
// objects, in YAML form.
type RigidBodyConstraint struct {
	ConstraintObject string `yaml:"constraintObject"`
	Other            string `yaml:"other"`
}

// Object is one scene object in YAML form.
type Object struct {
	Name                 string                `yaml:"name"`
	Parent               string                `yaml:"parent"`
	Data                 string                `yaml:"data"`
	Drivers              []Driver              `yaml:"drivers"`
	Constraints          []Constraint          `yaml:"constraints"`
	Bones                []Bone                `yaml:"bones"`
	Materials            []string              `yaml:"materials"`
	Particles            bool                  `yaml:"particles"`
	RigidBody            bool                  `yaml:"rigidBody"`
	RigidBodyConstraints []RigidBodyConstraint `yaml:"rigidBodyConstraints"`
	Group                *Group                `yaml:"group"`
}

// Material is one shared material in YAML form.
type Material struct {
	Name     string   `yaml:"name"`
	Textures []string `yaml:"textures"`
}

// World names the entity the scene's rigid-body world operations anchor to.
type World struct {
	Name string `yaml:"name"`
}

// Scene is the root YAML document: a flat list of objects, the shared
// materials they may reference, and scene-level singletons (rigid-body
// world, active camera).
type Scene struct {
	Objects   []Object   `yaml:"objects"`
	Materials []Material `yaml:"materials"`
	World     *World     `yaml:"world"`
	Camera    string     `yaml:"camera"`
}

// Load reads and parses a YAML scene fixture from path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: reading %s: %w", path, err)
	}
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("fixture: parsing %s: %w", path, err)
	}
	return &s, nil
}

// Reader adapts a parsed Scene to build.SceneReader.
type Reader struct {
	objects   map[string]Object
	materials map[string]Material
	order     []graph.EntityID
	world     *World
	camera    string
}

// NewReader indexes scene for repeated SceneReader lookups.
func NewReader(scene *Scene) *Reader {
	r := &Reader{
		objects:   make(map[string]Object),
		materials: make(map[string]Material),
		world:     scene.World,
		camera:    scene.Camera,
	}
	for _, obj := range scene.Objects {
		r.objects[obj.Name] = obj
		r.order = append(r.order, graph.EntityID(obj.Name))
	}
	for _, mat := range scene.Materials {
		r.materials[mat.Name] = mat
	}
	return r
}

var _ build.SceneReader = (*Reader)(nil)

func (r *Reader) Objects() []graph.EntityID { return r.order }

func (r *Reader) ParentOf(obj graph.EntityID) (graph.EntityID, bool) {
	o, ok := r.objects[obj.(string)]
	if !ok || o.Parent == "" {
		return nil, false
	}
	return graph.EntityID(o.Parent), true
}

func (r *Reader) DataOf(obj graph.EntityID) (graph.EntityID, bool) {
	o, ok := r.objects[obj.(string)]
	if !ok || o.Data == "" {
		return nil, false
	}
	return graph.EntityID(o.Data), true
}

// parseComponentKind maps a YAML component-kind name to its graph.Kind, so
// drivers can address any component without the fixture format having to
// know about every Kind constant by iota value.
func parseComponentKind(name string) (graph.Kind, error) {
	switch strings.ToLower(name) {
	case "", "transform":
		return graph.KindTransform, nil
	case "parameters":
		return graph.KindParameters, nil
	case "geometry":
		return graph.KindGeometry, nil
	case "animation":
		return graph.KindAnimation, nil
	case "proxy":
		return graph.KindProxy, nil
	case "evalpose", "eval_pose":
		return graph.KindEvalPose, nil
	case "evalparticles", "eval_particles":
		return graph.KindEvalParticles, nil
	default:
		return 0, fmt.Errorf("fixture: unknown component kind %q", name)
	}
}

func parseDriverTarget(obj string, t DriverTarget) (build.DriverTarget, error) {
	entity := t.Entity
	if entity == "" {
		entity = obj
	}
	kind, err := parseComponentKind(t.Kind)
	if err != nil {
		return build.DriverTarget{}, err
	}
	return build.DriverTarget{Entity: graph.EntityID(entity), Kind: kind}, nil
}

func (r *Reader) Drivers(obj graph.EntityID) []build.DriverSpec {
	o, ok := r.objects[obj.(string)]
	if !ok {
		return nil
	}
	specs := make([]build.DriverSpec, 0, len(o.Drivers))
	for _, d := range o.Drivers {
		writes, err := parseDriverTarget(o.Name, d.Writes)
		if err != nil {
			continue
		}
		targets := make([]build.DriverTarget, 0, len(d.Targets))
		for _, t := range d.Targets {
			if pt, err := parseDriverTarget(o.Name, t); err == nil {
				targets = append(targets, pt)
			}
		}
		specs = append(specs, build.DriverSpec{Name: d.Name, UsesPython: d.Python, Writes: writes, Targets: targets})
	}
	return specs
}

func parseConstraintTargetKind(s string) build.ConstraintTargetKind {
	switch strings.ToLower(s) {
	case "bone":
		return build.ConstraintTargetBone
	case "path":
		return build.ConstraintTargetPath
	case "geometry":
		return build.ConstraintTargetGeometry
	case "camera":
		return build.ConstraintTargetCamera
	case "ik":
		return build.ConstraintTargetIK
	case "splineik", "spline_ik":
		return build.ConstraintTargetSplineIK
	default:
		return build.ConstraintTargetDefault
	}
}

func parseConstraint(c Constraint) build.ConstraintSpec {
	spec := build.ConstraintSpec{
		Name:       c.Name,
		TargetKind: parseConstraintTargetKind(c.TargetKind),
		Target:     graph.EntityID(c.Target),
		BoneName:   c.Bone,
	}
	if c.DepthObject != "" {
		spec.DepthObject = graph.EntityID(c.DepthObject)
	}
	return spec
}

func (r *Reader) Constraints(obj graph.EntityID) []build.ConstraintSpec {
	o, ok := r.objects[obj.(string)]
	if !ok {
		return nil
	}
	specs := make([]build.ConstraintSpec, 0, len(o.Constraints))
	for _, c := range o.Constraints {
		specs = append(specs, parseConstraint(c))
	}
	return specs
}

func (r *Reader) Bones(obj graph.EntityID) []build.BoneSpec {
	o, ok := r.objects[obj.(string)]
	if !ok {
		return nil
	}
	specs := make([]build.BoneSpec, 0, len(o.Bones))
	for _, b := range o.Bones {
		spec := build.BoneSpec{Name: b.Name, Parent: b.Parent}
		for _, c := range b.Constraints {
			spec.Constraints = append(spec.Constraints, parseConstraint(c))
		}
		if b.IK != nil {
			spec.IK = &build.IKSpec{RootBone: b.IK.RootBone, Spline: b.IK.Spline}
			if b.IK.SplineData != "" {
				spec.IK.SplineData = graph.EntityID(b.IK.SplineData)
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

func (r *Reader) Materials(obj graph.EntityID) []graph.EntityID {
	o, ok := r.objects[obj.(string)]
	if !ok {
		return nil
	}
	out := make([]graph.EntityID, 0, len(o.Materials))
	for _, m := range o.Materials {
		out = append(out, graph.EntityID(m))
	}
	return out
}

func (r *Reader) Textures(material graph.EntityID) []graph.EntityID {
	m, ok := r.materials[material.(string)]
	if !ok {
		return nil
	}
	out := make([]graph.EntityID, 0, len(m.Textures))
	for _, tex := range m.Textures {
		out = append(out, graph.EntityID(tex))
	}
	return out
}

func (r *Reader) HasParticles(obj graph.EntityID) bool { return r.objects[obj.(string)].Particles }
func (r *Reader) HasRigidBody(obj graph.EntityID) bool { return r.objects[obj.(string)].RigidBody }

func (r *Reader) RigidBodyWorld() (graph.EntityID, bool) {
	if r.world == nil || r.world.Name == "" {
		return nil, false
	}
	return graph.EntityID(r.world.Name), true
}

func (r *Reader) RigidBodyConstraints(obj graph.EntityID) []build.RigidBodyConstraintSpec {
	o, ok := r.objects[obj.(string)]
	if !ok {
		return nil
	}
	specs := make([]build.RigidBodyConstraintSpec, 0, len(o.RigidBodyConstraints))
	for _, c := range o.RigidBodyConstraints {
		spec := build.RigidBodyConstraintSpec{ConstraintObject: graph.EntityID(c.ConstraintObject)}
		if c.Other != "" {
			spec.Other = graph.EntityID(c.Other)
		}
		specs = append(specs, spec)
	}
	return specs
}

func (r *Reader) SceneCamera() (graph.EntityID, bool) {
	if r.camera == "" {
		return nil, false
	}
	return graph.EntityID(r.camera), true
}

func (r *Reader) GroupMembers(obj graph.EntityID) (graph.EntityID, []graph.EntityID, bool) {
	o, ok := r.objects[obj.(string)]
	if !ok || o.Group == nil {
		return nil, nil, false
	}
	members := make([]graph.EntityID, 0, len(o.Group.Members))
	for _, m := range o.Group.Members {
		members = append(members, graph.EntityID(m))
	}
	return graph.EntityID(o.Group.Name), members, true
}
