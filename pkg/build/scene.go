// Package build implements the scene-walk builder (spec.md §4.E): turning
// a host's scene description into a populated Graph by walking objects,
// their parents, data, drivers, constraints, rig, shared assets, rigid
// bodies, and group instances, each in its own numbered rule.
//
// The scene data model itself is explicitly out of scope (Non-goal); this
// package only defines the SceneReader interface a host must implement so
// the builder can ask it questions ("what is this object's parent",
// "what textures does this material use") without ever importing a
// concrete scene type. Every answer SceneReader gives is already resolved
// to graph terms (entities, component kinds) — the builder never parses a
// property path or scene-specific string itself.
package build

import "github.com/scenedeps/depsgraph/pkg/graph"

// DriverTarget names one property structurally: the entity and the
// component kind whose evaluation produces (or consumes) that property's
// value. It stands in for the external property-path resolver spec.md §6
// describes ("resolve(entity, path) -> (entity, struct_kind, data_ptr)") —
// the reader is expected to have already run that resolution before
// handing the builder a DriverSpec.
type DriverTarget struct {
	Entity graph.EntityID
	Kind   graph.Kind // must be a component kind (TRANSFORM, GEOMETRY, ...)
}

// DriverSpec describes one driven property (rule 8). Writes is the node
// the driver's own property path resolves to — its outgoing DRIVER edge.
// Targets are the driver's variable targets, each contributing an incoming
// DRIVER_TARGET edge.
type DriverSpec struct {
	Name       string
	UsesPython bool
	Writes     DriverTarget
	Targets    []DriverTarget
}

// ConstraintTargetKind dispatches an object or bone constraint's target
// resolution per rule 4's table.
type ConstraintTargetKind int

const (
	// ConstraintTargetDefault resolves to the target's TRANSFORM.
	ConstraintTargetDefault ConstraintTargetKind = iota
	// ConstraintTargetBone resolves to a bone component, named by BoneName
	// under Target's armature.
	ConstraintTargetBone
	// ConstraintTargetPath resolves to the target's GEOMETRY (Path/Clamp-To
	// constraints).
	ConstraintTargetPath
	// ConstraintTargetGeometry resolves to the target's GEOMETRY (mesh or
	// lattice sub-target).
	ConstraintTargetGeometry
	// ConstraintTargetCamera resolves to the scene camera's TRANSFORM, plus
	// an optional depth object (Follow Track / Camera Solver constraints).
	ConstraintTargetCamera
	// ConstraintTargetIK and ConstraintTargetSplineIK mark a constraint
	// rule 4 excludes from the object/bone constraint loop entirely — rule
	// 5 handles them at pose level via BoneSpec.IK instead.
	ConstraintTargetIK
	ConstraintTargetSplineIK
)

// ConstraintSpec describes one object or bone constraint.
type ConstraintSpec struct {
	Name        string
	TargetKind  ConstraintTargetKind
	Target      graph.EntityID // target object/armature entity
	BoneName    string         // set when TargetKind == ConstraintTargetBone
	DepthObject graph.EntityID // optional, ConstraintTargetCamera only
}

// IKSpec marks a bone as the tip of an IK or spline-IK chain (rule 5): the
// chain runs from the owning bone up through parents to RootBone, or a
// hard cap of 255 bones (the tip included), whichever comes first.
type IKSpec struct {
	RootBone   string
	Spline     bool
	SplineData graph.EntityID // curve data-block supplying GEOMETRY_EVAL, spline IK only
}

// BoneSpec describes one bone in an armature's hierarchy.
type BoneSpec struct {
	Name        string
	Parent      string // empty for a root bone
	Constraints []ConstraintSpec
	IK          *IKSpec // non-nil when this bone terminates an IK chain
}

// RigidBodyConstraintSpec links two rigid-body objects through a
// constraint object (rule 10's constraint clause). Other may be nil for a
// constraint with only one constrained object (e.g. a motor).
type RigidBodyConstraintSpec struct {
	ConstraintObject graph.EntityID
	Other            graph.EntityID
}

// SceneReader is the external interface the builder queries; a host scene
// graph implements it once and the builder never touches scene data
// directly. EntityID values returned here are the same opaque keys the
// resulting graph.Node.Entity fields carry.
type SceneReader interface {
	// Objects lists every object the scene should build a graph for.
	Objects() []graph.EntityID
	// ParentOf returns obj's parent object, if any (rule 2/3).
	ParentOf(obj graph.EntityID) (graph.EntityID, bool)
	// DataOf returns the data-block (mesh, curve, ...) an object derives
	// its geometry from (rule 6).
	DataOf(obj graph.EntityID) (graph.EntityID, bool)
	// Drivers lists obj's drivers (rule 8).
	Drivers(obj graph.EntityID) []DriverSpec
	// Constraints lists obj's object-level constraints (rule 4). IK and
	// spline-IK entries may appear here too; the builder skips them in
	// this loop — rule 5 owns them.
	Constraints(obj graph.EntityID) []ConstraintSpec
	// Bones lists an armature object's bones in parent-then-child order
	// (rule 5).
	Bones(obj graph.EntityID) []BoneSpec
	// Materials lists the shared material entities an object (or its
	// data-block) references (rule 7).
	Materials(obj graph.EntityID) []graph.EntityID
	// Textures lists the shared texture entities a material references.
	Textures(material graph.EntityID) []graph.EntityID
	// HasParticles reports whether obj has a particle system (rule 9).
	HasParticles(obj graph.EntityID) bool
	// HasRigidBody reports whether obj participates in rigid-body
	// simulation (rule 10).
	HasRigidBody(obj graph.EntityID) bool
	// RigidBodyWorld returns the entity anchoring the scene's rigid-body
	// world operations, if the scene has one (rule 10). Every rigid-body
	// object in the scene shares the same world.
	RigidBodyWorld() (graph.EntityID, bool)
	// RigidBodyConstraints lists the rigid-body constraints obj holds
	// (rule 10's constraint clause).
	RigidBodyConstraints(obj graph.EntityID) []RigidBodyConstraintSpec
	// SceneCamera returns the scene's active camera object, used to
	// resolve follow-track/camera-solver constraint targets (rule 4).
	SceneCamera() (graph.EntityID, bool)
	// GroupMembers returns group's member object entities, if obj
	// instances a group (rule 11); ok is false for a plain object.
	GroupMembers(obj graph.EntityID) (group graph.EntityID, members []graph.EntityID, ok bool)
}
