package build

import (
	"fmt"

	"github.com/scenedeps/depsgraph/pkg/graph"
	"github.com/scenedeps/depsgraph/pkg/pool"
	"github.com/scenedeps/depsgraph/pkg/subgraph"
)

// rigidbodyWorld caches the scene's two rigid-body world operations
// (rule 10) so every participating object links against the same pair no
// matter which object triggers their creation.
type rigidbodyWorld struct {
	rebuildOp *graph.Node
	simOp     *graph.Node
}

// Builder walks a SceneReader once and populates a Graph. A Builder is not
// reusable across graphs — create a new one per BuildScene call.
type Builder struct {
	reader SceneReader

	// visited is the cycle guard for shared assets (materials, textures):
	// a per-build set owned by the builder, not a Node flag, so that a
	// graph built once and read many times never carries builder-only
	// state on its nodes.
	visited map[graph.EntityID]bool

	// building guards object-parent chains against cycles independently
	// of the shared-asset visited set — a parent cycle is a build error,
	// not something to silently dedup.
	building map[graph.EntityID]bool

	world *rigidbodyWorld
}

// NewBuilder creates a Builder over reader.
func NewBuilder(reader SceneReader) *Builder {
	return &Builder{reader: reader, visited: pool.GetEntitySet(), building: pool.GetEntitySet()}
}

// release returns b's scratch sets to the pool. Call once a Builder (and
// any subgraph Builders it spawned) is done being used.
func (b *Builder) release() {
	pool.PutEntitySet(b.visited)
	pool.PutEntitySet(b.building)
}

// BuildScene walks every object in the reader and populates g, wires any
// rigid-body constraints once every object's sync op exists, then splices
// any group subgraphs instanced along the way so the result is ready for
// graph.ValidateLinks (spec.md §4.E rules 1-11).
func BuildScene(g *graph.Graph, reader SceneReader) error {
	b := NewBuilder(reader)
	defer b.release()
	for _, obj := range reader.Objects() {
		if err := b.buildObjectGraph(g, obj); err != nil {
			return fmt.Errorf("build: object %v: %w", obj, err)
		}
	}
	for _, obj := range reader.Objects() {
		if err := b.buildRigidbodyConstraints(g, obj); err != nil {
			return fmt.Errorf("build: object %v: %w", obj, err)
		}
	}
	if err := subgraph.Splice(g); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}

// buildObjectGraph is rule 1: one object's full subtree of rules 2-11.
//
// Call order matters beyond readability: operations created within the
// same component pick up an implicit OPERATION edge from validate_links in
// insertion order (pkg/graph's wireOpsWithin), so the sequence below is how
// rule 10's "RigidBodyObject Sync" op lands between the base transform and
// the constraint stack without any explicit reordering step.
func (b *Builder) buildObjectGraph(g *graph.Graph, obj graph.EntityID) error {
	if b.building[obj] {
		return fmt.Errorf("%w: parent cycle at %v", graph.ErrCycle, obj)
	}
	b.building[obj] = true
	defer delete(b.building, obj)

	if err := b.buildObjectParents(g, obj); err != nil {
		return err
	}
	if err := b.buildObjectTransform(g, obj); err != nil {
		return err
	}
	if err := b.buildRigidbodyGraph(g, obj); err != nil {
		return err
	}
	if err := b.buildConstraintGraph(g, obj); err != nil {
		return err
	}
	if err := b.buildAnimdataGraph(g, obj); err != nil {
		return err
	}
	if err := b.buildObdataGeomGraph(g, obj); err != nil {
		return err
	}
	if err := b.buildMaterialGraph(g, obj); err != nil {
		return err
	}
	if err := b.buildRigGraph(g, obj); err != nil {
		return err
	}
	if err := b.buildParticlesGraph(g, obj); err != nil {
		return err
	}
	return b.buildGroupSubgraph(g, obj)
}

// buildObjectParents is rule 2: a parent's TRANSFORM must evaluate before
// its children's. The parent is built first if it hasn't been yet.
func (b *Builder) buildObjectParents(g *graph.Graph, obj graph.EntityID) error {
	parent, ok := b.reader.ParentOf(obj)
	if !ok {
		return nil
	}
	if err := b.buildObjectGraph(g, parent); err != nil {
		return err
	}
	parentOp, err := g.EnsureOperation(parent, graph.KindTransform, graph.KindOpTransform, "eval")
	if err != nil {
		return err
	}
	parentOp.ExecClassV = graph.ExecExec
	childOp, err := g.EnsureOperation(obj, graph.KindTransform, graph.KindOpTransform, "eval")
	if err != nil {
		return err
	}
	childOp.ExecClassV = graph.ExecExec
	_, err = g.AddRelation(parentOp, childOp, graph.RelTransform, "parent transform")
	return err
}

// buildObjectTransform is rule 3: every object gets a local-to-world
// transform operation, time-dependent by default (an un-keyframed static
// object is the common case the scheduler still has to order correctly on
// the first frame).
func (b *Builder) buildObjectTransform(g *graph.Graph, obj graph.EntityID) error {
	op, err := g.EnsureOperation(obj, graph.KindTransform, graph.KindOpTransform, "eval")
	if err != nil {
		return err
	}
	op.ExecClassV = graph.ExecExec
	if g.TimeSource() != nil {
		if _, err := g.AddRelation(g.TimeSource(), op, graph.RelTime, "transform time dependency"); err != nil {
			return err
		}
	}
	return nil
}

// buildConstraintGraph is rule 4: a single "Constraint Stack" op on the
// object's TRANSFORM, with an incoming edge from each constraint's resolved
// targets. IK and spline-IK constraints are excluded here — rule 5 handles
// them at pose level once every bone exists.
func (b *Builder) buildConstraintGraph(g *graph.Graph, obj graph.EntityID) error {
	constraints := b.reader.Constraints(obj)
	if len(constraints) == 0 {
		return nil
	}
	cop, err := g.EnsureOperation(obj, graph.KindTransform, graph.KindOpTransform, "Constraint Stack")
	if err != nil {
		return err
	}
	cop.ExecClassV = graph.ExecExec

	for _, c := range constraints {
		sources, err := b.resolveConstraintSources(g, c)
		if err != nil {
			return err
		}
		for _, src := range sources {
			if graph.HasRelation(src, cop, graph.RelStandard) {
				continue
			}
			if _, err := g.AddRelation(src, cop, graph.RelStandard, "constraint target"); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveConstraintSources dispatches one constraint's target(s) per rule
// 4's table. It is shared between object-level (buildConstraintGraph) and
// bone-level (buildRigGraph) constraints. IK/spline-IK targets return no
// sources — they are not part of this loop.
func (b *Builder) resolveConstraintSources(g *graph.Graph, c ConstraintSpec) ([]*graph.Node, error) {
	switch c.TargetKind {
	case ConstraintTargetIK, ConstraintTargetSplineIK:
		return nil, nil

	case ConstraintTargetBone:
		n, err := g.EnsureBone(c.Target, c.BoneName)
		if err != nil {
			return nil, err
		}
		return []*graph.Node{n}, nil

	case ConstraintTargetPath, ConstraintTargetGeometry:
		n, err := g.EnsureComponent(c.Target, graph.KindGeometry)
		if err != nil {
			return nil, err
		}
		return []*graph.Node{n}, nil

	case ConstraintTargetCamera:
		camera, ok := b.reader.SceneCamera()
		if !ok {
			return nil, nil
		}
		cam, err := g.EnsureComponent(camera, graph.KindTransform)
		if err != nil {
			return nil, err
		}
		sources := []*graph.Node{cam}
		if c.DepthObject != nil {
			depth, err := g.EnsureComponent(c.DepthObject, graph.KindTransform)
			if err != nil {
				return nil, err
			}
			sources = append(sources, depth)
		}
		return sources, nil

	default: // ConstraintTargetDefault
		n, err := g.EnsureComponent(c.Target, graph.KindTransform)
		if err != nil {
			return nil, err
		}
		return []*graph.Node{n}, nil
	}
}

// buildAnimdataGraph is rule 8: each driver produces an OP_DRIVER whose
// outgoing edge targets the node resolved from its own property path (a
// DRIVER relation) and whose incoming edges come from each variable target
// (a DRIVER_TARGET relation). The reader hands us both already resolved to
// (entity, component kind) pairs — resolving a raw property path is the
// host's job, not the builder's.
func (b *Builder) buildAnimdataGraph(g *graph.Graph, obj graph.EntityID) error {
	drivers := b.reader.Drivers(obj)
	if len(drivers) == 0 {
		return nil
	}
	for _, d := range drivers {
		driverOp, err := g.EnsureOperation(obj, graph.KindParameters, graph.KindOpDriver, d.Name)
		if err != nil {
			return err
		}
		driverOp.ExecClassV = graph.ExecInit
		driverOp.SetFlag(graph.FlagUsesPython, d.UsesPython)

		writes, err := g.EnsureComponent(d.Writes.Entity, d.Writes.Kind)
		if err != nil {
			return err
		}
		if !graph.HasRelation(driverOp, writes, graph.RelDriver) {
			if _, err := g.AddRelation(driverOp, writes, graph.RelDriver, "driver output"); err != nil {
				return err
			}
		}

		for _, t := range d.Targets {
			target, err := g.EnsureComponent(t.Entity, t.Kind)
			if err != nil {
				return err
			}
			if graph.HasRelation(target, driverOp, graph.RelDriverTarget) {
				continue
			}
			if _, err := g.AddRelation(target, driverOp, graph.RelDriverTarget, "driver variable target"); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildObdataGeomGraph is rule 6: an object's geometry depends on its
// data-block's geometry. The data-block is built once even if many objects
// share it.
func (b *Builder) buildObdataGeomGraph(g *graph.Graph, obj graph.EntityID) error {
	data, ok := b.reader.DataOf(obj)
	if !ok {
		return nil
	}
	if !b.visited[data] {
		b.visited[data] = true
		op, err := g.EnsureOperation(data, graph.KindGeometry, graph.KindOpGeometry, "eval")
		if err != nil {
			return err
		}
		op.ExecClassV = graph.ExecExec
	}
	dataOp, err := g.Find(graph.KindOpGeometry, data, "eval")
	if err != nil {
		return err
	}
	objOp, err := g.EnsureOperation(obj, graph.KindGeometry, graph.KindOpGeometry, "eval")
	if err != nil {
		return err
	}
	objOp.ExecClassV = graph.ExecExec
	_, err = g.AddRelation(dataOp, objOp, graph.RelDatablock, "data geometry -> object geometry")
	return err
}

// buildMaterialGraph is rule 7's shared-asset half: materials and their
// textures are built once (guarded by b.visited) no matter how many
// objects reference them, then linked to this object's geometry.
func (b *Builder) buildMaterialGraph(g *graph.Graph, obj graph.EntityID) error {
	objOp, err := g.Find(graph.KindOpGeometry, obj, "eval")
	if err != nil {
		return err
	}
	for _, mat := range b.reader.Materials(obj) {
		matOp, err := b.ensureSharedParameterOp(g, mat)
		if err != nil {
			return err
		}
		for _, tex := range b.reader.Textures(mat) {
			texOp, err := b.ensureSharedParameterOp(g, tex)
			if err != nil {
				return err
			}
			if !graph.HasRelation(texOp, matOp, graph.RelData) {
				if _, err := g.AddRelation(texOp, matOp, graph.RelData, "texture -> material"); err != nil {
					return err
				}
			}
		}
		if objOp != nil && !graph.HasRelation(matOp, objOp, graph.RelData) {
			if _, err := g.AddRelation(matOp, objOp, graph.RelData, "material -> object geometry"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) ensureSharedParameterOp(g *graph.Graph, entity graph.EntityID) (*graph.Node, error) {
	if !b.visited[entity] {
		b.visited[entity] = true
		op, err := g.EnsureOperation(entity, graph.KindParameters, graph.KindOpParameter, "eval")
		if err != nil {
			return nil, err
		}
		op.ExecClassV = graph.ExecExec
	}
	return g.Find(graph.KindOpParameter, entity, "eval")
}

// buildRigGraph is rule 5: an armature's bones, each with its own
// transform op and optional constraint stack, followed by (once every bone
// exists) the IK/spline-IK solver ops that gain TRANSFORM edges from the
// whole chain up to rootbone.
func (b *Builder) buildRigGraph(g *graph.Graph, obj graph.EntityID) error {
	bones := b.reader.Bones(obj)
	if len(bones) == 0 {
		return nil
	}

	boneParent := make(map[string]string, len(bones))
	boneOps := make(map[string]*graph.Node, len(bones))
	ikBones := make([]BoneSpec, 0)

	for _, bone := range bones {
		boneParent[bone.Name] = bone.Parent

		op, err := g.EnsureBoneOperation(obj, bone.Name, "Bone Transforms")
		if err != nil {
			return err
		}
		op.ExecClassV = graph.ExecExec
		boneOps[bone.Name] = op

		if bone.Parent != "" {
			parentOp, ok := boneOps[bone.Parent]
			if !ok {
				return fmt.Errorf("build: bone %q references unbuilt parent %q (bones must be listed parent-before-child)", bone.Name, bone.Parent)
			}
			if _, err := g.AddRelation(parentOp, op, graph.RelTransform, "parent bone -> child bone"); err != nil {
				return err
			}
		}

		if len(bone.Constraints) > 0 {
			cop, err := g.EnsureBoneOperation(obj, bone.Name, "Constraint Stack")
			if err != nil {
				return err
			}
			cop.ExecClassV = graph.ExecExec
			for _, c := range bone.Constraints {
				sources, err := b.resolveConstraintSources(g, c)
				if err != nil {
					return err
				}
				for _, src := range sources {
					if graph.HasRelation(src, cop, graph.RelStandard) {
						continue
					}
					if _, err := g.AddRelation(src, cop, graph.RelStandard, "bone constraint target"); err != nil {
						return err
					}
				}
			}
		}

		if bone.IK != nil {
			ikBones = append(ikBones, bone)
		}
	}

	for _, tip := range ikBones {
		if err := b.buildIKSolver(g, obj, tip, boneParent); err != nil {
			return err
		}
	}
	return nil
}

// buildIKSolver is rule 5's second pass: one OP_POSE per IK/spline-IK bone,
// with a TRANSFORM edge from every bone in the chain from tip up to
// rootbone (or a hard cap of 255 bones, the tip included), plus a GEOMETRY_EVAL edge from
// the spline data's GEOMETRY for spline-IK.
func (b *Builder) buildIKSolver(g *graph.Graph, obj graph.EntityID, tip BoneSpec, boneParent map[string]string) error {
	name := "IK Solver"
	if tip.IK.Spline {
		name = "Spline IK Solver"
	}
	solver, err := g.EnsureOperation(obj, graph.KindEvalPose, graph.KindOpPose, name)
	if err != nil {
		return err
	}
	solver.ExecClassV = graph.ExecSim

	const maxChainLength = 255
	current := tip.Name
	for i := 0; i < maxChainLength; i++ {
		bone, err := g.EnsureBone(obj, current)
		if err != nil {
			return err
		}
		if !graph.HasRelation(bone, solver, graph.RelTransform) {
			if _, err := g.AddRelation(bone, solver, graph.RelTransform, "ik chain bone"); err != nil {
				return err
			}
		}
		if current == tip.IK.RootBone {
			break
		}
		parent, ok := boneParent[current]
		if !ok || parent == "" {
			break
		}
		current = parent
	}

	if tip.IK.Spline && tip.IK.SplineData != nil {
		splineGeom, err := g.EnsureComponent(tip.IK.SplineData, graph.KindGeometry)
		if err != nil {
			return err
		}
		if !graph.HasRelation(splineGeom, solver, graph.RelGeometryEval) {
			if _, err := g.AddRelation(splineGeom, solver, graph.RelGeometryEval, "spline ik data"); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildParticlesGraph is rule 9: a particle simulation depends on the
// object's transform having already evaluated.
func (b *Builder) buildParticlesGraph(g *graph.Graph, obj graph.EntityID) error {
	if !b.reader.HasParticles(obj) {
		return nil
	}
	xformOp, err := g.EnsureOperation(obj, graph.KindTransform, graph.KindOpTransform, "eval")
	if err != nil {
		return err
	}
	particleOp, err := g.EnsureOperation(obj, graph.KindEvalParticles, graph.KindOpParticle, "simulate")
	if err != nil {
		return err
	}
	particleOp.ExecClassV = graph.ExecSim
	_, err = g.AddRelation(xformOp, particleOp, graph.RelStandard, "transform before particle sim")
	return err
}

// buildRigidbodyGraph is rule 10's per-object half: a rigid-body sync
// operation is spliced into the transform chain after the object's own
// base transform and before its constraint stack (see buildObjectGraph's
// call order), and gains a COMPONENT_ORDER edge from the scene's rigid-body
// world sim op.
func (b *Builder) buildRigidbodyGraph(g *graph.Graph, obj graph.EntityID) error {
	if !b.reader.HasRigidBody(obj) {
		return nil
	}
	world, err := b.ensureRigidbodyWorld(g)
	if err != nil {
		return err
	}
	syncOp, err := g.EnsureOperation(obj, graph.KindTransform, graph.KindOpTransform, "RigidBodyObject Sync")
	if err != nil {
		return err
	}
	syncOp.ExecClassV = graph.ExecExec
	if !graph.HasRelation(world.simOp, syncOp, graph.RelComponentOrder) {
		if _, err := g.AddRelation(world.simOp, syncOp, graph.RelComponentOrder, "rigidbody sim -> object sync"); err != nil {
			return err
		}
	}
	return nil
}

// ensureRigidbodyWorld builds (once per Builder) the scene's two
// rigid-body world operations: OP_RIGIDBODY(rebuild="World Rebuild") and
// OP_RIGIDBODY(sim="World Do Simulation"), linked rebuild->sim implicitly
// by insertion order, both time-dependent.
func (b *Builder) ensureRigidbodyWorld(g *graph.Graph) (*rigidbodyWorld, error) {
	if b.world != nil {
		return b.world, nil
	}
	entity, ok := b.reader.RigidBodyWorld()
	if !ok {
		return nil, fmt.Errorf("build: object has a rigid body but the scene has no rigid-body world")
	}
	rebuildOp, err := g.EnsureOperation(entity, graph.KindTransform, graph.KindOpRigidBody, "World Rebuild")
	if err != nil {
		return nil, err
	}
	rebuildOp.ExecClassV = graph.ExecRebuild
	simOp, err := g.EnsureOperation(entity, graph.KindTransform, graph.KindOpRigidBody, "World Do Simulation")
	if err != nil {
		return nil, err
	}
	simOp.ExecClassV = graph.ExecSim
	if g.TimeSource() != nil {
		if _, err := g.AddRelation(g.TimeSource(), rebuildOp, graph.RelTime, "rigidbody world time dependency"); err != nil {
			return nil, err
		}
		if _, err := g.AddRelation(g.TimeSource(), simOp, graph.RelTime, "rigidbody world time dependency"); err != nil {
			return nil, err
		}
	}
	b.world = &rigidbodyWorld{rebuildOp: rebuildOp, simOp: simOp}
	return b.world, nil
}

// buildRigidbodyConstraints is rule 10's constraint clause: a rigid-body
// constraint links the constraint object's TRANSFORM to both constrained
// objects' sync ops and to the world sim op. Run as a pass over every
// object after the main build loop, since a constraint may name an object
// built later than its own.
func (b *Builder) buildRigidbodyConstraints(g *graph.Graph, obj graph.EntityID) error {
	for _, c := range b.reader.RigidBodyConstraints(obj) {
		objSync, err := g.Find(graph.KindOpTransform, obj, "RigidBodyObject Sync")
		if err != nil {
			return err
		}
		if objSync == nil {
			continue // obj itself isn't a rigid body; nothing to link
		}
		coTransform, err := g.EnsureComponent(c.ConstraintObject, graph.KindTransform)
		if err != nil {
			return err
		}
		if !graph.HasRelation(coTransform, objSync, graph.RelTransform) {
			if _, err := g.AddRelation(coTransform, objSync, graph.RelTransform, "rigidbody constraint -> object sync"); err != nil {
				return err
			}
		}
		if c.Other != nil {
			otherSync, err := g.Find(graph.KindOpTransform, c.Other, "RigidBodyObject Sync")
			if err != nil {
				return err
			}
			if otherSync != nil && !graph.HasRelation(coTransform, otherSync, graph.RelTransform) {
				if _, err := g.AddRelation(coTransform, otherSync, graph.RelTransform, "rigidbody constraint -> object sync"); err != nil {
					return err
				}
			}
		}
		world, err := b.ensureRigidbodyWorld(g)
		if err != nil {
			return err
		}
		if !graph.HasRelation(coTransform, world.simOp, graph.RelTransform) {
			if _, err := g.AddRelation(coTransform, world.simOp, graph.RelTransform, "rigidbody constraint -> sim"); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildGroupSubgraph is rule 11: an object that instances a group gets a
// SUBGRAPH node wrapping (and, on later instances, reusing) that group's
// inner graph.
func (b *Builder) buildGroupSubgraph(g *graph.Graph, obj graph.EntityID) error {
	group, members, ok := b.reader.GroupMembers(obj)
	if !ok {
		return nil
	}
	_, err := subgraph.Attach(g, obj, group, func(inner *graph.Graph) error {
		innerBuilder := NewBuilder(b.reader)
		defer innerBuilder.release()
		for _, member := range members {
			if err := innerBuilder.buildObjectGraph(inner, member); err != nil {
				return err
			}
		}
		for _, member := range members {
			if err := innerBuilder.buildRigidbodyConstraints(inner, member); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}
