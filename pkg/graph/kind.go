// Package graph implements the scene dependency graph's data model: nodes,
// relations, the per-kind node registry, and the indexed storage that owns
// them.
//
// The design keeps the teacher's (nornicdb/pkg/storage) shape — a Node/Edge
// pair, an Engine-like owning store with label/edge indices, strongly typed
// IDs — and generalizes it from a property graph database to a dependency
// graph: relations are typed by dependency category rather than by a
// user-defined string, and every node belongs to exactly one of three
// strata (structural, component, operation) enforced by the hierarchy in
// hierarchy.go.
package graph

import "fmt"

// Kind tags every node with its role in the graph. The three strata from
// spec.md §3 are, in declaration order: structural (Root..Subgraph),
// component (Parameters..Bone), operation (OpParameter..OpRigidBody).
type Kind uint8

const (
	// Structural strata.
	KindRoot Kind = iota
	KindTimeSource
	KindIDRef
	KindSubgraph

	// Component stratum (children of an IDRef, one per (entity, kind)).
	KindParameters
	KindProxy
	KindAnimation
	KindTransform
	KindGeometry
	KindEvalPose
	KindEvalParticles
	KindBone // sub-level under EvalPose, indexed by bone name

	// Operation stratum (leaves).
	KindOpParameter
	KindOpProxy
	KindOpTransform
	KindOpAnimation
	KindOpGeometry
	KindOpUpdate
	KindOpDriver
	KindOpPose
	KindOpBone
	KindOpParticle
	KindOpRigidBody

	numKinds
)

var kindNames = [numKinds]string{
	KindRoot:          "ROOT",
	KindTimeSource:    "TIMESOURCE",
	KindIDRef:         "ID_REF",
	KindSubgraph:      "SUBGRAPH",
	KindParameters:    "PARAMETERS",
	KindProxy:         "PROXY",
	KindAnimation:     "ANIMATION",
	KindTransform:     "TRANSFORM",
	KindGeometry:      "GEOMETRY",
	KindEvalPose:      "EVAL_POSE",
	KindEvalParticles: "EVAL_PARTICLES",
	KindBone:          "BONE",
	KindOpParameter:   "OP_PARAMETER",
	KindOpProxy:       "OP_PROXY",
	KindOpTransform:   "OP_TRANSFORM",
	KindOpAnimation:   "OP_ANIMATION",
	KindOpGeometry:    "OP_GEOMETRY",
	KindOpUpdate:      "OP_UPDATE",
	KindOpDriver:      "OP_DRIVER",
	KindOpPose:        "OP_POSE",
	KindOpBone:        "OP_BONE",
	KindOpParticle:    "OP_PARTICLE",
	KindOpRigidBody:   "OP_RIGIDBODY",
}

func (k Kind) String() string {
	if int(k) < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindNames[k]
}

// IsStructural reports whether k is one of ROOT, TIMESOURCE, ID_REF, SUBGRAPH.
func (k Kind) IsStructural() bool { return k <= KindSubgraph }

// IsComponent reports whether k is a component-stratum kind.
func (k Kind) IsComponent() bool { return k >= KindParameters && k <= KindBone }

// IsOperation reports whether k is an operation-stratum (leaf) kind.
func (k Kind) IsOperation() bool { return k >= KindOpParameter }

// stratum assigns every kind a fixed depth so that invariant 1 from
// spec.md §3 ("the owner's kind is one stratum above the node's kind") can
// be checked without reference to any particular graph instance.
//
//	0: Root
//	1: TimeSource, IDRef
//	2: Subgraph, Parameters, Proxy, Animation, Transform, Geometry,
//	   EvalPose, EvalParticles
//	3: Bone, every Op* except OpBone
//	4: OpBone (child of Bone)
func (k Kind) stratum() int {
	switch k {
	case KindRoot:
		return 0
	case KindTimeSource, KindIDRef:
		return 1
	case KindSubgraph, KindParameters, KindProxy, KindAnimation, KindTransform,
		KindGeometry, KindEvalPose, KindEvalParticles:
		return 2
	case KindBone:
		return 3
	case KindOpBone:
		return 4
	default:
		if k.IsOperation() {
			return 3
		}
		return -1
	}
}

// ExecClass is the execution class carried by operation nodes, used as the
// primary topological-sort tie-break (§4.G): INIT < REBUILD < EXEC < SIM < POST.
type ExecClass uint8

const (
	ExecInit ExecClass = iota
	ExecRebuild
	ExecExec
	ExecSim
	ExecPost
)

func (e ExecClass) String() string {
	switch e {
	case ExecInit:
		return "INIT"
	case ExecRebuild:
		return "REBUILD"
	case ExecExec:
		return "EXEC"
	case ExecSim:
		return "SIM"
	case ExecPost:
		return "POST"
	default:
		return fmt.Sprintf("ExecClass(%d)", e)
	}
}

// opComponentKind maps an operation kind to the component kind it is
// resolved under, per the fixed table in spec.md §4.B
// ("OP_TRANSFORM -> TRANSFORM, OP_DRIVER -> PARAMETERS, OP_BONE -> EVAL_POSE").
var opComponentKind = map[Kind]Kind{
	KindOpParameter: KindParameters,
	KindOpProxy:     KindProxy,
	KindOpTransform: KindTransform,
	KindOpAnimation: KindAnimation,
	KindOpGeometry:  KindGeometry,
	KindOpUpdate:    KindParameters,
	KindOpDriver:    KindParameters,
	KindOpPose:      KindEvalPose,
	KindOpBone:      KindBone,
	KindOpParticle:  KindEvalParticles,
	// OP_RIGIDBODY's owning component kind is a resolved Open Question
	// (SPEC_FULL.md §7.3): TRANSFORM, since rigid-body sync operations are
	// spliced into the object's transform chain (rule 10).
	KindOpRigidBody: KindTransform,
}
