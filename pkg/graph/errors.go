package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, in the shape of storage.ErrNotFound/ErrAlreadyExists from
// the teacher's pkg/storage/types.go: callers errors.Is against these
// rather than parsing messages.
var (
	ErrNoRoot          = errors.New("graph: no root node")
	ErrUnknownKind     = errors.New("graph: unknown node kind")
	ErrMissingOwner    = errors.New("graph: cannot add node without owning component")
	ErrDuplicateNode   = errors.New("graph: duplicate node for (kind, entity, name)")
	ErrNotInGraph      = errors.New("graph: node is not part of this graph")
	ErrCycle           = errors.New("graph: cycle among operation nodes")
	ErrValidationFirst = errors.New("graph: validate_links must succeed before evaluation")
)

// LinkError reports a structural error from add_to_graph/validate_links:
// a missing owner, an unresolvable reference, or an inconsistent edge list.
// Modeled on the teacher's *ConstraintViolationError
// (pkg/storage/constraint_validation.go) — a typed error carrying
// machine-readable detail, not just a formatted string.
type LinkError struct {
	Node    *Node
	Reason  string
	Wrapped error
}

func (e *LinkError) Error() string {
	name := "<nil>"
	if e.Node != nil {
		name = fmt.Sprintf("%s(%s)", e.Node.Kind, e.Node.Name)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("graph: link error on %s: %s: %v", name, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("graph: link error on %s: %s", name, e.Reason)
}

func (e *LinkError) Unwrap() error { return e.Wrapped }

// CycleError reports a cycle detected among operation nodes during
// validate_links, citing the offending edges (spec.md §8 scenario 4).
type CycleError struct {
	Edges []*Relation
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Edges))
	for _, r := range e.Edges {
		from, to := "?", "?"
		if r.From != nil {
			from = r.From.Name
		}
		if r.To != nil {
			to = r.To.Name
		}
		parts = append(parts, fmt.Sprintf("%s->%s", from, to))
	}
	return fmt.Sprintf("graph: cycle detected: %s", strings.Join(parts, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }
