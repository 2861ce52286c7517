package schedule

import (
	"context"

	"github.com/scenedeps/depsgraph/pkg/graph"
	"github.com/scenedeps/depsgraph/pkg/tag"
)

// EvaluateOnFramechange is the named entry point spec.md §4.G describes for
// a time change: it tags the graph's time source dirty, flushes with
// timeChanged=true (so TIME edges participate), stores ctime on the time
// source for callbacks to read, and runs the scheduler.
func (s *Scheduler) EvaluateOnFramechange(ctx context.Context, g *graph.Graph, ctime float64) ([]Outcome, error) {
	ts := g.TimeSource()
	if ts != nil {
		ts.LastTime = ctime
		ts.SetFlag(graph.FlagDirty, true)
	}
	tag.Flush(g, true)
	return s.Run(ctx, g)
}

// EvaluateOnRefresh is the named entry point spec.md §4.G describes for a
// property change with no time change: it operates on the pre-existing
// dirty set, flushing with timeChanged=false, without tagging anything
// itself — the caller is responsible for having already tagged whatever
// changed (tag.Node, tag.Entity, tag.ByPropertyReference, tag.AllVisible).
func (s *Scheduler) EvaluateOnRefresh(ctx context.Context, g *graph.Graph) ([]Outcome, error) {
	tag.Flush(g, false)
	return s.Run(ctx, g)
}
