package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scenedeps/depsgraph/pkg/callback"
	"github.com/scenedeps/depsgraph/pkg/graph"
	"github.com/scenedeps/depsgraph/pkg/pool"
)

// Outcome reports what happened to one operation node during a Run.
type Outcome struct {
	Node    *graph.Node
	Err     error
	Skipped bool
	Reason  string
}

// Scheduler dispatches a graph's dirty operations in dependency order
// (spec.md §8). A Scheduler is reusable across many Run calls against
// different graphs.
type Scheduler struct {
	Callbacks         *callback.Registry
	WorkerCount       int
	ScriptLockEnabled bool
	Metrics           *Instrumentation

	scriptMu sync.Mutex
	simMu    sync.Mutex

	observers []Observer
}

// New creates a Scheduler. workerCount < 1 is treated as 1.
func New(callbacks *callback.Registry, workerCount int, scriptLockEnabled bool) *Scheduler {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Scheduler{Callbacks: callbacks, WorkerCount: workerCount, ScriptLockEnabled: scriptLockEnabled}
}

// Run dispatches every dirty operation in g in dependency order, using up
// to WorkerCount concurrent workers. Operations flagged FlagUsesPython are
// serialized against each other under a script lock (if ScriptLockEnabled);
// ExecSim operations are serialized against each other regardless, since
// simulation callbacks are assumed to touch shared engine-level state.
//
// A single coordinator goroutine owns all in-degree bookkeeping and the
// ready queue; worker goroutines only ever execute one callback at a time
// and report back — this keeps the scheduling state itself free of locks.
//
// Run always calls graph.ValidateLinks first (spec.md §4.G's prerequisite
// pass): a cycle or other structural defect is reported wrapped in
// graph.ErrValidationFirst and no callback is ever invoked (§8 scenario 4).
//
// If ctx is cancelled mid-run, every operation not yet dispatched is
// skipped rather than executed (spec.md §8 "cancellation"); Run still
// returns every Outcome collected so far, alongside an error wrapping
// ErrAborted. If an operation's callback returns an error, every operation
// transitively depending on it is downgraded to skipped rather than
// dispatched (§8 "failure downgrading") — the failing operation's own
// Outcome still carries the error.
func (s *Scheduler) Run(ctx context.Context, g *graph.Graph) ([]Outcome, error) {
	if err := graph.ValidateLinks(g); err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrValidationFirst, err)
	}

	ops, indeg, succ, index := buildAdjacency(g)
	if len(ops) == 0 {
		return nil, nil
	}

	failed := pool.GetNodeSet()
	defer pool.PutNodeSet(failed)
	queue := pool.GetNodeSlice()
	for _, n := range ops {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	sortReady(queue, index)

	dispatchCh := make(chan *graph.Node, len(ops))
	completions := make(chan Outcome, len(ops))

	var wg sync.WaitGroup
	for i := 0; i < s.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range dispatchCh {
				completions <- s.runOne(ctx, n)
			}
		}()
	}

	results := make([]Outcome, 0, len(ops))
	outstanding := 0

	advance := func(n *graph.Node) {
		for _, next := range succ[n] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
		sortReady(queue, index)
	}

	var propagateFailure func(n *graph.Node)
	propagateFailure = func(n *graph.Node) {
		for _, next := range succ[n] {
			if failed[next] {
				continue
			}
			failed[next] = true
			propagateFailure(next)
		}
	}

	for len(queue) > 0 || outstanding > 0 {
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]

			switch {
			case ctx.Err() != nil:
				n.SetFlag(graph.FlagSkipped, true)
				s.notifySkip(n, "cancelled")
				s.Metrics.recordSkip(ctx)
				results = append(results, Outcome{Node: n, Skipped: true, Reason: "cancelled"})
				advance(n)
			case failed[n]:
				n.SetFlag(graph.FlagSkipped, true)
				s.notifySkip(n, "predecessor failed")
				s.Metrics.recordSkip(ctx)
				results = append(results, Outcome{Node: n, Skipped: true, Reason: "predecessor failed"})
				propagateFailure(n)
				advance(n)
			case !n.Dirty():
				results = append(results, Outcome{Node: n})
				advance(n)
			default:
				outstanding++
				dispatchCh <- n
			}
		}
		if outstanding == 0 {
			break
		}
		res := <-completions
		outstanding--
		results = append(results, res)
		if res.Err != nil {
			propagateFailure(res.Node)
		}
		advance(res.Node)
	}

	close(dispatchCh)
	wg.Wait()
	pool.PutNodeSlice(queue[:0])
	if ctx.Err() != nil {
		return results, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	}
	return results, nil
}

func (s *Scheduler) runOne(ctx context.Context, n *graph.Node) Outcome {
	s.notifyDispatch(n)

	if s.ScriptLockEnabled && n.HasFlag(graph.FlagUsesPython) {
		s.scriptMu.Lock()
		defer s.scriptMu.Unlock()
	}
	if n.ExecClassV == graph.ExecSim {
		s.simMu.Lock()
		defer s.simMu.Unlock()
	}

	start := time.Now()
	err := s.Callbacks.Call(ctx, n.CallbackName, n)
	s.Metrics.recordDispatch(ctx, time.Since(start), err)
	s.notifyComplete(n, err)

	if err == nil {
		n.SetFlag(graph.FlagDirty, false)
	}
	return Outcome{Node: n, Err: err}
}

func sortReady(queue []*graph.Node, index map[*graph.Node]int) {
	sort.Slice(queue, func(i, j int) bool { return less(queue[i], queue[j], index) })
}
