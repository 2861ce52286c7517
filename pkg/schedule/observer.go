package schedule

import "github.com/scenedeps/depsgraph/pkg/graph"

// Observer is notified of scheduling events as they happen, independent of
// the final Outcome slice Run returns. pkg/trace implements this to record
// an evaluation history; tests can implement it to assert dispatch order.
type Observer interface {
	OnDispatch(n *graph.Node)
	OnComplete(n *graph.Node, err error)
	OnSkip(n *graph.Node, reason string)
}

func (s *Scheduler) notifyDispatch(n *graph.Node) {
	for _, o := range s.observers {
		o.OnDispatch(n)
	}
}

func (s *Scheduler) notifyComplete(n *graph.Node, err error) {
	for _, o := range s.observers {
		o.OnComplete(n, err)
	}
}

func (s *Scheduler) notifySkip(n *graph.Node, reason string) {
	for _, o := range s.observers {
		o.OnSkip(n, reason)
	}
}

// AddObserver registers o to receive dispatch/complete/skip notifications.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}
