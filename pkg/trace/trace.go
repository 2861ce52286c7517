// Package trace is an optional evaluation-history recorder: it implements
// schedule.Observer and appends one entry per dispatch/skip/complete event
// to an embedded badger store, grounded on the teacher's BadgerEngine
// (pkg/storage/badger.go). It is deliberately not part of core graph
// state — spec.md's Non-goals exclude result caching, and this package
// caches nothing the scheduler reads back; it is write-only history for
// a human or a later `depsgraphctl trace dump` to inspect.
package trace

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/scenedeps/depsgraph/pkg/graph"
	"github.com/scenedeps/depsgraph/pkg/schedule"
)

var _ schedule.Observer = (*Recorder)(nil)

// Event is one recorded scheduling event.
type Event struct {
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"` // dispatch, complete, skip
	NodeKind  string    `json:"nodeKind"`
	NodeName  string    `json:"nodeName"`
	Error     string    `json:"error,omitempty"`
	SkipCause string    `json:"skipCause,omitempty"`
}

// Recorder is a schedule.Observer backed by a badger.DB at path.
type Recorder struct {
	db  *badger.DB
	seq atomic.Uint64
}

// Open opens (creating if absent) a badger store at path for recording
// evaluation history.
func Open(path string) (*Recorder, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("trace: opening %s: %w", path, err)
	}
	return &Recorder{db: db}, nil
}

// Close closes the underlying badger store.
func (r *Recorder) Close() error { return r.db.Close() }

// OnDispatch implements schedule.Observer.
func (r *Recorder) OnDispatch(n *graph.Node) {
	r.append(Event{Kind: "dispatch", NodeKind: n.Kind.String(), NodeName: n.Name})
}

// OnComplete implements schedule.Observer.
func (r *Recorder) OnComplete(n *graph.Node, err error) {
	e := Event{Kind: "complete", NodeKind: n.Kind.String(), NodeName: n.Name}
	if err != nil {
		e.Error = err.Error()
	}
	r.append(e)
}

// OnSkip implements schedule.Observer.
func (r *Recorder) OnSkip(n *graph.Node, reason string) {
	r.append(Event{Kind: "skip", NodeKind: n.Kind.String(), NodeName: n.Name, SkipCause: reason})
}

func (r *Recorder) append(e Event) {
	e.Seq = r.seq.Add(1)
	e.Time = time.Now()
	data, err := json.Marshal(e)
	if err != nil {
		return // a malformed event is dropped rather than crashing the scheduler
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, e.Seq)
	_ = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// All returns every recorded event in sequence order.
func (r *Recorder) All() ([]Event, error) {
	var events []Event
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var e Event
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trace: reading events: %w", err)
	}
	return events, nil
}
