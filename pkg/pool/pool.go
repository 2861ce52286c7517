// Package pool provides object pooling for depsgraph's scratch collections,
// to reduce allocations on the scheduler's hot path.
//
// Object pooling reuses allocated objects instead of creating new ones,
// reducing GC pressure and improving throughput for high-frequency
// operations.
//
// Pooled objects:
// - Node slices (ready queues, BFS frontiers)
// - Node sets (visited/seen guards)
// - Entity sets (builder cycle/dedup guards)
//
// Usage:
//
//	// Get a slice from pool
//	frontier := pool.GetNodeSlice()
//	defer pool.PutNodeSlice(frontier)
//
//	// Use the slice...
//	frontier = append(frontier, dirtyNode)
package pool

import (
	"sync"

	"github.com/scenedeps/depsgraph/pkg/graph"
)

// Config configures object pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active
	Enabled bool

	// MaxSize limits maximum objects kept in each pool
	MaxSize int
}

var globalConfig = Config{
	Enabled: true,
	MaxSize: 4096,
}

// Configure sets global pool configuration.
// Should be called early during initialization.
func Configure(cfg Config) {
	globalConfig = cfg
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// =============================================================================
// Node Slice Pool (ready queues, BFS frontiers)
// =============================================================================

var nodeSlicePool = sync.Pool{
	New: func() any {
		return make([]*graph.Node, 0, 64)
	},
}

// GetNodeSlice returns a node slice from the pool.
// The returned slice has length 0 but may have capacity.
// Call PutNodeSlice when done.
func GetNodeSlice() []*graph.Node {
	if !globalConfig.Enabled {
		return make([]*graph.Node, 0, 64)
	}
	return nodeSlicePool.Get().([]*graph.Node)[:0]
}

// PutNodeSlice returns a node slice to the pool.
func PutNodeSlice(nodes []*graph.Node) {
	if !globalConfig.Enabled {
		return
	}
	if cap(nodes) > globalConfig.MaxSize {
		return
	}
	for i := range nodes {
		nodes[i] = nil
	}
	nodeSlicePool.Put(nodes[:0])
}

// =============================================================================
// Node Set Pool (visited/seen guards)
// =============================================================================

var nodeSetPool = sync.Pool{
	New: func() any {
		return make(map[*graph.Node]bool, 16)
	},
}

// GetNodeSet returns an empty node set from the pool.
func GetNodeSet() map[*graph.Node]bool {
	if !globalConfig.Enabled {
		return make(map[*graph.Node]bool, 16)
	}
	m := nodeSetPool.Get().(map[*graph.Node]bool)
	for k := range m {
		delete(m, k)
	}
	return m
}

// PutNodeSet returns a node set to the pool.
func PutNodeSet(m map[*graph.Node]bool) {
	if !globalConfig.Enabled || m == nil {
		return
	}
	if len(m) > globalConfig.MaxSize {
		return
	}
	for k := range m {
		delete(m, k)
	}
	nodeSetPool.Put(m)
}

// =============================================================================
// Entity Set Pool (builder cycle/dedup guards)
// =============================================================================

var entitySetPool = sync.Pool{
	New: func() any {
		return make(map[graph.EntityID]bool, 16)
	},
}

// GetEntitySet returns an empty entity set from the pool.
func GetEntitySet() map[graph.EntityID]bool {
	if !globalConfig.Enabled {
		return make(map[graph.EntityID]bool, 16)
	}
	m := entitySetPool.Get().(map[graph.EntityID]bool)
	for k := range m {
		delete(m, k)
	}
	return m
}

// PutEntitySet returns an entity set to the pool.
func PutEntitySet(m map[graph.EntityID]bool) {
	if !globalConfig.Enabled || m == nil {
		return
	}
	if len(m) > globalConfig.MaxSize {
		return
	}
	for k := range m {
		delete(m, k)
	}
	entitySetPool.Put(m)
}
