// Package pool provides typed object pooling for the engine's hot
// ingestion paths. Row maps and row buffers are recycled between
// decode batches to keep garbage collection pressure low.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset.
// The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset
// functions. The reset function, if non-nil, is called before an
// object is returned to the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   newFn,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, allocating one when empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns allocation count, objects in use, and hit count.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// Global pools for the row-oriented construction path. Decoders and
// FromRows borrow a map per row and return it once the values have
// been appended to column builders.

var mapPool = New(
	func() map[string]interface{} { return make(map[string]interface{}, 16) },
	func(m map[string]interface{}) {
		for k := range m {
			delete(m, k)
		}
	},
)

// GetMap borrows a row map from the global pool.
func GetMap() map[string]interface{} {
	return mapPool.Get()
}

// PutMap returns a row map to the global pool.
func PutMap(m map[string]interface{}) {
	mapPool.Put(m)
}

var rowPool = New(
	func() []interface{} { return make([]interface{}, 0, 32) },
	nil,
)

// GetRow borrows a row value buffer from the global pool.
func GetRow() []interface{} {
	return rowPool.Get()[:0]
}

// PutRow returns a row value buffer to the global pool.
func PutRow(row []interface{}) {
	rowPool.Put(row[:0])
}
