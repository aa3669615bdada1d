// Package pool provides typed object pooling for per-batch scratch space.
//
// Evaluation of a batch needs short-lived row index lists whose size tracks
// the batch length. Pooling them keeps steady-state evaluation from
// allocating on every call:
//
//	buf := pool.GetIndexBuffer(n)
//	defer pool.PutIndexBuffer(buf)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and an optional reset
// function applied before objects are pooled again. The pool is safe for
// concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a new typed pool. new is called when the pool is empty and
// reset, when non-nil, before an object is returned to the pool.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, allocating one when it is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool for reuse.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects allocated, currently checked out,
// and handed out in total. gets minus allocated is the number of reuses.
func (p *Pool[T]) Stats() (allocated, inUse, gets int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.gets)
}

// IndexBuffer is a reusable list of row indices.
type IndexBuffer struct {
	Rows []int
}

// IndexPool pools row index lists.
var IndexPool = New(
	func() *IndexBuffer { return &IndexBuffer{Rows: make([]int, 0, 1024)} },
	func(b *IndexBuffer) { b.Rows = b.Rows[:0] },
)

// GetIndexBuffer returns a buffer whose Rows has length n.
func GetIndexBuffer(n int) *IndexBuffer {
	b := IndexPool.Get()
	if cap(b.Rows) < n {
		b.Rows = make([]int, n)
	}
	b.Rows = b.Rows[:n]
	return b
}

// PutIndexBuffer returns b to the pool. It is safe to call with nil.
func PutIndexBuffer(b *IndexBuffer) {
	if b != nil {
		IndexPool.Put(b)
	}
}
