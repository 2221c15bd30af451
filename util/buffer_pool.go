package util

import (
	"sync"
	"sync/atomic"
)

// SlicePool provides pooling for flat slices to reduce allocations.
// Slices are bucketed by exact length.
type SlicePool[T any] struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex

	// Metrics
	hits   atomic.Int64
	misses atomic.Int64
}

var (
	float32Pool = NewSlicePool[float32]()
	bytePool    = NewSlicePool[byte]()
)

// NewSlicePool creates an empty pool.
func NewSlicePool[T any]() *SlicePool[T] {
	return &SlicePool[T]{pools: make(map[int]*sync.Pool)}
}

// Get retrieves a slice of length n from the pool or creates a new one.
// Returned slices are always zeroed.
func (p *SlicePool[T]) Get(n int) []T {
	if n <= 0 {
		return make([]T, 0)
	}

	// Fast path: read lock
	p.mu.RLock()
	pool, exists := p.pools[n]
	p.mu.RUnlock()

	if exists {
		if s := pool.Get(); s != nil {
			p.hits.Add(1)
			return s.([]T)
		}
	} else {
		// Slow path: create new pool
		p.mu.Lock()
		// Double-check after acquiring write lock
		_, exists = p.pools[n]
		if !exists {
			p.pools[n] = &sync.Pool{}
		}
		p.mu.Unlock()
	}

	p.misses.Add(1)
	return make([]T, n)
}

// Put returns a slice to the pool after clearing it
func (p *SlicePool[T]) Put(s []T) {
	if len(s) == 0 {
		return
	}

	p.mu.RLock()
	pool, exists := p.pools[len(s)]
	p.mu.RUnlock()

	if exists {
		clear(s)
		pool.Put(s)
	}
}

// GetMetrics returns pool usage statistics
func (p *SlicePool[T]) GetMetrics() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// Public API functions

// MakeFloat32SlicePooled creates or retrieves a float32 slice from the pool
func MakeFloat32SlicePooled(n int) []float32 {
	return float32Pool.Get(n)
}

// ReturnFloat32SliceToPool returns a float32 slice to the pool
func ReturnFloat32SliceToPool(s []float32) {
	float32Pool.Put(s)
}

// MakeByteSlicePooled creates or retrieves a byte slice from the pool
func MakeByteSlicePooled(n int) []byte {
	return bytePool.Get(n)
}

// ReturnByteSliceToPool returns a byte slice to the pool
func ReturnByteSliceToPool(s []byte) {
	bytePool.Put(s)
}

// GetPoolMetrics returns metrics for all pools
func GetPoolMetrics() map[string]map[string]int64 {
	f32Hits, f32Misses := float32Pool.GetMetrics()
	byteHits, byteMisses := bytePool.GetMetrics()

	return map[string]map[string]int64{
		"float32": {
			"hits":   f32Hits,
			"misses": f32Misses,
		},
		"byte": {
			"hits":   byteHits,
			"misses": byteMisses,
		},
	}
}
