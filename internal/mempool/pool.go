package mempool

import (
	"sync"
)

// Sized pools for []float32 network outputs and []int8 per-class flag
// buffers, used on the decode hot path.

// slicePool keeps one sync.Pool per size class.
type slicePool[T any] struct {
	pools sync.Map // key: size class (int), value: *sync.Pool
	zero  bool
}

var (
	float32Pool = &slicePool[float32]{}
	int8Pool    = &slicePool[int8]{zero: true}
)

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func (sp *slicePool[T]) pool(cls int) *sync.Pool {
	pAny, _ := sp.pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return nil
	}
	return p
}

func (sp *slicePool[T]) get(n int) []T {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	p := sp.pool(cls)
	if p == nil {
		return make([]T, cls)[:n]
	}
	buf, ok := p.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	if sp.zero {
		clear(buf)
	}
	return buf
}

func (sp *slicePool[T]) put(buf []T) {
	if buf == nil {
		return
	}
	p := sp.pool(sizeClass(cap(buf)))
	if p == nil {
		return
	}
	// Reset length to full cap to avoid keeping len from caller.
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetFloat32 retrieves a []float32 buffer of n elements from the pool.
// Contents are not cleared. Return it with PutFloat32.
func GetFloat32(n int) []float32 { return float32Pool.get(n) }

// PutFloat32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat32(buf []float32) { float32Pool.put(buf) }

// GetInt8 retrieves a zeroed []int8 buffer of n elements from the pool.
// Return it with PutInt8.
func GetInt8(n int) []int8 { return int8Pool.get(n) }

// PutInt8 returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt8(buf []int8) { int8Pool.put(buf) }
