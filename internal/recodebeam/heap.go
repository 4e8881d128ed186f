package recodebeam

// Heap is a min-heap ordered by the less predicate: At(0) is the smallest
// element, which for a beam is the worst kept hypothesis. Callers bound the
// size by popping after a push overflows.
//
// For element n, left(n) >= Len() || !less(xs[left(n)], xs[n]), and the same
// holds for right(n).
type Heap[T any] struct {
	xs   []T
	less func(a, b *T) bool
}

// NewHeap returns an empty heap with room for capacity elements.
func NewHeap[T any](capacity int, less func(a, b *T) bool) *Heap[T] {
	return &Heap[T]{xs: make([]T, 0, capacity), less: less}
}

// Len returns the number of elements.
func (h *Heap[T]) Len() int { return len(h.xs) }

// Empty reports whether the heap holds nothing.
func (h *Heap[T]) Empty() bool { return len(h.xs) == 0 }

// At returns the i'th element in heap order. The pointer stays valid until
// the heap is next modified.
func (h *Heap[T]) At(i int) *T { return &h.xs[i] }

// PeekTop returns the smallest element of a nonempty heap.
func (h *Heap[T]) PeekTop() *T {
	if len(h.xs) == 0 {
		panic("recodebeam: PeekTop on empty heap")
	}
	return &h.xs[0]
}

// Push inserts x.
func (h *Heap[T]) Push(x T) {
	h.xs = append(h.xs, x)
	h.siftUp(len(h.xs) - 1)
}

// Pop removes and returns the smallest element of a nonempty heap.
func (h *Heap[T]) Pop() T {
	l := len(h.xs)
	if l == 0 {
		panic("recodebeam: Pop on empty heap")
	}
	top := h.xs[0]
	h.xs[0] = h.xs[l-1]
	var zero T
	h.xs[l-1] = zero
	h.xs = h.xs[:l-1]
	if l > 2 {
		h.siftDown(0)
	}
	return top
}

// PopWorst removes and returns the largest element, the opposite end from
// Pop. It is a linear scan of the leaves.
func (h *Heap[T]) PopWorst() T {
	l := len(h.xs)
	if l == 0 {
		panic("recodebeam: PopWorst on empty heap")
	}
	// The largest element of a min-heap is a leaf.
	worst := l / 2
	if l == 1 {
		worst = 0
	}
	for i := worst + 1; i < l; i++ {
		if h.less(&h.xs[worst], &h.xs[i]) {
			worst = i
		}
	}
	x := h.xs[worst]
	h.xs[worst] = h.xs[l-1]
	var zero T
	h.xs[l-1] = zero
	h.xs = h.xs[:l-1]
	if worst < len(h.xs) {
		h.siftUp(worst)
	}
	return x
}

// Reshuffle restores the heap property after the key of the element at i
// changed in place.
func (h *Heap[T]) Reshuffle(i int) {
	if i > 0 && h.less(&h.xs[i], &h.xs[parent(i)]) {
		h.siftUp(i)
		return
	}
	h.siftDown(i)
}

// Clear empties the heap, keeping its storage.
func (h *Heap[T]) Clear() {
	clear(h.xs)
	h.xs = h.xs[:0]
}

// Valid reports whether the heap property holds.
func (h *Heap[T]) Valid() bool {
	for i := 1; i < len(h.xs); i++ {
		if h.less(&h.xs[i], &h.xs[parent(i)]) {
			return false
		}
	}
	return true
}

func (h *Heap[T]) siftUp(i int) {
	x := h.xs[i]
	for i > 0 && h.less(&x, &h.xs[parent(i)]) {
		h.xs[i] = h.xs[parent(i)]
		i = parent(i)
	}
	h.xs[i] = x
}

func (h *Heap[T]) siftDown(i int) {
	n := len(h.xs)
	for {
		smallest := i
		if l := left(i); l < n && h.less(&h.xs[l], &h.xs[smallest]) {
			smallest = l
		}
		if r := right(i); r < n && h.less(&h.xs[r], &h.xs[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.xs[i], h.xs[smallest] = h.xs[smallest], h.xs[i]
		i = smallest
	}
}

func parent(i int) int { return (i - 1) / 2 }
func left(i int) int   { return 2*i + 1 }
func right(i int) int  { return 2*i + 2 }
