package utils

// Heap is a binary min-heap ordered by Less.
type Heap[T any] struct {
	buf  []T
	Less func(a, b T) bool
}

func NewHeap[T any](less func(a, b T) bool, items ...T) *Heap[T] {
	h := &Heap[T]{Less: less}
	for _, item := range items {
		h.Push(item)
	}
	return h
}

func (h *Heap[T]) Len() int {
	return len(h.buf)
}

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *Heap[T]) Push(x T) {
	h.buf = append(h.buf, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the minimum element.
// The complexity is O(log n) where n = h.Len().
func (h *Heap[T]) Pop() (min T) {
	min = h.buf[0]
	n := h.Len() - 1
	h.buf[0], h.buf[n] = h.buf[n], h.buf[0]
	h.down(0, n)
	h.buf = h.buf[0:n]
	return
}

// Drain pops everything, in order.
func (h *Heap[T]) Drain() []T {
	ret := make([]T, 0, h.Len())
	for h.Len() > 0 {
		ret = append(ret, h.Pop())
	}
	return ret
}

func (h *Heap[T]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h.Less(h.buf[j], h.buf[i]) {
			break
		}
		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		j = i
	}
}

func (h *Heap[T]) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h.Less(h.buf[j2], h.buf[j1]) {
			j = j2 // = 2*i + 2  // right child
		}
		if !h.Less(h.buf[j], h.buf[i]) {
			break
		}
		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		i = j
	}
	return i > i0
}
