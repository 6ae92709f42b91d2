// Package queue implements the value-based binary heaps used by graph
// construction and search.
package queue

// Candidate pairs an internal node ID with its distance to the query.
type Candidate struct {
	ID   uint32
	Dist float32
}

// Heap is a binary heap of candidates ordered by distance. It is
// value-based and does not implement container/heap to avoid interface
// overhead on the search hot path.
type Heap struct {
	max   bool // true = max-heap (worst on top), false = min-heap
	items []Candidate
}

// NewMin creates a min-heap: the closest candidate is on top.
func NewMin(capacity int) *Heap {
	return &Heap{items: make([]Candidate, 0, capacity)}
}

// NewMax creates a max-heap: the farthest candidate is on top.
func NewMax(capacity int) *Heap {
	return &Heap{max: true, items: make([]Candidate, 0, capacity)}
}

// Reset clears the heap for reuse.
func (h *Heap) Reset() {
	h.items = h.items[:0]
}

// Len returns the number of candidates in the heap.
func (h *Heap) Len() int {
	return len(h.items)
}

// Top returns the root candidate without removing it.
func (h *Heap) Top() (Candidate, bool) {
	if len(h.items) == 0 {
		return Candidate{}, false
	}
	return h.items[0], true
}

// Push inserts a candidate while maintaining the heap invariant.
func (h *Heap) Push(c Candidate) {
	h.items = append(h.items, c)
	h.siftUp(len(h.items) - 1)
}

// PushBounded inserts into a heap capped at capacity. On a full max-heap
// a closer candidate replaces the current worst; on a full min-heap a
// farther one does. Candidates that don't improve the heap are dropped.
func (h *Heap) PushBounded(c Candidate, capacity int) {
	if len(h.items) < capacity {
		h.Push(c)
		return
	}
	top := h.items[0]
	if h.max {
		if c.Dist >= top.Dist {
			return
		}
	} else {
		if c.Dist <= top.Dist {
			return
		}
	}
	h.items[0] = c
	h.siftDown(0)
}

// Pop removes and returns the root candidate.
func (h *Heap) Pop() (Candidate, bool) {
	n := len(h.items)
	if n == 0 {
		return Candidate{}, false
	}
	c := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return c, true
}

// Items returns the heap's backing slice in heap order, not sorted order.
// The slice is invalidated by the next mutation.
func (h *Heap) Items() []Candidate {
	return h.items
}

func (h *Heap) less(i, j int) bool {
	if h.max {
		return h.items[i].Dist > h.items[j].Dist
	}
	return h.items[i].Dist < h.items[j].Dist
}

func (h *Heap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && h.less(right, left) {
			child = right
		}
		if !h.less(child, i) {
			break
		}
		h.items[i], h.items[child] = h.items[child], h.items[i]
		i = child
	}
}
