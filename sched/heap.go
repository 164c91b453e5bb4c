package sched

// bucket holds every immediate transition currently enabled at one
// priority level. Membership is kept as an order slice plus an index map so
// that insertion and swap-removal are both O(1) while remaining fully
// deterministic given a fixed sequence of operations.
type bucket struct {
	priority int
	order    []Transition
	index    map[Transition]int
}

func (b *bucket) insert(t Transition) {
	if _, ok := b.index[t]; ok {
		return
	}
	b.index[t] = len(b.order)
	b.order = append(b.order, t)
}

func (b *bucket) remove(t Transition) {
	i, ok := b.index[t]
	if !ok {
		return
	}
	last := len(b.order) - 1
	b.order[i] = b.order[last]
	b.index[b.order[i]] = i
	b.order = b.order[:last]
	delete(b.index, t)
}

// priorityHeap is a max-heap of priority-level buckets. A bucket can sit in
// the heap while momentarily empty; SelectNext discards those lazily
// rather than paying to keep the heap perfectly pruned on every disable.
type priorityHeap []*bucket

func (h priorityHeap) Len() int            { return len(h) }
func (h priorityHeap) Less(i, j int) bool  { return h[i].priority > h[j].priority }
func (h priorityHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x interface{}) { *h = append(*h, x.(*bucket)) }
func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// timedEntry schedules a single timed transition's next deadline. seq is a
// strictly increasing counter breaking ties between equal deadlines in
// insertion order.
type timedEntry struct {
	deadline float64
	seq      uint64
	t        Transition
}

// timedHeap is a min-heap ordered by (deadline, seq).
type timedHeap []timedEntry

func (h timedHeap) Len() int { return len(h) }
func (h timedHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h timedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timedHeap) Push(x interface{}) { *h = append(*h, x.(timedEntry)) }
func (h *timedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
