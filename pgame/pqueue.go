package pgame

import "container/heap"

// refItem is one not-yet-resolved reference waiting in the exploration
// queue, ordered by descending score (ties broken by discovery order, the
// min-heap key packs both).
type refItem struct {
	ref   int32
	score float64
	seq   int
}

type refHeap []refItem

func (h refHeap) Len() int { return len(h) }

// Less orders by score descending (the best-scoring reference pops
// first), and by insertion order ascending for ties, giving the FIFO
// behavior the default heuristic wants without it having to be
// comparison-stable itself.
func (h refHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].seq < h[j].seq
}

func (h refHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *refHeap) Push(x any) { *h = append(*h, x.(refItem)) }

func (h *refHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*refHeap)(nil)
