package vectorindex

import "container/heap"

// scoredHeap is a min-heap of ScoredOffset ordered by ascending Score,
// so the lowest-scoring candidate sits at the root and is the cheapest
// to evict once the heap holds `top` elements — the "bounded min-heap"
// spec.md §4.5 calls for on the Plain index's top-k path. No
// third-party priority-queue library appears anywhere in the example
// pack; container/heap is exactly the stdlib tool built for this.
type scoredHeap []ScoredOffset

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)         { *h = append(*h, x.(ScoredOffset)) }
func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// boundedTopK accumulates up to k highest-scoring ScoredOffsets.
type boundedTopK struct {
	k int
	h scoredHeap
}

func newBoundedTopK(k int) *boundedTopK {
	h := make(scoredHeap, 0, k)
	heap.Init(&h)
	return &boundedTopK{k: k, h: h}
}

// Offer considers a candidate for inclusion in the top-k set.
func (b *boundedTopK) Offer(s ScoredOffset) {
	if b.k <= 0 {
		return
	}
	if b.h.Len() < b.k {
		heap.Push(&b.h, s)
		return
	}
	if s.Score > b.h[0].Score {
		heap.Pop(&b.h)
		heap.Push(&b.h, s)
	}
}

// Results drains the heap into descending-score order, breaking ties by
// ascending offset (a stand-in the caller refines into ascending
// external id once offsets are resolved — spec.md §4.5's tie-break).
func (b *boundedTopK) Results() []ScoredOffset {
	out := make([]ScoredOffset, b.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		item := heap.Pop(&b.h).(ScoredOffset)
		out[i] = item
	}
	// Stable tie-break: for equal scores, heap pop order isn't
	// deterministic, so re-sort adjacent equal-score runs by offset.
	for i := 0; i < len(out); {
		j := i
		for j < len(out) && out[j].Score == out[i].Score {
			j++
		}
		sortByOffset(out[i:j])
		i = j
	}
	return out
}

func sortByOffset(s []ScoredOffset) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Offset < s[j-1].Offset; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
