// Package holder implements the segment holder (C7, spec.md §4.7): a
// concurrent registry of live segments with fine-grained locking,
// generalized from the teacher's engine.go — which only ever wraps a
// single storage instance behind one RWMutex and one atomic closed
// flag — into a registry of many such instances, each independently
// lockable, sharing the same closed/atomic discipline at the
// collection boundary instead of per-store.
//
// SegmentId is a github.com/google/uuid.UUID: spec.md §7 property 2
// ("byte-equal modulo segment uuids") names segment identity as a uuid
// directly, so no shared counter has to be persisted. Ids are not
// persisted either: every registration (Add, and the replacement in a
// Swap) mints a fresh id, and a restart registers each loaded segment
// under a new one.
package holder

import (
	"sync"

	"github.com/google/uuid"

	"github.com/iamNilotpal/vectorcollection/internal/segment"
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
)

// SegmentId identifies one segment within a holder.
type SegmentId = uuid.UUID

// Holder is the concurrent segment registry. The outermost lock in the
// system's lock order (spec.md §5): held in write mode only during
// Add/Remove/Swap, in read mode everywhere else that needs a segment
// handle.
type Holder struct {
	mu sync.RWMutex

	segments map[SegmentId]*segment.Segment
	// cursor drives round-robin selection across the appendable set
	// that appendableLocked computes on each call.
	cursor uint64
}

// New returns an empty holder. Callers are expected to Add at least one
// appendable segment before the holder is handed to a collection — an
// empty holder violates invariant 5 ("always at least one appendable
// segment") by construction.
func New() *Holder {
	return &Holder{segments: make(map[SegmentId]*segment.Segment)}
}

// Add registers seg under a freshly generated id.
func (h *Holder) Add(seg *segment.Segment) SegmentId {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New()
	h.segments[id] = seg
	return id
}

// Remove unregisters id, returning the removed segment if it existed.
// Callers are responsible for closing the returned segment; Remove
// itself never closes it, since a caller may still want to read from a
// handle it cloned earlier (spec.md §5: mmap lifetime = longest holder).
func (h *Holder) Remove(id SegmentId) (*segment.Segment, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seg, ok := h.segments[id]
	if !ok {
		return nil, false
	}
	delete(h.segments, id)
	return seg, true
}

// Get returns the segment registered under id. The segment's own
// RWMutex (spec.md §5's inner lock) is what serializes the caller's
// subsequent operation against it — the holder's read lock here only
// protects the registry lookup itself.
func (h *Holder) Get(id SegmentId) (*segment.Segment, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seg, ok := h.segments[id]
	return seg, ok
}

// GetMany returns the segments registered under every id in ids, under
// a single read lock — spec.md §4.8 step 1: "acquire a read lock on
// the holder; clone handles to the candidate segments" as one atomic
// step, so the candidate set can't be concurrently mutated by an
// in-flight Remove/Swap between per-id lookups. Returns false if any id
// is no longer registered.
func (h *Holder) GetMany(ids []SegmentId) ([]*segment.Segment, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	segs := make([]*segment.Segment, 0, len(ids))
	for _, id := range ids {
		seg, ok := h.segments[id]
		if !ok {
			return nil, false
		}
		segs = append(segs, seg)
	}
	return segs, true
}

// Iter calls fn for every (id, segment) pair currently registered. fn
// must not call back into the holder.
func (h *Holder) Iter(fn func(id SegmentId, seg *segment.Segment)) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, seg := range h.segments {
		fn(id, seg)
	}
}

// Len reports the number of registered segments.
func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.segments)
}

// AppendableSegments returns the ids of every currently appendable
// segment, in ascending uuid order — the tie-break rule spec.md §4.7
// names for random_appendable's round-robin selection.
func (h *Holder) AppendableSegments() []SegmentId {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.appendableLocked()
}

func (h *Holder) appendableLocked() []SegmentId {
	ids := make([]SegmentId, 0, len(h.segments))
	for id, seg := range h.segments {
		if seg.Appendable() {
			ids = append(ids, id)
		}
	}
	sortUUIDs(ids)
	return ids
}

// RandomAppendable returns an appendable segment's id, round-robining
// across the (deterministically ordered) appendable set on successive
// calls — this is how the updater picks where to place a point not yet
// present in any segment (spec.md §4.7).
func (h *Holder) RandomAppendable() (SegmentId, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := h.appendableLocked()
	if len(ids) == 0 {
		return SegmentId{}, false
	}

	idx := h.cursor % uint64(len(ids))
	h.cursor++
	return ids[idx], true
}

// ApplyToPoint routes op to the segment that currently owns
// externalID, or — if no segment owns it yet — to an appendable
// segment, then invokes op against that handle. This is the
// find-or-assign semantics spec.md §4.7 describes for
// apply_to_point.
func (h *Holder) ApplyToPoint(externalID uint64, op func(seg *segment.Segment) error) error {
	seg, ok := h.findOwner(externalID)
	if !ok {
		id, ok := h.RandomAppendable()
		if !ok {
			return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeInternal,
				"holder has no appendable segment to route a new point to")
		}
		seg, ok = h.Get(id)
		if !ok {
			return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeInternal,
				"appendable segment vanished between selection and routing")
		}
	}
	return op(seg)
}

// GetVector returns the stored vector for externalID, searching every
// segment for whichever one currently owns it — used by Recommend to
// resolve positive/negative ids to vectors.
func (h *Holder) GetVector(externalID uint64) ([]float32, bool) {
	seg, ok := h.findOwner(externalID)
	if !ok {
		return nil, false
	}
	return seg.GetVector(externalID)
}

func (h *Holder) findOwner(externalID uint64) (*segment.Segment, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, seg := range h.segments {
		if seg.Owns(externalID) {
			return seg, true
		}
	}
	return nil, false
}

// Swap atomically replaces the segments named in removed with inserted
// — the mechanism optimizers use to commit a rewritten segment
// (spec.md §4.8 step 4). If removing the named segments would leave no
// appendable segment and inserted isn't itself appendable, Swap returns
// an error instead of violating invariant 5; callers (the optimizer
// skeleton) are expected to pass a freshly built empty appendable
// segment alongside inserted in that case by calling SwapWithFallback.
func (h *Holder) Swap(removed []SegmentId, inserted *segment.Segment) (SegmentId, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	remainingAppendable := 0
	removedSet := make(map[SegmentId]bool, len(removed))
	for _, id := range removed {
		removedSet[id] = true
	}
	for id, seg := range h.segments {
		if removedSet[id] {
			continue
		}
		if seg.Appendable() {
			remainingAppendable++
		}
	}
	if remainingAppendable == 0 && !inserted.Appendable() {
		return SegmentId{}, vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeInternal,
			"swap would remove the last appendable segment; use SwapWithFallback")
	}

	for _, id := range removed {
		delete(h.segments, id)
	}
	id := uuid.New()
	h.segments[id] = inserted
	return id, nil
}

// SwapWithFallback behaves like Swap, but when removing the candidates
// would leave no appendable segment, it also registers fallback (a
// freshly built empty appendable segment) in the same atomic step —
// spec.md §4.8 step 4: "additionally create a new empty appendable
// segment in the same swap."
func (h *Holder) SwapWithFallback(removed []SegmentId, inserted, fallback *segment.Segment) (insertedID SegmentId, fallbackID SegmentId, usedFallback bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	remainingAppendable := 0
	removedSet := make(map[SegmentId]bool, len(removed))
	for _, id := range removed {
		removedSet[id] = true
	}
	for id, seg := range h.segments {
		if removedSet[id] {
			continue
		}
		if seg.Appendable() {
			remainingAppendable++
		}
	}

	for _, id := range removed {
		delete(h.segments, id)
	}

	insertedID = uuid.New()
	h.segments[insertedID] = inserted

	if remainingAppendable == 0 && !inserted.Appendable() {
		fallbackID = uuid.New()
		h.segments[fallbackID] = fallback
		usedFallback = true
	}
	return insertedID, fallbackID, usedFallback, nil
}

func sortUUIDs(ids []SegmentId) {
	// Insertion sort: the appendable set is small in practice (a
	// handful of writable segments per collection), so an O(n^2) sort
	// avoids pulling in sort.Slice's reflection-based comparator for a
	// fixed 16-byte key type.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && lessUUID(ids[j], ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func lessUUID(a, b SegmentId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
