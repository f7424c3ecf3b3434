package segment

import (
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex"
)

// ScoredPoint pairs an external point id with its query score.
type ScoredPoint struct {
	ID    uint64
	Score float32
}

// Search runs a nearest-neighbor query against this segment, resolving
// internal offsets back to external ids via the id mapper — spec.md
// §4.6: "search(vector, filter?, top, params?) -> Vec<(id, score)>".
func (s *Segment) Search(query []float32, filter *payload.Filter, top int, params vectorindex.SearchParams) ([]ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.vecIdx.Search(query, filter, top, params)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredPoint, 0, len(results))
	for _, r := range results {
		id, ok := s.ids.ExternalID(r.Offset)
		if !ok {
			continue
		}
		out = append(out, ScoredPoint{ID: id, Score: r.Score})
	}
	return out, nil
}

// GetVector returns the stored vector for id, if this segment owns it —
// used to resolve Recommend's positive/negative ids to vectors (spec.md
// §6: "both fetched from whichever segment currently owns each id").
func (s *Segment) GetVector(id uint64) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offset, ok := s.ids.Get(id)
	if !ok {
		return nil, false
	}
	return s.vectors.Get(offset)
}

// IterPoints calls fn for every live point in this segment with its
// external id, stored vector, and payload (nil if none was set) — the
// "stream live points (skipping tombstones) from the originals" step an
// optimizer performs when building a replacement segment (spec.md
// §4.8 step 2). fn must not call back into the segment.
func (s *Segment) IterPoints(fn func(id uint64, vector []float32, p payload.Payload)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.ids.Iter(func(id uint64, offset uint32) {
		vector, ok := s.vectors.Get(offset)
		if !ok {
			return
		}
		p, _ := s.payloads.Get(offset)
		fn(id, vector, p)
	})
}

// Telemetry reports the segment's current size and indexing state,
// supplementing spec.md §4.6's info() with the accessor
// original_source's index.rs Telemetry exposes — consumed by
// IndexingOptimizer.CheckCondition to pick optimization candidates.
func (s *Segment) Telemetry() Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	numPoints := s.ids.Count()
	indexed := 0
	if s.cfg.Index == IndexHnsw {
		indexed = numPoints
	}

	return Telemetry{
		IndexedVectorsCount: indexed,
		NumPoints:           numPoints,
		NumDeletedVectors:   s.ids.TotalAllocated() - numPoints,
	}
}
