// Package vectorindex implements the segment's vector index (C5,
// spec.md §4.5): nearest-neighbor search over optionally-filtered
// offsets, either exhaustive (Plain) or graph-based (Hnsw).
//
// Grounded on `original_source/lib/segment/src/index/index.rs`'s
// VectorIndex trait (`search(vector, filter, top, params)`,
// `build_index`); the HNSW graph-construction algorithm itself is
// explicitly out of scope (spec.md §1: "the design specifies what HNSW
// must deliver, not how to build the graph").
package vectorindex

import (
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/payloadindex"
)

// ScoredOffset pairs an internal offset with its query score. Tie-break
// on equal score is ascending external id, which is the caller's
// responsibility once offsets are mapped back to external ids (spec.md
// §4.5: "Tie-break: equal-score results are ordered by ascending
// external id").
type ScoredOffset struct {
	Offset uint32
	Score  float32
}

// SearchParams carries the caller-overridable query-time knobs spec.md
// §4.5 references (`params.ef`).
type SearchParams struct {
	// Ef overrides the HNSW dynamic candidate list size for this query.
	// 0 means "use the configured default".
	Ef int
}

// Index is the nearest-neighbor search contract shared by Plain and Hnsw.
type Index interface {
	// Search returns the top `top` offsets scoring highest against
	// query, restricted to offsets satisfying filter (nil filter means
	// unrestricted).
	Search(query []float32, filter *payload.Filter, top int, params SearchParams) ([]ScoredOffset, error)

	// BuildIndex (re)builds the index's internal structures from the
	// current vector storage and payload index. A no-op for Plain.
	BuildIndex(payloadIndex payloadindex.Index) error

	// Persist writes any on-disk structures to path (spec.md §4.5:
	// "persisted alongside the segment"). A no-op for Plain.
	Persist(path string) error
}
