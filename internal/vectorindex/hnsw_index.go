package vectorindex

import (
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/payloadindex"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex/hnsw"
)

// payloadBlockThreshold is the minimum posting-list size PayloadBlocks
// must report before BuildIndex bothers reinforcing links for it —
// blocks smaller than this don't suffer from poor filtered recall in
// the first place.
const payloadBlockThreshold = 32

// Hnsw is the graph-based vectorindex.Index: walks a layered proximity
// graph for unrestricted and high-cardinality-filtered queries, falls
// back to exhaustive scoring over the payload index's enumerated set
// when the filter is selective enough that graph traversal would waste
// more work than it saves (spec.md §4.5).
type Hnsw struct {
	vectors    VectorSource
	payloadIdx payloadindex.Index
	graph      *hnsw.Graph
	cfg        hnsw.Config
}

// NewHnsw wraps vectors in a fresh, empty HNSW graph, consulting
// payloadIdx for cardinality estimates and payload lookups during
// filtered search. Call BuildIndex before Search returns anything
// useful.
func NewHnsw(vectors VectorSource, payloadIdx payloadindex.Index, cfg hnsw.Config) *Hnsw {
	h := &Hnsw{vectors: vectors, payloadIdx: payloadIdx, cfg: cfg}
	h.graph = hnsw.New(cfg, graphVectorSource{vectors})
	return h
}

// WrapHnsw adapts a graph already reconstructed by hnsw.Load (segment
// recovery's path) into the vectorindex.Index contract, without
// rebuilding it from scratch the way NewHnsw+BuildIndex would.
func WrapHnsw(vectors VectorSource, payloadIdx payloadindex.Index, graph *hnsw.Graph) *Hnsw {
	return &Hnsw{vectors: vectors, payloadIdx: payloadIdx, graph: graph}
}

// graphVectorSource adapts vectorindex.VectorSource's Score method to the
// narrower interface hnsw.Graph depends on.
type graphVectorSource struct{ vectors VectorSource }

func (s graphVectorSource) Score(query []float32, offset uint32) (float32, bool) {
	return s.vectors.Score(query, offset)
}

// BuildIndex rebuilds the graph from every live vector in storage, then
// reinforces links for every payload-indexed block at or above
// payloadBlockThreshold (spec.md §4.5 step 3).
func (h *Hnsw) BuildIndex(payloadIdx payloadindex.Index) error {
	if payloadIdx != nil {
		h.payloadIdx = payloadIdx
	}

	h.graph = hnsw.New(h.cfg, graphVectorSource{h.vectors})
	h.vectors.IterLive(func(offset uint32, v []float32) {
		h.graph.Insert(offset, v)
	})

	if h.payloadIdx == nil {
		return nil
	}

	for block := range h.payloadIdx.PayloadBlocks(payloadBlockThreshold) {
		filter := payload.And(payload.NewMatch(block.Field, block.Value))

		offsets := make([]uint32, 0, block.Count)
		for offset := range h.payloadIdx.QueryPoints(filter) {
			offsets = append(offsets, offset)
		}
		h.graph.ReinforceBlock(offsets)
	}

	return nil
}

// Search implements spec.md §4.5's filter-aware contract:
//
//  1. No filter: unrestricted graph walk.
//  2. Filter present, estimated cardinality >= the graph's configured
//     FullScanThreshold: walk the graph as usual, rejecting candidates
//     that fail the filter at scoring time (rejected nodes are still
//     traversed but do not count towards ef; ef is not enlarged).
//  3. Filter present, estimated cardinality < FullScanThreshold: the
//     filtered set is small enough that enumerating it through the
//     payload index and scoring exhaustively beats graph traversal.
func (h *Hnsw) Search(query []float32, filter *payload.Filter, top int, params SearchParams) ([]ScoredOffset, error) {
	if top <= 0 {
		return nil, vcerrors.NewZeroTopKError()
	}

	if filter == nil || h.payloadIdx == nil {
		results := h.graph.Search(query, top, params.Ef, nil)
		return toScoredOffsets(results), nil
	}

	estimate := h.payloadIdx.EstimateCardinality(filter)
	if int(estimate.Expected) < h.graph.FullScanThreshold() {
		return h.searchViaPayloadIndex(query, filter, top)
	}

	results := h.graph.Search(query, top, params.Ef, h.filterAccept(filter))
	return toScoredOffsets(results), nil
}

// filterAccept builds the scoring-time acceptance predicate for step 2:
// an offset passes when it's still enumerated by the payload index's
// QueryPoints for filter (the index owns payload lookups internally, so
// this is the only filter-membership test available without duplicating
// each index's payload access).
func (h *Hnsw) filterAccept(filter *payload.Filter) func(uint32) bool {
	live := make(map[uint32]struct{})
	for offset := range h.payloadIdx.QueryPoints(filter) {
		live[offset] = struct{}{}
	}
	return func(offset uint32) bool {
		_, ok := live[offset]
		return ok
	}
}

// searchViaPayloadIndex enumerates the filtered set directly and scores
// every member exhaustively — step 3 of the contract, used when the
// filtered set is small relative to the full graph.
func (h *Hnsw) searchViaPayloadIndex(query []float32, filter *payload.Filter, top int) ([]ScoredOffset, error) {
	topK := newBoundedTopK(top)
	for offset := range h.payloadIdx.QueryPoints(filter) {
		if score, ok := h.vectors.Score(query, offset); ok {
			topK.Offer(ScoredOffset{Offset: offset, Score: score})
		}
	}
	return topK.Results(), nil
}

// Persist writes the graph to path (spec.md §4.5: "persisted alongside
// the segment"). A no-op on Plain, which has no structures to save.
func (h *Hnsw) Persist(path string) error {
	return h.graph.Save(path)
}

func toScoredOffsets(results []hnsw.Result) []ScoredOffset {
	out := make([]ScoredOffset, len(results))
	for i, r := range results {
		out[i] = ScoredOffset{Offset: r.Offset, Score: r.Score}
	}
	return out
}
