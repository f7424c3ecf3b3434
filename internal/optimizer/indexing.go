package optimizer

import (
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

// IndexingOptimizer promotes the largest Plain segment once it has
// grown big enough to justify an Hnsw index, or has an indexed payload
// field and enough points to justify one — grounded on
// original_source's indexing_optimizer.rs `worst_segment`/
// `check_condition` split.
type IndexingOptimizer struct {
	thresholds options.OptimizerConfig
	hnswConfig options.HnswConfig
	tempDir    string
	log        *zap.SugaredLogger
}

// NewIndexingOptimizer builds an IndexingOptimizer. tempDir is where
// replacement segments are assembled before being swapped in.
func NewIndexingOptimizer(thresholds options.OptimizerConfig, hnswConfig options.HnswConfig, tempDir string, log *zap.SugaredLogger) *IndexingOptimizer {
	return &IndexingOptimizer{thresholds: thresholds, hnswConfig: hnswConfig, tempDir: tempDir, log: log}
}

// CheckCondition selects the largest Plain segment whose vector count
// crosses min(memmap_threshold, indexing_threshold), or which has at
// least one indexed field and crosses payload_indexing_threshold — the
// exact selection criterion spec.md §4.8 names for IndexingOptimizer.
// Among qualifying segments the one with the most vectors wins; which of
// several segments with the same count is picked is not defined.
func (o *IndexingOptimizer) CheckCondition(h *holder.Holder) []holder.SegmentId {
	indexingFloor := o.thresholds.MemmapThreshold
	if o.thresholds.IndexingThreshold < indexingFloor {
		indexingFloor = o.thresholds.IndexingThreshold
	}

	var best holder.SegmentId
	var bestCount int
	found := false

	h.Iter(func(id holder.SegmentId, seg *segment.Segment) {
		if seg.Config().Kind() != segment.KindPlain {
			return
		}

		tel := seg.Telemetry()
		count := tel.NumPoints
		isBigForIndex := uint64(count) >= indexingFloor
		hasPayload := len(seg.IndexedFields()) > 0
		isBigForPayload := hasPayload && uint64(count) >= o.thresholds.PayloadIndexingThreshold
		if !isBigForIndex && !isBigForPayload {
			return
		}

		if !found || count > bestCount {
			best, bestCount, found = id, count, true
		}
	})

	if !found {
		return nil
	}
	return []holder.SegmentId{best}
}

// Optimize rewrites the candidate (always a single Plain segment here)
// into Mmap+Hnsw when it crossed memmap_threshold, or InMemory+Hnsw/
// Struct otherwise — spec.md §4.8: "Produces: Mmap + Hnsw when crossing
// memmap_threshold; InMemory + Hnsw/Struct otherwise."
func (o *IndexingOptimizer) Optimize(h *holder.Holder, candidates []holder.SegmentId) error {
	if len(candidates) == 0 {
		return nil
	}

	sources, ok := h.GetMany(candidates)
	if !ok || len(sources) == 0 {
		return nil
	}
	src := sources[0]
	cfg := src.Config()

	target := cfg
	target.Index = segment.IndexHnsw
	target.PayloadIndex = segment.PayloadIndexStruct
	target.Hnsw = o.hnswConfig
	if uint64(src.Telemetry().NumPoints) >= o.thresholds.MemmapThreshold {
		target.Storage = segment.StorageMmap
	}

	tempDir := filepath.Join(o.tempDir, "indexing-"+uuid.NewString())
	return runOptimization(h, candidates, tempDir, target, o.log)
}
