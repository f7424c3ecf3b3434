package optimizer

import (
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

// MergeOptimizer combines small adjacent segments once the collection
// holds more than MaxSegmentNumber of them, following the same
// skeleton as IndexingOptimizer "by analogy" (spec.md §4.8: "merge
// small adjacent segments ... follow the same skeleton; they are not
// exhaustively specified here but must obey invariants 5-6").
//
// "Adjacent" has no ordering in a uuid-keyed registry, so this reads it
// as "smallest by vector count" — merging the smallest segments first
// gives the best size/rewrite-cost ratio and converges towards
// DefaultSegmentNumber fastest.
type MergeOptimizer struct {
	thresholds options.OptimizerConfig
	tempDir    string
	log        *zap.SugaredLogger
}

func NewMergeOptimizer(thresholds options.OptimizerConfig, tempDir string, log *zap.SugaredLogger) *MergeOptimizer {
	return &MergeOptimizer{thresholds: thresholds, tempDir: tempDir, log: log}
}

type segmentSize struct {
	id    holder.SegmentId
	seg   *segment.Segment
	count int
}

// CheckCondition selects the smallest segments to merge once the
// collection has grown past MaxSegmentNumber, targeting
// DefaultSegmentNumber segments afterward — it merges just enough of
// the smallest segments to get there in one pass.
func (o *MergeOptimizer) CheckCondition(h *holder.Holder) []holder.SegmentId {
	var sizes []segmentSize
	h.Iter(func(id holder.SegmentId, seg *segment.Segment) {
		sizes = append(sizes, segmentSize{id: id, seg: seg, count: seg.Telemetry().NumPoints})
	})

	if len(sizes) <= o.thresholds.MaxSegmentNumber {
		return nil
	}

	target := o.thresholds.DefaultSegmentNumber
	if target < 1 {
		target = 1
	}
	toMerge := len(sizes) - target + 1
	if toMerge < 2 {
		toMerge = 2
	}
	if toMerge > len(sizes) {
		toMerge = len(sizes)
	}

	sortBySize(sizes)
	ids := make([]holder.SegmentId, toMerge)
	for i := 0; i < toMerge; i++ {
		ids[i] = sizes[i].id
	}
	return ids
}

func sortBySize(sizes []segmentSize) {
	for i := 1; i < len(sizes); i++ {
		for j := i; j > 0 && sizes[j].count < sizes[j-1].count; j-- {
			sizes[j], sizes[j-1] = sizes[j-1], sizes[j]
		}
	}
}

// Optimize merges candidates into a single replacement segment, kept
// Plain+InMemory unless any candidate was already Hnsw-indexed, in
// which case the merged result is re-indexed too — merging should
// never regress an already-promoted segment back to exhaustive scan.
func (o *MergeOptimizer) Optimize(h *holder.Holder, candidates []holder.SegmentId) error {
	if len(candidates) < 2 {
		return nil
	}

	sources, ok := h.GetMany(candidates)
	if !ok || len(sources) == 0 {
		return nil
	}

	target := sources[0].Config()
	anyIndexed := false
	for _, src := range sources {
		if src.Config().Index == segment.IndexHnsw {
			anyIndexed = true
		}
	}
	if anyIndexed {
		target.Index = segment.IndexHnsw
		target.PayloadIndex = segment.PayloadIndexStruct
	} else {
		target.Index = segment.IndexPlain
		target.Storage = segment.StorageInMemory
		target.PayloadIndex = segment.PayloadIndexPlain
	}

	tempDir := filepath.Join(o.tempDir, "merge-"+uuid.NewString())
	return runOptimization(h, candidates, tempDir, target, o.log)
}
