package optimizer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
	"github.com/iamNilotpal/vectorcollection/pkg/vlog"
)

func baseConfig() segment.Config {
	return segment.Config{
		VectorSize:   3,
		Distance:     options.DistanceEuclid,
		Index:        segment.IndexPlain,
		Storage:      segment.StorageInMemory,
		PayloadIndex: segment.PayloadIndexPlain,
	}
}

func hnswConfig() options.HnswConfig {
	return options.HnswConfig{M: 4, EfConstruct: 16, EfSearch: 16, FullScanThreshold: 1000, PayloadM: 2}
}

func buildPlainSegment(t *testing.T, n int) *segment.Segment {
	t.Helper()
	s, err := segment.Build(filepath.Join(t.TempDir(), "seg"), baseConfig(), vlog.Noop())
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		v := []float32{float32(i), float32(i), float32(i)}
		require.NoError(t, s.UpsertPoint(uint64(i+1), uint64(i+1), v, payload.Payload{"i": payload.Integer(int64(i))}))
	}
	return s
}

func TestIndexingOptimizerSelectsLargestPlainSegment(t *testing.T) {
	h := holder.New()
	small := buildPlainSegment(t, 4)
	big := buildPlainSegment(t, 5)
	h.Add(small)
	idBig := h.Add(big)

	thresholds := options.OptimizerConfig{MemmapThreshold: 100, IndexingThreshold: 3, PayloadIndexingThreshold: 1000}
	opt := NewIndexingOptimizer(thresholds, hnswConfig(), t.TempDir(), vlog.Noop())

	candidates := opt.CheckCondition(h)
	require.Equal(t, []holder.SegmentId{idBig}, candidates)
}

func TestIndexingOptimizerOptimizePromotesToHnsw(t *testing.T) {
	h := holder.New()
	src := buildPlainSegment(t, 5)
	id := h.Add(src)

	thresholds := options.OptimizerConfig{MemmapThreshold: 100, IndexingThreshold: 3, PayloadIndexingThreshold: 1000}
	opt := NewIndexingOptimizer(thresholds, hnswConfig(), t.TempDir(), vlog.Noop())

	candidates := opt.CheckCondition(h)
	require.Equal(t, []holder.SegmentId{id}, candidates)

	require.NoError(t, opt.Optimize(h, candidates))

	// The original is gone; exactly one replacement (Hnsw) remains, plus
	// the holder must still satisfy invariant 5 (at least one appendable).
	require.Equal(t, 2, h.Len())

	foundHnsw := false
	appendableCount := 0
	h.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
		if seg.Config().Index == segment.IndexHnsw {
			foundHnsw = true
			results, err := seg.Search([]float32{4, 4, 4}, nil, 1, vectorindex.SearchParams{})
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.Equal(t, uint64(5), results[0].ID)
		}
		if seg.Appendable() {
			appendableCount++
		}
	})
	require.True(t, foundHnsw)
	require.Equal(t, 1, appendableCount)
}

func TestIndexingOptimizerPreservesIndexedFieldsAcrossRewrite(t *testing.T) {
	h := holder.New()
	src := buildPlainSegment(t, 5)
	require.NoError(t, src.CreateFieldIndex(100, "i"))
	id := h.Add(src)

	thresholds := options.OptimizerConfig{MemmapThreshold: 100, IndexingThreshold: 3, PayloadIndexingThreshold: 1000}
	opt := NewIndexingOptimizer(thresholds, hnswConfig(), t.TempDir(), vlog.Noop())

	candidates := opt.CheckCondition(h)
	require.Equal(t, []holder.SegmentId{id}, candidates)
	require.NoError(t, opt.Optimize(h, candidates))

	// "i" was indexed before the rewrite; every segment that exists
	// afterward — the Hnsw replacement and any fallback appendable
	// segment the swap created — must still report it as indexed.
	h.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
		require.Contains(t, seg.IndexedFields(), "i")
	})
}

func TestIndexingOptimizerNoCandidatesBelowThreshold(t *testing.T) {
	h := holder.New()
	h.Add(buildPlainSegment(t, 2))

	thresholds := options.OptimizerConfig{MemmapThreshold: 100, IndexingThreshold: 50, PayloadIndexingThreshold: 1000}
	opt := NewIndexingOptimizer(thresholds, hnswConfig(), t.TempDir(), vlog.Noop())

	require.Nil(t, opt.CheckCondition(h))
}

func TestMergeOptimizerSelectsSmallestSegmentsPastMax(t *testing.T) {
	h := holder.New()
	h.Add(buildPlainSegment(t, 1))
	h.Add(buildPlainSegment(t, 2))
	h.Add(buildPlainSegment(t, 3))

	thresholds := options.OptimizerConfig{MaxSegmentNumber: 2, DefaultSegmentNumber: 1}
	opt := NewMergeOptimizer(thresholds, t.TempDir(), vlog.Noop())

	candidates := opt.CheckCondition(h)
	require.NotEmpty(t, candidates)

	require.NoError(t, opt.Optimize(h, candidates))
	require.LessOrEqual(t, h.Len(), 2)
}

func TestVacuumOptimizerSelectsHighTombstoneRatioSegment(t *testing.T) {
	h := holder.New()
	s := buildPlainSegment(t, 4)
	require.NoError(t, s.DeletePoint(100, 1))
	require.NoError(t, s.DeletePoint(101, 2))
	require.NoError(t, s.DeletePoint(102, 3))
	id := h.Add(s)

	opt := NewVacuumOptimizer(options.OptimizerConfig{VacuumMinTombstoneRatio: 0.5}, t.TempDir(), vlog.Noop())
	candidates := opt.CheckCondition(h)
	require.Equal(t, []holder.SegmentId{id}, candidates)

	require.NoError(t, opt.Optimize(h, candidates))

	var survivor *segment.Segment
	h.Iter(func(_ holder.SegmentId, seg *segment.Segment) { survivor = seg })
	require.NotNil(t, survivor)
	require.Equal(t, 1, survivor.Telemetry().NumPoints)
	require.Equal(t, 0, survivor.Telemetry().NumDeletedVectors)
}

func TestRunnerRunsEligibleOptimizer(t *testing.T) {
	h := holder.New()
	h.Add(buildPlainSegment(t, 5))

	thresholds := options.OptimizerConfig{MemmapThreshold: 100, IndexingThreshold: 3, PayloadIndexingThreshold: 1000}
	indexing := NewIndexingOptimizer(thresholds, hnswConfig(), t.TempDir(), vlog.Noop())

	runner := NewRunner([]Optimizer{indexing}, 2, vlog.Noop())
	require.NoError(t, runner.RunOnce(context.Background(), h))

	foundHnsw := false
	h.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
		if seg.Config().Index == segment.IndexHnsw {
			foundHnsw = true
		}
	})
	require.True(t, foundHnsw)
}
