package optimizer

import (
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

// VacuumOptimizer rewrites a single segment once its tombstoned/total
// ratio crosses VacuumMinTombstoneRatio, reclaiming the dead offsets an
// id mapper never frees on its own (spec.md §4.1) — the other
// optimizer spec.md §4.8 asks for "by analogy" alongside merge.
type VacuumOptimizer struct {
	minTombstoneRatio float64
	tempDir           string
	log               *zap.SugaredLogger
}

func NewVacuumOptimizer(thresholds options.OptimizerConfig, tempDir string, log *zap.SugaredLogger) *VacuumOptimizer {
	return &VacuumOptimizer{minTombstoneRatio: thresholds.VacuumMinTombstoneRatio, tempDir: tempDir, log: log}
}

// CheckCondition selects the single worst-ratio segment whose
// tombstoned/total ratio meets or exceeds minTombstoneRatio, tie-broken
// by largest absolute tombstone count — mirroring IndexingOptimizer's
// "tie-break: largest count" rule for a size-driven selection.
func (o *VacuumOptimizer) CheckCondition(h *holder.Holder) []holder.SegmentId {
	var best holder.SegmentId
	var bestRatio float64
	var bestTombstones int
	found := false

	h.Iter(func(id holder.SegmentId, seg *segment.Segment) {
		tel := seg.Telemetry()
		total := tel.NumPoints + tel.NumDeletedVectors
		if total == 0 {
			return
		}
		ratio := float64(tel.NumDeletedVectors) / float64(total)
		if ratio < o.minTombstoneRatio {
			return
		}
		if !found || ratio > bestRatio || (ratio == bestRatio && tel.NumDeletedVectors > bestTombstones) {
			best, bestRatio, bestTombstones, found = id, ratio, tel.NumDeletedVectors, true
		}
	})

	if !found {
		return nil
	}
	return []holder.SegmentId{best}
}

// Optimize rewrites the candidate into a same-shaped segment holding
// only its live points — offsets are reassigned densely from zero,
// reclaiming every tombstoned offset the original could never free.
func (o *VacuumOptimizer) Optimize(h *holder.Holder, candidates []holder.SegmentId) error {
	if len(candidates) == 0 {
		return nil
	}

	sources, ok := h.GetMany(candidates)
	if !ok || len(sources) == 0 {
		return nil
	}

	target := sources[0].Config()
	tempDir := filepath.Join(o.tempDir, "vacuum-"+uuid.NewString())
	return runOptimization(h, candidates, tempDir, target, o.log)
}
