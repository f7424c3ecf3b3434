// Package optimizer implements segment optimizers (C8, spec.md §4.8): a
// pluggable set of strategies that periodically rewrite some segments
// into a more efficient form (Mmap storage, Hnsw index, a defragmented
// Struct payload index) without blocking reads or writes beyond the
// affected segments.
//
// Grounded on original_source's segment_optimizer.rs / indexing_optimizer.rs
// split between a shared `optimize` mechanism and per-strategy
// `check_condition`/candidate-selection logic; the shared mechanism here
// is `runOptimization`, reused by IndexingOptimizer, MergeOptimizer, and
// VacuumOptimizer.
package optimizer

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/idmapper"
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/payloadstorage"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/internal/vectorstorage"
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
)

// Optimizer is the strategy interface spec.md §4.8 describes.
type Optimizer interface {
	// CheckCondition inspects the holder and returns the ids of segments
	// that should be rewritten, or nil if none qualify right now. A pure
	// function of an (approximately) immutable snapshot of holder state.
	CheckCondition(h *holder.Holder) []holder.SegmentId

	// Optimize rewrites candidates into a single replacement segment and
	// commits the swap.
	Optimize(h *holder.Holder, candidates []holder.SegmentId) error
}

// point is one live point streamed out of a candidate segment while
// building a replacement.
type point struct {
	id      uint64
	vector  []float32
	payload payload.Payload
}

// runOptimization implements the shared mechanism spec.md §4.8
// describes: build a replacement in a temp directory with targetCfg,
// stream live points from the candidates into it, flush it, then swap
// it in under the holder's write lock — creating a fallback appendable
// segment in the same swap if the candidates being removed would
// otherwise leave none (invariant 5).
func runOptimization(
	h *holder.Holder,
	candidates []holder.SegmentId,
	tempDir string,
	targetCfg segment.Config,
	log *zap.SugaredLogger,
) error {
	sources, ok := h.GetMany(candidates)
	if !ok {
		// A candidate was concurrently removed (e.g. by another
		// optimizer run) — nothing to do, the next check_condition pass
		// will pick a fresh candidate set.
		return nil
	}

	indexedFields := unionIndexedFields(sources)

	replacement, err := buildReplacement(tempDir, targetCfg, sources, indexedFields, log)
	if err != nil {
		filesys.DeleteDir(tempDir)
		return err
	}

	if err := replacement.SaveCurrentState(); err != nil {
		replacement.Close()
		filesys.DeleteDir(tempDir)
		return err
	}
	if _, err := replacement.Flush(); err != nil {
		replacement.Close()
		filesys.DeleteDir(tempDir)
		return err
	}

	// Built unconditionally and discarded if unused: whether it's needed
	// depends on the holder's full appendable-segment count at swap
	// time, which SwapWithFallback alone can check atomically.
	fallbackDir := tempDir + "-fallback"
	fallback, err := segment.Build(fallbackDir, freshAppendableConfig(targetCfg), log)
	if err != nil {
		replacement.Close()
		filesys.DeleteDir(tempDir)
		return err
	}
	fallback.RestoreIndexedFields(indexedFields)

	_, fallbackID, usedFallback, err := h.SwapWithFallback(candidates, replacement, fallback)
	if err != nil {
		replacement.Close()
		fallback.Close()
		filesys.DeleteDir(tempDir)
		filesys.DeleteDir(fallbackDir)
		return err
	}
	if !usedFallback {
		fallback.Close()
		filesys.DeleteDir(fallbackDir)
	} else {
		log.Infow("optimizer created fallback appendable segment", "segment_id", fallbackID)
	}

	for _, src := range sources {
		dir := src.Dir()
		if err := src.Close(); err != nil {
			log.Warnw("optimizer failed to close superseded segment", "dir", dir, "error", err)
		}
		if err := filesys.DeleteDir(dir); err != nil {
			log.Warnw("optimizer failed to remove superseded segment directory; "+
				"it will be swept at next startup", "dir", dir, "error", err)
		}
	}
	return nil
}

// freshAppendableConfig derives the always-Plain+InMemory shape a
// fallback segment must have, reusing targetCfg's vector shape and
// distance.
func freshAppendableConfig(targetCfg segment.Config) segment.Config {
	return segment.Config{
		VectorSize:   targetCfg.VectorSize,
		Distance:     targetCfg.Distance,
		Index:        segment.IndexPlain,
		Storage:      segment.StorageInMemory,
		PayloadIndex: segment.PayloadIndexPlain,
	}
}

// unionIndexedFields collects the distinct set of indexed fields across
// every source segment, so a rewrite never silently drops a field index
// a prior CreateFieldIndex call established on any of them.
func unionIndexedFields(sources []*segment.Segment) []string {
	seen := make(map[string]bool)
	var out []string
	for _, src := range sources {
		for _, key := range src.IndexedFields() {
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	return out
}

// buildReplacement streams every live point out of sources into a fresh
// set of sub-stores shaped by targetCfg, preserving the maximum version
// seen across all sources as the replacement's initial version (spec.md
// §4.8 step 2) and the union of their indexed fields (spec.md §8).
func buildReplacement(dir string, targetCfg segment.Config, sources []*segment.Segment, indexedFields []string, log *zap.SugaredLogger) (*segment.Segment, error) {
	if err := filesys.CreateDir(dir, 0755, false); err != nil {
		return nil, vcerrors.ClassifyDirectoryCreationError(err, dir)
	}

	var points []point
	var maxVersion uint64
	for _, src := range sources {
		if v := src.Version(); v > maxVersion {
			maxVersion = v
		}
		src.IterPoints(func(id uint64, vector []float32, p payload.Payload) {
			points = append(points, point{id: id, vector: vector, payload: p})
		})
	}

	ids := idmapper.New()
	rows := make([][]float32, len(points))
	offsetOf := make(map[uint64]uint32, len(points))
	for _, pt := range points {
		offset := ids.Put(pt.id)
		offsetOf[pt.id] = offset
	}
	for _, pt := range points {
		rows[offsetOf[pt.id]] = pt.vector
	}

	payloads, err := payloadstorage.Load(filepath.Join(dir, "payload_storage"))
	if err != nil {
		return nil, err
	}
	for _, pt := range points {
		if pt.payload == nil {
			continue
		}
		if err := payloads.SetPayload(offsetOf[pt.id], pt.payload); err != nil {
			return nil, err
		}
	}

	vectors, err := buildVectorStorage(dir, targetCfg, rows)
	if err != nil {
		return nil, err
	}

	return segment.FromParts(dir, targetCfg, log, ids, vectors, payloads, maxVersion, indexedFields)
}

func buildVectorStorage(dir string, cfg segment.Config, rows [][]float32) (vectorstorage.Storage, error) {
	path := filepath.Join(dir, "vector_storage")
	if cfg.Storage == segment.StorageMmap {
		return vectorstorage.BuildMmap(path, int(cfg.VectorSize), rows, cfg.Distance)
	}

	vectors := vectorstorage.New(int(cfg.VectorSize), cfg.Distance)
	for offset, row := range rows {
		if row == nil {
			continue
		}
		if err := vectors.Put(uint32(offset), row); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}
