// Package collection implements the top-level facade spec.md §5/§6
// describes: wiring the segment holder (C7), the write-ahead log (C9),
// and the optimizer runner (C8) behind Search/Recommend/Upsert/...,
// exactly the way the teacher's pkg/ignite/ignite.go wraps a single
// engine behind functional options — generalized here to wrap three
// collaborators instead of one, because the domain has many more
// moving parts than a single Bitcask log.
package collection

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/optimizer"
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/internal/wal"
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

const (
	dirSegments = "segments"
	dirWal      = "wal"
	fileConfig  = "config.json"

	// dispatchBacklog bounds how many acknowledged-but-not-yet-dispatched
	// operations Append can race ahead of the single dispatcher goroutine
	// by. A full channel means Append's caller blocks on send — the WAL
	// itself is already durable at that point, so this is backpressure,
	// not a correctness concern.
	dispatchBacklog = 256
)

// dispatchRequest is what Append hands to the single dispatcher
// goroutine spec.md §4.9 step 3 describes: "a single logical worker (to
// preserve ordering) dispatches the record to the appropriate
// segment(s)".
type dispatchRequest struct {
	seqNo uint64
	op    Operation
	// done receives the dispatch error (nil on success) when the caller
	// asked for Completed semantics; nil when the caller only wanted
	// Acknowledged.
	done chan error
}

// Collection is the top-level facade. One Collection owns one on-disk
// tree (config.json, wal/, segments/).
type Collection struct {
	cfg options.CollectionConfig
	log *zap.SugaredLogger

	holder *holder.Holder
	wal    *wal.Wal
	runner *optimizer.Runner

	dispatchCh chan dispatchRequest
	stopCh     chan struct{}
	wg         sync.WaitGroup

	optimizing atomic.Bool

	statusMu     sync.Mutex
	redSegments  map[holder.SegmentId]bool
	loadFailures int

	closed atomic.Bool
}

// Open loads an existing collection at cfg.DataDir, or bootstraps a
// fresh one if the directory is empty — spec.md §4.9's recovery path:
// "load all segments, compute ack = min(persisted_version), replay
// every WAL record with seq_no > ack".
func Open(cfg options.CollectionConfig, log *zap.SugaredLogger) (*Collection, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.DataDir == "" {
		return nil, vcerrors.NewConfigurationValidationError("dataDir", "must be non-empty")
	}

	if err := filesys.CreateDir(cfg.DataDir, 0755, true); err != nil {
		return nil, vcerrors.ClassifyDirectoryCreationError(err, cfg.DataDir)
	}
	if err := filesys.CreateDir(filepath.Join(cfg.DataDir, dirSegments), 0755, true); err != nil {
		return nil, vcerrors.ClassifyDirectoryCreationError(err, filepath.Join(cfg.DataDir, dirSegments))
	}

	configPath := filepath.Join(cfg.DataDir, fileConfig)
	if ok, _ := filesys.Exists(configPath); ok {
		persisted, err := options.Load(configPath)
		if err != nil {
			return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeSegmentCorrupted, "failed to load collection config").
				WithPath(configPath)
		}
		cfg = persisted
	} else if err := options.Save(configPath, cfg); err != nil {
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to persist collection config").
			WithPath(configPath)
	}

	c := &Collection{
		cfg:         cfg,
		log:         log,
		holder:      holder.New(),
		dispatchCh:  make(chan dispatchRequest, dispatchBacklog),
		stopCh:      make(chan struct{}),
		redSegments: make(map[holder.SegmentId]bool),
	}

	if err := c.loadSegments(); err != nil {
		return nil, err
	}
	if c.holder.Len() == 0 {
		if err := c.bootstrapAppendableSegment(); err != nil {
			return nil, err
		}
	}

	w, err := wal.Open(filepath.Join(cfg.DataDir, dirWal), cfg.WalConfig, log)
	if err != nil {
		return nil, err
	}
	c.wal = w

	ack := c.minPersistedVersion()
	if err := c.wal.Replay(ack, func(seqNo uint64, payload []byte) error {
		op, err := decodeOperation(payload)
		if err != nil {
			return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeSegmentCorrupted, "failed to decode WAL record during replay").
				WithOperation("Replay")
		}
		return c.applyOperation(seqNo, op)
	}); err != nil {
		return nil, err
	}

	c.runner = optimizer.NewRunner(c.buildOptimizers(), cfg.OptimizerConfig.MaxOptimizationThreads, log)

	c.wg.Add(1)
	go c.dispatchLoop()

	c.wg.Add(1)
	go c.backgroundLoop()

	return c, nil
}

// loadSegments scans <dataDir>/segments for directories carrying a
// segment.json and loads each into the holder; directories still
// missing segment.json are in-progress builds from a crash and are
// skipped, per spec.md §9's on-disk layout note. A directory with
// segment.json that fails to load marks the collection Red but doesn't
// abort Open — the collection stays available from its other segments.
func (c *Collection) loadSegments() error {
	entries, err := filesys.ReadDir(filepath.Join(c.cfg.DataDir, dirSegments, "*"))
	if err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to scan segments directory").
			WithPath(filepath.Join(c.cfg.DataDir, dirSegments))
	}
	sort.Strings(entries)

	for _, dir := range entries {
		ok, _ := filesys.Exists(filepath.Join(dir, "segment.json"))
		if !ok {
			c.log.Warnw("skipping in-progress segment directory missing segment.json", "dir", dir)
			continue
		}

		seg, err := segment.Load(dir, c.log)
		if err != nil {
			c.log.Errorw("segment failed to load, marking collection Red", "dir", dir, "error", err)
			c.statusMu.Lock()
			c.loadFailures++
			c.statusMu.Unlock()
			continue
		}
		c.holder.Add(seg)
	}
	return nil
}

// bootstrapAppendableSegment builds a fresh Plain+InMemory segment —
// invariant 5 ("always at least one appendable segment") by construction
// for a brand-new collection, or for one where every prior segment
// failed to load.
func (c *Collection) bootstrapAppendableSegment() error {
	id := uuid.New()
	dir := filepath.Join(c.cfg.DataDir, dirSegments, id.String())
	seg, err := segment.Build(dir, segment.Config{
		VectorSize:   c.cfg.Params.Size,
		Distance:     c.cfg.Params.Distance,
		Index:        segment.IndexPlain,
		Storage:      segment.StorageInMemory,
		PayloadIndex: segment.PayloadIndexPlain,
		Hnsw:         c.cfg.HnswConfig,
	}, c.log)
	if err != nil {
		return err
	}
	c.holder.Add(seg)
	return nil
}

// minPersistedVersion computes spec.md §4.9's ack = min(persisted_version
// for all segments). An empty holder (impossible post-bootstrap, but
// defensive) reports 0 so Replay re-applies everything.
func (c *Collection) minPersistedVersion() uint64 {
	var min uint64
	first := true
	c.holder.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
		v := seg.PersistedVersion()
		if first || v < min {
			min = v
			first = false
		}
	})
	return min
}

func (c *Collection) buildOptimizers() []optimizer.Optimizer {
	tempDir := filepath.Join(c.cfg.DataDir, ".optimizer-tmp")
	return []optimizer.Optimizer{
		optimizer.NewIndexingOptimizer(c.cfg.OptimizerConfig, c.cfg.HnswConfig, tempDir, c.log),
		optimizer.NewMergeOptimizer(c.cfg.OptimizerConfig, tempDir, c.log),
		optimizer.NewVacuumOptimizer(c.cfg.OptimizerConfig, tempDir, c.log),
	}
}

// dispatchLoop is spec.md §4.9's "single logical worker (to preserve
// ordering)": it drains dispatchCh strictly in the order Append fed it,
// applying each operation via the holder's per-point routing before
// acking the done channel, if any.
func (c *Collection) dispatchLoop() {
	defer c.wg.Done()
	for {
		select {
		case req := <-c.dispatchCh:
			err := c.applyOperation(req.seqNo, req.op)
			if req.done != nil {
				req.done <- err
			}
		case <-c.stopCh:
			return
		}
	}
}

// backgroundLoop periodically runs the optimizer runner and checkpoints
// the WAL, per spec.md §4.8/§4.9.
func (c *Collection) backgroundLoop() {
	defer c.wg.Done()

	interval := c.cfg.CompactInterval
	if interval <= 0 {
		interval = options.DefaultCompactInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runOptimizersOnce()
			if err := c.wal.Checkpoint(c.minPersistedVersion()); err != nil {
				c.log.Warnw("wal checkpoint failed", "error", err)
			}
		case <-c.stopCh:
			return
		}
	}
}

func (c *Collection) runOptimizersOnce() {
	c.optimizing.Store(true)
	defer c.optimizing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := c.runner.RunOnce(ctx, c.holder); err != nil {
		c.log.Warnw("optimizer run failed", "error", err)
	}
}

// applyOperation routes op's per-id work through holder.ApplyToPoint
// (find-or-assign semantics, spec.md §4.7), or broadcasts field-index
// maintenance to every segment — those aren't point-routed since they
// mutate a segment's payload index, not a specific point.
func (c *Collection) applyOperation(seqNo uint64, op Operation) error {
	switch op.Kind {
	case OpUpsertPoints:
		for i, id := range op.IDs {
			vector := op.Vectors[i]
			var p payload.Payload
			if i < len(op.Payloads) {
				p = op.Payloads[i]
			}
			err := c.holder.ApplyToPoint(id, func(seg *segment.Segment) error {
				return seg.UpsertPoint(seqNo, id, vector, p)
			})
			if err != nil {
				c.maybeMarkRed(id, err)
				return err
			}
		}

	case OpDeletePoints:
		for _, id := range op.IDs {
			err := c.holder.ApplyToPoint(id, func(seg *segment.Segment) error {
				return seg.DeletePoint(seqNo, id)
			})
			if err != nil {
				c.maybeMarkRed(id, err)
				return err
			}
		}

	case OpSetPayload:
		for _, id := range op.IDs {
			err := c.holder.ApplyToPoint(id, func(seg *segment.Segment) error {
				return seg.SetPayload(seqNo, id, op.Patch)
			})
			if err != nil {
				c.maybeMarkRed(id, err)
				return err
			}
		}

	case OpDeletePayload:
		for _, id := range op.IDs {
			err := c.holder.ApplyToPoint(id, func(seg *segment.Segment) error {
				return seg.DeletePayload(seqNo, id, op.Keys)
			})
			if err != nil {
				c.maybeMarkRed(id, err)
				return err
			}
		}

	case OpClearPayload:
		for _, id := range op.IDs {
			err := c.holder.ApplyToPoint(id, func(seg *segment.Segment) error {
				return seg.ClearPayload(seqNo, id)
			})
			if err != nil {
				c.maybeMarkRed(id, err)
				return err
			}
		}

	case OpCreateFieldIndex:
		var firstErr error
		c.holder.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
			if err := seg.CreateFieldIndex(seqNo, op.Key); err != nil && firstErr == nil {
				firstErr = err
			}
		})
		return firstErr

	case OpDeleteFieldIndex:
		var firstErr error
		c.holder.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
			if err := seg.DropFieldIndex(seqNo, op.Key); err != nil && firstErr == nil {
				firstErr = err
			}
		})
		return firstErr

	default:
		return fmt.Errorf("collection: unknown operation kind %d", op.Kind)
	}
	return nil
}

// maybeMarkRed records the segment owning id as Red when err is a
// *SegmentError — spec.md §7: "a SegmentError surfacing from any C1-C5
// operation marks that segment's status Red ... the collection keeps
// serving from its other segments." ApplyToPoint doesn't expose which
// segment ultimately ran op, so this looks the owner up again purely
// for bookkeeping; it runs before the failed write's error is returned
// to the caller.
func (c *Collection) maybeMarkRed(id uint64, err error) {
	if _, ok := vcerrors.AsSegmentError(err); !ok {
		return
	}

	var owner holder.SegmentId
	found := false
	c.holder.Iter(func(sid holder.SegmentId, seg *segment.Segment) {
		if !found && seg.Owns(id) {
			owner, found = sid, true
		}
	})
	if !found {
		return
	}

	c.statusMu.Lock()
	c.redSegments[owner] = true
	c.statusMu.Unlock()
}

// Close stops the background loops, flushes and closes every segment,
// and closes the WAL. Every segment is given a chance to flush and
// close regardless of an earlier segment's failure, with multierr
// aggregating whatever went wrong instead of reporting only the first.
func (c *Collection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentClosed, "collection already closed")
	}

	close(c.stopCh)
	c.wg.Wait()

	var err error
	c.holder.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
		_, flushErr := seg.Flush()
		err = multierr.Append(err, flushErr)
		err = multierr.Append(err, seg.Close())
	})

	err = multierr.Append(err, c.wal.Close())
	return err
}
