// Package wal implements the collection's write-ahead log (C9, spec.md
// §4.9): a sequence of segmented files recording every accepted write as
// {seq_no, payload_bytes}, durable before the client is acknowledged, and
// replayable from any point to bring segment state back in sync after a
// crash.
//
// Grounded on the teacher pack's segmented-log lineage —
// lipandr-go-microsrv-distib-log's internal/log/{log,index}.go for the
// active/rotated-segments-slice shape and the mmap'd offset index, and
// pkg/seginfo (already written for Bitcask-style rotation) for the
// prefix_NNNNN_timestamp naming scheme reused here as the spec's own doc
// comment says it's meant to be.
package wal

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

var ErrClosed = errors.New("wal: closed")

// Wal is a durable, segmented append log. One Wal instance belongs to one
// collection; every accepted write is assigned the next seq_no by Append
// before anything else observes it (spec.md §4.9: "the WAL is the single
// source of truth for write order").
type Wal struct {
	dir string
	cfg options.WalConfig
	log *zap.SugaredLogger

	mu         sync.Mutex
	segments   []*segment
	active     *segment
	nextSeqNo  uint64
	nextBase   uint64
	closed     bool
	pool       chan *segment
	stopCh     chan struct{}
	poolDoneCh chan struct{}
}

// Open creates dir if needed, discovers any existing segments (recovery)
// or creates the first one (fresh collection), and starts the
// segments-ahead preallocator.
func Open(dir string, cfg options.WalConfig, log *zap.SugaredLogger) (*Wal, error) {
	if err := filesys.CreateDir(dir, 0755, true); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}

	capacityBytes := cfg.WalCapacityMB * 1024 * 1024
	if capacityBytes == 0 {
		capacityBytes = options.DefaultWalCapacityMB * 1024 * 1024
	}

	storeNames, err := filesys.ReadDir(filepath.Join(dir, walPrefix+"_*"+storeExt))
	if err != nil {
		return nil, fmt.Errorf("wal: scan segments: %w", err)
	}
	sort.Strings(storeNames)

	w := &Wal{dir: dir, cfg: cfg}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	w.log = log

	if len(storeNames) == 0 {
		seg, err := createSegment(dir, 1, capacityBytes)
		if err != nil {
			return nil, err
		}
		w.segments = []*segment{seg}
		w.active = seg
		w.nextSeqNo = 1
		w.nextBase = seg.MaxSeqNo() + 2
	} else {
		for _, path := range storeNames {
			seg, err := openSegment(dir, filepath.Base(path), capacityBytes)
			if err != nil {
				return nil, fmt.Errorf("wal: open segment %s: %w", path, err)
			}
			w.segments = append(w.segments, seg)
		}
		w.active = w.segments[len(w.segments)-1]

		var maxSeen uint64
		for _, seg := range w.segments {
			if !seg.Empty() && seg.MaxSeqNo() > maxSeen {
				maxSeen = seg.MaxSeqNo()
			}
		}
		w.nextSeqNo = maxSeen + 1
		w.nextBase = maxSeen + 1
	}

	segmentsAhead := cfg.WalSegmentsAhead
	if segmentsAhead < 1 {
		segmentsAhead = options.DefaultWalSegmentsAhead
	}
	w.pool = make(chan *segment, segmentsAhead)
	w.stopCh = make(chan struct{})
	w.poolDoneCh = make(chan struct{})
	go w.preallocate()

	return w, nil
}

// preallocate continuously builds fresh segment files and feeds them
// into the bounded pool channel, blocking on the send once the pool is
// full — natural backpressure that keeps at most WalSegmentsAhead spare
// segments built ahead of time, so a rotation under Append never blocks
// on segment-file creation (spec.md §4.9's "segments-ahead pool").
func (w *Wal) preallocate() {
	defer close(w.poolDoneCh)
	for {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		base := w.nextBase
		w.nextBase++
		capacityBytes := w.capacityBytes()
		w.mu.Unlock()

		seg, err := createSegment(w.dir, base, capacityBytes)
		if err != nil {
			w.log.Warnw("wal preallocator failed to build segment", "base_seq_no", base, "error", err)
			return
		}

		select {
		case w.pool <- seg:
		case <-w.stopCh:
			seg.Remove()
			return
		}
	}
}

func (w *Wal) capacityBytes() uint64 {
	capacityBytes := w.cfg.WalCapacityMB * 1024 * 1024
	if capacityBytes == 0 {
		capacityBytes = options.DefaultWalCapacityMB * 1024 * 1024
	}
	return capacityBytes
}

// Append assigns the next seq_no, writes the record to the active
// segment, fsyncs it (skipped when FsyncIntervalMs is non-zero; this
// package runs no periodic syncer, so durability then rests on explicit
// Sync calls), and rotates to a new segment if the active one is now
// full.
func (w *Wal) Append(payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	seqNo := w.nextSeqNo
	if err := w.active.Append(seqNo, payload); err != nil {
		return 0, err
	}
	w.nextSeqNo++

	if w.cfg.FsyncIntervalMs == 0 {
		if err := w.active.Sync(); err != nil {
			return 0, err
		}
	}

	if w.active.IsFull() {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
	}
	return seqNo, nil
}

// rotateLocked must be called with mu held. It pulls a preallocated
// segment from the pool if one is ready, otherwise builds one inline.
func (w *Wal) rotateLocked() error {
	select {
	case seg := <-w.pool:
		w.segments = append(w.segments, seg)
		w.active = seg
		return nil
	default:
	}

	base := w.nextSeqNo
	if base < w.nextBase {
		base = w.nextBase
	}
	seg, err := createSegment(w.dir, base, w.capacityBytes())
	if err != nil {
		return err
	}
	w.nextBase = base + 1
	w.segments = append(w.segments, seg)
	w.active = seg
	return nil
}

// Sync fsyncs the active segment on demand. When FsyncIntervalMs is
// non-zero Append does not fsync, and Sync is how appended records are
// made durable; nothing in this package calls it on a timer.
func (w *Wal) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.active.Sync()
}

// Replay calls fn for every record with seq_no strictly greater than
// ack, across all segments in order — the recovery path spec.md §4.9
// describes: "ack = min(persisted_version); replay records with
// seq_no > ack". Segment-level idempotence on the receiving end makes
// re-applying an already-applied record a safe no-op, so Replay does not
// need to dedupe.
func (w *Wal) Replay(ack uint64, fn func(seqNo uint64, payload []byte) error) error {
	w.mu.Lock()
	segments := make([]*segment, len(w.segments))
	copy(segments, w.segments)
	w.mu.Unlock()

	for _, seg := range segments {
		if !seg.Empty() && seg.MaxSeqNo() <= ack {
			continue
		}
		err := seg.Each(func(seqNo uint64, payload []byte) error {
			if seqNo <= ack {
				return nil
			}
			return fn(seqNo, payload)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Checkpoint removes every non-active segment whose highest seq_no is at
// or below minPersistedVersion — the truncation spec.md §4.9's periodic
// checkpoint thread performs once every segment has been durably
// reflected in its segments.
func (w *Wal) Checkpoint(minPersistedVersion uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.segments[:0]
	for _, seg := range w.segments {
		if seg != w.active && !seg.Empty() && seg.MaxSeqNo() <= minPersistedVersion {
			if err := seg.Remove(); err != nil {
				return err
			}
			continue
		}
		kept = append(kept, seg)
	}
	w.segments = kept
	return nil
}

// Close stops the preallocator, discards any unused preallocated
// segments, and closes every open segment.
func (w *Wal) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stopCh)
	<-w.poolDoneCh
	close(w.pool)
	for seg := range w.pool {
		seg.Remove()
	}

	var firstErr error
	for _, seg := range w.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NextSeqNo reports the seq_no that would be assigned to the next
// Append call.
func (w *Wal) NextSeqNo() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextSeqNo
}
