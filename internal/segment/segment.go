// Package segment implements the segment (C6, spec.md §4.6): the atomic
// unit of storage composing an id mapper, vector storage, payload
// storage, payload index, and vector index behind one version counter
// and one RW-lock, exactly the way the teacher's engine.go composes
// index+storage+compaction behind one Engine struct — generalized from
// "compose index+storage" to "compose id mapper+vector storage+payload
// storage+payload index+vector index".
package segment

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"

	"github.com/iamNilotpal/vectorcollection/internal/idmapper"
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/payloadindex"
	"github.com/iamNilotpal/vectorcollection/internal/payloadstorage"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex/hnsw"
	"github.com/iamNilotpal/vectorcollection/internal/vectorstorage"
)

const (
	fileState          = "segment.json"
	fileIDMapper       = "id_mapper"
	filePayloadStorage = "payload_storage"
	fileVectorStorage  = "vector_storage"
	fileHnswGraph      = "vector_index.hnsw"
)

// Telemetry is the accessor original_source's index.rs exposes alongside
// search/build — dropped by spec.md's distillation of info() but kept
// here since IndexingOptimizer.CheckCondition consumes it directly.
type Telemetry struct {
	IndexedVectorsCount int
	NumPoints           int
	NumDeletedVectors   int
}

// Segment is the composed C1-C5 unit spec.md §4.6 describes.
type Segment struct {
	mu sync.RWMutex

	log    *zap.SugaredLogger
	dir    string
	cfg    Config
	closed atomic.Bool

	version          uint64
	persistedVersion uint64

	ids        *idmapper.IdMapper
	vectors    vectorstorage.Storage
	payloads   *payloadstorage.PayloadStorage
	payloadIdx payloadindex.Index
	vecIdx     vectorindex.Index
}

// state is the persisted contents of segment.json.
type state struct {
	Version          uint64   `json:"version"`
	PersistedVersion uint64   `json:"persistedVersion"`
	Config           Config   `json:"config"`
	IndexedFields    []string `json:"indexedFields"`
}

// Dir returns the segment's on-disk directory.
func (s *Segment) Dir() string { return s.dir }

// Config returns the segment's configuration.
func (s *Segment) Config() Config { return s.cfg }

// Version returns the seq_no of the last applied operation.
func (s *Segment) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// PersistedVersion returns the seq_no durably reflected on disk as of the
// last Flush — the WAL checkpoint thread truncates up to the minimum of
// this value across every segment (spec.md §4.9).
func (s *Segment) PersistedVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistedVersion
}

// Appendable reports whether this segment accepts mutating operations.
func (s *Segment) Appendable() bool { return s.cfg.Appendable() }

// IndexedFields returns the payload keys currently maintained by this
// segment's payload index — consumed by IndexingOptimizer.CheckCondition
// to decide whether a segment qualifies for payload-driven promotion
// even below the plain vector-count threshold.
func (s *Segment) IndexedFields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payloadIdx.IndexedFields()
}

// Owns reports whether externalID currently has a live mapping in this
// segment — the holder's apply_to_point uses this to locate the segment
// that owns an id before falling back to an appendable one (spec.md
// §4.7, invariant 6: "at most one segment contains a live mapping for
// any external id at any observable moment").
func (s *Segment) Owns(externalID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids.Get(externalID)
	return ok
}

// offsetAdapter and payloadAdapter let Segment's own id mapper / payload
// storage satisfy payloadindex's narrower OffsetSource/PayloadSource
// interfaces without those packages depending on segment's types.
type offsetAdapter struct{ ids *idmapper.IdMapper }

func (o offsetAdapter) IterOffsets(fn func(offset uint32)) {
	o.ids.Iter(func(_ uint64, offset uint32) { fn(offset) })
}
func (o offsetAdapter) Count() uint64 { return uint64(o.ids.Count()) }

type payloadAdapter struct{ payloads *payloadstorage.PayloadStorage }

func (p payloadAdapter) Get(offset uint32) (payload.Payload, bool) { return p.payloads.Get(offset) }

func newPayloadIndex(kind PayloadIndexKind, ids *idmapper.IdMapper, payloads *payloadstorage.PayloadStorage) payloadindex.Index {
	offsets := offsetAdapter{ids: ids}
	pl := payloadAdapter{payloads: payloads}
	if kind == PayloadIndexStruct {
		return payloadindex.NewStruct(offsets, pl)
	}
	return payloadindex.NewPlain(offsets, pl)
}

func newVectorIndex(kind IndexKind, vectors vectorstorage.Storage, cfg Config, payloadIdx payloadindex.Index) vectorindex.Index {
	if kind == IndexHnsw {
		return vectorindex.NewHnsw(vectors, payloadIdx, hnsw.Config{
			M:                 cfg.Hnsw.M,
			EfConstruct:       cfg.Hnsw.EfConstruct,
			EfSearch:          cfg.Hnsw.EfSearch,
			FullScanThreshold: cfg.Hnsw.FullScanThreshold,
			PayloadM:          cfg.Hnsw.PayloadM,
		})
	}
	return vectorindex.NewPlain(vectors, payloadIdx)
}

// Build constructs a brand new segment in a fresh directory. Per
// original_source's segment_constructor.rs, construction is a pure
// function of (config, dir) with no reference to sibling segments.
// Freshly-built segments always start Plain+InMemory (spec.md §3
// invariant 1); other shapes are produced only by FromParts, which the
// optimizer uses once it has already built the replacement sub-stores.
func Build(dir string, cfg Config, log *zap.SugaredLogger) (*Segment, error) {
	if cfg.Index != IndexPlain || cfg.Storage != StorageInMemory {
		return nil, vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeInvalidInput,
			"a freshly built segment must be Plain+InMemory").WithPath(dir)
	}

	if err := filesys.CreateDir(dir, 0755, false); err != nil {
		return nil, vcerrors.ClassifyDirectoryCreationError(err, dir)
	}

	ids := idmapper.New()

	payloads, err := payloadstorage.Load(filepath.Join(dir, filePayloadStorage))
	if err != nil {
		return nil, err
	}

	vectors := vectorstorage.New(int(cfg.VectorSize), cfg.Distance)

	payloadIdx := newPayloadIndex(cfg.PayloadIndex, ids, payloads)
	vecIdx := newVectorIndex(cfg.Index, vectors, cfg, payloadIdx)

	seg := &Segment{
		log: log, dir: dir, cfg: cfg,
		ids: ids, vectors: vectors, payloads: payloads,
		payloadIdx: payloadIdx, vecIdx: vecIdx,
	}

	if err := seg.saveState(); err != nil {
		return nil, err
	}
	return seg, nil
}

// FromParts assembles a segment from already-constructed sub-stores —
// the path the optimizer takes after building a replacement (promoted
// to Mmap storage and/or an Hnsw index) in a temporary directory.
// indexedFields carries forward the schema of whichever source
// segment(s) the replacement supersedes (spec.md §8: a field index
// created before optimization must still be present, with
// indexed=true, in every segment produced by optimization), applied the
// same way Load restores a persisted segment.json's IndexedFields —
// directly against the payload index, before the vector index is built
// over it.
func FromParts(
	dir string, cfg Config, log *zap.SugaredLogger,
	ids *idmapper.IdMapper, vectors vectorstorage.Storage, payloads *payloadstorage.PayloadStorage,
	version uint64, indexedFields []string,
) (*Segment, error) {
	payloadIdx := newPayloadIndex(cfg.PayloadIndex, ids, payloads)
	for _, key := range indexedFields {
		payloadIdx.SetIndexed(key)
	}

	vecIdx := newVectorIndex(cfg.Index, vectors, cfg, payloadIdx)
	if err := vecIdx.BuildIndex(payloadIdx); err != nil {
		return nil, err
	}

	seg := &Segment{
		log: log, dir: dir, cfg: cfg, version: version, persistedVersion: version,
		ids: ids, vectors: vectors, payloads: payloads,
		payloadIdx: payloadIdx, vecIdx: vecIdx,
	}
	return seg, nil
}

// RestoreIndexedFields marks every key in keys as indexed without
// advancing the segment's version — used to carry a known schema
// (e.g. the optimizer's fallback appendable segment inheriting the
// candidates' indexed fields) onto a segment built via Build, which
// otherwise starts with no indexed fields at all.
func (s *Segment) RestoreIndexedFields(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.payloadIdx.SetIndexed(key)
	}
}

// Load reconstructs a segment previously written to dir, replaying each
// sub-store's own on-open recovery (id mapper from its snapshot, payload
// storage from its append log) and re-applying any tombstones the id
// mapper recorded against vector storage — mmap and in-memory row files
// never persist their own deleted bitmap (vectorstorage.Mmap and
// vectorstorage.InMemory both start "all live" on open).
func Load(dir string, log *zap.SugaredLogger) (*Segment, error) {
	st, err := loadState(dir)
	if err != nil {
		return nil, err
	}

	ids, err := idmapper.Load(filepath.Join(dir, fileIDMapper))
	if err != nil {
		return nil, err
	}

	payloads, err := payloadstorage.Load(filepath.Join(dir, filePayloadStorage))
	if err != nil {
		return nil, err
	}

	vectors, err := loadVectorStorage(dir, st.Config, int(ids.NextOffset()))
	if err != nil {
		return nil, err
	}
	ids.IterTombstoned(func(offset uint32) { vectors.Delete(offset) })

	payloadIdx := newPayloadIndex(st.Config.PayloadIndex, ids, payloads)
	for _, key := range st.IndexedFields {
		payloadIdx.SetIndexed(key)
	}

	vecIdx, err := loadVectorIndex(dir, st.Config, vectors, payloadIdx)
	if err != nil {
		return nil, err
	}

	return &Segment{
		log: log, dir: dir, cfg: st.Config,
		version: st.Version, persistedVersion: st.PersistedVersion,
		ids: ids, vectors: vectors, payloads: payloads,
		payloadIdx: payloadIdx, vecIdx: vecIdx,
	}, nil
}

func loadVectorStorage(dir string, cfg Config, count int) (vectorstorage.Storage, error) {
	path := filepath.Join(dir, fileVectorStorage)
	if cfg.Storage == StorageMmap {
		return vectorstorage.OpenMmap(path, int(cfg.VectorSize), count, cfg.Distance)
	}
	return vectorstorage.LoadInMemory(path, int(cfg.VectorSize), count, cfg.Distance)
}

func loadVectorIndex(dir string, cfg Config, vectors vectorstorage.Storage, payloadIdx payloadindex.Index) (vectorindex.Index, error) {
	if cfg.Index != IndexHnsw {
		return vectorindex.NewPlain(vectors, payloadIdx), nil
	}

	path := filepath.Join(dir, fileHnswGraph)
	if ok, _ := filesys.Exists(path); ok {
		graph, err := hnsw.Load(path, hnswVectorSource{vectors})
		if err != nil {
			return nil, err
		}
		return vectorindex.WrapHnsw(vectors, payloadIdx, graph), nil
	}

	h := vectorindex.NewHnsw(vectors, payloadIdx, hnsw.Config{
		M: cfg.Hnsw.M, EfConstruct: cfg.Hnsw.EfConstruct,
		EfSearch: cfg.Hnsw.EfSearch, FullScanThreshold: cfg.Hnsw.FullScanThreshold,
		PayloadM: cfg.Hnsw.PayloadM,
	})
	if err := h.BuildIndex(payloadIdx); err != nil {
		return nil, err
	}
	return h, nil
}

type hnswVectorSource struct{ vectors vectorstorage.Storage }

func (s hnswVectorSource) Score(query []float32, offset uint32) (float32, bool) {
	return s.vectors.Score(query, offset)
}

// Close releases every sub-store's resources. Idempotent: a second call
// returns a SegmentError with ErrorCodeSegmentClosed instead of
// double-closing, matching the teacher's
// atomic.Bool CompareAndSwap pattern in engine.go. Both sub-stores are
// always given a chance to close — a failure closing vector storage
// must not leak an open payload storage file handle — with
// go.uber.org/multierr aggregating whichever of them fail.
func (s *Segment) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentClosed, "segment already closed").WithPath(s.dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return multierr.Append(s.vectors.Close(), s.payloads.Close())
}
