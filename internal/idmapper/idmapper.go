// Package idmapper implements the segment's id mapper (spec.md §4.1): a
// bidirectional map between stable external point ids and the dense
// internal offsets every other sub-store (vector storage, payload
// storage, payload index) addresses by.
//
// The in-memory shape mirrors the teacher's index package — one
// RWMutex-guarded map kept entirely in memory, sized for millions of
// entries — generalized from "key string -> disk pointer" to
// "external uint64 -> internal uint32 offset, with a tombstone bit".
// Persistence is a single flat file of fixed-width records, flushed on
// segment checkpoint (spec.md §4.1: "no partial-write tolerance is
// required because callers always write through AtomicFile semantics").
package idmapper

import (
	"encoding/binary"
	"sync"

	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
)

// recordWidth is the on-disk size of one entry: 8 bytes external id,
// 4 bytes internal offset, 1 byte tombstone flag.
const recordWidth = 8 + 4 + 1

// IdMapper is the bidirectional external-id <-> internal-offset map.
// Deletes tombstone an offset rather than freeing it (spec.md §4.1:
// "not freed and reused within the same segment"); offsets are only
// reclaimed when the owning segment is rebuilt by an optimizer.
type IdMapper struct {
	mu sync.RWMutex

	externalToInternal map[uint64]uint32
	internalToExternal map[uint32]uint64
	tombstoned         map[uint32]bool

	nextOffset uint32
}

// New returns an empty IdMapper, sized for a fresh or freshly-rebuilt
// segment.
func New() *IdMapper {
	return &IdMapper{
		externalToInternal: make(map[uint64]uint32, 1024),
		internalToExternal: make(map[uint32]uint64, 1024),
		tombstoned:         make(map[uint32]bool),
	}
}

// Get returns the internal offset for an external id, and whether a
// live (non-tombstoned) mapping exists.
func (m *IdMapper) Get(externalID uint64) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	offset, ok := m.externalToInternal[externalID]
	if !ok || m.tombstoned[offset] {
		return 0, false
	}
	return offset, true
}

// ExternalID returns the external id that owns an internal offset, and
// whether the offset is live.
func (m *IdMapper) ExternalID(offset uint32) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tombstoned[offset] {
		return 0, false
	}
	id, ok := m.internalToExternal[offset]
	return id, ok
}

// Put assigns a fresh internal offset to externalID if one doesn't
// already exist, or returns the existing one. This is the "writes
// allocate a new dense offset" half of spec.md §4.1.
func (m *IdMapper) Put(externalID uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if offset, ok := m.externalToInternal[externalID]; ok {
		delete(m.tombstoned, offset)
		return offset
	}

	offset := m.nextOffset
	m.nextOffset++

	m.externalToInternal[externalID] = offset
	m.internalToExternal[offset] = externalID
	return offset
}

// Delete tombstones the offset owned by externalID. It is a no-op if
// externalID has no mapping.
func (m *IdMapper) Delete(externalID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset, ok := m.externalToInternal[externalID]
	if !ok {
		return
	}
	m.tombstoned[offset] = true
}

// Count returns the number of live (non-tombstoned) mappings.
func (m *IdMapper) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.externalToInternal) - len(m.tombstoned)
}

// TotalAllocated returns the number of external ids ever assigned an
// offset in this segment, live or tombstoned — used to derive
// deleted-vector counts for telemetry without exposing the tombstone
// map itself.
func (m *IdMapper) TotalAllocated() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.externalToInternal)
}

// Iter calls fn for every live (externalID, offset) pair. Iteration
// order is unspecified. fn must not call back into the IdMapper.
func (m *IdMapper) Iter(fn func(externalID uint64, offset uint32)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for externalID, offset := range m.externalToInternal {
		if m.tombstoned[offset] {
			continue
		}
		fn(externalID, offset)
	}
}

// IterTombstoned calls fn for every tombstoned offset — used on segment
// recovery to re-apply deletes against vector storage, which does not
// persist its own deleted bitmap (spec.md §4.2: only the id mapper
// records tombstones durably).
func (m *IdMapper) IterTombstoned(fn func(offset uint32)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for offset, tombstoned := range m.tombstoned {
		if tombstoned {
			fn(offset)
		}
	}
}

// NextOffset returns the offset that the next Put call would allocate,
// without allocating it — used by segment.Load to size the vector
// storage it reloads.
func (m *IdMapper) NextOffset() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextOffset
}

// Save persists the mapper as a flat file of fixed-width records via
// the write-temp-then-rename discipline (spec.md §4.1).
func (m *IdMapper) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buf := make([]byte, 0, len(m.externalToInternal)*recordWidth)
	for externalID, offset := range m.externalToInternal {
		record := make([]byte, recordWidth)
		binary.BigEndian.PutUint64(record[0:8], externalID)
		binary.BigEndian.PutUint32(record[8:12], offset)
		if m.tombstoned[offset] {
			record[12] = 1
		}
		buf = append(buf, record...)
	}

	if err := filesys.AtomicWriteFile(path, 0644, buf); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to persist id mapper").
			WithPath(path).
			WithOperation("idmapper.Save")
	}
	return nil
}

// Load rebuilds an IdMapper from a file written by Save.
func Load(path string) (*IdMapper, error) {
	data, err := filesys.ReadFile(path)
	if err != nil {
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to read id mapper").
			WithPath(path).
			WithOperation("idmapper.Load")
	}
	if len(data)%recordWidth != 0 {
		return nil, vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentCorrupted, "id mapper file length is not a multiple of the record width").
			WithPath(path).
			WithOperation("idmapper.Load")
	}

	m := New()
	for i := 0; i < len(data); i += recordWidth {
		record := data[i : i+recordWidth]
		externalID := binary.BigEndian.Uint64(record[0:8])
		offset := binary.BigEndian.Uint32(record[8:12])
		tombstoned := record[12] == 1

		m.externalToInternal[externalID] = offset
		m.internalToExternal[offset] = externalID
		if tombstoned {
			m.tombstoned[offset] = true
		}
		if offset >= m.nextOffset {
			m.nextOffset = offset + 1
		}
	}
	return m, nil
}
