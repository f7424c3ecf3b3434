package vectorstorage

import (
	"encoding/binary"
	"math"
	"os"
	"sync"

	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

// InMemory is a contiguous growth buffer of count*D float32s plus a
// deleted bitmap, grounded on the teacher's storage.go append-only
// discipline (size tracking field, append-then-grow) generalized from
// byte-segment files to an in-process float32 buffer — there is no
// segment rotation here since the whole point lives in RAM until the
// optimizer promotes it to Mmap.
type InMemory struct {
	mu sync.RWMutex

	dimension int
	distance  Distance

	data    []float32 // len == count*dimension
	deleted []bool    // len == count
	count   int
}

// NewInMemory returns an empty InMemory store for vectors of the given
// dimension, scored under distance.
func NewInMemory(dimension int, distance options.Distance) *InMemory {
	return &InMemory{
		dimension: dimension,
		distance:  NewDistance(distance),
	}
}

func (s *InMemory) Dimension() int { return s.dimension }

// Put writes v at offset, growing the backing buffer if offset is
// beyond the current count. v is preprocessed in place (e.g.
// unit-normalized for cosine) before being copied in, matching spec.md
// §4.2's "unit-normalize on insert".
func (s *InMemory) Put(offset uint32, v []float32) error {
	if len(v) != s.dimension {
		return vcerrors.NewDimensionMismatchError(len(v), s.dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	needed := int(offset) + 1
	if needed > s.count {
		s.grow(needed)
	}

	preprocessed := make([]float32, s.dimension)
	copy(preprocessed, v)
	s.distance.PreprocessInsert(preprocessed)

	start := int(offset) * s.dimension
	copy(s.data[start:start+s.dimension], preprocessed)
	s.deleted[offset] = false
	return nil
}

// grow extends data/deleted up to `count` entries. Caller holds s.mu.
func (s *InMemory) grow(count int) {
	if count <= s.count {
		return
	}
	newData := make([]float32, count*s.dimension)
	copy(newData, s.data)
	s.data = newData

	newDeleted := make([]bool, count)
	copy(newDeleted, s.deleted)
	s.deleted = newDeleted

	s.count = count
}

func (s *InMemory) Get(offset uint32) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(offset) >= s.count || s.deleted[offset] {
		return nil, false
	}
	start := int(offset) * s.dimension
	out := make([]float32, s.dimension)
	copy(out, s.data[start:start+s.dimension])
	return out, true
}

func (s *InMemory) Delete(offset uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(offset) >= s.count {
		return
	}
	s.deleted[offset] = true
}

func (s *InMemory) IterLive(fn func(offset uint32, v []float32)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < s.count; i++ {
		if s.deleted[i] {
			continue
		}
		start := i * s.dimension
		fn(uint32(i), s.data[start:start+s.dimension])
	}
}

func (s *InMemory) Score(query []float32, offset uint32) (float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(offset) >= s.count || s.deleted[offset] {
		return 0, false
	}
	start := int(offset) * s.dimension
	return s.distance.Score(query, s.data[start:start+s.dimension]), true
}

func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := 0
	for _, d := range s.deleted {
		if !d {
			live++
		}
	}
	return live
}

// Close is a no-op for InMemory; there is no OS resource to release.
func (s *InMemory) Close() error { return nil }

// Save persists the buffer as a row-major float32 matrix, one row per
// offset, little-endian — the same on-disk shape Mmap.BuildMmap writes,
// so a segment can freely promote an InMemory store to Mmap by handing
// this file straight to OpenMmap. Tombstones are not written here, the
// same way Mmap's row file carries no deleted bitmap: the id mapper
// already persists which offsets are tombstoned, and LoadInMemory's
// caller re-applies Delete from that source of truth on recovery.
func (s *InMemory) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rowBytes := s.dimension * 4
	buf := make([]byte, s.count*rowBytes)
	for i := 0; i < s.count; i++ {
		start := i * s.dimension
		for d := 0; d < s.dimension; d++ {
			off := i*rowBytes + d*4
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.data[start+d]))
		}
	}

	if err := filesys.AtomicWriteFile(path, 0644, buf); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to persist in-memory vector storage").
			WithPath(path).WithOperation("vectorstorage.InMemory.Save")
	}
	return nil
}

// LoadInMemory rebuilds an InMemory store from a file written by Save
// (or, equivalently, from a segment directory holding count rows of
// dimension floats). Every offset starts live; the caller re-applies
// tombstones recorded in the id mapper.
func LoadInMemory(path string, dimension, count int, distance options.Distance) (*InMemory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewInMemory(dimension, distance), nil
		}
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to read in-memory vector storage").
			WithPath(path).WithOperation("vectorstorage.LoadInMemory")
	}

	rowBytes := dimension * 4
	s := &InMemory{
		dimension: dimension,
		distance:  NewDistance(distance),
		data:      make([]float32, count*dimension),
		deleted:   make([]bool, count),
		count:     count,
	}
	limit := len(data) / rowBytes
	if limit > count {
		limit = count
	}
	for i := 0; i < limit; i++ {
		for d := 0; d < dimension; d++ {
			off := i*rowBytes + d*4
			bits := binary.LittleEndian.Uint32(data[off : off+4])
			s.data[i*dimension+d] = math.Float32frombits(bits)
		}
	}
	return s, nil
}
