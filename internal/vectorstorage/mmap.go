package vectorstorage

import (
	"encoding/binary"
	"math"
	"os"
	"sync"

	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
	"github.com/tysonmote/gommap"
)

// Mmap is the fixed-size, read-only vector store spec.md §4.2 describes:
// "fixed-size file mapped read-only ... with a copy-on-write
// deleted-bitmap held separately". It is produced only by the optimizer
// from an InMemory source — grounded on the teacher's gommap-backed
// index.go, generalized from a 12-byte index-entry layout to a raw
// row-major float32 matrix (each row is one vector, encoded little-endian
// via encoding/binary's ByteOrder; every read decodes the mapped row into
// a fresh []float32).
type Mmap struct {
	mu sync.RWMutex

	file      *os.File
	mapping   gommap.MMap
	dimension int
	count     int
	deleted   []bool
	distance  Distance
}

// BuildMmap writes vectors (indexed by offset) to a new file at path and
// maps it read-only. vectors[i] may be nil for a deleted/never-written
// offset, in which case the corresponding row is left zeroed and marked
// deleted. Vectors are assumed already preprocessed (e.g. normalized)
// since BuildMmap only ever runs on vectors copied out of an InMemory
// store that already did so on insert.
func BuildMmap(path string, dimension int, vectors [][]float32, distance options.Distance) (*Mmap, error) {
	count := len(vectors)
	rowBytes := dimension * 4
	buf := make([]byte, count*rowBytes)
	deleted := make([]bool, count)

	for i, v := range vectors {
		if v == nil {
			deleted[i] = true
			continue
		}
		offset := i * rowBytes
		for d, f := range v {
			binary.LittleEndian.PutUint32(buf[offset+d*4:offset+d*4+4], math.Float32bits(f))
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to create mmap vector file").
			WithPath(path).WithOperation("vectorstorage.BuildMmap")
	}
	if len(buf) > 0 {
		if _, err := file.Write(buf); err != nil {
			file.Close()
			return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to write mmap vector file").
				WithPath(path).WithOperation("vectorstorage.BuildMmap")
		}
	} else {
		// gommap.Map refuses to map a zero-length file; reserve one row
		// so an empty segment still produces a valid (if unused) mapping.
		if err := file.Truncate(int64(rowBytes)); err != nil {
			file.Close()
			return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to reserve mmap vector file").
				WithPath(path).WithOperation("vectorstorage.BuildMmap")
		}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to sync mmap vector file").
			WithPath(path).WithOperation("vectorstorage.BuildMmap")
	}

	mapping, err := gommap.Map(file.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeMmapFailed, "failed to mmap vector file").
			WithPath(path).WithOperation("vectorstorage.BuildMmap")
	}

	return &Mmap{
		file:      file,
		mapping:   mapping,
		dimension: dimension,
		count:     count,
		deleted:   deleted,
		distance:  NewDistance(distance),
	}, nil
}

// OpenMmap maps an existing vector file, read-only, with count vectors
// of the given dimension and a fresh (all-live) deleted bitmap — callers
// restoring a segment apply recorded tombstones with Delete afterward.
func OpenMmap(path string, dimension, count int, distance options.Distance) (*Mmap, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0644)
	if err != nil {
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to open mmap vector file").
			WithPath(path).WithOperation("vectorstorage.OpenMmap")
	}

	mapping, err := gommap.Map(file.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeMmapFailed, "failed to mmap vector file").
			WithPath(path).WithOperation("vectorstorage.OpenMmap")
	}

	return &Mmap{
		file:      file,
		mapping:   mapping,
		dimension: dimension,
		count:     count,
		deleted:   make([]bool, count),
		distance:  NewDistance(distance),
	}, nil
}

func (s *Mmap) Dimension() int { return s.dimension }

// Put always fails: Mmap storage never accepts appends (spec.md §4.2).
func (s *Mmap) Put(offset uint32, v []float32) error {
	return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentNotAppendable, "mmap vector storage does not support writes").
		WithOperation("vectorstorage.Mmap.Put")
}

func (s *Mmap) rowAt(offset uint32) []float32 {
	rowBytes := s.dimension * 4
	start := int(offset) * rowBytes
	row := make([]float32, s.dimension)
	for d := 0; d < s.dimension; d++ {
		bits := binary.LittleEndian.Uint32(s.mapping[start+d*4 : start+d*4+4])
		row[d] = math.Float32frombits(bits)
	}
	return row
}

func (s *Mmap) Get(offset uint32) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(offset) >= s.count || s.deleted[offset] {
		return nil, false
	}
	return s.rowAt(offset), true
}

func (s *Mmap) Delete(offset uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(offset) >= s.count {
		return
	}
	s.deleted[offset] = true
}

func (s *Mmap) IterLive(fn func(offset uint32, v []float32)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < s.count; i++ {
		if s.deleted[i] {
			continue
		}
		fn(uint32(i), s.rowAt(uint32(i)))
	}
}

func (s *Mmap) Score(query []float32, offset uint32) (float32, bool) {
	row, ok := s.Get(offset)
	if !ok {
		return 0, false
	}
	return s.distance.Score(query, row), true
}

func (s *Mmap) Count() int {
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

// Close unmaps the file and closes the underlying descriptor.
func (s *Mmap) Close() error {
	if err := s.mapping.UnsafeUnmap(); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeMmapFailed, "failed to unmap vector file").
			WithOperation("vectorstorage.Mmap.Close")
	}
	return s.file.Close()
}
