package wal

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iamNilotpal/vectorcollection/pkg/seginfo"
)

const (
	walPrefix    = "wal"
	storeExt     = ".walseg"
	indexExt     = ".widx"
)

// segment is one rotation unit of the WAL: a store file holding
// {seq_no, payload} records and a parallel mmap'd index mapping each
// record's position within the segment to its byte offset in the store —
// the same composition as the teacher's log/{store,index,segment} trio,
// generalized from "offset relative to a Kafka-style topic partition" to
// "seq_no relative to the WAL's global monotonic counter".
type segment struct {
	dir           string
	storePath     string
	indexPath     string
	baseSeqNo     uint64
	nextSeqNo     uint64
	capacityBytes uint64

	store *store
	index *index
}

// createSegment allocates a brand new segment starting at baseSeqNo,
// naming its files via pkg/seginfo so startup recovery can discover and
// order them lexicographically.
func createSegment(dir string, baseSeqNo uint64, capacityBytes uint64) (*segment, error) {
	storeName := seginfo.GenerateName(baseSeqNo, walPrefix, storeExt)
	return openSegmentFiles(dir, storeName, baseSeqNo, capacityBytes)
}

// openSegment reopens a segment whose store file already exists on disk
// (startup recovery), deriving baseSeqNo from its name and nextSeqNo from
// its index's last entry.
func openSegment(dir, storeFileName string, capacityBytes uint64) (*segment, error) {
	baseSeqNo, err := seginfo.ParseSegmentID(storeFileName, walPrefix)
	if err != nil {
		return nil, err
	}
	return openSegmentFiles(dir, storeFileName, baseSeqNo, capacityBytes)
}

func openSegmentFiles(dir, storeName string, baseSeqNo uint64, capacityBytes uint64) (*segment, error) {
	indexName := strings.TrimSuffix(storeName, storeExt) + indexExt

	storePath := filepath.Join(dir, storeName)
	indexPath := filepath.Join(dir, indexName)

	storeFile, err := os.OpenFile(storePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	st, err := newStore(storeFile)
	if err != nil {
		storeFile.Close()
		return nil, err
	}

	indexFile, err := os.OpenFile(indexPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		st.Close()
		return nil, err
	}
	idx, err := newIndex(indexFile)
	if err != nil {
		st.Close()
		indexFile.Close()
		return nil, err
	}

	s := &segment{
		dir:           dir,
		storePath:     storePath,
		indexPath:     indexPath,
		baseSeqNo:     baseSeqNo,
		capacityBytes: capacityBytes,
		store:         st,
		index:         idx,
	}

	if relOff, _, err := idx.Read(-1); err != nil {
		s.nextSeqNo = baseSeqNo
	} else {
		s.nextSeqNo = baseSeqNo + uint64(relOff) + 1
	}
	return s, nil
}

// Append writes one record under seqNo, which the caller must have
// already assigned monotonically (the segment itself is agnostic to
// seq_no allocation policy — it only requires seqNo >= baseSeqNo).
func (s *segment) Append(seqNo uint64, payload []byte) error {
	pos, _, err := s.store.Append(seqNo, payload)
	if err != nil {
		return err
	}
	if err := s.index.Write(uint32(seqNo-s.baseSeqNo), pos); err != nil {
		return err
	}
	s.nextSeqNo = seqNo + 1
	return nil
}

// IsFull reports whether this segment has reached its configured
// capacity and the WAL should roll over to a fresh one.
func (s *segment) IsFull() bool {
	return s.store.size >= s.capacityBytes || uint64(s.index.Count()+1)*idxEntWidth >= indexMaxBytes
}

// Empty reports whether this segment holds no records yet.
func (s *segment) Empty() bool {
	return s.index.Count() == 0
}

// MaxSeqNo returns the highest seq_no written to this segment. Callers
// must check Empty first; the value is meaningless for an empty segment.
func (s *segment) MaxSeqNo() uint64 {
	return s.nextSeqNo - 1
}

// Each calls fn for every record in this segment in ascending seq_no
// order, stopping at the first error fn returns.
func (s *segment) Each(fn func(seqNo uint64, payload []byte) error) error {
	for i := uint32(0); ; i++ {
		_, pos, err := s.index.Read(int64(i))
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		seqNo, payload, err := s.store.Read(pos)
		if err != nil {
			return err
		}
		if err := fn(seqNo, payload); err != nil {
			return err
		}
	}
}

// Sync flushes and fsyncs the segment's store.
func (s *segment) Sync() error {
	return s.store.Sync()
}

func (s *segment) Close() error {
	if err := s.index.Close(); err != nil {
		s.store.Close()
		return err
	}
	return s.store.Close()
}

// Remove closes and deletes both of this segment's files.
func (s *segment) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.indexPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(s.storePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
