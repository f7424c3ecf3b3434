package wal

import (
	"bufio"
	"encoding/binary"
	"os"
	"sync"
)

// enc is the byte order every on-disk WAL structure uses, matching the
// teacher's index encoding convention (internal/log/index.go).
var enc = binary.BigEndian

// recHeaderWidth is the fixed-size header written before every record's
// payload: an 8-byte seq_no followed by an 8-byte payload length.
const recHeaderWidth = 16

// store is the append-only byte-level log a segment's records live in,
// grounded on the teacher pack's proglog-style store (observed through its
// call sites in segment.go: Append, Read, ReadAt, Name, size) — that file
// itself wasn't present in the retrieved teacher pack, so this is a
// from-scratch implementation of the same contract.
type store struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	size uint64
}

func newStore(f *os.File) (*store, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &store{file: f, buf: bufio.NewWriter(f), size: uint64(fi.Size())}, nil
}

// Append writes seqNo and payload as one record and returns the byte
// offset the record starts at (for the index) plus the record's total
// width on disk.
func (s *store) Append(seqNo uint64, payload []byte) (pos uint64, width uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos = s.size

	var header [recHeaderWidth]byte
	enc.PutUint64(header[0:8], seqNo)
	enc.PutUint64(header[8:16], uint64(len(payload)))

	hn, err := s.buf.Write(header[:])
	if err != nil {
		return 0, 0, err
	}
	pn, err := s.buf.Write(payload)
	if err != nil {
		return 0, 0, err
	}

	width = uint64(hn + pn)
	s.size += width
	return pos, width, nil
}

// Read decodes the record starting at byte offset pos, flushing any
// buffered writes first so a read-after-write in the same process sees
// its own data.
func (s *store) Read(pos uint64) (seqNo uint64, payload []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buf.Flush(); err != nil {
		return 0, nil, err
	}

	var header [recHeaderWidth]byte
	if _, err := s.file.ReadAt(header[:], int64(pos)); err != nil {
		return 0, nil, err
	}
	seqNo = enc.Uint64(header[0:8])
	length := enc.Uint64(header[8:16])

	payload = make([]byte, length)
	if length > 0 {
		if _, err := s.file.ReadAt(payload, int64(pos+recHeaderWidth)); err != nil {
			return 0, nil, err
		}
	}
	return seqNo, payload, nil
}

// ReadAt exposes the underlying file for sequential readers (e.g. a full
// WAL dump), flushing buffered writes first.
func (s *store) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.buf.Flush(); err != nil {
		return 0, err
	}
	return s.file.ReadAt(p, off)
}

// Sync flushes buffered writes and fsyncs the underlying file.
func (s *store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *store) Name() string {
	return s.file.Name()
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
