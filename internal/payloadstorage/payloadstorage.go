// Package payloadstorage implements the segment's payload storage (C3,
// spec.md §4.3): an offset -> map<key,value> store backed by an
// append-only log with a compacting in-memory index, rebuilt on open —
// grounded on the teacher's storage.go append/recovery shape (one active
// segment file, size tracked in memory, full directory scan on startup)
// generalized from raw key/value bytes to payload.Payload records.
//
// spec.md §1 keeps "the on-disk binary/json codecs for primitive payload
// values" out of scope; encoding/gob is used here purely as the record
// framing (see the note under §3 of SPEC_FULL.md), the same choice made for WAL records,
// since no IDL/codegen step is in scope for this repository.
package payloadstorage

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"sync"

	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
	"github.com/iamNilotpal/vectorcollection/internal/payload"
)

type opKind byte

const (
	opSet opKind = iota
	opMerge
	opDeleteKeys
	opClear
)

// record is one append-only log entry. Gob-encoded, length-prefixed.
type record struct {
	Offset uint32
	Op     opKind
	Values map[string]wireValue
	Keys   []string
}

// PayloadStorage is the append-only log + compacting in-memory index.
type PayloadStorage struct {
	mu sync.RWMutex

	file  *os.File
	index map[uint32]payload.Payload
}

// New creates a fresh payload storage backed by a new log file at path.
func New(path string) (*PayloadStorage, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, vcerrors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	return &PayloadStorage{file: file, index: make(map[uint32]payload.Payload)}, nil
}

// Load rebuilds a PayloadStorage by replaying every record in the log at
// path, in order — "rebuilt in-memory index... on open" (spec.md §4.3).
func Load(path string) (*PayloadStorage, error) {
	data, err := filesys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(path)
		}
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to read payload log").
			WithPath(path).WithOperation("payloadstorage.Load")
	}

	index := make(map[uint32]payload.Payload)
	// append gives every record its own gob.Encoder, so every record
	// carries its own type definitions and needs a decoder of its own.
	r := bytes.NewReader(data)
	for {
		var rec record
		if err := gob.NewDecoder(r).Decode(&rec); err != nil {
			break // io.EOF, or a truncated trailing record from a crash mid-append
		}
		applyRecord(index, rec)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, vcerrors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}

	return &PayloadStorage{file: file, index: index}, nil
}

func applyRecord(index map[uint32]payload.Payload, rec record) {
	switch rec.Op {
	case opSet:
		index[rec.Offset] = fromWireMap(rec.Values)
	case opMerge:
		p, ok := index[rec.Offset]
		if !ok {
			p = payload.Payload{}
			index[rec.Offset] = p
		}
		p.Merge(fromWireMap(rec.Values))
	case opDeleteKeys:
		if p, ok := index[rec.Offset]; ok {
			for _, k := range rec.Keys {
				delete(p, k)
			}
		}
	case opClear:
		delete(index, rec.Offset)
	}
}

func (s *PayloadStorage) append(rec record) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to encode payload record").
			WithOperation("payloadstorage.append")
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to append payload record").
			WithOperation("payloadstorage.append")
	}
	if err := s.file.Sync(); err != nil {
		offset, _ := s.file.Seek(0, io.SeekCurrent)
		return vcerrors.ClassifySyncError(err, filepath.Base(s.file.Name()), s.file.Name(), offset)
	}
	return nil
}

// SetPayload replaces offset's entire payload.
func (s *PayloadStorage) SetPayload(offset uint32, p payload.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Offset: offset, Op: opSet, Values: toWireMap(p)}
	if err := s.append(rec); err != nil {
		return err
	}
	applyRecord(s.index, rec)
	return nil
}

// MergePayload overlays patch onto offset's existing payload.
func (s *PayloadStorage) MergePayload(offset uint32, patch payload.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Offset: offset, Op: opMerge, Values: toWireMap(patch)}
	if err := s.append(rec); err != nil {
		return err
	}
	applyRecord(s.index, rec)
	return nil
}

// DeleteKeys removes the named keys from offset's payload.
func (s *PayloadStorage) DeleteKeys(offset uint32, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Offset: offset, Op: opDeleteKeys, Keys: keys}
	if err := s.append(rec); err != nil {
		return err
	}
	applyRecord(s.index, rec)
	return nil
}

// Clear removes offset's payload entirely.
func (s *PayloadStorage) Clear(offset uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Offset: offset, Op: opClear}
	if err := s.append(rec); err != nil {
		return err
	}
	applyRecord(s.index, rec)
	return nil
}

// Get returns offset's current payload, and whether one exists.
func (s *PayloadStorage) Get(offset uint32) (payload.Payload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.index[offset]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Iter calls fn for every offset that has a payload entry, including
// entries left empty by DeleteKeys.
func (s *PayloadStorage) Iter(fn func(offset uint32, p payload.Payload)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for offset, p := range s.index {
		fn(offset, p)
	}
}

// Close flushes and closes the underlying log file.
func (s *PayloadStorage) Close() error {
	return s.file.Close()
}
