package segment

import (
	"encoding/json"
	"path/filepath"

	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
)

func loadState(dir string) (state, error) {
	var st state
	data, err := filesys.ReadFile(filepath.Join(dir, fileState))
	if err != nil {
		return st, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to read segment state").
			WithPath(dir).WithOperation("segment.Load")
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeSegmentCorrupted, "failed to decode segment state").
			WithPath(dir).WithOperation("segment.Load")
	}
	return st, nil
}

// saveState atomically rewrites segment.json — spec.md §4.6's
// save_current_state(), grounded on original_source's
// file_operations.rs write-temp-rename helper used for every persisted
// file, generalized here via pkg/filesys.AtomicWriteFile.
func (s *Segment) saveState() error {
	st := state{
		Version:          s.version,
		PersistedVersion: s.persistedVersion,
		Config:           s.cfg,
		IndexedFields:    s.payloadIdx.IndexedFields(),
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeInternal, "failed to encode segment state").
			WithPath(s.dir).WithOperation("segment.SaveCurrentState")
	}

	if err := filesys.AtomicWriteFile(filepath.Join(s.dir, fileState), 0644, data); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to persist segment state").
			WithPath(s.dir).WithOperation("segment.SaveCurrentState")
	}
	return nil
}

// SaveCurrentState atomically rewrites the state file without touching
// sub-store data (spec.md §4.6: "atomically rewrites the state file").
func (s *Segment) SaveCurrentState() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveState()
}

// Flush durably persists every sub-store up to the segment's current
// version and returns the new persisted_version (spec.md §4.6).
// Payload storage is already durable after every append (it fsyncs on
// write), so Flush's work is the id mapper snapshot, the in-memory
// vector buffer (Mmap segments have nothing new to write — they're
// read-only), the HNSW graph if present, and the state file itself.
func (s *Segment) Flush() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ids.Save(filepath.Join(s.dir, fileIDMapper)); err != nil {
		return s.persistedVersion, err
	}

	if s.cfg.Storage == StorageInMemory {
		if mem, ok := s.vectors.(interface{ Save(string) error }); ok {
			if err := mem.Save(filepath.Join(s.dir, fileVectorStorage)); err != nil {
				return s.persistedVersion, err
			}
		}
	}

	if s.cfg.Index == IndexHnsw {
		if err := s.vecIdx.Persist(filepath.Join(s.dir, fileHnswGraph)); err != nil {
			return s.persistedVersion, err
		}
	}

	s.persistedVersion = s.version
	if err := s.saveState(); err != nil {
		return s.persistedVersion, err
	}
	return s.persistedVersion, nil
}
