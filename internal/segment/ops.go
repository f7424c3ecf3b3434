package segment

import (
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
)

// Each mutating operation below is a no-op (idempotent skip) when
// seq_no <= s.version — spec.md §4.6: "this is how recovery replays the
// WAL safely." All of them require the write lock and reject non-
// appendable segments, except the payload-index maintenance ops
// (CreateFieldIndex/DropFieldIndex), which spec.md never restricts to
// appendable segments since they only touch the payload index, not
// vector/id storage.

// UpsertPoint inserts or overwrites a point. Appendable segments only.
func (s *Segment) UpsertPoint(seqNo, id uint64, vector []float32, p payload.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seqNo <= s.version {
		return nil
	}
	if !s.cfg.Appendable() {
		return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentNotAppendable, "segment does not accept writes").
			WithPath(s.dir).WithOperation("UpsertPoint").WithPointID(id)
	}
	if len(vector) != int(s.cfg.VectorSize) {
		return vcerrors.NewDimensionMismatchError(len(vector), int(s.cfg.VectorSize))
	}

	offset := s.ids.Put(id)
	if err := s.vectors.Put(offset, vector); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to store vector").
			WithPath(s.dir).WithOperation("UpsertPoint").WithPointID(id)
	}

	if p != nil {
		if err := s.payloads.SetPayload(offset, p); err != nil {
			return err
		}
		s.payloadIdx.Upsert(offset, p)
	}

	s.version = seqNo
	return nil
}

// DeletePoint removes a point. A no-op if id isn't present in this
// segment — the holder's apply_to_point only routes deletes to the
// segment that actually owns the id, but a segment must still tolerate
// being asked about an id it never held (e.g. a stale replay).
func (s *Segment) DeletePoint(seqNo, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seqNo <= s.version {
		return nil
	}
	if !s.cfg.Appendable() {
		return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentNotAppendable, "segment does not accept writes").
			WithPath(s.dir).WithOperation("DeletePoint").WithPointID(id)
	}

	offset, ok := s.ids.Get(id)
	if ok {
		s.ids.Delete(id)
		s.vectors.Delete(offset)
		s.payloadIdx.Remove(offset)
		if err := s.payloads.Clear(offset); err != nil {
			return err
		}
	}

	s.version = seqNo
	return nil
}

// SetPayload merges patch into id's current payload, creating it with
// no prior payload if none exists.
func (s *Segment) SetPayload(seqNo, id uint64, patch payload.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seqNo <= s.version {
		return nil
	}
	if !s.cfg.Appendable() {
		return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentNotAppendable, "segment does not accept writes").
			WithPath(s.dir).WithOperation("SetPayload").WithPointID(id)
	}

	offset, ok := s.ids.Get(id)
	if !ok {
		return vcerrors.NewNotFoundError(id)
	}
	if err := s.payloads.MergePayload(offset, patch); err != nil {
		return err
	}
	merged, _ := s.payloads.Get(offset)
	s.payloadIdx.Upsert(offset, merged)

	s.version = seqNo
	return nil
}

// DeletePayload removes the given keys from id's payload.
func (s *Segment) DeletePayload(seqNo, id uint64, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seqNo <= s.version {
		return nil
	}
	if !s.cfg.Appendable() {
		return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentNotAppendable, "segment does not accept writes").
			WithPath(s.dir).WithOperation("DeletePayload").WithPointID(id)
	}

	offset, ok := s.ids.Get(id)
	if !ok {
		return vcerrors.NewNotFoundError(id)
	}
	if err := s.payloads.DeleteKeys(offset, keys); err != nil {
		return err
	}
	remaining, _ := s.payloads.Get(offset)
	s.payloadIdx.Upsert(offset, remaining)

	s.version = seqNo
	return nil
}

// ClearPayload removes id's entire payload while leaving the point (its
// vector and id mapping) untouched — distinct from DeletePoint, and from
// DeletePayload's key-subset removal, per spec.md §6's ClearPayload{ids}
// envelope operation.
func (s *Segment) ClearPayload(seqNo, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seqNo <= s.version {
		return nil
	}
	if !s.cfg.Appendable() {
		return vcerrors.NewSegmentError(nil, vcerrors.ErrorCodeSegmentNotAppendable, "segment does not accept writes").
			WithPath(s.dir).WithOperation("ClearPayload").WithPointID(id)
	}

	offset, ok := s.ids.Get(id)
	if ok {
		if err := s.payloads.Clear(offset); err != nil {
			return err
		}
		s.payloadIdx.Remove(offset)
	}

	s.version = seqNo
	return nil
}

// CreateFieldIndex starts maintaining structures for key. Allowed
// against any segment — it only affects the payload index, not the
// appendable writable surface.
func (s *Segment) CreateFieldIndex(seqNo uint64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seqNo <= s.version {
		return nil
	}
	s.payloadIdx.SetIndexed(key)
	s.version = seqNo
	return nil
}

// DropFieldIndex stops maintaining structures for key.
func (s *Segment) DropFieldIndex(seqNo uint64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seqNo <= s.version {
		return nil
	}
	s.payloadIdx.DropIndex(key)
	s.version = seqNo
	return nil
}
