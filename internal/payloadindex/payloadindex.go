// Package payloadindex implements the segment's payload index (C4,
// spec.md §4.4): answers "which internal offsets satisfy filter F?" with
// cardinality estimates, in two variants — Plain (full scan) and Struct
// (per-field inverted structures).
//
// Filter enumeration is modeled as an iter.Seq[uint32] (Go 1.23's
// range-over-func iterators) rather than a materialized []uint32: this
// is the "lazy, finite, non-restartable sequence" spec.md §8's REDESIGN
// FLAGS section requires ("implementations must not materialize the
// full posting list unless the caller requests a count").
package payloadindex

import (
	"iter"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
)

// OffsetSource supplies every live offset in the owning segment, used
// only to backfill a newly-indexed field from payloads written before
// SetIndexed was called.
type OffsetSource interface {
	IterOffsets(fn func(offset uint32))
	Count() uint64
}

// PayloadSource resolves an offset to its current payload.
type PayloadSource interface {
	Get(offset uint32) (payload.Payload, bool)
}

// PayloadBlock is one (field, value, count) tuple from PayloadBlocks,
// used by the HNSW builder to reinforce links per payload block
// (spec.md §4.4, §4.5 step 3).
type PayloadBlock struct {
	Field string
	Value payload.Value
	Count int
}

// Index is the interface spec.md §4.4 defines, shared by Plain and Struct.
type Index interface {
	// IndexedFields returns the payload keys marked as indexed. Plain
	// records these keys but builds no structures for them.
	IndexedFields() []string

	// SetIndexed marks key as indexed. Struct starts maintaining
	// structures for it; Plain only records the key.
	SetIndexed(key string)

	// DropIndex stops maintaining structures for key.
	DropIndex(key string)

	// Upsert informs the index that offset now has payload p, so any
	// per-field structures can be updated incrementally. Called by the
	// segment on every payload write.
	Upsert(offset uint32, p payload.Payload)

	// Remove informs the index that offset no longer has a live
	// payload (point deleted, or payload cleared).
	Remove(offset uint32)

	// EstimateCardinality returns {min, max, expected} surviving
	// offsets for filter f.
	EstimateCardinality(f *payload.Filter) payload.CardinalityEstimate

	// QueryPoints enumerates the offsets satisfying f, lazily.
	QueryPoints(f *payload.Filter) iter.Seq[uint32]

	// PayloadBlocks enumerates (field, value, count) tuples with
	// count >= threshold.
	PayloadBlocks(threshold int) iter.Seq[PayloadBlock]
}
