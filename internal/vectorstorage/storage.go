// Package vectorstorage implements the segment's vector storage (C2,
// spec.md §4.2): a dense store of fixed-dimension vectors addressed by
// internal offset, either heap-backed (InMemory) or mmap-backed (Mmap).
package vectorstorage

import "github.com/iamNilotpal/vectorcollection/pkg/options"

// Storage is the contract spec.md §4.2 defines: put/get/delete by
// offset, iterate live offsets, and score a query against a candidate
// set.
type Storage interface {
	// Put writes v at offset, growing the store if needed. InMemory
	// only; an Mmap store returns an error since it is read-only
	// (spec.md §4.2: "Does not support appends").
	Put(offset uint32, v []float32) error

	// Get returns the vector at offset. The returned slice must not be
	// retained past the next mutating call on an InMemory store.
	Get(offset uint32) ([]float32, bool)

	// Delete marks offset as deleted without compacting storage.
	Delete(offset uint32)

	// IterLive calls fn for every non-deleted offset in ascending order.
	IterLive(fn func(offset uint32, v []float32))

	// Score returns the distance-metric score between query and the
	// vector stored at offset. Returns false if offset is deleted or
	// out of range.
	Score(query []float32, offset uint32) (float32, bool)

	// Count returns the number of live vectors.
	Count() int

	// Dimension returns the fixed vector width D.
	Dimension() int

	// Close releases any OS resources (file handles, mappings) held by
	// the store.
	Close() error
}

// New builds the InMemory variant — the only variant a freshly-created,
// appendable segment ever starts with (spec.md §3 invariant 1:
// "appendable = (index = Plain ∧ storage = InMemory)").
func New(dimension int, distance options.Distance) *InMemory {
	return NewInMemory(dimension, distance)
}
