package segment

import "github.com/iamNilotpal/vectorcollection/pkg/options"

// IndexKind selects the segment's vector index variant (spec.md §3).
type IndexKind string

const (
	IndexPlain IndexKind = "Plain"
	IndexHnsw  IndexKind = "Hnsw"
)

// StorageKind selects the segment's vector storage variant.
type StorageKind string

const (
	StorageInMemory StorageKind = "InMemory"
	StorageMmap     StorageKind = "Mmap"
)

// PayloadIndexKind selects the segment's payload index variant.
type PayloadIndexKind string

const (
	PayloadIndexPlain  PayloadIndexKind = "Plain"
	PayloadIndexStruct PayloadIndexKind = "Struct"
)

// Kind is the segment's type, a pure function of (Index, PayloadIndex)
// per spec.md §3 invariant 4.
type Kind string

const (
	KindPlain   Kind = "Plain"
	KindIndexed Kind = "Indexed"
	KindSpecial Kind = "Special"
)

// Config is the persisted SegmentConfig of spec.md §3: vector shape,
// distance metric, and the index/storage/payload-index variant triple
// that together determine appendability and segment type.
type Config struct {
	VectorSize   uint64           `json:"vectorSize"`
	Distance     options.Distance `json:"distance"`
	Index        IndexKind        `json:"index"`
	Storage      StorageKind      `json:"storage"`
	PayloadIndex PayloadIndexKind `json:"payloadIndex"`
	Hnsw         options.HnswConfig `json:"hnsw"`
}

// Appendable reports spec.md §3 invariant 1: "appendable = (index =
// Plain ∧ storage = InMemory)". Only appendable segments accept writes.
func (c Config) Appendable() bool {
	return c.Index == IndexPlain && c.Storage == StorageInMemory
}

// Kind derives the segment's type from its index/payload-index pair.
// Plain+Plain is the fresh, writable shape every segment starts in;
// Hnsw+Struct is the fully-optimized shape the indexing optimizer
// promotes towards; any other combination is a transitional or
// unusual mix that doesn't fit either named bucket cleanly.
func (c Config) Kind() Kind {
	switch {
	case c.Index == IndexPlain && c.PayloadIndex == PayloadIndexPlain:
		return KindPlain
	case c.Index == IndexHnsw && c.PayloadIndex == PayloadIndexStruct:
		return KindIndexed
	default:
		return KindSpecial
	}
}
