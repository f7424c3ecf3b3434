package payloadindex

import (
	"iter"
	"sync"

	"github.com/iamNilotpal/vectorcollection/internal/payload"

	"github.com/google/btree"
)

// numericEntry is one (value, offset) pair stored in a field's btree.
// Ordering by value first, offset second, gives a stable ascending scan
// even when many offsets share the same value.
type numericEntry struct {
	value  float64
	offset uint32
}

func lessNumericEntry(a, b numericEntry) bool {
	if a.value != b.value {
		return a.value < b.value
	}
	return a.offset < b.offset
}

type offsetSet map[uint32]struct{}

// Struct is the per-field inverted-structure payload index spec.md §4.4
// describes: keyword fields get a posting-list map, numeric/geo fields
// get a sorted tree (grounded on `launix-de-memcp/storage/index.go`'s
// use of `github.com/google/btree` for ordered secondary indices,
// generalized here from a columnar-storage B-tree of row ids to a single
// generic BTreeG[numericEntry] per numeric field).
type Struct struct {
	mu sync.RWMutex

	offsets  OffsetSource
	payloads PayloadSource

	indexed map[string]bool

	// keyword postings: field -> keyword string -> offsets.
	keywordPostings map[string]map[string]offsetSet
	// numeric/geo trees: field -> ordered (value, offset) pairs.
	numericTrees map[string]*btree.BTreeG[numericEntry]
	// current payload per offset, for fields not (yet) indexed and for
	// fallback scans.
	live map[uint32]payload.Payload
}

// NewStruct builds an empty Struct index. Fields become indexed (and
// backfilled) via SetIndexed.
func NewStruct(offsets OffsetSource, payloads PayloadSource) *Struct {
	s := &Struct{
		offsets:         offsets,
		payloads:        payloads,
		indexed:         make(map[string]bool),
		keywordPostings: make(map[string]map[string]offsetSet),
		numericTrees:    make(map[string]*btree.BTreeG[numericEntry]),
		live:            make(map[uint32]payload.Payload),
	}
	offsets.IterOffsets(func(offset uint32) {
		if pl, ok := payloads.Get(offset); ok {
			s.live[offset] = pl
		} else {
			s.live[offset] = payload.Payload{}
		}
	})
	return s
}

func (s *Struct) IndexedFields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields := make([]string, 0, len(s.indexed))
	for f := range s.indexed {
		fields = append(fields, f)
	}
	return fields
}

// SetIndexed begins maintaining an inverted structure for key, backfilling
// it from every currently-live payload.
func (s *Struct) SetIndexed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexed[key] {
		return
	}
	s.indexed[key] = true

	for offset, pl := range s.live {
		v, ok := pl[key]
		if !ok {
			continue
		}
		s.indexValue(key, offset, v)
	}
}

func (s *Struct) DropIndex(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.indexed, key)
	delete(s.keywordPostings, key)
	delete(s.numericTrees, key)
}

// indexValue adds one (offset, v) pair into key's structure. Caller
// holds s.mu.
func (s *Struct) indexValue(key string, offset uint32, v payload.Value) {
	if n, ok := v.AsNumeric(); ok {
		tree := s.numericTrees[key]
		if tree == nil {
			tree = btree.NewG(32, lessNumericEntry)
			s.numericTrees[key] = tree
		}
		tree.ReplaceOrInsert(numericEntry{value: n, offset: offset})
		return
	}
	if kw, ok := v.Keyword(); ok {
		postings := s.keywordPostings[key]
		if postings == nil {
			postings = make(map[string]offsetSet)
			s.keywordPostings[key] = postings
		}
		if postings[kw] == nil {
			postings[kw] = make(offsetSet)
		}
		postings[kw][offset] = struct{}{}
		return
	}
	if gp, ok := v.GeoPoint(); ok {
		// Geo values are indexed by latitude in the numeric tree as an
		// approximate pre-filter; GeoRadius conditions always fall back
		// to exact haversine scanning of the candidate set (below).
		tree := s.numericTrees[key]
		if tree == nil {
			tree = btree.NewG(32, lessNumericEntry)
			s.numericTrees[key] = tree
		}
		tree.ReplaceOrInsert(numericEntry{value: gp.Lat, offset: offset})
	}
}

func (s *Struct) removeValue(key string, offset uint32, v payload.Value) {
	if n, ok := v.AsNumeric(); ok {
		if tree := s.numericTrees[key]; tree != nil {
			tree.Delete(numericEntry{value: n, offset: offset})
		}
		return
	}
	if kw, ok := v.Keyword(); ok {
		if postings := s.keywordPostings[key]; postings != nil {
			delete(postings[kw], offset)
		}
		return
	}
	if gp, ok := v.GeoPoint(); ok {
		if tree := s.numericTrees[key]; tree != nil {
			tree.Delete(numericEntry{value: gp.Lat, offset: offset})
		}
	}
}

func (s *Struct) Upsert(offset uint32, p payload.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.live[offset]; ok {
		for key := range s.indexed {
			if v, had := old[key]; had {
				s.removeValue(key, offset, v)
			}
		}
	}
	s.live[offset] = p
	for key := range s.indexed {
		if v, ok := p[key]; ok {
			s.indexValue(key, offset, v)
		}
	}
}

func (s *Struct) Remove(offset uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.live[offset]; ok {
		for key := range s.indexed {
			if v, had := old[key]; had {
				s.removeValue(key, offset, v)
			}
		}
	}
	delete(s.live, offset)
}

// candidatesFor returns the offsets satisfying a single condition using
// an indexed structure when available, or nil + false when key isn't
// indexed (caller must fall back to a scan).
func (s *Struct) candidatesFor(c payload.Condition) (offsetSet, bool) {
	key := c.Key()
	if !s.indexed[key] {
		return nil, false
	}

	switch cond := c.(type) {
	case payload.Match:
		kw, ok := cond.Value().Keyword()
		if !ok {
			return nil, false
		}
		postings := s.keywordPostings[key]
		if postings == nil {
			return offsetSet{}, true
		}
		return postings[kw], true

	case payload.Range:
		tree := s.numericTrees[key]
		if tree == nil {
			return offsetSet{}, true
		}
		gte, hasGte, lte, hasLte := cond.Bounds()
		out := make(offsetSet)
		walk := func(e numericEntry) bool {
			if hasLte && e.value > lte {
				return false
			}
			out[e.offset] = struct{}{}
			return true
		}
		if hasGte {
			tree.AscendGreaterOrEqual(numericEntry{value: gte, offset: 0}, walk)
		} else {
			tree.Ascend(walk)
		}
		return out, true

	default:
		return nil, false
	}
}

func (s *Struct) EstimateCardinality(f *payload.Filter) payload.CardinalityEstimate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := uint64(len(s.live))
	return estimateFilter(f, total, func(c payload.Condition) (uint64, bool) {
		set, ok := s.candidatesFor(c)
		if !ok {
			return 0, false
		}
		return uint64(len(set)), true
	})
}

// QueryPoints implements conjunction by intersecting posting sets
// starting from the cheapest (smallest) predicate, falling back to a
// scan when no predicate in Must is indexed, and handling Should via
// union (spec.md §4.4).
func (s *Struct) QueryPoints(f *payload.Filter) iter.Seq[uint32] {
	if f == nil {
		f = &payload.Filter{}
	}
	return func(yield func(uint32) bool) {
		s.mu.RLock()
		live := make(map[uint32]payload.Payload, len(s.live))
		for k, v := range s.live {
			live[k] = v
		}

		var sets []offsetSet
		unindexedMust := make([]payload.Condition, 0)
		for _, c := range f.Must {
			if set, ok := s.candidatesFor(c); ok {
				sets = append(sets, set)
			} else {
				unindexedMust = append(unindexedMust, c)
			}
		}
		s.mu.RUnlock()

		var candidateOffsets map[uint32]struct{}
		if len(sets) > 0 {
			// Intersect starting from the smallest set (cheapest predicate).
			sortBySize(sets)
			candidateOffsets = make(map[uint32]struct{}, len(sets[0]))
			for offset := range sets[0] {
				candidateOffsets[offset] = struct{}{}
			}
			for _, set := range sets[1:] {
				for offset := range candidateOffsets {
					if _, ok := set[offset]; !ok {
						delete(candidateOffsets, offset)
					}
				}
			}
		} else {
			candidateOffsets = make(map[uint32]struct{}, len(live))
			for offset := range live {
				candidateOffsets[offset] = struct{}{}
			}
		}

		for offset := range candidateOffsets {
			pl := live[offset]
			if matchesRemaining(pl, unindexedMust, f) {
				if !yield(offset) {
					return
				}
			}
		}
	}
}

func matchesRemaining(p payload.Payload, unindexedMust []payload.Condition, f *payload.Filter) bool {
	for _, c := range unindexedMust {
		if !c.Matches(p) {
			return false
		}
	}
	for _, c := range f.MustNot {
		if c.Matches(p) {
			return false
		}
	}
	if len(f.Should) > 0 {
		any := false
		for _, c := range f.Should {
			if c.Matches(p) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func sortBySize(sets []offsetSet) {
	for i := 1; i < len(sets); i++ {
		for j := i; j > 0 && len(sets[j]) < len(sets[j-1]); j-- {
			sets[j], sets[j-1] = sets[j-1], sets[j]
		}
	}
}

func (s *Struct) PayloadBlocks(threshold int) iter.Seq[PayloadBlock] {
	return func(yield func(PayloadBlock) bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		for field, postings := range s.keywordPostings {
			for kw, set := range postings {
				if len(set) >= threshold {
					if !yield(PayloadBlock{Field: field, Value: payload.Keyword(kw), Count: len(set)}) {
						return
					}
				}
			}
		}
	}
}
