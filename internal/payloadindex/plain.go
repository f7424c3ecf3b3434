package payloadindex

import (
	"iter"
	"sync"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
)

// Plain is the no-structures payload index spec.md §4.4 describes:
// "no data structures; query_points is a full scan that asks the
// payload storage row by row. Cardinality estimates are {0, total_live}."
type Plain struct {
	mu       sync.RWMutex
	offsets  OffsetSource
	payloads PayloadSource
	// live tracks the current offset->payload presence so QueryPoints
	// doesn't need to reach back into payloadstorage on every call;
	// kept in sync via Upsert/Remove.
	live map[uint32]payload.Payload
	// indexed records which fields CreateFieldIndex has been asked to
	// maintain, even though Plain builds no structures for them — this
	// keeps the segment's schema (IndexedFields) accurate across
	// bootstrap/optimizer rewrites, per spec.md §8's requirement that a
	// requested field index survive into every segment regardless of
	// which payload index form it uses.
	indexed map[string]bool
}

// NewPlain builds a Plain index, backfilling from every offset already
// present in offsets/payloads (e.g. when loading a persisted segment).
func NewPlain(offsets OffsetSource, payloads PayloadSource) *Plain {
	p := &Plain{
		offsets:  offsets,
		payloads: payloads,
		live:     make(map[uint32]payload.Payload),
		indexed:  make(map[string]bool),
	}
	offsets.IterOffsets(func(offset uint32) {
		if pl, ok := payloads.Get(offset); ok {
			p.live[offset] = pl
		} else {
			p.live[offset] = payload.Payload{}
		}
	})
	return p
}

func (p *Plain) IndexedFields() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	fields := make([]string, 0, len(p.indexed))
	for f := range p.indexed {
		fields = append(fields, f)
	}
	return fields
}

func (p *Plain) SetIndexed(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexed[key] = true
}

func (p *Plain) DropIndex(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.indexed, key)
}

func (p *Plain) Upsert(offset uint32, pl payload.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live[offset] = pl
}

func (p *Plain) Remove(offset uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, offset)
}

// EstimateCardinality always returns {0, total_live} per spec.md §4.4:
// Plain has no structures to narrow the estimate with.
func (p *Plain) EstimateCardinality(f *payload.Filter) payload.CardinalityEstimate {
	p.mu.RLock()
	total := uint64(len(p.live))
	p.mu.RUnlock()

	return estimateFilter(f, total, func(payload.Condition) (uint64, bool) {
		return 0, false
	})
}

func (p *Plain) QueryPoints(f *payload.Filter) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		p.mu.RLock()
		snapshot := make(map[uint32]payload.Payload, len(p.live))
		for k, v := range p.live {
			snapshot[k] = v
		}
		p.mu.RUnlock()

		for offset, pl := range snapshot {
			if f.Matches(pl) {
				if !yield(offset) {
					return
				}
			}
		}
	}
}

func (p *Plain) PayloadBlocks(threshold int) iter.Seq[PayloadBlock] {
	return func(yield func(PayloadBlock) bool) {
		p.mu.RLock()
		counts := make(map[string]map[string]int)
		values := make(map[string]map[string]payload.Value)
		for _, pl := range p.live {
			for field, v := range pl {
				if counts[field] == nil {
					counts[field] = make(map[string]int)
					values[field] = make(map[string]payload.Value)
				}
				key := v.String()
				counts[field][key]++
				values[field][key] = v
			}
		}
		p.mu.RUnlock()

		for field, byValue := range counts {
			for key, count := range byValue {
				if count >= threshold {
					if !yield(PayloadBlock{Field: field, Value: values[field][key], Count: count}) {
						return
					}
				}
			}
		}
	}
}
