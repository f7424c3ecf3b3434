package vectorindex

import (
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/payloadindex"
)

// VectorSource is the subset of vectorstorage.Storage Plain needs:
// score a query against a stored offset, and enumerate every live
// offset with its vector.
type VectorSource interface {
	Score(query []float32, offset uint32) (float32, bool)
	IterLive(fn func(offset uint32, v []float32))
}

// Plain is the exhaustive vector index spec.md §4.5 describes: "filters
// via payload index, then scores every surviving candidate; top-k via
// bounded min-heap."
type Plain struct {
	vectors    VectorSource
	payloadIdx payloadindex.Index
}

// NewPlain builds a Plain index over vectors, filtering through
// payloadIdx.
func NewPlain(vectors VectorSource, payloadIdx payloadindex.Index) *Plain {
	return &Plain{vectors: vectors, payloadIdx: payloadIdx}
}

func (p *Plain) Search(query []float32, filter *payload.Filter, top int, _ SearchParams) ([]ScoredOffset, error) {
	if top <= 0 {
		return nil, vcerrors.NewZeroTopKError()
	}

	topK := newBoundedTopK(top)

	if filter == nil {
		p.vectors.IterLive(func(offset uint32, _ []float32) {
			if score, ok := p.vectors.Score(query, offset); ok {
				topK.Offer(ScoredOffset{Offset: offset, Score: score})
			}
		})
	} else {
		for offset := range p.payloadIdx.QueryPoints(filter) {
			if score, ok := p.vectors.Score(query, offset); ok {
				topK.Offer(ScoredOffset{Offset: offset, Score: score})
			}
		}
	}

	return topK.Results(), nil
}

// BuildIndex is a no-op: Plain has no structures to (re)build.
func (p *Plain) BuildIndex(payloadindex.Index) error { return nil }

// Persist is a no-op: Plain has no structures to save to disk.
func (p *Plain) Persist(path string) error { return nil }
