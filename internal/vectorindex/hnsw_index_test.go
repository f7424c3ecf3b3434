package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/payloadindex"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex/hnsw"
)

type memVectors struct {
	vecs map[uint32][]float32
}

func (m *memVectors) Score(query []float32, offset uint32) (float32, bool) {
	v, ok := m.vecs[offset]
	if !ok {
		return 0, false
	}
	var sum float32
	for i := range query {
		d := query[i] - v[i]
		sum += d * d
	}
	return -sum, true
}

func (m *memVectors) IterLive(fn func(offset uint32, v []float32)) {
	for o, v := range m.vecs {
		fn(o, v)
	}
}

type fakeOffsets struct{ offsets []uint32 }

func (f fakeOffsets) IterOffsets(fn func(offset uint32)) {
	for _, o := range f.offsets {
		fn(o)
	}
}
func (f fakeOffsets) Count() uint64 { return uint64(len(f.offsets)) }

type fakePayloads struct{ byOffset map[uint32]payload.Payload }

func (f fakePayloads) Get(offset uint32) (payload.Payload, bool) {
	p, ok := f.byOffset[offset]
	return p, ok
}

func buildFixture(n int) (*memVectors, *payloadindex.Plain) {
	vecs := &memVectors{vecs: make(map[uint32][]float32)}
	offsets := make([]uint32, 0, n)
	payloads := make(map[uint32]payload.Payload)
	for i := 0; i < n; i++ {
		o := uint32(i)
		vecs.vecs[o] = []float32{float32(i), 0}
		offsets = append(offsets, o)
		tag := "even"
		if i%2 != 0 {
			tag = "odd"
		}
		payloads[o] = payload.Payload{"tag": payload.Keyword(tag)}
	}
	idx := payloadindex.NewPlain(fakeOffsets{offsets: offsets}, fakePayloads{byOffset: payloads})
	return vecs, idx
}

func TestHnswSearchUnfiltered(t *testing.T) {
	vecs, idx := buildFixture(40)
	h := NewHnsw(vecs, idx, hnsw.Config{M: 8, EfConstruct: 40, EfSearch: 40, FullScanThreshold: 10})
	require.NoError(t, h.BuildIndex(idx))

	results, err := h.Search([]float32{12, 0}, nil, 3, SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, uint32(12), results[0].Offset)
}

func TestHnswSearchLowCardinalityFallsBackToPayloadIndex(t *testing.T) {
	vecs, idx := buildFixture(40)
	// FullScanThreshold high enough that any filtered subset of 40
	// points routes through the payload-index fallback (step 3).
	h := NewHnsw(vecs, idx, hnsw.Config{M: 8, EfConstruct: 40, EfSearch: 40, FullScanThreshold: 100})
	require.NoError(t, h.BuildIndex(idx))

	filter := payload.And(payload.NewMatch("tag", payload.Keyword("even")))
	results, err := h.Search([]float32{12, 0}, filter, 3, SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.Equal(t, uint32(0), r.Offset%2)
	}
}

func TestHnswSearchHighCardinalityRejectsAtScoringTime(t *testing.T) {
	vecs, idx := buildFixture(60)
	// FullScanThreshold low enough that the ~30-point "even" filter
	// counts as high cardinality, routing through graph-walk + reject.
	h := NewHnsw(vecs, idx, hnsw.Config{M: 8, EfConstruct: 60, EfSearch: 60, FullScanThreshold: 5})
	require.NoError(t, h.BuildIndex(idx))

	filter := payload.And(payload.NewMatch("tag", payload.Keyword("even")))
	results, err := h.Search([]float32{12, 0}, filter, 3, SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.Equal(t, uint32(0), r.Offset%2)
	}
}

func TestHnswSearchZeroTopKRejected(t *testing.T) {
	vecs, idx := buildFixture(5)
	h := NewHnsw(vecs, idx, hnsw.Config{})
	require.NoError(t, h.BuildIndex(idx))

	_, err := h.Search([]float32{0, 0}, nil, 0, SearchParams{})
	require.Error(t, err)
}
