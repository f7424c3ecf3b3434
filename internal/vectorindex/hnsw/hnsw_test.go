package hnsw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeVectors scores by negated squared Euclidean distance, matching
// vectorstorage's Euclid convention, so "higher score is better" holds.
type fakeVectors struct {
	vecs map[uint32][]float32
}

func (f fakeVectors) Score(query []float32, offset uint32) (float32, bool) {
	v, ok := f.vecs[offset]
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

func buildGraph(t *testing.T, n int) (*Graph, *fakeVectors) {
	t.Helper()
	vecs := &fakeVectors{vecs: make(map[uint32][]float32)}
	for i := 0; i < n; i++ {
		vecs.vecs[uint32(i)] = []float32{float32(i), 0}
	}
	g := New(Config{M: 4, EfConstruct: 20, EfSearch: 20}, vecs)
	for i := 0; i < n; i++ {
		g.Insert(uint32(i), vecs.vecs[uint32(i)])
	}
	return g, vecs
}

func TestGraphSearchFindsNearest(t *testing.T) {
	g, _ := buildGraph(t, 50)

	results := g.Search([]float32{10, 0}, 3, 20, nil)
	require.Len(t, results, 3)
	require.Equal(t, uint32(10), results[0].Offset)
}

func TestGraphSearchRespectsFilter(t *testing.T) {
	g, _ := buildGraph(t, 50)

	// Only even offsets accepted.
	accept := func(offset uint32) bool { return offset%2 == 0 }
	results := g.Search([]float32{10, 0}, 3, 30, accept)
	require.Len(t, results, 3)
	for _, r := range results {
		require.Equal(t, uint32(0), r.Offset%2)
	}
}

func TestGraphSearchEmptyGraph(t *testing.T) {
	vecs := &fakeVectors{vecs: make(map[uint32][]float32)}
	g := New(Config{}, vecs)
	results := g.Search([]float32{1, 1}, 5, 10, nil)
	require.Nil(t, results)
}

func TestReinforceBlockAddsLinks(t *testing.T) {
	g, _ := buildGraph(t, 20)
	before := len(g.links[0][0])

	g.ReinforceBlock([]uint32{0, 5, 9, 15})

	after := len(g.links[0][0])
	require.GreaterOrEqual(t, after, before)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g, vecs := buildGraph(t, 30)
	dir := t.TempDir()
	path := dir + "/graph.bin"

	require.NoError(t, g.Save(path))

	loaded, err := Load(path, vecs)
	require.NoError(t, err)

	results := loaded.Search([]float32{20, 0}, 2, 20, nil)
	require.Len(t, results, 2)
	require.Equal(t, uint32(20), results[0].Offset)
}
