package vectorstorage

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/vectorcollection/pkg/options"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPutGetDelete(t *testing.T) {
	s := NewInMemory(3, options.DistanceDot)

	require.NoError(t, s.Put(0, []float32{1, 2, 3}))
	v, ok := s.Get(0)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3}, v)

	s.Delete(0)
	_, ok = s.Get(0)
	require.False(t, ok)
	require.Equal(t, 0, s.Count())
}

func TestInMemoryDimensionMismatch(t *testing.T) {
	s := NewInMemory(3, options.DistanceDot)
	err := s.Put(0, []float32{1, 2})
	require.Error(t, err)
}

func TestCosineNormalizesOnInsert(t *testing.T) {
	s := NewInMemory(2, options.DistanceCosine)
	require.NoError(t, s.Put(0, []float32{3, 4}))

	v, _ := s.Get(0)
	mag := math.Sqrt(float64(v[0]*v[0] + v[1]*v[1]))
	require.InDelta(t, 1.0, mag, 1e-6)
}

func TestEuclidScoreIsNegatedSquaredDistance(t *testing.T) {
	s := NewInMemory(2, options.DistanceEuclid)
	require.NoError(t, s.Put(0, []float32{0, 0}))

	score, ok := s.Score([]float32{3, 4}, 0)
	require.True(t, ok)
	require.Equal(t, float32(-25), score) // -(3^2+4^2)
}

func TestInMemoryIterLiveSkipsDeleted(t *testing.T) {
	s := NewInMemory(1, options.DistanceDot)
	require.NoError(t, s.Put(0, []float32{1}))
	require.NoError(t, s.Put(1, []float32{2}))
	s.Delete(1)

	var seen []uint32
	s.IterLive(func(offset uint32, v []float32) { seen = append(seen, offset) })
	require.Equal(t, []uint32{0}, seen)
}

func TestMmapBuildGetAndRejectWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.mmap")
	vectors := [][]float32{{1, 2}, {3, 4}, nil}

	built, err := BuildMmap(path, 2, vectors, options.DistanceDot)
	require.NoError(t, err)
	defer built.Close()

	v, ok := built.Get(0)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2}, v)

	_, ok = built.Get(2)
	require.False(t, ok, "nil row must be marked deleted")

	require.Error(t, built.Put(0, []float32{9, 9}), "mmap storage must reject writes")
}

func TestInMemorySaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")

	s := NewInMemory(2, options.DistanceDot)
	require.NoError(t, s.Put(0, []float32{1, 2}))
	require.NoError(t, s.Put(1, []float32{3, 4}))
	require.NoError(t, s.Save(path))

	loaded, err := LoadInMemory(path, 2, 2, options.DistanceDot)
	require.NoError(t, err)

	v, ok := loaded.Get(1)
	require.True(t, ok)
	require.Equal(t, []float32{3, 4}, v)
}

func TestLoadInMemoryMissingFileReturnsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.bin")
	s, err := LoadInMemory(path, 2, 0, options.DistanceDot)
	require.NoError(t, err)
	require.Equal(t, 0, s.Count())
}
