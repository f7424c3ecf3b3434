package holder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/vectorcollection/internal/idmapper"
	"github.com/iamNilotpal/vectorcollection/internal/payloadstorage"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/internal/vectorstorage"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
	"github.com/iamNilotpal/vectorcollection/pkg/vlog"
)

func newAppendableSegment(t *testing.T) *segment.Segment {
	t.Helper()
	cfg := segment.Config{
		VectorSize:   3,
		Distance:     options.DistanceEuclid,
		Index:        segment.IndexPlain,
		Storage:      segment.StorageInMemory,
		PayloadIndex: segment.PayloadIndexPlain,
	}
	s, err := segment.Build(filepath.Join(t.TempDir(), "seg"), cfg, vlog.Noop())
	require.NoError(t, err)
	return s
}

// newNonAppendableSegment builds a segment whose config reports
// Appendable() == false (Hnsw index), assembled via FromParts the way
// an optimizer's replacement would be — Build itself only ever
// produces Plain+InMemory segments.
func newNonAppendableSegment(t *testing.T) *segment.Segment {
	t.Helper()
	cfg := segment.Config{
		VectorSize:   3,
		Distance:     options.DistanceEuclid,
		Index:        segment.IndexHnsw,
		Storage:      segment.StorageInMemory,
		PayloadIndex: segment.PayloadIndexStruct,
		Hnsw:         options.HnswConfig{M: 4, EfConstruct: 16, EfSearch: 16, FullScanThreshold: 1000, PayloadM: 2},
	}
	ids := idmapper.New()
	payloads, err := payloadstorage.Load(filepath.Join(t.TempDir(), "payloads"))
	require.NoError(t, err)
	vectors := vectorstorage.New(int(cfg.VectorSize), cfg.Distance)

	s, err := segment.FromParts(filepath.Join(t.TempDir(), "seg"), cfg, vlog.Noop(), ids, vectors, payloads, 0, nil)
	require.NoError(t, err)
	require.False(t, s.Appendable())
	return s
}

func TestAddGetRemove(t *testing.T) {
	h := New()
	seg := newAppendableSegment(t)
	defer seg.Close()

	id := h.Add(seg)
	require.Equal(t, 1, h.Len())

	got, ok := h.Get(id)
	require.True(t, ok)
	require.Same(t, seg, got)

	removed, ok := h.Remove(id)
	require.True(t, ok)
	require.Same(t, seg, removed)
	require.Equal(t, 0, h.Len())

	_, ok = h.Remove(id)
	require.False(t, ok)
}

func TestRandomAppendableRoundRobins(t *testing.T) {
	h := New()
	s1, s2 := newAppendableSegment(t), newAppendableSegment(t)
	defer s1.Close()
	defer s2.Close()

	id1 := h.Add(s1)
	id2 := h.Add(s2)

	seen := map[SegmentId]int{}
	for i := 0; i < 4; i++ {
		id, ok := h.RandomAppendable()
		require.True(t, ok)
		seen[id]++
	}
	require.Equal(t, 2, seen[id1])
	require.Equal(t, 2, seen[id2])
}

func TestRandomAppendableEmptyHolder(t *testing.T) {
	h := New()
	_, ok := h.RandomAppendable()
	require.False(t, ok)
}

func TestApplyToPointRoutesToOwner(t *testing.T) {
	h := New()
	owner := newAppendableSegment(t)
	defer owner.Close()
	require.NoError(t, owner.UpsertPoint(1, 42, []float32{0, 0, 0}, nil))
	h.Add(owner)

	other := newAppendableSegment(t)
	defer other.Close()
	h.Add(other)

	var touched *segment.Segment
	err := h.ApplyToPoint(42, func(seg *segment.Segment) error {
		touched = seg
		return nil
	})
	require.NoError(t, err)
	require.Same(t, owner, touched)
}

func TestApplyToPointFallsBackToAppendable(t *testing.T) {
	h := New()
	seg := newAppendableSegment(t)
	defer seg.Close()
	h.Add(seg)

	var touched *segment.Segment
	err := h.ApplyToPoint(999, func(s *segment.Segment) error {
		touched = s
		return nil
	})
	require.NoError(t, err)
	require.Same(t, seg, touched)
}

func TestApplyToPointNoAppendableSegments(t *testing.T) {
	h := New()
	err := h.ApplyToPoint(1, func(*segment.Segment) error { return nil })
	require.Error(t, err)
}

func TestSwapReplacesSegments(t *testing.T) {
	h := New()
	old1 := newAppendableSegment(t)
	defer old1.Close()
	id1 := h.Add(old1)

	replacement := newAppendableSegment(t)
	defer replacement.Close()

	newID, err := h.Swap([]SegmentId{id1}, replacement)
	require.NoError(t, err)
	require.Equal(t, 1, h.Len())

	_, ok := h.Get(id1)
	require.False(t, ok)
	got, ok := h.Get(newID)
	require.True(t, ok)
	require.Same(t, replacement, got)
}

func TestSwapRejectsLosingLastAppendable(t *testing.T) {
	h := New()
	old := newAppendableSegment(t)
	defer old.Close()
	id := h.Add(old)

	nonAppendable := newNonAppendableSegment(t)
	defer nonAppendable.Close()

	_, err := h.Swap([]SegmentId{id}, nonAppendable)
	require.Error(t, err)
	require.Equal(t, 1, h.Len()) // rejected swap must leave the holder untouched

	got, ok := h.Get(id)
	require.True(t, ok)
	require.Same(t, old, got)
}

func TestSwapAllowsLosingLastAppendableWhenReplacementIsAppendable(t *testing.T) {
	h := New()
	old := newAppendableSegment(t)
	defer old.Close()
	id := h.Add(old)

	replacement := newAppendableSegment(t)
	defer replacement.Close()

	newID, err := h.Swap([]SegmentId{id}, replacement)
	require.NoError(t, err)
	got, ok := h.Get(newID)
	require.True(t, ok)
	require.Same(t, replacement, got)
}

func TestSwapWithFallbackAddsEmptyAppendable(t *testing.T) {
	h := New()
	old := newAppendableSegment(t)
	defer old.Close()
	id := h.Add(old)

	nonAppendable := newNonAppendableSegment(t)
	defer nonAppendable.Close()
	fallback := newAppendableSegment(t)
	defer fallback.Close()

	insertedID, fallbackID, used, err := h.SwapWithFallback([]SegmentId{id}, nonAppendable, fallback)
	require.NoError(t, err)
	require.True(t, used)
	require.Equal(t, 2, h.Len())

	got, ok := h.Get(insertedID)
	require.True(t, ok)
	require.Same(t, nonAppendable, got)

	got, ok = h.Get(fallbackID)
	require.True(t, ok)
	require.Same(t, fallback, got)

	appendable := h.AppendableSegments()
	require.Equal(t, []SegmentId{fallbackID}, appendable)
}

func TestSwapWithFallbackSkipsFallbackWhenUnnecessary(t *testing.T) {
	h := New()
	old := newAppendableSegment(t)
	defer old.Close()
	id := h.Add(old)

	replacement := newAppendableSegment(t)
	defer replacement.Close()
	unused := newAppendableSegment(t)
	defer unused.Close()

	_, _, used, err := h.SwapWithFallback([]SegmentId{id}, replacement, unused)
	require.NoError(t, err)
	require.False(t, used)
	require.Equal(t, 1, h.Len())
}
