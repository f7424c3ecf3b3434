package idmapper

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutAssignsDenseOffsets(t *testing.T) {
	m := New()

	off1 := m.Put(100)
	off2 := m.Put(200)
	require.Equal(t, uint32(0), off1)
	require.Equal(t, uint32(1), off2)

	// Re-putting an existing id returns the same offset.
	require.Equal(t, off1, m.Put(100))
	require.Equal(t, 2, m.Count())
}

func TestDeleteTombstonesWithoutFreeingOffset(t *testing.T) {
	m := New()
	off := m.Put(42)

	m.Delete(42)
	_, ok := m.Get(42)
	require.False(t, ok, "tombstoned offset must not be returned as live")
	require.Equal(t, 0, m.Count())

	// The offset is not reused: the next Put allocates a fresh one.
	next := m.Put(43)
	require.NotEqual(t, off, next)
}

func TestExternalIDReverseLookup(t *testing.T) {
	m := New()
	off := m.Put(7)

	id, ok := m.ExternalID(off)
	require.True(t, ok)
	require.Equal(t, uint64(7), id)

	m.Delete(7)
	_, ok = m.ExternalID(off)
	require.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := New()
	m.Put(1)
	m.Put(2)
	offset3 := m.Put(3)
	m.Delete(3)

	path := filepath.Join(t.TempDir(), "idmapper.dat")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 2, loaded.Count())
	_, ok := loaded.Get(3)
	require.False(t, ok)

	_, ok = loaded.ExternalID(offset3)
	require.False(t, ok)

	// Offset allocation continues past whatever was persisted.
	next := loaded.Put(4)
	require.GreaterOrEqual(t, next, offset3+1)
}

func TestIterOnlyVisitsLiveEntries(t *testing.T) {
	m := New()
	m.Put(1)
	m.Put(2)
	m.Delete(2)

	seen := map[uint64]bool{}
	m.Iter(func(externalID uint64, offset uint32) {
		seen[externalID] = true
	})

	require.True(t, seen[1])
	require.False(t, seen[2])
}
