package payloadstorage

import (
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/stretchr/testify/require"
)

func TestSetGetPayload(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "payload.log"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetPayload(0, payload.Payload{"color": payload.Keyword("red")}))

	p, ok := s.Get(0)
	require.True(t, ok)
	kw, _ := p["color"].Keyword()
	require.Equal(t, "red", kw)
}

func TestMergePayload(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "payload.log"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetPayload(0, payload.Payload{"color": payload.Keyword("red")}))
	require.NoError(t, s.MergePayload(0, payload.Payload{"size": payload.Integer(10)}))

	p, _ := s.Get(0)
	require.Len(t, p, 2)
}

func TestDeleteKeysAndClear(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "payload.log"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetPayload(0, payload.Payload{"a": payload.Integer(1), "b": payload.Integer(2)}))
	require.NoError(t, s.DeleteKeys(0, []string{"a"}))

	p, ok := s.Get(0)
	require.True(t, ok)
	require.Len(t, p, 1)

	require.NoError(t, s.Clear(0))
	_, ok = s.Get(0)
	require.False(t, ok)
}

func TestLoadRebuildsIndexFromLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.log")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SetPayload(0, payload.Payload{"color": payload.Keyword("red")}))
	require.NoError(t, s.MergePayload(0, payload.Payload{"size": payload.Integer(5)}))
	require.NoError(t, s.SetPayload(1, payload.Payload{"x": payload.Integer(1)}))
	require.NoError(t, s.Close())

	loaded, err := Load(path)
	require.NoError(t, err)
	defer loaded.Close()

	p0, ok := loaded.Get(0)
	require.True(t, ok)
	require.Len(t, p0, 2)

	p1, ok := loaded.Get(1)
	require.True(t, ok)
	require.Len(t, p1, 1)
}

func TestLoadOnMissingFileCreatesNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.log")
	s, err := Load(path)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Get(0)
	require.False(t, ok)
}
