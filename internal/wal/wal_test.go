package wal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/vectorcollection/pkg/options"
	"github.com/iamNilotpal/vectorcollection/pkg/vlog"
)

func testCfg() options.WalConfig {
	return options.WalConfig{WalCapacityMB: 1, WalSegmentsAhead: 2, FsyncIntervalMs: 0}
}

func TestAppendAssignsMonotonicSeqNo(t *testing.T) {
	w, err := Open(t.TempDir(), testCfg(), vlog.Noop())
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		seqNo, err := w.Append([]byte("payload"))
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), seqNo)
	}
	require.Equal(t, uint64(6), w.NextSeqNo())
}

func TestReplaySkipsAcknowledgedRecords(t *testing.T) {
	w, err := Open(t.TempDir(), testCfg(), vlog.Noop())
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, err := w.Append([]byte{byte(i)})
		require.NoError(t, err)
	}

	var replayed []uint64
	require.NoError(t, w.Replay(2, func(seqNo uint64, payload []byte) error {
		replayed = append(replayed, seqNo)
		require.Equal(t, []byte{byte(seqNo - 1)}, payload)
		return nil
	}))
	require.Equal(t, []uint64{3, 4, 5}, replayed)
}

func TestRecoveryReopensExistingSegmentsAndContinuesSeqNo(t *testing.T) {
	dir := t.TempDir()
	cfg := testCfg()

	w, err := Open(dir, cfg, vlog.Noop())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := w.Append([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	reopened, err := Open(dir, cfg, vlog.Noop())
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint64(4), reopened.NextSeqNo())

	seqNo, err := reopened.Append([]byte("y"))
	require.NoError(t, err)
	require.Equal(t, uint64(4), seqNo)

	var seen []uint64
	require.NoError(t, reopened.Replay(0, func(seqNo uint64, _ []byte) error {
		seen = append(seen, seqNo)
		return nil
	}))
	require.Equal(t, []uint64{1, 2, 3, 4}, seen)
}

func TestRotationSplitsRecordsAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, testCfg(), vlog.Noop())
	require.NoError(t, err)
	defer w.Close()

	// Force a tiny capacity directly on the active segment so a handful
	// of small records trigger rotation without needing megabytes of data.
	w.mu.Lock()
	w.active.capacityBytes = recHeaderWidth + 4
	w.mu.Unlock()

	for i := 0; i < 6; i++ {
		_, err := w.Append([]byte{byte(i)})
		require.NoError(t, err)
	}

	w.mu.Lock()
	nSegments := len(w.segments)
	w.mu.Unlock()
	require.Greater(t, nSegments, 1)

	var seen []uint64
	require.NoError(t, w.Replay(0, func(seqNo uint64, _ []byte) error {
		seen = append(seen, seqNo)
		return nil
	}))
	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, seen)
}

func TestCheckpointRemovesFullyPersistedSegments(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, testCfg(), vlog.Noop())
	require.NoError(t, err)
	defer w.Close()

	w.mu.Lock()
	w.active.capacityBytes = recHeaderWidth + 4
	w.mu.Unlock()

	for i := 0; i < 6; i++ {
		_, err := w.Append([]byte{byte(i)})
		require.NoError(t, err)
	}

	w.mu.Lock()
	before := len(w.segments)
	removed := w.segments[0].storePath
	w.mu.Unlock()
	require.Greater(t, before, 1)

	require.NoError(t, w.Checkpoint(6))

	w.mu.Lock()
	after := len(w.segments)
	w.mu.Unlock()
	require.Equal(t, 1, after)

	matches, err := filepath.Glob(filepath.Join(dir, walPrefix+"_*"+storeExt))
	require.NoError(t, err)
	// Spare segments built ahead by the preallocator also match the
	// pattern, so only the checkpointed segment's own file is checked.
	require.NotContains(t, matches, removed)
}
