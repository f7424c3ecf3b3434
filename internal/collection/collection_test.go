package collection

import (
	"context"
	"testing"
	"time"

	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex"
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
	"github.com/iamNilotpal/vectorcollection/pkg/vlog"
)

func testConfig(dir string) options.CollectionConfig {
	cfg := options.NewDefaultOptions()
	cfg.DataDir = dir
	cfg.Params.Size = 3
	cfg.Params.Distance = options.DistanceCosine
	cfg.CompactInterval = time.Hour // don't let the background loop fire mid-test
	cfg.WalConfig.WalSegmentsAhead = 1
	cfg.WalConfig.WalCapacityMB = 1
	return cfg
}

func TestUpsertAndSearchRoundTrip(t *testing.T) {
	c, err := Open(testConfig(t.TempDir()), vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ids := []uint64{1, 2, 3}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	if _, err := c.UpsertPoints(ids, vectors, nil, true); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	results, err := c.Search(context.Background(), []float32{1, 0, 0}, nil, 1, vectorindex.SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected closest point 1, got %+v", results)
	}
}

func TestUpsertWithPayloadThenSearchByFilter(t *testing.T) {
	c, err := Open(testConfig(t.TempDir()), vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ids := []uint64{1, 2}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	payloads := []payload.Payload{
		{"category": payload.Keyword("a")},
		{"category": payload.Keyword("b")},
	}
	if _, err := c.UpsertPoints(ids, vectors, payloads, true); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	filter := payload.And(payload.NewMatch("category", payload.Keyword("b")))
	results, err := c.Search(context.Background(), []float32{0, 1, 0}, filter, 5, vectorindex.SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 2 {
		t.Fatalf("expected only point 2 to match filter, got %+v", results)
	}
}

func TestRecommendMeanOfPositivesMinusNegatives(t *testing.T) {
	c, err := Open(testConfig(t.TempDir()), vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ids := []uint64{1, 2, 3}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
	if _, err := c.UpsertPoints(ids, vectors, nil, true); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	results, err := c.Recommend(context.Background(), []uint64{3}, []uint64{2}, nil, 1, vectorindex.SearchParams{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected point 1 (closest to (1,0,0)) to win, got %+v", results)
	}
}

func TestRecommendMissingIDIsNotFound(t *testing.T) {
	c, err := Open(testConfig(t.TempDir()), vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, err = c.Recommend(context.Background(), []uint64{999}, nil, nil, 1, vectorindex.SearchParams{})
	if !vcerrors.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeletePointRemovesFromSearch(t *testing.T) {
	c, err := Open(testConfig(t.TempDir()), vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ids := []uint64{1, 2}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	if _, err := c.UpsertPoints(ids, vectors, nil, true); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}
	if _, err := c.DeletePoints([]uint64{1}, true); err != nil {
		t.Fatalf("DeletePoints: %v", err)
	}

	results, err := c.Search(context.Background(), []float32{1, 0, 0}, nil, 5, vectorindex.SearchParams{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.ID == 1 {
			t.Fatalf("deleted point 1 still present in results: %+v", results)
		}
	}
}

func TestRecoveryAfterCloseAndReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	c, err := Open(cfg, vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := c.UpsertPoints([]uint64{1}, [][]float32{{1, 0, 0}}, nil, true); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}
	// Close flushes every segment; a fresh Open should still find the
	// point (whether served from the flushed state or replayed from the
	// WAL, recovery must converge to the same visible result).
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(cfg, vlog.Noop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()

	results, err := c2.Search(context.Background(), []float32{1, 0, 0}, nil, 5, vectorindex.SearchParams{})
	if err != nil {
		t.Fatalf("Search after recovery: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected point 1 to survive recovery, got %+v", results)
	}
}

func TestStatusReflectsVectorsAndSegments(t *testing.T) {
	c, err := Open(testConfig(t.TempDir()), vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := c.UpsertPoints([]uint64{1, 2}, [][]float32{{1, 0, 0}, {0, 1, 0}}, nil, true); err != nil {
		t.Fatalf("UpsertPoints: %v", err)
	}

	st := c.Status()
	if st.Status != Green {
		t.Fatalf("expected Green status, got %v", st.Status)
	}
	if st.VectorsCount != 2 {
		t.Fatalf("expected 2 vectors, got %d", st.VectorsCount)
	}
	if st.SegmentsCount < 1 {
		t.Fatalf("expected at least 1 segment, got %d", st.SegmentsCount)
	}
}

func TestZeroTopKRejected(t *testing.T) {
	c, err := Open(testConfig(t.TempDir()), vlog.Noop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, err = c.Search(context.Background(), []float32{1, 0, 0}, nil, 0, vectorindex.SearchParams{})
	if err == nil {
		t.Fatal("expected an error for top=0")
	}
}

