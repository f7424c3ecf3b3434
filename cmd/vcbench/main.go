// Command vcbench is a small harness that exercises a collection
// end-to-end: open, upsert a batch of random points, search, recommend,
// report status, close. It is not an HTTP or CLI surface — its only
// flags are the data directory, point count, vector dimension and debug
// logging — just a
// direct driver of internal/collection the way pkg/ignite/ignite.go's
// Instance is driven by its own callers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/iamNilotpal/vectorcollection/internal/collection"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
	"github.com/iamNilotpal/vectorcollection/pkg/vlog"
)

func main() {
	dataDir := flag.String("data-dir", "", "collection data directory (defaults to a temp dir)")
	numPoints := flag.Int("points", 10_000, "number of random points to upsert")
	dimension := flag.Uint64("dim", 128, "vector dimension")
	debug := flag.Bool("debug", false, "enable human-readable debug logging")
	flag.Parse()

	if *dataDir == "" {
		dir, err := os.MkdirTemp("", "vcbench-*")
		if err != nil {
			log.Fatalf("vcbench: create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		*dataDir = dir
	}

	logger := vlog.New("vcbench", *debug)
	defer logger.Sync()

	cfg := options.NewDefaultOptions()
	cfg.DataDir = *dataDir
	cfg.Params.Size = *dimension
	cfg.Params.Distance = options.DistanceCosine

	col, err := collection.Open(cfg, logger)
	if err != nil {
		log.Fatalf("vcbench: open collection: %v", err)
	}
	defer col.Close()

	rng := rand.New(rand.NewSource(1))
	ids := make([]uint64, *numPoints)
	vectors := make([][]float32, *numPoints)
	for i := range ids {
		ids[i] = uint64(i + 1)
		vectors[i] = randomVector(rng, int(*dimension))
	}

	start := time.Now()
	if _, err := col.UpsertPoints(ids, vectors, nil, true); err != nil {
		log.Fatalf("vcbench: upsert: %v", err)
	}
	fmt.Printf("upserted %d points in %s\n", *numPoints, time.Since(start))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := randomVector(rng, int(*dimension))
	start = time.Now()
	results, err := col.Search(ctx, query, nil, 10, vectorindex.SearchParams{})
	if err != nil {
		log.Fatalf("vcbench: search: %v", err)
	}
	fmt.Printf("search top-%d in %s:\n", len(results), time.Since(start))
	for _, r := range results {
		fmt.Printf("  id=%d score=%f\n", r.ID, r.Score)
	}

	if len(results) >= 2 {
		positive := []uint64{results[0].ID}
		negative := []uint64{results[len(results)-1].ID}
		recommended, err := col.Recommend(ctx, positive, negative, nil, 5, vectorindex.SearchParams{})
		if err != nil {
			log.Fatalf("vcbench: recommend: %v", err)
		}
		fmt.Printf("recommend(+%v,-%v) top-%d:\n", positive, negative, len(recommended))
		for _, r := range recommended {
			fmt.Printf("  id=%d score=%f\n", r.ID, r.Score)
		}
	}

	st := col.Status()
	fmt.Printf("status: %s vectors=%d segments=%d disk=%dB ram=%dB\n",
		st.Status, st.VectorsCount, st.SegmentsCount, st.DiskDataSize, st.RamDataSize)
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}
