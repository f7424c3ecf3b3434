// Package hnsw implements the layered proximity graph spec.md §4.5
// describes for the segment's HNSW vector index: "persisted alongside
// the segment ... reinforce in-graph links per payload block."
//
// The exact graph-construction algorithm is explicitly left to the
// implementation by spec.md §1 ("the design specifies what HNSW must
// deliver, not how to build the graph"); this package follows the
// standard Malkov/Yashunin layered-graph construction (exponentially
// decaying layer assignment, greedy descent through upper layers, a
// beam search with a bounded candidate list at layer 0) since nothing
// in the example pack carries a ready-made ANN graph to adapt from.
package hnsw

import (
	"math"
	"math/rand"
	"sync"
)

// VectorSource is the minimal vector access hnsw needs: score a query
// against a stored offset. Raw vectors used during construction come
// from the graph's own vecCache, not from VectorSource.
type VectorSource interface {
	Score(query []float32, offset uint32) (float32, bool)
}

// Config mirrors pkg/options.HnswConfig's construction/search knobs.
type Config struct {
	M                 int
	EfConstruct       int
	EfSearch          int
	FullScanThreshold int
	PayloadM          int
}

// Graph is a layered proximity graph over vector-storage offsets.
type Graph struct {
	mu sync.RWMutex

	cfg     Config
	vectors VectorSource

	// links[layer][offset] = neighbor offsets at that layer.
	links []map[uint32][]uint32
	// level[offset] = highest layer the offset participates in.
	level map[uint32]int
	// vecCache holds the raw vector for every inserted offset, needed to
	// score candidate-to-candidate distances during construction (the
	// VectorSource interface only scores a query against a stored
	// offset, never offset-to-offset).
	vecCache map[uint32][]float32

	entryPoint uint32
	hasEntry   bool

	mL float64 // level-assignment decay constant, 1/ln(M)
	rng *rand.Rand
}

// New returns an empty graph ready for incremental Insert calls.
func New(cfg Config, vectors VectorSource) *Graph {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfConstruct <= 0 {
		cfg.EfConstruct = 100
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 128
	}
	return &Graph{
		cfg:     cfg,
		vectors: vectors,
		links:    []map[uint32][]uint32{make(map[uint32][]uint32)},
		level:    make(map[uint32]int),
		vecCache: make(map[uint32][]float32),
		mL:       1 / math.Log(float64(cfg.M)),
		rng:      rand.New(rand.NewSource(1)),
	}
}

func (g *Graph) randomLevel() int {
	// -ln(U(0,1)) * mL, the standard exponential level-assignment draw.
	r := -math.Log(g.rng.Float64()) * g.mL
	return int(r)
}

func (g *Graph) ensureLayer(l int) {
	for len(g.links) <= l {
		g.links = append(g.links, make(map[uint32][]uint32))
	}
}

// EfSearch returns the configured default search beam width.
func (g *Graph) EfSearch() int { return g.cfg.EfSearch }

// FullScanThreshold returns the configured cardinality cutoff below
// which a filtered search should fall back to exhaustive scoring
// (spec.md §4.5 step 2).
func (g *Graph) FullScanThreshold() int { return g.cfg.FullScanThreshold }
