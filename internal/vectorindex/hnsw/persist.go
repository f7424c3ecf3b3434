package hnsw

import (
	"bytes"
	"encoding/gob"
	"os"

	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
)

// wireGraph is the gob-encodable mirror of Graph's persisted fields —
// sync.RWMutex and *rand.Rand aren't meaningfully serializable and
// aren't needed once a graph is reloaded for querying.
type wireGraph struct {
	Cfg        Config
	Links      []map[uint32][]uint32
	Level      map[uint32]int
	VecCache   map[uint32][]float32
	EntryPoint uint32
	HasEntry   bool
}

// Save persists the graph to path, atomically, the way segment state is
// saved elsewhere in this module (pkg/filesys.AtomicWriteFile).
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	w := wireGraph{
		Cfg:        g.cfg,
		Links:      g.links,
		Level:      g.level,
		VecCache:   g.vecCache,
		EntryPoint: g.entryPoint,
		HasEntry:   g.hasEntry,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeInternal, "failed to encode hnsw graph").
			WithPath(path).
			WithOperation("hnsw.Save")
	}

	if err := filesys.AtomicWriteFile(path, 0o644, buf.Bytes()); err != nil {
		return vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to write hnsw graph").
			WithPath(path).
			WithOperation("hnsw.Save")
	}
	return nil
}

// Load reconstructs a graph previously written by Save.
func Load(path string, vectors VectorSource) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeIO, "failed to read hnsw graph").
			WithPath(path).
			WithOperation("hnsw.Load")
	}

	var w wireGraph
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, vcerrors.NewSegmentError(err, vcerrors.ErrorCodeSegmentCorrupted, "failed to decode hnsw graph").
			WithPath(path).
			WithOperation("hnsw.Load")
	}

	g := New(w.Cfg, vectors)
	g.links = w.Links
	g.level = w.Level
	g.vecCache = w.VecCache
	g.entryPoint = w.EntryPoint
	g.hasEntry = w.HasEntry
	return g, nil
}
