// Package options provides data structures and functions for configuring a
// vector collection. It defines the parameters that control distance
// computation, HNSW graph construction, optimizer thresholds and WAL
// behavior — the stable config.json schema described in spec.md §6.
package options

import (
	"encoding/json"
	"os"
	"strings"
	"time"
)

// Distance identifies the metric used to score vectors within a segment.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceEuclid Distance = "Euclid"
	DistanceDot    Distance = "Dot"
)

// VectorParams describes the fixed shape of every vector stored in a
// collection.
type VectorParams struct {
	// Size is the fixed dimension D every vector must have.
	Size uint64 `json:"size"`
	// Distance is the metric used for scoring.
	Distance Distance `json:"distance"`
}

// HnswConfig controls HNSW graph construction and search, per spec.md §4.5.
type HnswConfig struct {
	// M is the number of bi-directional links created per new graph node.
	M int `json:"m"`
	// EfConstruct is the size of the dynamic candidate list during
	// construction.
	EfConstruct int `json:"efConstruct"`
	// FullScanThreshold is the cardinality cutoff below which a filtered
	// search degrades to exact scoring instead of walking the graph.
	FullScanThreshold int `json:"fullScanThreshold"`
	// EfSearch is the default size of the dynamic candidate list at query
	// time when the caller doesn't override it in SearchParams.
	EfSearch int `json:"efSearch"`
	// PayloadM is the number of extra links reinforced per payload block
	// (spec.md §4.5 step 3); 0 disables payload-aware link reinforcement.
	PayloadM int `json:"payloadM"`
}

// OptimizerConfig controls when optimizers promote segments across storage
// and index forms, per spec.md §4.8.
type OptimizerConfig struct {
	// MemmapThreshold is the vector count above which a segment is
	// converted to Mmap storage.
	MemmapThreshold uint64 `json:"memmapThreshold"`
	// IndexingThreshold is the vector count above which a Plain segment is
	// converted to an HNSW index.
	IndexingThreshold uint64 `json:"indexingThreshold"`
	// PayloadIndexingThreshold is the vector count above which a segment
	// with at least one indexed payload field is promoted even if it
	// hasn't crossed IndexingThreshold.
	PayloadIndexingThreshold uint64 `json:"payloadIndexingThreshold"`
	// DefaultSegmentNumber is the target number of segments the collection
	// tries to maintain; used by the merge optimizer to decide when small
	// segments should be combined.
	DefaultSegmentNumber int `json:"defaultSegmentNumber"`
	// MaxSegmentNumber bounds how many segments the merge optimizer will
	// tolerate before combining the smallest ones (original_source's
	// OptimizersConfig::max_segment_number).
	MaxSegmentNumber int `json:"maxSegmentNumber"`
	// MaxOptimizationThreads bounds how many optimizer build phases may
	// run concurrently.
	MaxOptimizationThreads int `json:"maxOptimizationThreads"`
	// VacuumMinTombstoneRatio is the tombstoned/total ratio above which the
	// vacuum optimizer selects a segment for rewrite.
	VacuumMinTombstoneRatio float64 `json:"vacuumMinTombstoneRatio"`
}

// WalConfig controls the write-ahead log's segmentation and durability
// policy, per spec.md §4.9.
type WalConfig struct {
	// WalCapacityMB is the size, in megabytes, of each WAL segment file
	// before rotation.
	WalCapacityMB uint64 `json:"walCapacityMb"`
	// WalSegmentsAhead is the number of pre-allocated WAL segment files
	// kept ready so rotation never blocks on file creation.
	WalSegmentsAhead int `json:"walSegmentsAhead"`
	// FsyncIntervalMs, when non-zero, turns off the fsync after every
	// append; the WAL runs no timer of its own, so records are then
	// fsynced only by explicit Wal.Sync calls. 0 means fsync every append.
	FsyncIntervalMs int64 `json:"fsyncIntervalMs"`
}

// CollectionConfig is the full, persisted configuration of a collection.
// It is the Go equivalent of spec.md §6's config.json.
type CollectionConfig struct {
	// DataDir is the base path where the collection stores its directory
	// tree (wal/, segments/, config.json).
	DataDir string `json:"dataDir"`

	// CompactInterval is how often background optimizers re-evaluate
	// check_condition across the holder.
	CompactInterval time.Duration `json:"compactInterval"`

	Params          VectorParams    `json:"params"`
	HnswConfig      HnswConfig      `json:"hnswConfig"`
	OptimizerConfig OptimizerConfig `json:"optimizerConfig"`
	WalConfig       WalConfig       `json:"walConfig"`
}

// OptionFunc is a function type that modifies a CollectionConfig.
type OptionFunc func(*CollectionConfig)

// WithDefaultOptions resets every field back to NewDefaultOptions' values.
func WithDefaultOptions() OptionFunc {
	return func(c *CollectionConfig) {
		*c = NewDefaultOptions()
	}
}

// WithDataDir sets the base data directory.
func WithDataDir(directory string) OptionFunc {
	return func(c *CollectionConfig) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			c.DataDir = directory
		}
	}
}

// WithCompactInterval sets how often optimizers re-check their conditions.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(c *CollectionConfig) {
		if interval > 0 {
			c.CompactInterval = interval
		}
	}
}

// WithVectorParams sets the collection's fixed vector shape.
func WithVectorParams(size uint64, distance Distance) OptionFunc {
	return func(c *CollectionConfig) {
		if size > 0 {
			c.Params.Size = size
		}
		if distance != "" {
			c.Params.Distance = distance
		}
	}
}

// WithHnswConfig overrides the HNSW construction/search parameters.
func WithHnswConfig(cfg HnswConfig) OptionFunc {
	return func(c *CollectionConfig) {
		c.HnswConfig = cfg
	}
}

// WithOptimizerConfig overrides the optimizer thresholds.
func WithOptimizerConfig(cfg OptimizerConfig) OptionFunc {
	return func(c *CollectionConfig) {
		c.OptimizerConfig = cfg
	}
}

// WithWalConfig overrides the WAL segmentation/durability policy.
func WithWalConfig(cfg WalConfig) OptionFunc {
	return func(c *CollectionConfig) {
		c.WalConfig = cfg
	}
}

// Load reads a CollectionConfig from path (the collection's config.json).
func Load(path string) (CollectionConfig, error) {
	var cfg CollectionConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON. Callers that need the
// write-temp-then-rename durability discipline should route through
// pkg/filesys.AtomicWriteFile instead of calling Save directly.
func Save(path string, cfg CollectionConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
