package options

import "time"

const (
	// DefaultDataDir is used when no other directory is specified.
	DefaultDataDir = "/var/lib/vectorcollection"

	// DefaultCompactInterval is how often optimizers re-check their
	// conditions against the holder.
	DefaultCompactInterval = time.Second * 30

	// DefaultMemmapThreshold is the vector count above which a segment is
	// converted to Mmap storage.
	DefaultMemmapThreshold uint64 = 200_000

	// DefaultIndexingThreshold is the vector count above which a Plain
	// segment is converted to an HNSW index.
	DefaultIndexingThreshold uint64 = 20_000

	// DefaultPayloadIndexingThreshold promotes a segment with at least one
	// indexed field once it holds this many vectors.
	DefaultPayloadIndexingThreshold uint64 = 10_000

	// DefaultFullScanThreshold is the cardinality cutoff below which a
	// filtered HNSW search degrades to exact scoring (spec.md §4.5).
	DefaultFullScanThreshold = 10_000

	// DefaultM is the default number of bi-directional HNSW links per node.
	DefaultM = 16

	// DefaultEfConstruct is the default HNSW construction candidate list size.
	DefaultEfConstruct = 100

	// DefaultEfSearch is the default HNSW search candidate list size.
	DefaultEfSearch = 128

	// DefaultWalCapacityMB is the size of each WAL segment file before rotation.
	DefaultWalCapacityMB uint64 = 64

	// DefaultWalSegmentsAhead is how many WAL segment files are
	// pre-allocated so rotation never blocks on file creation.
	DefaultWalSegmentsAhead = 1

	// DefaultMaxSegmentNumber bounds how many segments trigger the merge
	// optimizer.
	DefaultMaxSegmentNumber = 64

	// DefaultSegmentNumber is the target segment count the merge optimizer
	// aims for.
	DefaultSegmentNumber = 8

	// DefaultMaxOptimizationThreads bounds concurrent optimizer builds.
	DefaultMaxOptimizationThreads = 2

	// DefaultVacuumMinTombstoneRatio is the tombstoned/total ratio above
	// which the vacuum optimizer rewrites a segment.
	DefaultVacuumMinTombstoneRatio = 0.2
)

// defaultConfig holds the baseline configuration for a new collection.
var defaultConfig = CollectionConfig{
	DataDir:         DefaultDataDir,
	CompactInterval: DefaultCompactInterval,
	Params: VectorParams{
		Size:     0, // callers must set this; there is no sane default dimension
		Distance: DistanceCosine,
	},
	HnswConfig: HnswConfig{
		M:                 DefaultM,
		EfConstruct:       DefaultEfConstruct,
		FullScanThreshold: DefaultFullScanThreshold,
		EfSearch:          DefaultEfSearch,
		PayloadM:          DefaultM / 2,
	},
	OptimizerConfig: OptimizerConfig{
		MemmapThreshold:          DefaultMemmapThreshold,
		IndexingThreshold:        DefaultIndexingThreshold,
		PayloadIndexingThreshold: DefaultPayloadIndexingThreshold,
		DefaultSegmentNumber:     DefaultSegmentNumber,
		MaxSegmentNumber:         DefaultMaxSegmentNumber,
		MaxOptimizationThreads:   DefaultMaxOptimizationThreads,
		VacuumMinTombstoneRatio:  DefaultVacuumMinTombstoneRatio,
	},
	WalConfig: WalConfig{
		WalCapacityMB:    DefaultWalCapacityMB,
		WalSegmentsAhead: DefaultWalSegmentsAhead,
		FsyncIntervalMs:  0,
	},
}

// NewDefaultOptions returns a copy of the baseline CollectionConfig.
func NewDefaultOptions() CollectionConfig {
	return defaultConfig
}
