package collection

import (
	"os"
	"path/filepath"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/pkg/options"
)

// HealthStatus is the Green|Yellow|Red tricolor spec.md §6's Status
// envelope names.
type HealthStatus string

const (
	Green  HealthStatus = "Green"
	Yellow HealthStatus = "Yellow"
	Red    HealthStatus = "Red"
)

// CollectionStatus is spec.md §6's status envelope: {status,
// vectors_count, segments_count, disk_data_size, ram_data_size, config}.
type CollectionStatus struct {
	Status        HealthStatus
	VectorsCount  int
	SegmentsCount int
	DiskDataSize  int64
	RamDataSize   int64
	Config        options.CollectionConfig
}

// Status reports the collection's current health and size, per spec.md
// §6: "Yellow is reported while any optimizer is running; Red is
// reported if any segment failed to load."
func (c *Collection) Status() CollectionStatus {
	c.statusMu.Lock()
	red := c.loadFailures > 0 || len(c.redSegments) > 0
	c.statusMu.Unlock()

	health := Green
	switch {
	case red:
		health = Red
	case c.optimizing.Load():
		health = Yellow
	}

	var vectorsCount int
	var ramSize int64
	c.holder.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
		t := seg.Telemetry()
		vectorsCount += t.NumPoints
		if seg.Config().Storage == segment.StorageInMemory {
			ramSize += int64(t.NumPoints) * int64(seg.Config().VectorSize) * 4
		}
	})

	return CollectionStatus{
		Status:        health,
		VectorsCount:  vectorsCount,
		SegmentsCount: c.holder.Len(),
		DiskDataSize:  dirSize(c.cfg.DataDir),
		RamDataSize:   ramSize,
		Config:        c.cfg,
	}
}

// dirSize sums the apparent size of every regular file under dir —
// best-effort disk accounting for the status envelope, not a durability
// primitive, so a plain filepath.Walk (rather than pkg/filesys, which
// targets write/copy/atomic-replace operations) is the right tool here.
func dirSize(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
