// Package seginfo provides utilities for managing sequential segment files
// in a file-based storage system — originally built for Bitcask-style
// segment rotation, reused here by the WAL (spec.md §4.9: "a sequence of
// segmented files").
//
// Filename Format: prefix_NNNNNNNNNNNNNNNNNNNN_timestamp.ext
//
// Where:
//   - prefix: A configurable string identifying the file type (e.g. "wal").
//   - NNNNNNNNNNNNNNNNNNNN: The sequence number zero-padded to 20 digits,
//     the width of the largest uint64, so every id has the same width.
//   - timestamp: A nanosecond-precision Unix timestamp for uniqueness and traceability.
//   - ext: A caller-supplied extension (".walseg" for WAL segments).
//
// Example filenames:
//
//	wal_00000000000000000001_1678881234567890.walseg
//	wal_00000000000000000042_1678881298765432.walseg
package seginfo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/iamNilotpal/vectorcollection/pkg/filesys"
)

// GetLastSegmentInfo discovers and analyzes the most recent segment file in
// the specified directory.
//
// Returns:
//   - uint64: The sequence ID of the latest segment (1 if no segments exist).
//   - os.FileInfo: File metadata for the latest segment (nil if no segments exist).
//   - error: Detailed error information if any operation fails.
func GetLastSegmentInfo(dataDir, segmentDir, prefix, ext string) (uint64, os.FileInfo, error) {
	if dataDir == "" || segmentDir == "" || prefix == "" {
		return 0, nil, fmt.Errorf("all parameters (dataDir, segmentDir, prefix) must be non-empty")
	}

	lastSegmentPath, err := GetLastSegmentName(dataDir, segmentDir, prefix, ext)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to discover latest segment: %w", err)
	}

	// Bootstrap case: no existing segments found.
	if lastSegmentPath == "" {
		return 1, nil, nil
	}

	segmentID, err := ParseSegmentID(lastSegmentPath, prefix)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse segment ID from %s: %w", lastSegmentPath, err)
	}

	fileInfo, err := GetFileInfo(lastSegmentPath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to retrieve file info for %s: %w", lastSegmentPath, err)
	}

	return segmentID, fileInfo, nil
}

// GetLastSegmentName searches the segment directory and identifies the file
// with the highest sequence ID. This relies on a lexicographic sorting
// strategy that works because segment filenames use zero-padded IDs and
// monotonically increasing timestamps.
//
// Returns:
//   - string: Full path to the segment file with the highest ID (empty if none found).
//   - error: Detailed error if directory reading fails.
func GetLastSegmentName(dataDir, segmentDir, prefix, ext string) (string, error) {
	if dataDir == "" || segmentDir == "" || prefix == "" {
		return "", fmt.Errorf("all parameters (dataDir, segmentDir, prefix) must be non-empty")
	}

	searchPattern := filepath.Join(dataDir, segmentDir, prefix+"*"+ext)

	matchingFiles, err := filesys.ReadDir(searchPattern)
	if err != nil {
		return "", fmt.Errorf("failed to read segment directory with pattern %s: %w", searchPattern, err)
	}
	if len(matchingFiles) == 0 {
		return "", nil
	}

	// Zero-padded IDs plus increasing timestamps make lexicographic order
	// equal to numeric order: prefix_ID_timestamp.ext.
	slices.Sort(matchingFiles)
	return matchingFiles[len(matchingFiles)-1], nil
}

// GenerateName creates a properly formatted filename for a new segment file.
func GenerateName(id uint64, prefix, ext string) string {
	if prefix == "" {
		return fmt.Sprintf("INVALID_PREFIX_%020d_%d%s", id, time.Now().UnixNano(), ext)
	}
	timestamp := time.Now().UnixNano()
	// %020d pads every uint64 id to the same width, so lexicographic
	// order matches numeric order.
	return fmt.Sprintf("%s_%020d_%d%s", prefix, id, timestamp, ext)
}

// ParseSegmentID extracts the sequence ID from a segment filename.
func ParseSegmentID(fullPath, prefix string) (uint64, error) {
	_, filename := filepath.Split(fullPath)

	if !strings.HasPrefix(filename, prefix) {
		return 0, fmt.Errorf("filename %s does not start with expected prefix %s", filename, prefix)
	}

	// "wal_00000000000000000001_1678881234567890.walseg" -> "_00000000000000000001_1678881234567890"
	withoutPrefix := strings.TrimPrefix(filename, prefix)
	withoutExtension := strings.Split(withoutPrefix, ".")[0]

	// "_00000000000000000001_1678881234567890" -> ["", "00000000000000000001", "1678881234567890"]
	parts := strings.Split(withoutExtension, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("filename %s has unexpected format, expected prefix_ID_timestamp.ext", filename)
	}

	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment ID %q as integer: %w", parts[1], err)
	}
	return id, nil
}

// GetFileInfo safely retrieves file system metadata for a given path.
func GetFileInfo(filePath string) (os.FileInfo, error) {
	file, err := os.OpenFile(filePath, os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info for %s: %w", filePath, err)
	}
	return stat, nil
}
