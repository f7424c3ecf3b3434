package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary: segment files, WAL segments, mmap regions.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints. Maps to
	// spec.md's BadInput kind.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Vector-collection specific error codes extend the base taxonomy with the
// failure modes described in spec.md §7.
const (
	// ErrorCodeDimensionMismatch indicates a vector's dimension does not
	// match the segment's configured vector_size.
	ErrorCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"

	// ErrorCodeUnsupportedDistance indicates a distance metric outside
	// {Cosine, Euclid, Dot}.
	ErrorCodeUnsupportedDistance ErrorCode = "UNSUPPORTED_DISTANCE"

	// ErrorCodeMalformedPayload indicates a payload value that cannot be
	// decoded into the PayloadValue tagged union.
	ErrorCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"

	// ErrorCodePointNotFound indicates an external point id absent from the
	// collection. Maps to spec.md's NotFound kind.
	ErrorCodePointNotFound ErrorCode = "POINT_NOT_FOUND"

	// ErrorCodeEmptyRecommendPositives indicates a Recommend request with no
	// positive ids. Maps to spec.md's BadRequest kind.
	ErrorCodeEmptyRecommendPositives ErrorCode = "EMPTY_RECOMMEND_POSITIVES"

	// ErrorCodeZeroTopK indicates a search/recommend request with top = 0.
	ErrorCodeZeroTopK ErrorCode = "ZERO_TOP_K"

	// ErrorCodeSegmentNotAppendable indicates a mutating operation was
	// routed to a segment that isn't Plain+InMemory.
	ErrorCodeSegmentNotAppendable ErrorCode = "SEGMENT_NOT_APPENDABLE"

	// ErrorCodeSegmentClosed indicates an operation against a closed segment.
	ErrorCodeSegmentClosed ErrorCode = "SEGMENT_CLOSED"

	// ErrorCodeSegmentCorrupted indicates that a segment's on-disk state has
	// been damaged or is in an inconsistent state.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeWalIO indicates a WAL append, fsync, or truncate failure.
	ErrorCodeWalIO ErrorCode = "WAL_IO"

	// ErrorCodeOptimizerFailed indicates a build-phase failure in an
	// optimizer; the originals remain untouched.
	ErrorCodeOptimizerFailed ErrorCode = "OPTIMIZER_FAILED"

	// ErrorCodeMmapFailed indicates a failure mapping or unmapping a
	// memory-mapped vector storage file.
	ErrorCodeMmapFailed ErrorCode = "MMAP_FAILED"

	// ErrorCodePermissionDenied indicates insufficient permissions to access
	// a resource. Distinct from a generic IO error because it has a
	// specific resolution path.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of
	// space.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted
	// read-only.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)
