package errors

// SegmentError is a specialized error type for failures originating inside a
// segment's sub-stores: id mapper, vector storage, payload storage, payload
// index, or vector index I/O. It generalizes the teacher's StorageError and
// IndexError into a single type since, in the collection layer, both kinds of
// failure have the same blast radius: the owning segment's status turns Red
// and the collection keeps serving its other segments (spec.md §7).
type SegmentError struct {
	*baseError

	segmentID string // uuid of the segment directory, empty if not yet assigned
	offset    int64  // byte offset within the file where the failure happened, -1 if n/a
	fileName  string
	path      string
	operation string // e.g. "Append", "Read", "Flush", "Build"
	pointID   uint64
	hasPoint  bool
}

// NewSegmentError creates a new segment-specific error.
func NewSegmentError(err error, code ErrorCode, msg string) *SegmentError {
	return &SegmentError{baseError: NewBaseError(err, code, msg), offset: -1}
}

// WithMessage updates the error message while preserving the SegmentError type.
func (se *SegmentError) WithMessage(msg string) *SegmentError {
	se.baseError.WithMessage(msg)
	return se
}

// WithCode sets the error code while preserving the SegmentError type.
func (se *SegmentError) WithCode(code ErrorCode) *SegmentError {
	se.baseError.WithCode(code)
	return se
}

// WithDetail adds contextual information while preserving the SegmentError type.
func (se *SegmentError) WithDetail(key string, value any) *SegmentError {
	se.baseError.WithDetail(key, value)
	return se
}

// WithSegmentID records which segment directory was involved.
func (se *SegmentError) WithSegmentID(id string) *SegmentError {
	se.segmentID = id
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *SegmentError) WithOffset(offset int64) *SegmentError {
	se.offset = offset
	return se
}

// WithFileName captures which file was being processed.
func (se *SegmentError) WithFileName(fileName string) *SegmentError {
	se.fileName = fileName
	return se
}

// WithPath captures which path was being processed.
func (se *SegmentError) WithPath(path string) *SegmentError {
	se.path = path
	return se
}

// WithOperation records what operation was being attempted ("Append", "Flush", ...).
func (se *SegmentError) WithOperation(operation string) *SegmentError {
	se.operation = operation
	return se
}

// WithPointID records which external point id the failing operation targeted.
func (se *SegmentError) WithPointID(id uint64) *SegmentError {
	se.pointID = id
	se.hasPoint = true
	return se
}

// SegmentID returns the segment directory identifier where the error occurred.
func (se *SegmentError) SegmentID() string { return se.segmentID }

// Offset returns the byte offset within the file where the error happened, or
// -1 if not applicable.
func (se *SegmentError) Offset() int64 { return se.offset }

// FileName returns the name of the file that was being processed.
func (se *SegmentError) FileName() string { return se.fileName }

// Path returns the path of the file that was being processed.
func (se *SegmentError) Path() string { return se.path }

// Operation returns the name of the operation that was being performed.
func (se *SegmentError) Operation() string { return se.operation }

// PointID returns the external point id involved and whether one was recorded.
func (se *SegmentError) PointID() (uint64, bool) { return se.pointID, se.hasPoint }
