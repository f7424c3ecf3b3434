// Package errors implements the typed error hierarchy used throughout the
// collection: a baseError that carries a code, a cause, and structured
// details, plus domain-specific error types (ValidationError, NotFoundError,
// SegmentError) that add context relevant to the layer that raised them.
//
// Error codes map onto the four kinds from the collection's error taxonomy:
// BadInput and BadRequest both surface as *ValidationError (distinguished by
// Rule()), NotFound surfaces as *NotFoundError, and ServiceError surfaces as
// *SegmentError. Callers that need to know which kind they're looking at
// should use the Is*/As* helpers below rather than type-switching directly,
// since the concrete type may be wrapped further up the call stack.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsNotFoundError reports whether err is, or wraps, a *NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return stdErrors.As(err, &nf)
}

// IsSegmentError reports whether err is, or wraps, a *SegmentError.
func IsSegmentError(err error) bool {
	var se *SegmentError
	return stdErrors.As(err, &se)
}

// AsValidationError extracts a *ValidationError from err's chain, if present.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsNotFoundError extracts a *NotFoundError from err's chain, if present.
func AsNotFoundError(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if stdErrors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

// AsSegmentError extracts a *SegmentError from err's chain, if present.
func AsSegmentError(err error) (*SegmentError, bool) {
	var se *SegmentError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error that supports it, or
// returns ErrorCodeInternal for errors that don't have a specific code.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	if nf, ok := AsNotFoundError(err); ok {
		return nf.Code()
	}
	if se, ok := AsSegmentError(err); ok {
		return se.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts structured details from any error that supports
// them, returning an empty map for errors without details.
func GetErrorDetails(err error) map[string]any {
	if ve, ok := AsValidationError(err); ok {
		if details := ve.Details(); details != nil {
			return details
		}
	}
	if nf, ok := AsNotFoundError(err); ok {
		if details := nf.Details(); details != nil {
			return details
		}
	}
	if se, ok := AsSegmentError(err); ok {
		if details := se.Details(); details != nil {
			return details
		}
	}
	return make(map[string]any)
}

// ClassifyDirectoryCreationError analyzes directory creation failures and
// returns a SegmentError with an appropriate code based on the underlying
// system error.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewSegmentError(
			err, ErrorCodePermissionDenied, "insufficient permissions to create segment directory",
		).WithPath(path).WithOperation("mkdir")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewSegmentError(
					err, ErrorCodeDiskFull, "insufficient disk space to create segment directory",
				).WithPath(path).WithOperation("mkdir")
			case syscall.EROFS:
				return NewSegmentError(
					err, ErrorCodeFilesystemReadonly, "cannot create directory on read-only filesystem",
				).WithPath(path).WithOperation("mkdir")
			}
		}
	}

	return NewSegmentError(err, ErrorCodeIO, "failed to create segment directory").
		WithPath(path).WithOperation("mkdir")
}

// ClassifyFileOpenError analyzes file opening failures and returns a
// SegmentError with an appropriate code based on the underlying system
// error.
func ClassifyFileOpenError(err error, filePath, fileName string) error {
	if os.IsPermission(err) {
		return NewSegmentError(
			err, ErrorCodePermissionDenied, "insufficient permissions to open segment file",
		).WithPath(filePath).WithFileName(fileName).WithOperation("open")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewSegmentError(
					err, ErrorCodeDiskFull, "insufficient disk space to create segment file",
				).WithPath(filePath).WithFileName(fileName).WithOperation("open")
			case syscall.EROFS:
				return NewSegmentError(
					err, ErrorCodeFilesystemReadonly, "cannot create file on read-only filesystem",
				).WithPath(filePath).WithFileName(fileName).WithOperation("open")
			}
		}
	}

	return NewSegmentError(err, ErrorCodeIO, "failed to open segment file").
		WithPath(filePath).WithFileName(fileName).WithOperation("open")
}

// ClassifySyncError analyzes fsync failures and returns a SegmentError with
// an appropriate code based on the underlying system error.
func ClassifySyncError(err error, fileName, filePath string, offset int64) error {
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewSegmentError(
					err, ErrorCodeDiskFull, "cannot sync file: insufficient disk space",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).WithOperation("sync")
			case syscall.EROFS:
				return NewSegmentError(
					err, ErrorCodeFilesystemReadonly, "cannot sync file: filesystem is read-only",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).WithOperation("sync")
			case syscall.EIO:
				return NewSegmentError(
					err, ErrorCodeIO, "i/o error during file sync, possible hardware or corruption issue",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).WithOperation("sync")
			}
		}
	}

	return NewSegmentError(err, ErrorCodeIO, "failed to sync segment file to disk").
		WithFileName(fileName).WithPath(filePath).WithOffset(offset).WithOperation("sync")
}
