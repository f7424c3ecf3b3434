package errors

// NotFoundError is a specialized error type for missing external point ids.
// It maps to spec.md's NotFound error kind: the id simply isn't present in
// any segment's id mapper.
type NotFoundError struct {
	*baseError
	pointID uint64
}

// NewNotFoundError creates a new not-found error for the given point id.
func NewNotFoundError(pointID uint64) *NotFoundError {
	return &NotFoundError{
		baseError: NewBaseError(nil, ErrorCodePointNotFound, "point not found"),
		pointID:   pointID,
	}
}

// WithMessage updates the error message while preserving the NotFoundError type.
func (nf *NotFoundError) WithMessage(msg string) *NotFoundError {
	nf.baseError.WithMessage(msg)
	return nf
}

// WithDetail adds contextual information while preserving the NotFoundError type.
func (nf *NotFoundError) WithDetail(key string, value any) *NotFoundError {
	nf.baseError.WithDetail(key, value)
	return nf
}

// PointID returns the external point id that could not be located.
func (nf *NotFoundError) PointID() uint64 { return nf.pointID }
