package apperr

import "errors"

// Error kinds surfaced to callers of the exchange service.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("not found")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrInternal           = errors.New("internal error")
)

// ErrConflict is returned by storage when a conditional write found the record in an unexpected state.
var ErrConflict = errors.New("conflict")
