package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input. Always
	// recoverable; no partial mutation is applied.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates an illegal status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDocumentImmutable indicates a mutation attempt on a closed document.
	ErrDocumentImmutable = errors.New("document is closed and immutable")
)
