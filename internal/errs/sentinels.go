// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., login taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDecryptFailed indicates a field token that is malformed, truncated,
	// or encrypted under a different key. Recoverable: callers treat the
	// field as absent.
	ErrDecryptFailed = errors.New("decrypt failed")

	// ErrCorruptDocument indicates the persisted document exists but cannot
	// be parsed. Fatal for the session; must reach the operator.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrPersistence indicates an I/O failure while rewriting the document.
	// The in-memory changes for that operation are lost.
	ErrPersistence = errors.New("persistence failure")

	// ErrNoEligibleRecords indicates an export with zero students surviving
	// the identifier filter.
	ErrNoEligibleRecords = errors.New("no eligible records")

	// ErrModuleMissing indicates the native grade module executable could
	// not be located.
	ErrModuleMissing = errors.New("native module missing")

	// ErrModuleFailed indicates the native grade module ran but reported a
	// non-zero exit status (or exceeded its deadline).
	ErrModuleFailed = errors.New("native module failed")
)
