// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (expected version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an operation on a record owned by another user.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation")

	// ErrInsufficientXP indicates a spend larger than the spendable balance.
	ErrInsufficientXP = errors.New("insufficient xp")

	// ErrUnknownContainer indicates a container kind missing from the registry.
	ErrUnknownContainer = errors.New("unknown container type")

	// ErrRateLimited indicates too many failed sign-in attempts.
	ErrRateLimited = errors.New("rate limited")

	// ErrPersistFailed indicates a stats write that failed after all retries.
	ErrPersistFailed = errors.New("persist failed")
)
