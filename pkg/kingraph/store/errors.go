package store

import "errors"

// Error taxonomy surfaced to callers. The engine wraps these with operation
// context but never swallows them; handlers map them to HTTP statuses with
// errors.Is.
var (
	// ErrNotFound means the operation targeted an id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation means a uniqueness constraint was violated
	// (contact email/phone, or a duplicate canonical edge pair attempted
	// outside the idempotent path).
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrInvalidOperation means the request itself is invalid, such as a
	// self-edge or a malformed id.
	ErrInvalidOperation = errors.New("invalid operation")
)
