package shared

import "errors"

// Sentinel errors shared across modules. Services wrap these with %w and a
// human-readable reason so callers can classify failures without losing the
// detail (which product, which deadline, which missing quantity).
var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the record is not in a status that allows the
	// requested transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrBusinessRule indicates a domain rule rejection (deadline passed,
	// delivery day not allowed, below minimum order, insufficient stock).
	ErrBusinessRule = errors.New("business rule violation")
	// ErrConflict indicates a lost race (row lock, unique number collision).
	// Services retry these a bounded number of times before surfacing.
	ErrConflict = errors.New("concurrency conflict")
)
