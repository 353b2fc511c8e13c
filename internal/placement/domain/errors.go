package domain

import "errors"

var (
	ErrNotFound       = errors.New("placement not found")
	ErrAlreadyExists  = errors.New("placement already exists")
	ErrInvalidID      = errors.New("placement id must be positive")
	ErrTransport      = errors.New("remote store unreachable")
	ErrInvalidContent = errors.New("content failed to decode")
	ErrValidation     = errors.New("invalid placement data")

	// ErrPullSuppressed is the not-really-an-error case: an authoritative
	// pull was skipped because a local edit is still unpushed.
	ErrPullSuppressed = errors.New("pull suppressed while placement is dirty")
)
