package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity is absent from the index.
	ErrNotFound = errors.New("not found")
	// ErrDisabled is returned for operations intentionally unsupported in archive mode.
	ErrDisabled = errors.New("operation disabled in archived event")
	// ErrRequestFailed covers network failures, non-JSON responses and
	// HTTP error statuses from the live platform.
	ErrRequestFailed = errors.New("platform request failed")
	// ErrUnauthorized is the soft failure for identity-dependent fetches;
	// callers treat it as "not authenticated" rather than a hard error.
	ErrUnauthorized = errors.New("not authenticated")
)
