package models

import "errors"

// Error taxonomy shared across the moderation engine. Handlers map these to
// HTTP status codes; wrap with %w so callers can errors.Is them.
var (
	// ErrInvalidArgument indicates missing or malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState indicates an operation illegal in the entity's
	// current state, e.g. resolving an already-resolved appeal.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound indicates an unknown appeal or log entry id.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a failed capability check.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrScoringFailure indicates an internal scorer fault. The manager
	// recovers it by failing open; it never surfaces to API callers.
	ErrScoringFailure = errors.New("scoring failure")
)
