package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownDimension = errors.New("unknown dimension")
)

// Upstream API outcomes the ingestor records as misses instead of failing.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
