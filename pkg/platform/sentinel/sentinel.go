package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and the input
// reader return these (optionally wrapped) so callers can branch with errors.Is.
//
//   - ErrNotFound: key or run does not exist in a cache or store
//   - ErrUnavailable: a backing service could not be reached
//   - ErrInvalidInput: the input dataset cannot be used at all
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidInput = errors.New("invalid input")
)
