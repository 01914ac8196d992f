package memory

import "errors"

// Sentinel errors for fact storage. ErrInvalidKey rejects keys that are
// empty or would leave the store's namespace.
var (
	ErrFactNotFound   = errors.New("fact not found")
	ErrInvalidKey     = errors.New("invalid fact key")
	ErrReadFailed     = errors.New("fact read failed")
	ErrWriteFailed    = errors.New("fact write failed")
	ErrUnknownBackend = errors.New("unknown memory backend")
)
