package memory

import "errors"

// ErrNotFound indicates the requested record does not exist in the store.
var ErrNotFound = errors.New("memory: not found")
