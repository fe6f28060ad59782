package repository

import "errors"

// ErrNotFound is returned by repository implementations when the
// requested row does not exist. Any other error is a storage fault.
var ErrNotFound = errors.New("not found")
