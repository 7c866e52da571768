package schema

import "errors"

// ErrCanceled is an error that occurs when a worker observes that its
// operation was canceled at a checkpoint.
var ErrCanceled = errors.New("operation was canceled")
