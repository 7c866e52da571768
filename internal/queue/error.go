package queue

import "errors"

// ErrCanceled is an error that occurs when a processFunc returned
// [DecisionCancel].
var ErrCanceled = errors.New("processing was canceled")
