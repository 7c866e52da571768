package progress

import "errors"

var (
	// ErrNotAdmitted is an error that occurs when the operation queue refused
	// to admit an operation, usually because it is already queued.
	ErrNotAdmitted = errors.New("operation was not admitted to the queue")

	// ErrPrepareFailed is an error that occurs when the worker of an
	// operation could not be prepared, so the dialog aborted.
	ErrPrepareFailed = errors.New("worker could not be prepared")

	// ErrDialogClosed is an error that occurs when a dialog is used after it
	// closed.
	ErrDialogClosed = errors.New("progress dialog is closed")
)
