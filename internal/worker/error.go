package worker

import "errors"

var (
	// ErrNothingToDo is returned when an operation has no items to process.
	ErrNothingToDo = errors.New("operation has no items")

	// ErrNotEnoughSpace is returned when the target lacks the free space an
	// operation needs.
	ErrNotEnoughSpace = errors.New("not enough free space on target")

	// ErrHashMismatch is returned when a copied file's hash does not match
	// the source file's hash.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrTargetIsDir is returned when a file would overwrite a directory.
	ErrTargetIsDir = errors.New("target is a directory")

	errSkipped = errors.New("item skipped")
	errRetry   = errors.New("item retried")
)
