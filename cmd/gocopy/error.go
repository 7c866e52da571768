package main

import "errors"

var (
	// ErrOperationsFailed is returned when not all operations completed.
	ErrOperationsFailed = errors.New("not all operations completed")

	// ErrBatchSyntax is returned for a malformed line of a batch file.
	ErrBatchSyntax = errors.New("malformed batch line")
)
