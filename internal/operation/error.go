package operation

import "errors"

var (
	// ErrNoSources is an error that occurs when an operation is planned
	// without any source paths.
	ErrNoSources = errors.New("no source paths given")

	// ErrTargetNotDir is an error that occurs when the target of an operation
	// exists but is not a directory.
	ErrTargetNotDir = errors.New("target is not a directory")

	// ErrTargetInsideSource is an error that occurs when the target directory
	// is the source directory or located inside of it.
	ErrTargetInsideSource = errors.New("target is inside of source")

	// ErrReleased is an error that occurs when an operation is used after its
	// worker has released it.
	ErrReleased = errors.New("operation was released")
)

// ErrUnsupportedType is an error that occurs when a source is neither a
// regular file nor a directory.
var ErrUnsupportedType = errors.New("unsupported file type")
