package schema

import "context"

// Sample is one progress report published by a worker. Text fields are only
// applied when HasTexts is set, so that a worker can report bare percentages
// from its copy loop without repeating the paths.
type Sample struct {
	// HasTexts describes if the text fields carry new values.
	HasTexts bool

	// Operation is the verb shown above the source ("Copying", "Moving").
	Operation string

	// Source is the path currently being read.
	Source string

	// Preposition is the word between source and target ("to").
	Preposition string

	// Target is the path currently being written.
	Target string

	// FilePermille is the progress of the current file (0-1000).
	FilePermille int

	// TotalPermille is the progress of the whole operation (0-1000).
	TotalPermille int
}

// ProgressSink is what a worker needs from its progress dialog. Both methods
// are safe to call from the worker goroutine.
type ProgressSink interface {
	// SetProgress publishes a [Sample]. It never blocks; intermediate
	// samples may be dropped.
	SetProgress(sample Sample)

	// RequestDecision blocks until the user (or a policy) answered the
	// request, or the context is done.
	RequestDecision(ctx context.Context, req DecisionRequest) (Answer, error)
}

// WorkerEnv is the environment a progress dialog provides to the worker
// executing its operation.
type WorkerEnv interface {
	ProgressSink

	// Checkpoint blocks while the operation is paused. It returns an error
	// wrapping [ErrCanceled] once the operation was canceled, also when it
	// was canceled while paused.
	Checkpoint(ctx context.Context) error

	// Done reports the completion of the worker and blocks until the dialog
	// gave up its reference to the operation, so that the worker may release
	// it.
	Done(ctx context.Context)
}

// ChangeNotifier receives notifications about paths changed by a finished
// operation, so that panels showing them can be refreshed.
type ChangeNotifier interface {
	PostChangeOnPathNotification(path string, includingSubdirs bool)
}
