// Package progress implements the progress dialogs coordinating the workers
// of the copy and move operations with the user and the operation queue.
//
// Every [Dialog] runs its own goroutine, owning all of its display state. The
// worker publishes its progress into a latest-sample register that the
// dialog drains on a fixed repaint period, and relays its decision requests
// through a channel that only the dialog goroutine serves. The dialog turns
// the user's commands (pause, resume, wait in queue, cancel) into the
// signals of a [Gate] and into the bookkeeping of the operation queue.
//
// Displaying is delegated to a [Renderer], which is the terminal user
// interface or the headless [LogRenderer].
package progress

import (
	"context"
	"time"

	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/schema"
)

const (
	defaultRepaintPeriod = 100 * time.Millisecond
	defaultStatusPeriod  = time.Second
	commandBuffer        = 16
)

// DialogState is the state of a [Dialog].
type DialogState int

const (
	StateStarting DialogState = iota
	StateRunning
	StatePaused
	StateAutoPaused
	StateCancelRequested
	StateEnding
)

// String returns the string representation of a [DialogState].
func (s DialogState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateAutoPaused:
		return "auto-paused"
	case StateCancelRequested:
		return "cancel-requested"
	case StateEnding:
		return "ending"
	default:
		return "unknown"
	}
}

// Result is the way a [Dialog] closed.
type Result int

const (
	// ResultNone is the result of a dialog that did not close yet.
	ResultNone Result = iota

	// ResultOK is the result of an operation that completed.
	ResultOK

	// ResultCanceled is the result of an operation that was canceled.
	ResultCanceled

	// ResultFailed is the result of an operation whose worker failed.
	ResultFailed

	// ResultAbort is the result of an operation that never started.
	ResultAbort
)

// String returns the string representation of a [Result].
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCanceled:
		return "canceled"
	case ResultFailed:
		return "failed"
	case ResultAbort:
		return "abort"
	default:
		return "none"
	}
}

// View is a snapshot of everything a [Renderer] shows for a [Dialog].
type View struct {
	ID            schema.DialogID
	Caption       string
	Title         string
	State         DialogState
	Operation     string
	Source        string
	Preposition   string
	Target        string
	FilePermille  int
	TotalPermille int
	Status        string
	StatusVisible bool
	PauseLabel    string
	Minimized     bool
	SpeedLimit    bool
	CanAutoPause  bool
}

// Renderer displays progress dialogs. All methods are called from the
// goroutine of the respective dialog; the methods asking the user block until
// an answer was given or the context is done.
type Renderer interface {
	// Opened is called once the dialog was created.
	Opened(view View)

	// Update is called with the latest view at most once per repaint period.
	Update(view View)

	// Ask shows a decision prompt and returns the chosen answer.
	Ask(ctx context.Context, id schema.DialogID, req schema.DecisionRequest) (schema.Answer, error)

	// ConfirmCancel asks whether the operation should really be canceled.
	ConfirmCancel(ctx context.Context, id schema.DialogID) (bool, error)

	// Activate brings the dialog to the foreground.
	Activate(id schema.DialogID)

	// CloseOwnedPrompts closes any prompt still shown for the dialog.
	CloseOwnedPrompts(id schema.DialogID)

	// Closed is called once the dialog closed.
	Closed(id schema.DialogID, result Result)
}

// Runner executes the script of an operation. It is called on a goroutine of
// its own and must call [schema.WorkerEnv.Done] before releasing the
// operation and returning.
type Runner interface {
	Run(ctx context.Context, op *operation.Operation, env schema.WorkerEnv) error
}

// Preparer is implemented by a [Runner] that needs to check an operation
// before its dialog starts it. A failure aborts the dialog.
type Preparer interface {
	Prepare(ctx context.Context, op *operation.Operation) error
}

// Options configure the progress dialogs.
type Options struct {
	// RepaintPeriod is the period in which published progress is flushed to
	// the renderer.
	RepaintPeriod time.Duration

	// StatusPeriod is the period in which the status line is refreshed.
	StatusPeriod time.Duration

	// ConfirmCancel describes if a user cancel needs to be confirmed.
	ConfirmCancel bool

	// SpeedLimit is the speed limit in bytes per second toggled by the
	// speed limit command; zero disables it.
	SpeedLimit uint64
}

func (o Options) withDefaults() Options {
	if o.RepaintPeriod <= 0 {
		o.RepaintPeriod = defaultRepaintPeriod
	}
	if o.StatusPeriod <= 0 {
		o.StatusPeriod = defaultStatusPeriod
	}

	return o
}
