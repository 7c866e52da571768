// Package schema provides the principal schematics shared by all other
// packages. It defines the identifiers, states and contracts that connect the
// worker performing the file I/O with the progress dialog observing it, and the
// progress dialogs with the operation queue ordering them. The package serves
// as a foundational layer so that none of the other packages need to import
// each other just to exchange these types.
package schema

import (
	"github.com/google/uuid"
)

// DialogID identifies one progress dialog (and with it one operation) for
// its whole lifetime. It is the handle the operation queue keys its entries
// with.
type DialogID string

// NewDialogID returns a new random [DialogID].
func NewDialogID() DialogID {
	return DialogID(uuid.NewString())
}

// String returns the string representation of the [DialogID].
func (id DialogID) String() string {
	return string(id)
}

// Short returns an abbreviated form of the [DialogID] for display purposes.
func (id DialogID) Short() string {
	const shortLen = 8

	if len(id) <= shortLen {
		return string(id)
	}

	return string(id[:shortLen])
}

// PauseState is the queue-level state of an operation.
type PauseState int

const (
	// StateRunning is an operation allowed to proceed. Only running entries
	// count towards the concurrency cap of the operation queue.
	StateRunning PauseState = iota

	// StateAutoPaused is an operation held back by the operation queue until
	// a running slot frees up.
	StateAutoPaused

	// StateManuallyPaused is an operation paused by the user.
	StateManuallyPaused
)

// String returns the string representation of a [PauseState].
func (s PauseState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAutoPaused:
		return "auto-paused"
	case StateManuallyPaused:
		return "manually-paused"
	default:
		return "unknown"
	}
}
