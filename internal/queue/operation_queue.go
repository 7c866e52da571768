package queue

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/desertwitch/gocopy/internal/schema"
)

type queueEntry struct {
	id    schema.DialogID
	state schema.PauseState
}

// OperationQueue is the process-wide queue of copy and move operations. It
// enforces that at most capacity entries are running at any time; all other
// entries are auto-paused (or manually paused by the user). Auto-paused
// entries are promoted to running in the order they were admitted.
//
// An OperationQueue is safe for concurrent use.
type OperationQueue struct {
	sync.Mutex
	capacity int
	entries  []queueEntry
}

// NewOperationQueue returns a pointer to a new [OperationQueue] with the
// given concurrency cap. A capacity below one is treated as one.
func NewOperationQueue(capacity int) *OperationQueue {
	return &OperationQueue{
		capacity: max(1, capacity),
		entries:  []queueEntry{},
	}
}

// Capacity returns the concurrency cap of the [OperationQueue].
func (q *OperationQueue) Capacity() int {
	return q.capacity
}

// AddOperation admits the operation of the given dialog. It is admitted
// running when a running slot is free and nobody is already waiting for one;
// with startOnIdle, only if the queue holds no other entry at all. Otherwise
// it is admitted auto-paused at the tail of the queue. A dialog that is
// already present is not admitted again.
func (q *OperationQueue) AddOperation(id schema.DialogID, startOnIdle bool) (admitted bool, startedPaused bool) {
	q.Lock()
	defer q.Unlock()

	if q.indexOf(id) >= 0 {
		slog.Warn("Refused queue admission: dialog already queued", "dialog", id.Short())

		return false, false
	}

	startedPaused = q.runningCount() >= q.capacity || q.waitingCount() > 0
	if startOnIdle && len(q.entries) > 0 {
		startedPaused = true
	}

	state := schema.StateRunning
	if startedPaused {
		state = schema.StateAutoPaused
	}

	q.entries = append(q.entries, queueEntry{id: id, state: state})

	slog.Debug("Admitted operation to queue",
		"dialog", id.Short(),
		"state", state,
		"operations", len(q.entries),
	)

	return true, startedPaused
}

// OperationEnded removes the operation of the given dialog. Unless
// doNotResume is set, the oldest auto-paused entries are promoted into free
// running slots and the first promoted dialog is returned, so that the caller
// can activate and resume it. Unknown dialogs are tolerated as a no-op.
func (q *OperationQueue) OperationEnded(id schema.DialogID, doNotResume bool) (schema.DialogID, bool) {
	q.Lock()
	defer q.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return "", false
	}

	q.entries = slices.Delete(q.entries, idx, idx+1)

	slog.Debug("Removed operation from queue",
		"dialog", id.Short(),
		"operations", len(q.entries),
	)

	if doNotResume {
		return "", false
	}

	promoted := q.promote()
	if len(promoted) == 0 {
		return "", false
	}

	return promoted[0], true
}

// AutoPauseOperation moves the operation of the given dialog to the tail of
// the queue and marks it auto-paused, then promotes waiting entries into the
// freed slot. The operation itself is promoted again when nothing else is
// waiting; the returned dialog then is its own.
func (q *OperationQueue) AutoPauseOperation(id schema.DialogID) (schema.DialogID, bool) {
	q.Lock()
	defer q.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return "", false
	}

	q.entries = slices.Delete(q.entries, idx, idx+1)
	q.entries = append(q.entries, queueEntry{id: id, state: schema.StateAutoPaused})

	promoted := q.promote()
	if len(promoted) == 0 {
		return "", false
	}

	return promoted[0], true
}

// SetPaused records the state of the operation of the given dialog. A
// transition to running is only granted while a running slot is free;
// otherwise the entry becomes auto-paused and false is returned.
func (q *OperationQueue) SetPaused(id schema.DialogID, state schema.PauseState) bool {
	q.Lock()
	defer q.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return false
	}

	if state == schema.StateRunning && q.entries[idx].state != schema.StateRunning {
		if q.runningCount() >= q.capacity {
			q.entries[idx].state = schema.StateAutoPaused

			return false
		}
	}

	q.entries[idx].state = state

	return true
}

// State returns the state of the operation of the given dialog.
func (q *OperationQueue) State(id schema.DialogID) (schema.PauseState, bool) {
	q.Lock()
	defer q.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return schema.StateRunning, false
	}

	return q.entries[idx].state, true
}

// GetNumOfOperations returns the number of operations in the queue.
func (q *OperationQueue) GetNumOfOperations() int {
	q.Lock()
	defer q.Unlock()

	return len(q.entries)
}

// IsEmpty returns whether the queue holds no operations.
func (q *OperationQueue) IsEmpty() bool {
	return q.GetNumOfOperations() == 0
}

// RunningCount returns the number of running operations.
func (q *OperationQueue) RunningCount() int {
	q.Lock()
	defer q.Unlock()

	return q.runningCount()
}

// RemoveFinishedDlgs removes all entries for which isFinished reports that
// their dialog is gone without having ended its operation. Waiting entries
// are promoted into the freed slots and their dialogs are returned.
func (q *OperationQueue) RemoveFinishedDlgs(isFinished func(id schema.DialogID) bool) []schema.DialogID {
	q.Lock()
	defer q.Unlock()

	removed := 0
	q.entries = slices.DeleteFunc(q.entries, func(e queueEntry) bool {
		if isFinished(e.id) {
			slog.Warn("Removed stale operation from queue", "dialog", e.id.Short())
			removed++

			return true
		}

		return false
	})

	if removed == 0 {
		return nil
	}

	return q.promote()
}

// promote must be called with the lock held.
func (q *OperationQueue) promote() []schema.DialogID {
	promoted := []schema.DialogID{}

	for i := range q.entries {
		if q.runningCount() >= q.capacity {
			break
		}

		if q.entries[i].state == schema.StateAutoPaused {
			q.entries[i].state = schema.StateRunning
			promoted = append(promoted, q.entries[i].id)

			slog.Debug("Promoted operation in queue", "dialog", q.entries[i].id.Short())
		}
	}

	return promoted
}

func (q *OperationQueue) indexOf(id schema.DialogID) int {
	return slices.IndexFunc(q.entries, func(e queueEntry) bool {
		return e.id == id
	})
}

func (q *OperationQueue) runningCount() int {
	n := 0

	for _, e := range q.entries {
		if e.state == schema.StateRunning {
			n++
		}
	}

	return n
}

func (q *OperationQueue) waitingCount() int {
	n := 0

	for _, e := range q.entries {
		if e.state == schema.StateAutoPaused {
			n++
		}
	}

	return n
}
