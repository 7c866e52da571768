package queue

import (
	"sync"
	"testing"

	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, q *OperationQueue, id schema.DialogID, startOnIdle bool) bool {
	t.Helper()

	admitted, startedPaused := q.AddOperation(id, startOnIdle)
	require.True(t, admitted)

	return startedPaused
}

// TestNewOperationQueue_Success tests the queue factory function.
func TestNewOperationQueue_Success(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(0)

	assert.Equal(t, 1, q.Capacity(), "Capacity below one should be clamped")
	assert.True(t, q.IsEmpty())
	assert.Zero(t, q.GetNumOfOperations())
}

// TestOperationQueueAdd_Cap tests that only the first operation runs with a
// concurrency cap of one.
func TestOperationQueueAdd_Cap(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)

	assert.False(t, mustAdd(t, q, "a", false))
	assert.True(t, mustAdd(t, q, "b", false))
	assert.True(t, mustAdd(t, q, "c", false))

	assert.Equal(t, 1, q.RunningCount())
	assert.Equal(t, 3, q.GetNumOfOperations())
}

// TestOperationQueueAdd_CapTwo tests a concurrency cap of two.
func TestOperationQueueAdd_CapTwo(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(2)

	assert.False(t, mustAdd(t, q, "a", false))
	assert.False(t, mustAdd(t, q, "b", false))
	assert.True(t, mustAdd(t, q, "c", false))

	activated, ok := q.OperationEnded("a", false)
	require.True(t, ok)
	assert.Equal(t, schema.DialogID("c"), activated)
	assert.Equal(t, 2, q.RunningCount())
}

// TestOperationQueueAdd_Fail_Duplicate tests that a dialog is not admitted
// twice.
func TestOperationQueueAdd_Fail_Duplicate(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)
	mustAdd(t, q, "a", false)

	admitted, _ := q.AddOperation("a", false)
	assert.False(t, admitted)
	assert.Equal(t, 1, q.GetNumOfOperations())
}

// TestOperationQueueAdd_StartOnIdle tests that operations starting on idle
// wait whenever any other operation exists.
func TestOperationQueueAdd_StartOnIdle(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(2)

	assert.False(t, mustAdd(t, q, "a", true), "Idle queue should start the operation")
	assert.True(t, mustAdd(t, q, "b", true), "Busy queue should hold the operation back")
	assert.True(t, mustAdd(t, q, "c", false), "Nobody should overtake a waiting operation")
}

// TestOperationQueue_FIFO tests that waiting operations are promoted in the
// order of their admission.
func TestOperationQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)

	ids := []schema.DialogID{"first", "second", "third", "fourth", "fifth"}
	for _, id := range ids {
		mustAdd(t, q, id, false)
	}

	current := ids[0]
	for _, want := range ids[1:] {
		activated, ok := q.OperationEnded(current, false)
		require.True(t, ok)
		assert.Equal(t, want, activated)

		state, found := q.State(want)
		require.True(t, found)
		assert.Equal(t, schema.StateRunning, state)
		assert.LessOrEqual(t, q.RunningCount(), 1)

		current = want
	}
}

// TestOperationQueue_EndToEnd tests the A, B, C scenario with a concurrency
// cap of one.
func TestOperationQueue_EndToEnd(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)

	assert.False(t, mustAdd(t, q, "A", false))
	assert.True(t, mustAdd(t, q, "B", false))
	assert.True(t, mustAdd(t, q, "C", false))

	activated, ok := q.OperationEnded("A", false)
	require.True(t, ok)
	assert.Equal(t, schema.DialogID("B"), activated)

	state, _ := q.State("C")
	assert.Equal(t, schema.StateAutoPaused, state)

	activated, ok = q.OperationEnded("B", false)
	require.True(t, ok)
	assert.Equal(t, schema.DialogID("C"), activated)

	activated, ok = q.OperationEnded("C", false)
	assert.False(t, ok)
	assert.Empty(t, activated)
	assert.True(t, q.IsEmpty())
}

// TestOperationQueueEnded_Idempotent tests that ending an operation twice is
// a no-op the second time.
func TestOperationQueueEnded_Idempotent(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)
	mustAdd(t, q, "a", false)
	mustAdd(t, q, "b", false)
	mustAdd(t, q, "c", false)

	activated, ok := q.OperationEnded("a", false)
	require.True(t, ok)
	assert.Equal(t, schema.DialogID("b"), activated)

	activated, ok = q.OperationEnded("a", false)
	assert.False(t, ok)
	assert.Empty(t, activated)

	state, _ := q.State("c")
	assert.Equal(t, schema.StateAutoPaused, state, "A second end should not promote again")
	assert.Equal(t, 1, q.RunningCount())

	_, ok = q.OperationEnded("unknown", false)
	assert.False(t, ok)
}

// TestOperationQueueEnded_DoNotResume tests that an ending without resume
// leaves waiting operations alone.
func TestOperationQueueEnded_DoNotResume(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)
	mustAdd(t, q, "a", false)
	mustAdd(t, q, "b", false)

	_, ok := q.OperationEnded("a", true)
	assert.False(t, ok)

	state, _ := q.State("b")
	assert.Equal(t, schema.StateAutoPaused, state)
}

// TestOperationQueueAutoPause_Success tests moving a running operation to the
// tail of the queue.
func TestOperationQueueAutoPause_Success(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)
	mustAdd(t, q, "a", false)
	mustAdd(t, q, "b", false)
	mustAdd(t, q, "c", false)

	activated, ok := q.AutoPauseOperation("a")
	require.True(t, ok)
	assert.Equal(t, schema.DialogID("b"), activated)

	state, _ := q.State("a")
	assert.Equal(t, schema.StateAutoPaused, state)

	activated, _ = q.OperationEnded("b", false)
	assert.Equal(t, schema.DialogID("c"), activated, "Auto-paused operation should be behind the others")

	activated, _ = q.OperationEnded("c", false)
	assert.Equal(t, schema.DialogID("a"), activated)
}

// TestOperationQueueAutoPause_Alone tests auto-pausing the only operation.
func TestOperationQueueAutoPause_Alone(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)
	mustAdd(t, q, "a", false)

	activated, ok := q.AutoPauseOperation("a")
	require.True(t, ok)
	assert.Equal(t, schema.DialogID("a"), activated)

	_, ok = q.AutoPauseOperation("unknown")
	assert.False(t, ok)
}

// TestOperationQueueSetPaused_Success tests the state bookkeeping.
func TestOperationQueueSetPaused_Success(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)
	mustAdd(t, q, "a", false)
	mustAdd(t, q, "b", false)

	assert.True(t, q.SetPaused("a", schema.StateManuallyPaused))
	assert.Zero(t, q.RunningCount())

	state, _ := q.State("b")
	assert.Equal(t, schema.StateAutoPaused, state, "Manual pause should not promote")

	assert.True(t, q.SetPaused("b", schema.StateRunning))
	assert.False(t, q.SetPaused("a", schema.StateRunning), "Resume beyond the cap should be refused")

	state, _ = q.State("a")
	assert.Equal(t, schema.StateAutoPaused, state)
	assert.Equal(t, 1, q.RunningCount())

	assert.False(t, q.SetPaused("unknown", schema.StateRunning))
}

// TestOperationQueueRemoveFinishedDlgs_Success tests the removal of stale
// entries.
func TestOperationQueueRemoveFinishedDlgs_Success(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(1)
	mustAdd(t, q, "a", false)
	mustAdd(t, q, "b", false)
	mustAdd(t, q, "c", false)

	promoted := q.RemoveFinishedDlgs(func(id schema.DialogID) bool {
		return id == "a"
	})

	assert.Equal(t, []schema.DialogID{"b"}, promoted)
	assert.Equal(t, 2, q.GetNumOfOperations())

	promoted = q.RemoveFinishedDlgs(func(schema.DialogID) bool { return false })
	assert.Empty(t, promoted)
}

// TestOperationQueue_Concurrent tests the cap under concurrent use.
func TestOperationQueue_Concurrent(t *testing.T) {
	t.Parallel()

	q := NewOperationQueue(2)

	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			id := schema.NewDialogID()
			q.AddOperation(id, false)
			assert.LessOrEqual(t, q.RunningCount(), 2)
			q.AutoPauseOperation(id)
			assert.LessOrEqual(t, q.RunningCount(), 2)
			q.OperationEnded(id, false)
		}()
	}

	wg.Wait()

	assert.True(t, q.IsEmpty())
}
