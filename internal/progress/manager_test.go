package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestManager_EndToEnd tests three operations passing through a queue with a
// concurrency cap of one.
func TestManager_EndToEnd(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	renderer := newFakeRenderer()
	notifier := &fakeNotifier{}
	m := newTestManager(1, runner, renderer, notifier, true)

	a, opA := startTestOp(t, m)
	b, opB := startTestOp(t, m)
	c, opC := startTestOp(t, m)

	assert.Equal(t, StateRunning, a.State())
	assert.Equal(t, StateAutoPaused, b.State())
	assert.Equal(t, StateAutoPaused, c.State())
	assert.Equal(t, "(Waiting in queue) Copy", b.View().Title)
	assert.Len(t, m.Dialogs(), 3)

	time.Sleep(30 * time.Millisecond)
	assert.Positive(t, runner.passedFor(a.ID()))
	assert.Zero(t, runner.passedFor(b.ID()), "Waiting worker should block at its first checkpoint")
	assert.Zero(t, runner.passedFor(c.ID()), "Waiting worker should block at its first checkpoint")

	runner.finishOp(a.ID())
	assert.Equal(t, ResultOK, waitResult(t, a))
	assert.True(t, opA.IsReleased(), "Worker should release the operation after the handshake")

	eventuallyState(t, b, StateRunning)
	assert.Equal(t, StateAutoPaused, c.State())
	assert.True(t, renderer.wasActivated(b.ID()))

	runner.finishOp(b.ID())
	assert.Equal(t, ResultOK, waitResult(t, b))
	assert.True(t, opB.IsReleased())

	eventuallyState(t, c, StateRunning)

	runner.finishOp(c.ID())
	assert.Equal(t, ResultOK, waitResult(t, c))
	assert.True(t, opC.IsReleased())

	m.Wait()

	assert.True(t, m.Queue().IsEmpty())
	assert.Empty(t, m.Dialogs())
	assert.Equal(t, 3, notifier.count())
}

// TestManager_Fail_NotAdmitted tests starting the same operation twice.
func TestManager_Fail_NotAdmitted(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	d, op := startTestOp(t, m)

	_, err := m.StartProgressDialog(t.Context(), op)
	require.ErrorIs(t, err, ErrNotAdmitted)

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}

// TestManager_Fail_Prepare tests that an operation whose worker cannot be
// prepared is aborted and leaves the queue.
func TestManager_Fail_Prepare(t *testing.T) {
	t.Parallel()

	prepErr := errors.New("no space left")
	runner := &preparingRunner{fakeRunner: newFakeRunner(), err: prepErr}
	renderer := newFakeRenderer()
	m := newTestManager(1, runner, renderer, nil, true)

	op := operation.New(true)

	_, err := m.StartProgressDialog(t.Context(), op)
	require.ErrorIs(t, err, ErrPrepareFailed)
	require.ErrorIs(t, err, prepErr)

	assert.True(t, m.Queue().IsEmpty())
	assert.Empty(t, m.Dialogs())
	assert.Empty(t, renderer.opened)
}

// TestManager_Fail_PrepareWhileOtherWaits tests that an operation failing its
// preparation while another one is started does not hold a running slot.
func TestManager_Fail_PrepareWhileOtherWaits(t *testing.T) {
	t.Parallel()

	prepErr := errors.New("no space left")
	runner := &slowPreparingRunner{
		fakeRunner: newFakeRunner(),
		entered:    make(chan struct{}),
		proceed:    make(chan struct{}),
		err:        prepErr,
	}
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	failing := operation.New(true)
	failing.Caption = "fail"

	errChan := make(chan error, 1)
	go func() {
		_, err := m.StartProgressDialog(t.Context(), failing)
		errChan <- err
	}()

	<-runner.entered

	b, _ := startTestOp(t, m)

	close(runner.proceed)
	require.ErrorIs(t, <-errChan, ErrPrepareFailed)

	eventuallyState(t, b, StateRunning)
	assert.Equal(t, 1, m.Queue().GetNumOfOperations())
	assert.Equal(t, 1, m.Queue().RunningCount())

	state, ok := m.Queue().State(b.ID())
	require.True(t, ok)
	assert.Equal(t, schema.StateRunning, state)

	runner.finishOp(b.ID())
	assert.Equal(t, ResultOK, waitResult(t, b))
	m.Wait()
	assert.True(t, m.Queue().IsEmpty())
}

// TestManager_CriticalShutdown tests that a critical shutdown cancels all
// operations, also one waiting for a cancel confirmation.
func TestManager_CriticalShutdown(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	renderer := newFakeRenderer()
	renderer.blockConfirm = true
	m := newTestManager(1, runner, renderer, nil, true)

	a, _ := startTestOp(t, m)
	b, _ := startTestOp(t, m)

	a.Cancel()
	require.Eventually(t, func() bool {
		return renderer.promptCount() == 1
	}, 5*time.Second, time.Millisecond)

	m.CriticalShutdown()
	assert.True(t, m.IsCriticalShutdown())

	assert.Equal(t, ResultCanceled, waitResult(t, a))
	assert.Equal(t, ResultCanceled, waitResult(t, b))

	m.Wait()
	assert.True(t, m.Queue().IsEmpty())
}

// TestManager_RemoveFinishedDlgs tests that stale queue entries are removed
// when a new operation starts.
func TestManager_RemoveFinishedDlgs(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	admitted, _ := m.Queue().AddOperation(schema.NewDialogID(), false)
	require.True(t, admitted)

	d, _ := startTestOp(t, m)

	assert.Equal(t, StateRunning, d.State(), "Stale entry should not hold the slot")
	assert.Equal(t, 1, m.Queue().GetNumOfOperations())

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}
