package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDialog_ProgressAndTitle tests that published samples reach the view
// with the next repaint.
func TestDialog_ProgressAndTitle(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	d, _ := startTestOp(t, m)

	require.Eventually(t, func() bool {
		v := d.View()

		return v.Title == "(50 %) Copy" && v.Source == "/src/x" && v.StatusVisible
	}, 5*time.Second, time.Millisecond)

	v := d.View()
	assert.Equal(t, "Copying", v.Operation)
	assert.Equal(t, "/dst/x", v.Target)
	assert.Equal(t, 500, v.FilePermille)
	assert.Equal(t, "Pause", v.PauseLabel)
	assert.False(t, v.CanAutoPause)

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}

// TestDialog_TogglePause tests pausing and resuming an operation.
func TestDialog_TogglePause(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	d, _ := startTestOp(t, m)

	d.TogglePause()
	eventuallyState(t, d, StatePaused)

	v := d.View()
	assert.Equal(t, "(Paused) Copy", v.Title)
	assert.Equal(t, "Resume", v.PauseLabel)
	assert.False(t, v.StatusVisible)

	state, _ := m.Queue().State(d.ID())
	assert.Equal(t, schema.StateManuallyPaused, state)

	time.Sleep(20 * time.Millisecond)
	passed := runner.passedFor(d.ID())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, passed, runner.passedFor(d.ID()), "Paused worker should not pass checkpoints")

	d.TogglePause()
	eventuallyState(t, d, StateRunning)

	require.Eventually(t, func() bool {
		return runner.passedFor(d.ID()) > passed
	}, 5*time.Second, time.Millisecond)

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}

// TestDialog_Cancel_Confirmed tests a confirmed cancel.
func TestDialog_Cancel_Confirmed(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	renderer := newFakeRenderer()
	m := newTestManager(1, runner, renderer, nil, true)

	d, op := startTestOp(t, m)

	d.Cancel()

	assert.Equal(t, ResultCanceled, waitResult(t, d))
	assert.Equal(t, 1, renderer.promptCount())
	assert.True(t, op.IsReleased())
	m.Wait()
}

// TestDialog_Cancel_Declined tests that a declined cancel resumes the
// operation.
func TestDialog_Cancel_Declined(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	renderer := newFakeRenderer()
	renderer.confirm = false
	m := newTestManager(1, runner, renderer, nil, true)

	d, _ := startTestOp(t, m)

	d.Cancel()
	require.Eventually(t, func() bool {
		return renderer.promptCount() == 1
	}, 5*time.Second, time.Millisecond)

	passed := runner.passedFor(d.ID())
	require.Eventually(t, func() bool {
		return runner.passedFor(d.ID()) > passed
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, StateRunning, d.State())

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}

// TestDialog_Cancel_NoConfirmation tests a cancel without confirmation.
func TestDialog_Cancel_NoConfirmation(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	renderer := newFakeRenderer()
	m := newTestManager(1, runner, renderer, nil, false)

	d, _ := startTestOp(t, m)

	d.Cancel()

	assert.Equal(t, ResultCanceled, waitResult(t, d))
	assert.Zero(t, renderer.promptCount())
	m.Wait()
}

// TestDialog_CancelDuringPause tests that cancelling a paused operation wakes
// up its worker.
func TestDialog_CancelDuringPause(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	d, _ := startTestOp(t, m)

	d.TogglePause()
	eventuallyState(t, d, StatePaused)

	d.Cancel()

	assert.Equal(t, ResultCanceled, waitResult(t, d))
	m.Wait()
}

// TestDialog_CancelWhileWaiting tests cancelling an operation waiting in the
// queue, which must not disturb the running one.
func TestDialog_CancelWhileWaiting(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, false)

	a, _ := startTestOp(t, m)
	b, _ := startTestOp(t, m)

	b.Cancel()
	assert.Equal(t, ResultCanceled, waitResult(t, b))
	assert.Equal(t, StateRunning, a.State())
	assert.Equal(t, 1, m.Queue().RunningCount())

	runner.finishOp(a.ID())
	assert.Equal(t, ResultOK, waitResult(t, a))
	m.Wait()
}

// TestDialog_RequestDecision tests relaying a decision to the renderer.
func TestDialog_RequestDecision(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.decide = &schema.DecisionRequest{Kind: schema.KindFileError, Path: "/src/x"}
	renderer := newFakeRenderer()
	m := newTestManager(1, runner, renderer, nil, true)

	d, _ := startTestOp(t, m)

	select {
	case answer := <-runner.answers:
		assert.Equal(t, schema.AnswerSkip, answer)
	case <-time.After(5 * time.Second):
		t.Fatal("Decision request was not answered")
	}

	assert.Equal(t, 1, renderer.promptCount())

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}

// TestDialog_RequestDecision_Cancel tests that a cancel answer cancels the
// operation.
func TestDialog_RequestDecision_Cancel(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.decide = &schema.DecisionRequest{Kind: schema.KindOverwrite}
	renderer := newFakeRenderer()
	renderer.answer = schema.AnswerCancel
	m := newTestManager(1, runner, renderer, nil, true)

	d, _ := startTestOp(t, m)

	assert.Equal(t, schema.AnswerCancel, <-runner.answers)
	assert.Equal(t, ResultCanceled, waitResult(t, d))
	m.Wait()
}

// TestDialog_AutoPause tests letting a running operation wait in the queue.
func TestDialog_AutoPause(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	a, _ := startTestOp(t, m)
	b, _ := startTestOp(t, m)

	require.Eventually(t, func() bool {
		return a.View().CanAutoPause
	}, 5*time.Second, time.Millisecond)

	a.AutoPause()
	eventuallyState(t, a, StateAutoPaused)
	eventuallyState(t, b, StateRunning)

	runner.finishOp(b.ID())
	assert.Equal(t, ResultOK, waitResult(t, b))

	eventuallyState(t, a, StateRunning)

	runner.finishOp(a.ID())
	assert.Equal(t, ResultOK, waitResult(t, a))
	m.Wait()
}

// TestDialog_AutoPause_Alone tests that a lone operation does not wait in the
// queue.
func TestDialog_AutoPause_Alone(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	d, _ := startTestOp(t, m)

	d.AutoPause()
	d.Minimize()
	require.Eventually(t, func() bool {
		return d.View().Minimized
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, StateRunning, d.State())

	d.Restore()
	require.Eventually(t, func() bool {
		return !d.View().Minimized
	}, 5*time.Second, time.Millisecond)

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}

// TestDialog_SpeedLimit tests toggling the speed limit.
func TestDialog_SpeedLimit(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	d, op := startTestOp(t, m)

	d.SetSpeedLimit(true, 1<<20)
	require.Eventually(t, func() bool {
		return d.View().SpeedLimit
	}, 5*time.Second, time.Millisecond)

	use, limit := op.SpeedLimit()
	assert.True(t, use)
	assert.Equal(t, uint64(1<<20), limit)

	runner.finishOp(d.ID())
	assert.Equal(t, ResultOK, waitResult(t, d))
	m.Wait()
}

// TestDialog_WorkerFailure tests the result of a failing worker.
func TestDialog_WorkerFailure(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.runErr = errors.New("disk on fire")
	m := newTestManager(1, runner, newFakeRenderer(), nil, true)

	d, _ := startTestOp(t, m)

	runner.finishOp(d.ID())
	assert.Equal(t, ResultFailed, waitResult(t, d))
	m.Wait()
}

// TestLogRenderer_Policies tests the answers of the decision policies.
func TestLogRenderer_Policies(t *testing.T) {
	t.Parallel()

	overwrite := schema.DecisionRequest{Kind: schema.KindOverwrite}
	fileErr := schema.DecisionRequest{Kind: schema.KindFileError}
	dirTime := schema.DecisionRequest{Kind: schema.KindDirTimeError}
	notice := schema.DecisionRequest{Kind: schema.KindErrorNotice}

	assert.Equal(t, schema.AnswerSkip, PolicySkip.Answer(overwrite))
	assert.Equal(t, schema.AnswerSkip, PolicySkip.Answer(fileErr))
	assert.Equal(t, schema.AnswerIgnore, PolicySkip.Answer(dirTime))

	assert.Equal(t, schema.AnswerYes, PolicyProceed.Answer(overwrite))
	assert.Equal(t, schema.AnswerSkip, PolicyProceed.Answer(fileErr))

	assert.Equal(t, schema.AnswerCancel, PolicyCancel.Answer(fileErr))
	assert.Equal(t, schema.AnswerOK, PolicyCancel.Answer(notice))

	r := NewLogRenderer(PolicySkip)

	answer, err := r.Ask(t.Context(), "id", overwrite)
	require.NoError(t, err)
	assert.Equal(t, schema.AnswerSkip, answer)

	confirmed, err := r.ConfirmCancel(t.Context(), "id")
	require.NoError(t, err)
	assert.True(t, confirmed)

	r.Opened(View{ID: "id", Title: "(0 %) Copy"})
	r.Update(View{ID: "id", Title: "(10 %) Copy"})
	r.Closed("id", ResultOK)
	assert.Empty(t, r.titles)
}
