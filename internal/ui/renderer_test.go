package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/gocopy/internal/progress"
	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, fp *fakeProgram) tea.Msg {
	t.Helper()

	select {
	case msg := <-fp.msgs:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")

		return nil
	}
}

// TestTeaRenderer_Ask_Success tests that the answer of a prompt is returned.
func TestTeaRenderer_Ask_Success(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	r := NewTeaRenderer(fp, progress.PolicySkip)

	req := schema.DecisionRequest{Kind: schema.KindOverwrite, Path: "/dst/x"}
	answers := make(chan schema.Answer, 1)

	go func() {
		answer, err := r.Ask(t.Context(), "d1", req)
		assert.NoError(t, err)
		answers <- answer
	}()

	msg, ok := receive(t, fp).(promptMsg)
	require.True(t, ok)
	assert.Equal(t, schema.DialogID("d1"), msg.id)
	assert.Equal(t, req, msg.req)

	msg.reply <- schema.AnswerYesAll

	assert.Equal(t, schema.AnswerYesAll, <-answers)
}

// TestTeaRenderer_Ask_Fail_CtxCancel tests that a prompt is withdrawn once its
// context is done.
func TestTeaRenderer_Ask_Fail_CtxCancel(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	r := NewTeaRenderer(fp, progress.PolicySkip)

	ctx, cancel := context.WithCancel(t.Context())
	errs := make(chan error, 1)

	go func() {
		_, err := r.Ask(ctx, "d1", schema.DecisionRequest{Kind: schema.KindFileError})
		errs <- err
	}()

	_, ok := receive(t, fp).(promptMsg)
	require.True(t, ok)

	cancel()

	require.ErrorIs(t, <-errs, context.Canceled)
	assert.Equal(t, closePromptsMsg{id: "d1"}, receive(t, fp))
}

// TestTeaRenderer_Stopped tests that a stopped renderer answers with its
// fallback policy and confirms cancellations.
func TestTeaRenderer_Stopped(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	r := NewTeaRenderer(fp, progress.PolicySkip)
	r.Stop()
	r.Stop()

	answer, err := r.Ask(t.Context(), "d1", schema.DecisionRequest{Kind: schema.KindOverwrite})
	require.NoError(t, err)
	assert.Equal(t, schema.AnswerSkip, answer)

	confirmed, err := r.ConfirmCancel(t.Context(), "d1")
	require.NoError(t, err)
	assert.True(t, confirmed)

	r.Update(progress.View{ID: "d1"})
	assert.Empty(t, fp.msgs)
}

// TestTeaRenderer_StoppedWhileAsking tests that a pending prompt falls back to
// the policy once the user interface stopped.
func TestTeaRenderer_StoppedWhileAsking(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	r := NewTeaRenderer(fp, progress.PolicyCancel)

	confirms := make(chan bool, 1)
	go func() {
		confirmed, err := r.ConfirmCancel(t.Context(), "d1")
		assert.NoError(t, err)
		confirms <- confirmed
	}()

	_, ok := receive(t, fp).(confirmMsg)
	require.True(t, ok)

	r.Stop()

	assert.True(t, <-confirms)
}

// TestTeaRenderer_Messages tests the messages of the notifying methods.
func TestTeaRenderer_Messages(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	r := NewTeaRenderer(fp, progress.PolicySkip)

	view := progress.View{ID: "d1", Title: "(10 %) Copy"}

	r.Opened(view)
	r.Update(view)
	r.Activate("d1")
	r.CloseOwnedPrompts("d1")
	r.Closed("d1", progress.ResultOK)

	assert.Equal(t, viewMsg{view: view}, receive(t, fp))
	assert.Equal(t, viewMsg{view: view}, receive(t, fp))
	assert.Equal(t, activateMsg{id: "d1"}, receive(t, fp))
	assert.Equal(t, closePromptsMsg{id: "d1"}, receive(t, fp))
	assert.Equal(t, closedMsg{id: "d1", result: progress.ResultOK}, receive(t, fp))
}
