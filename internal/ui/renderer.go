package ui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/gocopy/internal/progress"
	"github.com/desertwitch/gocopy/internal/schema"
)

// viewMsg carries the latest [progress.View] of a dialog.
type viewMsg struct {
	view progress.View
}

// closedMsg reports a dialog that closed with its result.
type closedMsg struct {
	id     schema.DialogID
	result progress.Result
}

// activateMsg brings a dialog into focus.
type activateMsg struct {
	id schema.DialogID
}

// promptMsg shows a decision prompt; the answer goes into reply.
type promptMsg struct {
	id    schema.DialogID
	req   schema.DecisionRequest
	reply chan schema.Answer
}

// confirmMsg shows a cancel confirmation; the answer goes into reply.
type confirmMsg struct {
	id    schema.DialogID
	reply chan bool
}

// closePromptsMsg withdraws the prompts of a dialog.
type closePromptsMsg struct {
	id schema.DialogID
}

// TeaRenderer is the [progress.Renderer] of the command-line user interface.
// It forwards everything to the [tea.Program] as messages. Once stopped, for
// example because the user closed the interface, prompts are answered by the
// fallback [progress.DecisionPolicy].
type TeaRenderer struct {
	program  teaProgramProvider
	fallback progress.DecisionPolicy
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewTeaRenderer returns a pointer to a new [TeaRenderer].
func NewTeaRenderer(program teaProgramProvider, fallback progress.DecisionPolicy) *TeaRenderer {
	return &TeaRenderer{
		program:  program,
		fallback: fallback,
		doneChan: make(chan struct{}),
	}
}

// Stop makes the renderer stop sending to the [tea.Program].
func (r *TeaRenderer) Stop() {
	r.stopOnce.Do(func() {
		close(r.doneChan)
	})
}

func (r *TeaRenderer) stopped() bool {
	select {
	case <-r.doneChan:
		return true
	default:
		return false
	}
}

func (r *TeaRenderer) send(msg tea.Msg) bool {
	if r.stopped() {
		return false
	}

	r.program.Send(msg)

	return true
}

// Opened adds a dialog to the interface.
func (r *TeaRenderer) Opened(view progress.View) {
	r.send(viewMsg{view: view})
}

// Update refreshes a dialog in the interface.
func (r *TeaRenderer) Update(view progress.View) {
	r.send(viewMsg{view: view})
}

// Ask shows a decision prompt and waits for the user's answer.
func (r *TeaRenderer) Ask(ctx context.Context, id schema.DialogID, req schema.DecisionRequest) (schema.Answer, error) {
	reply := make(chan schema.Answer, 1)

	if !r.send(promptMsg{id: id, req: req, reply: reply}) {
		return r.fallback.Answer(req), nil
	}

	select {
	case answer := <-reply:
		return answer, nil
	case <-r.doneChan:
		return r.fallback.Answer(req), nil
	case <-ctx.Done():
		r.send(closePromptsMsg{id: id})

		return schema.AnswerNone, fmt.Errorf("(ui) %w", ctx.Err())
	}
}

// ConfirmCancel asks the user whether to cancel an operation.
func (r *TeaRenderer) ConfirmCancel(ctx context.Context, id schema.DialogID) (bool, error) {
	reply := make(chan bool, 1)

	if !r.send(confirmMsg{id: id, reply: reply}) {
		return true, nil
	}

	select {
	case confirmed := <-reply:
		return confirmed, nil
	case <-r.doneChan:
		return true, nil
	case <-ctx.Done():
		r.send(closePromptsMsg{id: id})

		return false, fmt.Errorf("(ui) %w", ctx.Err())
	}
}

// Activate focuses a dialog.
func (r *TeaRenderer) Activate(id schema.DialogID) {
	r.send(activateMsg{id: id})
}

// CloseOwnedPrompts withdraws the prompts of a dialog.
func (r *TeaRenderer) CloseOwnedPrompts(id schema.DialogID) {
	r.send(closePromptsMsg{id: id})
}

// Closed marks a dialog as closed.
func (r *TeaRenderer) Closed(id schema.DialogID, result progress.Result) {
	r.send(closedMsg{id: id, result: result})
}
