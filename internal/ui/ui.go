// Package ui implements a command-line user interface using [tea]. It shows
// the progress dialogs of all operations, asks their questions and forwards
// the user's commands to them.
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/gocopy/internal/progress"
)

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	manager atomic.Pointer[progress.Manager]
	program *tea.Program

	LogWriter *TeaLogWriter
	Renderer  *TeaRenderer

	Ready  atomic.Bool
	Failed atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler]. Prompts
// still open once the user interface was closed are answered by the fallback
// [progress.DecisionPolicy].
func NewHandler(ctx context.Context, cancel context.CancelFunc, fallback progress.DecisionPolicy) *Handler {
	handler := &Handler{}

	model := NewTeaModel(handler, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)
	handler.Renderer = NewTeaRenderer(handler.program, fallback)

	return handler
}

// Attach connects the [progress.Manager] whose dialogs the user commands go
// to.
func (uiHandler *Handler) Attach(manager *progress.Manager) {
	uiHandler.manager.Store(manager)
}

// Manager returns the attached [progress.Manager] or nil.
func (uiHandler *Handler) Manager() *progress.Manager {
	return uiHandler.manager.Load()
}

// Quit closes the command-line user interface.
func (uiHandler *Handler) Quit() {
	uiHandler.program.Quit()
}

// Launch starts the command-line user interface (the [tea.Program]).
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()
	defer uiHandler.Renderer.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}
