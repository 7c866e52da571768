package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// fakeProgram is a fake implementation of teaProgramProvider. It collects all
// messages sent via its Send method.
type fakeProgram struct {
	msgs chan tea.Msg
}

func newFakeProgram() *fakeProgram {
	return &fakeProgram{
		msgs: make(chan tea.Msg, 100),
	}
}

func (fp *fakeProgram) Send(msg tea.Msg) {
	fp.msgs <- msg
}
