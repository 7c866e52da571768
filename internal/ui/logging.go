package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// teaProgramProvider is the part of a [tea.Program] messages are sent to.
type teaProgramProvider interface {
	Send(msg tea.Msg)
}

// LogMsg is a regular string containing a log message. It is typed for
// identification as [tea.Msg] within a [tea.Program].
type LogMsg string

// TeaLogWriter is an implementation of an [io.Writer], for use inside a
// [slog.Handler], that sends any logs to a [tea.Program] as [LogMsg].
type TeaLogWriter struct {
	program  teaProgramProvider
	doneChan chan struct{}
	logChan  chan LogMsg
}

// NewTeaLogWriter returns a pointer to a new [TeaLogWriter]. It also starts the
// internal log processing function, which should eventually be stopped with a
// deferred [TeaLogWriter.Stop] call.
func NewTeaLogWriter(program teaProgramProvider) *TeaLogWriter {
	wr := &TeaLogWriter{
		program:  program,
		doneChan: make(chan struct{}),
		logChan:  make(chan LogMsg, 1000), //nolint:mnd
	}

	go wr.processLogs()

	return wr
}

// Stop stops any log message processing. Logs written after calling this
// method are discarded.
func (wr *TeaLogWriter) Stop() {
	close(wr.doneChan)
}

func (wr *TeaLogWriter) processLogs() {
	for {
		select {
		case <-wr.doneChan:
			return
		case msg := <-wr.logChan:
			wr.program.Send(msg)
		}
	}
}

// Write receives a log message from a [slog.Handler] and queues it for the
// [tea.Program]. It only blocks while the queue is full.
func (wr *TeaLogWriter) Write(p []byte) (int, error) {
	select {
	case <-wr.doneChan:
	case wr.logChan <- LogMsg(p):
	}

	return len(p), nil
}
