package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const (
	// terminalHandler is the name of the handler writing to the terminal.
	terminalHandler = "terminal"

	// uiHandler is the name of the handler writing to the user interface.
	uiHandler = "ui"
)

// SlogManager is a [slog.Handler] fanning records out to a set of named
// handlers, which can be exchanged at runtime. It lets the user interface take
// over the log output while it is shown.
type SlogManager struct {
	sync.RWMutex
	handlers map[string]slog.Handler
	attrs    []slog.Attr
	groups   []string
}

// NewSlogManager returns a pointer to a new, empty [SlogManager].
func NewSlogManager() *SlogManager {
	return &SlogManager{
		handlers: make(map[string]slog.Handler),
	}
}

// Enabled reports whether any of the handlers handles the level.
func (m *SlogManager) Enabled(ctx context.Context, level slog.Level) bool {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle passes the record to all handlers enabled for its level.
func (m *SlogManager) Handle(ctx context.Context, r slog.Record) error {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}

	return nil
}

// WithAttrs returns a [SlogManager] whose handlers carry the attributes.
func (m *SlogManager) WithAttrs(attrs []slog.Attr) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	newLm := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    append(append([]slog.Attr{}, m.attrs...), attrs...),
		groups:   append([]string{}, m.groups...),
	}

	for name, h := range m.handlers {
		newLm.handlers[name] = h.WithAttrs(attrs)
	}

	return newLm
}

// WithGroup returns a [SlogManager] whose handlers open the group.
func (m *SlogManager) WithGroup(name string) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	newLm := &SlogManager{
		handlers: make(map[string]slog.Handler, len(m.handlers)),
		attrs:    append([]slog.Attr{}, m.attrs...),
		groups:   append(append([]string{}, m.groups...), name),
	}

	for handlerName, h := range m.handlers {
		newLm.handlers[handlerName] = h.WithGroup(name)
	}

	return newLm
}

// AddHandler adds (or replaces) a named handler.
func (m *SlogManager) AddHandler(name string, handler slog.Handler) {
	m.Lock()
	defer m.Unlock()

	h := handler
	if len(m.attrs) > 0 {
		h = h.WithAttrs(m.attrs)
	}

	for _, group := range m.groups {
		h = h.WithGroup(group)
	}

	m.handlers[name] = h
}

// RemoveHandler removes a named handler.
func (m *SlogManager) RemoveHandler(name string) {
	m.Lock()
	defer m.Unlock()

	delete(m.handlers, name)
}

func newTintHandler(w io.Writer, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})
}

// setupLogging makes a [SlogManager] writing to the terminal the default
// logger and returns it.
func setupLogging() *SlogManager {
	manager := NewSlogManager()
	manager.AddHandler(terminalHandler, newTintHandler(os.Stdout, !isatty.IsTerminal(os.Stdout.Fd())))

	slog.SetDefault(slog.New(manager))

	return manager
}

// logToUI moves the log output from the terminal to the user interface.
func logToUI(manager *SlogManager, w io.Writer) {
	manager.AddHandler(uiHandler, newTintHandler(w, false))
	manager.RemoveHandler(terminalHandler)
}

// logToTerminal moves the log output back to the terminal.
func logToTerminal(manager *SlogManager) {
	manager.AddHandler(terminalHandler, newTintHandler(os.Stdout, !isatty.IsTerminal(os.Stdout.Fd())))
	manager.RemoveHandler(uiHandler)
}
