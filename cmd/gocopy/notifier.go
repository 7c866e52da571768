package main

import (
	"log/slog"
)

// logNotifier reports changed paths through [slog]. A file manager would
// refresh the panels showing them instead.
type logNotifier struct{}

func (logNotifier) PostChangeOnPathNotification(path string, includingSubdirs bool) {
	slog.Debug("Paths changed",
		"path", path,
		"subdirs", includingSubdirs,
	)
}
