package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/progress"
	"github.com/spf13/afero"
)

// App starts the requested operations and waits for their dialogs.
type App struct {
	fs          afero.Fs
	manager     *progress.Manager
	startOnIdle bool
	speedLimit  uint64
}

// NewApp returns a pointer to a new [App]. A non-zero speed limit is
// activated for every operation right away.
func NewApp(afs afero.Fs, manager *progress.Manager, startOnIdle bool, speedLimit uint64) *App {
	return &App{
		fs:          afs,
		manager:     manager,
		startOnIdle: startOnIdle,
		speedLimit:  speedLimit,
	}
}

// Launch starts all requests at once, so that the operation queue orders them,
// and waits until all their dialogs closed. A canceled context shuts all
// operations down without asking any questions.
func (app *App) Launch(ctx context.Context, requests []request) error {
	stop := context.AfterFunc(ctx, app.manager.CriticalShutdown)
	defer stop()

	failed := 0
	dialogs := []*progress.Dialog{}

	for _, req := range requests {
		d, err := app.start(ctx, req)
		if err != nil {
			slog.Error("Failed to start operation",
				"sources", req.sources,
				"target", req.target,
				"result", progress.ResultAbort,
				"err", err,
			)
			failed++

			continue
		}

		dialogs = append(dialogs, d)
	}

	app.manager.Wait()

	for _, d := range dialogs {
		result := d.Result()
		if result != progress.ResultOK {
			failed++
		}

		slog.Info("Operation closed",
			"dialog", d.ID().Short(),
			"caption", d.View().Caption,
			"result", result,
		)
	}

	if failed > 0 {
		return fmt.Errorf("(app) %w: %d of %d", ErrOperationsFailed, failed, len(requests))
	}

	return nil
}

func (app *App) start(ctx context.Context, req request) (*progress.Dialog, error) {
	op, err := operation.Plan(app.fs, req.sources, req.target, req.isCopy)
	if err != nil {
		return nil, fmt.Errorf("(app) %w", err)
	}

	op.StartOnIdle = app.startOnIdle
	if app.speedLimit > 0 {
		op.SetSpeedLimit(true, app.speedLimit)
	}

	d, err := app.manager.StartProgressDialog(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("(app) %w", err)
	}

	return d, nil
}
