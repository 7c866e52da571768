// Package worker implements the worker executing the script of a copy or move
// operation. It performs the file I/O on an [afero.Fs], passing a checkpoint
// of its progress dialog before every item and every chunk, so that the
// operation can be paused and canceled at any point, and it asks the dialog
// for decisions whenever an item cannot be processed as planned.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/desertwitch/gocopy/internal/estimator"
	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/queue"
	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/spf13/afero"
)

const (
	// DefaultBufferSize is the chunk size used when none is configured.
	DefaultBufferSize = 256 * 1024

	// TempSuffix is appended to a target path while its file is written.
	TempSuffix = ".gocopy"
)

// SpaceProvider reports the free space of the filesystem holding a path.
type SpaceProvider interface {
	FreeSpace(path string) (uint64, error)
}

// Options are the tunables of a [Worker].
type Options struct {
	// BufferSize is the size of a copy chunk in bytes.
	BufferSize int

	// Verify describes if copied files are re-read and compared to the
	// source by their blake3 hash.
	Verify bool

	// ConfirmHidden describes if hidden files (dot-files) need to be
	// confirmed before they are copied or moved.
	ConfirmHidden bool
}

// Worker executes operation scripts. It is stateless between operations and
// can run any number of operations concurrently.
type Worker struct {
	fs    afero.Fs
	space SpaceProvider
	opts  Options
}

// NewWorker returns a pointer to a new [Worker]. A nil space provider
// disables the free space check.
func NewWorker(afs afero.Fs, space SpaceProvider, opts Options) *Worker {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	return &Worker{
		fs:    afs,
		space: space,
		opts:  opts,
	}
}

// Prepare checks that an operation can be started at all. A copy needs the
// total size of its files as free space on the target filesystem.
func (w *Worker) Prepare(_ context.Context, op *operation.Operation) error {
	script, err := op.Script()
	if err != nil {
		return fmt.Errorf("(worker) %w", err)
	}

	if len(script) == 0 {
		return fmt.Errorf("(worker) %w", ErrNothingToDo)
	}

	if w.space == nil || !op.IsCopy || op.TotalFileSize == 0 {
		return nil
	}

	dir := w.existingAncestor(filepath.Dir(script[0].TargetPath))

	free, err := w.space.FreeSpace(dir)
	if err != nil {
		slog.Warn("Skipped free space check due to failure",
			"path", dir,
			"err", err,
		)

		return nil
	}

	if free < op.TotalFileSize {
		return fmt.Errorf("(worker) %w: %s needed, %s free on %s", ErrNotEnoughSpace,
			estimator.FormatSize(op.TotalFileSize), estimator.FormatSize(free), dir)
	}

	return nil
}

// Run executes the script of an operation. Once all items were processed (or
// the operation was canceled), it reports its completion to the environment,
// waits for the dialog to let go of the operation and releases it.
func (w *Worker) Run(ctx context.Context, op *operation.Operation, env schema.WorkerEnv) error {
	err := w.process(ctx, op, env)

	env.Done(ctx)
	op.Release()

	return err
}

func (w *Worker) process(ctx context.Context, op *operation.Operation, env schema.WorkerEnv) error {
	script, err := op.Script()
	if err != nil {
		return fmt.Errorf("(worker) %w", err)
	}

	j := &job{
		fs:      w.fs,
		opts:    w.opts,
		op:      op,
		env:     env,
		decider: newDecider(env),
		buf:     make([]byte, w.opts.BufferSize),
	}

	q := queue.NewWorkQueue[operation.Item]()
	q.Enqueue(script...)

	var stopErr error

	err = q.DequeueAndProcess(ctx, func(item operation.Item) int {
		j.base = op.Status(time.Now()).ProgressSize

		err := j.process(ctx, item)

		switch {
		case err == nil:
			op.SetProgressSize(j.base + item.ProgressUnits())

			return queue.DecisionSuccess

		case errors.Is(err, errRetry):
			op.SetProgressSize(j.base)

			return queue.DecisionRetry

		case errors.Is(err, errSkipped):
			slog.Debug("Skipped item",
				"op", op.ID.Short(),
				"kind", item.Kind,
				"path", item.SourcePath,
			)
			op.SetProgressSize(j.base + item.ProgressUnits())

			return queue.DecisionSkipped

		default:
			stopErr = err

			return queue.DecisionCancel
		}
	})

	if stopErr != nil {
		return stopErr
	}
	if err != nil {
		return fmt.Errorf("(worker) %w", err)
	}

	p := q.Progress()
	slog.Info("Operation finished",
		"op", op.ID.Short(),
		"success", p.SuccessItems,
		"skipped", p.SkippedItems,
		"retried", p.RetriedItems,
		"elapsed", p.FinishTime.Sub(p.StartTime).Round(time.Millisecond),
	)

	op.SetFileProgress(1000)  //nolint:mnd
	op.SetTotalProgress(1000) //nolint:mnd
	env.SetProgress(schema.Sample{FilePermille: 1000, TotalPermille: 1000})

	return nil
}

func (w *Worker) existingAncestor(path string) string {
	for {
		if _, err := w.fs.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
