package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertwitch/gocopy/internal/estimator"
	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/spf13/afero"
)

// job holds the state of one running operation.
type job struct {
	fs      afero.Fs
	opts    Options
	op      *operation.Operation
	env     schema.WorkerEnv
	decider *decider
	buf     []byte
	base    uint64
}

func (j *job) process(ctx context.Context, item operation.Item) error {
	if err := j.env.Checkpoint(ctx); err != nil {
		return err //nolint:wrapcheck
	}

	switch item.Kind {
	case operation.ItemCreateDir:
		return j.createDir(ctx, item)

	case operation.ItemCopyFile:
		return j.copyItem(ctx, item)

	case operation.ItemMoveFile:
		return j.moveItem(ctx, item)

	case operation.ItemCopyDirTime:
		err := j.fs.Chtimes(item.TargetPath, item.ModTime, item.ModTime)

		return j.resolve(ctx, schema.KindDirTimeError, "Error copying directory time", item.TargetPath, err)

	case operation.ItemRemoveDir:
		return j.removeDir(ctx, item)

	default:
		return fmt.Errorf("(worker) %w: %s", operation.ErrUnsupportedType, item.Kind)
	}
}

func (j *job) createDir(ctx context.Context, item operation.Item) error {
	j.texts("Creating directory", item.TargetPath, "", "")

	if err := j.fs.MkdirAll(item.TargetPath, item.Mode.Perm()); err != nil {
		return j.resolve(ctx, schema.KindFileError, "Error creating directory", item.TargetPath, err)
	}

	j.op.AddBytes(item.ProgressUnits(), true, time.Now())

	return nil
}

func (j *job) removeDir(ctx context.Context, item operation.Item) error {
	if exists, err := afero.DirExists(j.fs, item.SourcePath); err == nil && !exists {
		return nil
	}

	// Skipped files keep their source directory alive.
	empty, err := afero.IsEmpty(j.fs, item.SourcePath)
	if err != nil {
		return j.resolve(ctx, schema.KindFileError, "Error removing directory", item.SourcePath, err)
	}

	if !empty {
		slog.Debug("Kept non-empty source directory",
			"op", j.op.ID.Short(),
			"path", item.SourcePath,
		)

		return nil
	}

	err = j.fs.Remove(item.SourcePath)

	return j.resolve(ctx, schema.KindFileError, "Error removing directory", item.SourcePath, err)
}

func (j *job) copyItem(ctx context.Context, item operation.Item) error {
	j.texts("Copying", item.SourcePath, "to", item.TargetPath)

	if err := j.confirmHidden(ctx, item); err != nil {
		return err
	}

	if err := j.confirmOverwrite(ctx, item); err != nil {
		return err
	}

	if err := j.copyFile(ctx, item); err != nil {
		return j.resolve(ctx, schema.KindFileError, "Error copying file", item.SourcePath, err)
	}

	return j.copyAttrs(ctx, item)
}

func (j *job) moveItem(ctx context.Context, item operation.Item) error {
	j.texts("Moving", item.SourcePath, "to", item.TargetPath)

	if err := j.confirmHidden(ctx, item); err != nil {
		return err
	}

	if err := j.confirmOverwrite(ctx, item); err != nil {
		return err
	}

	err := j.fs.Rename(item.SourcePath, item.TargetPath)
	if err == nil {
		j.op.MarkFastMove()
		j.op.AddBytes(item.Size, true, time.Now())
		j.publish(item.Size, item.Size)

		return nil
	}

	slog.Debug("Rename failed, falling back to copy",
		"op", j.op.ID.Short(),
		"path", item.SourcePath,
		"err", err,
	)

	if err := j.copyFile(ctx, item); err != nil {
		return j.resolve(ctx, schema.KindFileError, "Error moving file", item.SourcePath, err)
	}

	if err := j.copyAttrs(ctx, item); err != nil {
		return err
	}

	err = j.fs.Remove(item.SourcePath)

	return j.resolve(ctx, schema.KindCannotMove, "Cannot move file", item.SourcePath, err)
}

func (j *job) copyAttrs(ctx context.Context, item operation.Item) error {
	if err := j.fs.Chmod(item.TargetPath, item.Mode.Perm()); err != nil {
		if err := j.resolve(ctx, schema.KindPermissionsError, "Error setting permissions", item.TargetPath, err); err != nil {
			return err
		}
	}

	err := j.fs.Chtimes(item.TargetPath, item.ModTime, item.ModTime)

	return j.resolve(ctx, schema.KindAttrsError, "Error setting attributes", item.TargetPath, err)
}

func (j *job) confirmHidden(ctx context.Context, item operation.Item) error {
	if !j.opts.ConfirmHidden || !isHidden(item.SourcePath) {
		return nil
	}

	out, err := j.decider.decide(ctx, schema.DecisionRequest{
		Kind:    schema.KindHiddenOrSystem,
		Caption: "Confirm hidden file",
		Path:    item.SourcePath,
		Detail:  describe(item.Size, item.ModTime),
	})
	if err != nil {
		return err
	}

	return outcomeErr(out)
}

func (j *job) confirmOverwrite(ctx context.Context, item operation.Item) error {
	info, err := j.fs.Stat(item.TargetPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return j.resolve(ctx, schema.KindFileError, "Error reading target", item.TargetPath, err)
	}

	if info.IsDir() {
		if err := j.resolve(ctx, schema.KindFileError, "Error copying file", item.TargetPath, ErrTargetIsDir); err != nil {
			return err
		}

		return fmt.Errorf("(worker) %w", errSkipped)
	}

	out, err := j.decider.decide(ctx, schema.DecisionRequest{
		Kind:    schema.KindOverwrite,
		Caption: "Confirm file overwrite",
		Path:    item.SourcePath,
		Detail:  describe(item.Size, item.ModTime),
		Path2:   item.TargetPath,
		Detail2: describe(uint64(info.Size()), info.ModTime()), //nolint:gosec
	})
	if err != nil {
		return err
	}

	return outcomeErr(out)
}

// resolve asks what to do about a failed step. A nil error and cancellation
// errors are returned as they are.
func (j *job) resolve(ctx context.Context, kind schema.DecisionKind, caption string, path string, err error) error {
	if err == nil || isCanceled(err) {
		return err
	}

	slog.Warn("Item failed",
		"op", j.op.ID.Short(),
		"kind", kind,
		"path", path,
		"err", err,
	)

	out, derr := j.decider.onError(ctx, kind, caption, path, err)
	if derr != nil {
		return derr
	}

	return outcomeErr(out)
}

func (j *job) texts(verb string, source string, preposition string, target string) {
	j.env.SetProgress(schema.Sample{
		HasTexts:      true,
		Operation:     verb,
		Source:        source,
		Preposition:   preposition,
		Target:        target,
		TotalPermille: operation.Permille(j.base, j.op.TotalSize),
	})
}

func (j *job) publish(done uint64, size uint64) {
	file := operation.Permille(done, size)
	total := operation.Permille(j.base+done, j.op.TotalSize)

	j.op.SetFileProgress(file)
	j.op.SetTotalProgress(total)
	j.env.SetProgress(schema.Sample{FilePermille: file, TotalPermille: total})
}

func outcomeErr(out outcome) error {
	switch out {
	case outcomeProceed:
		return nil
	case outcomeRetry:
		return fmt.Errorf("(worker) %w", errRetry)
	case outcomeSkip:
		return fmt.Errorf("(worker) %w", errSkipped)
	case outcomeCancel:
		return fmt.Errorf("(worker) %w", schema.ErrCanceled)
	default:
		return fmt.Errorf("(worker) %w", errSkipped)
	}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isCanceled(err error) bool {
	return errors.Is(err, schema.ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func describe(size uint64, modTime time.Time) string {
	return fmt.Sprintf("%s, modified %s", estimator.FormatSize(size), modTime.Format(time.DateTime))
}
