package worker

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/zeebo/blake3"
)

const dirPerm = 0o755

//nolint:containedctx
type checkpointReader struct {
	ctx    context.Context
	env    schema.WorkerEnv
	reader io.Reader
}

func (cr *checkpointReader) Read(p []byte) (int, error) {
	if err := cr.env.Checkpoint(cr.ctx); err != nil {
		return 0, err //nolint:wrapcheck
	}

	return cr.reader.Read(p) //nolint:wrapcheck
}

//nolint:containedctx
type progressWriter struct {
	ctx    context.Context
	job    *job
	writer io.Writer
	done   uint64
	size   uint64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	if err := pw.job.op.WaitSpeedLimit(pw.ctx, len(p)); err != nil {
		return 0, err //nolint:wrapcheck
	}

	n, err := pw.writer.Write(p)

	pw.done += uint64(n)                             //nolint:gosec
	pw.job.op.AddBytes(uint64(n), false, time.Now()) //nolint:gosec
	pw.job.publish(pw.done, pw.size)

	return n, err //nolint:wrapcheck
}

// copyFile copies the source of an item into a temporary file next to its
// target, verifies it if configured and renames it into place. The bytes of
// a discarded temporary file are taken back from the operation status.
func (j *job) copyFile(ctx context.Context, item operation.Item) error {
	var transferComplete bool

	srcFile, err := j.fs.Open(item.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	if err := j.fs.MkdirAll(filepath.Dir(item.TargetPath), dirPerm); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	tmpPath := item.TargetPath + TempSuffix
	j.fs.Remove(tmpPath) //nolint:errcheck

	writer := &progressWriter{ctx: ctx, job: j, size: item.Size}

	defer func() {
		if !transferComplete {
			j.fs.Remove(tmpPath) //nolint:errcheck
			j.op.RevertBytes(writer.done)
		}
	}()

	dstFile, err := j.fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, item.Mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to open destination file %s: %w", tmpPath, err)
	}
	defer dstFile.Close()

	var src io.Reader = srcFile

	srcHasher := blake3.New()
	if j.opts.Verify {
		src = io.TeeReader(srcFile, srcHasher)
	}

	reader := &checkpointReader{ctx: ctx, env: j.env, reader: src}
	writer.writer = dstFile

	if _, err := io.CopyBuffer(writer, reader, j.buf); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync destination file: %w", err)
	}

	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	if j.opts.Verify {
		srcChecksum := hex.EncodeToString(srcHasher.Sum(nil))

		dstChecksum, err := j.hashFile(ctx, tmpPath)
		if err != nil {
			return err
		}

		if srcChecksum != dstChecksum {
			return fmt.Errorf("%w: %s (src) != %s (dst)", ErrHashMismatch, srcChecksum, dstChecksum)
		}
	}

	if err := j.fs.Rename(tmpPath, item.TargetPath); err != nil {
		return fmt.Errorf("failed to rename temporary file to destination file: %w", err)
	}

	transferComplete = true

	return nil
}

func (j *job) hashFile(ctx context.Context, path string) (string, error) {
	f, err := j.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for verification: %w", err)
	}
	defer f.Close()

	hasher := blake3.New()
	reader := &checkpointReader{ctx: ctx, env: j.env, reader: f}

	if _, err := io.CopyBuffer(hasher, reader, j.buf); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
