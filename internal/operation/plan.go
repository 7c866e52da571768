package operation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Plan walks the given sources and returns an [Operation] copying or moving
// them into targetDir. Directories are created before their contents, their
// times are copied after them and, for moves, emptied source directories are
// removed last.
func Plan(afs afero.Fs, sources []string, targetDir string, isCopy bool) (*Operation, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("(operation) %w", ErrNoSources)
	}

	targetDir = filepath.Clean(targetDir)

	if info, err := afs.Stat(targetDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("(operation) %w: %s", ErrTargetNotDir, targetDir)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("(operation) failed to stat target: %w", err)
	}

	op := New(isCopy)

	for _, src := range sources {
		src = filepath.Clean(src)

		if isInside(targetDir, src) {
			return nil, fmt.Errorf("(operation) %w: %s -> %s", ErrTargetInsideSource, src, targetDir)
		}

		if err := planSource(afs, op, src, filepath.Join(targetDir, filepath.Base(src))); err != nil {
			return nil, err
		}
	}

	files, dirs := op.Counts()
	verb := "Moving"
	if isCopy {
		verb = "Copying"
	}

	op.WaitInQueueSubject = fmt.Sprintf("%s %s", verb, describeCounts(files, dirs))
	op.WaitInQueueFrom = filepath.Dir(sources[0])
	op.WaitInQueueTo = targetDir

	op.SetWorkPath1(targetDir, true)
	if !isCopy {
		op.SetWorkPath2(filepath.Dir(filepath.Clean(sources[0])), true)
	}

	return op, nil
}

func planSource(afs afero.Fs, op *Operation, src string, dst string) error {
	fileKind := ItemMoveFile
	if op.IsCopy {
		fileKind = ItemCopyFile
	}

	postItems := []Item{}

	err := afero.Walk(afs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to derive relative path: %w", err)
		}

		item := Item{
			SourcePath: path,
			TargetPath: filepath.Join(dst, rel),
			Mode:       info.Mode(),
			ModTime:    info.ModTime(),
		}

		switch {
		case info.IsDir():
			item.Kind = ItemCreateDir
			op.AddItems(item)

			if !op.IsCopy {
				removeItem := item
				removeItem.Kind = ItemRemoveDir
				postItems = append(postItems, removeItem)
			}

			timeItem := item
			timeItem.Kind = ItemCopyDirTime
			postItems = append(postItems, timeItem)

		case info.Mode().IsRegular():
			item.Kind = fileKind
			item.Size = uint64(info.Size()) //nolint:gosec
			op.AddItems(item)

		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedType, path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("(operation) failed to walk source: %w", err)
	}

	// Deepest directories first, so that parents are finished last.
	for i := len(postItems) - 1; i >= 0; i-- {
		op.AddItems(postItems[i])
	}

	return nil
}

func isInside(path string, dir string) bool {
	if path == dir {
		return true
	}

	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

func describeCounts(files, dirs int) string {
	parts := []string{}

	if files > 0 || dirs == 0 {
		parts = append(parts, plural(files, "file"))
	}
	if dirs > 0 {
		parts = append(parts, plural(dirs, "directory"))
	}

	return strings.Join(parts, " and ")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	if strings.HasSuffix(word, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(word, "y"))
	}

	return fmt.Sprintf("%d %ss", n, word)
}
