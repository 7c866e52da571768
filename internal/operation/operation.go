// Package operation implements the data model of a single user-initiated copy
// or move operation: its item script, its totals, the paths it works on and the
// progress and status figures its worker publishes while running.
//
// An [Operation] is created by the invoking flow, handed to a progress dialog
// and released by the worker once the completion handshake took place.
package operation

import (
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/desertwitch/gocopy/internal/estimator"
	"github.com/desertwitch/gocopy/internal/schema"
	"golang.org/x/time/rate"
)

// DirProgressUnit is the amount of progress units a directory item accounts
// for in [Operation.TotalSize].
const DirProgressUnit = 4096

// ItemKind is the kind of a single step of an operation script.
type ItemKind int

const (
	// ItemCopyFile copies a file.
	ItemCopyFile ItemKind = iota

	// ItemMoveFile moves a file, by renaming it where possible.
	ItemMoveFile

	// ItemCreateDir creates a target directory.
	ItemCreateDir

	// ItemRemoveDir removes an (emptied) source directory after a move.
	ItemRemoveDir

	// ItemCopyDirTime copies the modification time of a directory once its
	// contents were processed.
	ItemCopyDirTime
)

// String returns the string representation of an [ItemKind].
func (k ItemKind) String() string {
	switch k {
	case ItemCopyFile:
		return "copy-file"
	case ItemMoveFile:
		return "move-file"
	case ItemCreateDir:
		return "create-dir"
	case ItemRemoveDir:
		return "remove-dir"
	case ItemCopyDirTime:
		return "copy-dir-time"
	default:
		return "unknown"
	}
}

// Item is a single step of an operation script.
type Item struct {
	// Kind is the [ItemKind] of the step.
	Kind ItemKind

	// SourcePath is the absolute source path.
	SourcePath string

	// TargetPath is the absolute target path.
	TargetPath string

	// Size is the size of a file item in bytes.
	Size uint64

	// Mode is the mode of the source.
	Mode fs.FileMode

	// ModTime is the modification time of the source.
	ModTime time.Time
}

// ProgressUnits returns the progress units the item accounts for.
func (i Item) ProgressUnits() uint64 {
	switch i.Kind {
	case ItemCopyFile, ItemMoveFile:
		return i.Size
	case ItemCreateDir:
		return DirProgressUnit
	case ItemRemoveDir, ItemCopyDirTime:
		return 0
	default:
		return 0
	}
}

// WorkPath is a path an operation changes, reported to the change notifier
// once the operation ended.
type WorkPath struct {
	Path        string
	InclSubdirs bool
}

// Operation is a single copy or move operation.
type Operation struct {
	// ID is the identifier of the operation and its progress dialog.
	ID schema.DialogID

	// Caption is the title of the progress dialog.
	Caption string

	// IsCopy describes if the operation copies (or moves).
	IsCopy bool

	// StartOnIdle describes if the operation should wait in the queue
	// whenever any other operation exists.
	StartOnIdle bool

	// TotalSize is the total of all progress units of the script.
	TotalSize uint64

	// TotalFileSize is the total of all file sizes of the script.
	TotalFileSize uint64

	// WaitInQueueSubject is the title shown while waiting in the queue.
	WaitInQueueSubject string

	// WaitInQueueFrom is the source text shown while waiting in the queue.
	WaitInQueueFrom string

	// WaitInQueueTo is the target text shown while waiting in the queue.
	WaitInQueueTo string

	scriptMu sync.RWMutex
	items    []Item
	released bool

	workMu    sync.Mutex
	workPaths [2]WorkPath

	fastMoveUsed  atomic.Bool
	filePermille  atomic.Int32
	totalPermille atomic.Int32

	statusMu      sync.Mutex
	transferred   uint64
	progressSize  uint64
	transferMeter *estimator.SpeedMeter
	progressMeter *estimator.SpeedMeter
	useSpeedLimit bool
	speedLimit    uint64
	limiter       *rate.Limiter
}

// New returns a pointer to a new, empty [Operation].
func New(isCopy bool) *Operation {
	caption := "Move"
	if isCopy {
		caption = "Copy"
	}

	return &Operation{
		ID:            schema.NewDialogID(),
		Caption:       caption,
		IsCopy:        isCopy,
		transferMeter: estimator.NewSpeedMeter(estimator.TransferStep, estimator.TransferSteps),
		progressMeter: estimator.NewSpeedMeter(estimator.ProgressStep, estimator.ProgressSteps),
		limiter:       rate.NewLimiter(rate.Inf, 0),
	}
}

// AddItems appends items to the script and accounts for them in the totals.
func (o *Operation) AddItems(items ...Item) {
	o.scriptMu.Lock()
	defer o.scriptMu.Unlock()

	for _, item := range items {
		o.items = append(o.items, item)
		o.TotalSize += item.ProgressUnits()

		if item.Kind == ItemCopyFile || item.Kind == ItemMoveFile {
			o.TotalFileSize += item.Size
		}
	}
}

// Script returns a copy of the item script. An error is returned when the
// operation was already released.
func (o *Operation) Script() ([]Item, error) {
	o.scriptMu.RLock()
	defer o.scriptMu.RUnlock()

	if o.released {
		return nil, fmt.Errorf("(operation) %w", ErrReleased)
	}

	result := make([]Item, len(o.items))
	copy(result, o.items)

	return result, nil
}

// Counts returns the number of file and directory items in the script.
func (o *Operation) Counts() (files int, dirs int) {
	o.scriptMu.RLock()
	defer o.scriptMu.RUnlock()

	for _, item := range o.items {
		switch item.Kind { //nolint:exhaustive
		case ItemCopyFile, ItemMoveFile:
			files++
		case ItemCreateDir:
			dirs++
		}
	}

	return files, dirs
}

// Release clears the script. It is called by the worker once it took over the
// destruction of the operation; any later use of the script fails.
func (o *Operation) Release() {
	o.scriptMu.Lock()
	defer o.scriptMu.Unlock()

	o.items = nil
	o.released = true
}

// IsReleased returns whether the operation was released.
func (o *Operation) IsReleased() bool {
	o.scriptMu.RLock()
	defer o.scriptMu.RUnlock()

	return o.released
}

// SetWorkPath1 sets the first path the operation changes.
func (o *Operation) SetWorkPath1(path string, inclSubdirs bool) {
	o.workMu.Lock()
	defer o.workMu.Unlock()

	o.workPaths[0] = WorkPath{Path: path, InclSubdirs: inclSubdirs}
}

// SetWorkPath2 sets the second path the operation changes.
func (o *Operation) SetWorkPath2(path string, inclSubdirs bool) {
	o.workMu.Lock()
	defer o.workMu.Unlock()

	o.workPaths[1] = WorkPath{Path: path, InclSubdirs: inclSubdirs}
}

// WorkPaths returns the non-empty work paths of the operation.
func (o *Operation) WorkPaths() []WorkPath {
	o.workMu.Lock()
	defer o.workMu.Unlock()

	result := []WorkPath{}

	for _, wp := range o.workPaths {
		if wp.Path != "" {
			result = append(result, wp)
		}
	}

	return result
}

// MarkFastMove records that a move was done by renaming.
func (o *Operation) MarkFastMove() {
	o.fastMoveUsed.Store(true)
}

// FastMoveUsed returns whether a move was done by renaming.
func (o *Operation) FastMoveUsed() bool {
	return o.fastMoveUsed.Load()
}
