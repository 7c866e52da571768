// Package queue implements the queues ordering the work of the application.
//
// The [OperationQueue] is the process-wide admission controller limiting how
// many copy or move operations run at the same time, rotating waiting
// operations into the running state in the order they were admitted. The
// [WorkQueue] is the queue a single worker processes its items from, and the
// [TaskManager] holds tasks to be run once an operation has ended.
package queue

import (
	"time"
)

const (
	// DecisionSuccess is returned by a processFunc when an item was processed.
	DecisionSuccess = 1

	// DecisionSkipped is returned by a processFunc when an item was skipped.
	DecisionSkipped = 0

	// DecisionRetry is returned by a processFunc when an item needs to be
	// processed again right away.
	DecisionRetry = -1

	// DecisionCancel is returned by a processFunc when the processing needs
	// to stop altogether. The item is accounted as skipped.
	DecisionCancel = -2
)

// Progress holds progress information of a [WorkQueue].
type Progress struct {
	HasStarted        bool
	HasFinished       bool
	StartTime         time.Time
	FinishTime        time.Time
	ProgressPct       float64
	TotalItems        int
	ProcessedItems    int
	InProgressItems   int
	SuccessItems      int
	SkippedItems      int
	RetriedItems      int
	ETA               time.Time
	TimeLeft          time.Duration
	TransferSpeed     float64
	TransferSpeedUnit string
}
