package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WorkQueue is a generic FIFO queue of items a single worker processes
// sequentially. It keeps track of the items processed successfully and the
// items skipped, so that it can report its [Progress].
type WorkQueue[T any] struct {
	sync.RWMutex
	hasStarted  bool
	hasFinished bool
	startTime   time.Time
	finishTime  time.Time
	head        int
	items       []T
	success     []T
	skipped     []T
	retried     int
	inProgress  int
}

// NewWorkQueue returns a pointer to a new [WorkQueue].
func NewWorkQueue[T any]() *WorkQueue[T] {
	return &WorkQueue[T]{}
}

// HasRemainingItems returns whether a queue has remaining items to process.
func (q *WorkQueue[T]) HasRemainingItems() bool {
	q.RLock()
	defer q.RUnlock()

	return q.head < len(q.items)
}

// GetSuccessful returns a copy of the internal slice holding all successful
// items.
func (q *WorkQueue[T]) GetSuccessful() []T {
	q.RLock()
	defer q.RUnlock()

	result := make([]T, len(q.success))
	copy(result, q.success)

	return result
}

// GetSkipped returns a copy of the internal slice holding all skipped items.
func (q *WorkQueue[T]) GetSkipped() []T {
	q.RLock()
	defer q.RUnlock()

	result := make([]T, len(q.skipped))
	copy(result, q.skipped)

	return result
}

// Enqueue adds items to the queue.
func (q *WorkQueue[T]) Enqueue(items ...T) {
	q.Lock()
	defer q.Unlock()

	if q.hasFinished {
		q.finishTime = time.Time{}
		q.hasFinished = false
	}

	q.items = append(q.items, items...)
}

// Dequeue returns an item from the queue and advances the queue head.
func (q *WorkQueue[T]) Dequeue() (T, bool) { //nolint:ireturn
	q.Lock()
	defer q.Unlock()

	if q.head >= len(q.items) {
		var zeroVal T

		return zeroVal, false
	}

	if !q.hasStarted {
		q.startTime = time.Now()
		q.hasStarted = true
	}

	item := q.items[q.head]
	q.head++
	q.inProgress++

	return item, true
}

func (q *WorkQueue[T]) settle(item T, decision int) {
	q.Lock()
	defer q.Unlock()

	q.inProgress--

	switch decision {
	case DecisionSuccess:
		q.success = append(q.success, item)
	default:
		q.skipped = append(q.skipped, item)
	}

	if q.head >= len(q.items) && q.inProgress == 0 && !q.hasFinished {
		q.finishTime = time.Now()
		q.hasFinished = true
	}
}

// Progress returns the [Progress] for the [WorkQueue].
func (q *WorkQueue[T]) Progress() Progress {
	q.RLock()
	defer q.RUnlock()

	hasStarted := q.hasStarted
	totalItems := len(q.items)

	processedItems := len(q.success) + len(q.skipped)
	processedItems = min(processedItems, totalItems)

	var progressPct float64
	if totalItems > 0 {
		progressPct = float64(processedItems) / float64(totalItems) * 100 //nolint:mnd
		progressPct = max(float64(0), min(progressPct, float64(100)))     //nolint:mnd
	}

	var eta time.Time
	var timeLeft time.Duration

	var transferSpeed float64
	transferSpeedUnit := "items/sec"

	if hasStarted && processedItems > 0 && processedItems < totalItems {
		elapsed := time.Since(q.startTime)
		itemsPerSec := float64(processedItems) / max(elapsed.Seconds(), 1)

		if itemsPerSec > 0 {
			remainingItems := totalItems - processedItems
			remainingSeconds := float64(remainingItems) / itemsPerSec
			timeLeft = time.Duration(remainingSeconds * float64(time.Second))
			eta = time.Now().Add(timeLeft)
			transferSpeed = itemsPerSec
		}
	}

	return Progress{
		HasStarted:        hasStarted,
		HasFinished:       q.hasFinished,
		StartTime:         q.startTime,
		FinishTime:        q.finishTime,
		ProgressPct:       progressPct,
		TotalItems:        totalItems,
		ProcessedItems:    processedItems,
		InProgressItems:   q.inProgress,
		SuccessItems:      len(q.success),
		SkippedItems:      len(q.skipped),
		RetriedItems:      q.retried,
		ETA:               eta,
		TimeLeft:          timeLeft,
		TransferSpeed:     transferSpeed,
		TransferSpeedUnit: transferSpeedUnit,
	}
}

// DequeueAndProcess sequentially dequeues and processes items using the given
// processFunc. The processFunc returns its decision for each item:
// [DecisionSuccess], [DecisionSkipped], [DecisionRetry] (the item is processed
// again right away) or [DecisionCancel] (processing stops with [ErrCanceled]).
// An error is otherwise only returned in case of a context cancellation.
func (q *WorkQueue[T]) DequeueAndProcess(ctx context.Context, processFunc func(T) int) error {
	for {
		if ctx.Err() != nil {
			break
		}

		item, ok := q.Dequeue()
		if !ok {
			break
		}

		decision := processFunc(item)
		for decision == DecisionRetry && ctx.Err() == nil {
			q.Lock()
			q.retried++
			q.Unlock()

			decision = processFunc(item)
		}

		q.settle(item, decision)

		if decision == DecisionCancel {
			return fmt.Errorf("(queue-proc) %w", ErrCanceled)
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-proc) %w", ctx.Err())
	}

	return nil
}
