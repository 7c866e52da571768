package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is a named function awaiting its delayed execution.
type Task struct {
	Name string
	Run  func()
}

// TaskManager is a simple task manager for delayed function execution. The
// progress dialogs use it for the work to be done once their operation has
// ended, such as notifying about changed paths.
type TaskManager struct {
	sync.Mutex
	Tasks []Task
}

// NewTaskManager returns a pointer to a new [TaskManager].
func NewTaskManager() *TaskManager {
	return &TaskManager{
		Tasks: []Task{},
	}
}

// Add adds a new named taskedFunc to the [TaskManager]. Functions with
// parameters can be added by invoking a parameterized function that
// immediately returns a func(), capturing any parameters in the closure.
func (t *TaskManager) Add(name string, taskedFunc func()) {
	t.Lock()
	defer t.Unlock()

	t.Tasks = append(t.Tasks, Task{Name: name, Run: taskedFunc})
}

// Len returns the number of tasks held by the [TaskManager].
func (t *TaskManager) Len() int {
	t.Lock()
	defer t.Unlock()

	return len(t.Tasks)
}

// Launch sequentially launches the functions stored in a [TaskManager] and
// clears them. An error is only returned in case of a mid-flight context
// cancellation, the remaining tasks are dropped in that case.
func (t *TaskManager) Launch(ctx context.Context) error {
	t.Lock()
	defer t.Unlock()

	defer func() {
		t.Tasks = []Task{}
	}()

	for _, task := range t.Tasks {
		if ctx.Err() != nil {
			break
		}

		slog.Debug("Launching task", "task", task.Name)
		task.Run()
	}

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-tasker) %w", ctx.Err())
	}

	return nil
}
