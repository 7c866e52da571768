package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewTaskManager_Success tests the factory function.
func TestNewTaskManager_Success(t *testing.T) {
	t.Parallel()
	tm := NewTaskManager()
	require.NotNil(t, tm, "NewTaskManager() should return a non-nil value")
	assert.NotNil(t, tm.Tasks, "NewTaskManager() should initialize Tasks slice")
	assert.Empty(t, tm.Tasks, "NewTaskManager() should initialize an empty Tasks slice")
}

// TestTaskManagerAdd_Success tests adding tasks.
func TestTaskManagerAdd_Success(t *testing.T) {
	t.Parallel()

	tm := NewTaskManager()

	counter := 0
	tm.Add("first", func() { counter++ })
	tm.Add("second", func() { counter += 2 })

	assert.Equal(t, 2, tm.Len(), "Add should append tasks to the Tasks slice")
	assert.Equal(t, "second", tm.Tasks[1].Name, "Add should keep the task names")
	assert.Empty(t, counter, "Tasks should not be executed when added")
}

// TestTaskManagerLaunch_Success tests sequential processing the tasked
// functions.
func TestTaskManagerLaunch_Success(t *testing.T) {
	t.Parallel()

	tm := NewTaskManager()
	err := tm.Launch(t.Context())
	require.NoError(t, err, "Launch should not return an error with empty task list")

	executionOrder := []int{}
	tm.Add("one", func() { executionOrder = append(executionOrder, 1) })
	tm.Add("two", func() { executionOrder = append(executionOrder, 2) })
	tm.Add("three", func() { executionOrder = append(executionOrder, 3) })

	err = tm.Launch(t.Context())
	require.NoError(t, err, "Launch should not return an error when all tasks complete")
	assert.Equal(t, []int{1, 2, 3}, executionOrder, "Tasks should execute sequentially in the order they were added")
	assert.Zero(t, tm.Len(), "Launch should clear the launched tasks")

	err = tm.Launch(t.Context())
	require.NoError(t, err)
	assert.Len(t, executionOrder, 3, "Tasks should not execute twice")
}

// TestTaskManagerLaunch_Fail_CtxCancel tests in-flight context cancellation
// during sequential processing.
func TestTaskManagerLaunch_Fail_CtxCancel(t *testing.T) {
	t.Parallel()

	cancelCtx, cancel := context.WithCancel(t.Context())
	tm := NewTaskManager()

	executed := false
	canceled := false

	tm.Add("before", func() { executed = true })

	tm.Add("cancel", func() {
		cancel()
		canceled = true
	})

	shouldNotExecute := false
	tm.Add("after", func() { shouldNotExecute = true })

	err := tm.Launch(cancelCtx)
	require.ErrorIs(t, err, context.Canceled, "Launch should return an error when context is canceled")
	assert.True(t, executed, "Tasks before cancellation should execute")
	assert.True(t, canceled, "The task that performs cancellation should execute")
	assert.False(t, shouldNotExecute, "Tasks after cancellation should not execute")
}
