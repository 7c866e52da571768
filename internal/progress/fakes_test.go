package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/queue"
	"github.com/desertwitch/gocopy/internal/schema"
	"github.com/stretchr/testify/require"
)

// fakeRunner is a worker passing checkpoints in a loop until it is told to
// finish the operation.
type fakeRunner struct {
	mu       sync.Mutex
	release  map[schema.DialogID]chan struct{}
	passed   map[schema.DialogID]int
	decide   *schema.DecisionRequest
	answers  chan schema.Answer
	runErr   error
	finished chan schema.DialogID
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		release:  make(map[schema.DialogID]chan struct{}),
		passed:   make(map[schema.DialogID]int),
		answers:  make(chan schema.Answer, 10),
		finished: make(chan schema.DialogID, 10),
	}
}

func (r *fakeRunner) releaseFor(id schema.DialogID) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.release[id]; !ok {
		r.release[id] = make(chan struct{})
	}

	return r.release[id]
}

func (r *fakeRunner) finishOp(id schema.DialogID) {
	close(r.releaseFor(id))
}

func (r *fakeRunner) passedFor(id schema.DialogID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.passed[id]
}

func (r *fakeRunner) Run(ctx context.Context, op *operation.Operation, env schema.WorkerEnv) error {
	var err error

	asked := false
	release := r.releaseFor(op.ID)

LOOP:
	for {
		if err = env.Checkpoint(ctx); err != nil {
			break
		}

		r.mu.Lock()
		r.passed[op.ID]++
		r.mu.Unlock()

		env.SetProgress(schema.Sample{
			HasTexts:      true,
			Operation:     "Copying",
			Source:        "/src/x",
			Preposition:   "to",
			Target:        "/dst/x",
			FilePermille:  500,
			TotalPermille: 500,
		})

		if r.decide != nil && !asked {
			asked = true

			answer, _ := env.RequestDecision(ctx, *r.decide)
			r.answers <- answer
		}

		select {
		case <-release:
			err = r.runErr

			break LOOP
		case <-time.After(time.Millisecond):
		}
	}

	env.Done(ctx)
	op.Release()
	r.finished <- op.ID

	return err
}

// preparingRunner is a [fakeRunner] failing its preparation.
type preparingRunner struct {
	*fakeRunner
	err error
}

func (r *preparingRunner) Prepare(context.Context, *operation.Operation) error {
	return r.err
}

// slowPreparingRunner is a [fakeRunner] whose preparation of operations
// captioned "fail" blocks until released and then fails.
type slowPreparingRunner struct {
	*fakeRunner
	entered chan struct{}
	proceed chan struct{}
	err     error
}

func (r *slowPreparingRunner) Prepare(_ context.Context, op *operation.Operation) error {
	if op.Caption != "fail" {
		return nil
	}

	close(r.entered)
	<-r.proceed

	return r.err
}

// fakeRenderer records what the dialogs render.
type fakeRenderer struct {
	mu           sync.Mutex
	opened       []schema.DialogID
	closed       map[schema.DialogID]Result
	activated    []schema.DialogID
	prompts      int
	answer       schema.Answer
	confirm      bool
	blockConfirm bool
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		closed:  make(map[schema.DialogID]Result),
		answer:  schema.AnswerSkip,
		confirm: true,
	}
}

func (r *fakeRenderer) Opened(view View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.opened = append(r.opened, view.ID)
}

func (r *fakeRenderer) Update(View) {}

func (r *fakeRenderer) Ask(context.Context, schema.DialogID, schema.DecisionRequest) (schema.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts++

	return r.answer, nil
}

func (r *fakeRenderer) ConfirmCancel(ctx context.Context, _ schema.DialogID) (bool, error) {
	r.mu.Lock()
	block, confirm := r.blockConfirm, r.confirm
	r.prompts++
	r.mu.Unlock()

	if block {
		<-ctx.Done()

		return false, ctx.Err()
	}

	return confirm, nil
}

func (r *fakeRenderer) Activate(id schema.DialogID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activated = append(r.activated, id)
}

func (r *fakeRenderer) CloseOwnedPrompts(schema.DialogID) {}

func (r *fakeRenderer) Closed(id schema.DialogID, result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed[id] = result
}

func (r *fakeRenderer) promptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.prompts
}

func (r *fakeRenderer) wasActivated(id schema.DialogID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.activated {
		if a == id {
			return true
		}
	}

	return false
}

// fakeNotifier records the change notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	paths []string
}

func (n *fakeNotifier) PostChangeOnPathNotification(path string, _ bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.paths = append(n.paths, path)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.paths)
}

func newTestManager(capacity int, runner Runner, renderer Renderer, notifier schema.ChangeNotifier, confirm bool) *Manager {
	return NewManager(queue.NewOperationQueue(capacity), runner, renderer, notifier, Options{
		RepaintPeriod: 5 * time.Millisecond,
		StatusPeriod:  10 * time.Millisecond,
		ConfirmCancel: confirm,
	})
}

func startTestOp(t *testing.T, m *Manager) (*Dialog, *operation.Operation) {
	t.Helper()

	op := operation.New(true)
	op.SetWorkPath1("/dst", true)

	d, err := m.StartProgressDialog(t.Context(), op)
	require.NoError(t, err)

	return d, op
}

func waitResult(t *testing.T, d *Dialog) Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	result, err := d.Wait(ctx)
	require.NoError(t, err)

	return result
}

func eventuallyState(t *testing.T, d *Dialog, state DialogState) {
	t.Helper()

	require.Eventually(t, func() bool {
		return d.State() == state
	}, 5*time.Second, time.Millisecond, "dialog should reach state %s", state)
}
