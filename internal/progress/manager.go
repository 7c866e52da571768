package progress

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/queue"
	"github.com/desertwitch/gocopy/internal/schema"
)

// Manager is the process-wide registry of progress dialogs. It starts the
// dialogs of new operations, admitting them to the operation queue, and
// routes the promotions of the queue to the dialogs concerned.
type Manager struct {
	sync.Mutex
	opts     Options
	queue    *queue.OperationQueue
	runner   Runner
	renderer Renderer
	notifier schema.ChangeNotifier

	dialogs map[schema.DialogID]*Dialog
	order   []schema.DialogID

	critical atomic.Bool
	wg       sync.WaitGroup
}

// NewManager returns a pointer to a new [Manager]. The notifier may be nil.
func NewManager(q *queue.OperationQueue, runner Runner, renderer Renderer, notifier schema.ChangeNotifier, opts Options) *Manager {
	return &Manager{
		opts:     opts.withDefaults(),
		queue:    q,
		runner:   runner,
		renderer: renderer,
		notifier: notifier,
		dialogs:  make(map[schema.DialogID]*Dialog),
		order:    []schema.DialogID{},
	}
}

// Queue returns the [queue.OperationQueue] of the [Manager].
func (m *Manager) Queue() *queue.OperationQueue {
	return m.queue
}

// Options returns the [Options] of the [Manager].
func (m *Manager) Options() Options {
	return m.opts
}

// StartProgressDialog starts the progress dialog and the worker for the given
// operation. The worker is prepared first, so that an operation failing its
// preparation never enters the queue. The operation is then admitted to the
// queue, possibly auto-paused; its worker blocks at its first checkpoint
// until it is promoted.
func (m *Manager) StartProgressDialog(ctx context.Context, op *operation.Operation) (*Dialog, error) {
	m.removeFinishedDlgs()

	if preparer, ok := m.runner.(Preparer); ok {
		if err := preparer.Prepare(ctx, op); err != nil {
			slog.Warn("Aborted operation: worker could not be prepared",
				"dialog", op.ID.Short(),
				"caption", op.Caption,
				"err", err,
			)

			return nil, fmt.Errorf("(progress) %w: %w", ErrPrepareFailed, err)
		}
	}

	d := newDialog(m, op)

	m.Lock()
	admitted, startedPaused := m.queue.AddOperation(d.id, op.StartOnIdle)
	if !admitted {
		m.Unlock()
		d.modalCancel()

		return nil, fmt.Errorf("(progress) %w: %s", ErrNotAdmitted, d.id)
	}
	m.dialogs[d.id] = d
	m.order = append(m.order, d.id)
	m.Unlock()

	if startedPaused {
		d.setState(StateAutoPaused)
	} else {
		now := time.Now()
		op.InitSpeedMeters(now)
		d.timeLeft.Reset(now)
		d.setState(StateRunning)
		d.gate.Resume()
	}

	slog.Info("Started operation",
		"dialog", d.id.Short(),
		"caption", op.Caption,
		"subject", op.WaitInQueueSubject,
		"state", d.State(),
	)

	d.renderer.Opened(d.View())

	go func() {
		defer close(d.workerExited)

		d.workerErr = m.runner.Run(ctx, op, &workerEnv{d})
	}()

	m.wg.Add(1)
	go d.run(ctx)

	return d, nil
}

// Dialog returns the open dialog with the given identifier.
func (m *Manager) Dialog(id schema.DialogID) (*Dialog, bool) {
	m.Lock()
	defer m.Unlock()

	d, ok := m.dialogs[id]

	return d, ok
}

// Dialogs returns the open dialogs in the order they were started.
func (m *Manager) Dialogs() []*Dialog {
	m.Lock()
	defer m.Unlock()

	result := make([]*Dialog, 0, len(m.order))
	for _, id := range m.order {
		if d, ok := m.dialogs[id]; ok {
			result = append(result, d)
		}
	}

	return result
}

// CriticalShutdown cancels all operations without any confirmation. Decision
// requests arriving from then on are answered without asking.
func (m *Manager) CriticalShutdown() {
	m.critical.Store(true)

	dialogs := m.Dialogs()

	slog.Warn("Critical shutdown: canceling all operations", "operations", len(dialogs))

	for _, d := range dialogs {
		d.ForceCancel()
	}
}

// IsCriticalShutdown returns whether a critical shutdown is in progress.
func (m *Manager) IsCriticalShutdown() bool {
	return m.critical.Load()
}

// Wait blocks until all started dialogs closed.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) removeFinishedDlgs() {
	m.Lock()
	promoted := m.queue.RemoveFinishedDlgs(func(id schema.DialogID) bool {
		d, ok := m.dialogs[id]

		return !ok || d.IsClosed()
	})
	m.Unlock()

	for _, id := range promoted {
		m.activate(id)
	}
}

func (m *Manager) activate(id schema.DialogID) {
	d, ok := m.Dialog(id)
	if !ok {
		return
	}

	d.sendAsync(dialogCommand{kind: cmdPromoted})
}

func (m *Manager) dialogEnded(id schema.DialogID) {
	m.Lock()
	defer m.Unlock()

	delete(m.dialogs, id)
	m.order = slices.DeleteFunc(m.order, func(e schema.DialogID) bool {
		return e == id
	})
}
