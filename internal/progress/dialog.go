package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/desertwitch/gocopy/internal/estimator"
	"github.com/desertwitch/gocopy/internal/operation"
	"github.com/desertwitch/gocopy/internal/queue"
	"github.com/desertwitch/gocopy/internal/schema"
)

type commandKind int

const (
	cmdTogglePause commandKind = iota
	cmdResume
	cmdPromoted
	cmdCancel
	cmdForceCancel
	cmdAutoPause
	cmdMinimize
	cmdRestore
	cmdSpeedLimit
)

type dialogCommand struct {
	kind     commandKind
	useLimit bool
	limit    uint64
}

type decisionCall struct {
	req   schema.DecisionRequest
	reply chan schema.Answer
}

// Dialog is the progress dialog of a single operation. It owns the operation
// until the worker completed, at which point the worker takes over its
// release. All display state is owned by the goroutine of the dialog; the
// exported methods are safe for concurrent use.
type Dialog struct {
	id       schema.DialogID
	mgr      *Manager
	opts     Options
	renderer Renderer
	queue    *queue.OperationQueue

	opMu      sync.Mutex
	op        *operation.Operation
	workPaths []operation.WorkPath

	gate     *Gate
	samples  sampleRegister
	timeLeft *estimator.TimeLeft

	commands       chan dialogCommand
	decisions      chan decisionCall
	workerDone     chan struct{}
	continueWorker chan struct{}
	continueOnce   sync.Once
	workerExited   chan struct{}
	workerErr      error
	done           chan struct{}

	modalCtx    context.Context //nolint:containedctx
	modalCancel context.CancelFunc
	forced      atomic.Bool
	asking      bool
	dirty       bool

	mu     sync.RWMutex
	view   View
	result Result
}

func newDialog(mgr *Manager, op *operation.Operation) *Dialog {
	modalCtx, modalCancel := context.WithCancel(context.Background())

	d := &Dialog{
		id:             op.ID,
		mgr:            mgr,
		opts:           mgr.opts,
		renderer:       mgr.renderer,
		queue:          mgr.queue,
		op:             op,
		workPaths:      op.WorkPaths(),
		gate:           NewGate(true),
		timeLeft:       estimator.NewTimeLeft(mgr.opts.StatusPeriod),
		commands:       make(chan dialogCommand, commandBuffer),
		decisions:      make(chan decisionCall),
		workerDone:     make(chan struct{}),
		continueWorker: make(chan struct{}),
		workerExited:   make(chan struct{}),
		done:           make(chan struct{}),
		modalCtx:       modalCtx,
		modalCancel:    modalCancel,
	}

	useLimit, _ := op.SpeedLimit()

	d.view = View{
		ID:         op.ID,
		Caption:    op.Caption,
		State:      StateStarting,
		Operation:  op.WaitInQueueSubject,
		Source:     op.WaitInQueueFrom,
		Target:     op.WaitInQueueTo,
		PauseLabel: "Pause",
		SpeedLimit: useLimit,
	}
	d.view.Title = d.titleLocked(op)

	return d
}

// ID returns the identifier of the dialog.
func (d *Dialog) ID() schema.DialogID {
	return d.id
}

// State returns the current state of the dialog.
func (d *Dialog) State() DialogState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.view.State
}

// View returns a snapshot of what the dialog shows.
func (d *Dialog) View() View {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.view
}

// Result returns how the dialog closed, or [ResultNone] while it is open.
func (d *Dialog) Result() Result {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.result
}

// Closed returns a channel that is closed once the dialog closed.
func (d *Dialog) Closed() <-chan struct{} {
	return d.done
}

// IsClosed returns whether the dialog closed.
func (d *Dialog) IsClosed() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the dialog closed or the context is done.
func (d *Dialog) Wait(ctx context.Context) (Result, error) {
	select {
	case <-d.done:
		return d.Result(), nil
	case <-ctx.Done():
		return ResultNone, fmt.Errorf("(progress) %w", ctx.Err())
	}
}

// TogglePause pauses a running operation or resumes a paused one.
func (d *Dialog) TogglePause() {
	d.send(dialogCommand{kind: cmdTogglePause})
}

// Resume resumes a paused or waiting operation, if a running slot is free.
func (d *Dialog) Resume() {
	d.send(dialogCommand{kind: cmdResume})
}

// Cancel cancels the operation, after a confirmation unless configured
// otherwise.
func (d *Dialog) Cancel() {
	d.send(dialogCommand{kind: cmdCancel})
}

// ForceCancel cancels the operation without any confirmation, closing any
// prompt still shown.
func (d *Dialog) ForceCancel() {
	d.forced.Store(true)
	d.gate.Cancel()
	d.modalCancel()

	d.send(dialogCommand{kind: cmdForceCancel})
}

// AutoPause lets the operation wait in the queue until the other operations
// finished.
func (d *Dialog) AutoPause() {
	d.send(dialogCommand{kind: cmdAutoPause})
}

// Minimize minimizes the dialog.
func (d *Dialog) Minimize() {
	d.send(dialogCommand{kind: cmdMinimize})
}

// Restore restores a minimized dialog.
func (d *Dialog) Restore() {
	d.send(dialogCommand{kind: cmdRestore})
}

// SetSpeedLimit sets (or lifts) the speed limit of the operation. A zero
// limit keeps the previously used value.
func (d *Dialog) SetSpeedLimit(use bool, bytesPerSec uint64) {
	d.send(dialogCommand{kind: cmdSpeedLimit, useLimit: use, limit: bytesPerSec})
}

// SetProgress publishes a progress sample. It never blocks; the sample is
// shown with the next repaint unless a newer one replaces it first.
func (d *Dialog) SetProgress(sample schema.Sample) {
	d.samples.Store(sample)
}

// RequestDecision relays a decision request to the dialog goroutine and
// blocks until it was answered. A canceled operation is answered with
// [schema.AnswerCancel] right away.
func (d *Dialog) RequestDecision(ctx context.Context, req schema.DecisionRequest) (schema.Answer, error) {
	if d.gate.IsCanceled() {
		return schema.AnswerCancel, nil
	}

	if d.mgr.critical.Load() {
		return req.ProceedAnswer(), nil
	}

	call := decisionCall{
		req:   req,
		reply: make(chan schema.Answer, 1),
	}

	select {
	case d.decisions <- call:
	case <-ctx.Done():
		return schema.AnswerCancel, fmt.Errorf("(progress) %w", ctx.Err())
	case <-d.done:
		return schema.AnswerCancel, fmt.Errorf("(progress) %w", ErrDialogClosed)
	}

	select {
	case answer := <-call.reply:
		return answer, nil
	case <-ctx.Done():
		return schema.AnswerCancel, fmt.Errorf("(progress) %w", ctx.Err())
	}
}

func (d *Dialog) send(cmd dialogCommand) {
	select {
	case d.commands <- cmd:
	case <-d.done:
	}
}

// sendAsync is used for commands from other dialogs, which must not block
// on a dialog showing a prompt.
func (d *Dialog) sendAsync(cmd dialogCommand) {
	select {
	case d.commands <- cmd:
	default:
		go d.send(cmd)
	}
}

func (d *Dialog) operation() *operation.Operation {
	d.opMu.Lock()
	defer d.opMu.Unlock()

	return d.op
}

func (d *Dialog) run(ctx context.Context) {
	defer d.mgr.wg.Done()

	repaint := time.NewTicker(d.opts.RepaintPeriod)
	defer repaint.Stop()

	status := time.NewTicker(d.opts.StatusPeriod)
	defer status.Stop()

	ctxDone := ctx.Done()

	for {
		select {
		case <-repaint.C:
			d.flush()

		case now := <-status.C:
			d.refreshStatus(now)

		case call := <-d.decisions:
			call.reply <- d.handleDecision(call.req)

		case cmd := <-d.commands:
			d.handleCommand(cmd)

		case <-d.workerDone:
			d.finish(ctx)

			return

		case <-d.workerExited:
			d.finish(ctx)

			return

		case <-ctxDone:
			ctxDone = nil
			d.forceCancel()
		}
	}
}

func (d *Dialog) handleCommand(cmd dialogCommand) {
	switch cmd.kind {
	case cmdTogglePause:
		if d.State() == StateRunning {
			d.pauseManually()
		} else {
			d.resumeManually()
		}

	case cmdResume:
		d.resumeManually()

	case cmdPromoted:
		d.promoted()

	case cmdCancel:
		d.cancel()

	case cmdForceCancel:
		d.forceCancel()

	case cmdAutoPause:
		d.autoPause()

	case cmdMinimize:
		d.update(func(v *View) {
			v.Minimized = true
			v.StatusVisible = false
		})

	case cmdRestore:
		d.update(func(v *View) {
			v.Minimized = false
		})

	case cmdSpeedLimit:
		if op := d.operation(); op != nil {
			op.SetSpeedLimit(cmd.useLimit, cmd.limit)
			slog.Info("Changed speed limit",
				"dialog", d.id.Short(),
				"active", cmd.useLimit,
				"limit", estimator.FormatSpeed(float64(cmd.limit)),
			)
		}
		d.update(func(v *View) {
			v.SpeedLimit = cmd.useLimit
		})
	}
}

func (d *Dialog) pauseManually() {
	d.gate.Pause()
	d.queue.SetPaused(d.id, schema.StateManuallyPaused)
	d.setState(StatePaused)

	slog.Info("Paused operation", "dialog", d.id.Short())
}

func (d *Dialog) resumeManually() {
	state := d.State()
	if state != StatePaused && state != StateAutoPaused {
		return
	}

	if !d.queue.SetPaused(d.id, schema.StateRunning) {
		d.setState(StateAutoPaused)
		slog.Info("Operation waits in queue for a free slot", "dialog", d.id.Short())

		return
	}

	d.startRunning()
	slog.Info("Resumed operation", "dialog", d.id.Short())
}

func (d *Dialog) promoted() {
	state := d.State()
	if state != StateAutoPaused && state != StateStarting {
		return
	}

	d.startRunning()
	d.renderer.Activate(d.id)

	slog.Info("Resumed operation from queue", "dialog", d.id.Short())
}

func (d *Dialog) startRunning() {
	now := time.Now()

	if op := d.operation(); op != nil {
		op.InitSpeedMeters(now)
	}
	d.timeLeft.Reset(now)

	d.setState(StateRunning)
	d.gate.Resume()
}

func (d *Dialog) autoPause() {
	state := d.State()
	if state != StateRunning && state != StatePaused {
		return
	}

	if d.queue.GetNumOfOperations() <= 1 {
		return
	}

	d.gate.Pause()
	d.setState(StateAutoPaused)

	slog.Info("Operation waits in queue", "dialog", d.id.Short())

	activated, ok := d.queue.AutoPauseOperation(d.id)
	if !ok {
		return
	}

	if activated == d.id {
		d.promoted()
	} else {
		d.mgr.activate(activated)
	}
}

func (d *Dialog) cancel() {
	state := d.State()
	if state == StateCancelRequested || state == StateEnding {
		return
	}

	if d.forced.Load() || d.mgr.critical.Load() || !d.opts.ConfirmCancel {
		d.doCancel()

		return
	}

	wasRunning := state == StateRunning

	d.gate.Pause()
	d.update(func(v *View) {
		v.StatusVisible = false
	})
	d.flush()

	d.asking = true
	confirmed, err := d.renderer.ConfirmCancel(d.modalCtx, d.id)
	d.asking = false

	switch {
	case d.gate.IsCanceled():
		d.setState(StateCancelRequested)

	case err == nil && confirmed:
		d.doCancel()

	case wasRunning:
		d.startRunning()
	}
}

func (d *Dialog) doCancel() {
	d.gate.Cancel()
	d.setState(StateCancelRequested)

	slog.Info("Canceling operation", "dialog", d.id.Short())
}

func (d *Dialog) forceCancel() {
	d.forced.Store(true)
	d.modalCancel()
	d.renderer.CloseOwnedPrompts(d.id)

	if state := d.State(); state != StateCancelRequested && state != StateEnding {
		d.doCancel()
	}
}

func (d *Dialog) handleDecision(req schema.DecisionRequest) schema.Answer {
	if d.gate.IsCanceled() {
		return schema.AnswerCancel
	}

	if d.mgr.critical.Load() {
		return req.ProceedAnswer()
	}

	d.update(func(v *View) {
		v.Minimized = false
		v.StatusVisible = false
	})
	d.flush()

	d.asking = true
	answer, err := d.renderer.Ask(d.modalCtx, d.id, req)
	d.asking = false

	if err != nil {
		slog.Debug("Decision prompt was closed without answer",
			"dialog", d.id.Short(),
			"kind", req.Kind,
			"err", err,
		)

		answer = schema.AnswerCancel
		if d.mgr.critical.Load() {
			answer = req.ProceedAnswer()
		}
	}

	if answer == schema.AnswerCancel {
		d.doCancel()

		return answer
	}

	if d.State() == StateRunning {
		now := time.Now()
		if op := d.operation(); op != nil {
			op.InitSpeedMeters(now)
		}
		d.timeLeft.Reset(now)
	}

	return answer
}

func (d *Dialog) refreshStatus(now time.Time) {
	view := d.View()

	if view.State != StateRunning || view.Minimized || d.asking {
		if view.StatusVisible {
			d.update(func(v *View) {
				v.StatusVisible = false
			})
		}

		return
	}

	op := d.operation()
	if op == nil {
		return
	}

	st := op.Status(now)

	parts := []string{
		fmt.Sprintf("%s of %s",
			estimator.FormatSize(st.TransferredSize),
			estimator.FormatSize(op.TotalFileSize),
		),
		estimator.FormatSpeed(st.TransferSpeed),
	}

	if st.UseSpeedLimit {
		parts = append(parts, "limit "+estimator.FormatSpeed(float64(st.SpeedLimit)))
	}

	if secs, ok := d.timeLeft.Update(now, st.Remaining(), st.ProgressSpeed); ok {
		parts = append(parts, "time left "+estimator.FormatTimeLeft(secs))
	}

	d.update(func(v *View) {
		v.Status = strings.Join(parts, ", ")
		v.StatusVisible = true
	})
}

// flush applies the latest published sample and repaints, if anything
// changed since the last repaint.
func (d *Dialog) flush() {
	if sample, ok := d.samples.Take(); ok {
		d.update(func(v *View) {
			if sample.HasTexts {
				v.Operation = sample.Operation
				v.Source = sample.Source
				v.Preposition = sample.Preposition
				v.Target = sample.Target
			}
			v.FilePermille = sample.FilePermille
			v.TotalPermille = sample.TotalPermille
		})
	}

	canAutoPause := d.queue.GetNumOfOperations() > 1
	if d.View().CanAutoPause != canAutoPause {
		d.update(func(v *View) {
			v.CanAutoPause = canAutoPause
		})
	}

	if d.dirty {
		d.dirty = false
		d.renderer.Update(d.View())
	}
}

func (d *Dialog) update(fn func(v *View)) {
	op := d.operation()

	d.mu.Lock()
	defer d.mu.Unlock()

	fn(&d.view)
	d.view.Title = d.titleLocked(op)
	d.dirty = true
}

func (d *Dialog) setState(state DialogState) {
	d.update(func(v *View) {
		v.State = state

		switch state {
		case StatePaused, StateAutoPaused:
			v.PauseLabel = "Resume"
			v.StatusVisible = false
		case StateStarting, StateRunning, StateCancelRequested, StateEnding:
			v.PauseLabel = "Pause"
		}
	})
}

// titleLocked must be called with the view lock held.
func (d *Dialog) titleLocked(op *operation.Operation) string {
	switch d.view.State {
	case StatePaused:
		return "(Paused) " + d.view.Caption

	case StateAutoPaused:
		if op != nil && op.WaitInQueueSubject != "" {
			return "(Waiting in queue) " + op.WaitInQueueSubject
		}

		return "(Waiting in queue) " + d.view.Caption

	case StateStarting, StateRunning, StateCancelRequested, StateEnding:
		return fmt.Sprintf("(%d %%) %s", min(1000, d.view.TotalPermille)/10, d.view.Caption) //nolint:mnd
	}

	return d.view.Caption
}

func (d *Dialog) finish(ctx context.Context) {
	d.setState(StateEnding)
	d.modalCancel()
	d.renderer.CloseOwnedPrompts(d.id)
	d.flush()

	d.opMu.Lock()
	d.op = nil
	d.opMu.Unlock()

	d.continueOnce.Do(func() {
		close(d.continueWorker)
	})
	<-d.workerExited

	result := ResultOK

	switch {
	case d.gate.IsCanceled() || errors.Is(d.workerErr, schema.ErrCanceled):
		result = ResultCanceled

	case d.workerErr != nil:
		result = ResultFailed
		slog.Warn("Operation failed", "dialog", d.id.Short(), "err", d.workerErr)
	}

	activated, ok := d.queue.OperationEnded(d.id, false)

	d.mgr.dialogEnded(d.id)
	if ok {
		d.mgr.activate(activated)
	}

	if d.mgr.notifier != nil && len(d.workPaths) > 0 {
		tasks := queue.NewTaskManager()

		for _, wp := range d.workPaths {
			tasks.Add("change-notification", func() {
				d.mgr.notifier.PostChangeOnPathNotification(wp.Path, wp.InclSubdirs)
			})
		}

		if err := tasks.Launch(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to post change notifications", "dialog", d.id.Short(), "err", err)
		}
	}

	d.mu.Lock()
	d.result = result
	d.mu.Unlock()

	slog.Info("Operation ended", "dialog", d.id.Short(), "result", result)

	d.renderer.Closed(d.id, result)
	close(d.done)
}

// workerEnv is the [schema.WorkerEnv] a [Dialog] hands to its worker.
type workerEnv struct {
	*Dialog
}

func (e *workerEnv) Checkpoint(ctx context.Context) error {
	return e.gate.Checkpoint(ctx)
}

func (e *workerEnv) Done(ctx context.Context) {
	select {
	case e.workerDone <- struct{}{}:
	case <-ctx.Done():
		return
	}

	<-e.continueWorker
}
