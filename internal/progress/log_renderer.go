package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/desertwitch/gocopy/internal/schema"
)

// DecisionPolicy is how a [LogRenderer] answers decision requests.
type DecisionPolicy string

const (
	// PolicySkip skips whatever fails or would be overwritten.
	PolicySkip DecisionPolicy = "skip"

	// PolicyProceed proceeds wherever possible, overwriting existing files.
	PolicyProceed DecisionPolicy = "proceed"

	// PolicyCancel cancels the operation on the first decision request.
	PolicyCancel DecisionPolicy = "cancel"
)

// Answer returns the answer the policy gives to a request.
func (p DecisionPolicy) Answer(req schema.DecisionRequest) schema.Answer {
	switch p {
	case PolicyCancel:
		if req.Kind == schema.KindErrorNotice {
			return schema.AnswerOK
		}

		return schema.AnswerCancel

	case PolicyProceed:
		return req.ProceedAnswer()

	case PolicySkip:
		fallthrough

	default:
		switch req.Kind { //nolint:exhaustive
		case schema.KindOverwrite, schema.KindOverwriteADS, schema.KindHiddenOrSystem, schema.KindEncryptionLoss:
			return schema.AnswerSkip
		default:
			return req.ProceedAnswer()
		}
	}
}

// LogRenderer is a headless [Renderer] logging the dialogs through [slog].
// Decision requests are answered by its [DecisionPolicy] and cancellations
// are always confirmed.
type LogRenderer struct {
	sync.Mutex
	policy DecisionPolicy
	titles map[schema.DialogID]string
}

// NewLogRenderer returns a pointer to a new [LogRenderer].
func NewLogRenderer(policy DecisionPolicy) *LogRenderer {
	return &LogRenderer{
		policy: policy,
		titles: make(map[schema.DialogID]string),
	}
}

// Opened logs the opening of a dialog.
func (r *LogRenderer) Opened(view View) {
	r.Lock()
	r.titles[view.ID] = view.Title
	r.Unlock()

	slog.Info("Progress dialog opened",
		"dialog", view.ID.Short(),
		"title", view.Title,
		"state", view.State,
	)
}

// Update logs a view whenever its title changed.
func (r *LogRenderer) Update(view View) {
	r.Lock()
	changed := r.titles[view.ID] != view.Title
	r.titles[view.ID] = view.Title
	r.Unlock()

	if !changed {
		return
	}

	attrs := []any{
		"dialog", view.ID.Short(),
		"title", view.Title,
	}

	if view.Source != "" {
		attrs = append(attrs, "source", view.Source)
	}
	if view.StatusVisible {
		attrs = append(attrs, "status", view.Status)
	}

	slog.Info("Progress:", attrs...)
}

// Ask answers a decision request by the policy.
func (r *LogRenderer) Ask(_ context.Context, id schema.DialogID, req schema.DecisionRequest) (schema.Answer, error) {
	answer := r.policy.Answer(req)

	slog.Warn("Answered decision request",
		"dialog", id.Short(),
		"kind", req.Kind,
		"path", req.Path,
		"detail", req.Detail,
		"answer", answer,
	)

	return answer, nil
}

// ConfirmCancel always confirms.
func (r *LogRenderer) ConfirmCancel(context.Context, schema.DialogID) (bool, error) {
	return true, nil
}

// Activate logs the activation of a dialog.
func (r *LogRenderer) Activate(id schema.DialogID) {
	slog.Debug("Progress dialog activated", "dialog", id.Short())
}

// CloseOwnedPrompts does nothing, as the renderer shows no prompts.
func (r *LogRenderer) CloseOwnedPrompts(schema.DialogID) {}

// Closed logs the closing of a dialog.
func (r *LogRenderer) Closed(id schema.DialogID, result Result) {
	r.Lock()
	delete(r.titles, id)
	r.Unlock()

	slog.Info("Progress dialog closed", "dialog", id.Short(), "result", result)
}
