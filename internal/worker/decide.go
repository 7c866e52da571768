package worker

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/desertwitch/gocopy/internal/schema"
)

type outcome int

const (
	outcomeProceed outcome = iota
	outcomeRetry
	outcomeSkip
	outcomeCancel
)

// decider asks the progress dialog for decisions and remembers the "all"
// answers for the rest of the operation.
type decider struct {
	env        schema.WorkerEnv
	skipAll    mapset.Set[schema.DecisionKind]
	proceedAll mapset.Set[schema.DecisionKind]
}

func newDecider(env schema.WorkerEnv) *decider {
	return &decider{
		env:        env,
		skipAll:    mapset.NewThreadUnsafeSet[schema.DecisionKind](),
		proceedAll: mapset.NewThreadUnsafeSet[schema.DecisionKind](),
	}
}

func (d *decider) decide(ctx context.Context, req schema.DecisionRequest) (outcome, error) {
	if d.skipAll.Contains(req.Kind) {
		return outcomeSkip, nil
	}
	if d.proceedAll.Contains(req.Kind) {
		return outcomeProceed, nil
	}

	answer, err := d.env.RequestDecision(ctx, req)
	if err != nil {
		return outcomeCancel, fmt.Errorf("(worker) failed to request decision: %w", err)
	}

	switch answer {
	case schema.AnswerRetry:
		return outcomeRetry, nil

	case schema.AnswerSkipAll:
		d.skipAll.Add(req.Kind)

		return outcomeSkip, nil

	case schema.AnswerYes, schema.AnswerIgnore, schema.AnswerOK:
		return outcomeProceed, nil

	case schema.AnswerYesAll, schema.AnswerIgnoreAll:
		d.proceedAll.Add(req.Kind)

		return outcomeProceed, nil

	case schema.AnswerCancel:
		return outcomeCancel, nil

	case schema.AnswerNone, schema.AnswerSkip:
		return outcomeSkip, nil

	default:
		return outcomeSkip, nil
	}
}

// onError turns an I/O error into the outcome the user chose for it. A nil
// error proceeds without asking.
func (d *decider) onError(ctx context.Context, kind schema.DecisionKind, caption string, path string, err error) (outcome, error) {
	if err == nil {
		return outcomeProceed, nil
	}

	return d.decide(ctx, schema.DecisionRequest{
		Kind:    kind,
		Caption: caption,
		Path:    path,
		Detail:  err.Error(),
	})
}
