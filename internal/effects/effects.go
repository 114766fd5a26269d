// Package effects defers external side effects until after the database
// transaction that justifies them has committed. Running an external call
// inside the transaction would leave an orphaned external mutation if the
// transaction later rolled back; queuing gives at-least-once cleanup once
// local state is durable.
package effects

import (
	"context"
	"fmt"

	"commerce-service/internal/util"

	"go.uber.org/zap"
)

// Action is a deferred external operation.
type Action struct {
	Label string
	Run   func(ctx context.Context) error
}

// Queue is an ordered list of deferred actions. A Queue is created per
// request, populated while the transaction runs, and drained by the caller
// only after commit. It is not safe for concurrent use; each request owns
// its own.
type Queue struct {
	actions []Action
	logger  *zap.Logger
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{logger: util.GetLogger()}
}

// Add appends a labeled action.
func (q *Queue) Add(label string, fn func(ctx context.Context) error) {
	q.actions = append(q.actions, Action{Label: label, Run: fn})
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	return len(q.actions)
}

// RunAll executes every queued action in order. A failing or panicking
// action is logged and does not prevent the remaining actions from
// running; RunAll itself never fails the caller. The per-action errors are
// returned for observability only.
func (q *Queue) RunAll(ctx context.Context) []error {
	var errs []error
	for _, a := range q.actions {
		if err := q.runOne(ctx, a); err != nil {
			q.logger.Error("Side effect failed",
				zap.String("label", a.Label),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", a.Label, err))
		}
	}
	q.actions = nil
	return errs
}

func (q *Queue) runOne(ctx context.Context, a Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.Run(ctx)
}
