package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mldesk/pkg/types"
)

// task is one unit of background work. It reports through emit only; every
// outcome pushed lands in the inbox in push order.
type task func(ctx context.Context, emit func(types.Outcome))

// submit spawns one worker goroutine for the task, wrapped in the logging,
// timing and metrics middleware. Errors never escape the worker: panics are
// converted to TaskError outcomes at this boundary.
func (r *Runner) submit(ctx context.Context, op string, fn task) {
	id := uuid.NewString()[:8]
	go func() {
		status := "ok"
		emit := func(o types.Outcome) {
			if _, failed := o.(types.TaskError); failed {
				status = "error"
			}
			r.inbox.Push(o)
			inboxDepth.Set(float64(r.inbox.Len()))
		}
		start := time.Now()
		r.log.Info().Str("task", id).Str("op", op).Msg("entering")
		defer func() {
			if p := recover(); p != nil {
				emit(types.TaskError{Message: fmt.Sprintf("%s: panic: %v", op, p)})
			}
			elapsed := time.Since(start)
			taskDuration.WithLabelValues(op).Observe(elapsed.Seconds())
			tasksTotal.WithLabelValues(op, status).Inc()
			r.log.Info().Str("task", id).Str("op", op).
				Dur("elapsed", elapsed).Str("status", status).Msg("exiting")
		}()
		fn(ctx, emit)
	}()
}
