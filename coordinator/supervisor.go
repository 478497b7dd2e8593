package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/logging"
)

// TimeoutSupervisor bounds a single worker invocation and the run as a
// whole. The per-invocation deadline is enforced through the invocation's
// context plus a result channel, so an overrunning worker can never block
// the control loop; the whole-run deadline is checked by the coordinator at
// iteration checkpoints.
type TimeoutSupervisor struct {
	invocationTimeout time.Duration
	deadline          time.Time
	logger            logging.Logger
}

// NewTimeoutSupervisor creates a supervisor whose run deadline starts now.
func NewTimeoutSupervisor(invocationTimeout, runTimeout time.Duration, logger logging.Logger) *TimeoutSupervisor {
	return &TimeoutSupervisor{
		invocationTimeout: invocationTimeout,
		deadline:          time.Now().Add(runTimeout),
		logger:            logger,
	}
}

// RunExpired reports whether the whole-run deadline has elapsed.
func (s *TimeoutSupervisor) RunExpired() bool { return time.Now().After(s.deadline) }

type invokeResult struct {
	outcome core.Outcome
	err     error
}

// Invoke runs one worker under the per-invocation deadline. A worker that
// misses its deadline yields Failure(WorkerTimeout) and its staged view is
// left for the caller to discard; the goroutine's late result is dropped.
// Panics and plain errors from the worker are converted to Failure outcomes
// so a worker can never crash the coordinator.
func (s *TimeoutSupervisor) Invoke(ctx context.Context, w core.Worker, view *core.ContextView) core.Outcome {
	invCtx, cancel := context.WithTimeout(ctx, s.invocationTimeout)
	defer cancel()

	resultCh := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- invokeResult{err: fmt.Errorf("worker %s panicked: %v", w.Name(), r)}
			}
		}()
		outcome, err := w.Invoke(invCtx, view)
		resultCh <- invokeResult{outcome: outcome, err: err}
	}()

	select {
	case <-invCtx.Done():
		if ctx.Err() != nil {
			// Outer cancellation, not a worker overrun.
			return core.Failure{Kind: core.FailureWorkerTimeout, Detail: fmt.Sprintf("worker %s interrupted: %v", w.Name(), ctx.Err())}
		}
		s.logger.Warn("worker invocation exceeded deadline", "worker", w.Name(), "timeout", s.invocationTimeout.String())
		return core.Failure{Kind: core.FailureWorkerTimeout, Detail: fmt.Sprintf("worker %s exceeded %s deadline", w.Name(), s.invocationTimeout)}
	case res := <-resultCh:
		if res.err != nil {
			return core.Failure{Kind: core.FailureWorkerInternal, Detail: res.err.Error()}
		}
		if res.outcome == nil {
			return core.Failure{Kind: core.FailureWorkerInternal, Detail: fmt.Sprintf("worker %s returned no outcome", w.Name())}
		}
		return res.outcome
	}
}
