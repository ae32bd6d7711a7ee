package publisher

import (
	"context"

	"go.uber.org/zap"
)

// sagaStep is one backend write inside a publishing operation. Compensations
// undo the write when a later step fails; a nil compensation means the step is
// covered by an earlier one, such as a file commit inside a repository whose
// creation step deletes the whole repository.
type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// runSaga executes steps in order. On the first failure it compensates the
// completed steps in reverse and returns the original error.
func (s *Service) runSaga(ctx context.Context, operation string, steps []sagaStep) error {
	for i, step := range steps {
		if err := step.run(ctx); err != nil {
			s.logger.Warn("publishing step failed, rolling back",
				zap.String("operation", operation),
				zap.String("step", step.name),
				zap.Error(err))
			s.rollback(ctx, operation, steps[:i])
			return err
		}
	}
	return nil
}

// rollback runs compensations newest-first. A failed compensation leaves a
// remote orphan; it is logged and the remaining compensations still run.
func (s *Service) rollback(ctx context.Context, operation string, completed []sagaStep) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(ctx); err != nil {
			s.logger.Error("compensation failed, remote orphan left behind",
				zap.String("operation", operation),
				zap.String("step", step.name),
				zap.Error(err))
		}
	}
}
