// Package saga runs a sequence of dependent writes that cannot share a single
// transaction, undoing the completed ones when a later step fails.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Step is one unit of work. Compensate may be nil for steps with nothing to undo.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports the step that failed. Unwrap exposes the original cause so
// callers can still match sentinel errors with errors.Is.
type StepError struct {
	Step string
	Err  error
	// Compensation holds the joined errors of compensations that also failed.
	Compensation error
}

func (e *StepError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("saga step %q: %v (compensation: %v)", e.Step, e.Err, e.Compensation)
	}
	return fmt.Sprintf("saga step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run executes steps in order. On the first failure the compensations of the
// steps that already completed run in reverse order and a *StepError is
// returned. Compensations use a context detached from cancellation so a
// client disconnect cannot leave half-written state behind.
func Run(ctx context.Context, steps ...Step) error {
	for i, s := range steps {
		if err := s.Action(ctx); err != nil {
			cerr := compensate(context.WithoutCancel(ctx), steps[:i])
			return &StepError{Step: s.Name, Err: err, Compensation: cerr}
		}
	}
	return nil
}

func compensate(ctx context.Context, done []Step) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.Compensate == nil {
			continue
		}
		if err := s.Compensate(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("step", s.Name).Msg("saga compensation failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
