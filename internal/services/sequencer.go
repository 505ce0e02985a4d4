// internal/services/sequencer.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

// ErrRunSuperseded is returned when the state no longer accepts the run's actions
var ErrRunSuperseded = errors.New("run superseded")

// Dispatcher applies an action and reports whether the state accepted it
type Dispatcher func(Action) bool

// RunPlan is everything the sequencer needs for one run
type RunPlan struct {
	Generation uint64
	Briefing   models.BriefingInput
	Result     *models.WorkflowResult
	Steps      []models.StepID
}

// Sequencer walks the steps of a run with fixed delays
type Sequencer struct {
	clock    Clock
	runDelay time.Duration
	gapDelay time.Duration
}

// NewSequencer creates a sequencer; a nil clock means the wall clock
func NewSequencer(clock Clock, runDelay, gapDelay time.Duration) *Sequencer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Sequencer{clock: clock, runDelay: runDelay, gapDelay: gapDelay}
}

// Run emits step_started, step_completed and finally run_finished carrying
// the result, all stamped with plan.Generation. It stops as soon as ctx is cancelled or
// an action is rejected.
func (s *Sequencer) Run(ctx context.Context, plan RunPlan, dispatch Dispatcher) error {
	for _, id := range plan.Steps {
		if !dispatch(Action{Type: ActionStepStarted, Generation: plan.Generation, StepID: id}) {
			return ErrRunSuperseded
		}
		if err := s.wait(ctx, s.runDelay); err != nil {
			return err
		}

		done := Action{
			Type:       ActionStepCompleted,
			Generation: plan.Generation,
			StepID:     id,
			Output:     StepSummary(id, plan.Briefing, plan.Result),
		}
		if !dispatch(done) {
			return ErrRunSuperseded
		}
		if err := s.wait(ctx, s.gapDelay); err != nil {
			return err
		}
	}

	if !dispatch(Action{Type: ActionRunFinished, Generation: plan.Generation, Result: plan.Result}) {
		return ErrRunSuperseded
	}
	return nil
}

func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
