package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

const (
	testRunDelay = 650 * time.Millisecond
	testGapDelay = 250 * time.Millisecond
)

// recorder owns a state and applies actions the way the studio does
type recorder struct {
	mu         sync.Mutex
	state      WorkflowState
	accepted   []Action
	maxRunning int
}

func (r *recorder) dispatch(a Action) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, ok := Reduce(r.state, a)
	if !ok {
		return false
	}
	r.state = next
	r.accepted = append(r.accepted, a)
	if n := next.RunningCount(); n > r.maxRunning {
		r.maxRunning = n
	}
	return true
}

func (r *recorder) snapshot() WorkflowState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

func startRecorder(t *testing.T) (*recorder, RunPlan) {
	t.Helper()
	r := &recorder{state: freshState()}
	result := GenerateWorkflowResult(r.state.Briefing)
	if !r.dispatch(Action{Type: ActionStartRun}) {
		t.Fatalf("start rejected")
	}
	return r, RunPlan{
		Generation: r.state.Generation,
		Briefing:   r.state.Briefing,
		Result:     result,
		Steps:      models.StepOrder,
	}
}

func TestSequencerCompletesStepsInOrder(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	seq := NewSequencer(clock, testRunDelay, testGapDelay)
	r, plan := startRecorder(t)

	errc := make(chan error, 1)
	go func() { errc <- seq.Run(context.Background(), plan, r.dispatch) }()

	for i, id := range models.StepOrder {
		if !clock.BlockUntil(1, time.Second) {
			t.Fatalf("sequencer never waited on step %s", id)
		}
		s := r.snapshot()
		if s.Steps[i].Status != models.StepRunning {
			t.Fatalf("step %s status=%s", id, s.Steps[i].Status)
		}
		for _, later := range s.Steps[i+1:] {
			if later.Status != models.StepPending {
				t.Fatalf("step %s started before %s finished", later.ID, id)
			}
		}
		clock.Advance(testRunDelay)

		if !clock.BlockUntil(1, time.Second) {
			t.Fatalf("sequencer never paused after %s", id)
		}
		if s := r.snapshot(); s.Steps[i].Status != models.StepDone || s.Steps[i].Output == "" || s.Result != nil {
			t.Fatalf("step %s not done: %#v", id, s.Steps[i])
		}
		clock.Advance(testGapDelay)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("sequencer did not finish")
	}

	final := r.snapshot()
	if final.IsRunning || final.Result != plan.Result {
		t.Fatalf("run not published: running=%v", final.IsRunning)
	}
	if r.maxRunning != 1 {
		t.Fatalf("max running steps=%d", r.maxRunning)
	}

	var completed []models.StepID
	for _, a := range r.accepted {
		if a.Type == ActionStepCompleted {
			completed = append(completed, a.StepID)
		}
	}
	if len(completed) != len(models.StepOrder) {
		t.Fatalf("completions=%v", completed)
	}
	for i, id := range completed {
		if id != models.StepOrder[i] {
			t.Fatalf("completion %d is %s", i, id)
		}
	}
	if final.Steps[4].Output != "B-roll sugerido: 5 clipes\nTarefas finais: 5" {
		t.Fatalf("unexpected posproducao output %q", final.Steps[4].Output)
	}
}

func TestSequencerStopsOnCancel(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	seq := NewSequencer(clock, testRunDelay, testGapDelay)
	r, plan := startRecorder(t)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- seq.Run(ctx, plan, r.dispatch) }()

	if !clock.BlockUntil(1, time.Second) {
		t.Fatalf("sequencer never started")
	}
	r.dispatch(Action{Type: ActionReset})
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err=%v", err)
	}

	// the old timer firing afterwards changes nothing
	clock.Advance(10 * testRunDelay)
	s := r.snapshot()
	if s.IsRunning || s.Result != nil {
		t.Fatalf("state after reset %#v", s)
	}
	for _, step := range s.Steps {
		if step.Status != models.StepPending || step.Output != "" {
			t.Fatalf("step %s touched after reset: %#v", step.ID, step)
		}
	}
}

func TestSequencerStopsWhenSuperseded(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	seq := NewSequencer(clock, testRunDelay, testGapDelay)
	r, plan := startRecorder(t)

	errc := make(chan error, 1)
	go func() { errc <- seq.Run(context.Background(), plan, r.dispatch) }()

	if !clock.BlockUntil(1, time.Second) {
		t.Fatalf("sequencer never started")
	}
	// reset without cancelling: only the generation guard protects the state
	r.dispatch(Action{Type: ActionReset})
	clock.Advance(testRunDelay)

	if err := <-errc; !errors.Is(err, ErrRunSuperseded) {
		t.Fatalf("Run err=%v", err)
	}
	if s := r.snapshot(); s.Steps[0].Status != models.StepPending {
		t.Fatalf("late completion applied: %#v", s.Steps[0])
	}
}
