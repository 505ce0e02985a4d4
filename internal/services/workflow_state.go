// internal/services/workflow_state.go
package services

import (
	"github.com/Corphon/AgenticVideoStudio/internal/models"
)

// WorkflowState is the full observable state of one studio session.
// It is only ever changed through Reduce.
type WorkflowState struct {
	Briefing   models.BriefingInput   `json:"briefing"`
	Steps      []models.Step          `json:"steps"`
	Result     *models.WorkflowResult `json:"result,omitempty"`
	IsRunning  bool                   `json:"is_running"`
	Generation uint64                 `json:"generation"`
}

// ActionType names a state transition
type ActionType string

const (
	ActionUpdateBriefing ActionType = "update_briefing"
	ActionStartRun       ActionType = "start_run"
	ActionStepStarted    ActionType = "step_started"
	ActionStepCompleted  ActionType = "step_completed"
	ActionRunFinished    ActionType = "run_finished"
	ActionReset          ActionType = "reset"
)

// Action is one input to Reduce. Generation must match the state's
// generation for sequencer actions, otherwise the action is stale.
type Action struct {
	Type       ActionType
	Generation uint64
	Briefing   models.BriefingInput
	StepID     models.StepID
	Output     string
	Result     *models.WorkflowResult
	Initial    []models.Step
}

// NewWorkflowState returns an idle state with every step pending
func NewWorkflowState(briefing models.BriefingInput, steps []models.Step) WorkflowState {
	return WorkflowState{
		Briefing: briefing,
		Steps:    models.CloneSteps(steps),
	}
}

// Clone returns a deep enough copy to hand to observers
func (s WorkflowState) Clone() WorkflowState {
	s.Steps = models.CloneSteps(s.Steps)
	return s
}

// RunningCount returns how many steps are currently running
func (s WorkflowState) RunningCount() int {
	n := 0
	for _, step := range s.Steps {
		if step.Status == models.StepRunning {
			n++
		}
	}
	return n
}

// Reduce applies action to state and reports whether anything changed.
// The input state is never mutated.
func Reduce(state WorkflowState, action Action) (WorkflowState, bool) {
	next := state.Clone()

	switch action.Type {
	case ActionUpdateBriefing:
		next.Briefing = action.Briefing
		return next, true

	case ActionStartRun:
		if state.IsRunning {
			return state, false
		}
		next.Generation++
		next.IsRunning = true
		next.Result = nil
		for i := range next.Steps {
			next.Steps[i].Status = models.StepPending
			next.Steps[i].Output = ""
		}
		return next, true

	case ActionStepStarted:
		if !isCurrent(state, action) {
			return state, false
		}
		i := stepIndex(next.Steps, action.StepID)
		if i < 0 || next.Steps[i].Status != models.StepPending {
			return state, false
		}
		next.Steps[i].Status = models.StepRunning
		return next, true

	case ActionStepCompleted:
		if !isCurrent(state, action) {
			return state, false
		}
		i := stepIndex(next.Steps, action.StepID)
		if i < 0 || next.Steps[i].Status != models.StepRunning {
			return state, false
		}
		next.Steps[i].Status = models.StepDone
		next.Steps[i].Output = action.Output
		return next, true

	case ActionRunFinished:
		if !isCurrent(state, action) {
			return state, false
		}
		next.IsRunning = false
		next.Result = action.Result
		return next, true

	case ActionReset:
		// the briefing survives a reset
		next.Generation++
		next.IsRunning = false
		next.Result = nil
		if action.Initial != nil {
			next.Steps = models.CloneSteps(action.Initial)
		}
		for i := range next.Steps {
			next.Steps[i].Status = models.StepPending
			next.Steps[i].Output = ""
		}
		return next, true
	}

	return state, false
}

func isCurrent(state WorkflowState, action Action) bool {
	return state.IsRunning && action.Generation == state.Generation
}

func stepIndex(steps []models.Step, id models.StepID) int {
	for i, step := range steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}
