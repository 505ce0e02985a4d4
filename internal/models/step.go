// internal/models/step.go
package models

// StepStatus is the lifecycle state of a workflow step
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
)

// StepID identifies one of the fixed workflow steps
type StepID string

const (
	StepBriefing    StepID = "briefing"
	StepRoteiro     StepID = "roteiro"
	StepNarracao    StepID = "narracao"
	StepStoryboard  StepID = "storyboard"
	StepPosProducao StepID = "posproducao"
)

// StepOrder is the only order steps ever run in
var StepOrder = []StepID{StepBriefing, StepRoteiro, StepNarracao, StepStoryboard, StepPosProducao}

// Step is one stage of the simulated production pipeline
type Step struct {
	ID          StepID     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Status      StepStatus `json:"status" yaml:"status"`
	Output      string     `json:"output,omitempty" yaml:"output,omitempty"`
}

// CloneSteps copies a step list
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
