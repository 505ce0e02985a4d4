// internal/models/result.go
package models

// ScriptSection is one titled block of the script body
type ScriptSection struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

// VideoScript is the spoken script of the video
type VideoScript struct {
	Hook         string          `json:"hook" yaml:"hook"`
	Introduction string          `json:"introduction" yaml:"introduction"`
	Sections     []ScriptSection `json:"sections" yaml:"sections"` // always three
	Conclusion   string          `json:"conclusion" yaml:"conclusion"`
}

// NarrationPlan holds voice direction for the recording
type NarrationPlan struct {
	Tone     string   `json:"tone" yaml:"tone"`
	Pacing   string   `json:"pacing" yaml:"pacing"`
	Pauses   []string `json:"pauses" yaml:"pauses"`
	Emphasis []string `json:"emphasis" yaml:"emphasis"`
}

// ScenePlan is one storyboard scene
type ScenePlan struct {
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	Objective   string `json:"objective" yaml:"objective"`
	Description string `json:"description" yaml:"description"`
	Visual      string `json:"visual" yaml:"visual"`
}

// WorkflowResult bundles every artifact of one run
type WorkflowResult struct {
	Script    VideoScript   `json:"script" yaml:"script"`
	Narration NarrationPlan `json:"narration" yaml:"narration"`
	Scenes    []ScenePlan   `json:"scenes" yaml:"scenes"`
	BRoll     []string      `json:"broll" yaml:"broll"`
	Tasks     []string      `json:"tasks" yaml:"tasks"`
	Checklist []string      `json:"checklist" yaml:"checklist"`
}
