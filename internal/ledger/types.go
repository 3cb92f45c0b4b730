// Package ledger tracks per-scene generation state across the two pipeline
// stages (image, video) and persists it through a pluggable Store.
package ledger

import "fmt"

// Status is the lifecycle state of a single stage of a scene.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the known statuses. Unknown strings in
// a loaded workbook are treated as data corruption, not silently accepted.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusDone, StatusError:
		return true
	}
	return false
}

// Stage identifies one of the two processing phases of a scene.
type Stage string

const (
	StageImage Stage = "image"
	StageVideo Stage = "video"
)

func (s Stage) Valid() bool {
	return s == StageImage || s == StageVideo
}

// StageState is the ledger record for one stage of one scene.
type StageState struct {
	Status   Status `json:"status" yaml:"status"`
	Attempts int    `json:"attempts" yaml:"attempts"`
	Artifact string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
}

// Scene is one narrative beat of the project: its subtitle slice, the
// generated prompts, and the state of both stages.
type Scene struct {
	ID       int    `json:"sceneId" yaml:"sceneId"`
	SrtStart string `json:"srtStart" yaml:"srtStart"`
	SrtEnd   string `json:"srtEnd" yaml:"srtEnd"`
	Text     string `json:"text" yaml:"text"`

	ImagePrompt string `json:"imagePrompt" yaml:"imagePrompt"`
	VideoPrompt string `json:"videoPrompt" yaml:"videoPrompt"`

	Image StageState `json:"image" yaml:"image"`
	Video StageState `json:"video" yaml:"video"`
}

// stage returns a pointer to the requested stage record.
func (s *Scene) stage(st Stage) *StageState {
	if st == StageVideo {
		return &s.Video
	}
	return &s.Image
}

// Character is a recurring figure in the story with a reusable visual
// description and an optional reference image.
type Character struct {
	ID           string `json:"id" yaml:"id"`
	Role         string `json:"role" yaml:"role"` // main or supporting
	Name         string `json:"name" yaml:"name"`
	Prompt       string `json:"prompt" yaml:"prompt"`
	NativePrompt string `json:"nativePrompt,omitempty" yaml:"nativePrompt,omitempty"`
	ImageFile    string `json:"imageFile,omitempty" yaml:"imageFile,omitempty"`
	Status       Status `json:"status" yaml:"status"`
}

// InvalidTransitionError reports a state-machine violation: an operation
// that the current stage statuses do not permit.
type InvalidTransitionError struct {
	SceneID int
	Stage   Stage
	From    Status
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("scene %d %s stage (%s): %s", e.SceneID, e.Stage, e.From, e.Reason)
}

// NotFoundError reports an operation against a scene id the ledger does not
// hold.
type NotFoundError struct {
	SceneID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scene %d not in ledger", e.SceneID)
}
