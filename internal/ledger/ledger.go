package ledger

import (
	"fmt"
	"log/slog"
	"sort"
)

// Ledger is the in-memory view of the project's job state. It is the only
// writer of scene and character records; the Store underneath is the source
// of truth across process restarts.
//
// Every mutating method persists before returning: the scene is upserted
// and the store flushed, so observers reading the workbook always see the
// last completed operation.
//
// A Ledger is not safe for concurrent use. The orchestrator owns it.
type Ledger struct {
	store  Store
	logger *slog.Logger

	scenes     map[int]*Scene
	characters map[string]*Character
}

// Load reads all rows from store and builds the ledger. Unknown statuses in
// loaded rows are normalized: a scene found in "generating" was interrupted
// mid-attempt and is reset to "pending" so a fresh run retries it.
func Load(store Store, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scenes, err := store.LoadScenes()
	if err != nil {
		return nil, fmt.Errorf("load scenes: %w", err)
	}
	characters, err := store.LoadCharacters()
	if err != nil {
		return nil, fmt.Errorf("load characters: %w", err)
	}

	l := &Ledger{
		store:      store,
		logger:     logger,
		scenes:     make(map[int]*Scene, len(scenes)),
		characters: make(map[string]*Character, len(characters)),
	}

	for i := range scenes {
		s := scenes[i]
		if normalizeStage(&s.Image) || normalizeStage(&s.Video) {
			logger.Warn("scene was interrupted mid-generation, reset to pending", "scene", s.ID)
		}
		if prev, dup := l.scenes[s.ID]; dup {
			return nil, fmt.Errorf("duplicate scene id %d in store (first: %q)", s.ID, prev.Text)
		}
		l.scenes[s.ID] = &s
	}
	for i := range characters {
		c := characters[i]
		l.characters[c.ID] = &c
	}

	return l, nil
}

// normalizeStage resets interrupted or unrecognized statuses to pending.
// Returns true if the stage was modified.
func normalizeStage(st *StageState) bool {
	if st.Status == "" {
		st.Status = StatusPending
		return false
	}
	if st.Status == StatusGenerating || !st.Status.Valid() {
		st.Status = StatusPending
		return true
	}
	return false
}

// AddScene registers a new scene with both stages pending and persists it.
// Adding an id that already exists is an error; scene ids are stable.
func (l *Ledger) AddScene(s Scene) error {
	if _, exists := l.scenes[s.ID]; exists {
		return fmt.Errorf("scene %d already in ledger", s.ID)
	}
	if s.Image.Status == "" {
		s.Image.Status = StatusPending
	}
	if s.Video.Status == "" {
		s.Video.Status = StatusPending
	}
	l.scenes[s.ID] = &s
	return l.persistScene(&s)
}

// UpsertCharacter inserts or replaces a character record and persists it.
func (l *Ledger) UpsertCharacter(c Character) error {
	if c.ID == "" {
		return fmt.Errorf("character has no id")
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	l.characters[c.ID] = &c
	if err := l.store.UpsertCharacter(c); err != nil {
		return fmt.Errorf("persist character %s: %w", c.ID, err)
	}
	if err := l.store.Save(); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}

// Scene returns a copy of the scene record.
func (l *Ledger) Scene(id int) (Scene, error) {
	s, ok := l.scenes[id]
	if !ok {
		return Scene{}, &NotFoundError{SceneID: id}
	}
	return *s, nil
}

// Scenes returns copies of all scenes in ascending id order.
func (l *Ledger) Scenes() []Scene {
	out := make([]Scene, 0, len(l.scenes))
	for _, s := range l.scenes {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Characters returns copies of all characters sorted by id.
func (l *Ledger) Characters() []Character {
	out := make([]Character, 0, len(l.characters))
	for _, c := range l.characters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingForStage returns copies of every scene whose given stage is not
// done, in ascending scene-id order. The order is what makes pass results
// reproducible.
func (l *Ledger) PendingForStage(stage Stage) []Scene {
	var out []Scene
	for _, s := range l.scenes {
		if s.stage(stage).Status != StatusDone {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BeginAttempt marks the stage generating and increments its attempt
// counter. Starting a video attempt before the scene's image is done fails
// with *InvalidTransitionError; the guard is what enforces image-before-video
// ordering, not queue order.
func (l *Ledger) BeginAttempt(id int, stage Stage) error {
	s, ok := l.scenes[id]
	if !ok {
		return &NotFoundError{SceneID: id}
	}

	if stage == StageVideo && s.Image.Status != StatusDone {
		return &InvalidTransitionError{
			SceneID: id,
			Stage:   stage,
			From:    s.Video.Status,
			Reason:  fmt.Sprintf("image stage is %s, must be done before video", s.Image.Status),
		}
	}

	st := s.stage(stage)
	if st.Status == StatusDone {
		return &InvalidTransitionError{
			SceneID: id,
			Stage:   stage,
			From:    st.Status,
			Reason:  "stage already done",
		}
	}

	st.Status = StatusGenerating
	st.Attempts++
	return l.persistScene(s)
}

// Complete marks the stage done and records the artifact reference.
// Completing an already-done stage with the same artifact is a no-op; with
// a different artifact it is an *InvalidTransitionError, because done
// artifacts are never silently replaced.
func (l *Ledger) Complete(id int, stage Stage, artifact string) error {
	s, ok := l.scenes[id]
	if !ok {
		return &NotFoundError{SceneID: id}
	}

	st := s.stage(stage)
	if st.Status == StatusDone {
		if st.Artifact == artifact {
			return nil
		}
		return &InvalidTransitionError{
			SceneID: id,
			Stage:   stage,
			From:    st.Status,
			Reason:  fmt.Sprintf("already done with artifact %q", st.Artifact),
		}
	}

	st.Status = StatusDone
	st.Artifact = artifact
	return l.persistScene(s)
}

// Fail marks the stage errored. The record stays re-enterable: a later pass
// picks it up again through PendingForStage.
func (l *Ledger) Fail(id int, stage Stage) error {
	s, ok := l.scenes[id]
	if !ok {
		return &NotFoundError{SceneID: id}
	}

	st := s.stage(stage)
	st.Status = StatusError
	return l.persistScene(s)
}

// SetPrompts records the generated prompts for a scene and persists.
func (l *Ledger) SetPrompts(id int, imagePrompt, videoPrompt string) error {
	s, ok := l.scenes[id]
	if !ok {
		return &NotFoundError{SceneID: id}
	}
	s.ImagePrompt = imagePrompt
	s.VideoPrompt = videoPrompt
	return l.persistScene(s)
}

func (l *Ledger) persistScene(s *Scene) error {
	if err := l.store.UpsertScene(*s); err != nil {
		return fmt.Errorf("persist scene %d: %w", s.ID, err)
	}
	if err := l.store.Save(); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}

// Stats summarizes the ledger for status reporting.
type Stats struct {
	Characters int `json:"characters" yaml:"characters"`
	Scenes     int `json:"scenes" yaml:"scenes"`

	ScenesWithPrompts int `json:"scenesWithPrompts" yaml:"scenesWithPrompts"`

	ImagesDone    int `json:"imagesDone" yaml:"imagesDone"`
	ImagesPending int `json:"imagesPending" yaml:"imagesPending"`
	ImagesError   int `json:"imagesError" yaml:"imagesError"`

	VideosDone    int `json:"videosDone" yaml:"videosDone"`
	VideosPending int `json:"videosPending" yaml:"videosPending"`
	VideosError   int `json:"videosError" yaml:"videosError"`
}

// Stats computes counts over the current ledger contents.
func (l *Ledger) Stats() Stats {
	st := Stats{
		Characters: len(l.characters),
		Scenes:     len(l.scenes),
	}
	for _, s := range l.scenes {
		if s.ImagePrompt != "" {
			st.ScenesWithPrompts++
		}
		switch s.Image.Status {
		case StatusDone:
			st.ImagesDone++
		case StatusError:
			st.ImagesError++
		default:
			st.ImagesPending++
		}
		switch s.Video.Status {
		case StatusDone:
			st.VideosDone++
		case StatusError:
			st.VideosError++
		default:
			st.VideosPending++
		}
	}
	return st
}
