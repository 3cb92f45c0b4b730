// Package prompts turns a transcript into character descriptions and
// per-scene image/video generation prompts via the Gemini API.
package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voxreel/voxreel/internal/gemini"
	"github.com/voxreel/voxreel/internal/ledger"
	"github.com/voxreel/voxreel/internal/srt"
)

const (
	// storyLimit caps the transcript sent for character analysis; beyond
	// this the model loses the plot anyway and token costs climb.
	storyLimit = 8000

	// batchSize is the number of scenes per Gemini call.
	batchSize = 10

	// batchPause spaces out consecutive batch calls.
	batchPause = 2 * time.Second
)

var (
	charactersSchema = gemini.MustCompileSchema("characters.json", charactersSchemaDoc)
	scenesSchema     = gemini.MustCompileSchema("scenes.json", scenesSchemaDoc)
)

// TextGenerator is the slice of the Gemini client the synthesizer needs.
type TextGenerator interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
}

// ScenePrompt is the pair of generation prompts for one scene.
type ScenePrompt struct {
	Image string
	Video string
}

// Synthesizer drives prompt generation: one call for the character roster,
// then scene prompts in batches.
type Synthesizer struct {
	gen    TextGenerator
	logger *slog.Logger
	sleep  func(context.Context, time.Duration)
}

// NewSynthesizer builds a Synthesizer on top of gen.
func NewSynthesizer(gen TextGenerator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		gen:    gen,
		logger: logger,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

type characterDoc struct {
	Characters []struct {
		ID            string `json:"id"`
		Role          string `json:"role"`
		Name          string `json:"name"`
		EnglishPrompt string `json:"english_prompt"`
		NativePrompt  string `json:"native_prompt"`
	} `json:"characters"`
}

// Characters analyzes the full story text and returns the character roster.
// A main character is always present: if the model fails to designate one,
// a default is prepended so scene prompts have an anchor to reference.
func (s *Synthesizer) Characters(ctx context.Context, story string) ([]ledger.Character, error) {
	if len(story) > storyLimit {
		story = story[:storyLimit]
	}

	prompt := fmt.Sprintf("Analyze this story and identify the characters:\n\n---\n%s\n---\n\nFollow the instructions to create character descriptions.", story)

	raw, err := s.gen.Generate(ctx, gemini.Request{System: systemCharacters, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("generate characters: %w", err)
	}

	var doc characterDoc
	if err := gemini.Decode(raw, charactersSchema, &doc); err != nil {
		return nil, err
	}

	chars := make([]ledger.Character, 0, len(doc.Characters))
	for _, c := range doc.Characters {
		chars = append(chars, ledger.Character{
			ID:           c.ID,
			Role:         c.Role,
			Name:         c.Name,
			Prompt:       c.EnglishPrompt,
			NativePrompt: c.NativePrompt,
			ImageFile:    c.ID + ".png",
			Status:       ledger.StatusPending,
		})
	}

	if !hasMain(chars) {
		s.logger.Warn("no main character identified, inserting default")
		chars = append([]ledger.Character{{
			ID:        "nvc",
			Role:      "main",
			Name:      "Main Character",
			Prompt:    "A young adult with kind eyes and warm smile, mid-20s",
			ImageFile: "nvc.png",
			Status:    ledger.StatusPending,
		}}, chars...)
	}

	return chars, nil
}

func hasMain(chars []ledger.Character) bool {
	for _, c := range chars {
		if c.Role == "main" {
			return true
		}
	}
	return false
}

type sceneDoc struct {
	Scenes []struct {
		SceneID     int    `json:"scene_id"`
		ImgPrompt   string `json:"img_prompt"`
		VideoPrompt string `json:"video_prompt"`
	} `json:"scenes"`
}

// ScenePrompts generates image and video prompts for every scene, in
// batches. A failed batch does not fail the run: its scenes get placeholder
// prompts so the pipeline can continue and the operator can regenerate later.
func (s *Synthesizer) ScenePrompts(ctx context.Context, scenes []srt.Scene, chars []ledger.Character) (map[int]ScenePrompt, error) {
	charRef := characterReference(chars)
	out := make(map[int]ScenePrompt, len(scenes))

	for i := 0; i < len(scenes); i += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + batchSize
		if end > len(scenes) {
			end = len(scenes)
		}
		batch := scenes[i:end]
		s.logger.Info("generating scene prompts", "from", batch[0].ID, "to", batch[len(batch)-1].ID)

		if err := s.generateBatch(ctx, charRef, batch, out); err != nil {
			s.logger.Error("batch failed, writing placeholder prompts", "err", err)
			for _, sc := range batch {
				if _, ok := out[sc.ID]; !ok {
					out[sc.ID] = placeholderPrompt(sc)
				}
			}
		}

		if end < len(scenes) {
			s.sleep(ctx, batchPause)
		}
	}

	return out, nil
}

func (s *Synthesizer) generateBatch(ctx context.Context, charRef string, batch []srt.Scene, out map[int]ScenePrompt) error {
	var sceneTexts []string
	for _, sc := range batch {
		sceneTexts = append(sceneTexts, fmt.Sprintf("Scene %d (%s - %s):\n%s",
			sc.ID, srt.FormatTimestamp(sc.Start), srt.FormatTimestamp(sc.End), sc.Text))
	}

	prompt := fmt.Sprintf(`CHARACTER REFERENCE:
%s

SCENES TO PROCESS:
%s

Create image and video prompts for each scene. Remember:
- Main character MUST reference nvc.png
- Supporting characters MUST reference their respective image files (nvp1.png, etc.)
- Each prompt should describe the scene vividly
- Include mood, lighting, and composition details`, charRef, strings.Join(sceneTexts, "\n"))

	raw, err := s.gen.Generate(ctx, gemini.Request{System: systemScenes, Prompt: prompt})
	if err != nil {
		return err
	}

	var doc sceneDoc
	if err := gemini.Decode(raw, scenesSchema, &doc); err != nil {
		return err
	}

	for _, sp := range doc.Scenes {
		if sp.SceneID == 0 {
			continue
		}
		out[sp.SceneID] = ScenePrompt{Image: sp.ImgPrompt, Video: sp.VideoPrompt}
	}
	return nil
}

// RegenerateScene produces fresh prompts for a single scene using the
// characters and subtitle text already in the ledger, and records them.
func (s *Synthesizer) RegenerateScene(ctx context.Context, l *ledger.Ledger, sceneID int, instructions string) (ScenePrompt, error) {
	scene, err := l.Scene(sceneID)
	if err != nil {
		return ScenePrompt{}, err
	}

	prompt := fmt.Sprintf(`CHARACTERS:
%s

SCENE %d:
Time: %s - %s
Text: %s

%s

Create new image and video prompts for this scene.
Remember to reference character image files (nvc.png, nvp1.png, etc.)`,
		characterReference(l.Characters()), sceneID, scene.SrtStart, scene.SrtEnd, scene.Text, instructions)

	raw, err := s.gen.Generate(ctx, gemini.Request{System: systemScenes, Prompt: prompt})
	if err != nil {
		return ScenePrompt{}, fmt.Errorf("regenerate scene %d: %w", sceneID, err)
	}

	var doc sceneDoc
	if err := gemini.Decode(raw, scenesSchema, &doc); err != nil {
		return ScenePrompt{}, err
	}
	if len(doc.Scenes) == 0 {
		return ScenePrompt{}, &gemini.MalformedResponseError{
			Cause: fmt.Errorf("no scene in response for scene %d", sceneID),
			Raw:   raw,
		}
	}

	sp := ScenePrompt{Image: doc.Scenes[0].ImgPrompt, Video: doc.Scenes[0].VideoPrompt}
	if err := l.SetPrompts(sceneID, sp.Image, sp.Video); err != nil {
		return ScenePrompt{}, err
	}

	s.logger.Info("regenerated prompts", "scene", sceneID)
	return sp, nil
}

func characterReference(chars []ledger.Character) string {
	var lines []string
	for _, c := range chars {
		desc := c.Prompt
		if len(desc) > 200 {
			desc = desc[:200]
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", c.ID, c.Name, desc))
	}
	return strings.Join(lines, "\n")
}

func placeholderPrompt(sc srt.Scene) ScenePrompt {
	text := sc.Text
	if len(text) > 100 {
		text = text[:100]
	}
	return ScenePrompt{
		Image: fmt.Sprintf("Scene depicting: %s...", text),
		Video: "Slow camera movement with gentle motion",
	}
}
