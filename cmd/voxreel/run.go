package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/browser"
	"github.com/voxreel/voxreel/internal/config"
	"github.com/voxreel/voxreel/internal/flowslab"
	"github.com/voxreel/voxreel/internal/gemini"
	"github.com/voxreel/voxreel/internal/ledger"
	"github.com/voxreel/voxreel/internal/orchestrator"
	"github.com/voxreel/voxreel/internal/output"
	"github.com/voxreel/voxreel/internal/pool"
	"github.com/voxreel/voxreel/internal/project"
	"github.com/voxreel/voxreel/internal/prompts"
	"github.com/voxreel/voxreel/internal/srt"
	"github.com/voxreel/voxreel/internal/transcribe"
)

var (
	runSteps         string
	overwritePrompts bool
	runOnlyImage     bool
	runOnlyVideo     bool
)

var knownSteps = []string{"transcribe", "prompts", "image", "video"}

var runCmd = &cobra.Command{
	Use:   "run CODE",
	Short: "Run pipeline steps for a project",
	Long: `Run one or more pipeline steps against a project. Steps always
execute in pipeline order regardless of how they are listed.

Every step is resumable: transcription is skipped when the SRT already
exists, prompt synthesis only fills scenes without prompts (unless
--overwrite-prompts), and generation picks up every scene that is not done.

Examples:
  voxreel run KA1-0001                          # everything
  voxreel run KA1-0001 --steps transcribe,prompts
  voxreel run KA1-0001 --steps image,video
  voxreel run KA1-0001 --steps image --only-image`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		code := args[0]

		steps, err := parseSteps(runSteps)
		if err != nil {
			return err
		}
		if runOnlyImage && runOnlyVideo {
			return fmt.Errorf("--only-image and --only-video are mutually exclusive")
		}

		cm, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := cm.Get()
		// Every run gets an id so interleaved log lines from repeated runs
		// stay attributable.
		logger := newLogger(cfg).With("run", uuid.NewString()[:8])

		h, err := newHome(cfg)
		if err != nil {
			return err
		}
		p := h.Project(code)
		if !p.Exists() {
			return fmt.Errorf("project %s not found (run 'voxreel init' first)", code)
		}

		if steps["transcribe"] {
			if err := stepTranscribe(ctx, cfg, p, logger); err != nil {
				return fmt.Errorf("transcribe: %w", err)
			}
		}

		var led *ledger.Ledger
		if steps["prompts"] || steps["image"] || steps["video"] {
			store, err := ledger.OpenXLSX(p.WorkbookPath())
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			led, err = ledger.Load(store, logger)
			if err != nil {
				return err
			}
		}

		if steps["prompts"] {
			if err := stepPrompts(ctx, cfg, p, led, logger); err != nil {
				return fmt.Errorf("prompts: %w", err)
			}
		}

		if steps["image"] || steps["video"] {
			onlyImage := runOnlyImage || (steps["image"] && !steps["video"])
			onlyVideo := runOnlyVideo || (steps["video"] && !steps["image"])
			if err := stepGenerate(ctx, cfg, h, p, led, logger, onlyImage, onlyVideo); err != nil {
				return fmt.Errorf("generate: %w", err)
			}
		}

		return nil
	},
}

// parseSteps expands the --steps flag into a set.
func parseSteps(v string) (map[string]bool, error) {
	steps := make(map[string]bool)
	if v == "" || v == "all" {
		for _, s := range knownSteps {
			steps[s] = true
		}
		return steps, nil
	}
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		known := false
		for _, k := range knownSteps {
			if s == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown step %q (want %s or all)", s, strings.Join(knownSteps, ", "))
		}
		steps[s] = true
	}
	return steps, nil
}

// stepTranscribe produces the project SRT from the voice track. A project
// that already has subtitles is left alone.
func stepTranscribe(ctx context.Context, cfg *config.Config, p *project.Project, logger *slog.Logger) error {
	if p.HasSrt() {
		logger.Info("subtitles already exist, skipping transcription", "file", p.SrtPath())
		return nil
	}
	voice := p.VoicePath()
	if voice == "" {
		return fmt.Errorf("no voice track in %s (want %s.mp3 or .wav)", p.Path(), p.Code())
	}

	t, err := transcribe.New(transcribe.Config{
		Backend:      cfg.Transcribe.Backend,
		APIKey:       config.ResolveEnvVars(cfg.Transcribe.APIKey),
		Model:        cfg.Transcribe.Model,
		Binary:       cfg.Transcribe.WhisperBinary,
		WhisperModel: cfg.Transcribe.WhisperModel,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	return t.Transcribe(ctx, voice, p.SrtPath(), cfg.Transcribe.Language)
}

// stepPrompts groups the SRT into scenes, extracts the character roster, and
// fills in image/video prompts for every scene that needs them.
func stepPrompts(ctx context.Context, cfg *config.Config, p *project.Project, led *ledger.Ledger, logger *slog.Logger) error {
	entries, err := srt.ParseFile(p.SrtPath())
	if err != nil {
		return err
	}
	scenes := srt.GroupScenes(entries, cfg.Scenes.MinDuration(), cfg.Scenes.MaxDuration())
	if len(scenes) == 0 {
		return fmt.Errorf("no scenes in %s", p.SrtPath())
	}
	logger.Info("grouped subtitles into scenes", "entries", len(entries), "scenes", len(scenes))

	gen, err := gemini.New(gemini.Config{
		APIKeys:    cfg.Gemini.ResolvedKeys(),
		Models:     cfg.Gemini.Models,
		MaxRetries: cfg.Gemini.MaxRetries,
		RetryDelay: cfg.Gemini.RetryDelay(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	synth := prompts.NewSynthesizer(gen, logger)

	if len(led.Characters()) == 0 || overwritePrompts {
		var story strings.Builder
		for _, e := range entries {
			story.WriteString(e.Text)
			story.WriteString(" ")
		}
		chars, err := synth.Characters(ctx, story.String())
		if err != nil {
			return fmt.Errorf("extract characters: %w", err)
		}
		for _, c := range chars {
			if err := led.UpsertCharacter(c); err != nil {
				return err
			}
		}
		logger.Info("character roster written", "characters", len(chars))
	}

	// Register scenes the ledger has not seen, then collect the ones still
	// missing prompts.
	var need []srt.Scene
	for _, sc := range scenes {
		rec, err := led.Scene(sc.ID)
		if err != nil {
			rec = ledger.Scene{
				ID:       sc.ID,
				SrtStart: srt.FormatTimestamp(sc.Start),
				SrtEnd:   srt.FormatTimestamp(sc.End),
				Text:     sc.Text,
			}
			if err := led.AddScene(rec); err != nil {
				return err
			}
		}
		if rec.ImagePrompt == "" || overwritePrompts {
			need = append(need, sc)
		}
	}
	if len(need) == 0 {
		logger.Info("all scenes already have prompts")
		return nil
	}

	generated, err := synth.ScenePrompts(ctx, need, led.Characters())
	if err != nil {
		return err
	}
	for id, sp := range generated {
		if err := led.SetPrompts(id, sp.Image, sp.Video); err != nil {
			return err
		}
	}
	logger.Info("scene prompts written", "scenes", len(generated))
	return nil
}

// stepGenerate runs one orchestrator pass over the image and video queues,
// managing the browser container around it.
func stepGenerate(ctx context.Context, cfg *config.Config, h *project.Home, p *project.Project, led *ledger.Ledger, logger *slog.Logger, onlyImage, onlyVideo bool) error {
	accounts, err := pool.LoadAccounts(h.AccountsPath())
	if err != nil {
		return err
	}
	acctPool, err := pool.New(accounts, cfg.FlowsLab.MaxScenesPerAccount, logger)
	if err != nil {
		return err
	}

	profileDir := filepath.Join(h.Path(), "browser-profile")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return err
	}
	mgr, err := browser.NewDockerManager(browser.DockerConfig{
		ContainerName: cfg.Browser.ContainerName,
		Image:         cfg.Browser.Image,
		ProfilePath:   profileDir,
		HostPort:      strconv.Itoa(cfg.Browser.DebugPort),
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.Start(ctx); err != nil {
		return err
	}
	wsURL, err := mgr.WebSocketURL(ctx)
	if err != nil {
		return err
	}

	client, err := flowslab.New(ctx, flowslab.Config{
		BaseURL:           cfg.FlowsLab.BaseURL,
		DevToolsURL:       wsURL,
		GenerationTimeout: cfg.FlowsLab.GenerationTimeout(),
		VideoTimeout:      cfg.FlowsLab.VideoTimeout(),
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	// Character reference images uploaded with every image generation.
	var refs []string
	for _, c := range led.Characters() {
		ref := p.RefImagePath(c.ID)
		if _, err := os.Stat(ref); err == nil {
			refs = append(refs, ref)
		}
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Accounts:  acctPool,
		Ledger:    led,
		Generator: client,
		Paths:     p,
		RefImages: refs,
		OnlyImage: onlyImage,
		OnlyVideo: onlyVideo,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	rep, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	return output.Render(rep)
}

func init() {
	runCmd.Flags().StringVar(&runSteps, "steps", "all", "comma-separated steps: transcribe,prompts,image,video or all")
	runCmd.Flags().BoolVar(&overwritePrompts, "overwrite-prompts", false, "regenerate characters and prompts even when present")
	runCmd.Flags().BoolVar(&runOnlyImage, "only-image", false, "restrict the generation pass to the image stage")
	runCmd.Flags().BoolVar(&runOnlyVideo, "only-video", false, "restrict the generation pass to the video stage")

	rootCmd.AddCommand(runCmd)
}
