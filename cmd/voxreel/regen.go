package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/gemini"
	"github.com/voxreel/voxreel/internal/ledger"
	"github.com/voxreel/voxreel/internal/output"
	"github.com/voxreel/voxreel/internal/prompts"
)

var regenInstructions string

var regenCmd = &cobra.Command{
	Use:   "regen CODE SCENE_ID",
	Short: "Regenerate the prompts for a single scene",
	Long: `Regenerate the image and video prompts for one scene, optionally
steering the result with extra instructions. The new prompts are written to
the workbook immediately.

Examples:
  voxreel regen KA1-0001 7
  voxreel regen KA1-0001 7 --instructions "make it a night scene"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := args[0]
		sceneID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("scene id must be a number: %q", args[1])
		}

		cm, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := cm.Get()
		logger := newLogger(cfg)

		h, err := newHome(cfg)
		if err != nil {
			return err
		}
		p := h.Project(code)
		if !p.HasWorkbook() {
			return fmt.Errorf("project %s has no prompt workbook (run 'voxreel run %s --steps prompts' first)", code, code)
		}

		store, err := ledger.OpenXLSX(p.WorkbookPath())
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
		led, err := ledger.Load(store, logger)
		if err != nil {
			return err
		}

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
		sp, err := synth.RegenerateScene(cmd.Context(), led, sceneID, regenInstructions)
		if err != nil {
			return err
		}

		return output.Render(struct {
			Scene       int    `json:"scene" yaml:"scene"`
			ImagePrompt string `json:"imagePrompt" yaml:"imagePrompt"`
			VideoPrompt string `json:"videoPrompt" yaml:"videoPrompt"`
		}{sceneID, sp.Image, sp.Video})
	},
}

func init() {
	regenCmd.Flags().StringVar(&regenInstructions, "instructions", "", "extra guidance for the new prompts")

	rootCmd.AddCommand(regenCmd)
}
