package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init CODE VOICE_FILE",
	Short: "Create a new project from a voice track",
	Long: `Create a new project directory under the voxreel home and import the
voice track. The project code names everything downstream: the SRT file,
the prompt workbook, and the generated artifacts.

Examples:
  voxreel init KA1-0001 ~/recordings/episode1.mp3`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, voiceFile := args[0], args[1]

		ext := strings.ToLower(filepath.Ext(voiceFile))
		if ext != ".mp3" && ext != ".wav" {
			return fmt.Errorf("unsupported voice format %q (want .mp3 or .wav)", ext)
		}
		if _, err := os.Stat(voiceFile); err != nil {
			return fmt.Errorf("voice file: %w", err)
		}

		cm, err := loadConfig()
		if err != nil {
			return err
		}
		h, err := newHome(cm.Get())
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// First run: drop a commented default config next to the projects.
		if !h.ConfigExists() {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
			fmt.Printf("Wrote default config to %s\n", h.ConfigPath())
		}

		p := h.Project(code)
		if p.Exists() {
			return fmt.Errorf("project %s already exists at %s", code, p.Path())
		}
		if err := p.EnsureStructure(); err != nil {
			return err
		}

		dst := filepath.Join(p.Path(), code+ext)
		if err := copyFile(voiceFile, dst); err != nil {
			return fmt.Errorf("import voice track: %w", err)
		}

		fmt.Printf("Initialized project %s at %s\n", code, p.Path())
		return nil
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func init() {
	rootCmd.AddCommand(initCmd)
}
