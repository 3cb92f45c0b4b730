package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/config"
	"github.com/voxreel/voxreel/internal/output"
	"github.com/voxreel/voxreel/internal/project"
	"github.com/voxreel/voxreel/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "voxreel",
	Short: "Narrated-audio to scene video pipeline",
	Long: `VoxReel turns a narrated voice track into per-scene images and videos.

The pipeline includes:
  - Audio transcription to SRT subtitles (OpenAI API or local whisper)
  - Scene grouping with duration bounds and sentence-aware splits
  - Character and scene prompt synthesis with key/model rotation
  - Browser-driven image and video generation with account rotation

All job state is persisted to a per-project workbook after every step,
so interrupted runs resume where they left off.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.voxreel/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "voxreel home directory (default: ~/.voxreel)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the config manager from the --config flag.
func loadConfig() (*config.Manager, error) {
	return config.NewManager(cfgFile)
}

// newHome resolves the voxreel home directory: --home flag first, then the
// config file, then ~/.voxreel.
func newHome(cfg *config.Config) (*project.Home, error) {
	path := homeDir
	if path == "" {
		path = cfg.Home
	}
	return project.NewHome(path)
}

// newLogger builds the process logger at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
