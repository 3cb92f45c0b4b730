// Package transcribe converts project voice tracks into SRT subtitle files.
// Two backends are supported: the OpenAI transcription API and a local
// whisper CLI for fully offline runs.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Transcriber converts an audio file into an SRT file on disk.
type Transcriber interface {
	// Transcribe reads the audio at audioPath and writes SRT subtitles to
	// srtPath, creating parent directories as needed. language is an
	// optional ISO-639-1 hint; empty means autodetect.
	Transcribe(ctx context.Context, audioPath, srtPath, language string) error
}

// Config selects and configures a transcription backend.
type Config struct {
	Backend string // "openai" (default) or "whisper"

	// OpenAI backend.
	APIKey  string
	Model   string // default whisper-1
	BaseURL string // optional (tests)
	Timeout time.Duration

	// Whisper CLI backend.
	Binary       string // default "whisper"
	WhisperModel string // tiny, base, small, medium, large (default base)

	Logger *slog.Logger
}

// New builds the configured Transcriber.
func New(cfg Config) (Transcriber, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch cfg.Backend {
	case "", "openai":
		return newOpenAI(cfg)
	case "whisper":
		return newWhisperCLI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q (want openai or whisper)", cfg.Backend)
	}
}
