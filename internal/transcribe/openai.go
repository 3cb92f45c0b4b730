package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const openAIDefaultModel = "whisper-1"

// openAITranscriber implements Transcriber using the OpenAI audio API. The
// SRT response format is requested directly so no local timestamp assembly
// is needed.
type openAITranscriber struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func newOpenAI(cfg Config) (*openAITranscriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai transcription requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openAITranscriber{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

func (t *openAITranscriber) Transcribe(ctx context.Context, audioPath, srtPath, language string) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	t.logger.Info("transcribing audio", "file", filepath.Base(audioPath), "model", t.model)

	params := openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioResponseFormatSRT,
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	// SRT responses are plain text, not JSON; capture the body raw instead
	// of letting the SDK decode it.
	var body string
	if _, err := t.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&body)); err != nil {
		return fmt.Errorf("openai transcription: %w", err)
	}
	if body == "" {
		return errors.New("openai transcription returned empty subtitles")
	}

	if err := os.MkdirAll(filepath.Dir(srtPath), 0o755); err != nil {
		return fmt.Errorf("create srt dir: %w", err)
	}
	if err := os.WriteFile(srtPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write srt file: %w", err)
	}

	t.logger.Info("srt file written", "file", filepath.Base(srtPath))
	return nil
}
