package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const whisperDefaultModel = "base"

// whisperCLI implements Transcriber by shelling out to a local whisper
// install. Useful when audio must not leave the machine.
type whisperCLI struct {
	binary string
	model  string
	logger *slog.Logger
}

func newWhisperCLI(cfg Config) *whisperCLI {
	binary := cfg.Binary
	if binary == "" {
		binary = "whisper"
	}
	model := cfg.WhisperModel
	if model == "" {
		model = whisperDefaultModel
	}
	return &whisperCLI{binary: binary, model: model, logger: cfg.Logger}
}

func (t *whisperCLI) Transcribe(ctx context.Context, audioPath, srtPath, language string) error {
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(srtPath), 0o755); err != nil {
		return fmt.Errorf("create srt dir: %w", err)
	}

	// whisper names its output after the input stem, so run it in a
	// scratch dir and move the result where the caller asked.
	workDir, err := os.MkdirTemp("", "voxreel-whisper-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	args := []string{
		audioPath,
		"--model", t.model,
		"--output_format", "srt",
		"--output_dir", workDir,
		"--verbose", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	t.logger.Info("running whisper", "binary", t.binary, "model", t.model, "file", filepath.Base(audioPath))

	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("whisper failed: %w: %s", err, firstLines(stderr.String(), 5))
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	produced := filepath.Join(workDir, stem+".srt")
	data, err := os.ReadFile(produced)
	if err != nil {
		return fmt.Errorf("whisper produced no srt output: %w", err)
	}
	if err := os.WriteFile(srtPath, data, 0o644); err != nil {
		return fmt.Errorf("write srt file: %w", err)
	}

	t.logger.Info("srt file written", "file", filepath.Base(srtPath))
	return nil
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
