package flowslab

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing base url", Config{DevToolsURL: "ws://127.0.0.1:9222/devtools/browser/abc"}},
		{"missing devtools url", Config{BaseURL: "https://labs.example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultSelectors_Complete(t *testing.T) {
	sel := DefaultSelectors()
	for name, v := range map[string]string{
		"LoginEmail":        sel.LoginEmail,
		"LoginPassword":     sel.LoginPassword,
		"LoginSubmit":       sel.LoginSubmit,
		"LoginSuccess":      sel.LoginSuccess,
		"ImagePrompt":       sel.ImagePrompt,
		"ImageRefUpload":    sel.ImageRefUpload,
		"ImageGenerate":     sel.ImageGenerate,
		"ImageResult":       sel.ImageResult,
		"ImageLoading":      sel.ImageLoading,
		"VideoSourceUpload": sel.VideoSourceUpload,
		"VideoPrompt":       sel.VideoPrompt,
		"VideoGenerate":     sel.VideoGenerate,
		"VideoResult":       sel.VideoResult,
		"VideoLoading":      sel.VideoLoading,
		"ErrorMessage":      sel.ErrorMessage,
		"CookieAccept":      sel.CookieAccept,
	} {
		if v == "" {
			t.Errorf("default selector %s is empty", name)
		}
	}
}

func TestGenerationError_Unwrap(t *testing.T) {
	cause := errors.New("still generating")
	err := &GenerationError{Op: "image", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("GenerationError should unwrap to its cause")
	}
	if got := err.Error(); got != "image generation: still generating" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWriteDataURL(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scene.png")

	// "hello" base64-encoded.
	if err := writeDataURL("data:image/png;base64,aGVsbG8=", out); err != nil {
		t.Fatalf("writeDataURL: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("decoded payload = %q", data)
	}

	t.Run("malformed", func(t *testing.T) {
		if err := writeDataURL("data:image/png;base64", out); err == nil {
			t.Error("expected error for data URL without payload")
		}
		if err := writeDataURL("data:image/png;base64,!!!", out); err == nil {
			t.Error("expected error for invalid base64")
		}
	})
}
