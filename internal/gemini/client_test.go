package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// attemptLog records the key/model pair of each request the fake server saw.
type attemptLog struct {
	pairs []string
}

func (l *attemptLog) record(r *http.Request) {
	model := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/models/"), ":generateContent")
	l.pairs = append(l.pairs, r.URL.Query().Get("key")+"/"+model)
}

func geminiOK(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func newTestClient(t *testing.T, url string, keys, models []string, retries int) *Client {
	t.Helper()
	c, err := New(Config{
		APIKeys:    keys,
		Models:     models,
		BaseURL:    url,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.sleep = func(context.Context, time.Duration) {} // no real backoff in tests
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no keys", Config{Models: []string{"m"}}},
		{"placeholder key", Config{APIKeys: []string{"YOUR_GEMINI_API_KEY_HERE"}, Models: []string{"m"}}},
		{"no models", Config{APIKeys: []string{"k"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrNotConfigured) {
				t.Fatalf("expected ErrNotConfigured, got %v", err)
			}
		})
	}
}

func TestGenerate_Success(t *testing.T) {
	var log attemptLog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.record(r)
		fmt.Fprint(w, geminiOK("hello"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, []string{"k1", "k2"}, []string{"m1"}, 3)

	text, err := c.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
	if len(log.pairs) != 1 {
		t.Errorf("made %d attempts, want 1", len(log.pairs))
	}
	if c.keyIdx != 0 || c.modelIdx != 0 {
		t.Error("success must not rotate")
	}
}

func TestGenerate_DualAxisExhaustion(t *testing.T) {
	var log attemptLog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.record(r)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Run("attempt budget is retries times keys times models", func(t *testing.T) {
		log.pairs = nil
		c := newTestClient(t, srv.URL, []string{"k1", "k2"}, []string{"m1"}, 1)

		_, err := c.Generate(context.Background(), Request{Prompt: "hi"})
		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected ExhaustedError, got %v", err)
		}
		if exhausted.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", exhausted.Attempts)
		}
		if len(log.pairs) != 2 {
			t.Errorf("server saw %d attempts, want 2", len(log.pairs))
		}
	})

	t.Run("key axis rotates before model axis", func(t *testing.T) {
		log.pairs = nil
		c := newTestClient(t, srv.URL, []string{"k1", "k2"}, []string{"m1", "m2"}, 1)

		_, err := c.Generate(context.Background(), Request{Prompt: "hi"})
		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected ExhaustedError, got %v", err)
		}

		want := []string{"k1/m1", "k2/m1", "k1/m2", "k2/m2"}
		if len(log.pairs) != len(want) {
			t.Fatalf("server saw %d attempts, want %d: %v", len(log.pairs), len(want), log.pairs)
		}
		for i := range want {
			if log.pairs[i] != want[i] {
				t.Errorf("attempt %d used %s, want %s", i, log.pairs[i], want[i])
			}
		}
	})
}

func TestGenerate_RotatesThenSucceeds(t *testing.T) {
	statuses := []int{http.StatusTooManyRequests, http.StatusForbidden, http.StatusOK}
	var log attemptLog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.record(r)
		status := statuses[len(log.pairs)-1]
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprint(w, geminiOK("third time lucky"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, []string{"k1", "k2", "k3"}, []string{"m1"}, 2)

	text, err := c.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "third time lucky" {
		t.Errorf("text = %q", text)
	}
	want := []string{"k1/m1", "k2/m1", "k3/m1"}
	for i := range want {
		if log.pairs[i] != want[i] {
			t.Errorf("attempt %d used %s, want %s", i, log.pairs[i], want[i])
		}
	}

	stats := c.KeyStats()
	if stats[0].ErrorCount != 1 || stats[1].ErrorCount != 1 || stats[2].ErrorCount != 0 {
		t.Errorf("unexpected key error counts: %+v", stats)
	}
}

func TestGenerate_EmptyResponseIsFatal(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, []string{"k1", "k2"}, []string{"m1"}, 3)

	_, err := c.Generate(context.Background(), Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Fatalf("expected empty-response error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("empty 200 must not be retried, saw %d attempts", attempts)
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, []string{"k1"}, []string{"m1"}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, Request{Prompt: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
