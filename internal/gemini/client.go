package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxreel/voxreel/internal/pool"
)

const (
	// DefaultBaseURL is the Gemini generateContent endpoint root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// placeholderKey is the value shipped in the sample config. Refusing it
	// at construction turns a guaranteed 403 loop into a startup error.
	placeholderKey = "YOUR_GEMINI_API_KEY_HERE"
)

// ErrNotConfigured is returned by New when keys or models are missing or the
// first key is still the sample placeholder.
var ErrNotConfigured = errors.New("gemini API not configured")

// Config holds construction parameters for Client.
type Config struct {
	APIKeys []string
	Models  []string

	BaseURL     string
	MaxRetries  int           // full rotations of the key×model space (default 3)
	RetryDelay  time.Duration // backoff after rate limit or transport failure (default 5s)
	RejectDelay time.Duration // short pause after a 400/403 before the next key (default 1s)
	Timeout     time.Duration // per-request HTTP timeout (default 120s)

	HTTPClient *http.Client // optional (tests)
	Logger     *slog.Logger
}

// Client calls the Gemini text-generation API with automatic rotation across
// two axes: the key axis advances on every retryable failure, and a full key
// cycle advances the model axis. Every key is therefore tried against the
// current model before the next model is attempted.
//
// A Client is not safe for concurrent use; the rotation cursors are plain
// fields owned by the single caller.
type Client struct {
	keys   []string
	models []string

	keyIdx   int
	modelIdx int

	// Per-key rotation bookkeeping, for run summaries only. Selection is
	// driven by the axis cursors, not by these records: a key that keeps
	// failing is still retried on every cycle.
	keyStats []pool.State

	baseURL     string
	maxRetries  int
	retryDelay  time.Duration
	rejectDelay time.Duration

	client *http.Client
	logger *slog.Logger
	sleep  func(context.Context, time.Duration)
}

// New validates cfg and builds a Client. Both axes must be non-empty and the
// first key must be a real credential.
func New(cfg Config) (*Client, error) {
	if len(cfg.APIKeys) == 0 || cfg.APIKeys[0] == placeholderKey {
		return nil, fmt.Errorf("%w: set gemini.api_keys in config.yaml", ErrNotConfigured)
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("%w: set gemini.models in config.yaml", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.RejectDelay == 0 {
		cfg.RejectDelay = time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	stats := make([]pool.State, len(cfg.APIKeys))
	for i := range stats {
		stats[i] = pool.State{ID: fmt.Sprintf("key#%d", i+1), Enabled: true}
	}

	return &Client{
		keys:        cfg.APIKeys,
		models:      cfg.Models,
		keyStats:    stats,
		baseURL:     cfg.BaseURL,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		rejectDelay: cfg.RejectDelay,
		client:      cfg.HTTPClient,
		logger:      cfg.Logger,
		sleep:       sleepCtx,
	}, nil
}

// Request is one generation call: an optional system priming turn followed
// by the user prompt, plus sampling parameters.
type Request struct {
	System string
	Prompt string

	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// attemptOutcome classifies one API attempt.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRotateBackoff // rate limit, transport error, unexpected status
	outcomeRotateShort   // bad request / invalid credential
	outcomeFatal         // not retryable: caller bug or cancelled context
)

// Generate issues the request, rotating keys and models on failure. It fails
// with *ExhaustedError only after MaxRetries full passes over every key and
// model combination.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	budget := c.maxRetries * len(c.keys) * len(c.models)
	var lastErr error

	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		c.keyStats[c.keyIdx].UsageCount++
		c.keyStats[c.keyIdx].LastUsed = time.Now()

		text, outcome, err := c.attempt(ctx, body)
		switch outcome {
		case outcomeSuccess:
			return text, nil
		case outcomeFatal:
			return "", err
		case outcomeRotateShort:
			c.keyStats[c.keyIdx].ErrorCount++
			lastErr = err
			c.logger.Warn("gemini credential rejected, rotating",
				"attempt", attempt, "key", c.keyIdx+1, "model", c.model(), "err", err)
			c.rotate()
			c.sleep(ctx, c.rejectDelay)
		default: // outcomeRotateBackoff
			c.keyStats[c.keyIdx].ErrorCount++
			lastErr = err
			c.logger.Warn("gemini call failed, rotating",
				"attempt", attempt, "key", c.keyIdx+1, "model", c.model(), "err", err)
			c.rotate()
			c.sleep(ctx, c.retryDelay)
		}
	}

	return "", &ExhaustedError{
		Attempts: budget,
		Keys:     len(c.keys),
		Models:   len(c.models),
		Last:     lastErr,
	}
}

// attempt performs a single HTTP call against the current key/model pair.
func (c *Client) attempt(ctx context.Context, body []byte) (string, attemptOutcome, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model(), c.key())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", outcomeFatal, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", outcomeFatal, ctx.Err()
		}
		return "", outcomeRotateBackoff, fmt.Errorf("gemini transport: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", outcomeRotateBackoff, fmt.Errorf("read gemini response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		text, err := extractText(respBody)
		if err != nil {
			// The call itself succeeded; an empty candidate list is the
			// server refusing the prompt, not a credential problem.
			return "", outcomeFatal, err
		}
		return text, outcomeSuccess, nil
	case http.StatusTooManyRequests:
		return "", outcomeRotateBackoff, fmt.Errorf("gemini rate limited (429): %s", truncate(respBody, 200))
	case http.StatusBadRequest, http.StatusForbidden:
		return "", outcomeRotateShort, fmt.Errorf("gemini rejected request (%d): %s", resp.StatusCode, truncate(respBody, 200))
	default:
		return "", outcomeRotateBackoff, fmt.Errorf("gemini error (%d): %s", resp.StatusCode, truncate(respBody, 200))
	}
}

// rotate advances the key axis; wrapping the key axis advances the model
// axis. The selected pair is always (keys[keyIdx], models[modelIdx]).
func (c *Client) rotate() {
	c.keyIdx = (c.keyIdx + 1) % len(c.keys)
	if c.keyIdx == 0 {
		c.modelIdx = (c.modelIdx + 1) % len(c.models)
		c.logger.Info("rotated to model", "model", c.model())
	}
}

func (c *Client) key() string   { return c.keys[c.keyIdx] }
func (c *Client) model() string { return c.models[c.modelIdx] }

// KeyStats returns a copy of the per-key usage and error counters.
func (c *Client) KeyStats() []pool.State {
	out := make([]pool.State, len(c.keyStats))
	copy(out, c.keyStats)
	return out
}

// geminiPayload is the generateContent wire format.
type geminiPayload struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func buildPayload(req Request) geminiPayload {
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}
	if req.TopK == 0 {
		req.TopK = 40
	}
	if req.TopP == 0 {
		req.TopP = 0.95
	}
	if req.MaxOutputTokens == 0 {
		req.MaxOutputTokens = 8192
	}

	var contents []geminiContent
	if req.System != "" {
		// The v1beta endpoint has no system role; prime with a user/model
		// exchange the way the API docs suggest.
		contents = append(contents,
			geminiContent{Role: "user", Parts: []geminiPart{{Text: req.System}}},
			geminiContent{Role: "model", Parts: []geminiPart{{Text: "I understand. I will follow these instructions."}}},
		)
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}})

	return geminiPayload{
		Contents: contents,
		GenerationConfig: geminiGenConfig{
			Temperature:     req.Temperature,
			TopK:            req.TopK,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}
}

// geminiResponse is the subset of the generateContent response we consume.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func extractText(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from gemini API")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
