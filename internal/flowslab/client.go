// Package flowslab drives the FlowsLab web frontend through a DevTools
// session to generate scene images and videos. FlowsLab has no API; the
// browser is the API.
package flowslab

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/chromedp/chromedp"

	"github.com/voxreel/voxreel/internal/pool"
)

// Config holds construction parameters for Client.
type Config struct {
	BaseURL string

	// DevToolsURL is the browser-level WebSocket debugger URL, normally
	// obtained from browser.DockerManager.WebSocketURL.
	DevToolsURL string

	GenerationTimeout time.Duration // image generation deadline (default 5m)
	VideoTimeout      time.Duration // video generation deadline (default 10m)

	Selectors *Selectors // nil means DefaultSelectors
	Logger    *slog.Logger
}

// Client is a FlowsLab automation session bound to one browser tab and, once
// Login succeeds, one account.
type Client struct {
	baseURL    string
	genTimeout time.Duration
	vidTimeout time.Duration
	sel        Selectors
	logger     *slog.Logger

	tabCtx   context.Context
	cancel   context.CancelFunc
	loggedIn bool
	account  string

	httpClient *http.Client
}

// New connects to the browser and opens a fresh tab.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("flowslab base URL is required")
	}
	if cfg.DevToolsURL == "" {
		return nil, fmt.Errorf("devtools URL is required")
	}
	if cfg.GenerationTimeout == 0 {
		cfg.GenerationTimeout = 5 * time.Minute
	}
	if cfg.VideoTimeout == 0 {
		cfg.VideoTimeout = 10 * time.Minute
	}
	sel := DefaultSelectors()
	if cfg.Selectors != nil {
		sel = *cfg.Selectors
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, cfg.DevToolsURL)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Materialize the tab so connection failures surface here, not on the
	// first generation call.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("attach to browser: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		genTimeout: cfg.GenerationTimeout,
		vidTimeout: cfg.VideoTimeout,
		sel:        sel,
		logger:     cfg.Logger,
		tabCtx:     tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Close releases the browser tab.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Account returns the id of the account this session is logged in as.
func (c *Client) Account() string { return c.account }

// Login signs the session in as acct. A session that is already signed in
// as the same account is left alone; switching accounts re-authenticates.
func (c *Client) Login(ctx context.Context, acct *pool.Account) error {
	if c.loggedIn && c.account == acct.ID {
		return nil
	}

	c.logger.Info("logging in to flowslab", "account", acct.ID)

	ctx, cancel := c.withTab(ctx, time.Minute)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(c.baseURL+"/login"),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	c.dismissCookieBanner(ctx)

	// Already authenticated via the persisted profile?
	if c.visible(ctx, c.sel.LoginSuccess) {
		c.logger.Info("session already authenticated", "account", acct.ID)
		c.loggedIn = true
		c.account = acct.ID
		return nil
	}

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(c.sel.LoginEmail, chromedp.ByQuery),
		chromedp.Clear(c.sel.LoginEmail, chromedp.ByQuery),
		chromedp.SendKeys(c.sel.LoginEmail, acct.Email, chromedp.ByQuery),
		chromedp.Clear(c.sel.LoginPassword, chromedp.ByQuery),
		chromedp.SendKeys(c.sel.LoginPassword, acct.Password, chromedp.ByQuery),
		chromedp.Click(c.sel.LoginSubmit, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	if !c.visible(ctx, c.sel.LoginSuccess) {
		if msg := c.textOf(ctx, c.sel.ErrorMessage); msg != "" {
			return fmt.Errorf("%w for %s: %s", ErrAuthRejected, acct.ID, msg)
		}
		return fmt.Errorf("login failed for %s: no dashboard after submit", acct.ID)
	}

	c.loggedIn = true
	c.account = acct.ID
	c.logger.Info("logged in", "account", acct.ID)
	return nil
}

// GenerateImage submits the prompt (with optional reference images) and
// saves the result to outputPath.
func (c *Client) GenerateImage(ctx context.Context, prompt string, refImages []string, outputPath string) error {
	if !c.loggedIn {
		return fmt.Errorf("not logged in")
	}

	ctx, cancel := c.withTab(ctx, c.genTimeout)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(c.baseURL+"/image-generator"),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("open image generator: %w", err)
	}

	if len(refImages) > 0 {
		if err := c.uploadFiles(ctx, c.sel.ImageRefUpload, refImages); err != nil {
			// References improve consistency but are not required.
			c.logger.Warn("reference upload failed, continuing without", "err", err)
		}
	}

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(c.sel.ImagePrompt, chromedp.ByQuery),
		chromedp.Clear(c.sel.ImagePrompt, chromedp.ByQuery),
		chromedp.SendKeys(c.sel.ImagePrompt, prompt, chromedp.ByQuery),
		chromedp.Click(c.sel.ImageGenerate, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("submit image prompt: %w", err)
	}

	if err := c.waitGenerationDone(ctx, c.sel.ImageLoading, c.sel.ImageResult, c.genTimeout); err != nil {
		return &GenerationError{Op: "image", Err: err}
	}

	if err := c.saveMedia(ctx, c.sel.ImageResult, outputPath, true); err != nil {
		return &GenerationError{Op: "image", Err: fmt.Errorf("save result: %w", err)}
	}
	c.logger.Info("image saved", "file", filepath.Base(outputPath))
	return nil
}

// GenerateVideo animates sourceImage according to prompt and saves the
// result to outputPath.
func (c *Client) GenerateVideo(ctx context.Context, prompt, sourceImage, outputPath string) error {
	if !c.loggedIn {
		return fmt.Errorf("not logged in")
	}
	if _, err := os.Stat(sourceImage); err != nil {
		return fmt.Errorf("source image: %w", err)
	}

	ctx, cancel := c.withTab(ctx, c.vidTimeout)
	defer cancel()

	if err := chromedp.Run(ctx,
		chromedp.Navigate(c.baseURL+"/video-generator"),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("open video generator: %w", err)
	}

	if err := c.uploadFiles(ctx, c.sel.VideoSourceUpload, []string{sourceImage}); err != nil {
		return fmt.Errorf("upload source image: %w", err)
	}

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(c.sel.VideoPrompt, chromedp.ByQuery),
		chromedp.Clear(c.sel.VideoPrompt, chromedp.ByQuery),
		chromedp.SendKeys(c.sel.VideoPrompt, prompt, chromedp.ByQuery),
		chromedp.Click(c.sel.VideoGenerate, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("submit video prompt: %w", err)
	}

	if err := c.waitGenerationDone(ctx, c.sel.VideoLoading, c.sel.VideoResult, c.vidTimeout); err != nil {
		return &GenerationError{Op: "video", Err: err}
	}

	if err := c.saveMedia(ctx, c.sel.VideoResult, outputPath, false); err != nil {
		return &GenerationError{Op: "video", Err: fmt.Errorf("save result: %w", err)}
	}
	c.logger.Info("video saved", "file", filepath.Base(outputPath))
	return nil
}

// withTab derives a deadline-bound context from the session tab while still
// honoring the caller's cancellation.
func (c *Client) withTab(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tabCtx, cancelTimeout := context.WithTimeout(c.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancelTimeout)
	return tabCtx, func() {
		stop()
		cancelTimeout()
	}
}

func (c *Client) dismissCookieBanner(ctx context.Context) {
	if c.visible(ctx, c.sel.CookieAccept) {
		_ = chromedp.Run(ctx,
			chromedp.Click(c.sel.CookieAccept, chromedp.ByQuery),
			chromedp.Sleep(500*time.Millisecond),
		)
	}
}

// visible reports whether any element matches sel right now.
func (c *Client) visible(ctx context.Context, sel string) bool {
	var found bool
	err := chromedp.Run(ctx, chromedp.Evaluate(
		fmt.Sprintf("document.querySelector(%q) !== null", sel), &found))
	return err == nil && found
}

func (c *Client) textOf(ctx context.Context, sel string) string {
	var text string
	err := chromedp.Run(ctx, chromedp.Evaluate(
		fmt.Sprintf("document.querySelector(%q)?.textContent ?? ''", sel), &text))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (c *Client) uploadFiles(ctx context.Context, sel string, paths []string) error {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		if _, err := os.Stat(a); err != nil {
			return fmt.Errorf("upload file: %w", err)
		}
		abs[i] = a
	}
	return chromedp.Run(ctx,
		chromedp.SetUploadFiles(sel, abs, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
	)
}

// waitGenerationDone polls until the loading indicator is gone and the
// result element is present, or the timeout elapses.
func (c *Client) waitGenerationDone(ctx context.Context, loadingSel, resultSel string, timeout time.Duration) error {
	const pollInterval = 2 * time.Second

	return retry.Do(
		func() error {
			if c.visible(ctx, loadingSel) {
				return fmt.Errorf("still generating")
			}
			if !c.visible(ctx, resultSel) {
				if msg := c.textOf(ctx, c.sel.ErrorMessage); msg != "" {
					return retry.Unrecoverable(fmt.Errorf("generation failed: %s", msg))
				}
				return fmt.Errorf("result not ready")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(timeout/pollInterval)),
		retry.Delay(pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// saveMedia extracts the generated asset's src and writes it to outputPath.
// Data URLs are decoded inline; http URLs are fetched; for images a
// screenshot of the element is the last resort (blob: video sources have no
// such fallback).
func (c *Client) saveMedia(ctx context.Context, resultSel, outputPath string, isImage bool) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var src string
	if err := chromedp.Run(ctx, chromedp.Evaluate(
		fmt.Sprintf("document.querySelector(%q)?.src ?? ''", resultSel), &src)); err != nil {
		return fmt.Errorf("read result src: %w", err)
	}

	switch {
	case strings.HasPrefix(src, "data:"):
		return writeDataURL(src, outputPath)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return c.downloadURL(ctx, src, outputPath)
	case isImage:
		var buf []byte
		if err := chromedp.Run(ctx, chromedp.Screenshot(resultSel, &buf, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("screenshot result: %w", err)
		}
		return os.WriteFile(outputPath, buf, 0o644)
	default:
		return fmt.Errorf("result src %q is not downloadable", truncateStr(src, 60))
	}
}

func writeDataURL(dataURL, outputPath string) error {
	_, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return fmt.Errorf("malformed data URL")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode data URL: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func (c *Client) downloadURL(ctx context.Context, url, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch asset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch asset: status %d", resp.StatusCode)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}
	return nil
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
