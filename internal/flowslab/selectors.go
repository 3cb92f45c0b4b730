package flowslab

// Selectors holds the CSS selectors for the FlowsLab UI. The frontend is
// not versioned, so every selector is configurable; the defaults match the
// UI as last inspected and accept several fallbacks per element.
type Selectors struct {
	LoginEmail    string
	LoginPassword string
	LoginSubmit   string
	LoginSuccess  string

	ImagePrompt    string
	ImageRefUpload string
	ImageGenerate  string
	ImageResult    string
	ImageLoading   string

	VideoSourceUpload string
	VideoPrompt       string
	VideoGenerate     string
	VideoResult       string
	VideoLoading      string

	ErrorMessage string
	CookieAccept string
}

// DefaultSelectors returns the selector set for the current FlowsLab UI.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginEmail:    "input[type='email'], input[name='email'], #email",
		LoginPassword: "input[type='password'], input[name='password'], #password",
		LoginSubmit:   "button[type='submit'], .login-button, #login-btn",
		LoginSuccess:  ".dashboard, .home-page, .user-menu",

		ImagePrompt:    "textarea.prompt-input, #prompt-text, [name='prompt']",
		ImageRefUpload: "input[type='file'].reference-upload, #ref-image-input",
		ImageGenerate:  "button.generate-btn, #generate-image, [data-action='generate']",
		ImageResult:    ".generated-image img, .result-image img, #output-image img",
		ImageLoading:   ".loading, .spinner, .generating",

		VideoSourceUpload: "input[type='file'].source-image, #source-image-input",
		VideoPrompt:       "textarea.video-prompt, #video-prompt, [name='video-prompt']",
		VideoGenerate:     "button.generate-video-btn, #generate-video",
		VideoResult:       ".generated-video video, .result-video video, #output-video video",
		VideoLoading:      ".video-loading, .video-spinner, .video-generating",

		ErrorMessage: ".error-message, .alert-error, .error-toast",
		CookieAccept: ".cookie-accept, #accept-cookies, [data-action='accept-cookies']",
	}
}
