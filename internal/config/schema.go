package config

import "time"

// Config is the full voxreel configuration tree.
type Config struct {
	Home     string `mapstructure:"home" yaml:"home"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Gemini     GeminiConfig     `mapstructure:"gemini" yaml:"gemini"`
	Transcribe TranscribeConfig `mapstructure:"transcribe" yaml:"transcribe"`
	Scenes     ScenesConfig     `mapstructure:"scenes" yaml:"scenes"`
	FlowsLab   FlowsLabConfig   `mapstructure:"flowslab" yaml:"flowslab"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
}

// GeminiConfig configures the prompt-generation API.
type GeminiConfig struct {
	APIKeys    []string `mapstructure:"api_keys" yaml:"api_keys"`
	Models     []string `mapstructure:"models" yaml:"models"`
	MaxRetries int      `mapstructure:"max_retries" yaml:"max_retries"`
	RetrySecs  int      `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
}

// ResolvedKeys returns the API keys with ${ENV_VAR} references expanded.
func (g GeminiConfig) ResolvedKeys() []string {
	out := make([]string, len(g.APIKeys))
	for i, k := range g.APIKeys {
		out[i] = ResolveEnvVars(k)
	}
	return out
}

// RetryDelay returns the configured backoff as a duration.
func (g GeminiConfig) RetryDelay() time.Duration {
	return time.Duration(g.RetrySecs) * time.Second
}

// TranscribeConfig configures the audio-to-SRT backend.
type TranscribeConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend"` // openai or whisper
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	Model         string `mapstructure:"model" yaml:"model"`
	WhisperBinary string `mapstructure:"whisper_binary" yaml:"whisper_binary"`
	WhisperModel  string `mapstructure:"whisper_model" yaml:"whisper_model"`
	Language      string `mapstructure:"language" yaml:"language"`
}

// ScenesConfig bounds scene grouping.
type ScenesConfig struct {
	MinDurationSecs int `mapstructure:"min_duration_seconds" yaml:"min_duration_seconds"`
	MaxDurationSecs int `mapstructure:"max_duration_seconds" yaml:"max_duration_seconds"`
}

// MinDuration returns the minimum scene length.
func (s ScenesConfig) MinDuration() time.Duration {
	return time.Duration(s.MinDurationSecs) * time.Second
}

// MaxDuration returns the maximum scene length.
func (s ScenesConfig) MaxDuration() time.Duration {
	return time.Duration(s.MaxDurationSecs) * time.Second
}

// FlowsLabConfig configures the browser generation frontend.
type FlowsLabConfig struct {
	BaseURL              string `mapstructure:"base_url" yaml:"base_url"`
	MaxScenesPerAccount  int    `mapstructure:"max_scenes_per_account" yaml:"max_scenes_per_account"`
	GenerationTimeoutSec int    `mapstructure:"generation_timeout_seconds" yaml:"generation_timeout_seconds"`
	VideoTimeoutSec      int    `mapstructure:"video_timeout_seconds" yaml:"video_timeout_seconds"`
}

// GenerationTimeout returns the image generation deadline.
func (f FlowsLabConfig) GenerationTimeout() time.Duration {
	return time.Duration(f.GenerationTimeoutSec) * time.Second
}

// VideoTimeout returns the video generation deadline.
func (f FlowsLabConfig) VideoTimeout() time.Duration {
	return time.Duration(f.VideoTimeoutSec) * time.Second
}

// BrowserConfig configures the managed headless Chrome container.
type BrowserConfig struct {
	Image         string `mapstructure:"image" yaml:"image"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	DebugPort     int    `mapstructure:"debug_port" yaml:"debug_port"`
	Headless      bool   `mapstructure:"headless" yaml:"headless"`
}
