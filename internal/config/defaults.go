package config

import "github.com/spf13/viper"

// setDefaults seeds every config key so a bare install runs with nothing
// but API keys in the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("home", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("gemini.api_keys", []string{"${GEMINI_API_KEY}"})
	v.SetDefault("gemini.models", []string{"gemini-1.5-flash", "gemini-1.5-pro"})
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 5)

	v.SetDefault("transcribe.backend", "openai")
	v.SetDefault("transcribe.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("transcribe.model", "whisper-1")
	v.SetDefault("transcribe.whisper_binary", "whisper")
	v.SetDefault("transcribe.whisper_model", "base")
	v.SetDefault("transcribe.language", "")

	v.SetDefault("scenes.min_duration_seconds", 15)
	v.SetDefault("scenes.max_duration_seconds", 25)

	v.SetDefault("flowslab.base_url", "https://labs.google/fx/tools/flow")
	v.SetDefault("flowslab.max_scenes_per_account", 50)
	v.SetDefault("flowslab.generation_timeout_seconds", 300)
	v.SetDefault("flowslab.video_timeout_seconds", 600)

	v.SetDefault("browser.image", "chromedp/headless-shell:latest")
	v.SetDefault("browser.container_name", "voxreel-browser")
	v.SetDefault("browser.debug_port", 9222)
	v.SetDefault("browser.headless", true)
}
