package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.YouTubeFallbackPollInterval != 5*time.Second {
		t.Fatalf("YouTubeFallbackPollInterval = %v, want 5s", cfg.YouTubeFallbackPollInterval)
	}
	if cfg.TikTokPollInterval != 2*time.Second {
		t.Fatalf("TikTokPollInterval = %v, want 2s", cfg.TikTokPollInterval)
	}
	if cfg.ReconnectGrace != 120*time.Second {
		t.Fatalf("ReconnectGrace = %v, want 120s", cfg.ReconnectGrace)
	}
	if cfg.CloneTTSTimeout != 60*time.Second {
		t.Fatalf("CloneTTSTimeout = %v, want 60s", cfg.CloneTTSTimeout)
	}
	if cfg.ElevenLabsModelID != "eleven_monolingual_v1" {
		t.Fatalf("ElevenLabsModelID = %q, want eleven_monolingual_v1", cfg.ElevenLabsModelID)
	}
	if cfg.ReadEmojis || cfg.ReadLinks || cfg.ReadUsernames {
		t.Fatalf("read toggles should default to false, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("TIKTOK_POLL_INTERVAL", "3s")
	t.Setenv("READ_EMOJIS", "true")
	t.Setenv("SPEECH_RATE", "1.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9191")
	}
	if cfg.TikTokPollInterval != 3*time.Second {
		t.Fatalf("TikTokPollInterval = %v, want 3s", cfg.TikTokPollInterval)
	}
	if !cfg.ReadEmojis {
		t.Fatalf("ReadEmojis = false, want true")
	}
	if cfg.SpeechRate != 1.5 {
		t.Fatalf("SpeechRate = %v, want 1.5", cfg.SpeechRate)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"TIKTOK_POLL_INTERVAL", "100ms"},
		{"SPEECH_VOLUME", "1.5"},
		{"SPEECH_COMMAND", "festival"},
		{"READ_LINKS", "maybe"},
		{"RECONNECT_GRACE", "-10s"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%s should fail", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"YOUTUBE_API_KEY",
		"YOUTUBE_API_BASE_URL",
		"YOUTUBE_FALLBACK_POLL_INTERVAL",
		"TIKTOK_CONNECTOR_URL",
		"TIKTOK_POLL_INTERVAL",
		"RECONNECT_GRACE",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_API_BASE_URL",
		"ELEVENLABS_MODEL_ID",
		"CLONE_TTS_URL",
		"CLONE_TTS_TIMEOUT",
		"SPEECH_COMMAND",
		"SPEECH_RATE",
		"SPEECH_PITCH",
		"SPEECH_VOLUME",
		"READ_USERNAMES",
		"READ_EMOJIS",
		"READ_LINKS",
		"DATABASE_URL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
