package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat reader service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	YouTubeAPIKey               string
	YouTubeAPIBaseURL           string
	YouTubeFallbackPollInterval time.Duration

	TikTokConnectorURL string
	TikTokPollInterval time.Duration

	// ReconnectGrace is how soon after a disconnect a reconnect keeps the
	// previous dedup state instead of starting fresh.
	ReconnectGrace time.Duration

	ElevenLabsAPIKey     string
	ElevenLabsAPIBaseURL string
	ElevenLabsModelID    string

	CloneTTSURL     string
	CloneTTSTimeout time.Duration

	SpeechCommand string
	SpeechRate    float64
	SpeechPitch   float64
	SpeechVolume  float64

	ReadUsernames bool
	ReadEmojis    bool
	ReadLinks     bool

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                    envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:            envOrDefault("APP_METRICS_NAMESPACE", "chattervox"),
		AllowAnyOrigin:              false,
		YouTubeAPIKey:               stringsTrimSpace("YOUTUBE_API_KEY"),
		YouTubeAPIBaseURL:           envOrDefault("YOUTUBE_API_BASE_URL", "https://www.googleapis.com/youtube/v3"),
		YouTubeFallbackPollInterval: 5 * time.Second,
		TikTokConnectorURL:          stringsTrimSpace("TIKTOK_CONNECTOR_URL"),
		TikTokPollInterval:          2 * time.Second,
		ReconnectGrace:              120 * time.Second,
		ElevenLabsAPIKey:            stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsAPIBaseURL:        envOrDefault("ELEVENLABS_API_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsModelID:           envOrDefault("ELEVENLABS_MODEL_ID", "eleven_monolingual_v1"),
		CloneTTSURL:                 stringsTrimSpace("CLONE_TTS_URL"),
		// Local voice cloning is slow, especially on a cold start.
		CloneTTSTimeout: 60 * time.Second,
		SpeechCommand:   envOrDefault("SPEECH_COMMAND", "auto"),
		SpeechRate:      1.0,
		SpeechPitch:     1.0,
		SpeechVolume:    1.0,
		ReadUsernames:   false,
		ReadEmojis:      false,
		ReadLinks:       false,
		DatabaseURL:     stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout: 15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.YouTubeFallbackPollInterval, err = durationFromEnv("YOUTUBE_FALLBACK_POLL_INTERVAL", cfg.YouTubeFallbackPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.TikTokPollInterval, err = durationFromEnv("TIKTOK_POLL_INTERVAL", cfg.TikTokPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconnectGrace, err = durationFromEnv("RECONNECT_GRACE", cfg.ReconnectGrace)
	if err != nil {
		return Config{}, err
	}
	cfg.CloneTTSTimeout, err = durationFromEnv("CLONE_TTS_TIMEOUT", cfg.CloneTTSTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SpeechRate, err = floatFromEnv("SPEECH_RATE", cfg.SpeechRate)
	if err != nil {
		return Config{}, err
	}
	cfg.SpeechPitch, err = floatFromEnv("SPEECH_PITCH", cfg.SpeechPitch)
	if err != nil {
		return Config{}, err
	}
	cfg.SpeechVolume, err = floatFromEnv("SPEECH_VOLUME", cfg.SpeechVolume)
	if err != nil {
		return Config{}, err
	}
	cfg.ReadUsernames, err = boolFromEnv("READ_USERNAMES", cfg.ReadUsernames)
	if err != nil {
		return Config{}, err
	}
	cfg.ReadEmojis, err = boolFromEnv("READ_EMOJIS", cfg.ReadEmojis)
	if err != nil {
		return Config{}, err
	}
	cfg.ReadLinks, err = boolFromEnv("READ_LINKS", cfg.ReadLinks)
	if err != nil {
		return Config{}, err
	}

	if cfg.YouTubeFallbackPollInterval < time.Second {
		return Config{}, fmt.Errorf("YOUTUBE_FALLBACK_POLL_INTERVAL must be at least 1s")
	}
	if cfg.TikTokPollInterval < 500*time.Millisecond {
		return Config{}, fmt.Errorf("TIKTOK_POLL_INTERVAL must be at least 500ms")
	}
	if cfg.ReconnectGrace < 0 {
		return Config{}, fmt.Errorf("RECONNECT_GRACE must not be negative")
	}
	if cfg.CloneTTSTimeout < time.Second {
		return Config{}, fmt.Errorf("CLONE_TTS_TIMEOUT must be at least 1s")
	}
	if cfg.SpeechRate <= 0 || cfg.SpeechRate > 4 {
		return Config{}, fmt.Errorf("SPEECH_RATE must be in (0, 4]")
	}
	if cfg.SpeechPitch <= 0 || cfg.SpeechPitch > 2 {
		return Config{}, fmt.Errorf("SPEECH_PITCH must be in (0, 2]")
	}
	if cfg.SpeechVolume < 0 || cfg.SpeechVolume > 1 {
		return Config{}, fmt.Errorf("SPEECH_VOLUME must be in [0, 1]")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SpeechCommand)) {
	case "auto", "espeak-ng", "espeak", "say", "none":
	default:
		return Config{}, fmt.Errorf("invalid SPEECH_COMMAND: %q (expected auto|espeak-ng|espeak|say|none)", cfg.SpeechCommand)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
