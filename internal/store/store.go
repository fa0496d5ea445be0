package store

import "context"

// Setting keys used by the service. Default voices are stored under
// "default_voice:<source>".
const (
	SettingReadUsernames = "read_usernames"
	SettingReadEmojis    = "read_emojis"
	SettingReadLinks     = "read_links"
	SettingSpeechRate    = "speech_rate"
	SettingSpeechPitch   = "speech_pitch"
	SettingSpeechVolume  = "speech_volume"

	defaultVoicePrefix = "default_voice:"
)

// DefaultVoiceKey builds the settings key holding a source's default voice.
func DefaultVoiceKey(source string) string { return defaultVoicePrefix + source }

// IsDefaultVoiceKey splits a settings key of the default-voice form,
// returning the source name.
func IsDefaultVoiceKey(key string) (string, bool) {
	if len(key) > len(defaultVoicePrefix) && key[:len(defaultVoicePrefix)] == defaultVoicePrefix {
		return key[len(defaultVoicePrefix):], true
	}
	return "", false
}

// Store persists settings, per-user voice assignments, and the
// recent-users list. Read once at startup, written on every mutation.
type Store interface {
	Settings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
	SaveDefaultVoice(ctx context.Context, source, encodedRef string) error

	Assignments(ctx context.Context) (map[string]string, error)
	SaveAssignment(ctx context.Context, userKey, encodedRef string) error
	DeleteAssignment(ctx context.Context, userKey string) error

	RecentUsers(ctx context.Context) ([]string, error)
	SaveRecentUsers(ctx context.Context, userKeys []string) error

	Close() error
}
