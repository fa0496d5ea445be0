package store

import (
	"context"
	"testing"
)

func TestInMemoryStoreSettings(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.SetSetting(ctx, SettingSpeechRate, "1.5"); err != nil {
		t.Fatalf("SetSetting() error: %v", err)
	}
	if err := s.SaveDefaultVoice(ctx, "youtube", "system-2"); err != nil {
		t.Fatalf("SaveDefaultVoice() error: %v", err)
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	if settings[SettingSpeechRate] != "1.5" {
		t.Fatalf("settings[%s] = %q, want %q", SettingSpeechRate, settings[SettingSpeechRate], "1.5")
	}
	if settings[DefaultVoiceKey("youtube")] != "system-2" {
		t.Fatalf("default voice = %q, want %q", settings[DefaultVoiceKey("youtube")], "system-2")
	}
}

func TestInMemoryStoreAssignments(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.SaveAssignment(ctx, "youtube:alice", "cloned-narrator"); err != nil {
		t.Fatalf("SaveAssignment() error: %v", err)
	}
	got, err := s.Assignments(ctx)
	if err != nil {
		t.Fatalf("Assignments() error: %v", err)
	}
	if got["youtube:alice"] != "cloned-narrator" {
		t.Fatalf("assignment = %q, want %q", got["youtube:alice"], "cloned-narrator")
	}

	if err := s.DeleteAssignment(ctx, "youtube:alice"); err != nil {
		t.Fatalf("DeleteAssignment() error: %v", err)
	}
	if err := s.DeleteAssignment(ctx, "youtube:alice"); err != nil {
		t.Fatalf("second DeleteAssignment() error: %v", err)
	}
	got, _ = s.Assignments(ctx)
	if len(got) != 0 {
		t.Fatalf("assignments after delete = %v, want empty", got)
	}
}

func TestInMemoryStoreRecentUsers(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.SaveRecentUsers(ctx, []string{"youtube:a", "tiktok:b"}); err != nil {
		t.Fatalf("SaveRecentUsers() error: %v", err)
	}
	got, err := s.RecentUsers(ctx)
	if err != nil {
		t.Fatalf("RecentUsers() error: %v", err)
	}
	if len(got) != 2 || got[0] != "youtube:a" || got[1] != "tiktok:b" {
		t.Fatalf("RecentUsers() = %v", got)
	}

	// The snapshot replaces the previous list wholesale.
	if err := s.SaveRecentUsers(ctx, []string{"tiktok:c"}); err != nil {
		t.Fatalf("SaveRecentUsers() error: %v", err)
	}
	got, _ = s.RecentUsers(ctx)
	if len(got) != 1 || got[0] != "tiktok:c" {
		t.Fatalf("RecentUsers() after overwrite = %v", got)
	}
}

func TestDefaultVoiceKeyRoundTrip(t *testing.T) {
	key := DefaultVoiceKey("tiktok")
	src, ok := IsDefaultVoiceKey(key)
	if !ok || src != "tiktok" {
		t.Fatalf("IsDefaultVoiceKey(%q) = %q, %v", key, src, ok)
	}
	if _, ok := IsDefaultVoiceKey(SettingReadEmojis); ok {
		t.Fatalf("IsDefaultVoiceKey(%q) unexpectedly matched", SettingReadEmojis)
	}
}
