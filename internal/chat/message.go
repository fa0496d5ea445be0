package chat

import (
	"fmt"
	"time"
)

// Source identifies one external chat origin.
type Source string

const (
	SourceYouTube Source = "youtube"
	SourceTikTok  Source = "tiktok"
	// SourceSystem marks service-generated notices shown in the feed.
	SourceSystem Source = "system"
)

// SystemAuthor is the synthetic author used for service notices. It never
// enters the recent-users list and never gets a voice assignment.
const SystemAuthor = "SYSTEM"

// ParseSource validates a source name coming from the API surface.
func ParseSource(raw string) (Source, error) {
	switch Source(raw) {
	case SourceYouTube, SourceTikTok:
		return Source(raw), nil
	default:
		return "", fmt.Errorf("unknown source %q", raw)
	}
}

// Message is a single chat message as observed by a poller. Immutable once
// created; ID is unique within its source.
type Message struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	Source     Source    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
}

// UserKey is the composite key used for voice assignments and the
// recent-users list, e.g. "youtube:SomeViewer".
func UserKey(source Source, author string) string {
	return string(source) + ":" + author
}
