package source

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexhartley/chattervox/internal/chat"
	"github.com/alexhartley/chattervox/internal/observability"
)

type recordedJob struct {
	Author string
	Text   string
	Source chat.Source
}

type recordingSink struct {
	mu        sync.Mutex
	enqueued  []recordedJob
	displayed []chat.Message
}

func (s *recordingSink) Enqueue(author, text string, source chat.Source, shouldDisplay bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, recordedJob{Author: author, Text: text, Source: source})
}

func (s *recordingSink) DisplayOnly(msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayed = append(s.displayed, msg)
}

func (s *recordingSink) notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, msg := range s.displayed {
		if msg.Author == chat.SystemAuthor {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (s *recordingSink) displayOnlyChat() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Message
	for _, msg := range s.displayed {
		if msg.Author != chat.SystemAuthor {
			out = append(out, msg)
		}
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	metrics := observability.NewMetrics(fmt.Sprintf("test_source_%d", time.Now().UnixNano()))
	m := NewManager(nil, nil, sink, metrics, Config{
		ReconnectGrace:              120 * time.Second,
		YouTubeFallbackPollInterval: 5 * time.Second,
		TikTokPollInterval:          2 * time.Second,
	})
	return m, sink
}

func startYouTubeSession(m *Manager) *connState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[chat.SourceYouTube]
	m.beginSessionLocked(st)
	return st
}

func ytBatch(ids ...string) YouTubeBatch {
	var b YouTubeBatch
	for _, id := range ids {
		b.Items = append(b.Items, YouTubeMessage{ID: id, Author: "user-" + id, Text: "msg " + id})
	}
	return b
}

func TestFirstPollSpeaksOnlyLastTwo(t *testing.T) {
	m, sink := newTestManager(t)
	startYouTubeSession(m)

	m.handleYouTubeBatch(ytBatch("a", "b", "c", "d", "e"))

	if got := len(sink.enqueued); got != 2 {
		t.Fatalf("enqueued %d jobs, want 2", got)
	}
	if sink.enqueued[0].Text != "msg d" || sink.enqueued[1].Text != "msg e" {
		t.Fatalf("spoke %q and %q, want the last two items", sink.enqueued[0].Text, sink.enqueued[1].Text)
	}
	if got := len(sink.displayOnlyChat()); got != 3 {
		t.Fatalf("display-only count = %d, want 3", got)
	}
	found := false
	for _, n := range sink.notices() {
		if n == "Loaded 3 previous messages" {
			found = true
		}
	}
	if !found {
		t.Fatalf("backlog notice missing, notices = %v", sink.notices())
	}
}

func TestFirstPollSingleItemSpeaksIt(t *testing.T) {
	m, sink := newTestManager(t)
	startYouTubeSession(m)

	m.handleYouTubeBatch(ytBatch("a"))

	if got := len(sink.enqueued); got != 1 {
		t.Fatalf("enqueued %d jobs, want 1", got)
	}
	if got := len(sink.displayOnlyChat()); got != 0 {
		t.Fatalf("display-only count = %d, want 0", got)
	}
	for _, n := range sink.notices() {
		if strings.HasPrefix(n, "Loaded") {
			t.Fatalf("unexpected backlog notice %q", n)
		}
	}
}

func TestFirstPollEmptyBatchEndsBootstrap(t *testing.T) {
	m, sink := newTestManager(t)
	st := startYouTubeSession(m)

	m.handleYouTubeBatch(YouTubeBatch{})

	if st.isFirstPoll {
		t.Fatal("isFirstPoll still true after empty first poll")
	}
	if len(sink.enqueued) != 0 || len(sink.displayed) != 0 {
		t.Fatalf("empty first poll produced output: %d enqueued, %d displayed", len(sink.enqueued), len(sink.displayed))
	}
}

func TestSteadyStateDedup(t *testing.T) {
	m, sink := newTestManager(t)
	st := startYouTubeSession(m)
	st.isFirstPoll = false

	m.handleYouTubeBatch(ytBatch("a", "b"))
	m.handleYouTubeBatch(ytBatch("a", "b", "c"))

	if got := len(sink.enqueued); got != 3 {
		t.Fatalf("enqueued %d jobs, want 3", got)
	}
	if sink.enqueued[2].Text != "msg c" {
		t.Fatalf("third job = %q, want %q", sink.enqueued[2].Text, "msg c")
	}
}

func TestReconnectWithinGraceKeepsDedup(t *testing.T) {
	m, sink := newTestManager(t)
	st := startYouTubeSession(m)

	m.handleYouTubeBatch(ytBatch("a", "b"))

	m.mu.Lock()
	st.connected = false
	st.lastDisconnectedAt = time.Now()
	m.beginSessionLocked(st)
	reconnect := st.reconnect
	m.mu.Unlock()

	if !reconnect {
		t.Fatal("session not treated as reconnect")
	}

	before := len(sink.enqueued)
	m.handleYouTubeBatch(ytBatch("a", "c"))

	fresh := sink.enqueued[before:]
	if len(fresh) != 1 || fresh[0].Text != "msg c" {
		t.Fatalf("after reconnect spoke %v, want only %q", fresh, "msg c")
	}
}

func TestReconnectAfterGraceStartsFresh(t *testing.T) {
	m, _ := newTestManager(t)
	st := startYouTubeSession(m)

	m.handleYouTubeBatch(ytBatch("a", "b"))

	m.mu.Lock()
	st.connected = false
	st.lastDisconnectedAt = time.Now().Add(-121 * time.Second)
	m.beginSessionLocked(st)
	reconnect := st.reconnect
	firstPoll := st.isFirstPoll
	dedupLen := len(st.dedup)
	m.mu.Unlock()

	if reconnect {
		t.Fatal("stale session treated as reconnect")
	}
	if !firstPoll {
		t.Fatal("fresh session should rerun the first-poll bootstrap")
	}
	if dedupLen != 0 {
		t.Fatalf("dedup carried %d entries into a fresh session", dedupLen)
	}
}

func TestReconnectFirstPollSpeaksOnlyLastOne(t *testing.T) {
	m, sink := newTestManager(t)
	st := startYouTubeSession(m)

	m.mu.Lock()
	st.reconnect = true
	m.mu.Unlock()

	m.handleYouTubeBatch(ytBatch("a", "b", "c"))

	if got := len(sink.enqueued); got != 1 {
		t.Fatalf("enqueued %d jobs, want 1", got)
	}
	if sink.enqueued[0].Text != "msg c" {
		t.Fatalf("spoke %q, want the last item", sink.enqueued[0].Text)
	}
}

func TestTikTokDedupWithinBucket(t *testing.T) {
	m, sink := newTestManager(t)
	m.mu.Lock()
	m.beginSessionLocked(m.states[chat.SourceTikTok])
	m.mu.Unlock()

	at := time.Unix(1000, 0)
	msgs := []TikTokMessage{{Author: "amy", Text: "hello"}}

	m.handleTikTokMessages(msgs, at)
	m.handleTikTokMessages(msgs, at.Add(500*time.Millisecond))

	if got := len(sink.enqueued); got != 1 {
		t.Fatalf("enqueued %d jobs, want 1", got)
	}

	m.handleTikTokMessages(msgs, at.Add(10*time.Second))
	if got := len(sink.enqueued); got != 2 {
		t.Fatalf("later repeat not spoken: enqueued %d jobs, want 2", got)
	}
}

func TestTikTokDedupKeyBuckets(t *testing.T) {
	at := time.Unix(500, 0)
	a := tiktokDedupKey("amy", "hi", at, 2*time.Second)
	b := tiktokDedupKey("amy", "hi", at.Add(time.Second), 2*time.Second)
	c := tiktokDedupKey("amy", "hi", at.Add(30*time.Second), 2*time.Second)

	if a != b {
		t.Fatalf("keys within one bucket differ: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("keys across buckets collide: %q", a)
	}
	if d := tiktokDedupKey("bob", "hi", at, 2*time.Second); d == a {
		t.Fatal("author not part of the key")
	}
}

func TestStatusesReflectConnections(t *testing.T) {
	m, _ := newTestManager(t)

	statuses := m.Statuses()
	if statuses[chat.SourceYouTube].Connected || statuses[chat.SourceTikTok].Connected {
		t.Fatal("sources connected before any connect call")
	}

	startYouTubeSession(m)
	statuses = m.Statuses()
	if !statuses[chat.SourceYouTube].Connected {
		t.Fatal("youtube not reported connected")
	}
	if statuses[chat.SourceTikTok].Connected {
		t.Fatal("tiktok reported connected")
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=abc123", "abc123", true},
		{"https://youtu.be/xyz789", "xyz789", true},
		{"https://www.youtube.com/live/live42?feature=share", "live42", true},
		{"https://example.com/watch?v=abc", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractVideoID(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ExtractVideoID(%q) = %q, %v, want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractChannelIdentifier(t *testing.T) {
	got, ok := ExtractChannelIdentifier("https://www.youtube.com/@somecreator/streams")
	if !ok || got != "@somecreator" {
		t.Fatalf("handle extraction = %q, %v", got, ok)
	}
	got, ok = ExtractChannelIdentifier("https://www.youtube.com/channel/UCabcdef")
	if !ok || got != "UCabcdef" {
		t.Fatalf("channel id extraction = %q, %v", got, ok)
	}
}
