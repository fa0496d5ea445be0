package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/alexhartley/chattervox/internal/chat"
)

// FeedEvent is one frame on the chat feed websocket. Type is "message" for
// chat/notice lines and "status" for connection status updates.
type FeedEvent struct {
	Type    string        `json:"type"`
	Message *chat.Message `json:"message,omitempty"`
	Spoken  bool          `json:"spoken,omitempty"`
	Text    string        `json:"text,omitempty"`
	IsError bool          `json:"is_error,omitempty"`
}

// Feed fans chat feed events out to every connected websocket client. A
// client that can't keep up has events dropped rather than stalling the
// speech pipeline.
type Feed struct {
	mu      sync.Mutex
	clients map[chan FeedEvent]struct{}

	lastStatus *FeedEvent
}

func NewFeed() *Feed {
	return &Feed{clients: make(map[chan FeedEvent]struct{})}
}

// BroadcastMessage pushes a chat line or SYSTEM notice to all clients.
func (f *Feed) BroadcastMessage(msg chat.Message, spoken bool) {
	f.broadcast(FeedEvent{Type: "message", Message: &msg, Spoken: spoken})
}

// BroadcastStatus pushes a status-line update to all clients. The latest
// status is replayed to clients that connect later.
func (f *Feed) BroadcastStatus(text string, isError bool) {
	ev := FeedEvent{Type: "status", Text: text, IsError: isError}
	f.mu.Lock()
	f.lastStatus = &ev
	f.mu.Unlock()
	f.broadcast(ev)
}

func (f *Feed) broadcast(ev FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (f *Feed) subscribe() chan FeedEvent {
	ch := make(chan FeedEvent, 64)
	f.mu.Lock()
	if f.lastStatus != nil {
		ch <- *f.lastStatus
	}
	f.clients[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *Feed) unsubscribe(ch chan FeedEvent) {
	f.mu.Lock()
	delete(f.clients, ch)
	f.mu.Unlock()
}

// ClientCount reports how many feed websockets are attached.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (s *Server) handleFeedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.feed.subscribe()
	defer s.feed.unsubscribe(ch)

	// Drain reads so pings and close frames are processed; the feed is
	// one-directional otherwise.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(4096)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-readDone:
			return
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
