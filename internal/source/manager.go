package source

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexhartley/chattervox/internal/chat"
	"github.com/alexhartley/chattervox/internal/observability"
)

// Sink is where pollers hand messages. The speech scheduler implements it.
type Sink interface {
	Enqueue(author, text string, source chat.Source, shouldDisplay bool)
	DisplayOnly(msg chat.Message)
}

// Config holds the poller timings.
type Config struct {
	// ReconnectGrace: reconnects within this window of the last disconnect
	// keep the previous dedup state so already-heard messages stay silent.
	ReconnectGrace              time.Duration
	YouTubeFallbackPollInterval time.Duration
	TikTokPollInterval          time.Duration
}

// Status is the externally visible connection state of one source.
type Status struct {
	Connected   bool   `json:"connected"`
	Detail      string `json:"detail,omitempty"`
	IsFirstPoll bool   `json:"is_first_poll"`
}

// connState is the per-source connection lifecycle state. All fields are
// guarded by Manager.mu; each source has at most one poller goroutine.
type connState struct {
	connected          bool
	dedup              map[string]struct{}
	isFirstPoll        bool
	lastDisconnectedAt time.Time
	cursor             string
	reconnect          bool
	detail             string
	cancel             context.CancelFunc
}

// Manager owns the connect/disconnect lifecycle and the pollers for both
// chat sources.
type Manager struct {
	mu     sync.Mutex
	states map[chat.Source]*connState
	status func(text string, isError bool)

	yt      YouTubeClient
	tt      TikTokClient
	sink    Sink
	metrics *observability.Metrics
	cfg     Config

	runCtx context.Context
}

func NewManager(yt YouTubeClient, tt TikTokClient, sink Sink, metrics *observability.Metrics, cfg Config) *Manager {
	if cfg.ReconnectGrace <= 0 {
		cfg.ReconnectGrace = 120 * time.Second
	}
	if cfg.YouTubeFallbackPollInterval <= 0 {
		cfg.YouTubeFallbackPollInterval = 5 * time.Second
	}
	if cfg.TikTokPollInterval <= 0 {
		cfg.TikTokPollInterval = 2 * time.Second
	}
	return &Manager{
		states: map[chat.Source]*connState{
			chat.SourceYouTube: {},
			chat.SourceTikTok:  {},
		},
		yt:      yt,
		tt:      tt,
		sink:    sink,
		metrics: metrics,
		cfg:     cfg,
		runCtx:  context.Background(),
	}
}

// Start installs the parent context pollers are spawned under. Canceling
// it halts all polling.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCtx = ctx
}

// SetStatusHook registers the single status-line sink errors and progress
// are surfaced through.
func (m *Manager) SetStatusHook(hook func(text string, isError bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = hook
}

func (m *Manager) setStatus(text string, isError bool) {
	m.mu.Lock()
	hook := m.status
	m.mu.Unlock()
	if hook != nil {
		hook(text, isError)
	}
}

func (m *Manager) notice(source chat.Source, text string) {
	m.sink.DisplayOnly(chat.Message{
		ID:         uuid.NewString(),
		Author:     chat.SystemAuthor,
		Text:       text,
		Source:     source,
		ObservedAt: time.Now().UTC(),
	})
}

// Statuses reports the connection state of every source.
func (m *Manager) Statuses() map[chat.Source]Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[chat.Source]Status, len(m.states))
	for src, st := range m.states {
		out[src] = Status{Connected: st.connected, Detail: st.detail, IsFirstPoll: st.isFirstPoll}
	}
	return out
}

func (m *Manager) connectedCount() int {
	n := 0
	for _, st := range m.states {
		if st.connected {
			n++
		}
	}
	return n
}

// FindLiveVideoID locates a channel's current live broadcast.
func (m *Manager) FindLiveVideoID(ctx context.Context, channelIdentifier string) (string, error) {
	m.setStatus("Searching for live streams...", false)
	videoID, err := m.yt.FindLiveVideoID(ctx, channelIdentifier)
	if err != nil {
		m.setStatus(fmt.Sprintf("No live stream found: %v", err), true)
		return "", err
	}
	return videoID, nil
}

// ConnectYouTube joins a live video's chat and starts the poller. The
// returned error covers credential/liveness problems; once connected,
// poll failures are terminal for the session but reported only through
// the status line.
func (m *Manager) ConnectYouTube(ctx context.Context, videoID string) error {
	m.setStatus("Connecting to YouTube...", false)

	chatID, err := m.yt.LiveChatID(ctx, videoID)
	if err != nil {
		m.setStatus(fmt.Sprintf("YouTube error: %v", err), true)
		return err
	}

	m.mu.Lock()
	st := m.states[chat.SourceYouTube]
	if st.connected {
		m.mu.Unlock()
		return fmt.Errorf("youtube already connected")
	}
	m.beginSessionLocked(st)
	st.detail = videoID
	pollCtx, cancel := context.WithCancel(m.runCtx)
	st.cancel = cancel
	connected := m.connectedCount()
	m.mu.Unlock()

	m.metrics.ConnectedSources.Set(float64(connected))
	m.setStatus("YouTube connected", false)
	m.notice(chat.SourceYouTube, "Connected to YouTube stream")

	go m.runYouTubePoller(pollCtx, chatID)
	return nil
}

// ConnectTikTok asks the connector sidecar to join a user's live room and
// starts the fixed-interval poller.
func (m *Manager) ConnectTikTok(ctx context.Context, username string) error {
	m.setStatus("Connecting to TikTok...", false)

	if err := m.tt.Connect(ctx, username); err != nil {
		m.setStatus(fmt.Sprintf("TikTok error: %v", err), true)
		return err
	}

	m.mu.Lock()
	st := m.states[chat.SourceTikTok]
	if st.connected {
		m.mu.Unlock()
		return fmt.Errorf("tiktok already connected")
	}
	m.beginSessionLocked(st)
	st.detail = "@" + username
	pollCtx, cancel := context.WithCancel(m.runCtx)
	st.cancel = cancel
	connected := m.connectedCount()
	m.mu.Unlock()

	m.metrics.ConnectedSources.Set(float64(connected))
	m.setStatus("TikTok connected", false)
	m.notice(chat.SourceTikTok, fmt.Sprintf("Connected to @%s", username))

	go m.runTikTokPoller(pollCtx)
	return nil
}

// beginSessionLocked applies the fresh-connect vs reconnect policy. A
// reconnect within the grace window keeps the dedup set and the
// first-poll-done flag; anything later starts clean.
func (m *Manager) beginSessionLocked(st *connState) {
	now := time.Now()
	reconnect := !st.lastDisconnectedAt.IsZero() && now.Sub(st.lastDisconnectedAt) < m.cfg.ReconnectGrace
	if !reconnect || st.dedup == nil {
		st.dedup = make(map[string]struct{})
		st.isFirstPoll = true
	}
	st.reconnect = reconnect
	st.cursor = ""
	st.connected = true
}

// Disconnect halts a source's polling and marks it disconnected. Queued
// speech jobs from the source are left alone.
func (m *Manager) Disconnect(source chat.Source) error {
	m.mu.Lock()
	st, ok := m.states[source]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown source %q", source)
	}
	if !st.connected {
		m.mu.Unlock()
		return fmt.Errorf("%s not connected", source)
	}
	st.connected = false
	st.lastDisconnectedAt = time.Now()
	st.detail = ""
	cancel := st.cancel
	st.cancel = nil
	connected := m.connectedCount()
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.metrics.ConnectedSources.Set(float64(connected))

	switch source {
	case chat.SourceYouTube:
		m.notice(source, "YouTube disconnected")
		m.setStatus("YouTube disconnected", false)
	case chat.SourceTikTok:
		m.notice(source, "TikTok disconnected")
		m.setStatus("TikTok disconnected", false)
	}
	return nil
}

// runYouTubePoller drives the completion-chained poll loop: the next poll
// is scheduled only after the previous one finishes, at the cadence the
// backend asks for. A poll failure ends the session.
func (m *Manager) runYouTubePoller(ctx context.Context, chatID string) {
	for {
		m.mu.Lock()
		st := m.states[chat.SourceYouTube]
		if !st.connected {
			m.mu.Unlock()
			return
		}
		cursor := st.cursor
		m.mu.Unlock()

		batch, err := m.yt.Messages(ctx, chatID, cursor)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.metrics.Polls.WithLabelValues(string(chat.SourceYouTube), "error").Inc()
			log.Printf("youtube poll error: %v", err)
			m.setStatus(fmt.Sprintf("YouTube error: %v", err), true)
			_ = m.Disconnect(chat.SourceYouTube)
			return
		}
		m.metrics.Polls.WithLabelValues(string(chat.SourceYouTube), "ok").Inc()

		m.handleYouTubeBatch(batch)

		interval := time.Duration(batch.PollIntervalMillis) * time.Millisecond
		if interval <= 0 {
			interval = m.cfg.YouTubeFallbackPollInterval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (m *Manager) handleYouTubeBatch(batch YouTubeBatch) {
	type action struct {
		msg   YouTubeMessage
		speak bool
	}
	var (
		actions      []action
		backlogCount int
	)

	m.mu.Lock()
	st := m.states[chat.SourceYouTube]
	st.cursor = batch.NextPageToken

	if st.isFirstPoll {
		st.isFirstPoll = false

		// Speak only the tail of the backlog: the last 2 items on a fresh
		// connect, 1 on a reconnect. Everything earlier is display-only.
		speakTail := 2
		if st.reconnect {
			speakTail = 1
		}
		split := len(batch.Items) - speakTail
		if split < 0 {
			split = 0
		}

		for _, item := range batch.Items[:split] {
			st.dedup[item.ID] = struct{}{}
			actions = append(actions, action{msg: item, speak: false})
			backlogCount++
		}
		for _, item := range batch.Items[split:] {
			if _, seen := st.dedup[item.ID]; seen {
				m.metrics.MessagesDeduped.WithLabelValues(string(chat.SourceYouTube)).Inc()
				continue
			}
			st.dedup[item.ID] = struct{}{}
			actions = append(actions, action{msg: item, speak: true})
		}
	} else {
		for _, item := range batch.Items {
			if _, seen := st.dedup[item.ID]; seen {
				m.metrics.MessagesDeduped.WithLabelValues(string(chat.SourceYouTube)).Inc()
				continue
			}
			st.dedup[item.ID] = struct{}{}
			actions = append(actions, action{msg: item, speak: true})
		}
	}
	m.mu.Unlock()

	now := time.Now().UTC()
	for _, a := range actions {
		if a.speak {
			m.sink.Enqueue(a.msg.Author, a.msg.Text, chat.SourceYouTube, true)
		} else {
			m.sink.DisplayOnly(chat.Message{
				ID:         a.msg.ID,
				Author:     a.msg.Author,
				Text:       a.msg.Text,
				Source:     chat.SourceYouTube,
				ObservedAt: now,
			})
		}
	}
	if backlogCount > 0 {
		m.notice(chat.SourceYouTube, fmt.Sprintf("Loaded %d previous messages", backlogCount))
	}
}

// runTikTokPoller polls the connector on a fixed cadence. Poll failures
// are logged and skipped; the ticker keeps going.
func (m *Manager) runTikTokPoller(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TikTokPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		messages, err := m.tt.Messages(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.metrics.Polls.WithLabelValues(string(chat.SourceTikTok), "error").Inc()
			log.Printf("tiktok poll error: %v", err)
			continue
		}
		m.metrics.Polls.WithLabelValues(string(chat.SourceTikTok), "ok").Inc()

		m.handleTikTokMessages(messages, time.Now())
	}
}

func (m *Manager) handleTikTokMessages(messages []TikTokMessage, at time.Time) {
	var fresh []TikTokMessage

	m.mu.Lock()
	st := m.states[chat.SourceTikTok]
	for _, msg := range messages {
		key := tiktokDedupKey(msg.Author, msg.Text, at, m.cfg.TikTokPollInterval)
		if _, seen := st.dedup[key]; seen {
			m.metrics.MessagesDeduped.WithLabelValues(string(chat.SourceTikTok)).Inc()
			continue
		}
		st.dedup[key] = struct{}{}
		fresh = append(fresh, msg)
	}
	m.mu.Unlock()

	for _, msg := range fresh {
		m.sink.Enqueue(msg.Author, msg.Text, chat.SourceTikTok, true)
	}
}
