package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/alexhartley/chattervox/internal/config"
	"github.com/alexhartley/chattervox/internal/observability"
	"github.com/alexhartley/chattervox/internal/playback"
	"github.com/alexhartley/chattervox/internal/source"
	"github.com/alexhartley/chattervox/internal/speech"
	"github.com/alexhartley/chattervox/internal/store"
	"github.com/alexhartley/chattervox/internal/voice"
)

// CloneVoiceLister enumerates the voices the clone sidecar can speak with.
type CloneVoiceLister interface {
	Voices(ctx context.Context) ([]string, error)
}

// RemoteVoiceLister enumerates the remote AI provider's voices.
type RemoteVoiceLister interface {
	Voices(ctx context.Context) ([]playback.RemoteVoice, error)
}

type Server struct {
	cfg       config.Config
	manager   *source.Manager
	scheduler *speech.Scheduler
	resolver  *voice.Resolver
	registry  *voice.Registry
	store     store.Store
	metrics   *observability.Metrics
	feed      *Feed

	cloneVoices  CloneVoiceLister
	remoteVoices RemoteVoiceLister

	upgrader websocket.Upgrader
}

type Deps struct {
	Manager      *source.Manager
	Scheduler    *speech.Scheduler
	Resolver     *voice.Resolver
	Registry     *voice.Registry
	Store        store.Store
	Metrics      *observability.Metrics
	CloneVoices  CloneVoiceLister
	RemoteVoices RemoteVoiceLister
}

func New(cfg config.Config, deps Deps) *Server {
	return &Server{
		cfg:          cfg,
		manager:      deps.Manager,
		scheduler:    deps.Scheduler,
		resolver:     deps.Resolver,
		registry:     deps.Registry,
		store:        deps.Store,
		metrics:      deps.Metrics,
		feed:         NewFeed(),
		cloneVoices:  deps.CloneVoices,
		remoteVoices: deps.RemoteVoices,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites can't attach to the feed if
				// the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// FeedHub returns the broadcast hub so the wiring layer can hook the
// scheduler's display events and the manager's status line into it.
func (s *Server) FeedHub() *Feed { return s.feed }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sources/youtube/connect", s.handleConnectYouTube)
	r.Post("/v1/sources/tiktok/connect", s.handleConnectTikTok)
	r.Post("/v1/sources/{source}/disconnect", s.handleDisconnect)
	r.Get("/v1/sources", s.handleListSources)

	r.Get("/v1/voices", s.handleListVoices)
	r.Get("/v1/voices/assignments", s.handleListAssignments)
	r.Put("/v1/voices/assignments/{source}/{author}", s.handleAssignVoice)
	r.Delete("/v1/voices/assignments/{source}/{author}", s.handleRemoveVoice)
	r.Get("/v1/voices/recent", s.handleRecentUsers)

	r.Get("/v1/settings", s.handleGetSettings)
	r.Put("/v1/settings", s.handleUpdateSettings)

	r.Post("/v1/speech/stop", s.handleStopSpeech)

	r.Get("/v1/feed/ws", s.handleFeedWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"system_voices": s.registry.Len(),
	})
}

func (s *Server) handleStopSpeech(w http.ResponseWriter, _ *http.Request) {
	s.scheduler.StopAll()
	respondJSON(w, http.StatusOK, map[string]any{"stopped": true})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
