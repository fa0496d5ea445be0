package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alexhartley/chattervox/internal/chat"
	"github.com/alexhartley/chattervox/internal/source"
)

type connectYouTubeRequest struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
	Channel string `json:"channel"`
}

type connectTikTokRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleConnectYouTube(w http.ResponseWriter, r *http.Request) {
	var req connectYouTubeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" && strings.TrimSpace(req.URL) != "" {
		raw := strings.TrimSpace(req.URL)
		if id, ok := source.ExtractVideoID(raw); ok {
			videoID = id
		} else if ident, ok := source.ExtractChannelIdentifier(raw); ok {
			id, err := s.manager.FindLiveVideoID(r.Context(), ident)
			if err != nil {
				respondError(w, http.StatusNotFound, "no_live_stream", err.Error())
				return
			}
			videoID = id
		} else {
			respondError(w, http.StatusBadRequest, "invalid_url", "unrecognized YouTube URL")
			return
		}
	}
	if videoID == "" && strings.TrimSpace(req.Channel) != "" {
		id, err := s.manager.FindLiveVideoID(r.Context(), strings.TrimSpace(req.Channel))
		if err != nil {
			respondError(w, http.StatusNotFound, "no_live_stream", err.Error())
			return
		}
		videoID = id
	}
	if videoID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "one of video_id, url, channel is required")
		return
	}

	if err := s.manager.ConnectYouTube(r.Context(), videoID); err != nil {
		respondError(w, http.StatusBadGateway, "connect_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"connected": true, "video_id": videoID})
}

func (s *Server) handleConnectTikTok(w http.ResponseWriter, r *http.Request) {
	var req connectTikTokRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	username := strings.TrimPrefix(strings.TrimSpace(req.Username), "@")
	if username == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}

	if err := s.manager.ConnectTikTok(r.Context(), username); err != nil {
		respondError(w, http.StatusBadGateway, "connect_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"connected": true, "username": username})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	src, err := chat.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_source", "source must be youtube or tiktok")
		return
	}
	if err := s.manager.Disconnect(src); err != nil {
		respondError(w, http.StatusConflict, "not_connected", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"disconnected": true})
}

func (s *Server) handleListSources(w http.ResponseWriter, _ *http.Request) {
	statuses := s.manager.Statuses()
	respondJSON(w, http.StatusOK, map[string]any{
		"sources":     statuses,
		"queue_depth": s.scheduler.QueueDepth(),
		"speaking":    s.scheduler.Speaking(),
	})
}
