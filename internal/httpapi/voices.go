package httpapi

import (
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alexhartley/chattervox/internal/chat"
	"github.com/alexhartley/chattervox/internal/voice"
)

// voiceEntry is one selectable voice in the combined catalog.
type voiceEntry struct {
	Ref         string `json:"ref"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	LanguageTag string `json:"language_tag,omitempty"`
}

func kindName(k voice.Kind) string {
	switch k {
	case voice.KindSystem:
		return "system"
	case voice.KindCloned:
		return "cloned"
	case voice.KindRemoteAI:
		return "elevenlabs"
	default:
		return "engine_default"
	}
}

// handleListVoices merges system, cloned, and remote voices into one
// catalog. Backends that are down or unconfigured contribute nothing
// rather than failing the whole listing.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	entries := []voiceEntry{{
		Ref:         voice.EngineDefault().Encode(),
		Kind:        kindName(voice.KindEngineDefault),
		DisplayName: "Engine default",
	}}

	for i, v := range s.registry.Voices() {
		entries = append(entries, voiceEntry{
			Ref:         voice.System(i).Encode(),
			Kind:        kindName(voice.KindSystem),
			DisplayName: v.DisplayName,
			LanguageTag: v.LanguageTag,
		})
	}

	if s.cloneVoices != nil {
		names, err := s.cloneVoices.Voices(r.Context())
		if err != nil {
			log.Printf("list cloned voices: %v", err)
		}
		for _, name := range names {
			entries = append(entries, voiceEntry{
				Ref:         voice.Cloned(name).Encode(),
				Kind:        kindName(voice.KindCloned),
				DisplayName: name,
			})
		}
	}

	if s.remoteVoices != nil {
		remote, err := s.remoteVoices.Voices(r.Context())
		if err != nil {
			log.Printf("list remote voices: %v", err)
		}
		for _, v := range remote {
			entries = append(entries, voiceEntry{
				Ref:         voice.RemoteAI(v.ID).Encode(),
				Kind:        kindName(voice.KindRemoteAI),
				DisplayName: v.Name,
			})
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"voices": entries})
}

type assignVoiceRequest struct {
	Voice string `json:"voice"`
}

type assignmentEntry struct {
	UserKey string `json:"user_key"`
	Voice   string `json:"voice"`
	Display string `json:"display"`
}

func (s *Server) handleAssignVoice(w http.ResponseWriter, r *http.Request) {
	src, author, ok := assignmentParams(w, r)
	if !ok {
		return
	}

	var req assignVoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ref := voice.ParseRef(req.Voice)

	if err := s.resolver.Assign(r.Context(), author, src, ref); err != nil {
		respondError(w, http.StatusInternalServerError, "persist_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, assignmentEntry{
		UserKey: chat.UserKey(src, author),
		Voice:   ref.Encode(),
		Display: s.registry.Describe(ref),
	})
}

func (s *Server) handleRemoveVoice(w http.ResponseWriter, r *http.Request) {
	src, author, ok := assignmentParams(w, r)
	if !ok {
		return
	}
	if err := s.resolver.Remove(r.Context(), author, src); err != nil {
		respondError(w, http.StatusInternalServerError, "persist_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"removed": true})
}

func (s *Server) handleListAssignments(w http.ResponseWriter, _ *http.Request) {
	assignments := s.resolver.Assignments()
	entries := make([]assignmentEntry, 0, len(assignments))
	for key, ref := range assignments {
		entries = append(entries, assignmentEntry{
			UserKey: key,
			Voice:   ref.Encode(),
			Display: s.registry.Describe(ref),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserKey < entries[j].UserKey })
	respondJSON(w, http.StatusOK, map[string]any{"assignments": entries})
}

type recentUserEntry struct {
	UserKey  string `json:"user_key"`
	Assigned string `json:"assigned,omitempty"`
}

func (s *Server) handleRecentUsers(w http.ResponseWriter, _ *http.Request) {
	keys := s.resolver.RecentUsers()
	assignments := s.resolver.Assignments()
	entries := make([]recentUserEntry, 0, len(keys))
	for _, key := range keys {
		entry := recentUserEntry{UserKey: key}
		if ref, ok := assignments[key]; ok {
			entry.Assigned = ref.Encode()
		}
		entries = append(entries, entry)
	}
	respondJSON(w, http.StatusOK, map[string]any{"recent": entries})
}

func assignmentParams(w http.ResponseWriter, r *http.Request) (chat.Source, string, bool) {
	src, err := chat.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_source", "source must be youtube or tiktok")
		return "", "", false
	}
	author, err := url.PathUnescape(chi.URLParam(r, "author"))
	if err != nil || strings.TrimSpace(author) == "" {
		respondError(w, http.StatusBadRequest, "invalid_author", "author is required")
		return "", "", false
	}
	return src, author, true
}
