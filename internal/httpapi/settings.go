package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/alexhartley/chattervox/internal/chat"
	"github.com/alexhartley/chattervox/internal/speech"
	"github.com/alexhartley/chattervox/internal/store"
	"github.com/alexhartley/chattervox/internal/voice"
)

type settingsResponse struct {
	ReadUsernames bool              `json:"read_usernames"`
	ReadEmojis    bool              `json:"read_emojis"`
	ReadLinks     bool              `json:"read_links"`
	Rate          float64           `json:"rate"`
	Pitch         float64           `json:"pitch"`
	Volume        float64           `json:"volume"`
	DefaultVoices map[string]string `json:"default_voices"`
}

// updateSettingsRequest uses pointers so a PUT can change a subset of
// settings without clobbering the rest.
type updateSettingsRequest struct {
	ReadUsernames *bool             `json:"read_usernames"`
	ReadEmojis    *bool             `json:"read_emojis"`
	ReadLinks     *bool             `json:"read_links"`
	Rate          *float64          `json:"rate"`
	Pitch         *float64          `json:"pitch"`
	Volume        *float64          `json:"volume"`
	DefaultVoices map[string]string `json:"default_voices"`
}

func (s *Server) settingsResponse() settingsResponse {
	opts := s.scheduler.Options()
	defaults := make(map[string]string)
	for _, src := range []chat.Source{chat.SourceYouTube, chat.SourceTikTok} {
		defaults[string(src)] = s.resolver.Default(src).Encode()
	}
	return settingsResponse{
		ReadUsernames: opts.ReadUsernames,
		ReadEmojis:    opts.ReadEmojis,
		ReadLinks:     opts.ReadLinks,
		Rate:          opts.Rate,
		Pitch:         opts.Pitch,
		Volume:        opts.Volume,
		DefaultVoices: defaults,
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.settingsResponse())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	opts := s.scheduler.Options()
	if req.ReadUsernames != nil {
		opts.ReadUsernames = *req.ReadUsernames
	}
	if req.ReadEmojis != nil {
		opts.ReadEmojis = *req.ReadEmojis
	}
	if req.ReadLinks != nil {
		opts.ReadLinks = *req.ReadLinks
	}
	if req.Rate != nil {
		if *req.Rate <= 0 || *req.Rate > 4 {
			respondError(w, http.StatusBadRequest, "invalid_rate", "rate must be in (0, 4]")
			return
		}
		opts.Rate = *req.Rate
	}
	if req.Pitch != nil {
		if *req.Pitch <= 0 || *req.Pitch > 2 {
			respondError(w, http.StatusBadRequest, "invalid_pitch", "pitch must be in (0, 2]")
			return
		}
		opts.Pitch = *req.Pitch
	}
	if req.Volume != nil {
		if *req.Volume < 0 || *req.Volume > 1 {
			respondError(w, http.StatusBadRequest, "invalid_volume", "volume must be in [0, 1]")
			return
		}
		opts.Volume = *req.Volume
	}

	for rawSrc := range req.DefaultVoices {
		if _, err := chat.ParseSource(rawSrc); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_source", fmt.Sprintf("unknown source %q in default_voices", rawSrc))
			return
		}
	}
	for rawSrc, encoded := range req.DefaultVoices {
		src, _ := chat.ParseSource(rawSrc)
		if err := s.resolver.SetDefault(r.Context(), src, voice.ParseRef(encoded)); err != nil {
			respondError(w, http.StatusInternalServerError, "persist_failed", err.Error())
			return
		}
	}

	if err := s.persistOptions(r, opts); err != nil {
		respondError(w, http.StatusInternalServerError, "persist_failed", err.Error())
		return
	}
	s.scheduler.SetOptions(opts)

	respondJSON(w, http.StatusOK, s.settingsResponse())
}

func (s *Server) persistOptions(r *http.Request, opts speech.Options) error {
	ctx := r.Context()
	values := map[string]string{
		store.SettingReadUsernames: strconv.FormatBool(opts.ReadUsernames),
		store.SettingReadEmojis:    strconv.FormatBool(opts.ReadEmojis),
		store.SettingReadLinks:     strconv.FormatBool(opts.ReadLinks),
		store.SettingSpeechRate:    strconv.FormatFloat(opts.Rate, 'f', -1, 64),
		store.SettingSpeechPitch:   strconv.FormatFloat(opts.Pitch, 'f', -1, 64),
		store.SettingSpeechVolume:  strconv.FormatFloat(opts.Volume, 'f', -1, 64),
	}
	for key, value := range values {
		if err := s.store.SetSetting(ctx, key, value); err != nil {
			return fmt.Errorf("persist %s: %w", key, err)
		}
	}
	return nil
}
