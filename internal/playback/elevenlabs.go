package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexhartley/chattervox/internal/audio"
)

// elevenLabsPCMRate matches the pcm_22050 output format requested below.
const elevenLabsPCMRate = 22050

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	ModelID string
}

// ElevenLabsSpeaker synthesizes through the ElevenLabs REST API and plays
// the returned clip. Raw PCM output is requested so no codec handling is
// needed on this side.
type ElevenLabsSpeaker struct {
	cfg    ElevenLabsConfig
	client *http.Client
	sink   audio.Sink
}

func NewElevenLabsSpeaker(cfg ElevenLabsConfig, sink audio.Sink) *ElevenLabsSpeaker {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_monolingual_v1"
	}
	return &ElevenLabsSpeaker{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		sink:   sink,
	}
}

func (s *ElevenLabsSpeaker) Name() string { return "elevenlabs" }

type elevenLabsTTSRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func (s *ElevenLabsSpeaker) Speak(ctx context.Context, u Utterance) error {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(elevenLabsTTSRequest{
		Text:    u.Text,
		ModelID: s.cfg.ModelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.5,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") +
		"/v1/text-to-speech/" + url.PathEscape(u.Voice.ID) +
		"?output_format=pcm_22050"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	res, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %q", ErrVoiceNotFound, u.Voice.ID)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("elevenlabs status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	pcm, err := io.ReadAll(io.LimitReader(res.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read elevenlabs audio: %w", err)
	}
	scalePCM16LE(pcm, u.Volume)
	return s.sink.Play(ctx, pcm, elevenLabsPCMRate)
}

// Voices lists the account's available voices for the assignment UI.
func (s *ElevenLabsSpeaker) Voices(ctx context.Context) ([]RemoteVoice, error) {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.cfg.BaseURL, "/")+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("elevenlabs status %d", res.StatusCode)
	}

	var parsed struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode elevenlabs voices: %w", err)
	}

	out := make([]RemoteVoice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		if strings.TrimSpace(v.VoiceID) == "" {
			continue
		}
		out = append(out, RemoteVoice{ID: v.VoiceID, Name: v.Name})
	}
	return out, nil
}

// RemoteVoice is one voice offered by the remote AI-voice provider.
type RemoteVoice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
