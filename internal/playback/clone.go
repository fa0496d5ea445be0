package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alexhartley/chattervox/internal/audio"
)

// CloneSpeaker synthesizes through the locally hosted voice-cloning
// sidecar (a Python process fronted by HTTP) and plays the returned WAV
// clip. The sidecar can be slow on cold start, hence the generous
// per-request timeout.
type CloneSpeaker struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	sink    audio.Sink
}

func NewCloneSpeaker(baseURL string, timeout time.Duration, sink audio.Sink) *CloneSpeaker {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CloneSpeaker{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
		sink:    sink,
	}
}

func (s *CloneSpeaker) Name() string { return "clone" }

type cloneTTSRequest struct {
	Text      string `json:"text"`
	VoiceName string `json:"voice_name"`
}

func (s *CloneSpeaker) Speak(ctx context.Context, u Utterance) error {
	if s.baseURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(cloneTTSRequest{Text: u.Text, VoiceName: u.Voice.Name})
	if err != nil {
		return err
	}

	synthCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(synthCtx, http.MethodPost, s.baseURL+"/api/voice-clone/tts", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || synthCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %v", ErrSynthesisTimeout, time.Since(start).Round(time.Second))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %q", ErrVoiceNotFound, u.Voice.Name)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("voice clone backend status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	clip, err := io.ReadAll(io.LimitReader(res.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read clone audio: %w", err)
	}

	pcm, sampleRate, err := audio.DecodeWAVPCM16LE(clip)
	if err != nil {
		return fmt.Errorf("decode clone audio: %w", err)
	}
	scalePCM16LE(pcm, u.Volume)
	return s.sink.Play(ctx, pcm, sampleRate)
}

// Voices lists the cloned voice names the sidecar offers (WAV basenames
// in its custom-voices directory).
func (s *CloneSpeaker) Voices(ctx context.Context) ([]string, error) {
	if s.baseURL == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/voice-clone/voices", nil)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("voice clone backend status %d", res.StatusCode)
	}

	var parsed struct {
		Voices []string `json:"voices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode voices list: %w", err)
	}
	return parsed.Voices, nil
}
