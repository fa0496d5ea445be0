package playback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexhartley/chattervox/internal/audio"
	"github.com/alexhartley/chattervox/internal/voice"
)

func TestCloneSpeakerSpeak(t *testing.T) {
	wav, err := audio.EncodeWAVPCM16LE([]byte{0, 0, 10, 0}, 22050)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error: %v", err)
	}

	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/voice-clone/tts" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Text      string `json:"text"`
			VoiceName string `json:"voice_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotVoice = req.VoiceName
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	s := NewCloneSpeaker(srv.URL, 5*time.Second, audio.NullSink{})
	u := Utterance{Text: "hello", Voice: voice.Cloned("narrator"), Volume: 1}
	if err := s.Speak(context.Background(), u); err != nil {
		t.Fatalf("Speak() error: %v", err)
	}
	if gotVoice != "narrator" {
		t.Fatalf("voice_name sent = %q, want narrator", gotVoice)
	}
}

func TestCloneSpeakerVoiceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such voice", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewCloneSpeaker(srv.URL, 5*time.Second, audio.NullSink{})
	err := s.Speak(context.Background(), Utterance{Text: "x", Voice: voice.Cloned("missing")})
	if !errors.Is(err, ErrVoiceNotFound) {
		t.Fatalf("Speak() error = %v, want ErrVoiceNotFound", err)
	}
}

func TestCloneSpeakerUnreachable(t *testing.T) {
	s := NewCloneSpeaker("http://127.0.0.1:1", 2*time.Second, audio.NullSink{})
	err := s.Speak(context.Background(), Utterance{Text: "x", Voice: voice.Cloned("v")})
	if !errors.Is(err, ErrBackendUnreachable) {
		t.Fatalf("Speak() error = %v, want ErrBackendUnreachable", err)
	}
}

func TestCloneSpeakerUnconfigured(t *testing.T) {
	s := NewCloneSpeaker("", time.Second, audio.NullSink{})
	if err := s.Speak(context.Background(), Utterance{Text: "x"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Speak() error = %v, want ErrNotConfigured", err)
	}
	names, err := s.Voices(context.Background())
	if err != nil || names != nil {
		t.Fatalf("Voices() on unconfigured = %v, %v, want nil, nil", names, err)
	}
}

func TestCloneSpeakerVoicesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/voice-clone/voices" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"voices": []string{"bob", "narrator"}})
	}))
	defer srv.Close()

	s := NewCloneSpeaker(srv.URL, time.Second, audio.NullSink{})
	names, err := s.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices() error: %v", err)
	}
	if len(names) != 2 || names[0] != "bob" {
		t.Fatalf("Voices() = %v", names)
	}
}

func TestElevenLabsSpeakerSpeak(t *testing.T) {
	var gotPath, gotKey string
	var gotReq struct {
		Text          string `json:"text"`
		ModelID       string `json:"model_id"`
		VoiceSettings struct {
			Stability       float64 `json:"stability"`
			SimilarityBoost float64 `json:"similarity_boost"`
		} `json:"voice_settings"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write(make([]byte, 4)) // raw PCM
	}))
	defer srv.Close()

	s := NewElevenLabsSpeaker(ElevenLabsConfig{APIKey: "key123", BaseURL: srv.URL}, audio.NullSink{})
	u := Utterance{Text: "hi", Voice: voice.RemoteAI("voiceXYZ"), Volume: 1}
	if err := s.Speak(context.Background(), u); err != nil {
		t.Fatalf("Speak() error: %v", err)
	}
	if gotPath != "/v1/text-to-speech/voiceXYZ" {
		t.Fatalf("request path = %q", gotPath)
	}
	if gotKey != "key123" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotReq.ModelID != "eleven_monolingual_v1" {
		t.Fatalf("model id = %q", gotReq.ModelID)
	}
	if gotReq.VoiceSettings.Stability != 0.5 || gotReq.VoiceSettings.SimilarityBoost != 0.75 {
		t.Fatalf("voice settings = %+v", gotReq.VoiceSettings)
	}
}

func TestElevenLabsSpeakerUnconfigured(t *testing.T) {
	s := NewElevenLabsSpeaker(ElevenLabsConfig{}, audio.NullSink{})
	if err := s.Speak(context.Background(), Utterance{Text: "x"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Speak() error = %v, want ErrNotConfigured", err)
	}
}

func TestElevenLabsVoicesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"voices": []map[string]string{
				{"voice_id": "a1", "name": "Rachel"},
				{"voice_id": "", "name": "broken"},
				{"voice_id": "b2", "name": "Adam"},
			},
		})
	}))
	defer srv.Close()

	s := NewElevenLabsSpeaker(ElevenLabsConfig{APIKey: "k", BaseURL: srv.URL}, audio.NullSink{})
	voices, err := s.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices() error: %v", err)
	}
	if len(voices) != 2 || voices[0].ID != "a1" || voices[1].Name != "Adam" {
		t.Fatalf("Voices() = %+v", voices)
	}
}
