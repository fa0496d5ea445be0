package playback

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/alexhartley/chattervox/internal/voice"
)

// Utterance is one resolved speech request handed to a backend.
type Utterance struct {
	Text   string
	Voice  voice.Ref
	Rate   float64 // 1.0 = normal
	Pitch  float64 // 1.0 = normal
	Volume float64 // 0..1
}

// Speaker synthesizes and plays one utterance to completion. Speak blocks
// until playback finishes, fails, or ctx is canceled; the scheduler's
// at-most-one-utterance guarantee depends on that.
type Speaker interface {
	Name() string
	Speak(ctx context.Context, u Utterance) error
}

// Failure reasons backends map their errors onto. Callers never retry on
// any of these; they exist for reporting.
var (
	ErrVoiceNotFound      = errors.New("voice not found")
	ErrBackendUnreachable = errors.New("synthesis backend unreachable")
	ErrSynthesisTimeout   = errors.New("synthesis timed out")
	ErrNotConfigured      = errors.New("backend not configured")
)

// Router dispatches an utterance to the backend matching its voice kind.
// System and engine-default voices go to the system speaker; a cloned or
// remote voice whose backend is not configured falls back to the system
// speaker rather than going silent.
type Router struct {
	System   Speaker
	Clone    Speaker
	RemoteAI Speaker
}

func (r *Router) Name() string { return "router" }

func (r *Router) Speak(ctx context.Context, u Utterance) error {
	backend := r.pick(u.Voice.Kind)
	if backend == nil {
		return ErrNotConfigured
	}
	return backend.Speak(ctx, u)
}

// Backend reports which speaker an utterance with the given voice kind
// would use. Used for metrics labels.
func (r *Router) Backend(kind voice.Kind) string {
	if s := r.pick(kind); s != nil {
		return s.Name()
	}
	return "none"
}

func (r *Router) pick(kind voice.Kind) Speaker {
	switch kind {
	case voice.KindCloned:
		if r.Clone != nil {
			return r.Clone
		}
	case voice.KindRemoteAI:
		if r.RemoteAI != nil {
			return r.RemoteAI
		}
	}
	return r.System
}

// scalePCM16LE applies a linear gain to a mono PCM16LE clip in place.
func scalePCM16LE(pcm []byte, gain float64) {
	if gain < 0 || gain >= 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(v*gain)))
	}
}
