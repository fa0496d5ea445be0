package voice

import (
	"context"
	"log"
	"sync"
)

// SystemVoice describes one voice offered by the host speech engine.
type SystemVoice struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	LanguageTag string `json:"language_tag"`
}

// ListFunc enumerates the host speech engine's voices. The list can arrive
// well after startup and may change while the service runs.
type ListFunc func(ctx context.Context) ([]SystemVoice, error)

// Registry holds the currently-loaded system voice list. A System(index)
// ref is only honored while index points into this list; otherwise callers
// fall back to the engine default.
type Registry struct {
	mu     sync.RWMutex
	voices []SystemVoice
	list   ListFunc
}

func NewRegistry(list ListFunc) *Registry {
	return &Registry{list: list}
}

// Refresh re-enumerates voices. A failed refresh keeps the previous list.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.list == nil {
		return nil
	}
	voices, err := r.list(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.voices = voices
	r.mu.Unlock()
	return nil
}

// RefreshAsync loads the voice list in the background, matching engines
// whose enumeration is slow or arrives after initial load.
func (r *Registry) RefreshAsync(ctx context.Context) {
	go func() {
		if err := r.Refresh(ctx); err != nil {
			log.Printf("system voice enumeration failed: %v", err)
		}
	}()
}

func (r *Registry) Voices() []SystemVoice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SystemVoice, len(r.voices))
	copy(out, r.voices)
	return out
}

// Voice returns the voice at index, reporting whether the index is valid
// against the currently-loaded list.
func (r *Registry) Voice(index int) (SystemVoice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.voices) {
		return SystemVoice{}, false
	}
	return r.voices[index], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.voices)
}

// Describe renders a Ref for user-facing notices, substituting the voice
// display name when the ref points at a loaded system voice.
func (r *Registry) Describe(ref Ref) string {
	if ref.Kind == KindSystem {
		if v, ok := r.Voice(ref.Index); ok {
			return v.DisplayName
		}
	}
	return ref.String()
}
