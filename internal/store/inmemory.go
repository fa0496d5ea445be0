package store

import (
	"context"
	"sync"
)

// InMemoryStore is a simple in-process store for local/dev use. Contents
// are lost on restart.
type InMemoryStore struct {
	mu          sync.RWMutex
	settings    map[string]string
	assignments map[string]string
	recent      []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		settings:    make(map[string]string),
		assignments: make(map[string]string),
	}
}

func (s *InMemoryStore) Settings(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *InMemoryStore) SaveDefaultVoice(ctx context.Context, source, encodedRef string) error {
	return s.SetSetting(ctx, DefaultVoiceKey(source), encodedRef)
}

func (s *InMemoryStore) Assignments(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.assignments))
	for k, v := range s.assignments {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) SaveAssignment(_ context.Context, userKey, encodedRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[userKey] = encodedRef
	return nil
}

func (s *InMemoryStore) DeleteAssignment(_ context.Context, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, userKey)
	return nil
}

func (s *InMemoryStore) RecentUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.recent))
	copy(out, s.recent)
	return out, nil
}

func (s *InMemoryStore) SaveRecentUsers(_ context.Context, userKeys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = make([]string, len(userKeys))
	copy(s.recent, userKeys)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
