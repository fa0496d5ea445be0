package voice

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/alexhartley/chattervox/internal/chat"
)

const recentUsersLimit = 20

// Persister is the slice of the settings store the resolver writes through
// to. Every mutation is persisted immediately; reads happen once at
// startup via the Seed* methods.
type Persister interface {
	SaveAssignment(ctx context.Context, userKey, encodedRef string) error
	DeleteAssignment(ctx context.Context, userKey string) error
	SaveDefaultVoice(ctx context.Context, source, encodedRef string) error
	SaveRecentUsers(ctx context.Context, userKeys []string) error
}

// Resolver maps a (source, author) pair to a synthesis target, consulting
// per-user assignments first and per-source defaults second. Resolution
// never fails; with nothing configured it returns the engine default.
type Resolver struct {
	mu          sync.RWMutex
	assignments map[string]Ref
	defaults    map[chat.Source]Ref
	recent      []string // user keys, most recent first

	store    Persister
	registry *Registry
	notice   func(text string)
}

func NewResolver(store Persister, registry *Registry) *Resolver {
	return &Resolver{
		assignments: make(map[string]Ref),
		defaults:    make(map[chat.Source]Ref),
		store:       store,
		registry:    registry,
	}
}

// SetNoticeHook registers the sink for display-only SYSTEM notices emitted
// on assignment changes. Notices are never speech jobs.
func (r *Resolver) SetNoticeHook(hook func(text string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notice = hook
}

// SeedAssignments installs persisted assignments at startup.
func (r *Resolver) SeedAssignments(assignments map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, encoded := range assignments {
		r.assignments[key] = ParseRef(encoded)
	}
}

// SeedDefaults installs persisted per-source default voices at startup.
func (r *Resolver) SeedDefaults(defaults map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for source, encoded := range defaults {
		r.defaults[chat.Source(source)] = ParseRef(encoded)
	}
}

// SeedRecentUsers installs the persisted recent-users list at startup,
// dropping malformed and excess entries.
func (r *Resolver) SeedRecentUsers(userKeys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = r.recent[:0]
	seen := make(map[string]struct{}, len(userKeys))
	for _, key := range userKeys {
		if !validUserKey(key) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		r.recent = append(r.recent, key)
		if len(r.recent) >= recentUsersLimit {
			break
		}
	}
}

// Resolve returns the synthesis target for a message author. Lookup order:
// explicit per-user assignment, then the source's default voice, then the
// engine default.
func (r *Resolver) Resolve(author string, source chat.Source) Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ref, ok := r.assignments[chat.UserKey(source, author)]; ok {
		return ref
	}
	if ref, ok := r.defaults[source]; ok {
		return ref
	}
	return EngineDefault()
}

// Assign upserts a per-user voice, persists it, and emits a notice.
func (r *Resolver) Assign(ctx context.Context, author string, source chat.Source, ref Ref) error {
	key := chat.UserKey(source, author)

	r.mu.Lock()
	r.assignments[key] = ref
	notice := r.notice
	r.mu.Unlock()

	if err := r.store.SaveAssignment(ctx, key, ref.Encode()); err != nil {
		return fmt.Errorf("persist voice assignment: %w", err)
	}
	if notice != nil {
		notice(fmt.Sprintf("Voice for %q (%s) set to: %s", author, source, r.registry.Describe(ref)))
	}
	return nil
}

// Remove deletes a per-user voice. Removing an absent assignment is not an
// error and still emits exactly one notice.
func (r *Resolver) Remove(ctx context.Context, author string, source chat.Source) error {
	key := chat.UserKey(source, author)

	r.mu.Lock()
	delete(r.assignments, key)
	notice := r.notice
	r.mu.Unlock()

	if err := r.store.DeleteAssignment(ctx, key); err != nil {
		return fmt.Errorf("delete voice assignment: %w", err)
	}
	if notice != nil {
		notice(fmt.Sprintf("Voice for %q (%s) removed", author, source))
	}
	return nil
}

// Assignment reports the explicit assignment for an author, if any.
func (r *Resolver) Assignment(author string, source chat.Source) (Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.assignments[chat.UserKey(source, author)]
	return ref, ok
}

// Assignments returns all explicit assignments keyed by user key.
func (r *Resolver) Assignments() map[string]Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Ref, len(r.assignments))
	for k, v := range r.assignments {
		out[k] = v
	}
	return out
}

// SetDefault records the default voice for a source and persists it.
func (r *Resolver) SetDefault(ctx context.Context, source chat.Source, ref Ref) error {
	r.mu.Lock()
	r.defaults[source] = ref
	r.mu.Unlock()
	if err := r.store.SaveDefaultVoice(ctx, string(source), ref.Encode()); err != nil {
		return fmt.Errorf("persist default voice: %w", err)
	}
	return nil
}

// Default reports the configured default voice for a source.
func (r *Resolver) Default(source chat.Source) Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[source]
}

// TouchRecent promotes an author to the front of the recent-users list.
// The synthetic SYSTEM author is excluded; the list is bounded, oldest
// entries evicted first.
func (r *Resolver) TouchRecent(author string, source chat.Source) {
	if author == chat.SystemAuthor || source == chat.SourceSystem {
		return
	}
	key := chat.UserKey(source, author)
	if !validUserKey(key) {
		return
	}

	r.mu.Lock()
	updated := false
	for i, existing := range r.recent {
		if existing == key {
			if i != 0 {
				copy(r.recent[1:i+1], r.recent[:i])
				r.recent[0] = key
				updated = true
			}
			break
		}
	}
	if !updated && (len(r.recent) == 0 || r.recent[0] != key) {
		r.recent = append([]string{key}, r.recent...)
		if len(r.recent) > recentUsersLimit {
			r.recent = r.recent[:recentUsersLimit]
		}
		updated = true
	}
	snapshot := make([]string, len(r.recent))
	copy(snapshot, r.recent)
	r.mu.Unlock()

	if !updated {
		return
	}
	if err := r.store.SaveRecentUsers(context.Background(), snapshot); err != nil {
		log.Printf("persist recent users: %v", err)
	}
}

// RecentUsers returns the recent-users list, most recent first.
func (r *Resolver) RecentUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.recent))
	copy(out, r.recent)
	return out
}

func validUserKey(key string) bool {
	sep := -1
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			sep = i
			break
		}
	}
	return sep > 0 && sep < len(key)-1
}
