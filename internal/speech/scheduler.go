package speech

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexhartley/chattervox/internal/chat"
	"github.com/alexhartley/chattervox/internal/observability"
	"github.com/alexhartley/chattervox/internal/playback"
	"github.com/alexhartley/chattervox/internal/voice"
)

// Job is one enqueued utterance. The voice is resolved at enqueue time so
// a later default change never retroactively alters a queued job.
type Job struct {
	ID            string
	Author        string
	Text          string
	Source        chat.Source
	ShouldDisplay bool
	Voice         voice.Ref
	EnqueuedAt    time.Time
}

// Options are the user-tunable speech settings. They apply at dispatch
// time, unlike the voice which is pinned at enqueue.
type Options struct {
	ReadUsernames bool
	ReadEmojis    bool
	ReadLinks     bool
	Rate          float64
	Pitch         float64
	Volume        float64
}

// DisplayFunc receives every message that should appear in the chat feed,
// with spoken reporting whether it is also being read aloud.
type DisplayFunc func(msg chat.Message, spoken bool)

// Scheduler serializes speech across all chat sources. Jobs are spoken in
// strict enqueue order; a single consumer goroutine drains the queue, so
// at most one playback backend is ever active.
type Scheduler struct {
	mu       sync.Mutex
	queue    []Job
	opts     Options
	display  DisplayFunc
	inFlight bool
	cancelIn context.CancelFunc // cancels the in-flight playback, if any

	resolver *voice.Resolver
	speaker  *playback.Router
	metrics  *observability.Metrics

	kick chan struct{}
}

func NewScheduler(resolver *voice.Resolver, speaker *playback.Router, metrics *observability.Metrics, opts Options) *Scheduler {
	return &Scheduler{
		opts:     opts,
		resolver: resolver,
		speaker:  speaker,
		metrics:  metrics,
		kick:     make(chan struct{}, 1),
	}
}

// SetDisplayHook registers the chat-feed sink. Must be set before Run.
func (s *Scheduler) SetDisplayHook(hook DisplayFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = hook
}

// SetOptions replaces the speech settings. Already-queued jobs keep their
// resolved voice but pick up the new filter/prosody settings at dispatch.
func (s *Scheduler) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

func (s *Scheduler) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Enqueue appends a job in FIFO order and wakes the consumer. It never
// blocks and is safe to call from any poller goroutine.
func (s *Scheduler) Enqueue(author, text string, source chat.Source, shouldDisplay bool) {
	job := Job{
		ID:            uuid.NewString(),
		Author:        author,
		Text:          text,
		Source:        source,
		ShouldDisplay: shouldDisplay,
		Voice:         s.resolver.Resolve(author, source),
		EnqueuedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.queue = append(s.queue, job)
	depth := len(s.queue)
	s.mu.Unlock()

	s.metrics.QueueDepth.Set(float64(depth))
	s.metrics.MessagesIngested.WithLabelValues(string(source)).Inc()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// DisplayOnly pushes a message to the chat feed without ever queueing
// speech. Used for backlog items and SYSTEM notices.
func (s *Scheduler) DisplayOnly(msg chat.Message) {
	s.mu.Lock()
	display := s.display
	s.mu.Unlock()

	if display != nil {
		display(msg, false)
	}
	s.resolver.TouchRecent(msg.Author, msg.Source)
}

// QueueDepth reports how many jobs are waiting (not counting in-flight).
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Speaking reports whether a playback is currently in flight.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// StopAll purges the queue and cancels in-flight playback. Per-source
// disconnects deliberately do NOT do this; queued jobs from a
// disconnected source still play out.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	cancel := s.cancelIn
	s.mu.Unlock()

	if dropped > 0 {
		s.metrics.JobsDropped.WithLabelValues("stop_all").Add(float64(dropped))
	}
	s.metrics.QueueDepth.Set(0)
	if cancel != nil {
		cancel()
	}
}

// Run is the single consumer loop. It must be the only goroutine that
// dispatches playback; the one-utterance-at-a-time invariant rests on
// that, not on a flag.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
		}
		for {
			job, ok := s.pop()
			if !ok {
				break
			}
			s.process(ctx, job)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *Scheduler) pop() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		s.metrics.QueueDepth.Set(0)
		return Job{}, false
	}
	job := s.queue[0]
	s.queue = s.queue[1:]
	s.metrics.QueueDepth.Set(float64(len(s.queue)))
	return job, true
}

func (s *Scheduler) process(ctx context.Context, job Job) {
	s.mu.Lock()
	opts := s.opts
	display := s.display
	s.mu.Unlock()

	filtered := FilterText(job.Text, FilterOptions{
		KeepEmojis: opts.ReadEmojis,
		KeepLinks:  opts.ReadLinks,
	})
	willSpeak := filtered != ""

	if job.ShouldDisplay && display != nil {
		display(chat.Message{
			ID:         job.ID,
			Author:     job.Author,
			Text:       job.Text,
			Source:     job.Source,
			ObservedAt: job.EnqueuedAt,
		}, willSpeak)
	}
	s.resolver.TouchRecent(job.Author, job.Source)

	if !willSpeak {
		// Nothing speakable left; complete the job without touching a
		// playback backend. The message still reached the feed above.
		s.metrics.JobsDropped.WithLabelValues("empty_after_filter").Inc()
		return
	}

	speechText := filtered
	if opts.ReadUsernames {
		speechText = fmt.Sprintf("%s says: %s", job.Author, filtered)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.inFlight = true
	s.cancelIn = cancel
	s.mu.Unlock()

	start := time.Now()
	err := s.speaker.Speak(jobCtx, playback.Utterance{
		Text:   speechText,
		Voice:  job.Voice,
		Rate:   opts.Rate,
		Pitch:  opts.Pitch,
		Volume: opts.Volume,
	})
	cancel()

	s.mu.Lock()
	s.inFlight = false
	s.cancelIn = nil
	s.mu.Unlock()

	backend := s.speaker.Backend(job.Voice.Kind)
	s.metrics.ObserveSynthesisLatency(time.Since(start))
	if err != nil {
		// Playback failures unblock the queue exactly like completions;
		// they are never retried and never abort the session.
		s.metrics.PlaybackErrors.WithLabelValues(backend, "speak_failed").Inc()
		log.Printf("playback error (%s, %s): %v", backend, job.Source, err)
		return
	}
	s.metrics.JobsSpoken.WithLabelValues(backend).Inc()
}
