package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/alexhartley/chattervox/internal/audio"
	"github.com/alexhartley/chattervox/internal/chat"
	"github.com/alexhartley/chattervox/internal/config"
	"github.com/alexhartley/chattervox/internal/httpapi"
	"github.com/alexhartley/chattervox/internal/observability"
	"github.com/alexhartley/chattervox/internal/playback"
	"github.com/alexhartley/chattervox/internal/source"
	"github.com/alexhartley/chattervox/internal/speech"
	"github.com/alexhartley/chattervox/internal/store"
	"github.com/alexhartley/chattervox/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	settingsStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("settings store init failed: %v", err)
	}
	defer settingsStore.Close()

	// The speaker consults the registry for voice handles and the registry
	// enumerates voices through the speaker, so tie the knot via a closure.
	var systemSpeaker *playback.SystemSpeaker
	registry := voice.NewRegistry(func(ctx context.Context) ([]voice.SystemVoice, error) {
		return systemSpeaker.ListVoices(ctx)
	})
	systemSpeaker, err = playback.NewSystemSpeaker(cfg.SpeechCommand, registry)
	if err != nil {
		log.Fatalf("system speech init failed: %v", err)
	}
	log.Printf("speech command: %s", systemSpeaker.Command())

	sink := audio.NewOtoSink()
	defer sink.Close()

	cloneSpeaker := playback.NewCloneSpeaker(cfg.CloneTTSURL, cfg.CloneTTSTimeout, sink)
	remoteSpeaker := playback.NewElevenLabsSpeaker(playback.ElevenLabsConfig{
		APIKey:  cfg.ElevenLabsAPIKey,
		BaseURL: cfg.ElevenLabsAPIBaseURL,
		ModelID: cfg.ElevenLabsModelID,
	}, sink)

	router := &playback.Router{
		System:   systemSpeaker,
		Clone:    cloneSpeaker,
		RemoteAI: remoteSpeaker,
	}

	resolver := voice.NewResolver(settingsStore, registry)
	opts := speech.Options{
		ReadUsernames: cfg.ReadUsernames,
		ReadEmojis:    cfg.ReadEmojis,
		ReadLinks:     cfg.ReadLinks,
		Rate:          cfg.SpeechRate,
		Pitch:         cfg.SpeechPitch,
		Volume:        cfg.SpeechVolume,
	}
	opts = loadPersistedOptions(ctx, settingsStore, resolver, opts)

	scheduler := speech.NewScheduler(resolver, router, metrics, opts)

	ytClient := source.NewHTTPYouTubeClient(cfg.YouTubeAPIKey, cfg.YouTubeAPIBaseURL)
	ttClient := source.NewHTTPTikTokClient(cfg.TikTokConnectorURL)
	manager := source.NewManager(ytClient, ttClient, scheduler, metrics, source.Config{
		ReconnectGrace:              cfg.ReconnectGrace,
		YouTubeFallbackPollInterval: cfg.YouTubeFallbackPollInterval,
		TikTokPollInterval:          cfg.TikTokPollInterval,
	})

	api := httpapi.New(cfg, httpapi.Deps{
		Manager:      manager,
		Scheduler:    scheduler,
		Resolver:     resolver,
		Registry:     registry,
		Store:        settingsStore,
		Metrics:      metrics,
		CloneVoices:  cloneSpeaker,
		RemoteVoices: remoteSpeaker,
	})

	feed := api.FeedHub()
	scheduler.SetDisplayHook(feed.BroadcastMessage)
	manager.SetStatusHook(feed.BroadcastStatus)
	resolver.SetNoticeHook(func(text string) {
		scheduler.DisplayOnly(systemNotice(text))
	})

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// Voice enumeration can be slow on some hosts; don't block startup.
	registry.RefreshAsync(runCtx)

	manager.Start(runCtx)
	go scheduler.Run(runCtx)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	scheduler.StopAll()
	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func systemNotice(text string) chat.Message {
	return chat.Message{
		ID:         uuid.NewString(),
		Author:     chat.SystemAuthor,
		Text:       text,
		Source:     chat.SourceSystem,
		ObservedAt: time.Now().UTC(),
	}
}

// loadPersistedOptions overlays stored settings on top of the env-derived
// defaults and seeds the resolver with persisted voice state.
func loadPersistedOptions(ctx context.Context, st store.Store, resolver *voice.Resolver, opts speech.Options) speech.Options {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	settings, err := st.Settings(loadCtx)
	if err != nil {
		log.Printf("load settings: %v", err)
		return opts
	}

	defaults := make(map[string]string)
	for key, value := range settings {
		if src, ok := store.IsDefaultVoiceKey(key); ok {
			defaults[src] = value
			continue
		}
		switch key {
		case store.SettingReadUsernames:
			if b, err := strconv.ParseBool(value); err == nil {
				opts.ReadUsernames = b
			}
		case store.SettingReadEmojis:
			if b, err := strconv.ParseBool(value); err == nil {
				opts.ReadEmojis = b
			}
		case store.SettingReadLinks:
			if b, err := strconv.ParseBool(value); err == nil {
				opts.ReadLinks = b
			}
		case store.SettingSpeechRate:
			if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 && f <= 4 {
				opts.Rate = f
			}
		case store.SettingSpeechPitch:
			if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 && f <= 2 {
				opts.Pitch = f
			}
		case store.SettingSpeechVolume:
			if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 && f <= 1 {
				opts.Volume = f
			}
		}
	}
	resolver.SeedDefaults(defaults)

	if assignments, err := st.Assignments(loadCtx); err != nil {
		log.Printf("load voice assignments: %v", err)
	} else {
		resolver.SeedAssignments(assignments)
	}
	if recent, err := st.RecentUsers(loadCtx); err != nil {
		log.Printf("load recent users: %v", err)
	} else {
		resolver.SeedRecentUsers(recent)
	}

	return opts
}
