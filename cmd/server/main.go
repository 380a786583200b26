package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flusswasser/nightbot-uninstall/internal/app"
	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/notify"
	"github.com/flusswasser/nightbot-uninstall/internal/platform/config"
	"github.com/flusswasser/nightbot-uninstall/internal/platform/logging"
	"github.com/flusswasser/nightbot-uninstall/internal/platform/version"
	"github.com/flusswasser/nightbot-uninstall/internal/server"
	"github.com/flusswasser/nightbot-uninstall/internal/storage"
	"github.com/flusswasser/nightbot-uninstall/internal/store"
	"github.com/flusswasser/nightbot-uninstall/internal/twitch"
	"github.com/flusswasser/nightbot-uninstall/internal/youtube"
)

// deviceFlowScopes is empty on purpose: live-status queries need no user
// scopes, only an authorized token.
var deviceFlowScopes []string

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config) (*store.Store, *storage.FileStore) {
	files, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	st := store.New(files)
	if err := st.LoadSnapshots(); err != nil {
		slog.Error("Failed to load snapshots", "error", err)
		os.Exit(1)
	}
	return st, files
}

func setupTokenProvider(cfg *config.Config, files *storage.FileStore, clock clockwork.Clock) domain.TokenProvider {
	if cfg.UsesDeviceFlow() {
		slog.Info("Using device-authorization token flow")
		return twitch.NewDeviceCodeProvider(cfg.TwitchClientID, deviceFlowScopes, files, clock)
	}
	return twitch.NewAppTokenProvider(cfg.TwitchClientID, cfg.TwitchClientSecret, files, clock)
}

func runGracefulShutdown(srv *server.Server, cancel context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"env", cfg.AppEnv, "port", cfg.Port, "build", version.Get().String())

	st, files := setupStore(cfg)

	tokens := setupTokenProvider(cfg, files, clock)
	twitchClient, err := twitch.NewClient(cfg.TwitchClientID, tokens)
	if err != nil {
		slog.Error("Failed to create Twitch client", "error", err)
		os.Exit(1)
	}
	youtubeClient := youtube.NewClient(cfg.YouTubeAPIKey)

	notifier, err := notify.NewTelegramNotifier(cfg.TelegramBotToken)
	if err != nil {
		slog.Error("Failed to create Telegram notifier", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamPoller := app.NewStreamPoller(st, twitchClient, notifier, clock, cfg.StreamPollInterval)
	go streamPoller.Run(ctx)

	// Push ingestion replaces the video poll loop when a public callback
	// is configured; otherwise polling is the delivery path.
	var hub *youtube.HubSubscriber
	if cfg.PushEnabled() {
		hub = youtube.NewHubSubscriber(cfg.WebhookCallbackURL)
		renewer := app.NewLeaseRenewer(st, hub, clock)
		go renewer.Run(ctx)
	} else {
		videoPoller := app.NewVideoPoller(st, youtubeClient, notifier, clock, cfg.VideoPollInterval)
		go videoPoller.Run(ctx)
	}

	// Pass nil explicitly to avoid a typed-nil interface inside the service.
	var appSvc *app.Service
	if hub != nil {
		appSvc = app.NewService(st, youtubeClient, twitchClient, hub, clock)
	} else {
		appSvc = app.NewService(st, youtubeClient, twitchClient, nil, clock)
	}

	srv := server.NewServer(cfg, appSvc, st, notifier, clock)
	done := runGracefulShutdown(srv, cancel)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
