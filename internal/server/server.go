package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	apperrors "github.com/flusswasser/nightbot-uninstall/internal/errors"
	"github.com/flusswasser/nightbot-uninstall/internal/platform/config"
	"github.com/flusswasser/nightbot-uninstall/internal/store"
)

// subscriptionService is the command contract the admin API exposes.
type subscriptionService interface {
	SubscribeVideo(ctx context.Context, channelID, destinationID string) (*domain.VideoSubscription, error)
	SubscribeStream(ctx context.Context, login, destinationID, customMessage string) (*domain.StreamSubscription, error)
	Unsubscribe(ctx context.Context, sourceID, destinationID string) bool
	SetStreamMessage(ctx context.Context, login, destinationID, text string) (*domain.StreamSubscription, error)
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       subscriptionService
	store     *store.Store
	notifier  domain.Notifier
	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg *config.Config, app subscriptionService, st *store.Store, notifier domain.Notifier, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       app,
		store:     st,
		notifier:  notifier,
		clock:     clock,
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Admin API (subscription management)
	s.echo.GET("/api/subscriptions", s.handleListSubscriptions)
	s.echo.POST("/api/subscriptions/videos", s.handleCreateVideoSubscription)
	s.echo.POST("/api/subscriptions/streams", s.handleCreateStreamSubscription)
	s.echo.DELETE("/api/subscriptions/:sourceID/:destinationID", s.handleDeleteSubscription)
	s.echo.PUT("/api/subscriptions/streams/message", s.handleSetStreamMessage)

	// Push-hub delivery (verification handshake + content notifications)
	if s.config.PushEnabled() {
		s.echo.GET("/content-webhook", s.handleWebhookVerify)
		s.echo.POST("/content-webhook", s.handleWebhookNotify)
	}
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
