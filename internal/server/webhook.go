package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flusswasser/nightbot-uninstall/internal/dedup"
	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/metrics"
	"github.com/flusswasser/nightbot-uninstall/internal/notify"
	"github.com/flusswasser/nightbot-uninstall/internal/youtube"
)

// handleWebhookVerify answers the hub's lease verification handshake by
// echoing the challenge.
func (s *Server) handleWebhookVerify(c echo.Context) error {
	if challenge := c.QueryParam("hub.challenge"); challenge != "" {
		slog.Info("Hub verification answered",
			"mode", c.QueryParam("hub.mode"), "topic", c.QueryParam("hub.topic"))
		return c.String(http.StatusOK, challenge)
	}
	return c.String(http.StatusOK, "OK")
}

// maxPayloadBytes caps the webhook body read. Hub notifications are small
// Atom documents; anything past the cap truncates and fails the parse.
const maxPayloadBytes = 1 << 20

// handleWebhookNotify ingests a pushed content notification. The hub
// retries non-200 responses and eventually drops the lease, so every
// outcome answers 200: failures are logged and counted, never surfaced.
func (s *Server) handleWebhookNotify(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		slog.Warn("Failed to read webhook payload", "error", err)
		metrics.WebhookPayloadsTotal.WithLabelValues("malformed").Inc()
		return c.String(http.StatusOK, "OK")
	}

	videos, err := youtube.ParseFeed(body)
	if err != nil {
		slog.Warn("Failed to parse webhook payload", "error", err)
		metrics.WebhookPayloadsTotal.WithLabelValues("malformed").Inc()
		return c.String(http.StatusOK, "OK")
	}

	ctx := c.Request().Context()
	matched := false
	for _, video := range videos {
		for _, sub := range s.store.VideosByChannel(video.ChannelID) {
			matched = true
			s.processNotification(ctx, sub, video)
		}
	}

	outcome := "ignored"
	if matched {
		outcome = "processed"
	}
	metrics.WebhookPayloadsTotal.WithLabelValues(outcome).Inc()

	return c.String(http.StatusOK, "OK")
}

func (s *Server) processNotification(ctx context.Context, sub *domain.VideoSubscription, video youtube.Video) {
	// The verdict runs against the stored record under the store's lock, so
	// concurrent redeliveries of one entry announce at most once.
	verdict, current, err := s.store.ApplyVideoVerdict(sub.ChannelID, sub.DestinationID, video.ID, video.PublishedAt, s.clock.Now())
	if err != nil {
		// Unsubscribed between lookup and verdict.
		return
	}

	switch verdict {
	case dedup.Duplicate:
		return
	case dedup.Recorded:
		// Stale entry pushed by the hub: remembered, stays silent.
	case dedup.Announce:
		text := notify.VideoAnnouncement(current.ChannelTitle, video.Title, video.Link)
		if err := s.notifier.Notify(ctx, current.DestinationID, text); err != nil {
			slog.Error("Failed to deliver upload announcement",
				"channel_id", current.ChannelID, "destination", current.DestinationID, "error", err)
			metrics.NotificationsTotal.WithLabelValues("video", "error").Inc()
		} else {
			slog.Info("Upload announcement sent", "channel_id", current.ChannelID, "video_id", video.ID)
			metrics.NotificationsTotal.WithLabelValues("video", "success").Inc()
		}
	}
}
