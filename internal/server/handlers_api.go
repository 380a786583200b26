package server

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	apperrors "github.com/flusswasser/nightbot-uninstall/internal/errors"
)

type videoSubscriptionRequest struct {
	ChannelID     string `json:"channel_id"`
	DestinationID string `json:"destination_id"`
}

type streamSubscriptionRequest struct {
	Login         string `json:"login"`
	DestinationID string `json:"destination_id"`
	CustomMessage string `json:"custom_message"`
}

type streamMessageRequest struct {
	Login         string `json:"login"`
	DestinationID string `json:"destination_id"`
	Text          string `json:"text"`
}

func (s *Server) handleCreateVideoSubscription(c echo.Context) error {
	var req videoSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.ChannelID == "" || req.DestinationID == "" {
		return apperrors.ValidationError("channel_id and destination_id are required")
	}

	sub, err := s.app.SubscribeVideo(c.Request().Context(), req.ChannelID, req.DestinationID)
	if err != nil {
		return mapSubscribeError(err, "channel", req.ChannelID)
	}

	slog.Info("Video subscription created", "channel_id", sub.ChannelID, "destination", sub.DestinationID)
	return c.JSON(201, sub)
}

func (s *Server) handleCreateStreamSubscription(c echo.Context) error {
	var req streamSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Login == "" || req.DestinationID == "" {
		return apperrors.ValidationError("login and destination_id are required")
	}

	sub, err := s.app.SubscribeStream(c.Request().Context(), req.Login, req.DestinationID, req.CustomMessage)
	if err != nil {
		return mapSubscribeError(err, "login", req.Login)
	}

	slog.Info("Stream subscription created", "login", sub.Login, "destination", sub.DestinationID)
	return c.JSON(201, sub)
}

func (s *Server) handleDeleteSubscription(c echo.Context) error {
	sourceID := c.Param("sourceID")
	destinationID := c.Param("destinationID")

	if !s.app.Unsubscribe(c.Request().Context(), sourceID, destinationID) {
		return apperrors.NotFoundError("subscription not found").
			WithField("source_id", sourceID).
			WithField("destination_id", destinationID)
	}

	slog.Info("Subscription removed", "source_id", sourceID, "destination", destinationID)
	return c.JSON(200, map[string]string{"status": "ok"})
}

func (s *Server) handleSetStreamMessage(c echo.Context) error {
	var req streamMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Login == "" || req.DestinationID == "" {
		return apperrors.ValidationError("login and destination_id are required")
	}

	sub, err := s.app.SetStreamMessage(c.Request().Context(), req.Login, req.DestinationID, req.Text)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return apperrors.NotFoundError("subscription not found").WithField("login", req.Login)
		}
		return apperrors.InternalError("failed to update subscription", err)
	}

	return c.JSON(200, sub)
}

func (s *Server) handleListSubscriptions(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"videos":  s.store.ListVideos(),
		"streams": s.store.ListStreams(),
	})
}

func mapSubscribeError(err error, field, value string) error {
	switch {
	case errors.Is(err, domain.ErrNotFoundUpstream):
		return apperrors.NotFoundError(field + " not found upstream").WithField(field, value)
	case errors.Is(err, domain.ErrDuplicateSubscription):
		return apperrors.ConflictError("already subscribed").WithField(field, value)
	default:
		return apperrors.ExternalError("upstream lookup failed", err).WithField(field, value)
	}
}
