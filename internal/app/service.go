package app

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/flusswasser/nightbot-uninstall/internal/dedup"
	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/store"
	"github.com/flusswasser/nightbot-uninstall/internal/twitch"
	"github.com/flusswasser/nightbot-uninstall/internal/youtube"
)

// videoAPI is the slice of the YouTube client the service needs.
type videoAPI interface {
	ResolveChannel(ctx context.Context, channelID string) (*youtube.Channel, error)
	LatestVideo(ctx context.Context, playlistID string) (*youtube.Video, error)
}

// streamAPI is the slice of the Twitch client the service needs.
type streamAPI interface {
	UserByLogin(ctx context.Context, login string) (*twitch.User, error)
}

// hubAPI renews push-hub leases for channel topics.
type hubAPI interface {
	Subscribe(ctx context.Context, channelID string) error
}

// Service implements the command contract consumed by the chat-command
// layer: subscribe, unsubscribe and per-subscription settings.
type Service struct {
	store   *store.Store
	youtube videoAPI
	twitch  streamAPI
	hub     hubAPI // nil when push ingestion is disabled
	clock   clockwork.Clock
}

func NewService(st *store.Store, yt videoAPI, tw streamAPI, hub hubAPI, clock clockwork.Clock) *Service {
	return &Service{store: st, youtube: yt, twitch: tw, hub: hub, clock: clock}
}

// SubscribeVideo creates a video subscription for (channel, destination).
// The channel's current latest upload is fed through the ledger up front so
// the bootstrap item is recorded, never announced. Returns
// domain.ErrNotFoundUpstream when the channel does not exist and
// domain.ErrDuplicateSubscription for a repeated pair.
func (s *Service) SubscribeVideo(ctx context.Context, channelID, destinationID string) (*domain.VideoSubscription, error) {
	ch, err := s.youtube.ResolveChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	sub := &domain.VideoSubscription{
		ChannelID:         ch.ID,
		ChannelTitle:      ch.Title,
		UploadsPlaylistID: ch.UploadsPlaylistID,
		DestinationID:     destinationID,
	}

	// Bootstrap: seed the ledger with the current latest item. If the
	// fetch fails the subscription still goes through; the recency guard
	// keeps old uploads silent on the first sweep.
	if latest, err := s.youtube.LatestVideo(ctx, ch.UploadsPlaylistID); err != nil {
		slog.Warn("Failed to fetch latest video during subscribe",
			"channel_id", ch.ID, "error", err)
	} else if latest != nil {
		dedup.Video(sub, latest.ID, latest.PublishedAt, s.clock.Now())
	}

	if err := s.store.AddVideo(sub); err != nil {
		return nil, err
	}

	// Push the hub lease immediately so deliveries start before the next
	// renewal cycle. Failure is logged; the renewal loop catches up.
	if s.hub != nil {
		if err := s.hub.Subscribe(ctx, ch.ID); err != nil {
			slog.Error("Failed to subscribe hub topic", "channel_id", ch.ID, "error", err)
		}
	}

	return sub, nil
}

// SubscribeStream creates a stream subscription for (user, destination),
// resolving the login upstream first. customMessage, when non-empty,
// replaces the default live announcement.
func (s *Service) SubscribeStream(ctx context.Context, login, destinationID, customMessage string) (*domain.StreamSubscription, error) {
	user, err := s.twitch.UserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	sub := &domain.StreamSubscription{
		UserID:        user.ID,
		Login:         user.Login,
		DisplayName:   user.DisplayName,
		AvatarURL:     user.AvatarURL,
		DestinationID: destinationID,
		CustomMessage: customMessage,
	}
	if err := s.store.AddStream(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe removes the (source, destination) pair of either kind,
// reporting whether anything was removed.
func (s *Service) Unsubscribe(ctx context.Context, sourceID, destinationID string) bool {
	if s.store.RemoveVideo(sourceID, destinationID) {
		return true
	}
	return s.store.RemoveStream(sourceID, destinationID)
}

// SetStreamMessage replaces the custom announcement text for an existing
// stream subscription. The write happens on the stored record under the
// store's lock, never on a handed-out copy.
func (s *Service) SetStreamMessage(ctx context.Context, login, destinationID, text string) (*domain.StreamSubscription, error) {
	return s.store.SetStreamMessage(login, destinationID, text)
}
