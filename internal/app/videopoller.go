package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/flusswasser/nightbot-uninstall/internal/dedup"
	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/metrics"
	"github.com/flusswasser/nightbot-uninstall/internal/notify"
	"github.com/flusswasser/nightbot-uninstall/internal/store"
	"github.com/flusswasser/nightbot-uninstall/internal/youtube"
)

// VideoPoller sweeps video subscriptions against the uploads playlists.
// It is the fallback delivery path, started only when push ingestion is
// not configured.
type VideoPoller struct {
	store    *store.Store
	youtube  videoAPI
	notifier domain.Notifier
	clock    clockwork.Clock
	interval time.Duration
}

func NewVideoPoller(st *store.Store, yt videoAPI, notifier domain.Notifier, clock clockwork.Clock, interval time.Duration) *VideoPoller {
	return &VideoPoller{store: st, youtube: yt, notifier: notifier, clock: clock, interval: interval}
}

// Run drives sweeps until ctx is cancelled.
func (p *VideoPoller) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			p.sweep(ctx)
		case <-ctx.Done():
			slog.Info("Video poller stopped")
			return
		}
	}
}

func (p *VideoPoller) sweep(ctx context.Context) {
	subs := p.store.ListVideos()
	if len(subs) == 0 {
		return
	}

	start := p.clock.Now()
	log := slog.With("sweep_id", uuid.NewString()[:8], "kind", "video")

	// Subscriptions resolving to the same uploads playlist share one fetch
	// within a sweep.
	fetched := make(map[string]*youtube.Video)

	for _, sub := range subs {
		p.checkSubscription(ctx, log, sub, fetched)
	}

	metrics.SweepDuration.WithLabelValues("video").Observe(p.clock.Since(start).Seconds())
}

func (p *VideoPoller) checkSubscription(ctx context.Context, log *slog.Logger, sub *domain.VideoSubscription, fetched map[string]*youtube.Video) {
	if sub.UploadsPlaylistID == "" {
		ch, err := p.youtube.ResolveChannel(ctx, sub.ChannelID)
		if err != nil {
			log.Warn("Failed to resolve uploads playlist", "channel_id", sub.ChannelID, "error", err)
			metrics.SweepErrors.WithLabelValues("video").Inc()
			return
		}
		sub.UploadsPlaylistID = ch.UploadsPlaylistID
		if sub.ChannelTitle == "" {
			sub.ChannelTitle = ch.Title
		}
		if err := p.store.UpdateVideo(sub); err != nil {
			log.Error("Failed to persist resolved playlist", "channel_id", sub.ChannelID, "error", err)
		}
	}

	latest, ok := fetched[sub.UploadsPlaylistID]
	if !ok {
		var err error
		latest, err = p.youtube.LatestVideo(ctx, sub.UploadsPlaylistID)
		if err != nil {
			log.Warn("Failed to fetch latest video", "channel_id", sub.ChannelID, "error", err)
			metrics.SweepErrors.WithLabelValues("video").Inc()
			return
		}
		fetched[sub.UploadsPlaylistID] = latest
	}
	if latest == nil {
		return
	}

	// Verdict runs against the stored record under the store's lock.
	verdict, current, err := p.store.ApplyVideoVerdict(sub.ChannelID, sub.DestinationID, latest.ID, latest.PublishedAt, p.clock.Now())
	if err != nil {
		return
	}

	switch verdict {
	case dedup.Duplicate:
		return
	case dedup.Recorded:
		// Outside the recency window: remembered, stays silent.
	case dedup.Announce:
		text := notify.VideoAnnouncement(current.ChannelTitle, latest.Title, latest.Link)
		if err := p.notifier.Notify(ctx, current.DestinationID, text); err != nil {
			log.Error("Failed to deliver upload announcement",
				"channel_id", current.ChannelID, "destination", current.DestinationID, "error", err)
			metrics.NotificationsTotal.WithLabelValues("video", "error").Inc()
		} else {
			log.Info("Upload announcement sent", "channel_id", current.ChannelID, "video_id", latest.ID)
			metrics.NotificationsTotal.WithLabelValues("video", "success").Inc()
		}
	}
}
